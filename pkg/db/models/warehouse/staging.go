package warehouse

import (
	"time"

	"github.com/shopspring/decimal"
)

// StagingRecord is one canonical sale line of a batch. It only lives for the batch that
// produced it; staging_sales is replaced per batch date.
type StagingRecord struct {
	LineID int64 `json:"lineId"` // 1-based position in the source file

	OrderDate       time.Time `json:"orderDate"`
	ShipDate        time.Time `json:"shipDate"`
	OrderNumber     int64     `json:"orderNumber"`
	OrderLineNumber int64     `json:"orderLineNumber"`

	ProductCode          string          `json:"productCode"`
	ProductLine          string          `json:"productLine"`
	SuggestedRetailPrice int64           `json:"suggestedRetailPrice"`
	PriceEach            decimal.Decimal `json:"priceEach"`

	CustomerID       int64  `json:"customerId"`
	CustomerName     string `json:"customerName"`
	City             string `json:"city"`
	Country          string `json:"country"`
	Territory        string `json:"territory"`
	ContactLastName  string `json:"contactLastName"`
	ContactFirstName string `json:"contactFirstName"`

	QuantityOrdered int64           `json:"quantityOrdered"`
	Sales           decimal.Decimal `json:"sales"`
	Status          string          `json:"status"`
}

// Product projects the product dimension member of the line.
func (r StagingRecord) Product() Product {
	return Product{
		ProductCode:          r.ProductCode,
		ProductLine:          r.ProductLine,
		SuggestedRetailPrice: r.SuggestedRetailPrice,
		PriceEach:            r.PriceEach,
	}
}

// Customer projects the customer dimension member of the line.
func (r StagingRecord) Customer() Customer {
	return Customer{
		CustomerID:       r.CustomerID,
		CustomerName:     r.CustomerName,
		City:             r.City,
		Country:          r.Country,
		Territory:        r.Territory,
		ContactLastName:  r.ContactLastName,
		ContactFirstName: r.ContactFirstName,
	}
}

// StatusMember projects the status dimension member of the line.
func (r StagingRecord) StatusMember() Status {
	return Status{Status: r.Status}
}
