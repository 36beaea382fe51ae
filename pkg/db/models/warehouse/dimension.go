package warehouse

import (
	"time"

	"github.com/shopspring/decimal"
)

// OpenEndDate marks the version that is still valid.
var OpenEndDate = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)

// Product is a member of dim_products.
type Product struct {
	ProductCode          string          `json:"productCode"`
	ProductLine          string          `json:"productLine"`
	SuggestedRetailPrice int64           `json:"suggestedRetailPrice"`
	PriceEach            decimal.Decimal `json:"priceEach"`
}

// Customer is a member of dim_customers.
type Customer struct {
	CustomerID       int64  `json:"customerId"`
	CustomerName     string `json:"customerName"`
	City             string `json:"city"`
	Country          string `json:"country"`
	Territory        string `json:"territory"`
	ContactLastName  string `json:"contactLastName"`
	ContactFirstName string `json:"contactFirstName"`
}

// Status is a member of dim_status. The label is both natural key and only attribute.
type Status struct {
	Status string `json:"status"`
}

// Version is one row of a historized dimension table.
type Version[T any] struct {
	SurrogateKey int64
	Member       T
	StartDate    time.Time
	EndDate      time.Time
	IsCurrent    bool
}

// IsOpen reports whether the version has no end date yet.
func (v Version[T]) IsOpen() bool {
	return v.EndDate.Equal(OpenEndDate)
}
