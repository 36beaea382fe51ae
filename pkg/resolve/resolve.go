// Package resolve turns staging records into fact rows by looking up the surrogate keys that
// are current once the batch has been historized.
package resolve

import (
	"time"

	"github.com/canopy-network/salesdw/pkg/calendar"
	"github.com/canopy-network/salesdw/pkg/conform"
	models "github.com/canopy-network/salesdw/pkg/db/models/warehouse"
	"github.com/canopy-network/salesdw/pkg/historize"
)

// Lookups is the post-historization state the resolver reads.
type Lookups struct {
	Dates     calendar.Index
	Products  *conform.CurrentIndex[models.Product]
	Customers *conform.CurrentIndex[models.Customer]
	Statuses  *conform.CurrentIndex[models.Status]
}

// NewLookups indexes current dimension versions and calendar days.
func NewLookups(
	dates []models.DateRow,
	products []models.Version[models.Product],
	customers []models.Version[models.Customer],
	statuses []models.Version[models.Status],
) Lookups {
	return Lookups{
		Dates:     calendar.NewIndex(dates),
		Products:  conform.NewCurrentIndex(conform.ProductRules, products),
		Customers: conform.NewCurrentIndex(conform.CustomerRules, customers),
		Statuses:  conform.NewCurrentIndex(conform.StatusRules, statuses),
	}
}

// Stats counts the references that resolved to null.
type Stats struct {
	Rows             int `json:"rows"`
	NullOrderDate    int `json:"nullOrderDate"`
	NullShipDate     int `json:"nullShipDate"`
	NullProduct      int `json:"nullProduct"`
	NullCustomer     int `json:"nullCustomer"`
	NullStatus       int `json:"nullStatus"`
	RowsWithAnyNulls int `json:"rowsWithAnyNulls"`
}

// Nulls returns the total number of null references.
func (s Stats) Nulls() int {
	return s.NullOrderDate + s.NullShipDate + s.NullProduct + s.NullCustomer + s.NullStatus
}

// Facts emits one fact row per record, in record order. A reference resolves only when its
// natural key has exactly one current version and that version's attributes match the
// record; otherwise the foreign key is left nil and the row is still emitted.
func Facts(batchDate time.Time, records []models.StagingRecord, lk Lookups) ([]models.FactRow, Stats) {
	batchDate = historize.DateOf(batchDate)
	rows := make([]models.FactRow, 0, len(records))
	stats := Stats{Rows: len(records)}

	for _, r := range records {
		f := models.FactRow{
			BatchDate:       batchDate,
			LineID:          r.LineID,
			OrderNumber:     r.OrderNumber,
			OrderLineNumber: r.OrderLineNumber,
			QuantityOrdered: r.QuantityOrdered,
			Sales:           r.Sales,
		}
		nulls := 0

		if pk, ok := lk.Dates.Key(r.OrderDate); ok {
			f.OrderDateFK = &pk
		} else {
			stats.NullOrderDate++
			nulls++
		}
		if pk, ok := lk.Dates.Key(r.ShipDate); ok {
			f.ShipDateFK = &pk
		} else {
			stats.NullShipDate++
			nulls++
		}
		if sk, ok := lookup(lk.Products, r.Product()); ok {
			f.ProductFK = &sk
		} else {
			stats.NullProduct++
			nulls++
		}
		if sk, ok := lookup(lk.Customers, r.Customer()); ok {
			f.CustomerFK = &sk
		} else {
			stats.NullCustomer++
			nulls++
		}
		if sk, ok := lookup(lk.Statuses, r.StatusMember()); ok {
			f.StatusFK = &sk
		} else {
			stats.NullStatus++
			nulls++
		}

		if nulls > 0 {
			stats.RowsWithAnyNulls++
		}
		rows = append(rows, f)
	}
	return rows, stats
}

func lookup[T any](ix *conform.CurrentIndex[T], member T) (int64, bool) {
	if ix == nil {
		return 0, false
	}
	return ix.Lookup(member)
}
