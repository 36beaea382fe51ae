package warehouse

import (
	"time"

	"github.com/shopspring/decimal"
)

// FactRow is one row of fact_sales. Foreign keys are nil when the lookup found no current
// dimension version (or no calendar day); such rows are still loaded.
type FactRow struct {
	BatchDate time.Time `json:"batchDate" ch:"batch_date"`
	LineID    int64     `json:"lineId" ch:"line_id"`

	OrderDateFK *int32 `json:"orderDateFk" ch:"order_date_fk"`
	ShipDateFK  *int32 `json:"shipDateFk" ch:"ship_date_fk"`
	ProductFK   *int64 `json:"productFk" ch:"product_fk"`
	CustomerFK  *int64 `json:"customerFk" ch:"customer_fk"`
	StatusFK    *int64 `json:"statusFk" ch:"status_fk"`

	// Degenerate dimensions
	OrderNumber     int64 `json:"orderNumber" ch:"order_number"`
	OrderLineNumber int64 `json:"orderLineNumber" ch:"order_line_number"`

	QuantityOrdered int64           `json:"quantityOrdered" ch:"quantity_ordered"`
	Sales           decimal.Decimal `json:"sales" ch:"sales"`
}
