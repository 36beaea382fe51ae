package warehouse

import (
	"context"
	"fmt"
	"time"

	models "github.com/canopy-network/salesdw/pkg/db/models/warehouse"
	"github.com/canopy-network/salesdw/pkg/historize"
	"github.com/jackc/pgx/v5"
)

const stagingColumns = `
	line_id, order_date, ship_date, order_number, order_line_number,
	product_code, product_line, suggested_retail_price, price_each,
	customer_id, customer_name, city, country, territory, contact_lastname, contact_firstname,
	quantity_ordered, sales, status`

// ReplaceStaging deletes the staged rows of batchDate and inserts records, in one transaction.
func (db *DB) ReplaceStaging(ctx context.Context, batchDate time.Time, records []models.StagingRecord) error {
	batchDate = historize.DateOf(batchDate)

	return db.InTx(ctx, func(ctx context.Context) error {
		exec := db.GetExecutor(ctx)
		if _, err := exec.Exec(ctx, `DELETE FROM staging_sales WHERE batch_date = $1`, batchDate); err != nil {
			return fmt.Errorf("clear staging_sales for %s: %w", batchDate.Format(time.DateOnly), err)
		}

		query := `INSERT INTO staging_sales (batch_date,` + stagingColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`

		batch := &pgx.Batch{}
		for _, r := range records {
			batch.Queue(query,
				batchDate, r.LineID, r.OrderDate, r.ShipDate, r.OrderNumber, r.OrderLineNumber,
				r.ProductCode, r.ProductLine, r.SuggestedRetailPrice, r.PriceEach,
				r.CustomerID, r.CustomerName, r.City, r.Country, r.Territory, r.ContactLastName, r.ContactFirstName,
				r.QuantityOrdered, r.Sales, r.Status,
			)
		}
		if err := executeBatch(ctx, exec, batch); err != nil {
			return fmt.Errorf("insert staging_sales: %w", err)
		}
		return nil
	})
}

// StagingRecords returns the staged rows of batchDate ordered by line id.
func (db *DB) StagingRecords(ctx context.Context, batchDate time.Time) ([]models.StagingRecord, error) {
	query := `SELECT` + stagingColumns + ` FROM staging_sales WHERE batch_date = $1 ORDER BY line_id`

	rows, err := db.Query(ctx, query, historize.DateOf(batchDate))
	if err != nil {
		return nil, fmt.Errorf("query staging_sales: %w", err)
	}
	defer rows.Close()

	var records []models.StagingRecord
	for rows.Next() {
		var r models.StagingRecord
		if err := rows.Scan(
			&r.LineID, &r.OrderDate, &r.ShipDate, &r.OrderNumber, &r.OrderLineNumber,
			&r.ProductCode, &r.ProductLine, &r.SuggestedRetailPrice, &r.PriceEach,
			&r.CustomerID, &r.CustomerName, &r.City, &r.Country, &r.Territory, &r.ContactLastName, &r.ContactFirstName,
			&r.QuantityOrdered, &r.Sales, &r.Status,
		); err != nil {
			return nil, fmt.Errorf("scan staging_sales: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
