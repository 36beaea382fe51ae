package warehouse

import (
	"context"
	"fmt"
	"time"

	models "github.com/canopy-network/salesdw/pkg/db/models/warehouse"
	"github.com/canopy-network/salesdw/pkg/historize"
	"github.com/jackc/pgx/v5"
)

// ReplaceFacts deletes the fact rows of batchDate and inserts rows, in one transaction.
// Null foreign keys are stored as NULL.
func (db *DB) ReplaceFacts(ctx context.Context, batchDate time.Time, rows []models.FactRow) error {
	batchDate = historize.DateOf(batchDate)

	return db.InTx(ctx, func(ctx context.Context) error {
		exec := db.GetExecutor(ctx)
		if _, err := exec.Exec(ctx, `DELETE FROM fact_sales WHERE batch_date = $1`, batchDate); err != nil {
			return fmt.Errorf("clear fact_sales for %s: %w", batchDate.Format(time.DateOnly), err)
		}

		query := `
			INSERT INTO fact_sales (
				batch_date, line_id,
				order_date_fk, ship_date_fk, product_fk, customer_fk, status_fk,
				order_number, order_line_number, quantity_ordered, sales
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`

		batch := &pgx.Batch{}
		for _, f := range rows {
			batch.Queue(query,
				batchDate, f.LineID,
				f.OrderDateFK, f.ShipDateFK, f.ProductFK, f.CustomerFK, f.StatusFK,
				f.OrderNumber, f.OrderLineNumber, f.QuantityOrdered, f.Sales,
			)
		}
		if err := executeBatch(ctx, exec, batch); err != nil {
			return fmt.Errorf("insert fact_sales: %w", err)
		}
		return nil
	})
}

// FactRows returns the fact rows of batchDate ordered by line id.
func (db *DB) FactRows(ctx context.Context, batchDate time.Time) ([]models.FactRow, error) {
	query := `
		SELECT batch_date, line_id,
			order_date_fk, ship_date_fk, product_fk, customer_fk, status_fk,
			order_number, order_line_number, quantity_ordered, sales
		FROM fact_sales
		WHERE batch_date = $1
		ORDER BY line_id
	`

	rows, err := db.Query(ctx, query, historize.DateOf(batchDate))
	if err != nil {
		return nil, fmt.Errorf("query fact_sales: %w", err)
	}
	defer rows.Close()

	var out []models.FactRow
	for rows.Next() {
		var f models.FactRow
		if err := rows.Scan(
			&f.BatchDate, &f.LineID,
			&f.OrderDateFK, &f.ShipDateFK, &f.ProductFK, &f.CustomerFK, &f.StatusFK,
			&f.OrderNumber, &f.OrderLineNumber, &f.QuantityOrdered, &f.Sales,
		); err != nil {
			return nil, fmt.Errorf("scan fact_sales: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// RecordBatch upserts the load_batches row of a batch date.
func (db *DB) RecordBatch(ctx context.Context, b models.Batch) error {
	query := `
		INSERT INTO load_batches (
			batch_date, source_uri, staged_rows, fact_rows, versions_closed, versions_added,
			null_references, duration_ms, detail, loaded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (batch_date) DO UPDATE SET
			source_uri = EXCLUDED.source_uri,
			staged_rows = EXCLUDED.staged_rows,
			fact_rows = EXCLUDED.fact_rows,
			versions_closed = EXCLUDED.versions_closed,
			versions_added = EXCLUDED.versions_added,
			null_references = EXCLUDED.null_references,
			duration_ms = EXCLUDED.duration_ms,
			detail = EXCLUDED.detail,
			loaded_at = EXCLUDED.loaded_at
	`

	return db.Exec(ctx, query,
		historize.DateOf(b.BatchDate), b.SourceURI, b.StagedRows, b.FactRows, b.VersionsClosed, b.VersionsAdded,
		b.NullReferences, b.DurationMs, b.Detail,
	)
}
