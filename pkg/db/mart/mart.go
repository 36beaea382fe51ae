// Package mart mirrors loaded facts into ClickHouse for analytical queries. The warehouse
// stays the source of truth; a mirror can always be rebuilt from it.
package mart

import (
	"context"
	"fmt"
	"time"

	"github.com/canopy-network/salesdw/pkg/db/clickhouse"
	models "github.com/canopy-network/salesdw/pkg/db/models/warehouse"
	"go.uber.org/zap"
)

// DB is the ClickHouse mart database.
type DB struct {
	clickhouse.Client
	Name string
}

// New connects, creates the database if needed and makes sure fact_sales exists.
func New(ctx context.Context, logger *zap.Logger, name string, poolConfig *clickhouse.PoolConfig) (*DB, error) {
	name = clickhouse.SanitizeName(name)
	client, err := clickhouse.New(ctx, logger.With(zap.String("db", name)), name, poolConfig)
	if err != nil {
		return nil, err
	}

	db := &DB{Client: client, Name: name}
	if err := db.InitializeDB(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return db, nil
}

// InitializeDB creates the database and its tables.
func (db *DB) InitializeDB(ctx context.Context) error {
	if err := db.CreateDbIfNotExists(ctx, db.Name); err != nil {
		return fmt.Errorf("create mart database %s: %w", db.Name, err)
	}
	if err := db.SwitchToTargetDatabase(ctx); err != nil {
		return err
	}
	if err := db.Exec(ctx, factSalesDDL(&db.Client)); err != nil {
		return fmt.Errorf("create mart fact_sales: %w", err)
	}
	return nil
}

func factSalesDDL(c *clickhouse.Client) string {
	return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS fact_sales %s (
			batch_date Date,
			line_id Int64,
			order_date_fk Nullable(Int32),
			ship_date_fk Nullable(Int32),
			product_fk Nullable(Int64),
			customer_fk Nullable(Int64),
			status_fk Nullable(Int64),
			order_number Int64,
			order_line_number Int64,
			quantity_ordered Int64,
			sales Decimal(10, 2),
			loaded_at DateTime64(3) DEFAULT now64(3)
		) ENGINE = %s
		PARTITION BY batch_date
		ORDER BY (batch_date, line_id)
	`, c.OnCluster(), c.Engine(clickhouse.ReplacingMergeTree, "loaded_at"))
}

// MirrorFacts replaces the batch's partition with rows and returns how many were sent.
func (db *DB) MirrorFacts(ctx context.Context, batchDate time.Time, rows []models.FactRow) (int, error) {
	day := batchDate.UTC().Format(time.DateOnly)

	drop := fmt.Sprintf("ALTER TABLE fact_sales %s DROP PARTITION '%s'", db.OnCluster(), day)
	if err := db.Exec(ctx, drop); err != nil {
		return 0, fmt.Errorf("drop mart partition %s: %w", day, err)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	batch, err := db.PrepareBatch(ctx, `
		INSERT INTO fact_sales (
			batch_date, line_id, order_date_fk, ship_date_fk, product_fk, customer_fk, status_fk,
			order_number, order_line_number, quantity_ordered, sales
		)`)
	if err != nil {
		return 0, fmt.Errorf("prepare mart batch: %w", err)
	}
	for _, f := range rows {
		if err := batch.Append(
			f.BatchDate, f.LineID, f.OrderDateFK, f.ShipDateFK, f.ProductFK, f.CustomerFK, f.StatusFK,
			f.OrderNumber, f.OrderLineNumber, f.QuantityOrdered, f.Sales,
		); err != nil {
			_ = batch.Abort()
			return 0, fmt.Errorf("append mart row %d: %w", f.LineID, err)
		}
	}
	if err := batch.Send(); err != nil {
		return 0, fmt.Errorf("send mart batch: %w", err)
	}

	db.Logger.Info("Facts mirrored to mart", zap.String("batch_date", day), zap.Int("rows", len(rows)))
	return len(rows), nil
}
