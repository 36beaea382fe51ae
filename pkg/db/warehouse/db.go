// Package warehouse is the Postgres-wire warehouse store. The SQL sticks to what Redshift
// also accepts apart from identity columns and row locks.
package warehouse

import (
	"context"
	"fmt"

	"github.com/canopy-network/salesdw/pkg/db/postgres"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// DB represents a PostgreSQL database connection for loading the star schema
type DB struct {
	postgres.Client
	Name string
}

var _ Store = (*DB)(nil)

// New connects to the warehouse database and makes sure every table exists.
func New(ctx context.Context, logger *zap.Logger, name string, poolConfig postgres.PoolConfig) (*DB, error) {
	client, err := postgres.New(ctx, logger.With(
		zap.String("db", name),
		zap.String("component", poolConfig.Component),
	), name, poolConfig)
	if err != nil {
		return nil, err
	}

	db := &DB{
		Client: client,
		Name:   name,
	}

	if err := db.InitializeDB(ctx); err != nil {
		client.Close()
		return nil, err
	}

	return db, nil
}

// Close terminates the underlying PostgreSQL connection
func (db *DB) Close() error {
	db.Client.Close()
	return nil
}

// DatabaseName returns the name of the warehouse database
func (db *DB) DatabaseName() string {
	return db.Name
}

// InitializeDB ensures the required tables exist. Dimensions are created before fact_sales,
// which references them.
func (db *DB) InitializeDB(ctx context.Context) error {
	db.Logger.Info("Initializing warehouse database", zap.String("database", db.Name))

	for _, table := range schema {
		db.Logger.Debug("Initialize table", zap.String("database", db.Name), zap.String("table", table.name))
		if err := db.Exec(ctx, table.ddl); err != nil {
			return fmt.Errorf("create table %s: %w", table.name, err)
		}
	}
	return nil
}

// executeBatch runs every queued statement and reports the first failure.
func executeBatch(ctx context.Context, exec postgres.Executor, batch *pgx.Batch) error {
	if batch.Len() == 0 {
		return nil
	}
	br := exec.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch statement %d failed: %w", i, err)
		}
	}
	return br.Close()
}
