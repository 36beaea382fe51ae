package warehouse

import (
	"context"
	"time"

	"github.com/canopy-network/salesdw/pkg/historize"
	models "github.com/canopy-network/salesdw/pkg/db/models/warehouse"
)

// Store is everything a batch load needs from the warehouse. It is implemented by *DB
// (Postgres wire protocol) and by memstore.Store for dry runs and tests.
type Store interface {
	DatabaseName() string

	// ReplaceStaging swaps the staging rows of batchDate for records in one transaction.
	ReplaceStaging(ctx context.Context, batchDate time.Time, records []models.StagingRecord) error
	// StagingRecords returns the staged rows of batchDate ordered by line id.
	StagingRecords(ctx context.Context, batchDate time.Time) ([]models.StagingRecord, error)

	// UpsertDates inserts calendar days that are not stored yet and returns how many were new.
	UpsertDates(ctx context.Context, rows []models.DateRow) (int, error)
	// DateRows returns the stored calendar days in [from, to].
	DateRows(ctx context.Context, from, to time.Time) ([]models.DateRow, error)

	CurrentProducts(ctx context.Context) ([]models.Version[models.Product], error)
	CurrentCustomers(ctx context.Context) ([]models.Version[models.Customer], error)
	CurrentStatuses(ctx context.Context) ([]models.Version[models.Status], error)

	// Historize* conform the staged members against a locked snapshot of the dimension and apply
	// the plan, all in one transaction.
	HistorizeProducts(ctx context.Context, staged []models.Product, today time.Time) (historize.Result, error)
	HistorizeCustomers(ctx context.Context, staged []models.Customer, today time.Time) (historize.Result, error)
	HistorizeStatuses(ctx context.Context, staged []models.Status, today time.Time) (historize.Result, error)

	// ReplaceFacts swaps the fact rows of batchDate for rows in one transaction.
	ReplaceFacts(ctx context.Context, batchDate time.Time, rows []models.FactRow) error
	// FactRows returns the fact rows of batchDate ordered by line id.
	FactRows(ctx context.Context, batchDate time.Time) ([]models.FactRow, error)
	// RecordBatch upserts the audit row of a loaded batch.
	RecordBatch(ctx context.Context, b models.Batch) error

	Close() error
}
