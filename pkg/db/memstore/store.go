// Package memstore is an in-memory warehouse used for dry runs and tests. It keeps the same
// per-dimension transaction semantics as the Postgres store.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/canopy-network/salesdw/pkg/conform"
	models "github.com/canopy-network/salesdw/pkg/db/models/warehouse"
	"github.com/canopy-network/salesdw/pkg/db/warehouse"
	"github.com/canopy-network/salesdw/pkg/historize"
	"go.uber.org/zap"
)

// Store is a warehouse.Store held in process memory.
type Store struct {
	logger *zap.Logger

	products  *Table[models.Product]
	customers *Table[models.Customer]
	statuses  *Table[models.Status]

	mu      sync.RWMutex
	staging map[string][]models.StagingRecord
	dates   map[int32]models.DateRow
	facts   map[string][]models.FactRow
	batches map[string]models.Batch
}

var _ warehouse.Store = (*Store)(nil)

// New returns an empty store.
func New(logger *zap.Logger) *Store {
	return &Store{
		logger:    logger,
		products:  NewTable(conform.ProductRules),
		customers: NewTable(conform.CustomerRules),
		statuses:  NewTable(conform.StatusRules),
		staging:   map[string][]models.StagingRecord{},
		dates:     map[int32]models.DateRow{},
		facts:     map[string][]models.FactRow{},
		batches:   map[string]models.Batch{},
	}
}

func dayKey(t time.Time) string {
	return historize.DateOf(t).Format(time.DateOnly)
}

func (s *Store) DatabaseName() string { return "memory" }

func (s *Store) Close() error { return nil }

// Products exposes the product table for seeding and inspection.
func (s *Store) Products() *Table[models.Product] { return s.products }

// Customers exposes the customer table for seeding and inspection.
func (s *Store) Customers() *Table[models.Customer] { return s.customers }

// Statuses exposes the status table for seeding and inspection.
func (s *Store) Statuses() *Table[models.Status] { return s.statuses }

func (s *Store) ReplaceStaging(_ context.Context, batchDate time.Time, records []models.StagingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staging[dayKey(batchDate)] = append([]models.StagingRecord(nil), records...)
	return nil
}

func (s *Store) StagingRecords(_ context.Context, batchDate time.Time) ([]models.StagingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]models.StagingRecord(nil), s.staging[dayKey(batchDate)]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].LineID < out[j].LineID })
	return out, nil
}

func (s *Store) UpsertDates(_ context.Context, rows []models.DateRow) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inserted := 0
	for _, d := range rows {
		if _, ok := s.dates[d.DatePK]; ok {
			continue
		}
		s.dates[d.DatePK] = d
		inserted++
	}
	return inserted, nil
}

func (s *Store) DateRows(_ context.Context, from, to time.Time) ([]models.DateRow, error) {
	from, to = historize.DateOf(from), historize.DateOf(to)

	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.DateRow
	for _, d := range s.dates {
		if d.Date.Before(from) || d.Date.After(to) {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DatePK < out[j].DatePK })
	return out, nil
}

func (s *Store) CurrentProducts(context.Context) ([]models.Version[models.Product], error) {
	return s.products.Current(), nil
}

func (s *Store) CurrentCustomers(context.Context) ([]models.Version[models.Customer], error) {
	return s.customers.Current(), nil
}

func (s *Store) CurrentStatuses(context.Context) ([]models.Version[models.Status], error) {
	return s.statuses.Current(), nil
}

func (s *Store) HistorizeProducts(ctx context.Context, staged []models.Product, today time.Time) (historize.Result, error) {
	return historizeTable(ctx, s.logger, s.products, staged, today)
}

func (s *Store) HistorizeCustomers(ctx context.Context, staged []models.Customer, today time.Time) (historize.Result, error) {
	return historizeTable(ctx, s.logger, s.customers, staged, today)
}

func (s *Store) HistorizeStatuses(ctx context.Context, staged []models.Status, today time.Time) (historize.Result, error) {
	return historizeTable(ctx, s.logger, s.statuses, staged, today)
}

func historizeTable[T any](ctx context.Context, logger *zap.Logger, t *Table[T], staged []T, today time.Time) (historize.Result, error) {
	start := time.Now()
	res, err := t.Historize(ctx, staged, today)
	if err != nil {
		return historize.Result{}, err
	}
	res.DurationMs = float64(time.Since(start).Microseconds()) / 1000.0
	logger.Debug("Dimension historized in memory",
		zap.String("dimension", res.Dimension.String()),
		zap.Int("closed", res.Closed),
		zap.Int("inserted", res.Inserted),
		zap.Int("conflicts", res.Conflicts),
	)
	return res, nil
}

func (s *Store) ReplaceFacts(_ context.Context, batchDate time.Time, rows []models.FactRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.facts[dayKey(batchDate)] = append([]models.FactRow(nil), rows...)
	return nil
}

// Facts returns the fact rows stored for batchDate.
func (s *Store) Facts(batchDate time.Time) []models.FactRow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.FactRow(nil), s.facts[dayKey(batchDate)]...)
}

func (s *Store) FactRows(_ context.Context, batchDate time.Time) ([]models.FactRow, error) {
	return s.Facts(batchDate), nil
}

func (s *Store) RecordBatch(_ context.Context, b models.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches[dayKey(b.BatchDate)] = b
	return nil
}

// Batch returns the audit row recorded for batchDate.
func (s *Store) Batch(batchDate time.Time) (models.Batch, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.batches[dayKey(batchDate)]
	return b, ok
}
