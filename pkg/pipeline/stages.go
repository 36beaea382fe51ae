// Package pipeline holds the batch load stages shared by the Temporal activities and the
// in-process Runner.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/canopy-network/salesdw/pkg/calendar"
	"github.com/canopy-network/salesdw/pkg/db/entities"
	models "github.com/canopy-network/salesdw/pkg/db/models/warehouse"
	"github.com/canopy-network/salesdw/pkg/db/warehouse"
	"github.com/canopy-network/salesdw/pkg/historize"
	"github.com/canopy-network/salesdw/pkg/resolve"
)

// EnsureCalendar stores the days of [start, end] that are missing and returns how many were
// added.
func EnsureCalendar(ctx context.Context, store warehouse.Store, start, end time.Time) (int, error) {
	rows, err := calendar.Expand(start, end)
	if err != nil {
		return 0, err
	}
	n, err := store.UpsertDates(ctx, rows)
	if err != nil {
		return 0, fmt.Errorf("upsert calendar: %w", err)
	}
	return n, nil
}

// HistorizeDimension projects the dimension's members out of the staged records and
// historizes them in one store transaction.
func HistorizeDimension(ctx context.Context, store warehouse.Store, dim entities.Dimension, records []models.StagingRecord, today time.Time) (historize.Result, error) {
	switch dim {
	case entities.Products:
		return store.HistorizeProducts(ctx, project(records, models.StagingRecord.Product), today)
	case entities.Customers:
		return store.HistorizeCustomers(ctx, project(records, models.StagingRecord.Customer), today)
	case entities.Statuses:
		return store.HistorizeStatuses(ctx, project(records, models.StagingRecord.StatusMember), today)
	default:
		return historize.Result{}, fmt.Errorf("unknown dimension %q", dim)
	}
}

func project[T any](records []models.StagingRecord, fn func(models.StagingRecord) T) []T {
	out := make([]T, len(records))
	for i, r := range records {
		out[i] = fn(r)
	}
	return out
}

// ResolveFacts resolves the staged rows of batchDate against the dimensions' current state and
// replaces the batch's fact rows.
func ResolveFacts(ctx context.Context, store warehouse.Store, batchDate time.Time) ([]models.FactRow, resolve.Stats, error) {
	records, err := store.StagingRecords(ctx, batchDate)
	if err != nil {
		return nil, resolve.Stats{}, fmt.Errorf("read staging: %w", err)
	}
	lk, err := LoadLookups(ctx, store, records)
	if err != nil {
		return nil, resolve.Stats{}, err
	}

	rows, stats := resolve.Facts(batchDate, records, lk)
	if err := store.ReplaceFacts(ctx, batchDate, rows); err != nil {
		return nil, resolve.Stats{}, fmt.Errorf("replace facts: %w", err)
	}
	return rows, stats, nil
}

// LoadLookups reads what the resolver needs: the current version of every dimension and the
// calendar days spanned by records.
func LoadLookups(ctx context.Context, store warehouse.Store, records []models.StagingRecord) (resolve.Lookups, error) {
	products, err := store.CurrentProducts(ctx)
	if err != nil {
		return resolve.Lookups{}, fmt.Errorf("read current products: %w", err)
	}
	customers, err := store.CurrentCustomers(ctx)
	if err != nil {
		return resolve.Lookups{}, fmt.Errorf("read current customers: %w", err)
	}
	statuses, err := store.CurrentStatuses(ctx)
	if err != nil {
		return resolve.Lookups{}, fmt.Errorf("read current statuses: %w", err)
	}

	var dates []models.DateRow
	if from, to, ok := dateSpan(records); ok {
		if dates, err = store.DateRows(ctx, from, to); err != nil {
			return resolve.Lookups{}, fmt.Errorf("read calendar: %w", err)
		}
	}
	return resolve.NewLookups(dates, products, customers, statuses), nil
}

func dateSpan(records []models.StagingRecord) (from, to time.Time, ok bool) {
	for _, r := range records {
		for _, d := range []time.Time{r.OrderDate, r.ShipDate} {
			if !ok || d.Before(from) {
				from = d
			}
			if !ok || d.After(to) {
				to = d
			}
			ok = true
		}
	}
	return from, to, ok
}
