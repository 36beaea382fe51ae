// Package historize applies conform plans to a dimension table inside one store transaction.
package historize

import (
	"context"
	"fmt"
	"time"

	"github.com/canopy-network/salesdw/pkg/batcherr"
	"github.com/canopy-network/salesdw/pkg/conform"
	"github.com/canopy-network/salesdw/pkg/db/entities"
	"github.com/canopy-network/salesdw/pkg/db/models/warehouse"
)

// Tx is the slice of a dimension table the applier needs. Implementations run every call in
// the same transaction, so a close-out is visible to the inserts that follow it.
type Tx[T any] interface {
	// CountCurrent returns how many versions of naturalKey are flagged current.
	CountCurrent(ctx context.Context, naturalKey string) (int, error)
	// CloseCurrent ends version surrogateKey if it is still current and reports whether a row
	// was updated.
	CloseCurrent(ctx context.Context, surrogateKey int64, endDate time.Time) (bool, error)
	// VersionExists reports whether surrogateKey was ever written.
	VersionExists(ctx context.Context, surrogateKey int64) (bool, error)
	// InsertVersion appends a version and returns the surrogate key assigned by the store.
	InsertVersion(ctx context.Context, member T, startDate, endDate time.Time) (int64, error)
}

// Result summarizes what one dimension load wrote.
type Result struct {
	Dimension    entities.Dimension `json:"dimension"`
	Closed       int                `json:"closed"`
	NoOpCloseOut int                `json:"noOpCloseOut"` // close-outs whose target was already closed
	Inserted     int                `json:"inserted"`
	Unchanged    int                `json:"unchanged"`
	Conflicts    int                `json:"conflicts"`
	DurationMs   float64            `json:"durationMs"`
}

// Apply closes out the superseded versions and then inserts the new ones, all dated today.
//
// Close-outs are idempotent: a target that exists but is no longer current is skipped. A target
// that never existed, or a natural key with more than one current version, aborts with an
// IntegrityViolationError; the caller is expected to roll the transaction back.
//
// A close-out dated before the start of its target version is rejected before anything is
// written: the batch date would end that version before it began.
func Apply[T any](ctx context.Context, tx Tx[T], plan conform.Plan[T], today time.Time) (Result, error) {
	today = DateOf(today)
	for _, co := range plan.CloseOuts {
		if !co.StartDate.IsZero() && today.Before(DateOf(co.StartDate)) {
			return Result{}, &batcherr.IntegrityViolationError{
				Dimension:   plan.Dimension.String(),
				NaturalKey:  co.NaturalKey,
				CurrentRows: 1,
				Reason: fmt.Sprintf("batch date %s precedes current version %d start date %s",
					today.Format(time.DateOnly), co.SurrogateKey, DateOf(co.StartDate).Format(time.DateOnly)),
			}
		}
	}

	res := Result{
		Dimension: plan.Dimension,
		Unchanged: plan.Unchanged,
		Conflicts: len(plan.Conflicts),
	}

	for _, co := range plan.CloseOuts {
		closed, err := closeOut(ctx, tx, plan.Dimension, co, today)
		if err != nil {
			return Result{}, err
		}
		if closed {
			res.Closed++
		} else {
			res.NoOpCloseOut++
		}
	}

	for _, m := range plan.Inserts {
		if _, err := tx.InsertVersion(ctx, m, today, warehouse.OpenEndDate); err != nil {
			return Result{}, fmt.Errorf("insert %s version: %w", plan.Dimension, err)
		}
		res.Inserted++
	}

	return res, nil
}

func closeOut[T any](ctx context.Context, tx Tx[T], dim entities.Dimension, co conform.CloseOut, today time.Time) (bool, error) {
	n, err := tx.CountCurrent(ctx, co.NaturalKey)
	if err != nil {
		return false, fmt.Errorf("count current %s versions of %q: %w", dim, co.NaturalKey, err)
	}
	if n > 1 {
		return false, &batcherr.IntegrityViolationError{
			Dimension:   dim.String(),
			NaturalKey:  co.NaturalKey,
			CurrentRows: n,
			Reason:      "more than one current version at close-out",
		}
	}

	closed, err := tx.CloseCurrent(ctx, co.SurrogateKey, today)
	if err != nil {
		return false, fmt.Errorf("close %s version %d: %w", dim, co.SurrogateKey, err)
	}
	if closed {
		return true, nil
	}

	exists, err := tx.VersionExists(ctx, co.SurrogateKey)
	if err != nil {
		return false, fmt.Errorf("look up %s version %d: %w", dim, co.SurrogateKey, err)
	}
	if !exists {
		return false, &batcherr.IntegrityViolationError{
			Dimension:   dim.String(),
			NaturalKey:  co.NaturalKey,
			CurrentRows: n,
			Reason:      fmt.Sprintf("close-out target %d does not exist", co.SurrogateKey),
		}
	}
	return false, nil
}

// DateOf truncates t to its UTC calendar day.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
