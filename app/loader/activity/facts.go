package activity

import (
	"context"
	"time"

	"github.com/canopy-network/salesdw/app/loader/types"
	"github.com/canopy-network/salesdw/pkg/historize"
	"github.com/canopy-network/salesdw/pkg/pipeline"
	"go.uber.org/zap"
)

// ResolveFacts replaces the batch's fact rows with the staged rows resolved against the
// current dimension versions.
func (ac *Context) ResolveFacts(ctx context.Context, in types.ActivityBatchInput) (types.ActivityResolveOutput, error) {
	start := time.Now()
	batchDate := historize.DateOf(in.BatchDate)

	_, stats, err := pipeline.ResolveFacts(ctx, ac.Store, batchDate)
	if err != nil {
		return types.ActivityResolveOutput{}, err
	}
	if stats.Nulls() > 0 {
		ac.Logger.Warn("Fact rows with unresolved references",
			zap.Time("batch_date", batchDate),
			zap.Int("rows", stats.RowsWithAnyNulls),
			zap.Int("order_date", stats.NullOrderDate),
			zap.Int("ship_date", stats.NullShipDate),
			zap.Int("product", stats.NullProduct),
			zap.Int("customer", stats.NullCustomer),
			zap.Int("status", stats.NullStatus),
		)
	}
	return types.ActivityResolveOutput{Stats: stats, DurationMs: sinceMs(start)}, nil
}

// MirrorFacts copies the batch's committed fact rows into the analytics mart, if one is
// configured.
func (ac *Context) MirrorFacts(ctx context.Context, in types.ActivityBatchInput) (types.ActivityMirrorOutput, error) {
	if ac.Mirror == nil {
		return types.ActivityMirrorOutput{Skipped: true}, nil
	}
	start := time.Now()
	batchDate := historize.DateOf(in.BatchDate)

	rows, err := ac.Store.FactRows(ctx, batchDate)
	if err != nil {
		return types.ActivityMirrorOutput{}, err
	}
	n, err := ac.Mirror.MirrorFacts(ctx, batchDate, rows)
	if err != nil {
		return types.ActivityMirrorOutput{}, err
	}
	return types.ActivityMirrorOutput{Rows: n, DurationMs: sinceMs(start)}, nil
}
