package activity

import (
	"context"
	"time"

	"github.com/canopy-network/salesdw/app/loader/types"
	"github.com/canopy-network/salesdw/pkg/historize"
	"github.com/canopy-network/salesdw/pkg/pipeline"
	"go.uber.org/zap"
)

// StageSource fetches and normalizes the source document and replaces the batch's staging rows.
func (ac *Context) StageSource(ctx context.Context, in types.LoadBatchInput) (types.ActivityStageOutput, error) {
	start := time.Now()
	batchDate := historize.DateOf(in.BatchDate)

	records, err := ac.Stager.Stage(ctx, in.SourceURI, batchDate)
	if err != nil {
		ac.Logger.Error("Staging failed",
			zap.String("source", in.SourceURI),
			zap.Time("batch_date", batchDate),
			zap.Error(err),
		)
		return types.ActivityStageOutput{}, nonRetryable(err)
	}
	if err := ac.Store.ReplaceStaging(ctx, batchDate, records); err != nil {
		return types.ActivityStageOutput{}, err
	}

	return types.ActivityStageOutput{StagedRows: len(records), DurationMs: sinceMs(start)}, nil
}

// EnsureCalendar fills dim_date over the configured range.
func (ac *Context) EnsureCalendar(ctx context.Context) (types.ActivityCalendarOutput, error) {
	start := time.Now()
	added, err := pipeline.EnsureCalendar(ctx, ac.Store, ac.CalendarStart, ac.CalendarEnd)
	if err != nil {
		return types.ActivityCalendarOutput{}, err
	}
	if added > 0 {
		ac.Logger.Info("Calendar extended", zap.Int("days_added", added))
	}
	return types.ActivityCalendarOutput{Added: added, DurationMs: sinceMs(start)}, nil
}
