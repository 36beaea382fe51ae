package activity

import (
	"context"
	"encoding/json"
	"time"

	"github.com/canopy-network/salesdw/app/loader/types"
	models "github.com/canopy-network/salesdw/pkg/db/models/warehouse"
	"github.com/canopy-network/salesdw/pkg/historize"
	"github.com/canopy-network/salesdw/pkg/redis"
	"go.uber.org/zap"
)

// RecordBatch upserts the batch's load_batches row.
func (ac *Context) RecordBatch(ctx context.Context, in types.ActivityRecordBatchInput) error {
	detail, _ := json.Marshal(in.Timings)
	b := models.Batch{
		BatchDate:      historize.DateOf(in.BatchDate),
		SourceURI:      in.SourceURI,
		StagedRows:     in.StagedRows,
		FactRows:       in.FactRows,
		VersionsClosed: in.VersionsClosed,
		VersionsAdded:  in.VersionsAdded,
		NullReferences: in.NullReferences,
		DurationMs:     in.DurationMs,
		Detail:         string(detail),
	}
	if err := ac.Store.RecordBatch(ctx, b); err != nil {
		return err
	}

	ac.Logger.Info("Batch loaded",
		zap.Time("batch_date", b.BatchDate),
		zap.String("source", b.SourceURI),
		zap.Int("fact_rows", b.FactRows),
		zap.Int("versions_closed", b.VersionsClosed),
		zap.Int("versions_added", b.VersionsAdded),
		zap.Int("null_references", b.NullReferences),
		zap.Float64("duration_ms", b.DurationMs),
	)
	return nil
}

// PublishBatchLoaded announces the committed batch. Failures are logged, never returned.
func (ac *Context) PublishBatchLoaded(ctx context.Context, in types.ActivityRecordBatchInput) error {
	if ac.Notifier == nil {
		return nil
	}
	e := redis.BatchLoadedEvent{
		BatchDate:      historize.DateOf(in.BatchDate).Format(time.DateOnly),
		SourceURI:      in.SourceURI,
		FactRows:       in.FactRows,
		VersionsClosed: in.VersionsClosed,
		VersionsAdded:  in.VersionsAdded,
		NullReferences: in.NullReferences,
		LoadedAt:       time.Now().UTC(),
	}
	if err := ac.Notifier.PublishBatchLoaded(ctx, e); err != nil {
		ac.Logger.Warn("Batch notification failed", zap.String("batch_date", e.BatchDate), zap.Error(err))
	}
	return nil
}
