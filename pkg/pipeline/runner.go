package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/canopy-network/salesdw/pkg/db/entities"
	models "github.com/canopy-network/salesdw/pkg/db/models/warehouse"
	"github.com/canopy-network/salesdw/pkg/db/warehouse"
	"github.com/canopy-network/salesdw/pkg/historize"
	"github.com/canopy-network/salesdw/pkg/redis"
	"github.com/canopy-network/salesdw/pkg/resolve"
	"github.com/canopy-network/salesdw/pkg/staging"
	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"
)

// Mirror copies a batch's fact rows into the analytics mart.
type Mirror interface {
	MirrorFacts(ctx context.Context, batchDate time.Time, rows []models.FactRow) (int, error)
}

// Notifier announces a committed batch.
type Notifier interface {
	PublishBatchLoaded(ctx context.Context, e redis.BatchLoadedEvent) error
}

// Runner loads one batch in process: stage, calendar, dimensions, facts.
type Runner struct {
	Logger   *zap.Logger
	Store    warehouse.Store
	Stager   *staging.Stager
	Mirror   Mirror   // optional
	Notifier Notifier // optional

	CalendarStart time.Time
	CalendarEnd   time.Time

	// Pool runs the dimension loads. Nil means one worker per dimension.
	Pool pond.Pool
}

// Report describes a finished load.
type Report struct {
	BatchDate     time.Time                                `json:"batchDate"`
	SourceURI     string                                   `json:"sourceUri"`
	StagedRows    int                                      `json:"stagedRows"`
	CalendarAdded int                                      `json:"calendarAdded"`
	Dimensions    map[entities.Dimension]historize.Result `json:"dimensions"`
	Facts         resolve.Stats                            `json:"facts"`
	MirroredRows  int                                      `json:"mirroredRows"`
	StageMs       map[string]float64                       `json:"stageMs"`
	DurationMs    float64                                  `json:"durationMs"`
}

// VersionsClosed sums the close-outs across dimensions.
func (r Report) VersionsClosed() int {
	n := 0
	for _, res := range r.Dimensions {
		n += res.Closed
	}
	return n
}

// VersionsAdded sums the inserted versions across dimensions.
func (r Report) VersionsAdded() int {
	n := 0
	for _, res := range r.Dimensions {
		n += res.Inserted
	}
	return n
}

// Batch is the load_batches row for the report.
func (r Report) Batch() models.Batch {
	detail, _ := json.Marshal(r.StageMs)
	return models.Batch{
		BatchDate:      r.BatchDate,
		SourceURI:      r.SourceURI,
		StagedRows:     r.StagedRows,
		FactRows:       r.Facts.Rows,
		VersionsClosed: r.VersionsClosed(),
		VersionsAdded:  r.VersionsAdded(),
		NullReferences: r.Facts.Nulls(),
		DurationMs:     r.DurationMs,
		Detail:         string(detail),
	}
}

// Event is the batch-loaded notification for the report.
func (r Report) Event(loadedAt time.Time) redis.BatchLoadedEvent {
	return redis.BatchLoadedEvent{
		BatchDate:      r.BatchDate.Format(time.DateOnly),
		SourceURI:      r.SourceURI,
		FactRows:       r.Facts.Rows,
		VersionsClosed: r.VersionsClosed(),
		VersionsAdded:  r.VersionsAdded(),
		NullReferences: r.Facts.Nulls(),
		LoadedAt:       loadedAt.UTC(),
	}
}

// Run loads the document at sourceURI as the batch of batchDate. A fatal error (malformed input
// or an integrity violation) is returned unwrapped enough for batcherr to classify it.
func (r *Runner) Run(ctx context.Context, sourceURI string, batchDate time.Time) (Report, error) {
	start := time.Now()
	today := historize.DateOf(batchDate)
	rep := Report{
		BatchDate: today,
		SourceURI: sourceURI,
		StageMs:   make(map[string]float64),
	}
	timed := func(name string, fn func() error) error {
		t := time.Now()
		err := fn()
		rep.StageMs[name] = float64(time.Since(t).Microseconds()) / 1000.0
		return err
	}

	var records []models.StagingRecord
	if err := timed("stage", func() error {
		var err error
		if records, err = r.Stager.Stage(ctx, sourceURI, today); err != nil {
			return err
		}
		return r.Store.ReplaceStaging(ctx, today, records)
	}); err != nil {
		return rep, fmt.Errorf("stage: %w", err)
	}
	rep.StagedRows = len(records)

	if err := timed("calendar", func() error {
		var err error
		rep.CalendarAdded, err = EnsureCalendar(ctx, r.Store, r.CalendarStart, r.CalendarEnd)
		return err
	}); err != nil {
		return rep, fmt.Errorf("calendar: %w", err)
	}

	if err := timed("dimensions", func() error {
		var err error
		rep.Dimensions, err = r.historizeAll(ctx, records, today)
		return err
	}); err != nil {
		return rep, err
	}

	var facts []models.FactRow
	if err := timed("facts", func() error {
		var err error
		facts, rep.Facts, err = ResolveFacts(ctx, r.Store, today)
		return err
	}); err != nil {
		return rep, fmt.Errorf("facts: %w", err)
	}

	if r.Mirror != nil {
		_ = timed("mirror", func() error {
			n, err := r.Mirror.MirrorFacts(ctx, today, facts)
			if err != nil {
				r.Logger.Warn("Mart mirror failed", zap.Time("batch_date", today), zap.Error(err))
				return err
			}
			rep.MirroredRows = n
			return nil
		})
	}

	rep.DurationMs = float64(time.Since(start).Microseconds()) / 1000.0
	if err := r.Store.RecordBatch(ctx, rep.Batch()); err != nil {
		return rep, fmt.Errorf("record batch: %w", err)
	}

	if r.Notifier != nil {
		if err := r.Notifier.PublishBatchLoaded(ctx, rep.Event(time.Now())); err != nil {
			r.Logger.Warn("Batch notification failed", zap.Time("batch_date", today), zap.Error(err))
		}
	}

	r.Logger.Info("Batch loaded",
		zap.Time("batch_date", today),
		zap.String("source", sourceURI),
		zap.Int("staged_rows", rep.StagedRows),
		zap.Int("fact_rows", rep.Facts.Rows),
		zap.Int("versions_closed", rep.VersionsClosed()),
		zap.Int("versions_added", rep.VersionsAdded()),
		zap.Int("null_references", rep.Facts.Nulls()),
		zap.Float64("duration_ms", rep.DurationMs),
	)
	return rep, nil
}

// historizeAll loads every dimension concurrently; each commits or rolls back on its own.
func (r *Runner) historizeAll(ctx context.Context, records []models.StagingRecord, today time.Time) (map[entities.Dimension]historize.Result, error) {
	pool := r.Pool
	if pool == nil {
		pool = pond.NewPool(len(entities.All()))
		defer pool.StopAndWait()
	}

	results := xsync.NewMap[entities.Dimension, historize.Result]()
	group := pool.NewGroupContext(ctx)
	groupCtx := group.Context()

	for _, dim := range entities.All() {
		group.SubmitErr(func() error {
			if groupCtx.Err() != nil {
				return groupCtx.Err()
			}
			res, err := HistorizeDimension(groupCtx, r.Store, dim, records, today)
			if err != nil {
				return err
			}
			results.Store(dim, res)
			return nil
		})
	}

	if err := group.Wait(); err != nil && !errors.Is(err, pond.ErrGroupStopped) {
		return nil, err
	}

	out := make(map[entities.Dimension]historize.Result, results.Size())
	results.Range(func(dim entities.Dimension, res historize.Result) bool {
		out[dim] = res
		return true
	})
	return out, nil
}
