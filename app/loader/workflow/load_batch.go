package workflow

import (
	"time"

	"github.com/canopy-network/salesdw/app/loader/types"
	"github.com/canopy-network/salesdw/pkg/db/entities"
	"github.com/canopy-network/salesdw/pkg/historize"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const LoadBatchWorkflowName = "LoadBatchWorkflow"

// LoadBatchWorkflow loads one source document as the batch of in.BatchDate:
//
//	stage -> calendar -> dimensions (in parallel) -> facts -> mart mirror -> record -> notify
//
// Malformed input and integrity violations fail the workflow without retry. Facts are only
// resolved once every dimension has committed, so a fact never references a version written by
// a later batch.
func (wc *Context) LoadBatchWorkflow(ctx workflow.Context, in types.LoadBatchInput) (types.LoadBatchOutput, error) {
	retry := &temporal.RetryPolicy{
		InitialInterval:    time.Second,
		BackoffCoefficient: 2.0,
		MaximumInterval:    time.Minute,
		MaximumAttempts:    5,
	}
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		RetryPolicy:         retry,
		TaskQueue:           workflow.GetInfo(ctx).TaskQueueName,
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	logger := workflow.GetLogger(ctx)
	started := workflow.Now(ctx)
	batchDate := historize.DateOf(in.BatchDate)
	in.BatchDate = batchDate
	batchIn := types.ActivityBatchInput{BatchDate: batchDate}
	out := types.LoadBatchOutput{BatchDate: batchDate}
	timings := make(map[string]float64)

	// 1. Stage the source document
	var stageOut types.ActivityStageOutput
	if err := workflow.ExecuteActivity(ctx, wc.ActivityContext.StageSource, in).Get(ctx, &stageOut); err != nil {
		return out, err
	}
	out.StagedRows = stageOut.StagedRows
	timings["stage_ms"] = stageOut.DurationMs

	// 2. Make sure every calendar day the facts may reference exists
	var calOut types.ActivityCalendarOutput
	if err := workflow.ExecuteActivity(ctx, wc.ActivityContext.EnsureCalendar).Get(ctx, &calOut); err != nil {
		return out, err
	}
	out.CalendarAdded = calOut.Added
	timings["calendar_ms"] = calOut.DurationMs

	// 3. Historize every dimension in parallel; each commits on its own
	dims := entities.All()
	futures := make([]workflow.Future, len(dims))
	for i, dim := range dims {
		futures[i] = workflow.ExecuteActivity(ctx, wc.ActivityContext.HistorizeDimension, types.ActivityHistorizeInput{
			BatchDate: batchDate,
			Dimension: dim.String(),
		})
	}
	var firstErr error
	for i, f := range futures {
		var dimOut types.ActivityHistorizeOutput
		if err := f.Get(ctx, &dimOut); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		out.Dimensions = append(out.Dimensions, dimOut.Result)
		out.VersionsClosed += dimOut.Result.Closed
		out.VersionsAdded += dimOut.Result.Inserted
		timings["historize_"+dims[i].String()+"_ms"] = dimOut.Result.DurationMs
	}
	if firstErr != nil {
		return out, firstErr
	}

	// 4. Resolve facts against the committed dimensions
	var resolveOut types.ActivityResolveOutput
	if err := workflow.ExecuteActivity(ctx, wc.ActivityContext.ResolveFacts, batchIn).Get(ctx, &resolveOut); err != nil {
		return out, err
	}
	out.Facts = resolveOut.Stats
	timings["facts_ms"] = resolveOut.DurationMs

	// 5. Mirror into the mart; the warehouse stays the system of record
	mirrorCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{InitialInterval: time.Second, BackoffCoefficient: 2.0, MaximumAttempts: 3},
		TaskQueue:           ao.TaskQueue,
	})
	var mirrorOut types.ActivityMirrorOutput
	if err := workflow.ExecuteActivity(mirrorCtx, wc.ActivityContext.MirrorFacts, batchIn).Get(ctx, &mirrorOut); err != nil {
		logger.Warn("Mart mirror failed", "batchDate", batchDate, "error", err)
	} else {
		out.MirroredRows = mirrorOut.Rows
		timings["mirror_ms"] = mirrorOut.DurationMs
	}

	// 6. Record the batch and announce it
	recordIn := types.ActivityRecordBatchInput{
		BatchDate:      batchDate,
		SourceURI:      in.SourceURI,
		StagedRows:     out.StagedRows,
		FactRows:       out.Facts.Rows,
		VersionsClosed: out.VersionsClosed,
		VersionsAdded:  out.VersionsAdded,
		NullReferences: out.Facts.Nulls(),
		DurationMs:     float64(workflow.Now(ctx).Sub(started).Microseconds()) / 1000.0,
		Timings:        timings,
	}
	if err := workflow.ExecuteActivity(ctx, wc.ActivityContext.RecordBatch, recordIn).Get(ctx, nil); err != nil {
		return out, err
	}
	if err := workflow.ExecuteActivity(ctx, wc.ActivityContext.PublishBatchLoaded, recordIn).Get(ctx, nil); err != nil {
		logger.Warn("Batch notification failed", "batchDate", batchDate, "error", err)
	}

	return out, nil
}
