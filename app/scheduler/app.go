package scheduler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/canopy-network/salesdw/app/loader/types"
	"github.com/canopy-network/salesdw/app/loader/workflow"
	"github.com/canopy-network/salesdw/pkg/batcherr"
	"github.com/canopy-network/salesdw/pkg/historize"
	"github.com/canopy-network/salesdw/pkg/logging"
	"github.com/canopy-network/salesdw/pkg/temporal"
	"github.com/canopy-network/salesdw/pkg/utils"
	"github.com/robfig/cron/v3"
	"go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	sdktemporal "go.temporal.io/sdk/temporal"
	"go.uber.org/zap"
)

// Starter is the part of the Temporal client used to start loads.
type Starter interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error)
}

// App starts one LoadBatchWorkflow per batch date, on a cron schedule or on request.
type App struct {
	TemporalClient *temporal.Client
	Starter        Starter

	// SourceTemplate is the source URI of a batch; {date} and {yyyymmdd} are replaced with the
	// batch date.
	SourceTemplate string

	// Cron is the scheduler that triggers the daily load, according to CronSpec.
	Cron     *cron.Cron
	CronSpec string

	Logger *zap.Logger
	Server *http.Server

	// Now returns the current time; the batch date of a scheduled run is its UTC day.
	Now func() time.Time
}

// Initialize initializes the App.
func Initialize(ctx context.Context) (*App, error) {
	logger, err := logging.New("scheduler")
	if err != nil {
		// nothing else to do here, we'll just log to stderr
		panic(err)
	}

	temporalClient, err := temporal.NewClient(ctx, logger)
	if err != nil {
		logger.Fatal("Unable to establish temporal connection", zap.Error(err))
	}

	app := &App{
		TemporalClient: temporalClient,
		Starter:        temporalClient.TClient,
		SourceTemplate: utils.Env("SOURCE_URI", ""),
		CronSpec:       utils.Env("LOAD_CRON", "0 0 2 * * *"),
		Logger:         logger,
		Now:            time.Now,
	}
	if app.SourceTemplate == "" {
		logger.Fatal("SOURCE_URI environment variable is required")
	}

	if err := app.SetupScheduler(ctx, cron.DefaultLogger, app.CronSpec); err != nil {
		return nil, err
	}
	return app, nil
}

// SourceFor returns the source URI of the batch of batchDate.
func (a *App) SourceFor(batchDate time.Time) string {
	r := strings.NewReplacer(
		"{date}", batchDate.Format(time.DateOnly),
		"{yyyymmdd}", batchDate.Format("20060102"),
	)
	return r.Replace(a.SourceTemplate)
}

// Trigger starts the load of batchDate. An empty sourceURI uses SourceTemplate. A load already
// running for the date is not an error; its IDs are returned.
func (a *App) Trigger(ctx context.Context, batchDate time.Time, sourceURI string) (workflowID, runID string, err error) {
	batchDate = historize.DateOf(batchDate)
	if sourceURI == "" {
		sourceURI = a.SourceFor(batchDate)
	}
	workflowID = a.TemporalClient.GetLoadWorkflowID(batchDate)

	options := client.StartWorkflowOptions{
		ID:                    workflowID,
		TaskQueue:             a.TemporalClient.LoaderQueue,
		WorkflowIDReusePolicy: enums.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
		RetryPolicy: &sdktemporal.RetryPolicy{
			InitialInterval:    time.Minute,
			BackoffCoefficient: 2.0,
			MaximumInterval:    30 * time.Minute,
			MaximumAttempts:    3,
			NonRetryableErrorTypes: []string{
				batcherr.TypeMalformedInput, batcherr.TypeIntegrityViolation,
			},
		},
	}

	in := types.LoadBatchInput{SourceURI: sourceURI, BatchDate: batchDate}
	run, err := a.Starter.ExecuteWorkflow(ctx, options, workflow.LoadBatchWorkflowName, in)
	if err != nil {
		var alreadyStarted *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &alreadyStarted) {
			a.Logger.Info("Load already running", zap.String("workflow_id", workflowID))
			return workflowID, alreadyStarted.RunId, nil
		}
		return workflowID, "", fmt.Errorf("start %s: %w", workflowID, err)
	}

	a.Logger.Info("Load started",
		zap.String("workflow_id", run.GetID()),
		zap.String("run_id", run.GetRunID()),
		zap.String("source", sourceURI),
	)
	return run.GetID(), run.GetRunID(), nil
}

// SetupScheduler sets up the cron scheduler.
func (a *App) SetupScheduler(ctx context.Context, logger cron.Logger, cronSpec string) error {
	// Seconds field, optional
	a.Cron = cron.New(cron.WithSeconds(), cron.WithLocation(time.UTC), cron.WithChain(cron.Recover(logger)))

	_, err := a.Cron.AddFunc(cronSpec, func() {
		rctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if _, _, err := a.Trigger(rctx, a.Now(), ""); err != nil {
			logger.Error(err, "[scheduler] trigger failed")
		}
	})
	return err
}

// StartCron starts the cron scheduler.
func (a *App) StartCron() {
	a.Cron.Start()
	a.Logger.Info("[scheduler] Cron started", zap.String("cronSpec", a.CronSpec))
}

// StopCron stops the cron scheduler.
func (a *App) StopCron() {
	if a.Cron != nil {
		<-a.Cron.Stop().Done()
	}
}

// Ready reports whether Temporal answers health checks.
func (a *App) Ready(ctx context.Context) bool {
	if a.TemporalClient == nil || a.TemporalClient.TClient == nil {
		return false
	}
	_, err := a.TemporalClient.Health(ctx)
	return err == nil
}

// Start serves HTTP and blocks until the context is canceled.
func (a *App) Start(ctx context.Context) {
	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.Error("HTTP server stopped", zap.Error(err))
		}
	}()
	<-ctx.Done()
	_ = a.Server.Close()
	a.Logger.Info("[scheduler] shutting down…")
	a.StopCron()
	if a.TemporalClient != nil {
		a.TemporalClient.Close()
	}
	time.Sleep(200 * time.Millisecond)
	a.Logger.Info("さようなら!")
}
