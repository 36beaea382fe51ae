package loader

import (
	"context"
	"time"

	"github.com/canopy-network/salesdw/app/loader/activity"
	"github.com/canopy-network/salesdw/app/loader/workflow"
	"github.com/canopy-network/salesdw/pkg/logging"
	"github.com/canopy-network/salesdw/pkg/temporal"
	"go.temporal.io/sdk/worker"
	temporalworkflow "go.temporal.io/sdk/workflow"
	"go.uber.org/zap"
)

type App struct {
	Worker         worker.Worker
	TemporalClient *temporal.Client
	Deps           *Deps
	Logger         *zap.Logger
}

// Start starts the worker and blocks until the context is canceled.
func (a *App) Start(ctx context.Context) {
	if err := a.Worker.Start(); err != nil {
		a.Logger.Fatal("Unable to start worker", zap.Error(err))
	}
	<-ctx.Done()
	a.Stop()
}

// Stop stops the worker and releases the connections.
func (a *App) Stop() {
	a.Worker.Stop()
	a.TemporalClient.Close()
	a.Deps.Close()
	time.Sleep(200 * time.Millisecond)
	a.Logger.Info("さようなら!")
}

// Initialize connects the stores and registers the load workflow on the loader queue.
func Initialize(ctx context.Context) *App {
	logger, err := logging.New("loader")
	if err != nil {
		// nothing else to do here, we'll just log to stderr
		panic(err)
	}

	deps, err := Connect(ctx, logger, "loader")
	if err != nil {
		logger.Fatal("Unable to connect stores", zap.Error(err))
	}

	temporalClient, err := temporal.NewClient(ctx, logger)
	if err != nil {
		logger.Fatal("Unable to establish temporal connection", zap.Error(err))
	}

	calStart, calEnd := CalendarRange()
	activityContext := &activity.Context{
		Logger:        logger,
		Store:         deps.Store,
		Stager:        deps.Stager,
		Mirror:        deps.Mirror(),
		Notifier:      deps.Notifier(),
		CalendarStart: calStart,
		CalendarEnd:   calEnd,
	}
	workflowContext := workflow.Context{
		TemporalClient:  temporalClient,
		ActivityContext: activityContext,
	}

	// One batch at a time is the common case. Loads of several batch dates may overlap; the
	// warehouse serializes them per dimension.
	wkr := worker.New(
		temporalClient.TClient,
		temporalClient.LoaderQueue,
		worker.Options{
			MaxConcurrentWorkflowTaskPollers:       2,
			MaxConcurrentActivityTaskPollers:       4,
			MaxConcurrentActivityExecutionSize:     16,
			MaxConcurrentWorkflowTaskExecutionSize: 16,
			WorkerStopTimeout:                      1 * time.Minute,
		},
	)

	wkr.RegisterWorkflowWithOptions(
		workflowContext.LoadBatchWorkflow,
		temporalworkflow.RegisterOptions{Name: workflow.LoadBatchWorkflowName},
	)
	wkr.RegisterActivity(activityContext.StageSource)
	wkr.RegisterActivity(activityContext.EnsureCalendar)
	wkr.RegisterActivity(activityContext.HistorizeDimension)
	wkr.RegisterActivity(activityContext.ResolveFacts)
	wkr.RegisterActivity(activityContext.MirrorFacts)
	wkr.RegisterActivity(activityContext.RecordBatch)
	wkr.RegisterActivity(activityContext.PublishBatchLoaded)

	logger.Info("Loader worker ready",
		zap.String("queue", temporalClient.LoaderQueue),
		zap.String("warehouse", deps.Store.DatabaseName()),
		zap.Bool("mart", deps.Mart != nil),
		zap.Bool("redis", deps.Redis != nil),
	)

	return &App{
		Worker:         wkr,
		TemporalClient: temporalClient,
		Deps:           deps,
		Logger:         logger,
	}
}
