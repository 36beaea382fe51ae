package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/canopy-network/salesdw/app/loader"
	"github.com/canopy-network/salesdw/pkg/db/memstore"
	"github.com/canopy-network/salesdw/pkg/logging"
	"github.com/canopy-network/salesdw/pkg/pipeline"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRootCmd() *cobra.Command {
	var (
		source    string
		batchDate string
		dryRun    bool
	)

	cmd := &cobra.Command{
		Use:          "runonce",
		Short:        "Load one sales export into the warehouse without Temporal",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := time.Parse(time.DateOnly, batchDate)
			if err != nil {
				return fmt.Errorf("invalid --date: %w", err)
			}

			logger, err := logging.New("runonce")
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			runner, closeFn, err := newRunner(cmd, logger, dryRun)
			if err != nil {
				return err
			}
			defer closeFn()

			rep, err := runner.Run(cmd.Context(), source, d)
			if err != nil {
				logger.Error("Load failed", zap.Error(err))
				return err
			}
			return writeJSON(rep)
		},
	}

	cmd.Flags().StringVar(&source, "source", os.Getenv("SOURCE_URI"), "Source document: path, http(s) URL or s3://bucket/key")
	cmd.Flags().StringVar(&batchDate, "date", time.Now().UTC().Format(time.DateOnly), "Batch date (UTC, YYYY-MM-DD)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Load into an in-memory warehouse and print the report")
	_ = cmd.MarkFlagRequired("source")
	return cmd
}

func newRunner(cmd *cobra.Command, logger *zap.Logger, dryRun bool) (*pipeline.Runner, func(), error) {
	calStart, calEnd := loader.CalendarRange()
	runner := &pipeline.Runner{
		Logger:        logger,
		CalendarStart: calStart,
		CalendarEnd:   calEnd,
	}

	if dryRun {
		stager, err := loader.NewStager(cmd.Context(), logger)
		if err != nil {
			return nil, nil, err
		}
		// Artifacts are write-once; a dry run must not claim the batch's keys.
		stager.Artifacts = nil
		runner.Store = memstore.New(logger)
		runner.Stager = stager
		return runner, func() {}, nil
	}

	deps, err := loader.Connect(cmd.Context(), logger, "runonce")
	if err != nil {
		return nil, nil, err
	}
	runner.Store = deps.Store
	runner.Stager = deps.Stager
	runner.Mirror = deps.Mirror()
	runner.Notifier = deps.Notifier()
	return runner, deps.Close, nil
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
