package loader

import (
	"context"
	"fmt"
	"time"

	"github.com/canopy-network/salesdw/pkg/calendar"
	"github.com/canopy-network/salesdw/pkg/db/clickhouse"
	"github.com/canopy-network/salesdw/pkg/db/mart"
	"github.com/canopy-network/salesdw/pkg/db/postgres"
	"github.com/canopy-network/salesdw/pkg/db/warehouse"
	"github.com/canopy-network/salesdw/pkg/pipeline"
	"github.com/canopy-network/salesdw/pkg/redis"
	"github.com/canopy-network/salesdw/pkg/staging"
	"github.com/canopy-network/salesdw/pkg/utils"
	"go.uber.org/zap"
)

// Deps are the connections a loader process opens once and shares between batches.
type Deps struct {
	Store  warehouse.Store
	Stager *staging.Stager
	Mart   *mart.DB     // nil unless MART_ENABLED
	Redis  *redis.Client // nil unless REDIS_ENABLED
}

// Connect opens the warehouse and, when enabled, the mart and Redis. component selects the
// connection pool sizing.
func Connect(ctx context.Context, logger *zap.Logger, component string) (*Deps, error) {
	store, err := warehouse.New(ctx, logger, utils.Env("WAREHOUSE_DB", "salesdw"), postgres.DefaultPoolConfig(component))
	if err != nil {
		return nil, fmt.Errorf("warehouse: %w", err)
	}
	deps := &Deps{Store: store}

	if deps.Stager, err = NewStager(ctx, logger); err != nil {
		deps.Close()
		return nil, err
	}

	if utils.EnvBool("MART_ENABLED", false) {
		m, err := mart.New(ctx, logger, utils.Env("MART_DB", "salesdw"), clickhouse.GetPoolConfigForComponent(component))
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("mart: %w", err)
		}
		deps.Mart = m
	}

	if utils.EnvBool("REDIS_ENABLED", false) {
		rc, err := redis.NewClient(ctx, logger)
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		deps.Redis = rc
	}
	return deps, nil
}

// NewStager builds the source fetcher and artifact writer from SOURCE_* / ARTIFACT_URI / S3_*.
func NewStager(ctx context.Context, logger *zap.Logger) (*staging.Stager, error) {
	s3Client, err := staging.NewS3Client(ctx, utils.Env("AWS_REGION", "us-east-1"), utils.Env("S3_ENDPOINT", ""))
	if err != nil {
		return nil, err
	}
	artifacts, err := staging.NewArtifactWriter(utils.Env("ARTIFACT_URI", ""), s3Client)
	if err != nil {
		return nil, fmt.Errorf("artifacts: %w", err)
	}
	return &staging.Stager{
		Logger:    logger,
		Fetcher:   staging.NewFetcher(s3Client),
		Artifacts: artifacts,
	}, nil
}

// Mirror returns the mart as a pipeline.Mirror, or nil when the mart is disabled.
func (d *Deps) Mirror() pipeline.Mirror {
	if d.Mart == nil {
		return nil
	}
	return d.Mart
}

// Notifier returns Redis as a pipeline.Notifier, or nil when Redis is disabled.
func (d *Deps) Notifier() pipeline.Notifier {
	if d.Redis == nil {
		return nil
	}
	return d.Redis
}

// CalendarRange returns the dim_date range from CALENDAR_START / CALENDAR_END.
func CalendarRange() (start, end time.Time) {
	return utils.EnvDate("CALENDAR_START", calendar.DefaultStart), utils.EnvDate("CALENDAR_END", calendar.DefaultEnd)
}

// Close releases every open connection.
func (d *Deps) Close() {
	if d.Store != nil {
		_ = d.Store.Close()
	}
	if d.Mart != nil {
		_ = d.Mart.Close()
	}
	if d.Redis != nil {
		_ = d.Redis.Close()
	}
}
