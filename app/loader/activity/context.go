package activity

import (
	"time"

	"github.com/canopy-network/salesdw/pkg/batcherr"
	"github.com/canopy-network/salesdw/pkg/db/warehouse"
	"github.com/canopy-network/salesdw/pkg/pipeline"
	"github.com/canopy-network/salesdw/pkg/staging"
	"go.temporal.io/sdk/temporal"
	"go.uber.org/zap"
)

type Context struct {
	Logger *zap.Logger
	// Warehouse of record
	Store  warehouse.Store
	Stager *staging.Stager
	// Optional analytics mart and batch notifications
	Mirror   pipeline.Mirror
	Notifier pipeline.Notifier
	// Calendar range kept in dim_date
	CalendarStart time.Time
	CalendarEnd   time.Time
}

// nonRetryable marks malformed input and integrity violations so Temporal stops retrying them.
// Any other error is returned as is and retried under the activity's policy.
func nonRetryable(err error) error {
	if err == nil || !batcherr.IsFatal(err) {
		return err
	}
	return temporal.NewNonRetryableApplicationError(err.Error(), batcherr.Type(err), err)
}

func sinceMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
