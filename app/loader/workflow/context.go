package workflow

import (
	"github.com/canopy-network/salesdw/app/loader/activity"
	"github.com/canopy-network/salesdw/pkg/temporal"
)

// Context holds the workflow context.
type Context struct {
	TemporalClient  *temporal.Client
	ActivityContext *activity.Context
}
