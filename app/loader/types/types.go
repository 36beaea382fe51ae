package types

import (
	"time"

	"github.com/canopy-network/salesdw/pkg/historize"
	"github.com/canopy-network/salesdw/pkg/resolve"
)

// LoadBatchInput starts the load of one source document as the batch of BatchDate.
type LoadBatchInput struct {
	SourceURI string    `json:"sourceUri"`
	BatchDate time.Time `json:"batchDate"`
}

// LoadBatchOutput summarizes a committed batch.
type LoadBatchOutput struct {
	BatchDate      time.Time          `json:"batchDate"`
	StagedRows     int                `json:"stagedRows"`
	CalendarAdded  int                `json:"calendarAdded"`
	Dimensions     []historize.Result `json:"dimensions"`
	Facts          resolve.Stats      `json:"facts"`
	MirroredRows   int                `json:"mirroredRows"`
	VersionsClosed int                `json:"versionsClosed"`
	VersionsAdded  int                `json:"versionsAdded"`
}

// ActivityBatchInput identifies the batch an activity works on.
type ActivityBatchInput struct {
	BatchDate time.Time `json:"batchDate"`
}

// ActivityStageOutput is returned by StageSource.
type ActivityStageOutput struct {
	StagedRows int     `json:"stagedRows"`
	DurationMs float64 `json:"durationMs"`
}

// ActivityCalendarOutput is returned by EnsureCalendar.
type ActivityCalendarOutput struct {
	Added      int     `json:"added"`
	DurationMs float64 `json:"durationMs"`
}

// ActivityHistorizeInput names the dimension to load from the staged rows of BatchDate.
type ActivityHistorizeInput struct {
	BatchDate time.Time `json:"batchDate"`
	Dimension string    `json:"dimension"`
}

// ActivityHistorizeOutput is returned by HistorizeDimension.
type ActivityHistorizeOutput struct {
	Result historize.Result `json:"result"`
}

// ActivityResolveOutput is returned by ResolveFacts.
type ActivityResolveOutput struct {
	Stats      resolve.Stats `json:"stats"`
	DurationMs float64       `json:"durationMs"`
}

// ActivityMirrorOutput is returned by MirrorFacts.
type ActivityMirrorOutput struct {
	Rows       int     `json:"rows"`
	Skipped    bool    `json:"skipped"`
	DurationMs float64 `json:"durationMs"`
}

// ActivityRecordBatchInput carries what RecordBatch and PublishBatchLoaded persist.
type ActivityRecordBatchInput struct {
	BatchDate      time.Time          `json:"batchDate"`
	SourceURI      string             `json:"sourceUri"`
	StagedRows     int                `json:"stagedRows"`
	FactRows       int                `json:"factRows"`
	VersionsClosed int                `json:"versionsClosed"`
	VersionsAdded  int                `json:"versionsAdded"`
	NullReferences int                `json:"nullReferences"`
	DurationMs     float64            `json:"durationMs"`
	Timings        map[string]float64 `json:"timings"`
}
