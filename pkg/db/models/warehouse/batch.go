package warehouse

import "time"

// Batch is the audit row written to load_batches once a batch has been loaded.
type Batch struct {
	BatchDate      time.Time `json:"batchDate"`
	SourceURI      string    `json:"sourceUri"`
	StagedRows     int       `json:"stagedRows"`
	FactRows       int       `json:"factRows"`
	VersionsClosed int       `json:"versionsClosed"`
	VersionsAdded  int       `json:"versionsAdded"`
	NullReferences int       `json:"nullReferences"`
	DurationMs     float64   `json:"durationMs"`
	Detail         string    `json:"detail"` // per-stage timings, JSON
}
