package redis

import (
	"context"
	"encoding/json"
	"time"
)

const (
	// BatchLoadedChannel receives one message per loaded batch.
	BatchLoadedChannel = "salesdw:batch.loaded"
	// BatchStream keeps the recent batch history for late readers.
	BatchStream = "salesdw:batches"
)

// BatchLoadedEvent is the payload published after a batch commits.
type BatchLoadedEvent struct {
	BatchDate      string    `json:"batchDate"` // yyyy-mm-dd
	SourceURI      string    `json:"sourceUri"`
	FactRows       int       `json:"factRows"`
	VersionsClosed int       `json:"versionsClosed"`
	VersionsAdded  int       `json:"versionsAdded"`
	NullReferences int       `json:"nullReferences"`
	LoadedAt       time.Time `json:"loadedAt"`
}

// Marshal renders the event as the JSON published on BatchLoadedChannel.
func (e BatchLoadedEvent) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// PublishBatchLoaded announces a loaded batch on the channel and appends it to the stream.
// Both writes are best-effort.
func (c *Client) PublishBatchLoaded(ctx context.Context, e BatchLoadedEvent) error {
	payload, err := e.Marshal()
	if err != nil {
		return err
	}
	c.Publish(ctx, BatchLoadedChannel, payload)
	c.XAdd(ctx, BatchStream, map[string]any{
		"batch_date": e.BatchDate,
		"payload":    string(payload),
	})
	return nil
}
