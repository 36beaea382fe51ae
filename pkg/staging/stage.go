package staging

import (
	"context"
	"fmt"
	"time"

	models "github.com/canopy-network/salesdw/pkg/db/models/warehouse"
	"go.uber.org/zap"
)

// Stager fetches a source document, keeps its artifacts and normalizes it.
type Stager struct {
	Logger    *zap.Logger
	Fetcher   *Fetcher
	Artifacts ArtifactWriter // optional
}

// Stage returns the staging records of the document at sourceURI. The raw artifact is kept
// even when the document turns out to be malformed; the transformed one only on success.
func (s *Stager) Stage(ctx context.Context, sourceURI string, batchDate time.Time) ([]models.StagingRecord, error) {
	raw, err := s.Fetcher.Fetch(ctx, sourceURI)
	if err != nil {
		return nil, err
	}
	if err := s.put(ctx, RawKey(batchDate), raw); err != nil {
		return nil, err
	}

	table, err := ReadTable(sourceURI, raw)
	if err != nil {
		return nil, err
	}
	records, err := Normalize(table)
	if err != nil {
		return nil, err
	}

	canonical, err := EncodeCSV(records)
	if err != nil {
		return nil, fmt.Errorf("encode transformed artifact: %w", err)
	}
	if err := s.put(ctx, TransformedKey(batchDate), canonical); err != nil {
		return nil, err
	}

	s.Logger.Info("Source staged",
		zap.String("source", sourceURI),
		zap.Time("batch_date", batchDate),
		zap.Int("bytes", len(raw)),
		zap.Int("records", len(records)),
	)
	return records, nil
}

func (s *Stager) put(ctx context.Context, key string, body []byte) error {
	if s.Artifacts == nil {
		return nil
	}
	written, err := s.Artifacts.Put(ctx, key, body)
	if err != nil {
		return fmt.Errorf("write artifact %s: %w", key, err)
	}
	if !written {
		s.Logger.Info("Artifact already exists, leaving it untouched", zap.String("key", key))
	}
	return nil
}
