package redis

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBatchLoadedEventPayload(t *testing.T) {
	e := BatchLoadedEvent{
		BatchDate:      "2022-03-01",
		SourceURI:      "s3://sales-data-pipeline/raw_sales2.csv",
		FactRows:       2823,
		VersionsClosed: 4,
		VersionsAdded:  130,
		LoadedAt:       time.Date(2022, time.March, 1, 6, 0, 0, 0, time.UTC),
	}
	payload, err := e.Marshal()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(payload, &decoded))
	require.Equal(t, "2022-03-01", decoded["batchDate"])
	require.EqualValues(t, 2823, decoded["factRows"])
	require.Equal(t, "2022-03-01T06:00:00Z", decoded["loadedAt"])
}
