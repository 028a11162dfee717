package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/nyc-design/neil-logger/pkg/record"
)

func TestEntryFromRaw(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	batch := record.ErrorBatch{
		RunID:     "etl_20240301_120000",
		Timestamp: ts,
		Errors: []record.Record{{
			Timestamp: ts,
			Level:     record.Critical,
			Module:    "etl",
			Message:   "disk full",
			RunID:     "etl_20240301_120000",
		}},
	}

	// Stored documents carry the server-assigned _id ahead of the batch fields.
	oid := primitive.NewObjectID()
	raw, err := bson.Marshal(bson.D{
		{Key: "_id", Value: oid},
		{Key: "run_id", Value: batch.RunID},
		{Key: "errors", Value: batch.Errors},
		{Key: "timestamp", Value: batch.Timestamp},
	})
	require.NoError(t, err)

	e, err := entryFromRaw("error_logs", raw)
	require.NoError(t, err)
	assert.Equal(t, oid.Hex(), e.ID)
	assert.Equal(t, "error_logs", e.Collection)
	assert.Equal(t, "etl_20240301_120000", e.RunID)
	assert.True(t, e.Timestamp.Equal(ts))
	assert.Contains(t, string(e.Body), `"level":"CRITICAL"`)
	assert.Contains(t, string(e.Body), `"message":"disk full"`)
}

func TestEntryFromRawMissingFields(t *testing.T) {
	raw, err := bson.Marshal(bson.D{{Key: "_id", Value: "custom"}})
	require.NoError(t, err)

	e, err := entryFromRaw("run_logs", raw)
	require.NoError(t, err)
	assert.Equal(t, "custom", e.ID)
	assert.Empty(t, e.RunID)
	assert.True(t, e.Timestamp.IsZero())
}
