package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/models"
)

func newIngestion(t *testing.T, index *fakeIndex, embedder *fakeEmbedder, deleteStale bool) *IngestionService {
	t.Helper()
	chunker, err := NewChunker(1000)
	require.NoError(t, err)
	policy := RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond}
	return NewIngestionService(chunker, embedder, index, policy, deleteStale)
}

func TestIngestSingleDocumentWritesDeterministicRecord(t *testing.T) {
	index := &fakeIndex{}
	svc := newIngestion(t, index, &fakeEmbedder{}, false)

	chunks, err := svc.Ingest(context.Background(), []models.Document{
		{Source: "doc1", Text: "A.B.C."},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, chunks)
	assert.Equal(t, 1, index.ensured)

	records := index.allRecords()
	require.Len(t, records, 1)
	assert.Equal(t, "doc1_0", records[0].ID)
	assert.Equal(t, "A.B.C.", records[0].Text)
	assert.Equal(t, "doc1", records[0].Source)
}

func TestIngestPairsChunksWithTheirVectors(t *testing.T) {
	index := &fakeIndex{}
	svc := newIngestion(t, index, &fakeEmbedder{}, false)

	_, err := svc.Ingest(context.Background(), []models.Document{
		{Source: "a", Text: "First document."},
		{Source: "b", Text: "Second document, a little longer."},
	})
	require.NoError(t, err)

	for _, record := range index.allRecords() {
		require.Len(t, record.Values, 3)
		// The fake embedder encodes the text length in the vector.
		assert.Equal(t, float32(len(record.Text)), record.Values[0], "record %s paired with wrong vector", record.ID)
	}
}

func TestIngestIsIdempotentPerRecordID(t *testing.T) {
	index := &fakeIndex{}
	svc := newIngestion(t, index, &fakeEmbedder{}, false)
	docs := []models.Document{{Source: "doc1", Text: "Same content both times."}}

	_, err := svc.Ingest(context.Background(), docs)
	require.NoError(t, err)
	_, err = svc.Ingest(context.Background(), docs)
	require.NoError(t, err)

	require.Len(t, index.upserted, 2)
	assert.Equal(t, index.upserted[0][0].ID, index.upserted[1][0].ID)
}

func TestIngestSkipsEmptyDocuments(t *testing.T) {
	index := &fakeIndex{}
	svc := newIngestion(t, index, &fakeEmbedder{}, false)

	chunks, err := svc.Ingest(context.Background(), []models.Document{
		{Source: "empty", Text: "   "},
	})
	require.NoError(t, err)
	assert.Zero(t, chunks)
	assert.Empty(t, index.upserted)
}

func TestIngestDeleteStaleFlag(t *testing.T) {
	t.Run("enabled deletes before upsert", func(t *testing.T) {
		index := &fakeIndex{}
		svc := newIngestion(t, index, &fakeEmbedder{}, true)
		_, err := svc.Ingest(context.Background(), []models.Document{{Source: "doc1", Text: "text"}})
		require.NoError(t, err)
		assert.Equal(t, []string{"doc1"}, index.deleted)
	})
	t.Run("disabled issues no delete", func(t *testing.T) {
		index := &fakeIndex{}
		svc := newIngestion(t, index, &fakeEmbedder{}, false)
		_, err := svc.Ingest(context.Background(), []models.Document{{Source: "doc1", Text: "text"}})
		require.NoError(t, err)
		assert.Empty(t, index.deleted)
	})
}

func TestIngestRetriesTransientEmbeddingFailures(t *testing.T) {
	index := &fakeIndex{}
	embedder := &fakeEmbedder{failFirst: 2, failWith: models.ErrTransient}
	svc := newIngestion(t, index, embedder, false)

	_, err := svc.Ingest(context.Background(), []models.Document{{Source: "doc1", Text: "text"}})
	require.NoError(t, err)
	assert.Equal(t, 3, embedder.calls)
}

func TestIngestRetriesTransientCollectionSetup(t *testing.T) {
	index := &fakeIndex{ensureFailFirst: 2, ensureFailWith: models.ErrTransient}
	svc := newIngestion(t, index, &fakeEmbedder{}, false)

	chunks, err := svc.Ingest(context.Background(), []models.Document{{Source: "doc1", Text: "text"}})
	require.NoError(t, err)
	assert.Equal(t, 1, chunks)
	assert.Equal(t, 3, index.ensureCalls())
}

func TestIngestCollectionSetupAuthFailureNotRetried(t *testing.T) {
	index := &fakeIndex{ensureFailFirst: 100, ensureFailWith: models.ErrAuthentication}
	svc := newIngestion(t, index, &fakeEmbedder{}, false)

	_, err := svc.Ingest(context.Background(), []models.Document{{Source: "doc1", Text: "text"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrAuthentication)
	assert.Equal(t, 1, index.ensureCalls())
}

func TestIngestAbortsOnPermanentFailure(t *testing.T) {
	index := &fakeIndex{}
	embedder := &fakeEmbedder{failFirst: 100, failWith: models.ErrAuthentication}
	svc := newIngestion(t, index, embedder, false)

	_, err := svc.Ingest(context.Background(), []models.Document{
		{Source: "doc1", Text: "first"},
		{Source: "doc2", Text: "second"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrAuthentication)
	assert.Equal(t, 1, embedder.calls, "authentication failures must not be retried")
	assert.Empty(t, index.upserted, "nothing persisted for the failing document")
}
