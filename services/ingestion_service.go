package services

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"docqa/models"
)

// IngestionService turns documents into persisted vector records:
// chunk, embed the chunks in one batched call, build deterministic record
// ids, upsert in bounded batches. Documents are processed sequentially and
// ingestion is not transactional: a failure aborts the call but leaves
// records written for earlier documents in place.
type IngestionService struct {
	chunker     *Chunker
	embedder    Embedder
	index       VectorIndex
	retry       RetryPolicy
	deleteStale bool
}

// NewIngestionService wires the pipeline's collaborators.
func NewIngestionService(chunker *Chunker, embedder Embedder, index VectorIndex, retry RetryPolicy, deleteStale bool) *IngestionService {
	return &IngestionService{
		chunker:     chunker,
		embedder:    embedder,
		index:       index,
		retry:       retry,
		deleteStale: deleteStale,
	}
}

// Ingest persists all documents and returns the number of chunks written.
func (s *IngestionService) Ingest(ctx context.Context, documents []models.Document) (int, error) {
	if err := s.retry.Do(ctx, s.index.EnsureCollection); err != nil {
		return 0, err
	}

	jobID := uuid.New().String()
	totalChunks := 0
	for _, doc := range documents {
		n, err := s.ingestDocument(ctx, jobID, doc)
		if err != nil {
			return totalChunks, fmt.Errorf("ingestion of %q failed: %w", doc.Source, err)
		}
		totalChunks += n
	}
	log.Printf("INGEST[%s]: done, %d documents, %d chunks", jobID, len(documents), totalChunks)
	return totalChunks, nil
}

func (s *IngestionService) ingestDocument(ctx context.Context, jobID string, doc models.Document) (int, error) {
	log.Printf("INGEST[%s]: processing document %q", jobID, doc.Source)

	chunks, err := s.chunker.Split(doc.Source, doc.Text)
	if err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		log.Printf("INGEST[%s]: document %q is empty, nothing to do", jobID, doc.Source)
		return 0, nil
	}
	log.Printf("INGEST[%s]: split %q into %d chunks", jobID, doc.Source, len(chunks))

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	var vectors [][]float32
	err = s.retry.Do(ctx, func(ctx context.Context) error {
		var embedErr error
		vectors, embedErr = s.embedder.EmbedMany(ctx, texts)
		return embedErr
	})
	if err != nil {
		return 0, err
	}

	records := make([]models.VectorRecord, len(chunks))
	for i, chunk := range chunks {
		records[i] = models.NewVectorRecord(chunk, vectors[i])
		records[i].Hash = doc.Hash
	}

	// Re-ingesting overwrites matching ids, but a document that shrank
	// would leave orphan records behind; dropping its old records first
	// keeps the collection consistent with the current content.
	if s.deleteStale {
		err = s.retry.Do(ctx, func(ctx context.Context) error {
			return s.index.DeleteBySource(ctx, doc.Source)
		})
		if err != nil {
			return 0, err
		}
	}

	err = s.retry.Do(ctx, func(ctx context.Context) error {
		return s.index.Upsert(ctx, records)
	})
	if err != nil {
		return 0, err
	}
	log.Printf("INGEST[%s]: persisted %d records for %q", jobID, len(records), doc.Source)
	return len(records), nil
}
