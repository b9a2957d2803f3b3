package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"
	"github.com/sethvargo/go-retry"

	"docqa/models"
)

// VectorIndex is the gateway to the remote similarity-search service. One
// gateway owns one named collection.
type VectorIndex interface {
	EnsureCollection(ctx context.Context) error
	Upsert(ctx context.Context, records []models.VectorRecord) error
	Query(ctx context.Context, vector []float32, topK int) ([]models.QueryMatch, error)
	DeleteBySource(ctx context.Context, source string) error
	Count(ctx context.Context) (int, error)
	IndexState(ctx context.Context) (map[string]string, error)
}

// indexBackend is the slice of the remote service the gateway drives:
// listing and creating collections. chromaBackend implements it on a live
// Chroma server.
type indexBackend interface {
	ListCollections(ctx context.Context) ([]backendCollection, error)
	CreateCollection(ctx context.Context, name string, dimension int) (backendCollection, error)
}

// backendCollection is one live collection in the remote service.
type backendCollection interface {
	Name() string
	Count(ctx context.Context) (int, error)
	Upsert(ctx context.Context, records []models.VectorRecord) error
	Query(ctx context.Context, vector []float32, topK int) ([]models.QueryMatch, error)
	DeleteBySource(ctx context.Context, source string) error
	IndexState(ctx context.Context) (map[string]string, error)
}

// ChromaGatewayConfig carries the collection identity and operational
// bounds for the gateway.
type ChromaGatewayConfig struct {
	CollectionName string
	Dimension      int
	BatchSize      int
	PollInterval   time.Duration
	MaxWait        time.Duration
}

// ChromaGateway implements VectorIndex. Collection lifecycle, batching,
// readiness and dimension checks live here; the wire details live in the
// backend.
type ChromaGateway struct {
	backend    indexBackend
	collection backendCollection
	cfg        ChromaGatewayConfig
}

// NewChromaGateway wraps an existing Chroma client. EnsureCollection must
// be called before Upsert or Query.
func NewChromaGateway(client chromago.Client, cfg ChromaGatewayConfig) *ChromaGateway {
	return &ChromaGateway{backend: &chromaBackend{client: client}, cfg: cfg}
}

// EnsureCollection makes the named collection usable. If it already exists
// the call is a no-op; otherwise it is created with the configured
// dimension and cosine metric recorded in its metadata, then polled until
// it answers a count request. The poll is bounded by MaxWait.
func (g *ChromaGateway) EnsureCollection(ctx context.Context) error {
	if g.collection != nil {
		return nil
	}

	log.Printf("GATEWAY: checking collection %q", g.cfg.CollectionName)
	collections, err := g.backend.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("failed to list collections: %w: %w", models.ErrTransient, err)
	}
	for _, col := range collections {
		if col.Name() == g.cfg.CollectionName {
			log.Printf("GATEWAY: collection %q already exists", g.cfg.CollectionName)
			g.collection = col
			return nil
		}
	}

	log.Printf("GATEWAY: creating collection %q (dimension=%d, metric=cosine)", g.cfg.CollectionName, g.cfg.Dimension)
	col, err := g.backend.CreateCollection(ctx, g.cfg.CollectionName, g.cfg.Dimension)
	if err != nil {
		return fmt.Errorf("failed to create collection %q: %w", g.cfg.CollectionName, err)
	}

	// A freshly created collection may need backend initialization before
	// it accepts traffic. Poll until it answers instead of sleeping a
	// fixed delay.
	b := retry.WithMaxDuration(g.cfg.MaxWait, retry.NewConstant(g.cfg.PollInterval))
	err = retry.Do(ctx, b, func(ctx context.Context) error {
		if _, countErr := col.Count(ctx); countErr != nil {
			return retry.RetryableError(countErr)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("collection %q not ready after %s: %w", g.cfg.CollectionName, g.cfg.MaxWait, err)
	}

	log.Printf("GATEWAY: collection %q ready", g.cfg.CollectionName)
	g.collection = col
	return nil
}

// Upsert writes records in batches of at most BatchSize. A failing batch
// aborts the remaining ones; records already written stay written.
func (g *ChromaGateway) Upsert(ctx context.Context, records []models.VectorRecord) error {
	if g.collection == nil {
		return fmt.Errorf("collection %q not initialized", g.cfg.CollectionName)
	}
	for _, r := range records {
		if len(r.Values) != g.cfg.Dimension {
			return fmt.Errorf("record %s: %w", r.ID, &models.DimensionMismatchError{Want: g.cfg.Dimension, Got: len(r.Values)})
		}
	}

	for _, batch := range batchRecords(records, g.cfg.BatchSize) {
		if err := g.collection.Upsert(ctx, batch); err != nil {
			return fmt.Errorf("failed to upsert batch of %d records: %w: %w", len(batch), models.ErrTransient, err)
		}
		log.Printf("GATEWAY: upserted batch of %d records", len(batch))
	}
	return nil
}

// Query returns up to topK matches ordered by descending similarity score.
func (g *ChromaGateway) Query(ctx context.Context, vector []float32, topK int) ([]models.QueryMatch, error) {
	if g.collection == nil {
		return nil, fmt.Errorf("collection %q not initialized", g.cfg.CollectionName)
	}
	if len(vector) != g.cfg.Dimension {
		return nil, &models.DimensionMismatchError{Want: g.cfg.Dimension, Got: len(vector)}
	}

	matches, err := g.collection.Query(ctx, vector, topK)
	if err != nil {
		return nil, fmt.Errorf("similarity query failed: %w: %w", models.ErrTransient, err)
	}
	return matches, nil
}

// DeleteBySource removes every record persisted for the given source
// identifier.
func (g *ChromaGateway) DeleteBySource(ctx context.Context, source string) error {
	if g.collection == nil {
		return fmt.Errorf("collection %q not initialized", g.cfg.CollectionName)
	}
	if err := g.collection.DeleteBySource(ctx, source); err != nil {
		return fmt.Errorf("failed to delete records for %q: %w: %w", source, models.ErrTransient, err)
	}
	return nil
}

// Count reports how many records the collection holds.
func (g *ChromaGateway) Count(ctx context.Context) (int, error) {
	if g.collection == nil {
		return 0, fmt.Errorf("collection %q not initialized", g.cfg.CollectionName)
	}
	count, err := g.collection.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w: %w", models.ErrTransient, err)
	}
	return count, nil
}

// IndexState maps each ingested source to the content hash it was last
// ingested with. Sources ingested without a hash map to the empty string.
func (g *ChromaGateway) IndexState(ctx context.Context) (map[string]string, error) {
	if g.collection == nil {
		return nil, fmt.Errorf("collection %q not initialized", g.cfg.CollectionName)
	}
	state, err := g.collection.IndexState(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read index state: %w: %w", models.ErrTransient, err)
	}
	return state, nil
}

// chromaBackend adapts the Chroma v2 client to the backend seam.
type chromaBackend struct {
	client chromago.Client
}

func (b *chromaBackend) ListCollections(ctx context.Context) ([]backendCollection, error) {
	cols, err := b.client.ListCollections(ctx)
	if err != nil {
		return nil, err
	}
	wrapped := make([]backendCollection, len(cols))
	for i, col := range cols {
		wrapped[i] = &chromaCollection{col: col}
	}
	return wrapped, nil
}

func (b *chromaBackend) CreateCollection(ctx context.Context, name string, dimension int) (backendCollection, error) {
	col, err := b.client.CreateCollection(ctx, name,
		chromago.WithCollectionMetadataCreate(
			chromago.NewMetadata(
				chromago.NewIntAttribute("dimension", int64(dimension)),
				chromago.NewStringAttribute("metric", "cosine"),
			),
		),
	)
	if err != nil {
		return nil, err
	}
	return &chromaCollection{col: col}, nil
}

// chromaCollection translates between the domain records and the Chroma
// collection API.
type chromaCollection struct {
	col chromago.Collection
}

func (c *chromaCollection) Name() string {
	return c.col.Name()
}

func (c *chromaCollection) Count(ctx context.Context) (int, error) {
	count, err := c.col.Count(ctx)
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

func (c *chromaCollection) Upsert(ctx context.Context, records []models.VectorRecord) error {
	ids := make([]chromago.DocumentID, len(records))
	texts := make([]string, len(records))
	embs := make([]embeddings.Embedding, len(records))
	metas := make([]chromago.DocumentMetadata, len(records))
	for i, r := range records {
		ids[i] = chromago.DocumentID(r.ID)
		texts[i] = r.Text
		embs[i] = embeddings.NewEmbeddingFromFloat32(r.Values)
		metas[i] = chromago.NewDocumentMetadata(
			chromago.NewStringAttribute("source", r.Source),
			chromago.NewIntAttribute("chunk_index", int64(r.Index)),
			chromago.NewStringAttribute("loc", r.Loc),
			chromago.NewStringAttribute("hash", r.Hash),
		)
	}
	return c.col.Upsert(ctx,
		chromago.WithIDs(ids...),
		chromago.WithTexts(texts...),
		chromago.WithEmbeddings(embs...),
		chromago.WithMetadatas(metas...),
	)
}

func (c *chromaCollection) Query(ctx context.Context, vector []float32, topK int) ([]models.QueryMatch, error) {
	results, err := c.col.Query(ctx,
		chromago.WithQueryEmbeddings(embeddings.NewEmbeddingFromFloat32(vector)),
		chromago.WithNResults(topK),
	)
	if err != nil {
		return nil, err
	}

	docGroups := results.GetDocumentsGroups()
	metaGroups := results.GetMetadatasGroups()
	distGroups := results.GetDistancesGroups()
	if len(docGroups) == 0 {
		return nil, nil
	}

	matches := make([]models.QueryMatch, 0, len(docGroups[0]))
	for i, doc := range docGroups[0] {
		match := models.QueryMatch{Text: doc.ContentString()}
		if len(distGroups) > 0 && i < len(distGroups[0]) {
			// Chroma reports cosine distance; similarity is its complement.
			match.Score = 1 - float32(distGroups[0][i])
		}
		if len(metaGroups) > 0 && i < len(metaGroups[0]) {
			match.Metadata = decodeMetadata(metaGroups[0][i])
			if source, ok := match.Metadata["source"].(string); ok {
				if idx, ok := match.Metadata["chunk_index"].(float64); ok {
					match.ID = models.RecordID(source, int(idx))
				}
			}
		}
		matches = append(matches, match)
	}
	return matches, nil
}

func (c *chromaCollection) DeleteBySource(ctx context.Context, source string) error {
	where := chromago.EqString("source", source)
	return c.col.Delete(ctx, chromago.WithWhereDelete(where))
}

func (c *chromaCollection) IndexState(ctx context.Context) (map[string]string, error) {
	results, err := c.col.Get(ctx)
	if err != nil {
		return nil, err
	}

	state := make(map[string]string)
	for _, meta := range results.GetMetadatas() {
		m := decodeMetadata(meta)
		source, ok := m["source"].(string)
		if !ok {
			continue
		}
		if _, seen := state[source]; seen {
			continue
		}
		hash, _ := m["hash"].(string)
		state[source] = hash
	}
	return state, nil
}

// decodeMetadata converts a Chroma metadata value into a plain map via a
// JSON round-trip; DocumentMetadata exposes no direct map accessor.
func decodeMetadata(meta chromago.DocumentMetadata) map[string]any {
	if meta == nil {
		return nil
	}
	jsonBytes, err := json.Marshal(meta)
	if err != nil {
		log.Printf("GATEWAY: could not marshal metadata: %v", err)
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(jsonBytes, &m); err != nil {
		log.Printf("GATEWAY: could not unmarshal metadata: %v", err)
		return nil
	}
	return m
}

// batchRecords splits records into consecutive batches of at most size
// elements, preserving order.
func batchRecords(records []models.VectorRecord, size int) [][]models.VectorRecord {
	if size <= 0 || len(records) == 0 {
		return nil
	}
	batches := make([][]models.VectorRecord, 0, (len(records)+size-1)/size)
	for start := 0; start < len(records); start += size {
		end := start + size
		if end > len(records) {
			end = len(records)
		}
		batches = append(batches, records[start:end])
	}
	return batches
}
