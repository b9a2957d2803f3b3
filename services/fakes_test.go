package services

import (
	"context"
	"fmt"
	"sync"

	"docqa/models"
)

// fakeEmbedder returns a deterministic 3-dimensional vector per text and
// can be primed to fail its first failFirst calls.
type fakeEmbedder struct {
	calls     int
	failFirst int
	failWith  error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := f.EmbedMany(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (f *fakeEmbedder) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.calls <= f.failFirst {
		return nil, f.failWith
	}
	vectors := make([][]float32, len(texts))
	for i, t := range texts {
		vectors[i] = []float32{float32(len(t)), float32(i), 1}
	}
	return vectors, nil
}

// fakeIndex records gateway traffic and serves canned matches. Accesses are
// mutex-guarded so it can be shared with a watcher goroutine.
type fakeIndex struct {
	mu              sync.Mutex
	ensured         int
	ensureFailFirst int
	ensureFailWith  error
	upserted        [][]models.VectorRecord
	deleted         []string
	matches         []models.QueryMatch
	queryCalls      int
	failFirst       int
	failWith        error
	state           map[string]string
}

func (f *fakeIndex) EnsureCollection(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensured++
	if f.ensured <= f.ensureFailFirst {
		return f.ensureFailWith
	}
	return nil
}

func (f *fakeIndex) Upsert(ctx context.Context, records []models.VectorRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserted = append(f.upserted, records)
	return nil
}

func (f *fakeIndex) Query(ctx context.Context, vector []float32, topK int) ([]models.QueryMatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queryCalls++
	if f.queryCalls <= f.failFirst {
		return nil, f.failWith
	}
	if topK < len(f.matches) {
		return f.matches[:topK], nil
	}
	return f.matches, nil
}

func (f *fakeIndex) DeleteBySource(ctx context.Context, source string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, source)
	return nil
}

func (f *fakeIndex) Count(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, batch := range f.upserted {
		total += len(batch)
	}
	return total, nil
}

func (f *fakeIndex) IndexState(ctx context.Context) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == nil {
		return map[string]string{}, nil
	}
	return f.state, nil
}

func (f *fakeIndex) allRecords() []models.VectorRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []models.VectorRecord
	for _, batch := range f.upserted {
		all = append(all, batch...)
	}
	return all
}

func (f *fakeIndex) ensureCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ensured
}

// fakeGenerator echoes a canned answer and remembers the prompt it saw.
type fakeGenerator struct {
	answer  string
	prompts []string
	err     error
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	if f.answer == "" {
		return fmt.Sprintf("answer to %d chars of prompt", len(prompt)), nil
	}
	return f.answer, nil
}
