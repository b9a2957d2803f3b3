package services

import (
	"context"
	"log"
	"strings"

	"docqa/models"
)

// QueryService answers a question by retrieving the most similar stored
// chunks and grounding a completion on them.
type QueryService struct {
	embedder  Embedder
	index     VectorIndex
	composer  *PromptComposer
	generator Generator
	topK      int
	retry     RetryPolicy
}

// NewQueryService wires the pipeline's collaborators.
func NewQueryService(embedder Embedder, index VectorIndex, composer *PromptComposer, generator Generator, topK int, retry RetryPolicy) *QueryService {
	return &QueryService{
		embedder:  embedder,
		index:     index,
		composer:  composer,
		generator: generator,
		topK:      topK,
		retry:     retry,
	}
}

// Answer runs the full query pipeline. It returns models.ErrNoResult when
// the collection has no matches for the question; it never reports success
// with empty context.
func (s *QueryService) Answer(ctx context.Context, question string) (*models.Answer, error) {
	log.Printf("SERVICE: answering question: %q", question)

	var vector []float32
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		var embedErr error
		vector, embedErr = s.embedder.Embed(ctx, question)
		return embedErr
	})
	if err != nil {
		return nil, err
	}

	var matches []models.QueryMatch
	err = s.retry.Do(ctx, func(ctx context.Context) error {
		var queryErr error
		matches, queryErr = s.index.Query(ctx, vector, s.topK)
		return queryErr
	})
	if err != nil {
		return nil, err
	}
	log.Printf("SERVICE: found %d matches", len(matches))
	if len(matches) == 0 {
		return nil, models.ErrNoResult
	}

	// Matches arrive in descending similarity order; the context keeps
	// that order, joined with single spaces.
	texts := make([]string, len(matches))
	for i, match := range matches {
		texts[i] = match.Text
	}
	supportingContext := strings.Join(texts, " ")

	prompt, err := s.composer.Compose(supportingContext, question)
	if err != nil {
		return nil, err
	}

	var answer string
	err = s.retry.Do(ctx, func(ctx context.Context) error {
		var genErr error
		answer, genErr = s.generator.Generate(ctx, prompt)
		return genErr
	})
	if err != nil {
		return nil, err
	}

	return &models.Answer{Text: answer, SupportingContext: supportingContext}, nil
}
