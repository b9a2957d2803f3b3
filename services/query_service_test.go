package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/models"
)

func newQuery(index *fakeIndex, embedder *fakeEmbedder, generator *fakeGenerator) *QueryService {
	policy := RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond}
	return NewQueryService(embedder, index, NewPromptComposer(), generator, 10, policy)
}

func TestAnswerGroundsGenerationOnRetrievedContext(t *testing.T) {
	index := &fakeIndex{matches: []models.QueryMatch{
		{ID: "doc1_0", Score: 0.92, Text: "Sprinklers are inspected monthly."},
		{ID: "doc2_4", Score: 0.81, Text: "Extinguishers sit by every exit."},
		{ID: "doc1_7", Score: 0.66, Text: "Alarms are tested on Fridays."},
	}}
	generator := &fakeGenerator{answer: "Monthly."}
	svc := newQuery(index, &fakeEmbedder{}, generator)

	answer, err := svc.Answer(context.Background(), "How often are sprinklers inspected?")
	require.NoError(t, err)

	// Context joins match texts with single spaces, best match first.
	wantContext := "Sprinklers are inspected monthly. Extinguishers sit by every exit. Alarms are tested on Fridays."
	assert.Equal(t, wantContext, answer.SupportingContext)
	assert.Equal(t, "Monthly.", answer.Text)

	require.Len(t, generator.prompts, 1)
	assert.Contains(t, generator.prompts[0], wantContext)
	assert.Contains(t, generator.prompts[0], "How often are sprinklers inspected?")
}

func TestAnswerSignalsNoResultOnEmptyMatches(t *testing.T) {
	index := &fakeIndex{}
	generator := &fakeGenerator{}
	svc := newQuery(index, &fakeEmbedder{}, generator)

	answer, err := svc.Answer(context.Background(), "anything")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrNoResult)
	assert.Nil(t, answer)
	assert.Empty(t, generator.prompts, "the completion model is not called without matches")
}

func TestAnswerRetriesTransientQueryFailures(t *testing.T) {
	index := &fakeIndex{
		matches:   []models.QueryMatch{{ID: "doc1_0", Score: 0.9, Text: "context"}},
		failFirst: 1,
		failWith:  models.ErrTransient,
	}
	svc := newQuery(index, &fakeEmbedder{}, &fakeGenerator{answer: "ok"})

	answer, err := svc.Answer(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "ok", answer.Text)
	assert.Equal(t, 2, index.queryCalls)
}

func TestAnswerSurfacesGenerationFailure(t *testing.T) {
	index := &fakeIndex{matches: []models.QueryMatch{{ID: "doc1_0", Score: 0.9, Text: "context"}}}
	generator := &fakeGenerator{err: models.ErrAuthentication}
	svc := newQuery(index, &fakeEmbedder{}, generator)

	_, err := svc.Answer(context.Background(), "q")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrAuthentication)
	assert.Len(t, generator.prompts, 1, "authentication failures must not be retried")
}
