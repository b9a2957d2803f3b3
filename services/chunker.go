package services

import (
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"docqa/models"
)

// Chunker splits document text into bounded-size segments for embedding.
// Splitting prefers paragraph and sentence boundaries and falls back to
// hard cuts; adjacent chunks do not overlap.
type Chunker struct {
	maxChunkSize int
}

// NewChunker validates the size bound and returns a chunker.
func NewChunker(maxChunkSize int) (*Chunker, error) {
	if maxChunkSize <= 0 {
		return nil, &models.ConfigError{Field: "CHUNK_SIZE", Reason: "must be positive"}
	}
	return &Chunker{maxChunkSize: maxChunkSize}, nil
}

// Split breaks rawText into ordered chunks of at most maxChunkSize
// characters. Empty input yields zero chunks. Each chunk records its
// character offsets into rawText so a record can point back at its origin.
func (c *Chunker) Split(source, rawText string) ([]models.Chunk, error) {
	if strings.TrimSpace(rawText) == "" {
		return nil, nil
	}

	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(c.maxChunkSize),
		textsplitter.WithChunkOverlap(0),
	)
	pieces, err := splitter.SplitText(rawText)
	if err != nil {
		return nil, err
	}

	chunks := make([]models.Chunk, 0, len(pieces))
	cursor := 0
	for i, piece := range pieces {
		start := cursor
		end := cursor + len(piece)
		// The splitter trims separators, so locate each piece in the
		// original text to keep offsets honest.
		if idx := strings.Index(rawText[cursor:], piece); idx >= 0 {
			start = cursor + idx
			end = start + len(piece)
			cursor = end
		}
		chunks = append(chunks, models.Chunk{
			Source: source,
			Index:  i,
			Text:   piece,
			Start:  start,
			End:    end,
		})
	}
	return chunks, nil
}
