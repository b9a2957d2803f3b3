package models

import "fmt"

// Document is a single piece of source material handed to the ingestion
// pipeline. It is read once and discarded after its chunks are persisted.
type Document struct {
	Source string `json:"source"`
	Text   string `json:"text"`
	// Hash identifies the content revision for file-backed documents;
	// empty for documents ingested inline.
	Hash string `json:"hash,omitempty"`
}

// Chunk is a bounded-length segment of a document's text. Start and End are
// character offsets into the original text and travel with the chunk as
// location metadata.
type Chunk struct {
	Source string `json:"source"`
	Index  int    `json:"index"`
	Text   string `json:"text"`
	Start  int    `json:"start"`
	End    int    `json:"end"`
}

// VectorRecord is a stored embedding plus the text it was computed from.
// The ID is deterministic: the same (source, index) pair always maps to the
// same record, so re-ingesting a document overwrites instead of duplicating.
type VectorRecord struct {
	ID     string    `json:"id"`
	Values []float32 `json:"values"`
	Text   string    `json:"text"`
	Source string    `json:"source"`
	Index  int       `json:"index"`
	Loc    string    `json:"loc"`
	Hash   string    `json:"hash,omitempty"`
}

// RecordID derives the canonical record id for a chunk of a source document.
func RecordID(source string, index int) string {
	return fmt.Sprintf("%s_%d", source, index)
}

// NewVectorRecord pairs a chunk with its embedding vector.
func NewVectorRecord(chunk Chunk, values []float32) VectorRecord {
	return VectorRecord{
		ID:     RecordID(chunk.Source, chunk.Index),
		Values: values,
		Text:   chunk.Text,
		Source: chunk.Source,
		Index:  chunk.Index,
		Loc:    fmt.Sprintf("%d:%d", chunk.Start, chunk.End),
	}
}

// QueryMatch is one result of a similarity query, ordered by descending
// score within its result set.
type QueryMatch struct {
	ID       string         `json:"id"`
	Score    float32        `json:"score"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Answer is the final product of the query pipeline: the generated text and
// the retrieved context it was grounded on.
type Answer struct {
	Text              string `json:"text"`
	SupportingContext string `json:"supporting_context"`
}
