package models

// QueryResponse is returned by POST /api/v1/query. Data carries the
// generated answer, Context the concatenated chunk texts it was grounded on.
type QueryResponse struct {
	Data    string `json:"data"`
	Context string `json:"context"`
}

// IngestResponse reports what an ingestion call persisted.
type IngestResponse struct {
	Message   string `json:"message"`
	Documents int    `json:"documents"`
	Chunks    int    `json:"chunks"`
}

// StatsResponse reports the size of the collection.
type StatsResponse struct {
	Records int `json:"records"`
}
