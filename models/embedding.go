package models

// EmbedRequest is the payload for an OpenAI-compatible embeddings endpoint.
// Input accepts one or many texts; the API returns one vector per input.
type EmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// EmbedResponse parses the embeddings endpoint response. Index ties each
// vector back to its position in the request input.
type EmbedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}
