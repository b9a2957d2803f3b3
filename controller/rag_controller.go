package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"docqa/models"
	"docqa/services"
)

// RAGController exposes the ingestion and query pipelines over HTTP.
type RAGController struct {
	ingestion *services.IngestionService
	query     *services.QueryService
	indexer   *services.DirectoryIndexer
	index     services.VectorIndex
}

// NewRAGController injects the pipeline dependencies. indexer may be nil
// when no documents directory is configured.
func NewRAGController(ingestion *services.IngestionService, query *services.QueryService, indexer *services.DirectoryIndexer, index services.VectorIndex) *RAGController {
	return &RAGController{
		ingestion: ingestion,
		query:     query,
		indexer:   indexer,
		index:     index,
	}
}

// Query handles POST /api/v1/query: runs the query pipeline and returns
// the answer with its supporting context.
func (c *RAGController) Query(ctx *gin.Context) {
	var req models.QueryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	answer, err := c.query.Answer(ctx.Request.Context(), req.Question)
	if err != nil {
		status, msg := statusForError(err)
		ctx.JSON(status, gin.H{"error": msg})
		return
	}

	ctx.JSON(http.StatusOK, models.QueryResponse{
		Data:    answer.Text,
		Context: answer.SupportingContext,
	})
}

// IngestDocuments handles POST /api/v1/documents: ingests inline documents.
func (c *RAGController) IngestDocuments(ctx *gin.Context) {
	var req models.IngestRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if len(req.Documents) == 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "no documents provided"})
		return
	}

	chunks, err := c.ingestion.Ingest(ctx.Request.Context(), req.Documents)
	if err != nil {
		status, msg := statusForError(err)
		ctx.JSON(status, gin.H{"error": msg})
		return
	}

	ctx.JSON(http.StatusCreated, models.IngestResponse{
		Message:   "documents ingested",
		Documents: len(req.Documents),
		Chunks:    chunks,
	})
}

// Reindex handles POST /api/v1/reindex: reconciles the collection with the
// configured documents directory.
func (c *RAGController) Reindex(ctx *gin.Context) {
	if c.indexer == nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "no documents directory configured"})
		return
	}

	ingested, err := c.indexer.Reindex(ctx.Request.Context())
	if err != nil {
		status, msg := statusForError(err)
		ctx.JSON(status, gin.H{"error": msg})
		return
	}

	ctx.JSON(http.StatusAccepted, gin.H{
		"message":   "reindex complete",
		"documents": ingested,
	})
}

// Stats handles GET /api/v1/stats.
func (c *RAGController) Stats(ctx *gin.Context) {
	count, err := c.index.Count(ctx.Request.Context())
	if err != nil {
		status, msg := statusForError(err)
		ctx.JSON(status, gin.H{"error": msg})
		return
	}
	ctx.JSON(http.StatusOK, models.StatsResponse{Records: count})
}

// statusForError maps the error taxonomy onto HTTP statuses. The message
// always comes from the error itself; no failure is masked as success.
func statusForError(err error) (int, string) {
	var cfgErr *models.ConfigError
	var dimErr *models.DimensionMismatchError
	switch {
	case errors.Is(err, models.ErrNoResult):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, models.ErrRateLimited):
		return http.StatusTooManyRequests, err.Error()
	case errors.Is(err, models.ErrAuthentication):
		return http.StatusBadGateway, err.Error()
	case errors.Is(err, models.ErrTransient):
		return http.StatusBadGateway, err.Error()
	case errors.As(err, &cfgErr):
		return http.StatusBadRequest, err.Error()
	case errors.As(err, &dimErr):
		return http.StatusInternalServerError, err.Error()
	default:
		return http.StatusInternalServerError, err.Error()
	}
}
