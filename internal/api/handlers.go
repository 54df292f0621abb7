package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"lexrag/internal/domain"
)

const defaultNResults = 5

// QuestionRequest is the body shared by the question and search endpoints.
type QuestionRequest struct {
	Question       string            `json:"question" binding:"required,max=1000"`
	MetadataFilter map[string]string `json:"metadata_filter"`
	NResults       *int              `json:"n_results" binding:"omitempty,min=1,max=10"`
}

func (r *QuestionRequest) nResults() int {
	if r.NResults == nil {
		return defaultNResults
	}
	return *r.NResults
}

// QuestionResponse carries a generated answer with its sources.
type QuestionResponse struct {
	domain.Answer
	RequestID string `json:"request_id"`
}

// SearchResponse carries ranked retrieval results without generation.
type SearchResponse struct {
	Results   []domain.RetrievedResult `json:"results"`
	Context   string                   `json:"context"`
	RequestID string                   `json:"request_id"`
}

// handleQuestion handles POST /api/v1/qa/question.
func (s *Server) handleQuestion(c *gin.Context) {
	var req QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	answer, err := s.qa.Ask(c.Request.Context(), req.Question, req.nResults(), req.MetadataFilter)
	if err != nil {
		domainError(c, err, "QA_FAILED")
		return
	}

	c.JSON(http.StatusOK, QuestionResponse{Answer: *answer, RequestID: requestID(c)})
}

// handleSearch handles POST /api/v1/qa/search.
func (s *Server) handleSearch(c *gin.Context) {
	var req QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	results, err := s.rag.Retrieve(c.Request.Context(), req.Question, req.nResults(), req.MetadataFilter)
	if err != nil {
		domainError(c, err, "SEARCH_FAILED")
		return
	}

	c.JSON(http.StatusOK, SearchResponse{
		Results:   results,
		Context:   s.rag.FormatContext(results),
		RequestID: requestID(c),
	})
}

// handleHealth reports readiness with per-collection document counts.
func (s *Server) handleHealth(c *gin.Context) {
	stats, err := s.rag.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "initializing"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"statutes": stats.Statutes,
		"terms":    stats.Terms,
	})
}

// domainError maps the error taxonomy to HTTP statuses. Anything
// unrecognized is a 500 with the caller-supplied code.
func domainError(c *gin.Context, err error, fallbackCode string) {
	switch {
	case errors.Is(err, domain.ErrInvalidQuery):
		errorJSON(c, http.StatusBadRequest, "INVALID_QUERY", err.Error())
	case errors.Is(err, domain.ErrEmbeddingUnavailable):
		errorJSON(c, http.StatusServiceUnavailable, "EMBEDDING_UNAVAILABLE", err.Error())
	case errors.Is(err, domain.ErrIndexNotFound):
		errorJSON(c, http.StatusServiceUnavailable, "INDEX_NOT_READY", err.Error())
	default:
		errorJSON(c, http.StatusInternalServerError, fallbackCode, err.Error())
	}
}

func errorJSON(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}
