package api

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"lexrag/internal/usecase"
)

const requestIDHeader = "X-Request-ID"

// defaultCORSOrigins is the local development set served when no origins
// are configured.
var defaultCORSOrigins = []string{
	"http://localhost:3000",
	"http://localhost:8000",
	"http://localhost",
	"http://localhost:80",
}

// Options tunes the HTTP layer.
type Options struct {
	// CORSOrigins lists allowed origins. Empty means the localhost
	// development set; a single "*" allows any origin.
	CORSOrigins []string
}

// Server exposes the QA system over HTTP.
type Server struct {
	engine *gin.Engine
	rag    *usecase.RAGSystem
	qa     *usecase.QAUseCase
}

// NewServer wires routes and middleware around an opened RAG system.
func NewServer(rag *usecase.RAGSystem, qa *usecase.QAUseCase, opts Options) *Server {
	engine := gin.New()
	engine.Use(gin.Logger(), gin.Recovery(), requestIDMiddleware(), corsMiddleware(opts.CORSOrigins))

	s := &Server{engine: engine, rag: rag, qa: qa}

	engine.GET("/health", s.handleHealth)
	v1 := engine.Group("/api/v1/qa")
	v1.POST("/question", s.handleQuestion)
	v1.POST("/search", s.handleSearch)

	return s
}

// Router returns the underlying HTTP handler, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.engine
}

// Run serves HTTP on addr until the listener fails.
func (s *Server) Run(addr string) error {
	return s.engine.Run(addr)
}

// requestIDMiddleware tags every request with an identifier that is echoed
// in the response header and body. An incoming X-Request-ID is kept so
// callers can correlate across services.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Writer.Header().Set(requestIDHeader, id)
		c.Next()
	}
}

func requestID(c *gin.Context) string {
	return c.GetString("request_id")
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	cfg.AllowHeaders = append(cfg.AllowHeaders, requestIDHeader)
	if len(origins) == 0 {
		origins = defaultCORSOrigins
	}
	if len(origins) == 1 && origins[0] == "*" {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}
