// Package server provides the HTTP API for GuardRail.
package server

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/NamanLimani/guardrail-ai/internal/chat"
	"github.com/NamanLimani/guardrail-ai/internal/keyword"
	"github.com/NamanLimani/guardrail-ai/internal/models"
	"github.com/NamanLimani/guardrail-ai/internal/storage"
	"github.com/NamanLimani/guardrail-ai/pkg/utils"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Uploads accepts and removes documents.
type Uploads interface {
	Accept(ctx context.Context, ownerID, filename, contentType string, r io.Reader) (*models.Document, error)
	Remove(ctx context.Context, ownerID, id string) error
}

// Retriever ranks an owner's documents against a query.
type Retriever interface {
	Search(ctx context.Context, ownerID, query string) ([]models.ScoredMatch, error)
	Retrieve(ctx context.Context, ownerID, query string, k int) ([]models.ScoredMatch, error)
}

// Answerer streams a grounded answer.
type Answerer interface {
	Compose(ctx context.Context, req chat.Request) <-chan chat.Event
}

// Lookup runs keyword search over redacted text.
type Lookup interface {
	Search(ctx context.Context, ownerID, query string, limit int, opts *keyword.SearchOptions) ([]models.LookupHit, error)
}

// Transcriber turns speech into text.
type Transcriber interface {
	Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error)
}

// Queue reports background backlog.
type Queue interface {
	Pending() int
}

// Deps are the components behind the API. Lookup, Transcriber and Queue may be nil.
type Deps struct {
	Store       storage.Storage
	Uploads     Uploads
	Retriever   Retriever
	Answerer    Answerer
	Lookup      Lookup
	Transcriber Transcriber
	Queue       Queue
}

// Options tune request handling.
type Options struct {
	AllowedOrigins []string
	MaxUploadBytes int64
	TopK           int
	// DebugEvents sends the retrieval debug record first on every chat stream.
	DebugEvents bool
	// DiskPaths are summed for the status endpoint.
	DiskPaths []string
	// Providers are reported as-is by the status endpoint.
	Providers map[string]string
}

// Server is the HTTP server for the GuardRail API.
type Server struct {
	deps   Deps
	opts   Options
	logger *zap.Logger
	server *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(deps Deps, opts Options, logger *zap.Logger) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 25 << 20
	}
	return &Server{deps: deps, opts: opts, logger: utils.OrNop(logger)}
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", s.handleHealth)
	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))
			r.Get("/status", s.handleStatus)
			r.Get("/{owner}/documents", s.handleListDocuments)
			r.Get("/{owner}/documents/{id}", s.handleGetDocument)
			r.Delete("/{owner}/documents/{id}", s.handleDeleteDocument)
			r.Post("/{owner}/search", s.handleSearch)
			r.Post("/{owner}/lookup", s.handleLookup)
		})
		// Uploads and streams run as long as the client stays.
		r.Post("/{owner}/documents", s.handleUpload)
		r.Post("/{owner}/chat", s.handleChat)
		r.Post("/transcribe", s.handleTranscribe)
	})
	return r
}

// Start starts the HTTP server on addr and blocks until it stops.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.logger.Info("request",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}
