package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/NamanLimani/guardrail-ai/internal/chat"
	"github.com/NamanLimani/guardrail-ai/internal/keyword"
	"github.com/NamanLimani/guardrail-ai/internal/models"
	"github.com/NamanLimani/guardrail-ai/internal/pipeline"
	"github.com/NamanLimani/guardrail-ai/internal/risk"
	"github.com/NamanLimani/guardrail-ai/internal/storage"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// documentView is a document as the API shows it. Vectors stay server-side.
type documentView struct {
	ID            string          `json:"id"`
	OwnerID       string          `json:"user_id"`
	Filename      string          `json:"filename"`
	FileSize      int64           `json:"file_size"`
	ContentType   string          `json:"content_type,omitempty"`
	Status        models.Status   `json:"status"`
	RiskScore     int             `json:"risk_score"`
	RiskLevel     string          `json:"risk_level"`
	PiiStats      models.PiiStats `json:"pii_stats,omitempty"`
	TextContent   string          `json:"text_content,omitempty"`
	FailureReason string          `json:"failure_reason,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func newDocumentView(doc *models.Document, withText bool) documentView {
	v := documentView{
		ID:            doc.ID,
		OwnerID:       doc.OwnerID,
		Filename:      doc.Filename,
		FileSize:      doc.FileSize,
		ContentType:   doc.ContentType,
		Status:        doc.Status,
		RiskScore:     doc.RiskScore,
		RiskLevel:     risk.Level(doc.RiskScore),
		PiiStats:      doc.PiiStats,
		FailureReason: doc.FailureReason,
		CreatedAt:     doc.CreatedAt,
		UpdatedAt:     doc.UpdatedAt,
	}
	if withText {
		v.TextContent = doc.TextContent
	}
	return v
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "active", "message": "GuardRail AI is online"})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		s.respondError(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}
	if header.Size == 0 {
		s.respondError(w, http.StatusBadRequest, "file is empty")
		return
	}

	contentType := header.Header.Get("Content-Type")
	doc, err := s.deps.Uploads.Accept(r.Context(), owner, header.Filename, contentType, file)
	if err != nil {
		if errors.Is(err, pipeline.ErrQueueFull) || errors.Is(err, pipeline.ErrStopped) {
			s.logger.Warn("upload rejected", zap.String("owner_id", owner), zap.Error(err))
			s.respondError(w, http.StatusServiceUnavailable, "server is busy, try again later")
			return
		}
		s.logger.Error("upload failed", zap.String("owner_id", owner), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "upload failed")
		return
	}
	s.respondJSON(w, http.StatusAccepted, map[string]string{
		"message":     "Upload started",
		"document_id": doc.ID,
		"status":      string(models.StatusProcessing),
	})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.deps.Store.ListByOwner(r.Context(), chi.URLParam(r, "owner"))
	if err != nil {
		s.logger.Error("list documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to list documents")
		return
	}
	out := make([]documentView, 0, len(docs))
	for _, d := range docs {
		out = append(out, newDocumentView(d, false))
	}
	s.respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.deps.Store.GetDocument(r.Context(), chi.URLParam(r, "id"))
	if err != nil || doc.OwnerID != chi.URLParam(r, "owner") {
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			s.logger.Error("get document failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, "failed to load document")
			return
		}
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	s.respondJSON(w, http.StatusOK, newDocumentView(doc, true))
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.deps.Uploads.Remove(r.Context(), chi.URLParam(r, "owner"), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "document not found")
			return
		}
		s.logger.Error("delete failed", zap.String("document_id", id), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to delete document")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req models.SearchRequest
	if q := r.URL.Query().Get("query"); q != "" {
		req.Query = q
	} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	matches, err := s.deps.Retriever.Search(r.Context(), chi.URLParam(r, "owner"), req.Query)
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "search failed")
		return
	}
	if matches == nil {
		matches = []models.ScoredMatch{}
	}
	s.respondJSON(w, http.StatusOK, matches)
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	if s.deps.Lookup == nil {
		s.respondError(w, http.StatusNotImplemented, "keyword lookup not enabled")
		return
	}
	var req models.LookupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	owner := chi.URLParam(r, "owner")
	hits, err := s.deps.Lookup.Search(r.Context(), owner, req.Query, req.Limit, &keyword.SearchOptions{Fuzziness: req.Fuzziness})
	// Retry exact lookups that found nothing with typo tolerance.
	if err == nil && len(hits) == 0 && req.Fuzziness == 0 {
		hits, err = s.deps.Lookup.Search(r.Context(), owner, req.Query, req.Limit, &keyword.SearchOptions{Fuzziness: 1})
	}
	if err != nil {
		s.logger.Error("lookup failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if hits == nil {
		hits = []models.LookupHit{}
	}
	s.respondJSON(w, http.StatusOK, hits)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	owner := chi.URLParam(r, "owner")
	matches, err := s.deps.Retriever.Retrieve(r.Context(), owner, req.Query, s.opts.TopK)
	if err != nil {
		s.logger.Error("retrieval failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "retrieval failed")
		return
	}

	debug := s.opts.DebugEvents || queryFlag(r, "debug")
	events := s.deps.Answerer.Compose(r.Context(), chat.Request{
		Query:   req.Query,
		History: req.History,
		Matches: matches,
		Debug:   debug,
	})

	w.Header().Set("Content-Type", chat.ContentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := chat.WriteStream(w, events); err != nil {
		s.logger.Debug("chat stream ended early", zap.String("owner_id", owner), zap.Error(err))
	}
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if s.deps.Transcriber == nil {
		s.respondError(w, http.StatusNotImplemented, "transcription not enabled")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	text, err := s.deps.Transcriber.Transcribe(r.Context(), header.Filename, file)
	if err != nil {
		s.logger.Error("transcription failed", zap.Error(err))
		s.respondError(w, http.StatusBadGateway, "transcription failed")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"text": text})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	counts, err := s.deps.Store.CountByStatus(r.Context())
	if err != nil {
		s.logger.Error("status: count documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to count documents")
		return
	}
	resp := map[string]interface{}{
		"documents": counts,
		"providers": s.opts.Providers,
	}
	if s.deps.Queue != nil {
		resp["queue_pending"] = s.deps.Queue.Pending()
	}
	if len(s.opts.DiskPaths) > 0 {
		if diskBytes, err := storage.DiskUsageBytes(s.opts.DiskPaths...); err == nil {
			resp["disk_usage_bytes"] = diskBytes
		} else {
			s.logger.Warn("status: disk usage failed", zap.Error(err))
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func queryFlag(r *http.Request, name string) bool {
	switch strings.ToLower(r.URL.Query().Get(name)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
