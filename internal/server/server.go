// Package server exposes the extraction pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/overwatch/retrace/internal/cleaner"
	"github.com/overwatch/retrace/internal/extractor"
	"github.com/overwatch/retrace/internal/llm"
	"github.com/overwatch/retrace/internal/logger"
	"github.com/overwatch/retrace/internal/record"
)

// pinger is implemented by providers that can report backend readiness.
type pinger interface {
	Ping(ctx context.Context) error
}

// Server handles extraction requests. The extractor and provider handles
// are read-only after construction and shared by all requests.
type Server struct {
	extractor *extractor.Extractor
	provider  llm.Provider
	clean     bool
	started   time.Time
}

// Config holds server settings.
type Config struct {
	// Clean enables HTML pre-cleaning before prompting.
	Clean bool
}

// New creates a Server around an extractor and its provider.
func New(ext *extractor.Extractor, provider llm.Provider, cfg Config) *Server {
	return &Server{
		extractor: ext,
		provider:  provider,
		clean:     cfg.Clean,
		started:   time.Now(),
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/extract", s.handleExtract)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	return mux
}

type extractRequest struct {
	HTMLContent string `json:"html_content"`
	SourceState string `json:"source_state"`
	SourceURL   string `json:"source_url"`
}

type extractResponse struct {
	Success              bool                   `json:"success"`
	ExtractedRecords     []record.MissingPerson `json:"extracted_records"`
	FailedExtractions    []extractor.Discard    `json:"failed_extractions"`
	ExtractionConfidence []float64              `json:"extraction_confidence"`
	ProcessingTimeMs     float64                `json:"processing_time_ms"`
	ModelUsed            string                 `json:"model_used"`
	Message              string                 `json:"message"`
}

type healthResponse struct {
	Status        string    `json:"status"`
	ModelLoaded   bool      `json:"model_loaded"`
	GPUAvailable  bool      `json:"gpu_available"`
	UptimeSeconds float64   `json:"uptime_seconds"`
	Timestamp     time.Time `json:"timestamp"`
}

type statsResponse struct {
	UptimeSeconds float64   `json:"uptime_seconds"`
	Model         string    `json:"model"`
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.HTMLContent == "" {
		writeError(w, http.StatusBadRequest, "html_content is required")
		return
	}

	content := req.HTMLContent
	if s.clean {
		content = cleaner.Clean(content)
	}

	result, err := s.extractor.Extract(r.Context(), content, req.SourceState)

	switch {
	case err == nil, errors.Is(err, extractor.ErrRetriesExhausted):
		// Terminal retry failure is a normal outcome: a well-formed
		// success=false envelope, not a fault.
		writeJSON(w, http.StatusOK, toEnvelope(result))
	case errors.Is(err, llm.ErrUnavailable):
		logger.Error("extraction rejected, model unavailable",
			"source_url", req.SourceURL, "error", err)
		writeJSON(w, http.StatusServiceUnavailable, toEnvelope(result))
	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful to write.
	default:
		logger.Error("unexpected extraction error",
			"source_url", req.SourceURL, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	loaded := s.provider != nil
	if p, ok := s.provider.(pinger); ok && loaded {
		loaded = p.Ping(r.Context()) == nil
	}

	status := "healthy"
	code := http.StatusOK
	if !loaded {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, healthResponse{
		Status:      status,
		ModelLoaded: loaded,
		// Remote inference backends expose no GPU state.
		GPUAvailable:  false,
		UptimeSeconds: time.Since(s.started).Seconds(),
		Timestamp:     time.Now().UTC(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statsResponse{
		UptimeSeconds: time.Since(s.started).Seconds(),
		Model:         s.provider.Model(),
		Status:        "running",
		Timestamp:     time.Now().UTC(),
	})
}

// toEnvelope converts an extraction result to the wire envelope,
// guaranteeing non-null arrays.
func toEnvelope(result extractor.Result) extractResponse {
	records := result.Records
	if records == nil {
		records = []record.MissingPerson{}
	}
	confidence := result.Confidence
	if confidence == nil {
		confidence = []float64{}
	}
	discards := result.Discards
	if discards == nil {
		discards = []extractor.Discard{}
	}

	return extractResponse{
		Success:              result.Success,
		ExtractedRecords:     records,
		FailedExtractions:    discards,
		ExtractionConfidence: confidence,
		ProcessingTimeMs:     float64(result.ProcessingTime.Microseconds()) / 1000.0,
		ModelUsed:            result.ModelUsed,
		Message:              result.Message,
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
