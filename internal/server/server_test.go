package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/overwatch/retrace/internal/extractor"
	"github.com/overwatch/retrace/internal/llm"
)

// fakeProvider returns a fixed response or a fixed error.
type fakeProvider struct {
	content string
	err     error
}

func (p *fakeProvider) Complete(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	if p.err != nil {
		return llm.CompletionResponse{}, p.err
	}
	return llm.CompletionResponse{Content: p.content, Model: "test-model"}, nil
}

func (p *fakeProvider) Name() string             { return "fake" }
func (p *fakeProvider) Model() string            { return "test-model" }
func (p *fakeProvider) SupportsJSONSchema() bool { return false }

func newTestServer(p llm.Provider) *Server {
	ext := extractor.New(p, extractor.WithBaseDelay(time.Millisecond))
	return New(ext, p, Config{Clean: true})
}

func postExtract(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/extract", strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestExtract_Success(t *testing.T) {
	p := &fakeProvider{content: `[{"name": "Priya Sharma", "age": 28, "gender": "female",
		"last_seen_date": "15-01-2024", "last_known_location": "Mumbai"}]`}
	h := newTestServer(p).Handler()

	rr := postExtract(t, h, `{"html_content": "<div>Name: Priya Sharma, Age: 28</div>", "source_state": "Maharashtra"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Success              bool              `json:"success"`
		ExtractedRecords     []json.RawMessage `json:"extracted_records"`
		ExtractionConfidence []float64         `json:"extraction_confidence"`
		ProcessingTimeMs     float64           `json:"processing_time_ms"`
		ModelUsed            string            `json:"model_used"`
		Message              string            `json:"message"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}

	if !resp.Success {
		t.Error("expected success=true")
	}
	if len(resp.ExtractedRecords) != 1 {
		t.Errorf("expected 1 record, got %d", len(resp.ExtractedRecords))
	}
	if len(resp.ExtractionConfidence) != len(resp.ExtractedRecords) {
		t.Error("confidence scores must align with records")
	}
	if resp.ModelUsed != "test-model" {
		t.Errorf("expected model_used test-model, got %q", resp.ModelUsed)
	}
	if resp.Message != "extracted 1 records" {
		t.Errorf("unexpected message %q", resp.Message)
	}
}

func TestExtract_EmptyBody(t *testing.T) {
	h := newTestServer(&fakeProvider{content: "[]"}).Handler()

	rr := postExtract(t, h, `{"source_state": "Kerala"}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing html_content, got %d", rr.Code)
	}
}

func TestExtract_MalformedBody(t *testing.T) {
	h := newTestServer(&fakeProvider{content: "[]"}).Handler()

	rr := postExtract(t, h, `{not json`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed body, got %d", rr.Code)
	}
}

func TestExtract_RetriesExhaustedIsWellFormed(t *testing.T) {
	h := newTestServer(&fakeProvider{content: "not json at all"}).Handler()

	rr := postExtract(t, h, `{"html_content": "<div>x</div>"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("terminal retry failure must return 200, got %d", rr.Code)
	}

	var resp struct {
		Success          bool              `json:"success"`
		ExtractedRecords []json.RawMessage `json:"extracted_records"`
		Message          string            `json:"message"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if resp.Success {
		t.Error("expected success=false")
	}
	if len(resp.ExtractedRecords) != 0 {
		t.Error("expected no records")
	}
	if resp.Message == "" {
		t.Error("expected explanatory message")
	}
}

func TestExtract_ModelUnavailable(t *testing.T) {
	p := &fakeProvider{err: fmt.Errorf("%w: backend down", llm.ErrUnavailable)}
	h := newTestServer(p).Handler()

	rr := postExtract(t, h, `{"html_content": "<div>x</div>"}`)
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 for unavailable model, got %d", rr.Code)
	}
}

func TestHealth(t *testing.T) {
	h := newTestServer(&fakeProvider{content: "[]"}).Handler()

	req := httptest.NewRequest("GET", "/api/health", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var resp struct {
		Status        string  `json:"status"`
		ModelLoaded   bool    `json:"model_loaded"`
		UptimeSeconds float64 `json:"uptime_seconds"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if resp.Status != "healthy" {
		t.Errorf("expected healthy, got %q", resp.Status)
	}
	if !resp.ModelLoaded {
		t.Error("expected model_loaded=true")
	}
	if resp.UptimeSeconds < 0 {
		t.Errorf("negative uptime %v", resp.UptimeSeconds)
	}
}

func TestStats(t *testing.T) {
	h := newTestServer(&fakeProvider{content: "[]"}).Handler()

	req := httptest.NewRequest("GET", "/api/stats", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "test-model") {
		t.Errorf("expected model in stats, got %s", rr.Body.String())
	}
}

func TestExtract_MethodNotAllowed(t *testing.T) {
	h := newTestServer(&fakeProvider{content: "[]"}).Handler()

	req := httptest.NewRequest("GET", "/api/extract", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rr.Code)
	}
}
