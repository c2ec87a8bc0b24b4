package extractor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/overwatch/retrace/internal/llm"
	"github.com/overwatch/retrace/internal/logger"
	"github.com/overwatch/retrace/internal/record"
)

// ErrRetriesExhausted reports that every attempt failed. The boundary layer
// turns it into a success=false result, not a fault.
var ErrRetriesExhausted = errors.New("retries exhausted")

// placeholderConfidence is assigned uniformly to every extracted record.
// The model provides no per-record confidence signal; this is a documented
// placeholder, not a computed metric.
const placeholderConfidence = 0.95

// Result is the response envelope for one extraction request.
// len(Confidence) always equals len(Records).
type Result struct {
	Success        bool
	Records        []record.MissingPerson
	Confidence     []float64
	Discards       []Discard
	ProcessingTime time.Duration
	ModelUsed      string
	Message        string
	Attempts       int
}

// Config holds extractor settings.
type Config struct {
	MaxAttempts    int           // Total pipeline attempts before giving up
	BaseDelay      time.Duration // First backoff delay; doubles per attempt
	Temperature    float64
	MaxTokens      int
	MaxContentSize int // 0 = unlimited
}

// DefaultConfig returns the fixed retry policy and sampling defaults.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Temperature: 0.1,
		MaxTokens:   4096,
	}
}

// Option configures the extractor.
type Option func(*Config)

// WithMaxAttempts sets the total number of pipeline attempts.
func WithMaxAttempts(n int) Option {
	return func(c *Config) {
		c.MaxAttempts = n
	}
}

// WithBaseDelay sets the first backoff delay.
func WithBaseDelay(d time.Duration) Option {
	return func(c *Config) {
		c.BaseDelay = d
	}
}

// WithTemperature sets the LLM temperature.
func WithTemperature(t float64) Option {
	return func(c *Config) {
		c.Temperature = t
	}
}

// WithMaxTokens sets the maximum tokens for responses.
func WithMaxTokens(n int) Option {
	return func(c *Config) {
		c.MaxTokens = n
	}
}

// WithMaxContentSize caps the content embedded in the prompt.
func WithMaxContentSize(n int) Option {
	return func(c *Config) {
		c.MaxContentSize = n
	}
}

// Extractor runs the extraction pipeline against an injected provider.
// The provider handle is read-only after construction and safe for
// concurrent use across requests.
type Extractor struct {
	provider llm.Provider
	config   Config
}

// New creates a new Extractor.
func New(provider llm.Provider, opts ...Option) *Extractor {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Extractor{
		provider: provider,
		config:   cfg,
	}
}

// Extract runs prompt, inference, parse, and validate, retrying the whole
// pipeline with exponential backoff on malformed output. Model-unavailable
// and unexpected defects propagate immediately; exhaustion returns a
// success=false Result alongside ErrRetriesExhausted.
func (e *Extractor) Extract(ctx context.Context, htmlContent, sourceState string) (Result, error) {
	start := time.Now()
	modelUsed := e.provider.Model()

	logger.Debug("extraction starting",
		"provider", e.provider.Name(),
		"content_size", len(htmlContent),
		"max_attempts", e.config.MaxAttempts)

	var lastErr error

	for attempt := 0; attempt < e.config.MaxAttempts; attempt++ {
		records, discards, model, err := e.extractOnce(ctx, htmlContent, sourceState)
		if model != "" {
			modelUsed = model
		}

		if err == nil {
			confidence := make([]float64, len(records))
			for i := range confidence {
				confidence[i] = placeholderConfidence
			}

			logger.Debug("extraction succeeded",
				"attempt", attempt+1,
				"records", len(records),
				"discarded", len(discards))

			return Result{
				Success:        true,
				Records:        records,
				Confidence:     confidence,
				Discards:       discards,
				ProcessingTime: time.Since(start),
				ModelUsed:      modelUsed,
				Message:        fmt.Sprintf("extracted %d records", len(records)),
				Attempts:       attempt + 1,
			}, nil
		}

		lastErr = err

		if !errors.Is(err, ErrMalformedOutput) {
			// Model unavailable and unexpected defects are not retried.
			logger.Error("extraction failed", "attempt", attempt+1, "error", err)
			return e.failure(start, modelUsed, attempt+1, err), err
		}

		if attempt == e.config.MaxAttempts-1 {
			break
		}

		delay := e.config.BaseDelay << attempt
		logger.Warn("extraction attempt failed, retrying",
			"attempt", attempt+1,
			"delay", delay,
			"error", err)

		select {
		case <-ctx.Done():
			return e.failure(start, modelUsed, attempt+1, ctx.Err()), ctx.Err()
		case <-time.After(delay):
		}
	}

	err := fmt.Errorf("%w: extraction failed after %d attempts: %v",
		ErrRetriesExhausted, e.config.MaxAttempts, lastErr)
	logger.Error("extraction retries exhausted",
		"attempts", e.config.MaxAttempts,
		"error", lastErr)
	return e.failure(start, modelUsed, e.config.MaxAttempts, err), err
}

// extractOnce performs a single pipeline attempt.
func (e *Extractor) extractOnce(ctx context.Context, htmlContent, sourceState string) ([]record.MissingPerson, []Discard, string, error) {
	prompt := BuildExtractionPrompt(htmlContent, sourceState, e.config.MaxContentSize)

	req := llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: GetSystemPrompt()},
			{Role: llm.RoleUser, Content: prompt},
		},
		MaxTokens:   e.config.MaxTokens,
		Temperature: e.config.Temperature,
	}
	if e.provider.SupportsJSONSchema() {
		req.JSONSchema = record.JSONSchema()
	}

	resp, err := e.provider.Complete(ctx, req)
	if err != nil {
		return nil, nil, "", fmt.Errorf("completion failed: %w", err)
	}

	logger.Debug("model response received",
		"response_size", len(resp.Content),
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens)

	raws, err := ParseResponse(resp.Content)
	if err != nil {
		return nil, nil, resp.Model, err
	}

	records, discards := ValidateRecords(raws)
	return records, discards, resp.Model, nil
}

// failure assembles the terminal-failure envelope. It is a well-formed
// result, never an opaque crash.
func (e *Extractor) failure(start time.Time, model string, attempts int, err error) Result {
	return Result{
		Success:        false,
		Records:        []record.MissingPerson{},
		Confidence:     []float64{},
		ProcessingTime: time.Since(start),
		ModelUsed:      model,
		Message:        fmt.Sprintf("extraction failed: %v", err),
		Attempts:       attempts,
	}
}
