// Package fetcher retrieves page HTML for the one-shot CLI path.
package fetcher

import (
	"fmt"
	"time"

	"github.com/gocolly/colly/v2"
)

// DefaultUserAgent identifies retrace to fetched sites.
const DefaultUserAgent = "Mozilla/5.0 (compatible; retrace/1.0)"

// Page holds the fetched document.
type Page struct {
	URL         string
	HTML        string
	StatusCode  int
	ContentType string
	FetchedAt   time.Time
}

// Config holds fetcher settings.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// Static fetches pages with plain HTTP via Colly.
type Static struct {
	config Config
}

// NewStatic creates a static fetcher.
func NewStatic(cfg Config) *Static {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Static{config: cfg}
}

// Fetch retrieves the page at targetURL.
func (f *Static) Fetch(targetURL string) (Page, error) {
	page := Page{
		URL:       targetURL,
		FetchedAt: time.Now(),
	}

	c := colly.NewCollector(
		colly.UserAgent(f.config.UserAgent),
	)
	c.SetRequestTimeout(f.config.Timeout)

	var fetchErr error

	c.OnResponse(func(r *colly.Response) {
		page.StatusCode = r.StatusCode
		page.ContentType = r.Headers.Get("Content-Type")
		page.HTML = string(r.Body)
	})

	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			page.StatusCode = r.StatusCode
		}
		fetchErr = fmt.Errorf("fetch error: %w", err)
	})

	if err := c.Visit(targetURL); err != nil {
		return page, fmt.Errorf("failed to visit URL: %w", err)
	}
	if fetchErr != nil {
		return page, fetchErr
	}

	return page, nil
}
