package scrape

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/surenab/real-estate-scrapers/internal/fetch"
)

// RawListing is the as-fetched listing record. It stays a weakly-typed
// bag until the normalization engine extracts it into domain values.
type RawListing map[string]any

// Request describes one page request built by a PageSource.
type Request struct {
	URL     string
	Method  string
	Payload any
}

// PageSource is the site-specific adapter: it builds the request for a
// page of one category and parses a raw response into listing records,
// filtering through the caller-owned DedupSet.
type PageSource interface {
	ID() string
	Name() string
	BuildRequest(page int, category string) Request
	Parse(body []byte, seen *DedupSet) ([]RawListing, error)
}

// Fetcher issues a single HTTP request. Implemented by fetch.Client.
type Fetcher interface {
	Fetch(ctx context.Context, url, method string, payload any) ([]byte, error)
}

// RetryPolicy controls the network retry loop. MaxAttempts 0 retries
// forever; long unattended harvests rely on that.
type RetryPolicy struct {
	Cooldown    time.Duration
	MaxAttempts int
}

// Paginator drives a PageSource across pages of one category.
type Paginator struct {
	source  PageSource
	fetcher Fetcher
	retry   RetryPolicy
	logger  *slog.Logger
}

func NewPaginator(source PageSource, fetcher Fetcher, retry RetryPolicy, logger *slog.Logger) *Paginator {
	if retry.Cooldown == 0 {
		retry.Cooldown = 120 * time.Second
	}
	return &Paginator{
		source:  source,
		fetcher: fetcher,
		retry:   retry,
		logger:  logger.With("source", source.ID()),
	}
}

// ScrapePage fetches and parses a single page. Network errors are
// retried with a fixed cooldown per the retry policy; anything else
// surfaces to the caller.
func (p *Paginator) ScrapePage(ctx context.Context, page int, category string, seen *DedupSet) ([]RawListing, error) {
	req := p.source.BuildRequest(page, category)

	var body []byte
	for attempt := 1; ; attempt++ {
		var err error
		body, err = p.fetcher.Fetch(ctx, req.URL, req.Method, req.Payload)
		if err == nil {
			break
		}

		var netErr *fetch.NetworkError
		if !errors.As(err, &netErr) {
			return nil, fmt.Errorf("fetch page %d: %w", page, err)
		}

		if p.retry.MaxAttempts > 0 && attempt >= p.retry.MaxAttempts {
			return nil, fmt.Errorf("fetch page %d after %d attempts: %w", page, attempt, err)
		}

		p.logger.Warn("network error, retrying",
			"page", page,
			"category", category,
			"attempt", attempt,
			"cooldown", p.retry.Cooldown,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(p.retry.Cooldown):
		}
	}

	listings, err := p.source.Parse(body, seen)
	if err != nil {
		return nil, fmt.Errorf("parse page %d: %w", page, err)
	}
	return listings, nil
}

// ScrapeAllPages pages from 1 upward until a page yields no new records.
// An empty page and a fully-filtered page both mean the category is
// exhausted.
func (p *Paginator) ScrapeAllPages(ctx context.Context, category string, seen *DedupSet) ([]RawListing, error) {
	var scraped []RawListing
	for page := 1; ; page++ {
		pageData, err := p.ScrapePage(ctx, page, category, seen)
		if err != nil {
			return scraped, err
		}
		if len(pageData) == 0 {
			break
		}
		scraped = append(scraped, pageData...)
		p.logger.Info("scraped page", "page", page, "category", category, "total", len(scraped))
	}
	return scraped, nil
}

// ScrapeRange is the bounded variant used for targeted backfills. The
// empty-page-stops-early rule applies here too.
func (p *Paginator) ScrapeRange(ctx context.Context, startPage, endPage int, category string, seen *DedupSet) ([]RawListing, error) {
	var scraped []RawListing
	for page := startPage; page <= endPage; page++ {
		pageData, err := p.ScrapePage(ctx, page, category, seen)
		if err != nil {
			return scraped, err
		}
		if len(pageData) == 0 {
			break
		}
		scraped = append(scraped, pageData...)
		p.logger.Info("scraped page", "page", page, "category", category, "total", len(scraped))
	}
	return scraped, nil
}
