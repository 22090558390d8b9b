package scrape

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surenab/real-estate-scrapers/internal/fetch"
)

// fakeSource serves a fixed number of non-empty pages, then empty ones.
type fakeSource struct {
	pages      int
	parseErr   error
	built      []Request
	parseCalls int
}

func (s *fakeSource) ID() string   { return "fake" }
func (s *fakeSource) Name() string { return "Fake Source" }

func (s *fakeSource) BuildRequest(page int, category string) Request {
	req := Request{
		URL:     "https://fake.example.com/" + category,
		Method:  "POST",
		Payload: map[string]string{"from": strconv.Itoa(20 * page)},
	}
	s.built = append(s.built, req)
	return req
}

func (s *fakeSource) Parse(body []byte, seen *DedupSet) ([]RawListing, error) {
	s.parseCalls++
	if s.parseErr != nil {
		return nil, s.parseErr
	}
	if s.parseCalls > s.pages {
		return nil, nil
	}
	return []RawListing{{"seoFriendlyPath": fmt.Sprintf("/listing-%d", s.parseCalls)}}, nil
}

type fakeFetcher struct {
	calls int
	errs  []error
}

func (f *fakeFetcher) Fetch(ctx context.Context, url, method string, payload any) ([]byte, error) {
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return []byte("{}"), nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPaginator_ScrapeAllPagesStopsOnEmptyPage(t *testing.T) {
	source := &fakeSource{pages: 3}
	fetcher := &fakeFetcher{}
	paginator := NewPaginator(source, fetcher, RetryPolicy{}, discardLogger())

	listings, err := paginator.ScrapeAllPages(context.Background(), "buy", NewDedupSet())
	require.NoError(t, err)

	assert.Len(t, listings, 3)
	// Three full pages plus the empty page that ends the category; the
	// page after the empty one is never requested.
	assert.Equal(t, 4, fetcher.calls)
	require.Len(t, source.built, 4)
	assert.Equal(t, map[string]string{"from": "20"}, source.built[0].Payload)
	assert.Equal(t, map[string]string{"from": "80"}, source.built[3].Payload)
}

func TestPaginator_ScrapePageRetriesNetworkErrors(t *testing.T) {
	source := &fakeSource{pages: 1}
	fetcher := &fakeFetcher{errs: []error{
		&fetch.NetworkError{Code: "NETWORK_ERROR", Message: "status 502"},
		&fetch.NetworkError{Code: "NETWORK_ERROR", Message: "status 502"},
		nil,
	}}
	paginator := NewPaginator(source, fetcher, RetryPolicy{Cooldown: time.Millisecond}, discardLogger())

	listings, err := paginator.ScrapePage(context.Background(), 1, "buy", NewDedupSet())
	require.NoError(t, err)

	assert.Len(t, listings, 1)
	assert.Equal(t, 3, fetcher.calls)
}

func TestPaginator_ScrapePageGivesUpAfterMaxAttempts(t *testing.T) {
	source := &fakeSource{pages: 1}
	fetcher := &fakeFetcher{errs: []error{
		&fetch.NetworkError{Code: "NETWORK_ERROR", Message: "status 502"},
		&fetch.NetworkError{Code: "NETWORK_ERROR", Message: "status 502"},
		&fetch.NetworkError{Code: "NETWORK_ERROR", Message: "status 502"},
	}}
	paginator := NewPaginator(source, fetcher, RetryPolicy{Cooldown: time.Millisecond, MaxAttempts: 2}, discardLogger())

	_, err := paginator.ScrapePage(context.Background(), 1, "buy", NewDedupSet())

	var netErr *fetch.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, 2, fetcher.calls)
}

func TestPaginator_ScrapePageDoesNotRetryParseErrors(t *testing.T) {
	source := &fakeSource{pages: 1, parseErr: errors.New("unexpected shape")}
	fetcher := &fakeFetcher{}
	paginator := NewPaginator(source, fetcher, RetryPolicy{Cooldown: time.Millisecond}, discardLogger())

	_, err := paginator.ScrapePage(context.Background(), 1, "buy", NewDedupSet())

	require.Error(t, err)
	assert.Equal(t, 1, fetcher.calls)
	assert.Equal(t, 1, source.parseCalls)
}

func TestPaginator_ScrapePageHonoursContextDuringCooldown(t *testing.T) {
	source := &fakeSource{pages: 1}
	fetcher := &fakeFetcher{errs: []error{
		&fetch.NetworkError{Code: "NETWORK_ERROR", Message: "status 502"},
	}}
	paginator := NewPaginator(source, fetcher, RetryPolicy{Cooldown: time.Hour}, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := paginator.ScrapePage(ctx, 1, "buy", NewDedupSet())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPaginator_ScrapeRangeStaysWithinBounds(t *testing.T) {
	source := &fakeSource{pages: 10}
	fetcher := &fakeFetcher{}
	paginator := NewPaginator(source, fetcher, RetryPolicy{}, discardLogger())

	listings, err := paginator.ScrapeRange(context.Background(), 2, 4, "buy", NewDedupSet())
	require.NoError(t, err)

	assert.Len(t, listings, 3)
	assert.Equal(t, 3, fetcher.calls)
}
