package daft

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/surenab/real-estate-scrapers/internal/scrape"
)

const (
	SourceID   = "daft"
	SourceName = "Daft.ie"

	// Origin prefixes every seoFriendlyPath to form the canonical
	// listing URL, the dedup key across runs.
	Origin = "https://www.daft.ie"

	listingsURL = "https://gateway.daft.ie/api/v2/ads/listings?&mediaSizes=size720x480&mediaSizes=size72x52"
	pageSize    = 20
)

// DefaultHeaders mirror a regular browser session against the gateway.
func DefaultHeaders() map[string]string {
	return map[string]string{
		"accept":             "application/json",
		"accept-language":    "en-GB,en;q=0.9",
		"brand":              "daft",
		"cache-control":      "no-cache, no-store",
		"content-type":       "application/json",
		"dnt":                "1",
		"expires":            "0",
		"origin":             Origin,
		"platform":           "web",
		"pragma":             "no-cache",
		"referer":            Origin + "/",
		"user-agent":         "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	}
}

type searchFilter struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

type searchPaging struct {
	From     string `json:"from"`
	PageSize string `json:"pageSize"`
}

type searchGeoFilter struct {
	StoredShapeIds []string `json:"storedShapeIds"`
}

type searchPayload struct {
	Section    string          `json:"section"`
	Filters    []searchFilter  `json:"filters"`
	AndFilters []searchFilter  `json:"andFilters"`
	Ranges     []searchFilter  `json:"ranges"`
	Paging     searchPaging    `json:"paging"`
	GeoFilter  searchGeoFilter `json:"geoFilter"`
	Terms      string          `json:"terms"`
	Sort       string          `json:"sort"`
}

type searchResponse struct {
	Listings []struct {
		Listing scrape.RawListing `json:"listing"`
	} `json:"listings"`
}

// Source implements scrape.PageSource for the Daft.ie listings gateway.
type Source struct {
	url    string
	logger *slog.Logger
}

func New(logger *slog.Logger) *Source {
	return &Source{
		url:    listingsURL,
		logger: logger.With("source", SourceID),
	}
}

func (s *Source) ID() string { return SourceID }

func (s *Source) Name() string { return SourceName }

// BuildRequest assembles the search payload for one page of a category.
// Sold categories hit the fixed residential-sold section sorted by sold
// date and skip the published-state filter.
func (s *Source) BuildRequest(page int, category string) scrape.Request {
	payload := searchPayload{
		Section: category,
		Filters: []searchFilter{
			{Name: "adState", Values: []string{"published"}},
		},
		AndFilters: []searchFilter{},
		Ranges:     []searchFilter{},
		Paging: searchPaging{
			From:     strconv.Itoa(pageSize * page),
			PageSize: strconv.Itoa(pageSize),
		},
		GeoFilter: searchGeoFilter{StoredShapeIds: []string{}},
		Sort:      "publishDateDesc",
	}

	if strings.Contains(category, "sold") {
		payload.Section = "residential-sold"
		payload.Filters = []searchFilter{}
		payload.Sort = "soldDateDesc"
	}

	s.logger.Debug("built page request", "page", page, "category", category, "section", payload.Section)

	return scrape.Request{
		URL:     s.url,
		Method:  http.MethodPost,
		Payload: payload,
	}
}

// Parse extracts the raw listing records from one page of the response.
// Every record is keyed by its seoFriendlyPath; records already present
// in the caller-owned set are skipped and new ones are added to it.
func (s *Source) Parse(body []byte, seen *scrape.DedupSet) ([]scrape.RawListing, error) {
	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode listings response: %w", err)
	}

	var filtered []scrape.RawListing
	for _, item := range resp.Listings {
		id := asString(item.Listing["seoFriendlyPath"])
		if !seen.Add(id) {
			continue
		}
		filtered = append(filtered, item.Listing)
	}

	s.logger.Info("parsed page",
		"found", len(resp.Listings),
		"new", len(filtered),
		"seen_total", seen.Len(),
	)

	return filtered, nil
}
