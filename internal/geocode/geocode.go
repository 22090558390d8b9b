// Package geocode enriches partially-filled addresses through public
// geocoding services. Lookups are cached on disk so repeated harvests of
// the same areas stay cheap and polite.
package geocode

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/surenab/real-estate-scrapers/internal/domain"
)

const (
	nominatimReverseURL = "https://nominatim.openstreetmap.org/reverse"
	nominatimForwardURL = "https://nominatim.openstreetmap.org/search"
)

// Details are the fields a geocoder can contribute to an address.
type Details struct {
	Road     string `json:"road,omitempty"`
	City     string `json:"city,omitempty"`
	Town     string `json:"town,omitempty"`
	Village  string `json:"village,omitempty"`
	Postcode string `json:"postcode,omitempty"`
	County   string `json:"county,omitempty"`
	Country  string `json:"country,omitempty"`
	State    string `json:"state,omitempty"`
	Lat      string `json:"lat,omitempty"`
	Lon      string `json:"lon,omitempty"`
}

type Config struct {
	CacheFile string
	UserAgent string
	Timeout   time.Duration
}

type Client struct {
	httpClient *http.Client
	userAgent  string
	cacheFile  string
	reverseURL string
	forwardURL string
	logger     *slog.Logger

	mu    sync.Mutex
	cache map[string]Details
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  cfg.UserAgent,
		cacheFile:  cfg.CacheFile,
		reverseURL: nominatimReverseURL,
		forwardURL: nominatimForwardURL,
		logger:     logger,
		cache:      make(map[string]Details),
	}
	c.loadCache()
	return c
}

// Enrich fills missing address fields in place: reverse geocoding when
// only coordinates are known, forward geocoding when only free text is.
// Addresses that are already complete, or too empty to look up, are left
// untouched.
func (c *Client) Enrich(ctx context.Context, address *domain.Address) error {
	var details *Details
	var err error

	switch {
	case address.Latitude != 0 && address.Longitude != 0 && address.Address1 == nil:
		details, err = c.reverse(ctx, address.Latitude, address.Longitude)
	case address.Address1 != nil && address.Latitude == 0:
		details, err = c.forward(ctx, *address.Address1)
	default:
		return nil
	}
	if err != nil {
		return err
	}
	if details == nil {
		return nil
	}

	if details.Road != "" && address.Address1 == nil {
		road := details.Road
		address.Address1 = &road
	}
	if city := firstNonEmpty(details.City, details.Town, details.Village); city != "" {
		address.City = city
	}
	if details.Postcode != "" {
		address.PostalCode = details.Postcode
	}
	if details.County != "" {
		address.County = details.County
	}
	if details.Country != "" {
		address.Country = details.Country
	}
	if details.State != "" {
		state := details.State
		address.LocalAuthority = &state
	}
	if address.Latitude == 0 && details.Lat != "" {
		if lat, err := strconv.ParseFloat(details.Lat, 64); err == nil {
			address.Latitude = lat
		}
		if lon, err := strconv.ParseFloat(details.Lon, 64); err == nil {
			address.Longitude = lon
		}
	}

	return nil
}

func (c *Client) reverse(ctx context.Context, lat, lon float64) (*Details, error) {
	key := cacheKey(fmt.Sprintf("%f,%f", lat, lon))
	if cached, ok := c.cached(key); ok {
		return &cached, nil
	}

	query := url.Values{}
	query.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	query.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	query.Set("format", "jsonv2")

	details, err := c.lookupNominatim(ctx, c.reverseURL+"?"+query.Encode())
	if err != nil {
		return nil, err
	}
	c.store(key, *details)
	return details, nil
}

func (c *Client) forward(ctx context.Context, text string) (*Details, error) {
	key := cacheKey(text)
	if cached, ok := c.cached(key); ok {
		return &cached, nil
	}

	query := url.Values{}
	query.Set("q", text+" Ireland")
	query.Set("format", "jsonv2")
	query.Set("addressdetails", "1")
	query.Set("limit", "1")

	var results []nominatimResult
	if err := c.getJSON(ctx, c.forwardURL+"?"+query.Encode(), &results); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}

	details := results[0].details()
	c.store(key, details)
	return &details, nil
}

type nominatimResult struct {
	Lat     string `json:"lat"`
	Lon     string `json:"lon"`
	Address struct {
		Road     string `json:"road"`
		City     string `json:"city"`
		Town     string `json:"town"`
		Village  string `json:"village"`
		Postcode string `json:"postcode"`
		County   string `json:"county"`
		Country  string `json:"country"`
		State    string `json:"state"`
	} `json:"address"`
}

func (r nominatimResult) details() Details {
	return Details{
		Road:     r.Address.Road,
		City:     r.Address.City,
		Town:     r.Address.Town,
		Village:  r.Address.Village,
		Postcode: r.Address.Postcode,
		County:   r.Address.County,
		Country:  r.Address.Country,
		State:    r.Address.State,
		Lat:      r.Lat,
		Lon:      r.Lon,
	}
}

func (c *Client) lookupNominatim(ctx context.Context, lookupURL string) (*Details, error) {
	var result nominatimResult
	if err := c.getJSON(ctx, lookupURL, &result); err != nil {
		return nil, err
	}
	details := result.details()
	return &details, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("geocode request: unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode geocode response: %w", err)
	}
	return nil
}

func (c *Client) cached(key string) (Details, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.cache[key]
	return d, ok
}

func (c *Client) store(key string, details Details) {
	c.mu.Lock()
	c.cache[key] = details
	c.mu.Unlock()
	c.saveCache()
}

func (c *Client) loadCache() {
	if c.cacheFile == "" {
		return
	}
	data, err := os.ReadFile(c.cacheFile)
	if err != nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := json.Unmarshal(data, &c.cache); err != nil {
		c.cache = make(map[string]Details)
	}
}

func (c *Client) saveCache() {
	if c.cacheFile == "" {
		return
	}
	c.mu.Lock()
	data, err := json.Marshal(c.cache)
	c.mu.Unlock()
	if err != nil {
		return
	}
	if err := os.WriteFile(c.cacheFile, data, 0o644); err != nil {
		c.logger.Warn("failed to persist geocode cache", "error", err)
	}
}

func cacheKey(query string) string {
	sum := md5.Sum([]byte(query))
	return hex.EncodeToString(sum[:])
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
