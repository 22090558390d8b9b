package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/surenab/real-estate-scrapers/internal/config"
	"github.com/surenab/real-estate-scrapers/internal/domain"
	"github.com/surenab/real-estate-scrapers/internal/scrape"
)

// HarvestService runs one full harvest: seed the ignore-set from stored
// urls, page through every configured category, normalize the raw
// records, and persist whatever is genuinely new.
type HarvestService struct {
	sourceID      string
	origin        string
	scraper       PageScraper
	newNormalizer func() Normalizer
	listings      ListingStore
	txManager     TransactionManager
	publisher     Publisher
	geocoder      Geocoder
	logger        *slog.Logger
	config        config.HarvestConfig
}

func NewHarvestService(
	sourceID string,
	origin string,
	scraper PageScraper,
	newNormalizer func() Normalizer,
	listings ListingStore,
	txManager TransactionManager,
	publisher Publisher,
	geocoder Geocoder,
	logger *slog.Logger,
	cfg config.HarvestConfig,
) *HarvestService {
	return &HarvestService{
		sourceID:      sourceID,
		origin:        origin,
		scraper:       scraper,
		newNormalizer: newNormalizer,
		listings:      listings,
		txManager:     txManager,
		publisher:     publisher,
		geocoder:      geocoder,
		logger:        logger.With("source", sourceID),
		config:        cfg,
	}
}

func (s *HarvestService) Harvest(ctx context.Context) (*domain.HarvestStats, error) {
	startTime := time.Now()
	s.logger.Info("starting harvest", "categories", s.config.Categories)

	seen, err := s.seedIgnoreSet(ctx)
	if err != nil {
		return nil, fmt.Errorf("seed ignore set: %w", err)
	}
	s.logger.Info("seeded ignore set", "known_urls", seen.Len())

	stats := &domain.HarvestStats{
		SourceID:   s.sourceID,
		Categories: len(s.config.Categories),
	}

	var rawListings []scrape.RawListing
	for _, category := range s.config.Categories {
		pageData, err := s.scraper.ScrapeAllPages(ctx, category, seen)
		rawListings = append(rawListings, pageData...)
		if err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			// A malformed page aborts its category only; the rest of the
			// harvest carries on.
			s.logger.Error("category aborted", "category", category, "error", err)
			stats.Errors++
			continue
		}
		s.logger.Info("category fetched", "category", category, "listings", len(pageData))
	}

	stats.Fetched = len(rawListings)

	listings := s.normalize(rawListings, stats)
	s.logger.Info("normalized listings", "raw", len(rawListings), "canonical", len(listings))

	if err := s.persist(ctx, listings, stats); err != nil {
		return stats, err
	}

	stats.Duration = time.Since(startTime)

	s.logger.Info("harvest completed",
		"fetched", stats.Fetched,
		"new", stats.New,
		"skipped", stats.Skipped,
		"errors", stats.Errors,
		"published", stats.Published,
		"duration", stats.Duration,
	)

	return stats, nil
}

// seedIgnoreSet loads every stored listing url and strips the site
// origin so the set matches the per-item path ids used during parsing.
func (s *HarvestService) seedIgnoreSet(ctx context.Context) (*scrape.DedupSet, error) {
	urls, err := s.listings.GetAllURLs(ctx)
	if err != nil {
		return nil, err
	}

	seen := scrape.NewDedupSet()
	for _, u := range urls {
		if strings.HasPrefix(u, s.origin) {
			seen.Add(strings.TrimPrefix(u, s.origin))
		}
	}
	return seen, nil
}

func (s *HarvestService) normalize(rawListings []scrape.RawListing, stats *domain.HarvestStats) []domain.Listing {
	normalizer := s.newNormalizer()

	var listings []domain.Listing
	for _, raw := range rawListings {
		normalized, err := normalizer.Normalize(raw)
		if err != nil {
			s.logger.Warn("normalization failed", "error", err)
			stats.Errors++
			continue
		}
		if len(normalized) == 0 {
			stats.Skipped++
			continue
		}
		listings = append(listings, normalized...)
	}
	return listings
}

func (s *HarvestService) persist(ctx context.Context, listings []domain.Listing, stats *domain.HarvestStats) error {
	// Re-read stored urls: another process may have inserted listings
	// while the fetch phase was running.
	urls, err := s.listings.GetAllURLs(ctx)
	if err != nil {
		return fmt.Errorf("refresh known urls: %w", err)
	}
	known := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		known[u] = struct{}{}
	}

	inserted := scrape.NewDedupSet()
	for i := range listings {
		listing := &listings[i]

		if _, ok := known[listing.URL]; ok {
			stats.Skipped++
			continue
		}
		if !inserted.Add(listing.URL) {
			stats.Skipped++
			continue
		}

		if s.geocoder != nil && listing.Address != nil {
			if err := s.geocoder.Enrich(ctx, listing.Address); err != nil {
				s.logger.Warn("geocoding failed", "url", listing.URL, "error", err)
			}
		}

		err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
			_, err := s.listings.Insert(txCtx, listing)
			return err
		})
		if err != nil {
			s.logger.Error("insert failed", "url", listing.URL, "error", err)
			stats.Errors++
			continue
		}
		stats.New++

		if s.publisher != nil {
			if err := s.publisher.Publish(ctx, listing); err != nil {
				s.logger.Warn("publish failed", "url", listing.URL, "error", err)
				stats.Errors++
			} else {
				stats.Published++
			}
		}
	}

	return nil
}
