package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"github.com/surenab/real-estate-scrapers/internal/domain"
	"github.com/surenab/real-estate-scrapers/internal/scrape"
)

// PageScraper drives pagination for one category. Implemented by
// scrape.Paginator.
type PageScraper interface {
	ScrapeAllPages(ctx context.Context, category string, seen *scrape.DedupSet) ([]scrape.RawListing, error)
}

// Normalizer converts one raw record into canonical listings. A fresh
// instance is created per harvest run because it carries batch-local
// dedup state.
type Normalizer interface {
	Normalize(raw scrape.RawListing) ([]domain.Listing, error)
}

type ListingStore interface {
	Insert(ctx context.Context, listing *domain.Listing) (int64, error)
	GetAllURLs(ctx context.Context) ([]string, error)
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Publisher interface {
	Publish(ctx context.Context, listing *domain.Listing) error
	Close() error
}

// Geocoder enriches an address in place. Failures are tolerated; the
// listing is stored either way.
type Geocoder interface {
	Enrich(ctx context.Context, address *domain.Address) error
}
