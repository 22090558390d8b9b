package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/surenab/real-estate-scrapers/internal/config"
	"github.com/surenab/real-estate-scrapers/internal/domain"
	"github.com/surenab/real-estate-scrapers/internal/scrape"
	"github.com/surenab/real-estate-scrapers/internal/service/mocks"
)

const testOrigin = "https://www.daft.ie"

type HarvestServiceTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller

	scraper    *mocks.MockPageScraper
	normalizer *mocks.MockNormalizer
	listings   *mocks.MockListingStore
	txManager  *mocks.MockTransactionManager
	publisher  *mocks.MockPublisher
	geocoder   *mocks.MockGeocoder

	service *HarvestService
	cfg     config.HarvestConfig
	logger  *slog.Logger
}

func (s *HarvestServiceTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())

	s.scraper = mocks.NewMockPageScraper(s.ctrl)
	s.normalizer = mocks.NewMockNormalizer(s.ctrl)
	s.listings = mocks.NewMockListingStore(s.ctrl)
	s.txManager = mocks.NewMockTransactionManager(s.ctrl)
	s.publisher = mocks.NewMockPublisher(s.ctrl)
	s.geocoder = mocks.NewMockGeocoder(s.ctrl)

	s.cfg = config.HarvestConfig{
		Categories: []string{"residential-to-rent"},
		Interval:   24 * time.Hour,
	}

	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	s.service = s.newService(s.publisher, s.geocoder)
}

func (s *HarvestServiceTestSuite) newService(publisher Publisher, geocoder Geocoder) *HarvestService {
	return NewHarvestService(
		"daft",
		testOrigin,
		s.scraper,
		func() Normalizer { return s.normalizer },
		s.listings,
		s.txManager,
		publisher,
		geocoder,
		s.logger,
		s.cfg,
	)
}

func (s *HarvestServiceTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestHarvestServiceTestSuite(t *testing.T) {
	suite.Run(t, new(HarvestServiceTestSuite))
}

func (s *HarvestServiceTestSuite) expectTransactionPassthrough() {
	s.txManager.EXPECT().
		WithTransaction(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		}).
		AnyTimes()
}

func (s *HarvestServiceTestSuite) TestHarvest_NewListings() {
	ctx := context.Background()

	rawNew := scrape.RawListing{"seoFriendlyPath": "/for-rent/new/1"}
	rawKnown := scrape.RawListing{"seoFriendlyPath": "/for-rent/known/2"}

	newListing := domain.Listing{
		URL:     testOrigin + "/for-rent/new/1",
		Title:   "New Apartment",
		Address: &domain.Address{Latitude: 53.3, Longitude: -6.2},
	}
	knownListing := domain.Listing{
		URL:   testOrigin + "/for-rent/known/2",
		Title: "Already Stored",
	}

	storedURLs := []string{testOrigin + "/for-rent/known/2"}
	s.listings.EXPECT().GetAllURLs(gomock.Any()).Return(storedURLs, nil).Times(2)

	s.scraper.EXPECT().
		ScrapeAllPages(gomock.Any(), "residential-to-rent", gomock.Any()).
		Return([]scrape.RawListing{rawNew, rawKnown}, nil)

	s.normalizer.EXPECT().Normalize(rawNew).Return([]domain.Listing{newListing}, nil)
	s.normalizer.EXPECT().Normalize(rawKnown).Return([]domain.Listing{knownListing}, nil)

	s.geocoder.EXPECT().Enrich(gomock.Any(), newListing.Address).Return(nil)
	s.expectTransactionPassthrough()
	s.listings.EXPECT().
		Insert(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, listing *domain.Listing) (int64, error) {
			s.Equal(newListing.URL, listing.URL)
			return 1, nil
		})
	s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)

	stats, err := s.service.Harvest(ctx)

	s.Require().NoError(err)
	s.Equal(2, stats.Fetched)
	s.Equal(1, stats.New)
	s.Equal(1, stats.Skipped)
	s.Equal(1, stats.Published)
	s.Equal(0, stats.Errors)
}

func (s *HarvestServiceTestSuite) TestHarvest_SeedsIgnoreSetWithStrippedPaths() {
	ctx := context.Background()

	storedURLs := []string{
		testOrigin + "/for-sale/stored/9",
		"https://other.example.com/not-ours",
	}
	s.listings.EXPECT().GetAllURLs(gomock.Any()).Return(storedURLs, nil).Times(2)

	s.scraper.EXPECT().
		ScrapeAllPages(gomock.Any(), "residential-to-rent", gomock.Any()).
		DoAndReturn(func(ctx context.Context, category string, seen *scrape.DedupSet) ([]scrape.RawListing, error) {
			s.True(seen.Contains("/for-sale/stored/9"))
			s.False(seen.Contains(testOrigin + "/for-sale/stored/9"))
			s.Equal(1, seen.Len())
			return nil, nil
		})

	stats, err := s.service.Harvest(ctx)

	s.Require().NoError(err)
	s.Equal(0, stats.Fetched)
}

func (s *HarvestServiceTestSuite) TestHarvest_SeedErrorAborts() {
	ctx := context.Background()

	s.listings.EXPECT().GetAllURLs(gomock.Any()).Return(nil, errors.New("connection refused"))

	stats, err := s.service.Harvest(ctx)

	s.Require().Error(err)
	s.Nil(stats)
}

func (s *HarvestServiceTestSuite) TestHarvest_CategoryAbortDoesNotStopHarvest() {
	ctx := context.Background()
	s.cfg.Categories = []string{"residential-for-sale", "residential-to-rent"}
	s.service = s.newService(s.publisher, s.geocoder)

	raw := scrape.RawListing{"seoFriendlyPath": "/for-rent/ok/1"}
	listing := domain.Listing{URL: testOrigin + "/for-rent/ok/1", Title: "Ok"}

	s.listings.EXPECT().GetAllURLs(gomock.Any()).Return(nil, nil).Times(2)

	s.scraper.EXPECT().
		ScrapeAllPages(gomock.Any(), "residential-for-sale", gomock.Any()).
		Return(nil, errors.New("parse page 3: unexpected shape"))
	s.scraper.EXPECT().
		ScrapeAllPages(gomock.Any(), "residential-to-rent", gomock.Any()).
		Return([]scrape.RawListing{raw}, nil)

	s.normalizer.EXPECT().Normalize(raw).Return([]domain.Listing{listing}, nil)

	s.expectTransactionPassthrough()
	s.listings.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(int64(1), nil)
	s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)

	stats, err := s.service.Harvest(ctx)

	s.Require().NoError(err)
	s.Equal(1, stats.Errors)
	s.Equal(1, stats.New)
}

func (s *HarvestServiceTestSuite) TestHarvest_CancelledContextStopsHarvest() {
	ctx, cancel := context.WithCancel(context.Background())

	s.listings.EXPECT().GetAllURLs(gomock.Any()).Return(nil, nil)

	s.scraper.EXPECT().
		ScrapeAllPages(gomock.Any(), "residential-to-rent", gomock.Any()).
		DoAndReturn(func(ctx context.Context, category string, seen *scrape.DedupSet) ([]scrape.RawListing, error) {
			cancel()
			return nil, ctx.Err()
		})

	_, err := s.service.Harvest(ctx)

	s.Require().ErrorIs(err, context.Canceled)
}

func (s *HarvestServiceTestSuite) TestHarvest_NormalizationFailuresAreCounted() {
	ctx := context.Background()

	rawBad := scrape.RawListing{"seoFriendlyPath": "/bad/1"}
	rawEmpty := scrape.RawListing{"title": "no path"}

	s.listings.EXPECT().GetAllURLs(gomock.Any()).Return(nil, nil).Times(2)

	s.scraper.EXPECT().
		ScrapeAllPages(gomock.Any(), "residential-to-rent", gomock.Any()).
		Return([]scrape.RawListing{rawBad, rawEmpty}, nil)

	s.normalizer.EXPECT().Normalize(rawBad).Return(nil, errors.New("invalid price history date"))
	s.normalizer.EXPECT().Normalize(rawEmpty).Return(nil, nil)

	stats, err := s.service.Harvest(ctx)

	s.Require().NoError(err)
	s.Equal(2, stats.Fetched)
	s.Equal(1, stats.Errors)
	s.Equal(1, stats.Skipped)
	s.Equal(0, stats.New)
}

func (s *HarvestServiceTestSuite) TestHarvest_WithoutPublisherOrGeocoder() {
	ctx := context.Background()
	s.service = s.newService(nil, nil)

	raw := scrape.RawListing{"seoFriendlyPath": "/for-rent/plain/1"}
	listing := domain.Listing{
		URL:     testOrigin + "/for-rent/plain/1",
		Title:   "Plain",
		Address: &domain.Address{Latitude: 52.6, Longitude: -8.6},
	}

	s.listings.EXPECT().GetAllURLs(gomock.Any()).Return(nil, nil).Times(2)
	s.scraper.EXPECT().
		ScrapeAllPages(gomock.Any(), "residential-to-rent", gomock.Any()).
		Return([]scrape.RawListing{raw}, nil)
	s.normalizer.EXPECT().Normalize(raw).Return([]domain.Listing{listing}, nil)

	s.expectTransactionPassthrough()
	s.listings.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(int64(1), nil)

	stats, err := s.service.Harvest(ctx)

	s.Require().NoError(err)
	s.Equal(1, stats.New)
	s.Equal(0, stats.Published)
}

func (s *HarvestServiceTestSuite) TestHarvest_InsertFailureIsCountedAndSkipsPublish() {
	ctx := context.Background()

	raw := scrape.RawListing{"seoFriendlyPath": "/for-rent/broken/1"}
	listing := domain.Listing{URL: testOrigin + "/for-rent/broken/1", Title: "Broken"}

	s.listings.EXPECT().GetAllURLs(gomock.Any()).Return(nil, nil).Times(2)
	s.scraper.EXPECT().
		ScrapeAllPages(gomock.Any(), "residential-to-rent", gomock.Any()).
		Return([]scrape.RawListing{raw}, nil)
	s.normalizer.EXPECT().Normalize(raw).Return([]domain.Listing{listing}, nil)

	s.expectTransactionPassthrough()
	s.listings.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(int64(0), errors.New("constraint violation"))

	stats, err := s.service.Harvest(ctx)

	s.Require().NoError(err)
	s.Equal(1, stats.Errors)
	s.Equal(0, stats.New)
	s.Equal(0, stats.Published)
}

func (s *HarvestServiceTestSuite) TestHarvest_DuplicateURLWithinBatchInsertedOnce() {
	ctx := context.Background()

	raw := scrape.RawListing{"seoFriendlyPath": "/for-rent/dup/1"}
	listing := domain.Listing{URL: testOrigin + "/for-rent/dup/1", Title: "Dup"}

	s.listings.EXPECT().GetAllURLs(gomock.Any()).Return(nil, nil).Times(2)
	s.scraper.EXPECT().
		ScrapeAllPages(gomock.Any(), "residential-to-rent", gomock.Any()).
		Return([]scrape.RawListing{raw}, nil)
	s.normalizer.EXPECT().Normalize(raw).Return([]domain.Listing{listing, listing}, nil)

	s.expectTransactionPassthrough()
	s.listings.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(int64(1), nil).Times(1)
	s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	stats, err := s.service.Harvest(ctx)

	s.Require().NoError(err)
	s.Equal(1, stats.New)
	s.Equal(1, stats.Skipped)
}
