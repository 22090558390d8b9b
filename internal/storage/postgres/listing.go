package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/surenab/real-estate-scrapers/internal/domain"
)

// ListingStore persists canonical listings together with their owned
// rows (images, price history) and shared references (address, seller,
// ber, offers, category).
type ListingStore struct {
	db         *sqlx.DB
	addresses  *AddressStore
	sellers    *SellerStore
	categories *CategoryStore
}

func NewListingStore(db *sqlx.DB) *ListingStore {
	return &ListingStore{
		db:         db,
		addresses:  NewAddressStore(db),
		sellers:    NewSellerStore(db),
		categories: NewCategoryStore(db),
	}
}

// GetAllURLs returns the url of every stored listing. Callers seed the
// run's ignore-set from it.
func (s *ListingStore) GetAllURLs(ctx context.Context) ([]string, error) {
	var urls []string
	err := sqlx.SelectContext(ctx, executor(ctx, s.db), &urls, "SELECT url FROM listings")
	if err != nil {
		return nil, err
	}
	return urls, nil
}

// Insert stores one listing and all of its dependent rows. Run it inside
// a transaction so partially-written listings never survive.
func (s *ListingStore) Insert(ctx context.Context, listing *domain.Listing) (int64, error) {
	ex := executor(ctx, s.db)

	var addressID, sellerID, berID, offersID, categoryID *int64

	if listing.Address != nil {
		id, err := s.addresses.FindOrCreate(ctx, listing.Address)
		if err != nil {
			return 0, err
		}
		addressID = &id
	}
	if listing.Seller != nil {
		id, err := s.sellers.FindOrCreate(ctx, listing.Seller)
		if err != nil {
			return 0, err
		}
		sellerID = &id
	}
	if listing.Ber != nil {
		id, err := s.findOrCreateBer(ctx, listing.Ber)
		if err != nil {
			return 0, err
		}
		berID = &id
	}
	if listing.Offers != nil {
		id, err := s.insertOffers(ctx, listing.Offers)
		if err != nil {
			return 0, err
		}
		offersID = &id
	}
	if listing.Category != nil {
		id, err := s.categories.FindOrCreate(ctx, listing.Category)
		if err != nil {
			return 0, err
		}
		categoryID = &id
	}

	insertQuery := `
		INSERT INTO listings (
			url, title, seo_title, publish_date, property_type, advert_type,
			sold, address_id, seller_id, ber_id, offers_id, category_id,
			brochure, about, description, developer_name, rent_frequency,
			bedrooms, bathrooms, size_sq_m, floor_area_sq_m,
			construction_year, date_of_construction
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23
		)
		RETURNING id`

	var listingID int64
	err := sqlx.GetContext(ctx, ex, &listingID, insertQuery,
		listing.URL,
		listing.Title,
		listing.SeoTitle,
		listing.PublishDate,
		listing.PropertyType,
		string(listing.AdvertType),
		listing.Sold,
		addressID,
		sellerID,
		berID,
		offersID,
		categoryID,
		listing.Brochure,
		listing.About,
		listing.Description,
		listing.DeveloperName,
		listing.RentFrequency,
		listing.Bedrooms,
		listing.Bathrooms,
		listing.SizeSqM,
		listing.FloorAreaSqM,
		listing.ConstructionYear,
		listing.DateOfConstruction,
	)
	if err != nil {
		return 0, err
	}

	for _, image := range listing.Images {
		_, err := ex.ExecContext(ctx,
			"INSERT INTO listing_images (listing_id, url, size_name) VALUES ($1, $2, $3)",
			listingID, image.URL, image.SizeName)
		if err != nil {
			return 0, err
		}
	}

	for _, entry := range listing.PriceHistory {
		_, err := ex.ExecContext(ctx, `
			INSERT INTO price_history (
				listing_id, price, currency, timestamp, current, source, category
			) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			listingID,
			entry.Price,
			entry.Currency,
			entry.Timestamp,
			entry.Current,
			entry.Source,
			string(entry.Category),
		)
		if err != nil {
			return 0, err
		}
	}

	return listingID, nil
}

func (s *ListingStore) findOrCreateBer(ctx context.Context, ber *domain.Ber) (int64, error) {
	ex := executor(ctx, s.db)

	var id int64
	err := sqlx.GetContext(ctx, ex, &id, `
		SELECT id FROM ber
		WHERE rating IS NOT DISTINCT FROM $1
		  AND code IS NOT DISTINCT FROM $2
		  AND epi IS NOT DISTINCT FROM $3`,
		ber.Rating, ber.Code, ber.EPI)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}

	err = sqlx.GetContext(ctx, ex, &id,
		"INSERT INTO ber (rating, code, epi) VALUES ($1, $2, $3) RETURNING id",
		ber.Rating, ber.Code, ber.EPI)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *ListingStore) insertOffers(ctx context.Context, offers *domain.Offers) (int64, error) {
	var id int64
	err := sqlx.GetContext(ctx, executor(ctx, s.db), &id, `
		INSERT INTO offers (
			awaiting_bidders, booking_deposit, highest_offer,
			highest_offer_currency, make_offer_private, minimum_increment,
			minimum_offer_amount, offers_count, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		offers.AwaitingBidders,
		offers.BookingDeposit,
		offers.HighestOffer,
		offers.HighestOfferCurrency,
		offers.MakeOfferPrivate,
		offers.MinimumIncrement,
		offers.MinimumOfferAmount,
		offers.OffersCount,
		offers.Status,
	)
	if err != nil {
		return 0, err
	}
	return id, nil
}
