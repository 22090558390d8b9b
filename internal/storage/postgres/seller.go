package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/surenab/real-estate-scrapers/internal/domain"
)

type SellerStore struct {
	db        *sqlx.DB
	addresses *AddressStore
}

func NewSellerStore(db *sqlx.DB) *SellerStore {
	return &SellerStore{db: db, addresses: NewAddressStore(db)}
}

// FindOrCreate resolves a seller by the upstream seller id, which is
// shared across all of that seller's listings.
func (s *SellerStore) FindOrCreate(ctx context.Context, seller *domain.Seller) (int64, error) {
	ex := executor(ctx, s.db)

	var id int64
	err := sqlx.GetContext(ctx, ex, &id,
		"SELECT id FROM sellers WHERE seller_id = $1", seller.SellerID)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}

	var addressID *int64
	if seller.Address != nil {
		resolved, err := s.addresses.FindOrCreate(ctx, seller.Address)
		if err != nil {
			return 0, err
		}
		addressID = &resolved
	}

	insertQuery := `
		INSERT INTO sellers (
			seller_id, name, phone, branch, address_id, profile_image,
			profile_rounded_image, standard_logo, square_logo,
			background_colour, seller_type, available
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`

	err = sqlx.GetContext(ctx, ex, &id, insertQuery,
		seller.SellerID,
		seller.Name,
		seller.Phone,
		seller.Branch,
		addressID,
		seller.ProfileImage,
		seller.ProfileRoundedImage,
		seller.StandardLogo,
		seller.SquareLogo,
		seller.BackgroundColour,
		seller.SellerType,
		seller.Available,
	)
	if err != nil {
		return 0, err
	}
	return id, nil
}
