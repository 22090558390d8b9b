package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/surenab/real-estate-scrapers/internal/domain"
)

type AddressStore struct {
	db *sqlx.DB
}

func NewAddressStore(db *sqlx.DB) *AddressStore {
	return &AddressStore{db: db}
}

// FindOrCreate resolves an address by its full natural key, inserting it
// when no identical row exists.
func (s *AddressStore) FindOrCreate(ctx context.Context, address *domain.Address) (int64, error) {
	ex := executor(ctx, s.db)

	findQuery := `
		SELECT id FROM addresses
		WHERE address1 IS NOT DISTINCT FROM $1
		  AND address2 IS NOT DISTINCT FROM $2
		  AND address3 IS NOT DISTINCT FROM $3
		  AND address4 IS NOT DISTINCT FROM $4
		  AND city = $5
		  AND postal_code = $6
		  AND county = $7
		  AND country = $8
		  AND latitude = $9
		  AND longitude = $10
		  AND local_authority IS NOT DISTINCT FROM $11`

	var id int64
	err := sqlx.GetContext(ctx, ex, &id, findQuery,
		address.Address1,
		address.Address2,
		address.Address3,
		address.Address4,
		address.City,
		address.PostalCode,
		address.County,
		address.Country,
		address.Latitude,
		address.Longitude,
		address.LocalAuthority,
	)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}

	insertQuery := `
		INSERT INTO addresses (
			address1, address2, address3, address4, city, postal_code,
			county, country, latitude, longitude, local_authority
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`

	err = sqlx.GetContext(ctx, ex, &id, insertQuery,
		address.Address1,
		address.Address2,
		address.Address3,
		address.Address4,
		address.City,
		address.PostalCode,
		address.County,
		address.Country,
		address.Latitude,
		address.Longitude,
		address.LocalAuthority,
	)
	if err != nil {
		return 0, err
	}
	return id, nil
}
