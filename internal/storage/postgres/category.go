package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/surenab/real-estate-scrapers/internal/domain"
)

type CategoryStore struct {
	db *sqlx.DB
}

func NewCategoryStore(db *sqlx.DB) *CategoryStore {
	return &CategoryStore{db: db}
}

// FindOrCreate resolves the leaf of a category chain, ensuring every
// ancestor exists first. The chain is walked root to leaf, carrying the
// resolved parent id forward; identity is (name, parent id).
func (s *CategoryStore) FindOrCreate(ctx context.Context, leaf *domain.Category) (int64, error) {
	ex := executor(ctx, s.db)

	var parentID *int64
	var id int64
	for _, name := range leaf.Names() {
		err := sqlx.GetContext(ctx, ex, &id,
			"SELECT id FROM categories WHERE name = $1 AND parent_id IS NOT DISTINCT FROM $2",
			name, parentID)
		if errors.Is(err, sql.ErrNoRows) {
			err = sqlx.GetContext(ctx, ex, &id,
				"INSERT INTO categories (name, parent_id) VALUES ($1, $2) RETURNING id",
				name, parentID)
		}
		if err != nil {
			return 0, err
		}
		resolved := id
		parentID = &resolved
	}

	return id, nil
}
