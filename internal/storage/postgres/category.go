package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"datafeeder/internal/domain"
)

type CategoryStore struct {
	db *sqlx.DB
}

func NewCategoryStore(db *sqlx.DB) *CategoryStore {
	return &CategoryStore{db: db}
}

// GetOrCreate returns the category of an affiliate with the given label,
// creating it excluded when missing. created reports whether a row was added.
func (s *CategoryStore) GetOrCreate(ctx context.Context, affiliateID int64, name string) (*domain.Category, bool, error) {
	exec := GetExecutor(ctx, s.db)

	query := `
		INSERT INTO affiliate_categories (affiliate_id, name, include)
		VALUES ($1, $2, FALSE)
		ON CONFLICT (affiliate_id, name) DO NOTHING
		RETURNING id, affiliate_id, name, include`

	var category domain.Category
	err := sqlx.GetContext(ctx, exec, &category, query, affiliateID, name)
	if err == nil {
		return &category, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, err
	}

	err = sqlx.GetContext(ctx, exec, &category,
		"SELECT id, affiliate_id, name, include FROM affiliate_categories WHERE affiliate_id = $1 AND name = $2",
		affiliateID, name,
	)
	if err != nil {
		return nil, false, err
	}
	return &category, false, nil
}

func (s *CategoryStore) ListByAffiliate(ctx context.Context, affiliateID int64) ([]domain.Category, error) {
	var categories []domain.Category
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &categories,
		"SELECT id, affiliate_id, name, include FROM affiliate_categories WHERE affiliate_id = $1 ORDER BY name",
		affiliateID,
	)
	return categories, err
}

func (s *CategoryStore) SetInclude(ctx context.Context, ids []int64, include bool) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	res, err := GetExecutor(ctx, s.db).ExecContext(ctx,
		"UPDATE affiliate_categories SET include = $1 WHERE id = ANY($2)",
		include, pq.Array(ids),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
