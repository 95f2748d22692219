package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"datafeeder/internal/domain"
)

type AffiliateStore struct {
	db *sqlx.DB
}

func NewAffiliateStore(db *sqlx.DB) *AffiliateStore {
	return &AffiliateStore{db: db}
}

func (s *AffiliateStore) ListEnabled(ctx context.Context) ([]domain.Affiliate, error) {
	query := `
		SELECT id, name, program, enabled, data_source_url, tariff,
			shipping_nl, shipping_be, free_shipping_nl, free_shipping_be, shipping_note
		FROM affiliates
		WHERE enabled
		ORDER BY id`

	var affiliates []domain.Affiliate
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &affiliates, query)
	return affiliates, err
}
