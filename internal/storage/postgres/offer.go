package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"datafeeder/internal/domain"
)

type OfferStore struct {
	db *sqlx.DB
}

func NewOfferStore(db *sqlx.DB) *OfferStore {
	return &OfferStore{db: db}
}

// Upsert writes the offer keyed by (affiliate, game). created is true when no
// offer existed yet.
func (s *OfferStore) Upsert(ctx context.Context, offer *domain.Offer) (bool, error) {
	query := `
		INSERT INTO affiliate_offers (
			affiliate_id, game_ean, category_id, price, stock, description, image, link
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
		ON CONFLICT (affiliate_id, game_ean) DO UPDATE SET
			category_id = EXCLUDED.category_id,
			price = EXCLUDED.price,
			stock = EXCLUDED.stock,
			description = EXCLUDED.description,
			image = EXCLUDED.image,
			link = EXCLUDED.link,
			updated_at = NOW()
		RETURNING (xmax = 0)`

	var created bool
	err := GetExecutor(ctx, s.db).QueryRowxContext(ctx, query,
		offer.AffiliateID,
		offer.GameEAN,
		offer.CategoryID,
		offer.Price,
		offer.Stock,
		offer.Description,
		offer.Image,
		offer.Link,
	).Scan(&created)
	if err != nil {
		return false, err
	}

	return created, nil
}
