package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"datafeeder/internal/domain"
)

type GameStore struct {
	db *sqlx.DB
}

func NewGameStore(db *sqlx.DB) *GameStore {
	return &GameStore{db: db}
}

// ListEANs returns the set of catalog codes.
func (s *GameStore) ListEANs(ctx context.Context) (map[int64]struct{}, error) {
	rows, err := GetExecutor(ctx, s.db).QueryContext(ctx, "SELECT ean FROM games")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[int64]struct{})
	for rows.Next() {
		var ean int64
		if err := rows.Scan(&ean); err != nil {
			return nil, err
		}
		result[ean] = struct{}{}
	}

	return result, rows.Err()
}

// DeleteAll removes every game. Offers go with them through the foreign key.
func (s *GameStore) DeleteAll(ctx context.Context) (int64, error) {
	res, err := GetExecutor(ctx, s.db).ExecContext(ctx, "DELETE FROM games")
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *GameStore) Upsert(ctx context.Context, game *domain.Game) (bool, error) {
	query := `
		INSERT INTO games (ean, name, description, new, last_lowest_price)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (ean) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			new = EXCLUDED.new,
			last_lowest_price = EXCLUDED.last_lowest_price
		RETURNING (xmax = 0)`

	var created bool
	err := GetExecutor(ctx, s.db).QueryRowxContext(ctx, query,
		game.EAN,
		game.Name,
		game.Description,
		game.New,
		game.LastLowestPrice,
	).Scan(&created)
	if err != nil {
		return false, err
	}

	return created, nil
}

// ListWithOffers returns every game ordered by EAN with all of its offers.
func (s *GameStore) ListWithOffers(ctx context.Context) ([]domain.Game, error) {
	exec := GetExecutor(ctx, s.db)

	var games []domain.Game
	err := sqlx.SelectContext(ctx, exec, &games,
		"SELECT ean, name, description, new, last_lowest_price FROM games ORDER BY ean")
	if err != nil {
		return nil, err
	}
	if len(games) == 0 {
		return games, nil
	}

	var offers []domain.Offer
	err = sqlx.SelectContext(ctx, exec, &offers, `
		SELECT affiliate_id, game_ean, category_id, price, stock, description, image, link
		FROM affiliate_offers
		ORDER BY game_ean, affiliate_id`)
	if err != nil {
		return nil, err
	}

	index := make(map[int64]int, len(games))
	for i, g := range games {
		index[g.EAN] = i
	}
	for _, o := range offers {
		if i, ok := index[o.GameEAN]; ok {
			games[i].Offers = append(games[i].Offers, o)
		}
	}

	return games, nil
}

func (s *GameStore) UpdateLastLowestPrice(ctx context.Context, ean int64, price float64) error {
	_, err := GetExecutor(ctx, s.db).ExecContext(ctx,
		"UPDATE games SET last_lowest_price = $2 WHERE ean = $1",
		ean, price,
	)
	return err
}
