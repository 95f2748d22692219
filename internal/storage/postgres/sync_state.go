package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"datafeeder/internal/domain"
)

type SyncStateStore struct {
	db *sqlx.DB
}

func NewSyncStateStore(db *sqlx.DB) *SyncStateStore {
	return &SyncStateStore{db: db}
}

func (s *SyncStateStore) Get(ctx context.Context, affiliateID int64) (*domain.SyncState, error) {
	var state domain.SyncState
	query := `
		SELECT id, affiliate_id, last_synced_at, last_record_count, total_synced, last_error
		FROM affiliate_sync_state
		WHERE affiliate_id = $1`

	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &state, query, affiliateID)
	if errors.Is(err, sql.ErrNoRows) {
		// never synced
		return &domain.SyncState{AffiliateID: affiliateID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *SyncStateStore) Update(ctx context.Context, state *domain.SyncState) error {
	query := `
		INSERT INTO affiliate_sync_state (affiliate_id, last_synced_at, last_record_count, total_synced, last_error)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (affiliate_id) DO UPDATE SET
			last_synced_at = EXCLUDED.last_synced_at,
			last_record_count = EXCLUDED.last_record_count,
			total_synced = EXCLUDED.total_synced,
			last_error = EXCLUDED.last_error`

	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, query,
		state.AffiliateID,
		state.LastSyncedAt,
		state.LastRecordCount,
		state.TotalSynced,
		state.LastError,
	)
	return err
}
