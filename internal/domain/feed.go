package domain

import "time"

// FeedRecord is the affiliate-agnostic shape every row parser produces.
type FeedRecord struct {
	EAN         int64
	Price       float64
	Stock       int
	Description string
	Category    string
	Image       string
	Link        string
}

// AffiliateResult is the outcome of processing one affiliate feed. Err is set
// when the feed was abandoned; Records is then empty.
type AffiliateResult struct {
	Affiliate Affiliate
	Records   []FeedRecord
	Err       error
}

func (r AffiliateResult) Failed() bool {
	return r.Err != nil
}

type SyncState struct {
	ID              int64     `db:"id"`
	AffiliateID     int64     `db:"affiliate_id"`
	LastSyncedAt    time.Time `db:"last_synced_at"`
	LastRecordCount int       `db:"last_record_count"`
	TotalSynced     int64     `db:"total_synced"`
	LastError       *string   `db:"last_error"`
}
