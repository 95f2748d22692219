package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"datafeeder/internal/domain"
	"datafeeder/internal/feed"
)

type AffiliateStore interface {
	ListEnabled(ctx context.Context) ([]domain.Affiliate, error)
}

type GameStore interface {
	ListEANs(ctx context.Context) (map[int64]struct{}, error)
	DeleteAll(ctx context.Context) (int64, error)
	Upsert(ctx context.Context, game *domain.Game) (bool, error)
	ListWithOffers(ctx context.Context) ([]domain.Game, error)
	UpdateLastLowestPrice(ctx context.Context, ean int64, price float64) error
}

type CategoryStore interface {
	GetOrCreate(ctx context.Context, affiliateID int64, name string) (*domain.Category, bool, error)
	ListByAffiliate(ctx context.Context, affiliateID int64) ([]domain.Category, error)
	SetInclude(ctx context.Context, ids []int64, include bool) (int64, error)
}

type OfferStore interface {
	Upsert(ctx context.Context, offer *domain.Offer) (bool, error)
}

type SyncStateStore interface {
	Get(ctx context.Context, affiliateID int64) (*domain.SyncState, error)
	Update(ctx context.Context, state *domain.SyncState) error
}

type FeedSource interface {
	Fetch(ctx context.Context, affiliate domain.Affiliate, useSample bool) (*feed.Feed, error)
	FetchFile(path string) (*feed.Feed, error)
	FetchURL(ctx context.Context, url string) (*feed.Feed, error)
}

type AffiliateProcessor interface {
	Process(ctx context.Context, affiliate domain.Affiliate, useSample bool, known map[int64]struct{}) domain.AffiliateResult
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Publisher interface {
	PublishOffer(ctx context.Context, offer *domain.Offer, isNew bool) error
	Close() error
}
