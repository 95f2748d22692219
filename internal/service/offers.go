package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"datafeeder/internal/domain"
)

// OfferStats counts the outcome of reconciling one affiliate's offers.
type OfferStats struct {
	Created       int
	Updated       int
	Published     int
	PublishFailed int
}

// OfferReconciler writes feed records as affiliate offers.
type OfferReconciler struct {
	offers    OfferStore
	publisher Publisher
	logger    *slog.Logger
}

func NewOfferReconciler(offers OfferStore, publisher Publisher, logger *slog.Logger) *OfferReconciler {
	return &OfferReconciler{
		offers:    offers,
		publisher: publisher,
		logger:    logger,
	}
}

// Reconcile upserts one offer per record. Records must already be limited to
// known games. Offers missing from the feed are left as they are. The first
// store error stops the affiliate; rows written before it stay written.
func (r *OfferReconciler) Reconcile(
	ctx context.Context,
	affiliate domain.Affiliate,
	records []domain.FeedRecord,
	categories map[string]domain.Category,
) (OfferStats, error) {
	var stats OfferStats

	for _, record := range records {
		offer := NewOffer(affiliate.ID, record, categories)

		created, err := r.offers.Upsert(ctx, &offer)
		if err != nil {
			return stats, fmt.Errorf("upsert offer %d: %w", record.EAN, err)
		}
		if created {
			stats.Created++
		} else {
			stats.Updated++
		}

		if r.publisher != nil {
			if err := r.publisher.PublishOffer(ctx, &offer, created); err != nil {
				stats.PublishFailed++
				r.logger.Warn("failed to publish offer", "ean", offer.GameEAN, "error", err)
			} else {
				stats.Published++
			}
		}
	}

	return stats, nil
}

// NewOffer maps a feed record onto an offer. An offer without a price is never
// in stock.
func NewOffer(affiliateID int64, record domain.FeedRecord, categories map[string]domain.Category) domain.Offer {
	offer := domain.Offer{
		AffiliateID: affiliateID,
		GameEAN:     record.EAN,
		Price:       record.Price,
		Description: record.Description,
		Image:       record.Image,
		Link:        record.Link,
	}
	if record.Price != 0 {
		offer.Stock = record.Stock
	}
	if category, ok := categories[record.Category]; ok && record.Category != "" {
		id := category.ID
		offer.CategoryID = &id
	}
	return offer
}

type PriceService struct {
	affiliates AffiliateStore
	games      GameStore
	categories CategoryStore
	syncState  SyncStateStore
	processor  AffiliateProcessor
	reconciler *OfferReconciler
	logger     *slog.Logger
}

func NewPriceService(
	affiliates AffiliateStore,
	games GameStore,
	categories CategoryStore,
	offers OfferStore,
	syncState SyncStateStore,
	processor AffiliateProcessor,
	publisher Publisher,
	logger *slog.Logger,
) *PriceService {
	return &PriceService{
		affiliates: affiliates,
		games:      games,
		categories: categories,
		syncState:  syncState,
		processor:  processor,
		reconciler: NewOfferReconciler(offers, publisher, logger),
		logger:     logger,
	}
}

// Update refreshes the offers of every enabled affiliate from its feed.
// Affiliates are handled one after the other; a failing affiliate is logged and
// skipped.
func (s *PriceService) Update(ctx context.Context, useSample bool) (*domain.RunStats, error) {
	startTime := time.Now()
	stats := &domain.RunStats{RunID: uuid.NewString()}
	logger := s.logger.With("run_id", stats.RunID)

	logger.Info("starting price update", "use_sample", useSample)

	affiliates, err := s.affiliates.ListEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("list affiliates: %w", err)
	}
	stats.Affiliates = len(affiliates)

	known, err := s.games.ListEANs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}

	for _, affiliate := range affiliates {
		logger.Info("processing affiliate", "affiliate", affiliate.Name, "program", affiliate.Program)

		offerStats, err := s.updateAffiliate(ctx, affiliate, useSample, known, stats)
		stats.Created += offerStats.Created
		stats.Updated += offerStats.Updated
		stats.Published += offerStats.Published
		if err != nil {
			stats.Failed++
			continue
		}

		logger.Info("updated prices",
			"affiliate", affiliate.Name,
			"updated", offerStats.Updated,
			"created", offerStats.Created,
		)
	}

	stats.Duration = time.Since(startTime)

	logger.Info("completed price update",
		"affiliates", stats.Affiliates,
		"failed", stats.Failed,
		"created", stats.Created,
		"updated", stats.Updated,
		"published", stats.Published,
		"duration", stats.Duration,
	)

	return stats, nil
}

func (s *PriceService) updateAffiliate(
	ctx context.Context,
	affiliate domain.Affiliate,
	useSample bool,
	known map[int64]struct{},
	stats *domain.RunStats,
) (OfferStats, error) {
	result := s.processor.Process(ctx, affiliate, useSample, known)
	if result.Failed() {
		s.recordSync(ctx, affiliate, 0, 0, result.Err)
		return OfferStats{}, result.Err
	}
	stats.Records += len(result.Records)

	categories, err := s.categoryIndex(ctx, affiliate.ID)
	if err != nil {
		s.logger.Error("failed to load categories", "affiliate", affiliate.Name, "error", err)
		s.recordSync(ctx, affiliate, len(result.Records), 0, err)
		return OfferStats{}, err
	}

	offerStats, err := s.reconciler.Reconcile(ctx, affiliate, result.Records, categories)
	if err != nil {
		s.logger.Error("failed to store offers", "affiliate", affiliate.Name, "error", err)
	}
	s.recordSync(ctx, affiliate, len(result.Records), offerStats.Created+offerStats.Updated, err)

	return offerStats, err
}

func (s *PriceService) categoryIndex(ctx context.Context, affiliateID int64) (map[string]domain.Category, error) {
	categories, err := s.categories.ListByAffiliate(ctx, affiliateID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	index := make(map[string]domain.Category, len(categories))
	for _, c := range categories {
		index[c.Name] = c
	}
	return index, nil
}

// recordSync stores the outcome of an affiliate run. Failures are only logged.
func (s *PriceService) recordSync(ctx context.Context, affiliate domain.Affiliate, records, written int, runErr error) {
	if s.syncState == nil {
		return
	}

	state, err := s.syncState.Get(ctx, affiliate.ID)
	if err != nil {
		s.logger.Warn("failed to load sync state", "affiliate", affiliate.Name, "error", err)
		return
	}

	state.AffiliateID = affiliate.ID
	state.LastSyncedAt = time.Now()
	state.LastRecordCount = records
	state.TotalSynced += int64(written)
	state.LastError = nil
	if runErr != nil {
		msg := runErr.Error()
		state.LastError = &msg
	}

	if err := s.syncState.Update(ctx, state); err != nil {
		s.logger.Warn("failed to update sync state", "affiliate", affiliate.Name, "error", err)
	}
}
