package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"datafeeder/internal/domain"
)

// CategoryReconciler makes sure every category label of a feed has a row.
type CategoryReconciler struct {
	categories CategoryStore
}

func NewCategoryReconciler(categories CategoryStore) *CategoryReconciler {
	return &CategoryReconciler{categories: categories}
}

// Reconcile creates the missing categories of an affiliate and returns how
// many were created. New categories start excluded.
func (r *CategoryReconciler) Reconcile(ctx context.Context, affiliate domain.Affiliate, records []domain.FeedRecord) (int, error) {
	created := 0
	for _, label := range categoryLabels(records) {
		_, isNew, err := r.categories.GetOrCreate(ctx, affiliate.ID, label)
		if err != nil {
			return created, fmt.Errorf("get or create category %q: %w", label, err)
		}
		if isNew {
			created++
		}
	}
	return created, nil
}

func categoryLabels(records []domain.FeedRecord) []string {
	seen := make(map[string]struct{})
	var labels []string
	for _, r := range records {
		if r.Category == "" {
			continue
		}
		if _, ok := seen[r.Category]; ok {
			continue
		}
		seen[r.Category] = struct{}{}
		labels = append(labels, r.Category)
	}
	sort.Strings(labels)
	return labels
}

type CategoryService struct {
	affiliates AffiliateStore
	categories CategoryStore
	processor  AffiliateProcessor
	reconciler *CategoryReconciler
	logger     *slog.Logger
}

func NewCategoryService(
	affiliates AffiliateStore,
	categories CategoryStore,
	processor AffiliateProcessor,
	logger *slog.Logger,
) *CategoryService {
	return &CategoryService{
		affiliates: affiliates,
		categories: categories,
		processor:  processor,
		reconciler: NewCategoryReconciler(categories),
		logger:     logger,
	}
}

// Discover reads every enabled affiliate feed and registers the categories it
// has not seen before. A failing affiliate is logged and skipped.
func (s *CategoryService) Discover(ctx context.Context, useSample bool) (*domain.RunStats, error) {
	startTime := time.Now()
	stats := &domain.RunStats{RunID: uuid.NewString()}
	logger := s.logger.With("run_id", stats.RunID)

	logger.Info("starting category update", "use_sample", useSample)

	affiliates, err := s.affiliates.ListEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("list affiliates: %w", err)
	}
	stats.Affiliates = len(affiliates)

	for _, affiliate := range affiliates {
		logger.Info("processing affiliate", "affiliate", affiliate.Name, "program", affiliate.Program)

		result := s.processor.Process(ctx, affiliate, useSample, nil)
		if result.Failed() {
			stats.Failed++
			continue
		}
		stats.Records += len(result.Records)

		created, err := s.reconciler.Reconcile(ctx, affiliate, result.Records)
		stats.Created += created
		if err != nil {
			stats.Failed++
			logger.Error("failed to store categories", "affiliate", affiliate.Name, "error", err)
			continue
		}

		logger.Info("added categories", "affiliate", affiliate.Name, "created", created)
	}

	stats.Duration = time.Since(startTime)

	logger.Info("completed category update",
		"affiliates", stats.Affiliates,
		"failed", stats.Failed,
		"created", stats.Created,
		"duration", stats.Duration,
	)

	return stats, nil
}

// SetInclude opts categories in or out of the price comparison.
func (s *CategoryService) SetInclude(ctx context.Context, ids []int64, include bool) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	n, err := s.categories.SetInclude(ctx, ids, include)
	if err != nil {
		return 0, fmt.Errorf("set include: %w", err)
	}

	s.logger.Info("updated categories", "count", n, "include", include)
	return n, nil
}
