package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"datafeeder/internal/domain"
	"datafeeder/internal/feed"
	"datafeeder/internal/parser"
)

// CatalogConfig locates the catalog feed.
type CatalogConfig struct {
	SampleFile string
	URL        string
	Delimiter  rune
}

// CatalogService replaces the game catalog from the catalog feed.
type CatalogService struct {
	source    FeedSource
	games     GameStore
	txManager TransactionManager
	logger    *slog.Logger
	config    CatalogConfig
}

func NewCatalogService(
	source FeedSource,
	games GameStore,
	txManager TransactionManager,
	logger *slog.Logger,
	cfg CatalogConfig,
) *CatalogService {
	return &CatalogService{
		source:    source,
		games:     games,
		txManager: txManager,
		logger:    logger,
		config:    cfg,
	}
}

// Replace deletes every game and loads the catalog feed in one transaction:
// either the whole feed is stored or nothing changes. Deleting games removes
// their offers as well.
func (s *CatalogService) Replace(ctx context.Context, useSample bool) (*domain.CatalogStats, error) {
	startTime := time.Now()
	s.logger.Info("starting catalog load", "use_sample", useSample)

	f, err := s.fetch(ctx, useSample)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	if f == nil {
		return &domain.CatalogStats{}, nil
	}

	games, err := s.parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	stats := &domain.CatalogStats{}
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		deleted, err := s.games.DeleteAll(txCtx)
		if err != nil {
			return fmt.Errorf("delete games: %w", err)
		}
		stats.Deleted = deleted

		for i := range games {
			created, err := s.games.Upsert(txCtx, &games[i])
			if err != nil {
				return fmt.Errorf("upsert game %d: %w", games[i].EAN, err)
			}
			if created {
				stats.Added++
			} else {
				stats.Updated++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	stats.Duration = time.Since(startTime)

	s.logger.Info("completed catalog load",
		"deleted", stats.Deleted,
		"added", stats.Added,
		"updated", stats.Updated,
		"duration", stats.Duration,
	)

	return stats, nil
}

// fetch returns nil without error when no live catalog source is configured.
func (s *CatalogService) fetch(ctx context.Context, useSample bool) (*feed.Feed, error) {
	if useSample {
		s.logger.Info("using sample catalog", "path", s.config.SampleFile)
		return s.source.FetchFile(s.config.SampleFile)
	}
	if s.config.URL == "" {
		s.logger.Warn("no live catalog source configured, use sample data instead")
		return nil, nil
	}
	return s.source.FetchURL(ctx, s.config.URL)
}

func (s *CatalogService) parse(f *feed.Feed) ([]domain.Game, error) {
	delimiter := s.config.Delimiter
	if f.Delimiter != 0 {
		delimiter = f.Delimiter
	}

	dec, err := feed.NewDecoder(f.Lines, delimiter)
	if err != nil {
		return nil, err
	}

	var games []domain.Game
	for line := 2; ; line++ {
		row, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return games, nil
		}
		if err != nil {
			return nil, err
		}

		game, ok, err := parser.ParseCatalogRow(row)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", line, err)
		}
		if !ok {
			s.logger.Debug("skipping catalog row without SKU", "record", line)
			continue
		}
		games = append(games, game)
	}
}
