package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"datafeeder/internal/domain"
	"datafeeder/internal/feed"
	"datafeeder/internal/parser"
)

// Processor turns one affiliate feed into canonical records.
type Processor struct {
	source FeedSource
	logger *slog.Logger
}

func NewProcessor(source FeedSource, logger *slog.Logger) *Processor {
	return &Processor{
		source: source,
		logger: logger,
	}
}

// Process fetches, decodes and parses the feed of one affiliate. With a non-nil
// known set only records for those EANs are kept. Any failure abandons the
// whole feed: the result then carries the error and no records.
func (p *Processor) Process(ctx context.Context, affiliate domain.Affiliate, useSample bool, known map[int64]struct{}) domain.AffiliateResult {
	logger := p.logger.With("affiliate", affiliate.Name, "program", affiliate.Program)
	result := domain.AffiliateResult{Affiliate: affiliate}

	records, err := p.collect(ctx, logger, affiliate, useSample, known)
	switch {
	case errors.Is(err, domain.ErrNoSampleData):
		logger.Info("no sample data, skipping")
	case errors.Is(err, domain.ErrUnknownProgram):
		logger.Warn("unknown affiliate program, skipping")
		result.Err = err
	case err != nil:
		logger.Error("error processing affiliate",
			"error", err,
			"kind", domain.ErrorKind(err),
		)
		result.Err = err
	default:
		result.Records = records
	}

	return result
}

func (p *Processor) collect(
	ctx context.Context,
	logger *slog.Logger,
	affiliate domain.Affiliate,
	useSample bool,
	known map[int64]struct{},
) ([]domain.FeedRecord, error) {
	rowParser, ok := parser.For(affiliate.Program)
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownProgram, affiliate.Program)
	}

	f, err := p.source.Fetch(ctx, affiliate, useSample)
	if err != nil {
		return nil, err
	}

	dec, err := feed.NewDecoder(f.Lines, f.Delimiter)
	if err != nil {
		return nil, err
	}

	var records []domain.FeedRecord
	var skipped, unknown int

	for line := 2; ; line++ {
		row, err := dec.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		record, ok, err := rowParser.Parse(row)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", line, err)
		}
		if !ok {
			skipped++
			continue
		}
		if known != nil {
			if _, found := known[record.EAN]; !found {
				unknown++
				continue
			}
		}

		records = append(records, record)
	}

	logger.Info("parsed feed",
		"source", f.Source,
		"records", len(records),
		"skipped", skipped,
		"unknown", unknown,
	)

	return records, nil
}
