package feed

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/time/rate"

	"datafeeder/internal/config"
	"datafeeder/internal/domain"
)

// Config holds feed fetcher configuration.
type Config struct {
	Timeout           time.Duration
	UserAgent         string
	RequestsPerSecond float64
	Samples           config.SampleConfig
}

// Feed is the raw text of one feed split into lines.
type Feed struct {
	Source    string
	Lines     []string
	Delimiter rune
}

// Fetcher resolves affiliate feeds from sample files or over HTTP.
type Fetcher struct {
	client  *resty.Client
	limiter *rate.Limiter
	samples config.SampleConfig
	logger  *slog.Logger
}

func NewFetcher(cfg Config, logger *slog.Logger) *Fetcher {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", cfg.UserAgent)

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &Fetcher{
		client:  client,
		limiter: rate.NewLimiter(limit, 1),
		samples: cfg.Samples,
		logger:  logger,
	}
}

// Fetch returns the feed of an affiliate. In sample mode the affiliate name is
// looked up in the sample table; domain.ErrNoSampleData is returned when it has
// no entry.
func (f *Fetcher) Fetch(ctx context.Context, affiliate domain.Affiliate, useSample bool) (*Feed, error) {
	if useSample {
		path, ok := f.samples.Path(affiliate.Name)
		if !ok {
			return nil, fmt.Errorf("%w for %s", domain.ErrNoSampleData, affiliate.Name)
		}
		f.logger.Info("using sample data", "affiliate", affiliate.Name, "path", path)
		return f.FetchFile(path)
	}

	f.logger.Info("retrieving remote data", "affiliate", affiliate.Name)
	return f.FetchURL(ctx, affiliate.DataSourceURL)
}

func (f *Fetcher) FetchFile(path string) (*Feed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &domain.FetchError{Source: path, Err: err}
	}

	lines, err := decodeLines(data)
	if err != nil {
		return nil, err
	}
	return &Feed{Source: path, Lines: lines}, nil
}

// FetchURL performs a single GET without retries; a failing feed fails its
// affiliate for this run. Bodies served as application/gzip are decompressed
// before decoding.
func (f *Fetcher) FetchURL(ctx context.Context, url string) (*Feed, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, &domain.FetchError{Source: url, Err: err}
	}

	resp, err := f.client.R().
		SetContext(ctx).
		SetHeader("Accept", "text/csv, application/gzip, */*").
		Get(url)
	if err != nil {
		return nil, &domain.FetchError{Source: url, Err: err}
	}
	if resp.IsError() {
		return nil, &domain.FetchError{Source: url, StatusCode: resp.StatusCode()}
	}

	body := resp.Body()
	if isGzip(resp.Header().Get("Content-Type")) {
		body, err = gunzip(body)
		if err != nil {
			return nil, err
		}
	}

	lines, err := decodeLines(body)
	if err != nil {
		return nil, err
	}

	f.logger.Debug("fetched feed", "url", url, "bytes", len(body), "lines", len(lines))

	return &Feed{Source: url, Lines: lines}, nil
}

func isGzip(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/gzip" || mediaType == "application/x-gzip"
}

func gunzip(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, &domain.DecodeError{Reason: "open gzip", Err: err}
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, &domain.DecodeError{Reason: "decompress gzip", Err: err}
	}
	return out, nil
}

// decodeLines decodes UTF-8 text, dropping a byte order mark, and splits it
// into lines without their terminators.
func decodeLines(data []byte) ([]string, error) {
	if !utf8.Valid(data) {
		return nil, &domain.DecodeError{Reason: "invalid utf-8"}
	}

	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	text, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), decoder))
	if err != nil {
		return nil, &domain.DecodeError{Reason: "decode utf-8", Err: err}
	}

	content := strings.TrimRight(string(text), "\r\n")
	if content == "" {
		return nil, nil
	}

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines, nil
}
