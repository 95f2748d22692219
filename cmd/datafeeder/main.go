package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"datafeeder/internal/config"
	"datafeeder/internal/export"
	"datafeeder/internal/feed"
	"datafeeder/internal/publisher"
	"datafeeder/internal/scheduler"
	"datafeeder/internal/service"
	"datafeeder/internal/storage/postgres"
)

const usage = `usage: datafeeder [-config path] <command> [flags]

commands:
  categories         discover affiliate categories
  prices             update affiliate offers
  import-catalog     replace the game catalog
  export             write the shop import file
  toggle-categories  include or exclude categories
`

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	logger := setupLogger("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	if err := run(ctx, cfg, logger, flag.Arg(0), flag.Args()[1:]); err != nil {
		logger.Error("command failed", "command", flag.Arg(0), "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, command string, args []string) error {
	fs := flag.NewFlagSet(command, flag.ExitOnError)

	switch command {
	case "categories":
		useSample := fs.Bool("sample", false, "read the local sample feeds")
		_ = fs.Parse(args)
		return withApp(cfg, logger, func(a *app) error {
			_, err := a.categoryService().Discover(ctx, *useSample)
			return err
		})

	case "prices":
		useSample := fs.Bool("sample", false, "read the local sample feeds")
		every := fs.Duration("every", cfg.Schedule.Interval, "repeat the update at this interval")
		_ = fs.Parse(args)
		return withApp(cfg, logger, func(a *app) error {
			prices, err := a.priceService()
			if err != nil {
				return err
			}
			defer prices.close()

			update := func(ctx context.Context) error {
				_, err := prices.Update(ctx, *useSample)
				return err
			}
			if *every <= 0 {
				return update(ctx)
			}

			sched := scheduler.NewScheduler(scheduler.JobFunc(update), *every, cfg.Schedule.RunTimeout, logger)
			if err := sched.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})

	case "import-catalog":
		useSample := fs.Bool("sample", false, "read the local sample catalog")
		_ = fs.Parse(args)
		return withApp(cfg, logger, func(a *app) error {
			_, err := a.catalogService().Replace(ctx, *useSample)
			return err
		})

	case "export":
		out := fs.String("out", cfg.Export.Path, "output file, .xlsx for a spreadsheet")
		_ = fs.Parse(args)
		return withApp(cfg, logger, func(a *app) error {
			_, err := export.NewExporter(postgres.NewGameStore(a.db), logger).Export(ctx, *out)
			return err
		})

	case "toggle-categories":
		rawIDs := fs.String("ids", "", "comma separated category ids")
		include := fs.Bool("include", true, "include (true) or exclude (false) the categories")
		_ = fs.Parse(args)

		ids, err := parseIDs(*rawIDs)
		if err != nil {
			return err
		}
		return withApp(cfg, logger, func(a *app) error {
			_, err := a.categoryService().SetInclude(ctx, ids, *include)
			return err
		})

	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

type app struct {
	cfg    *config.Config
	db     *sqlx.DB
	logger *slog.Logger
}

func withApp(cfg *config.Config, logger *slog.Logger, fn func(a *app) error) error {
	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	logger.Info("connected to database")

	return fn(&app{cfg: cfg, db: db, logger: logger})
}

func (a *app) fetcher() *feed.Fetcher {
	return feed.NewFetcher(feed.Config{
		Timeout:           a.cfg.Fetch.Timeout,
		UserAgent:         a.cfg.Fetch.UserAgent,
		RequestsPerSecond: a.cfg.Fetch.RequestsPerSecond,
		Samples:           a.cfg.Sample,
	}, a.logger)
}

func (a *app) categoryService() *service.CategoryService {
	return service.NewCategoryService(
		postgres.NewAffiliateStore(a.db),
		postgres.NewCategoryStore(a.db),
		service.NewProcessor(a.fetcher(), a.logger),
		a.logger,
	)
}

type priceRunner struct {
	*service.PriceService
	publisher service.Publisher
}

func (p *priceRunner) close() {
	if p.publisher != nil {
		_ = p.publisher.Close()
	}
}

func (a *app) priceService() (*priceRunner, error) {
	var pub service.Publisher
	if a.cfg.RabbitMQ.Enabled {
		rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
			URL:        a.cfg.RabbitMQ.URL,
			Exchange:   a.cfg.RabbitMQ.Exchange,
			RoutingKey: a.cfg.RabbitMQ.RoutingKey,
			QueueName:  a.cfg.RabbitMQ.QueueName,
		}, a.logger)
		if err != nil {
			return nil, err
		}
		pub = rabbitMQ
	}

	prices := service.NewPriceService(
		postgres.NewAffiliateStore(a.db),
		postgres.NewGameStore(a.db),
		postgres.NewCategoryStore(a.db),
		postgres.NewOfferStore(a.db),
		postgres.NewSyncStateStore(a.db),
		service.NewProcessor(a.fetcher(), a.logger),
		pub,
		a.logger,
	)
	return &priceRunner{PriceService: prices, publisher: pub}, nil
}

func (a *app) catalogService() *service.CatalogService {
	return service.NewCatalogService(
		a.fetcher(),
		postgres.NewGameStore(a.db),
		postgres.NewTransactionManager(a.db),
		a.logger,
		service.CatalogConfig{
			SampleFile: a.cfg.Catalog.SampleFile,
			URL:        a.cfg.Catalog.URL,
			Delimiter:  a.cfg.Catalog.DelimiterRune(),
		},
	)
}

func parseIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid category id %q", part)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, errors.New("no category ids given")
	}
	return ids, nil
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
