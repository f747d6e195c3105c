// Package bootstrap builds the service graph shared by the server and the CLI.
package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"electricity-compare/internal/audit"
	"electricity-compare/internal/config"
	"electricity-compare/internal/contracts/adapters/catalogfeed"
	"electricity-compare/internal/contracts/adapters/spotstats"
	contractapp "electricity-compare/internal/contracts/application"
	contractpg "electricity-compare/internal/contracts/infrastructure/postgres"
	"electricity-compare/internal/db"
	"electricity-compare/internal/estimator"
	"electricity-compare/internal/eventing"
	"electricity-compare/internal/jobs"
	"electricity-compare/internal/referencedata"
	"electricity-compare/internal/spotprice/adapters/dayahead"
	spotapp "electricity-compare/internal/spotprice/application"
	"electricity-compare/internal/spotprice/application/events"
	spotprice "electricity-compare/internal/spotprice/domain"
	spotmemory "electricity-compare/internal/spotprice/infrastructure/memory"
	spotpg "electricity-compare/internal/spotprice/infrastructure/postgres"
	spotredis "electricity-compare/internal/spotprice/infrastructure/redis"
	"electricity-compare/internal/upstream"
	"electricity-compare/internal/vat"
)

// App holds the wired services.
type App struct {
	Config   config.Config
	Logger   *zap.Logger
	Location *time.Location
	DB       *sql.DB
	Redis    *goredis.Client

	Bus       *eventing.InMemoryBus
	Hours     *spotpg.HourRepository
	Averages  *spotpg.AverageRepository
	Contracts *contractpg.ContractRepository
	Postcodes referencedata.Lookup
	Audit     *audit.Repository

	Ingestion   *spotapp.IngestionService
	Aggregation *spotapp.AggregationService
	Engine      *contractapp.PricingEngine
	Ranker      *contractapp.Ranker
	// CatalogSync is nil when no catalog url is configured.
	CatalogSync *contractapp.CatalogSyncService
	Scheduler   *jobs.Scheduler
}

// New opens the database and optional Redis connection and wires every
// service. Callers own the returned App and must Close it.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (app *App, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	loc, err := time.LoadLocation(cfg.Location)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: location: %w", err)
	}
	app = &App{Config: cfg, Logger: logger, Location: loc}
	defer func() {
		if err != nil {
			_ = app.Close()
		}
	}()

	if app.DB, err = db.Open(ctx, cfg.DatabaseURL); err != nil {
		return nil, err
	}
	if cfg.RedisAddr != "" {
		app.Redis = goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		if err = app.Redis.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("bootstrap: redis ping: %w", err)
		}
	}

	if err = app.wire(); err != nil {
		return nil, err
	}
	return app, nil
}

func (a *App) wire() error {
	cfg := a.Config
	logger := a.Logger

	a.Bus = eventing.NewInMemoryBus(logger.Named("events"))
	a.Hours = spotpg.NewHourRepository(a.DB)
	a.Averages = spotpg.NewAverageRepository(a.DB)
	a.Contracts = contractpg.NewContractRepository(a.DB)
	a.Audit = audit.NewRepository(a.DB)
	if len(cfg.StaticPostcodes) > 0 {
		a.Postcodes = referencedata.NewStaticPostcodes(cfg.StaticPostcodes...)
	} else {
		a.Postcodes = referencedata.NewRepository(a.DB)
	}

	vatResolver, err := vat.NewResolver(cfg.Location, nil)
	if err != nil {
		return fmt.Errorf("bootstrap: vat resolver: %w", err)
	}

	var feed spotapp.PriceFeed
	if cfg.DayAheadURL != "" {
		client, err := dayahead.NewClient(cfg.DayAheadURL, logger.Named("dayahead"), a.upstreamOptions(cfg.DayAheadToken)...)
		if err != nil {
			return err
		}
		feed = client
	} else {
		logger.Warn("day-ahead feed not configured; pull ingest disabled")
	}
	a.Ingestion, err = spotapp.NewIngestionService(feed, a.Hours, vatResolver, a.Bus, nil, a.Location, cfg.IngestBatch, logger.Named("ingest"))
	if err != nil {
		return err
	}

	var cache spotprice.LatestAveragesCache = spotmemory.NewLatestAveragesCache()
	if a.Redis != nil {
		cache = spotredis.NewLatestAveragesCache(a.Redis, spotredis.WithTTL(cfg.CacheTTL))
	}
	a.Aggregation, err = spotapp.NewAggregationService(a.Hours, a.Averages, a.Location,
		spotapp.WithCache(cache),
		spotapp.WithPublisher(a.Bus),
		spotapp.WithDailyLookback(cfg.DailyLookback),
		spotapp.WithLogger(logger.Named("aggregation")),
	)
	if err != nil {
		return err
	}
	eventing.Subscribe[events.SpotPricesIngested](a.Bus, "spot.averages", a.Aggregation.HandleSpotPricesIngested)

	a.Engine, err = contractapp.NewPricingEngine(a.Contracts,
		contractapp.WithSpotStatistics(spotstats.NewReader(a.Aggregation, a.Hours)),
		contractapp.WithEmissionsEstimator(estimator.NewEmissions(estimator.DefaultEmissionFactors())),
		contractapp.WithDaySplit(contractapp.DaySplit{
			DayShare:         decimal.NewFromFloat(cfg.DayShare),
			FlexibleDayShare: decimal.NewFromFloat(cfg.FlexibleShare),
		}),
		contractapp.WithLocation(a.Location),
		contractapp.WithLogger(logger.Named("pricing")),
	)
	if err != nil {
		return err
	}
	a.Ranker, err = contractapp.NewRanker(a.Contracts, a.Engine, logger.Named("ranker"))
	if err != nil {
		return err
	}

	if cfg.CatalogURL != "" {
		client, err := catalogfeed.NewClient(cfg.CatalogURL, logger.Named("catalogfeed"), a.upstreamOptions(cfg.CatalogToken)...)
		if err != nil {
			return err
		}
		a.CatalogSync, err = contractapp.NewCatalogSyncService(a.Postcodes, client, a.Contracts, nil, a.Location, logger.Named("catalog"))
		if err != nil {
			return err
		}
	} else {
		logger.Warn("catalog feed not configured; catalog sync disabled")
	}

	opts := []jobs.Option{jobs.WithLogger(logger.Named("jobs")), jobs.WithLocation(a.Location)}
	if locker := jobs.NewRedisLocker(a.Redis, ""); locker != nil {
		opts = append(opts, jobs.WithLocker(locker))
	}
	a.Scheduler = jobs.NewScheduler(opts...)
	return nil
}

func (a *App) upstreamOptions(token string) []upstream.Option {
	opts := []upstream.Option{upstream.WithHTTPClient(&http.Client{Timeout: a.Config.FeedTimeout})}
	if token != "" {
		opts = append(opts, upstream.WithToken(token))
	}
	return opts
}

// ScheduleJobs registers the periodic jobs on the scheduler.
func (a *App) ScheduleJobs() error {
	schedule := a.Config.Schedule
	list := []jobs.Job{
		jobs.IngestLatestJob(schedule.IngestLatest, a.Ingestion, a.Config.Regions),
		jobs.AveragesJob(schedule.Averages, a.Aggregation, a.Config.Regions),
	}
	if a.CatalogSync != nil {
		list = append(list, jobs.CatalogSyncJob(schedule.CatalogSync, a.CatalogSync))
	}
	for _, job := range list {
		if err := a.Scheduler.Add(job); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the connections.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	var errs []error
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}
