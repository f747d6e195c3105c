package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"electricity-compare/internal/observability/metrics"
	"electricity-compare/internal/spotprice/application/events"
	spotprice "electricity-compare/internal/spotprice/domain"
)

const defaultDailyLookbackDays = 7

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// EventPublisher publishes application events.
type EventPublisher interface {
	Publish(ctx context.Context, event any) error
}

// AggregationService recomputes spot price averages from the hourly series.
// Every write is a keyed upsert computed fresh from source rows.
type AggregationService struct {
	hours     spotprice.HourRepository
	averages  spotprice.AverageRepository
	cache     spotprice.LatestAveragesCache
	publisher EventPublisher
	clock     Clock
	location  *time.Location
	lookback  int
	group     singleflight.Group
	logger    *zap.Logger
}

// AggregationOption configures the service.
type AggregationOption func(*AggregationService)

// WithCache serves GetLatestAverages through a cache.
func WithCache(cache spotprice.LatestAveragesCache) AggregationOption {
	return func(s *AggregationService) { s.cache = cache }
}

// WithPublisher publishes SpotAveragesCalculated events.
func WithPublisher(publisher EventPublisher) AggregationOption {
	return func(s *AggregationService) { s.publisher = publisher }
}

// WithClock overrides the clock.
func WithClock(clock Clock) AggregationOption {
	return func(s *AggregationService) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithDailyLookback sets how many past days daily averages cover.
func WithDailyLookback(days int) AggregationOption {
	return func(s *AggregationService) {
		if days > 0 {
			s.lookback = days
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) AggregationOption {
	return func(s *AggregationService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewAggregationService constructs the service. Calendar periods are
// aligned to loc.
func NewAggregationService(hours spotprice.HourRepository, averages spotprice.AverageRepository, loc *time.Location, opts ...AggregationOption) (*AggregationService, error) {
	if hours == nil {
		return nil, errors.New("aggregation service: nil hour repository")
	}
	if averages == nil {
		return nil, errors.New("aggregation service: nil average repository")
	}
	if loc == nil {
		return nil, errors.New("aggregation service: nil location")
	}
	s := &AggregationService{
		hours:    hours,
		averages: averages,
		clock:    SystemClock{},
		location: loc,
		lookback: defaultDailyLookbackDays,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CalculateDailyAverages recomputes local days from today minus the lookback
// through tomorrow. Days without prices are skipped.
func (s *AggregationService) CalculateDailyAverages(ctx context.Context, region string) (int, error) {
	today, err := spotprice.CalendarPeriod(spotprice.PeriodDaily, s.clock.Now(), s.location)
	if err != nil {
		return 0, err
	}
	from := today.Start.In(s.location).AddDate(0, 0, -s.lookback)
	to := today.Start.In(s.location).AddDate(0, 0, 2)
	return s.calculateCalendar(ctx, region, spotprice.PeriodDaily, from, to)
}

// CalculateMonthlyAverages recomputes the current and previous month.
func (s *AggregationService) CalculateMonthlyAverages(ctx context.Context, region string) (int, error) {
	return s.calculateCurrentAndPrevious(ctx, region, spotprice.PeriodMonthly)
}

// CalculateYearlyAverages recomputes the current and previous year.
func (s *AggregationService) CalculateYearlyAverages(ctx context.Context, region string) (int, error) {
	return s.calculateCurrentAndPrevious(ctx, region, spotprice.PeriodYearly)
}

// CalculateRollingAverages recomputes the 30 and 365 day windows ending at
// the current hour.
func (s *AggregationService) CalculateRollingAverages(ctx context.Context, region string) (int, error) {
	now := s.clock.Now()
	count := 0
	for _, periodType := range []spotprice.PeriodType{spotprice.PeriodRolling30d, spotprice.PeriodRolling365d} {
		window, err := spotprice.RollingWindow(periodType, now)
		if err != nil {
			return count, err
		}
		ok, err := s.calculatePeriod(ctx, region, window)
		if err != nil {
			return count, err
		}
		if ok {
			count++
		}
	}
	return count, nil
}

// CalculateAllAverages runs every period type and returns the rows written.
func (s *AggregationService) CalculateAllAverages(ctx context.Context, region string) (int, error) {
	steps := []func(context.Context, string) (int, error){
		s.CalculateDailyAverages,
		s.CalculateMonthlyAverages,
		s.CalculateYearlyAverages,
		s.CalculateRollingAverages,
	}
	total := 0
	for _, step := range steps {
		n, err := step(ctx, region)
		total += n
		if err != nil {
			return total, err
		}
	}
	s.afterWrite(ctx, region, total)
	return total, nil
}

// CalculateAllRegions runs CalculateAllAverages for each region in parallel.
func (s *AggregationService) CalculateAllRegions(ctx context.Context, regions []string) (int, error) {
	counts := make([]int, len(regions))
	g, gctx := errgroup.WithContext(ctx)
	for i, region := range regions {
		i, region := i, region
		g.Go(func() error {
			n, err := s.CalculateAllAverages(gctx, region)
			counts[i] = n
			if err != nil {
				return fmt.Errorf("region %s: %w", region, err)
			}
			return nil
		})
	}
	err := g.Wait()
	total := 0
	for _, n := range counts {
		total += n
	}
	return total, err
}

// CalculateByType runs a single period type family.
func (s *AggregationService) CalculateByType(ctx context.Context, region, periodType string) (int, error) {
	var (
		n   int
		err error
	)
	switch periodType {
	case "", "all":
		return s.CalculateAllAverages(ctx, region)
	case string(spotprice.PeriodDaily):
		n, err = s.CalculateDailyAverages(ctx, region)
	case string(spotprice.PeriodMonthly):
		n, err = s.CalculateMonthlyAverages(ctx, region)
	case string(spotprice.PeriodYearly):
		n, err = s.CalculateYearlyAverages(ctx, region)
	case "rolling", string(spotprice.PeriodRolling30d), string(spotprice.PeriodRolling365d):
		n, err = s.CalculateRollingAverages(ctx, region)
	default:
		return 0, spotprice.ErrInvalidPeriodType
	}
	if err == nil {
		s.afterWrite(ctx, region, n)
	}
	return n, err
}

// RecalculateRange rebuilds every calendar period overlapping [from, to)
// and the rolling windows.
func (s *AggregationService) RecalculateRange(ctx context.Context, region string, from, to time.Time) (int, error) {
	if !from.Before(to) {
		return 0, spotprice.ErrInvalidDateRange
	}
	total := 0
	for _, periodType := range []spotprice.PeriodType{spotprice.PeriodDaily, spotprice.PeriodMonthly, spotprice.PeriodYearly} {
		n, err := s.calculateCalendar(ctx, region, periodType, from, to)
		total += n
		if err != nil {
			return total, err
		}
	}
	n, err := s.CalculateRollingAverages(ctx, region)
	total += n
	if err != nil {
		return total, err
	}
	s.afterWrite(ctx, region, total)
	return total, nil
}

// HandleSpotPricesIngested recalculates the periods touched by an ingest.
func (s *AggregationService) HandleSpotPricesIngested(ctx context.Context, evt events.SpotPricesIngested) error {
	if evt.Inserted == 0 {
		return nil
	}
	n, err := s.RecalculateRange(ctx, evt.Region, evt.Start, evt.End)
	if err != nil {
		return err
	}
	s.logger.Info("spot averages recalculated",
		zap.String("region", evt.Region),
		zap.Time("start", evt.Start),
		zap.Time("end", evt.End),
		zap.Int("rows", n),
	)
	return nil
}

// GetLatestAverages returns the averages of the current day and month and the
// live rolling windows. Each falls back to the latest stored row.
func (s *AggregationService) GetLatestAverages(ctx context.Context, region string) (*spotprice.LatestAverages, error) {
	if region == "" {
		return nil, spotprice.ErrEmptyRegion
	}
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, region)
		if err != nil {
			s.logger.Warn("latest averages cache read failed", zap.String("region", region), zap.Error(err))
		} else if ok {
			return cached, nil
		}
	}

	now := s.clock.Now()
	latest := &spotprice.LatestAverages{Region: region}
	var err error
	if latest.Daily, err = s.currentOrLatest(ctx, region, spotprice.PeriodDaily, now); err != nil {
		return nil, err
	}
	if latest.Monthly, err = s.currentOrLatest(ctx, region, spotprice.PeriodMonthly, now); err != nil {
		return nil, err
	}
	if latest.Rolling30d, err = s.lookup(ctx, region, spotprice.PeriodRolling30d, spotprice.LiveTimeKey); err != nil {
		return nil, err
	}
	if latest.Rolling365d, err = s.lookup(ctx, region, spotprice.PeriodRolling365d, spotprice.LiveTimeKey); err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, region, latest); err != nil {
			s.logger.Warn("latest averages cache write failed", zap.String("region", region), zap.Error(err))
		}
	}
	return latest, nil
}

func (s *AggregationService) currentOrLatest(ctx context.Context, region string, periodType spotprice.PeriodType, now time.Time) (*spotprice.SpotPriceAverage, error) {
	period, err := spotprice.CalendarPeriod(periodType, now, s.location)
	if err != nil {
		return nil, err
	}
	avg, err := s.lookup(ctx, region, periodType, period.TimeKey)
	if err != nil || avg != nil {
		return avg, err
	}
	avg, err = s.averages.Latest(ctx, region, periodType)
	if errors.Is(err, spotprice.ErrAverageNotFound) {
		return nil, nil
	}
	return avg, err
}

func (s *AggregationService) lookup(ctx context.Context, region string, periodType spotprice.PeriodType, key spotprice.TimeKey) (*spotprice.SpotPriceAverage, error) {
	avg, err := s.averages.Get(ctx, region, periodType, key)
	if errors.Is(err, spotprice.ErrAverageNotFound) {
		return nil, nil
	}
	return avg, err
}

func (s *AggregationService) calculateCurrentAndPrevious(ctx context.Context, region string, periodType spotprice.PeriodType) (int, error) {
	current, err := spotprice.CalendarPeriod(periodType, s.clock.Now(), s.location)
	if err != nil {
		return 0, err
	}
	previous, err := current.Previous(s.location)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, period := range []spotprice.Period{previous, current} {
		ok, err := s.calculatePeriod(ctx, region, period)
		if err != nil {
			return count, err
		}
		if ok {
			count++
		}
	}
	return count, nil
}

func (s *AggregationService) calculateCalendar(ctx context.Context, region string, periodType spotprice.PeriodType, from, to time.Time) (int, error) {
	periods, err := spotprice.CalendarPeriodsBetween(periodType, from, to, s.location)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, period := range periods {
		ok, err := s.calculatePeriod(ctx, region, period)
		if err != nil {
			return count, err
		}
		if ok {
			count++
		}
	}
	return count, nil
}

// calculatePeriod computes and upserts one period. It reports false when the
// period has no prices. A call that joins an in-flight run for the same key
// runs once more, so the stored value covers rows present when it started.
func (s *AggregationService) calculatePeriod(ctx context.Context, region string, period spotprice.Period) (bool, error) {
	if region == "" {
		return false, spotprice.ErrEmptyRegion
	}
	key := fmt.Sprintf("%s|%s|%s|%d", region, period.Type, period.TimeKey, period.End.Unix())
	var (
		written any
		err     error
	)
	for attempt := 0; attempt < 2; attempt++ {
		ran := false
		written, err, _ = s.group.Do(key, func() (any, error) {
			ran = true
			started := s.clock.Now()
			ok, err := s.compute(ctx, region, period)
			result := metrics.ResultSuccess
			if err != nil {
				result = metrics.ResultError
			}
			metrics.ObserveAggregation(string(period.Type), result, s.clock.Now().Sub(started))
			return ok, err
		})
		if ran {
			break
		}
	}
	if err != nil {
		return false, fmt.Errorf("aggregate %s %s %s: %w", region, period.Type, period.TimeKey, err)
	}
	return written.(bool), nil
}

// compute writes a fresh average for the period. A rolling window without
// prices removes its live row so stale averages are never served.
func (s *AggregationService) compute(ctx context.Context, region string, period spotprice.Period) (bool, error) {
	hours, err := s.hours.ListRange(ctx, region, period.Start, period.End)
	if err != nil {
		return false, err
	}
	avg, err := spotprice.Aggregate(region, period.Type, period.TimeKey, period.Start, period.End, hours, s.location, s.clock.Now())
	if errors.Is(err, spotprice.ErrNoSpotPrices) {
		if period.Type.IsRolling() {
			return false, s.averages.Delete(ctx, region, period.Type, period.TimeKey)
		}
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := s.averages.Upsert(ctx, avg); err != nil {
		return false, err
	}
	return true, nil
}

func (s *AggregationService) afterWrite(ctx context.Context, region string, count int) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, region); err != nil {
			s.logger.Warn("latest averages cache invalidate failed", zap.String("region", region), zap.Error(err))
		}
	}
	if s.publisher != nil && count > 0 {
		evt := events.SpotAveragesCalculated{Region: region, Count: count, OccurredAt: s.clock.Now().UTC()}
		if err := s.publisher.Publish(ctx, evt); err != nil {
			s.logger.Warn("publish averages calculated failed", zap.String("region", region), zap.Error(err))
		}
	}
}
