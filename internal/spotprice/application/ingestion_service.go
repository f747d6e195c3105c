package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"electricity-compare/internal/observability/metrics"
	"electricity-compare/internal/spotprice/application/events"
	spotprice "electricity-compare/internal/spotprice/domain"
)

const (
	// MaxBatchSize caps rows per insert.
	MaxBatchSize = 500

	sourceFeed = "dayahead"
	sourcePush = "push"
)

// PriceFeed fetches day-ahead prices for [start, end), in c/kWh without tax.
type PriceFeed interface {
	FetchDayAhead(ctx context.Context, region string, start, end time.Time) ([]spotprice.PricePoint, error)
}

// RateResolver returns the VAT rate in force at an instant.
type RateResolver interface {
	RateFor(t time.Time) decimal.Decimal
}

// IngestReport summarizes one ingest run.
type IngestReport struct {
	Region    string
	Start     time.Time
	End       time.Time
	Received  int
	Malformed int
	Hours     int
	Inserted  int
	Skipped   int
}

// BackfillChunk is the outcome of one backfill chunk.
type BackfillChunk struct {
	Start    time.Time
	End      time.Time
	Inserted int
	Err      error
}

// BackfillReport summarizes a backfill run.
type BackfillReport struct {
	Region   string
	Chunks   []BackfillChunk
	Inserted int
	Failed   int
}

// IngestionService appends day-ahead prices to the hourly series.
type IngestionService struct {
	feed      PriceFeed
	hours     spotprice.HourRepository
	vat       RateResolver
	publisher EventPublisher
	clock     Clock
	location  *time.Location
	batchSize int
	logger    *zap.Logger
}

// NewIngestionService constructs the service. batchSize is clamped to
// 1..MaxBatchSize.
func NewIngestionService(feed PriceFeed, hours spotprice.HourRepository, vat RateResolver, publisher EventPublisher, clock Clock, loc *time.Location, batchSize int, logger *zap.Logger) (*IngestionService, error) {
	if hours == nil {
		return nil, errors.New("ingestion service: nil hour repository")
	}
	if vat == nil {
		return nil, errors.New("ingestion service: nil vat resolver")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if loc == nil {
		loc = time.UTC
	}
	if batchSize <= 0 || batchSize > MaxBatchSize {
		batchSize = MaxBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestionService{
		feed:      feed,
		hours:     hours,
		vat:       vat,
		publisher: publisher,
		clock:     clock,
		location:  loc,
		batchSize: batchSize,
		logger:    logger,
	}, nil
}

// IngestRange fetches [start, end) from the feed and stores new hours.
func (s *IngestionService) IngestRange(ctx context.Context, region string, start, end time.Time) (report *IngestReport, err error) {
	if region == "" {
		return nil, spotprice.ErrEmptyRegion
	}
	if !start.Before(end) {
		return nil, spotprice.ErrInvalidDateRange
	}
	if s.feed == nil {
		return nil, errors.New("ingestion service: nil price feed")
	}
	started := s.clock.Now()
	defer func() {
		result := metrics.ResultSuccess
		if err != nil {
			result = metrics.ResultError
		}
		metrics.ObserveIngest(sourceFeed, result, s.clock.Now().Sub(started))
	}()

	points, err := s.feed.FetchDayAhead(ctx, region, start, end)
	if err != nil {
		return nil, fmt.Errorf("fetch day-ahead %s: %w", region, err)
	}
	return s.store(ctx, region, start.UTC(), end.UTC(), points, sourceFeed)
}

// IngestPoints stores pushed price points. The window is derived from the
// points themselves.
func (s *IngestionService) IngestPoints(ctx context.Context, region string, points []spotprice.PricePoint) (report *IngestReport, err error) {
	if region == "" {
		return nil, spotprice.ErrEmptyRegion
	}
	started := s.clock.Now()
	defer func() {
		result := metrics.ResultSuccess
		if err != nil {
			result = metrics.ResultError
		}
		metrics.ObserveIngest(sourcePush, result, s.clock.Now().Sub(started))
	}()

	var start, end time.Time
	for _, p := range points {
		if p.Timestamp.IsZero() {
			continue
		}
		hour := p.Timestamp.UTC().Truncate(time.Hour)
		if start.IsZero() || hour.Before(start) {
			start = hour
		}
		if next := hour.Add(time.Hour); next.After(end) {
			end = next
		}
	}
	if start.IsZero() {
		return &IngestReport{Region: region, Received: len(points), Malformed: len(points)}, nil
	}
	return s.store(ctx, region, start, end, points, sourcePush)
}

// IngestLatest fetches from the hour after the newest stored hour (or the
// start of yesterday) through the end of tomorrow.
func (s *IngestionService) IngestLatest(ctx context.Context, region string) (*IngestReport, error) {
	now := s.clock.Now().In(s.location)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.location)
	start := today.AddDate(0, 0, -1)
	end := today.AddDate(0, 0, 2)

	latest, ok, err := s.hours.LatestTimestamp(ctx, region)
	if err != nil {
		return nil, err
	}
	if ok && latest.Add(time.Hour).After(start) {
		start = latest.Add(time.Hour)
	}
	if !start.Before(end) {
		return &IngestReport{Region: region, Start: start.UTC(), End: end.UTC()}, nil
	}
	return s.IngestRange(ctx, region, start, end)
}

// Backfill ingests [from, to) in month-sized chunks. A failed chunk is
// recorded and the run continues; the run fails only when every chunk failed.
func (s *IngestionService) Backfill(ctx context.Context, region string, from, to time.Time) (*BackfillReport, error) {
	if from.After(to) {
		return nil, spotprice.ErrInvalidDateRange
	}
	report := &BackfillReport{Region: region}
	for _, chunk := range MonthChunks(from, to, s.location) {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		ingest, err := s.IngestRange(ctx, region, chunk.Start, chunk.End)
		if err != nil {
			chunk.Err = err
			report.Failed++
			metrics.IncBackfillChunk(metrics.ResultError)
			s.logger.Warn("backfill chunk failed",
				zap.String("region", region),
				zap.Time("start", chunk.Start),
				zap.Time("end", chunk.End),
				zap.Error(err),
			)
		} else {
			chunk.Inserted = ingest.Inserted
			report.Inserted += ingest.Inserted
			metrics.IncBackfillChunk(metrics.ResultSuccess)
		}
		report.Chunks = append(report.Chunks, chunk)
	}

	if len(report.Chunks) > 0 && report.Failed == len(report.Chunks) {
		return report, fmt.Errorf("backfill %s: all %d chunks failed: %w", region, report.Failed, report.Chunks[len(report.Chunks)-1].Err)
	}
	s.logger.Info("backfill finished",
		zap.String("region", region),
		zap.Int("chunks", len(report.Chunks)),
		zap.Int("failed", report.Failed),
		zap.Int("inserted", report.Inserted),
	)
	return report, nil
}

// MonthChunks splits [from, to) at local month boundaries.
func MonthChunks(from, to time.Time, loc *time.Location) []BackfillChunk {
	var chunks []BackfillChunk
	cursor := from
	for cursor.Before(to) {
		local := cursor.In(loc)
		next := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc).AddDate(0, 1, 0)
		end := next
		if end.After(to) {
			end = to
		}
		chunks = append(chunks, BackfillChunk{Start: cursor.UTC(), End: end.UTC()})
		cursor = end
	}
	return chunks
}

func (s *IngestionService) store(ctx context.Context, region string, start, end time.Time, points []spotprice.PricePoint, source string) (*IngestReport, error) {
	hours, malformed := spotprice.FoldHourly(region, points, start, end, s.vat.RateFor)
	report := &IngestReport{
		Region:    region,
		Start:     start,
		End:       end,
		Received:  len(points),
		Malformed: malformed,
		Hours:     len(hours),
	}
	if malformed > 0 {
		metrics.AddMalformedRecords(source, malformed)
		s.logger.Warn("dropped malformed price points",
			zap.String("region", region),
			zap.String("source", source),
			zap.Int("count", malformed),
		)
	}

	var firstInserted, lastInserted time.Time
	for offset := 0; offset < len(hours); offset += s.batchSize {
		limit := offset + s.batchSize
		if limit > len(hours) {
			limit = len(hours)
		}
		chunk := hours[offset:limit]
		n, err := s.hours.InsertIfAbsent(ctx, chunk)
		if err != nil {
			// Earlier batches are committed; their averages still need a rebuild.
			s.publishIngested(ctx, region, source, firstInserted, lastInserted, report.Inserted)
			return report, fmt.Errorf("insert spot hours %s: %w", region, err)
		}
		report.Inserted += n
		if n > 0 {
			if firstInserted.IsZero() {
				firstInserted = chunk[0].Timestamp
			}
			lastInserted = chunk[len(chunk)-1].Timestamp
		}
	}
	report.Skipped = report.Hours - report.Inserted
	metrics.AddIngestRows(region, "inserted", report.Inserted)
	metrics.AddIngestRows(region, "skipped", report.Skipped)

	s.publishIngested(ctx, region, source, firstInserted, lastInserted, report.Inserted)

	s.logger.Debug("spot prices stored",
		zap.String("region", region),
		zap.String("source", source),
		zap.Int("hours", report.Hours),
		zap.Int("inserted", report.Inserted),
	)
	return report, nil
}

func (s *IngestionService) publishIngested(ctx context.Context, region, source string, first, last time.Time, inserted int) {
	if inserted == 0 || s.publisher == nil {
		return
	}
	evt := events.SpotPricesIngested{
		Region:     region,
		Start:      first,
		End:        last.Add(time.Hour),
		Inserted:   inserted,
		Source:     source,
		OccurredAt: s.clock.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.logger.Warn("publish spot prices ingested failed", zap.String("region", region), zap.Error(err))
	}
}
