package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	spotprice "electricity-compare/internal/spotprice/domain"
)

const defaultAverageTable = "spot_price_averages"

// AverageRepository stores spot averages keyed by (region, period_type, time_key).
type AverageRepository struct {
	db    *sql.DB
	table string
}

// NewAverageRepository constructs a repository.
func NewAverageRepository(conn *sql.DB, opts ...RepositoryOption) *AverageRepository {
	repo := &AverageRepository{db: conn, table: defaultAverageTable}
	for _, opt := range opts {
		opt(&repo.table)
	}
	return repo
}

const averageColumns = `
	region,
	period_type,
	time_key,
	period_start,
	period_end,
	avg_without_tax,
	avg_with_tax,
	day_avg_with_tax,
	night_avg_with_tax,
	min_with_tax,
	max_with_tax,
	hours_count,
	calculated_at`

// Upsert replaces the row of the average's key.
func (r *AverageRepository) Upsert(ctx context.Context, average spotprice.SpotPriceAverage) error {
	if r == nil || r.db == nil {
		return errors.New("spot average repo: nil db")
	}
	if average.Region == "" {
		return spotprice.ErrEmptyRegion
	}
	if !average.PeriodType.IsValid() {
		return spotprice.ErrInvalidPeriodType
	}

	query := fmt.Sprintf(`
INSERT INTO %s (%s
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
)
ON CONFLICT (region, period_type, time_key)
DO UPDATE SET
	period_start = EXCLUDED.period_start,
	period_end = EXCLUDED.period_end,
	avg_without_tax = EXCLUDED.avg_without_tax,
	avg_with_tax = EXCLUDED.avg_with_tax,
	day_avg_with_tax = EXCLUDED.day_avg_with_tax,
	night_avg_with_tax = EXCLUDED.night_avg_with_tax,
	min_with_tax = EXCLUDED.min_with_tax,
	max_with_tax = EXCLUDED.max_with_tax,
	hours_count = EXCLUDED.hours_count,
	calculated_at = EXCLUDED.calculated_at`, r.table, averageColumns)

	_, err := r.db.ExecContext(ctx, query,
		average.Region,
		string(average.PeriodType),
		average.TimeKey.String(),
		average.PeriodStart.UTC(),
		average.PeriodEnd.UTC(),
		average.AvgWithoutTax,
		average.AvgWithTax,
		nullDecimal(average.DayAvgWithTax),
		nullDecimal(average.NightAvgWithTax),
		average.Min,
		average.Max,
		average.HoursCount,
		average.CalculatedAt.UTC(),
	)
	return err
}

// Get loads the average of one key.
func (r *AverageRepository) Get(ctx context.Context, region string, periodType spotprice.PeriodType, timeKey spotprice.TimeKey) (*spotprice.SpotPriceAverage, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("spot average repo: nil db")
	}
	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE region = $1 AND period_type = $2 AND time_key = $3
LIMIT 1`, averageColumns, r.table)

	avg, err := scanAverage(r.db.QueryRowContext(ctx, query, region, string(periodType), timeKey.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, spotprice.ErrAverageNotFound
	}
	return avg, err
}

// Latest returns the row with the latest period start for a type.
func (r *AverageRepository) Latest(ctx context.Context, region string, periodType spotprice.PeriodType) (*spotprice.SpotPriceAverage, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("spot average repo: nil db")
	}
	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE region = $1 AND period_type = $2
ORDER BY period_start DESC
LIMIT 1`, averageColumns, r.table)

	avg, err := scanAverage(r.db.QueryRowContext(ctx, query, region, string(periodType)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, spotprice.ErrAverageNotFound
	}
	return avg, err
}

// Delete removes the row of a key.
func (r *AverageRepository) Delete(ctx context.Context, region string, periodType spotprice.PeriodType, timeKey spotprice.TimeKey) error {
	if r == nil || r.db == nil {
		return errors.New("spot average repo: nil db")
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE region = $1 AND period_type = $2 AND time_key = $3`, r.table)
	_, err := r.db.ExecContext(ctx, query, region, string(periodType), timeKey.String())
	return err
}

func scanAverage(scanner interface{ Scan(dest ...any) error }) (*spotprice.SpotPriceAverage, error) {
	var (
		avg        spotprice.SpotPriceAverage
		periodType string
		timeKey    string
		dayAvg     decimal.NullDecimal
		nightAvg   decimal.NullDecimal
	)
	if err := scanner.Scan(
		&avg.Region,
		&periodType,
		&timeKey,
		&avg.PeriodStart,
		&avg.PeriodEnd,
		&avg.AvgWithoutTax,
		&avg.AvgWithTax,
		&dayAvg,
		&nightAvg,
		&avg.Min,
		&avg.Max,
		&avg.HoursCount,
		&avg.CalculatedAt,
	); err != nil {
		return nil, err
	}
	avg.PeriodType = spotprice.PeriodType(periodType)
	if !avg.PeriodType.IsValid() {
		return nil, spotprice.ErrInvalidPeriodType
	}
	avg.TimeKey = spotprice.TimeKey(timeKey)
	avg.PeriodStart = avg.PeriodStart.UTC()
	avg.PeriodEnd = avg.PeriodEnd.UTC()
	avg.CalculatedAt = avg.CalculatedAt.UTC()
	if dayAvg.Valid {
		v := dayAvg.Decimal
		avg.DayAvgWithTax = &v
	}
	if nightAvg.Valid {
		v := nightAvg.Decimal
		avg.NightAvgWithTax = &v
	}
	return &avg, nil
}

func nullDecimal(v *decimal.Decimal) decimal.NullDecimal {
	if v == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *v, Valid: true}
}
