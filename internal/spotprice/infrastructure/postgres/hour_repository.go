package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"electricity-compare/internal/db"
	spotprice "electricity-compare/internal/spotprice/domain"
)

const defaultHourTable = "spot_price_hour"

// HourRepository stores the hourly spot series in Postgres.
type HourRepository struct {
	db    *sql.DB
	table string
}

// RepositoryOption configures a repository table name.
type RepositoryOption func(*string)

// WithTable overrides the default table name.
func WithTable(table string) RepositoryOption {
	return func(target *string) {
		if table != "" {
			*target = table
		}
	}
}

// NewHourRepository constructs a repository.
func NewHourRepository(conn *sql.DB, opts ...RepositoryOption) *HourRepository {
	repo := &HourRepository{db: conn, table: defaultHourTable}
	for _, opt := range opts {
		opt(&repo.table)
	}
	return repo
}

// InsertIfAbsent inserts the hours in one transaction. Existing
// (region, timestamp) rows are left untouched.
func (r *HourRepository) InsertIfAbsent(ctx context.Context, hours []spotprice.SpotPriceHour) (int, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("spot hour repo: nil db")
	}
	if len(hours) == 0 {
		return 0, nil
	}
	for _, h := range hours {
		if err := h.Validate(); err != nil {
			return 0, err
		}
	}

	var (
		values strings.Builder
		args   = make([]any, 0, len(hours)*4)
	)
	for i, h := range hours {
		if i > 0 {
			values.WriteString(",\n\t")
		}
		n := i * 4
		fmt.Fprintf(&values, "($%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4)
		args = append(args, h.Region, h.Timestamp.UTC(), h.PriceWithoutTax, h.VATRate)
	}
	query := fmt.Sprintf(`
INSERT INTO %s (region, ts, price_without_tax, vat_rate)
VALUES
	%s
ON CONFLICT (region, ts) DO NOTHING`, r.table, values.String())

	inserted := 0
	err := db.WithTx(ctx, r.db, nil, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		inserted = int(affected)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// ListRange returns hours in [start, end) ordered by timestamp.
func (r *HourRepository) ListRange(ctx context.Context, region string, start, end time.Time) ([]spotprice.SpotPriceHour, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("spot hour repo: nil db")
	}
	if region == "" {
		return nil, spotprice.ErrEmptyRegion
	}

	query := fmt.Sprintf(`
SELECT ts, price_without_tax, vat_rate
FROM %s
WHERE region = $1 AND ts >= $2 AND ts < $3
ORDER BY ts ASC`, r.table)

	rows, err := r.db.QueryContext(ctx, query, region, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []spotprice.SpotPriceHour
	for rows.Next() {
		var (
			ts    time.Time
			price decimal.Decimal
			rate  decimal.Decimal
		)
		if err := rows.Scan(&ts, &price, &rate); err != nil {
			return nil, err
		}
		result = append(result, spotprice.SpotPriceHour{
			Region:          region,
			Timestamp:       ts.UTC(),
			PriceWithoutTax: price,
			VATRate:         rate,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// LatestTimestamp returns the newest stored hour of a region.
func (r *HourRepository) LatestTimestamp(ctx context.Context, region string) (time.Time, bool, error) {
	if r == nil || r.db == nil {
		return time.Time{}, false, errors.New("spot hour repo: nil db")
	}
	query := fmt.Sprintf(`SELECT MAX(ts) FROM %s WHERE region = $1`, r.table)
	var latest sql.NullTime
	if err := r.db.QueryRowContext(ctx, query, region).Scan(&latest); err != nil {
		return time.Time{}, false, err
	}
	if !latest.Valid {
		return time.Time{}, false, nil
	}
	return latest.Time.UTC(), true, nil
}
