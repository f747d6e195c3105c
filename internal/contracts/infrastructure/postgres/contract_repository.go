package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	contracts "electricity-compare/internal/contracts/domain"
	"electricity-compare/internal/db"
)

// ContractRepository is the Postgres store for contracts, price components
// and the catalog sync write phase.
type ContractRepository struct {
	db *sql.DB
}

// NewContractRepository constructs a repository.
func NewContractRepository(conn *sql.DB) *ContractRepository {
	return &ContractRepository{db: conn}
}

const contractColumns = `
	c.id,
	c.upstream_id,
	c.company_slug,
	c.name,
	c.pricing_model,
	c.metering,
	c.consumption_min,
	c.consumption_max,
	c.region,
	c.renewable_percent,
	c.nuclear_percent,
	c.fossil_percent,
	c.created_at,
	c.updated_at`

const componentColumns = `
	id,
	contract_id,
	component_type,
	price,
	payment_unit,
	price_date,
	fuse_size,
	discount_is_percentage,
	discount_value,
	discount_type,
	discount_first_n_kwh,
	discount_first_n_months,
	discount_until_date`

// LoadPricingData reads a contract and all its component observations from
// one snapshot.
func (r *ContractRepository) LoadPricingData(ctx context.Context, contractID string) (*contracts.Contract, []contracts.PriceComponent, error) {
	if r == nil || r.db == nil {
		return nil, nil, errors.New("contract repo: nil db")
	}
	if contractID == "" {
		return nil, nil, contracts.ErrEmptyContractID
	}

	var (
		contract   *contracts.Contract
		components []contracts.PriceComponent
	)
	opts := &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	err := db.WithTx(ctx, r.db, opts, func(tx *sql.Tx) error {
		var err error
		contract, err = getContract(ctx, tx, contractID)
		if err != nil {
			return err
		}
		components, err = listComponents(ctx, tx, contractID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return contract, components, nil
}

// Get loads a contract.
func (r *ContractRepository) Get(ctx context.Context, id string) (*contracts.Contract, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("contract repo: nil db")
	}
	if id == "" {
		return nil, contracts.ErrEmptyContractID
	}
	return getContract(ctx, r.db, id)
}

// ListActive returns the active contracts ordered by id.
func (r *ContractRepository) ListActive(ctx context.Context) ([]contracts.Contract, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("contract repo: nil db")
	}
	query := fmt.Sprintf(`
SELECT %s
FROM contracts c
JOIN active_contracts a ON a.contract_id = c.id
ORDER BY c.id ASC`, contractColumns)
	return queryContracts(ctx, r.db, query)
}

// ListActiveByPostcode returns the active contracts offered in a postcode.
func (r *ContractRepository) ListActiveByPostcode(ctx context.Context, postcode string) ([]contracts.Contract, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("contract repo: nil db")
	}
	query := fmt.Sprintf(`
SELECT %s
FROM contracts c
JOIN active_contracts a ON a.contract_id = c.id
JOIN contract_postcodes p ON p.contract_id = c.id
WHERE p.postcode = $1
ORDER BY c.id ASC`, contractColumns)
	return queryContracts(ctx, r.db, query, postcode)
}

// ApplySnapshot writes a catalog snapshot in one transaction. Any error
// rolls the whole snapshot back.
func (r *ContractRepository) ApplySnapshot(ctx context.Context, snapshot contracts.CatalogSnapshot) (contracts.ApplyStats, error) {
	if r == nil || r.db == nil {
		return contracts.ApplyStats{}, errors.New("contract repo: nil db")
	}
	for _, c := range snapshot.Contracts {
		if err := c.Validate(); err != nil {
			return contracts.ApplyStats{}, err
		}
	}

	var stats contracts.ApplyStats
	err := db.WithTx(ctx, r.db, nil, func(tx *sql.Tx) error {
		for _, company := range snapshot.Companies {
			if _, err := tx.ExecContext(ctx, `
INSERT INTO companies (slug, name, updated_at)
VALUES ($1, $2, $3)
ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name, updated_at = EXCLUDED.updated_at`,
				company.Slug, company.Name, snapshot.ObservedAt.UTC()); err != nil {
				return fmt.Errorf("upsert company %s: %w", company.Slug, err)
			}
			stats.Companies++
		}

		for _, c := range snapshot.Contracts {
			if err := upsertContract(ctx, tx, c, snapshot.ObservedAt); err != nil {
				return fmt.Errorf("upsert contract %s: %w", c.ID, err)
			}
			stats.Contracts++
		}

		n, err := insertComponents(ctx, tx, "price_components", snapshot.Components)
		if err != nil {
			return err
		}
		stats.ComponentsInserted = n

		for _, p := range snapshot.Postcodes {
			if _, err := tx.ExecContext(ctx, `
INSERT INTO contract_postcodes (contract_id, postcode)
VALUES ($1, $2)
ON CONFLICT DO NOTHING`, p.ContractID, p.Postcode); err != nil {
				return fmt.Errorf("insert contract postcode: %w", err)
			}
			stats.Postcodes++
		}

		n, err = insertComponents(ctx, tx, "price_component_futures", snapshot.Futures)
		if err != nil {
			return err
		}
		stats.Futures = n

		retain := snapshot.RetainPostcodes
		if retain == nil {
			retain = []string{}
		}
		if _, err := tx.ExecContext(ctx, `
DELETE FROM active_contracts a
WHERE NOT EXISTS (
	SELECT 1 FROM contract_postcodes p
	WHERE p.contract_id = a.contract_id AND p.postcode = ANY($1)
)`, retain); err != nil {
			return fmt.Errorf("clear active contracts: %w", err)
		}
		for _, id := range snapshot.ActiveContractIDs() {
			if _, err := tx.ExecContext(ctx, `
INSERT INTO active_contracts (contract_id, synced_at)
VALUES ($1, $2)
ON CONFLICT (contract_id) DO UPDATE SET synced_at = EXCLUDED.synced_at`, id, snapshot.ObservedAt.UTC()); err != nil {
				return fmt.Errorf("insert active contract %s: %w", id, err)
			}
		}
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM active_contracts`).Scan(&stats.ActiveContracts); err != nil {
			return fmt.Errorf("count active contracts: %w", err)
		}
		return nil
	})
	if err != nil {
		return contracts.ApplyStats{}, err
	}
	return stats, nil
}

// Futures lists announced future-dated components of a contract.
func (r *ContractRepository) Futures(ctx context.Context, contractID string) ([]contracts.PriceComponent, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("contract repo: nil db")
	}
	query := fmt.Sprintf(`
SELECT %s
FROM price_component_futures
WHERE contract_id = $1
ORDER BY component_type ASC, price_date ASC`, componentColumns)
	rows, err := r.db.QueryContext(ctx, query, contractID)
	if err != nil {
		return nil, err
	}
	return scanComponents(rows)
}

func upsertContract(ctx context.Context, q db.DBTX, c contracts.Contract, observedAt time.Time) error {
	_, err := q.ExecContext(ctx, `
INSERT INTO contracts (
	id, upstream_id, company_slug, name, pricing_model, metering,
	consumption_min, consumption_max, region,
	renewable_percent, nuclear_percent, fossil_percent,
	created_at, updated_at
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13
)
ON CONFLICT (id) DO UPDATE SET
	upstream_id = EXCLUDED.upstream_id,
	company_slug = EXCLUDED.company_slug,
	name = EXCLUDED.name,
	pricing_model = EXCLUDED.pricing_model,
	metering = EXCLUDED.metering,
	consumption_min = EXCLUDED.consumption_min,
	consumption_max = EXCLUDED.consumption_max,
	region = EXCLUDED.region,
	renewable_percent = EXCLUDED.renewable_percent,
	nuclear_percent = EXCLUDED.nuclear_percent,
	fossil_percent = EXCLUDED.fossil_percent,
	updated_at = EXCLUDED.updated_at`,
		c.ID, c.UpstreamID, c.CompanySlug, c.Name, string(c.PricingModel), string(c.Metering),
		nullInt(c.ConsumptionLimitationMin), nullInt(c.ConsumptionLimitationMax), c.Region,
		c.EnergySources.RenewablePercent, c.EnergySources.NuclearPercent, c.EnergySources.FossilPercent,
		observedAt.UTC(),
	)
	return err
}

func insertComponents(ctx context.Context, q db.DBTX, table string, components []contracts.PriceComponent) (int, error) {
	query := fmt.Sprintf(`
INSERT INTO %s (%s
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
)
ON CONFLICT DO NOTHING`, table, componentColumns)

	inserted := 0
	for _, c := range components {
		if err := c.Validate(); err != nil {
			return inserted, err
		}
		var (
			isPercentage sql.NullBool
			value        decimal.NullDecimal
			discountType sql.NullString
			firstNKWh    decimal.NullDecimal
			firstNMonths sql.NullInt64
			untilDate    sql.NullTime
		)
		if d := c.Discount; d != nil {
			isPercentage = sql.NullBool{Bool: d.IsPercentage, Valid: true}
			value = decimal.NullDecimal{Decimal: d.Value, Valid: true}
			discountType = sql.NullString{String: d.Type, Valid: d.Type != ""}
			if d.FirstNKWh != nil {
				firstNKWh = decimal.NullDecimal{Decimal: *d.FirstNKWh, Valid: true}
			}
			if d.FirstNMonths != nil {
				firstNMonths = sql.NullInt64{Int64: int64(*d.FirstNMonths), Valid: true}
			}
			if d.UntilDate != nil {
				untilDate = sql.NullTime{Time: *d.UntilDate, Valid: true}
			}
		}
		res, err := q.ExecContext(ctx, query,
			c.ID, c.ContractID, string(c.Type), c.Price, c.PaymentUnit, c.PriceDate,
			nullString(c.FuseSize), isPercentage, value, discountType, firstNKWh, firstNMonths, untilDate,
		)
		if err != nil {
			return inserted, fmt.Errorf("insert %s %s: %w", table, c.ID, err)
		}
		if affected, err := res.RowsAffected(); err == nil {
			inserted += int(affected)
		}
	}
	return inserted, nil
}

func getContract(ctx context.Context, q db.DBTX, id string) (*contracts.Contract, error) {
	query := fmt.Sprintf(`
SELECT %s
FROM contracts c
WHERE c.id = $1
LIMIT 1`, contractColumns)
	contract, err := scanContract(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contracts.ErrContractNotFound
	}
	return contract, err
}

func listComponents(ctx context.Context, q db.DBTX, contractID string) ([]contracts.PriceComponent, error) {
	query := fmt.Sprintf(`
SELECT %s
FROM price_components
WHERE contract_id = $1
ORDER BY component_type ASC, price_date ASC`, componentColumns)
	rows, err := q.QueryContext(ctx, query, contractID)
	if err != nil {
		return nil, err
	}
	return scanComponents(rows)
}

func queryContracts(ctx context.Context, q db.DBTX, query string, args ...any) ([]contracts.Contract, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []contracts.Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func scanContract(scanner interface{ Scan(dest ...any) error }) (*contracts.Contract, error) {
	var (
		c        contracts.Contract
		model    string
		metering string
		minKWh   sql.NullInt64
		maxKWh   sql.NullInt64
	)
	if err := scanner.Scan(
		&c.ID,
		&c.UpstreamID,
		&c.CompanySlug,
		&c.Name,
		&model,
		&metering,
		&minKWh,
		&maxKWh,
		&c.Region,
		&c.EnergySources.RenewablePercent,
		&c.EnergySources.NuclearPercent,
		&c.EnergySources.FossilPercent,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	c.PricingModel = contracts.PricingModel(model)
	c.Metering = contracts.Metering(metering)
	c.ConsumptionLimitationMin = intPtr(minKWh)
	c.ConsumptionLimitationMax = intPtr(maxKWh)
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return &c, nil
}

func scanComponents(rows *sql.Rows) ([]contracts.PriceComponent, error) {
	defer rows.Close()
	var result []contracts.PriceComponent
	for rows.Next() {
		var (
			c            contracts.PriceComponent
			typ          string
			fuseSize     sql.NullString
			isPercentage sql.NullBool
			value        decimal.NullDecimal
			discountType sql.NullString
			firstNKWh    decimal.NullDecimal
			firstNMonths sql.NullInt64
			untilDate    sql.NullTime
		)
		if err := rows.Scan(
			&c.ID,
			&c.ContractID,
			&typ,
			&c.Price,
			&c.PaymentUnit,
			&c.PriceDate,
			&fuseSize,
			&isPercentage,
			&value,
			&discountType,
			&firstNKWh,
			&firstNMonths,
			&untilDate,
		); err != nil {
			return nil, err
		}
		c.Type = contracts.ComponentType(typ)
		c.PriceDate = c.PriceDate.UTC()
		if fuseSize.Valid {
			v := fuseSize.String
			c.FuseSize = &v
		}
		if isPercentage.Valid {
			d := &contracts.Discount{
				IsPercentage: isPercentage.Bool,
				Value:        value.Decimal,
				Type:         discountType.String,
			}
			if firstNKWh.Valid {
				v := firstNKWh.Decimal
				d.FirstNKWh = &v
			}
			if firstNMonths.Valid {
				v := int(firstNMonths.Int64)
				d.FirstNMonths = &v
			}
			if untilDate.Valid {
				v := untilDate.Time.UTC()
				d.UntilDate = &v
			}
			c.Discount = d
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	contracts.SortComponents(result)
	return result, nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}
