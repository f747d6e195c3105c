package referencedata

import (
	"context"
	"database/sql"
	"errors"

	"electricity-compare/internal/db"
)

// Repository reads postcodes and municipalities from Postgres.
type Repository struct {
	db db.DBTX
}

// NewRepository constructs a repository.
func NewRepository(conn db.DBTX) *Repository {
	return &Repository{db: conn}
}

// ListPostcodes returns the active postcodes in ascending order.
func (r *Repository) ListPostcodes(ctx context.Context) ([]string, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("referencedata repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT postcode
FROM postcodes
WHERE is_active
ORDER BY postcode ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return codes, nil
}

// GetPostcode loads one postcode.
func (r *Repository) GetPostcode(ctx context.Context, code string) (*Postcode, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("referencedata repo: nil db")
	}
	if !ValidPostcode(code) {
		return nil, ErrInvalidPostcode
	}
	var (
		p            Postcode
		municipality sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
SELECT postcode, name, municipality_code, is_active
FROM postcodes
WHERE postcode = $1
LIMIT 1`, code).Scan(&p.Code, &p.Name, &municipality, &p.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPostcodeNotFound
	}
	if err != nil {
		return nil, err
	}
	p.MunicipalityCode = municipality.String
	return &p, nil
}

// GetMunicipality loads one municipality.
func (r *Repository) GetMunicipality(ctx context.Context, code string) (*Municipality, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("referencedata repo: nil db")
	}
	var m Municipality
	err := r.db.QueryRowContext(ctx, `
SELECT code, name, region
FROM municipalities
WHERE code = $1
LIMIT 1`, code).Scan(&m.Code, &m.Name, &m.Region)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMunicipalityNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}
