package lookup

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// PostgresStore implements ReferenceStore over the companies and tax_rates
// tables. It is read-only from the engine's perspective; rows are maintained
// through the management API, not here.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// TaxNumberByName matches the exact company name first, then falls back to a
// substring match against active companies.
func (s *PostgresStore) TaxNumberByName(ctx context.Context, name string) (string, error) {
	var taxNumber sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT tax_number FROM companies
		WHERE name = $1 AND is_active = true
	`, name).Scan(&taxNumber)
	if err == nil {
		return taxNumber.String, nil
	}
	if err != sql.ErrNoRows {
		return "", fmt.Errorf("failed to query company by name: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT tax_number FROM companies
		WHERE name LIKE '%' || $1 || '%' AND is_active = true
		ORDER BY name ASC
		LIMIT 1
	`, name).Scan(&taxNumber)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to query company by name pattern: %w", err)
	}
	return taxNumber.String, nil
}

// CategoryByName returns the category of the first company whose name
// contains the given name.
func (s *PostgresStore) CategoryByName(ctx context.Context, name string) (string, error) {
	var category string
	err := s.db.QueryRowContext(ctx, `
		SELECT category FROM companies
		WHERE name LIKE '%' || $1 || '%' AND is_active = true
		ORDER BY name ASC
		LIMIT 1
	`, name).Scan(&category)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to query company category: %w", err)
	}
	return category, nil
}

// TaxRateByCategoryAndAmount returns the rate of the active band covering the
// amount for the category. Bands are [min_amount, max_amount); a null
// max_amount is unbounded.
func (s *PostgresStore) TaxRateByCategoryAndAmount(ctx context.Context, category string, amount decimal.Decimal) (decimal.Decimal, error) {
	var rate string
	err := s.db.QueryRowContext(ctx, `
		SELECT rate::text FROM tax_rates
		WHERE category = $1
		  AND is_active = true
		  AND min_amount <= $2
		  AND (max_amount IS NULL OR max_amount > $2)
		ORDER BY min_amount DESC
		LIMIT 1
	`, category, amount.String()).Scan(&rate)
	if err == sql.ErrNoRows {
		return decimal.Zero, ErrNotFound
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to query tax rate: %w", err)
	}
	d, err := decimal.NewFromString(rate)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid rate %q in tax_rates: %w", rate, err)
	}
	return d, nil
}
