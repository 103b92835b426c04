package lookup

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned by reference stores when a lookup key has no row.
// The resolver translates it into a per-function fallback value; it never
// aborts rule evaluation.
var ErrNotFound = errors.New("lookup: not found")

// ReferenceStore answers reference-data questions against the company
// registry and tax-rate table. All methods are read-only and fallible.
type ReferenceStore interface {
	// TaxNumberByName returns the registered tax number of a company,
	// matching the exact name first and falling back to a substring match.
	TaxNumberByName(ctx context.Context, name string) (string, error)

	// CategoryByName returns the registered category of a company.
	CategoryByName(ctx context.Context, name string) (string, error)

	// TaxRateByCategoryAndAmount returns the applicable rate for a tax
	// category at a given amount (rates may be banded by amount).
	TaxRateByCategoryAndAmount(ctx context.Context, category string, amount decimal.Decimal) (decimal.Decimal, error)
}

// ProductCatalog answers product standardization questions by line-item
// description.
type ProductCatalog interface {
	StandardName(ctx context.Context, description string) (string, error)
	TaxRate(ctx context.Context, description string) (decimal.Decimal, error)
	TaxCategory(ctx context.Context, description string) (string, error)
}
