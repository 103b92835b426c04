package lookup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/openbilling/invoiceflow/expr"
	"github.com/openbilling/invoiceflow/internal/logger"
)

// Fallback values returned when a lookup misses or times out. One missing
// row must never abort the pipeline, so every function has a documented
// stand-in.
var (
	fallbackTaxNumber = ""
	fallbackCategory  = "GENERAL"
	fallbackTaxRate   = decimal.RequireFromString("0.06")
	fallbackTaxClass  = "VAT"
)

// Resolver serves the closed set of reference-data functions callable from
// rule expressions. It is the sole evaluator capability that touches the
// outside world.
type Resolver struct {
	store   ReferenceStore
	catalog ProductCatalog
	cache   *Cache
	timeout time.Duration
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithCache memoizes resolved lookups. Optimization only; correctness never
// depends on it.
func WithCache(c *Cache) Option {
	return func(r *Resolver) { r.cache = c }
}

// WithTimeout bounds each individual lookup. A timed-out lookup resolves to
// the function's fallback, so one slow query cannot stall a batch.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) { r.timeout = d }
}

// NewResolver builds a resolver over the given reference store and product
// catalog. Either may be nil; functions backed by a nil collaborator resolve
// to their fallbacks.
func NewResolver(store ReferenceStore, catalog ProductCatalog, opts ...Option) *Resolver {
	r := &Resolver{
		store:   store,
		catalog: catalog,
		timeout: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ expr.Resolver = (*Resolver)(nil)

var knownFunctions = map[string]bool{
	"get_standard_name":                        true,
	"get_tax_rate":                             true,
	"get_tax_category":                         true,
	"db_query":                                 true,
	"db_query_tax_number_by_name":              true,
	"db_query_company_category_by_name":        true,
	"db_query_tax_rate_by_category_and_amount": true,
}

// Knows reports whether fn is one of the lookup functions.
func (r *Resolver) Knows(fn string) bool {
	return knownFunctions[fn]
}

// Resolve performs one lookup with evaluated argument values. Not-found and
// timeout both yield the function's fallback; only a genuinely unknown
// function or malformed argument list is an error.
func (r *Resolver) Resolve(ctx context.Context, fn string, args []any) (any, error) {
	if !knownFunctions[fn] {
		return nil, &expr.UnknownFunctionError{Name: fn}
	}

	if r.cache != nil {
		if v, ok := r.cache.Get(cacheKey(fn, args)); ok {
			return v, nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	v, err := r.dispatch(ctx, fn, args)
	if err != nil {
		return nil, err
	}
	if r.cache != nil {
		r.cache.Set(cacheKey(fn, args), v)
	}
	return v, nil
}

// db_query("name", args...) is the generic spelling; the db_query_* names are
// the direct ones. Both dispatch to the same handlers.
func (r *Resolver) dispatch(ctx context.Context, fn string, args []any) (any, error) {
	if fn == "db_query" {
		if len(args) < 1 {
			return nil, fmt.Errorf("db_query requires a query name argument")
		}
		name, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("db_query name must be a string, got %T", args[0])
		}
		switch name {
		case "get_tax_number_by_name":
			fn = "db_query_tax_number_by_name"
		case "get_company_category_by_name":
			fn = "db_query_company_category_by_name"
		case "get_tax_rate_by_category_and_amount":
			fn = "db_query_tax_rate_by_category_and_amount"
		default:
			logger.Warn("unknown db_query name", "name", name)
			return nil, nil
		}
		args = args[1:]
	}

	switch fn {
	case "get_standard_name":
		desc, err := stringArg(fn, args, 0)
		if err != nil {
			return nil, err
		}
		if r.catalog == nil {
			return desc, nil
		}
		v, err := r.catalog.StandardName(ctx, desc)
		if miss(err) {
			return desc, nil
		}
		return v, err

	case "get_tax_rate":
		desc, err := stringArg(fn, args, 0)
		if err != nil {
			return nil, err
		}
		if r.catalog == nil {
			return fallbackTaxRate, nil
		}
		v, err := r.catalog.TaxRate(ctx, desc)
		if miss(err) {
			return fallbackTaxRate, nil
		}
		return v, err

	case "get_tax_category":
		desc, err := stringArg(fn, args, 0)
		if err != nil {
			return nil, err
		}
		if r.catalog == nil {
			return fallbackTaxClass, nil
		}
		v, err := r.catalog.TaxCategory(ctx, desc)
		if miss(err) {
			return fallbackTaxClass, nil
		}
		return v, err

	case "db_query_tax_number_by_name":
		name, err := stringArg(fn, args, 0)
		if err != nil {
			return nil, err
		}
		if r.store == nil || name == "" {
			return fallbackTaxNumber, nil
		}
		v, err := r.store.TaxNumberByName(ctx, name)
		if miss(err) {
			return fallbackTaxNumber, nil
		}
		return v, err

	case "db_query_company_category_by_name":
		name, err := stringArg(fn, args, 0)
		if err != nil {
			return nil, err
		}
		if r.store == nil || name == "" {
			return fallbackCategory, nil
		}
		v, err := r.store.CategoryByName(ctx, name)
		if miss(err) {
			return fallbackCategory, nil
		}
		return v, err

	case "db_query_tax_rate_by_category_and_amount":
		if len(args) < 2 {
			return nil, fmt.Errorf("%s requires category and amount arguments", fn)
		}
		category, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("%s: category must be a string, got %T", fn, args[0])
		}
		amount, ok := args[1].(decimal.Decimal)
		if !ok {
			return nil, fmt.Errorf("%s: amount must be numeric, got %T", fn, args[1])
		}
		if r.store == nil || category == "" {
			return fallbackTaxRate, nil
		}
		v, err := r.store.TaxRateByCategoryAndAmount(ctx, category, amount)
		if miss(err) {
			return fallbackTaxRate, nil
		}
		return v, err
	}

	return nil, &expr.UnknownFunctionError{Name: fn}
}

// miss folds the tolerated failure modes into "use the fallback": a missing
// row, a cancelled/timed-out query.
func miss(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotFound) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		logger.Warn("lookup timed out, using fallback", "error", err)
		return true
	}
	return false
}

func stringArg(fn string, args []any, i int) (string, error) {
	if len(args) <= i {
		return "", fmt.Errorf("%s: missing argument %d", fn, i)
	}
	if args[i] == nil {
		return "", nil
	}
	s, ok := args[i].(string)
	if !ok {
		return "", fmt.Errorf("%s: argument %d must be a string, got %T", fn, i, args[i])
	}
	return s, nil
}

func cacheKey(fn string, args []any) string {
	var sb strings.Builder
	sb.WriteString(fn)
	for _, a := range args {
		sb.WriteByte('\x1f')
		fmt.Fprintf(&sb, "%v", a)
	}
	return sb.String()
}
