package lookup

import (
	"context"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// ProductInfo is one standardized product entry keyed by a description
// keyword.
type ProductInfo struct {
	StandardName string
	TaxRate      decimal.Decimal
	TaxCategory  string
	CategoryCode string
}

// StaticCatalog is an in-memory ProductCatalog matching keywords against the
// line-item description. It stands in for the external product API in tests
// and single-node deployments.
type StaticCatalog struct {
	mu       sync.RWMutex
	keywords []string // match order is insertion order
	entries  map[string]ProductInfo
}

// NewStaticCatalog returns a catalog preloaded with the default keyword set.
func NewStaticCatalog() *StaticCatalog {
	c := &StaticCatalog{entries: make(map[string]ProductInfo)}
	c.Put("Room", ProductInfo{StandardName: "Accommodation", TaxRate: dec("0.13"), TaxCategory: "VAT-SPECIAL", CategoryCode: "ACCOMMODATION"})
	c.Put("Meal", ProductInfo{StandardName: "Catering", TaxRate: dec("0.06"), TaxCategory: "VAT-GENERAL", CategoryCode: "CATERING"})
	c.Put("Parking", ProductInfo{StandardName: "Parking", TaxRate: dec("0.09"), TaxCategory: "PROPERTY-LEASE", CategoryCode: "PARKING"})
	c.Put("Transport", ProductInfo{StandardName: "Transportation", TaxRate: dec("0.09"), TaxCategory: "VAT-GENERAL", CategoryCode: "TRANSPORTATION"})
	c.Put("Conference", ProductInfo{StandardName: "Conference", TaxRate: dec("0.06"), TaxCategory: "VAT-GENERAL", CategoryCode: "CONFERENCE"})
	c.Put("Training", ProductInfo{StandardName: "Training", TaxRate: dec("0.06"), TaxCategory: "VAT-GENERAL", CategoryCode: "TRAINING"})
	return c
}

// Put registers or replaces a keyword entry.
func (c *StaticCatalog) Put(keyword string, info ProductInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[keyword]; !exists {
		c.keywords = append(c.keywords, keyword)
	}
	c.entries[keyword] = info
}

func (c *StaticCatalog) match(description string) (ProductInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, kw := range c.keywords {
		if strings.Contains(description, kw) {
			return c.entries[kw], true
		}
	}
	lower := strings.ToLower(description)
	for _, kw := range c.keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return c.entries[kw], true
		}
	}
	return ProductInfo{}, false
}

func (c *StaticCatalog) StandardName(_ context.Context, description string) (string, error) {
	if info, ok := c.match(description); ok {
		return info.StandardName, nil
	}
	return "", ErrNotFound
}

func (c *StaticCatalog) TaxRate(_ context.Context, description string) (decimal.Decimal, error) {
	if info, ok := c.match(description); ok {
		return info.TaxRate, nil
	}
	return decimal.Zero, ErrNotFound
}

func (c *StaticCatalog) TaxCategory(_ context.Context, description string) (string, error) {
	if info, ok := c.match(description); ok {
		return info.TaxCategory, nil
	}
	return "", ErrNotFound
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
