package lookup

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestStaticCatalogKeywordMatch(t *testing.T) {
	c := NewStaticCatalog()
	ctx := context.Background()

	tests := []struct {
		description string
		name        string
		rate        string
		category    string
	}{
		{"Deluxe Room Night", "Accommodation", "0.13", "VAT-SPECIAL"},
		{"Buffet Meal", "Catering", "0.06", "VAT-GENERAL"},
		{"Parking Space June", "Parking", "0.09", "PROPERTY-LEASE"},
		{"Airport Transport", "Transportation", "0.09", "VAT-GENERAL"},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			name, err := c.StandardName(ctx, tt.description)
			if err != nil {
				t.Fatalf("StandardName failed: %v", err)
			}
			if name != tt.name {
				t.Errorf("StandardName = %q, want %q", name, tt.name)
			}

			rate, err := c.TaxRate(ctx, tt.description)
			if err != nil {
				t.Fatalf("TaxRate failed: %v", err)
			}
			if !rate.Equal(decimal.RequireFromString(tt.rate)) {
				t.Errorf("TaxRate = %s, want %s", rate, tt.rate)
			}

			category, err := c.TaxCategory(ctx, tt.description)
			if err != nil {
				t.Fatalf("TaxCategory failed: %v", err)
			}
			if category != tt.category {
				t.Errorf("TaxCategory = %q, want %q", category, tt.category)
			}
		})
	}
}

func TestStaticCatalogCaseInsensitiveFallback(t *testing.T) {
	c := NewStaticCatalog()

	name, err := c.StandardName(context.Background(), "standard room night")
	if err != nil {
		t.Fatalf("StandardName failed: %v", err)
	}
	if name != "Accommodation" {
		t.Errorf("StandardName = %q, want Accommodation", name)
	}
}

func TestStaticCatalogMiss(t *testing.T) {
	c := NewStaticCatalog()

	_, err := c.StandardName(context.Background(), "Completely Unrelated")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestStaticCatalogPutOverrides(t *testing.T) {
	c := NewStaticCatalog()
	c.Put("Room", ProductInfo{StandardName: "Suite", TaxRate: decimal.RequireFromString("0.20"), TaxCategory: "VAT-LUXURY"})

	name, err := c.StandardName(context.Background(), "Room")
	if err != nil {
		t.Fatalf("StandardName failed: %v", err)
	}
	if name != "Suite" {
		t.Errorf("StandardName = %q, want Suite", name)
	}
}
