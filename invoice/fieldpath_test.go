package invoice

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestSetFieldStringPaths(t *testing.T) {
	inv := &Invoice{}

	tests := []struct {
		path  string
		value string
		got   func() string
	}{
		{"supplier.tax_no", "110101000000001", func() string { return inv.Supplier.TaxNo }},
		{"customer.name", "Customer B", func() string { return inv.Customer.Name }},
		{"supplier.address.city", "Beijing", func() string { return inv.Supplier.Address.City }},
		{"country", "CN", func() string { return inv.Country }},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if err := SetField(inv, tt.path, tt.value); err != nil {
				t.Fatalf("SetField(%s) failed: %v", tt.path, err)
			}
			if tt.got() != tt.value {
				t.Errorf("after SetField(%s), field = %q, want %q", tt.path, tt.got(), tt.value)
			}
		})
	}
}

func TestSetFieldDecimalCoercion(t *testing.T) {
	inv := &Invoice{}

	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"decimal", decimal.RequireFromString("10.50"), "10.5"},
		{"int", 7, "7"},
		{"float64", 0.06, "0.06"},
		{"string", "123.45", "123.45"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := SetField(inv, "total_amount", tt.value); err != nil {
				t.Fatalf("SetField failed: %v", err)
			}
			if inv.TotalAmount.String() != tt.want {
				t.Errorf("total_amount = %s, want %s", inv.TotalAmount, tt.want)
			}
		})
	}
}

func TestSetFieldUnknownPath(t *testing.T) {
	inv := &Invoice{}

	err := SetField(inv, "supplier.vat_class", "x")
	var fpe *FieldPathError
	if !errors.As(err, &fpe) {
		t.Fatalf("error = %v, want *FieldPathError", err)
	}
	if fpe.Path != "supplier.vat_class" {
		t.Errorf("Path = %q, want supplier.vat_class", fpe.Path)
	}
}

func TestSetFieldTypeMismatch(t *testing.T) {
	inv := &Invoice{}

	if err := SetField(inv, "total_amount", "not a number"); err == nil {
		t.Error("expected coercion error for non-numeric string")
	}
	if err := SetField(inv, "supplier.name", 42); err == nil {
		t.Error("expected type error for int into string field")
	}
}

func TestSetFieldExtensions(t *testing.T) {
	inv := &Invoice{}

	if err := SetField(inv, "extensions.channel", "hotel-direct"); err != nil {
		t.Fatalf("SetField failed: %v", err)
	}
	if inv.Extensions["channel"] != "hotel-direct" {
		t.Errorf("extensions.channel = %v, want hotel-direct", inv.Extensions["channel"])
	}
}

func TestSetItemField(t *testing.T) {
	it := &LineItem{Description: "Deluxe Room"}

	if err := SetItemField(it, "standard_name", "Accommodation"); err != nil {
		t.Fatalf("SetItemField failed: %v", err)
	}
	if it.StandardName != "Accommodation" {
		t.Errorf("standard_name = %q, want Accommodation", it.StandardName)
	}

	if err := SetItemField(it, "tax_rate", decimal.RequireFromString("0.13")); err != nil {
		t.Fatalf("SetItemField failed: %v", err)
	}
	if !it.TaxRate.Equal(decimal.RequireFromString("0.13")) {
		t.Errorf("tax_rate = %s, want 0.13", it.TaxRate)
	}

	if err := SetItemField(it, "note", "x"); err == nil {
		t.Error("expected error for unknown item field")
	}
}

func TestSetFieldItemsRebuild(t *testing.T) {
	inv := &Invoice{}

	raw := []any{
		map[string]any{
			"item_id":     "1",
			"description": "Room",
			"quantity":    decimal.NewFromInt(2),
			"amount":      "200",
		},
	}
	if err := SetField(inv, "items", raw); err != nil {
		t.Fatalf("SetField(items) failed: %v", err)
	}
	if len(inv.Items) != 1 {
		t.Fatalf("items length = %d, want 1", len(inv.Items))
	}
	it := inv.Items[0]
	if it.Description != "Room" || !it.Quantity.Equal(decimal.NewFromInt(2)) || !it.Amount.Equal(decimal.NewFromInt(200)) {
		t.Errorf("rebuilt item = %+v", it)
	}
}

func TestRecalculate(t *testing.T) {
	inv := &Invoice{
		Items: []LineItem{
			{Amount: decimal.RequireFromString("100.10"), TaxAmount: decimal.RequireFromString("6.01")},
			{Amount: decimal.RequireFromString("50.20"), TaxAmount: decimal.RequireFromString("3.01")},
		},
	}
	inv.Recalculate()

	if !inv.TotalAmount.Equal(decimal.RequireFromString("150.30")) {
		t.Errorf("total = %s, want 150.30", inv.TotalAmount)
	}
	if !inv.TaxAmount.Equal(decimal.RequireFromString("9.02")) {
		t.Errorf("tax = %s, want 9.02", inv.TaxAmount)
	}
	if !inv.NetAmount.Equal(decimal.RequireFromString("141.28")) {
		t.Errorf("net = %s, want 141.28", inv.NetAmount)
	}
}

func TestCloneIsDeep(t *testing.T) {
	inv := &Invoice{
		InvoiceNumber: "INV-001",
		Items:         []LineItem{{ItemID: "1", Description: "Room"}},
		Extensions:    map[string]any{"channel": "direct"},
	}
	cp := inv.Clone()

	cp.Items[0].Description = "Meal"
	cp.Extensions["channel"] = "other"

	if inv.Items[0].Description != "Room" {
		t.Error("clone shares item slice with original")
	}
	if inv.Extensions["channel"] != "direct" {
		t.Error("clone shares extension map with original")
	}
}
