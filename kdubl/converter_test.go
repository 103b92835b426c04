package kdubl

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/openbilling/invoiceflow/invoice"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("bad date %q: %v", s, err)
	}
	return d
}

const sampleKDUBL = `<?xml version="1.0" encoding="UTF-8"?>
<Invoice xmlns:cbc="urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2"
         xmlns:cac="urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2">
  <cbc:UBLVersionID>2.1</cbc:UBLVersionID>
  <cbc:ID>INV-2024-001</cbc:ID>
  <cbc:IssueDate>2024-03-15</cbc:IssueDate>
  <cbc:InvoiceTypeCode>STANDARD</cbc:InvoiceTypeCode>
  <cac:AccountingSupplierParty>
    <cac:Party>
      <cbc:Name>Grand Hotel Beijing</cbc:Name>
      <cac:PartyTaxScheme>
        <cbc:CompanyID>110101000000001</cbc:CompanyID>
      </cac:PartyTaxScheme>
      <cac:PostalAddress>
        <cbc:StreetName>1 Hotel Road</cbc:StreetName>
        <cbc:CityName>Beijing</cbc:CityName>
        <cac:Country>
          <cbc:IdentificationCode>CN</cbc:IdentificationCode>
        </cac:Country>
      </cac:PostalAddress>
    </cac:Party>
  </cac:AccountingSupplierParty>
  <cac:AccountingCustomerParty>
    <cac:Party>
      <cbc:Name>Acme Corp</cbc:Name>
    </cac:Party>
  </cac:AccountingCustomerParty>
  <cac:InvoiceLine>
    <cbc:ID>1</cbc:ID>
    <cbc:InvoicedQuantity unitCode="NIGHT">2</cbc:InvoicedQuantity>
    <cbc:LineExtensionAmount currencyID="CNY">1000.00</cbc:LineExtensionAmount>
    <cac:Item>
      <cbc:Name>Deluxe Room</cbc:Name>
    </cac:Item>
    <cac:Price>
      <cbc:PriceAmount currencyID="CNY">500.00</cbc:PriceAmount>
    </cac:Price>
  </cac:InvoiceLine>
  <cac:LegalMonetaryTotal>
    <cbc:LineExtensionAmount currencyID="CNY">884.96</cbc:LineExtensionAmount>
    <cbc:PayableAmount currencyID="CNY">1000.00</cbc:PayableAmount>
  </cac:LegalMonetaryTotal>
  <cac:TaxTotal>
    <cbc:TaxAmount currencyID="CNY">115.04</cbc:TaxAmount>
  </cac:TaxTotal>
</Invoice>`

func TestParse(t *testing.T) {
	inv, err := Parse([]byte(sampleKDUBL))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if inv.InvoiceNumber != "INV-2024-001" {
		t.Errorf("number = %q, want INV-2024-001", inv.InvoiceNumber)
	}
	if inv.IssueDate.Format("2006-01-02") != "2024-03-15" {
		t.Errorf("issue date = %s, want 2024-03-15", inv.IssueDate.Format("2006-01-02"))
	}
	if inv.Supplier.Name != "Grand Hotel Beijing" || inv.Supplier.TaxNo != "110101000000001" {
		t.Errorf("supplier = %+v", inv.Supplier)
	}
	if inv.Supplier.Address.City != "Beijing" || inv.Supplier.Address.Country != "CN" {
		t.Errorf("supplier address = %+v", inv.Supplier.Address)
	}
	if inv.Customer.Name != "Acme Corp" || inv.Customer.TaxNo != "" {
		t.Errorf("customer = %+v", inv.Customer)
	}

	if len(inv.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(inv.Items))
	}
	it := inv.Items[0]
	if it.Description != "Deluxe Room" || it.Unit != "NIGHT" {
		t.Errorf("item = %+v", it)
	}
	if !it.Quantity.Equal(decimal.NewFromInt(2)) || !it.Amount.Equal(decimal.RequireFromString("1000.00")) {
		t.Errorf("item quantity/amount = %s/%s", it.Quantity, it.Amount)
	}
	if !it.UnitPrice.Equal(decimal.RequireFromString("500.00")) {
		t.Errorf("unit price = %s, want 500.00", it.UnitPrice)
	}

	if !inv.TotalAmount.Equal(decimal.RequireFromString("1000.00")) {
		t.Errorf("total = %s, want 1000.00", inv.TotalAmount)
	}
	if !inv.TaxAmount.Equal(decimal.RequireFromString("115.04")) {
		t.Errorf("tax = %s, want 115.04", inv.TaxAmount)
	}
	if !inv.NetAmount.Equal(decimal.RequireFromString("884.96")) {
		t.Errorf("net = %s, want 884.96", inv.NetAmount)
	}
}

func TestParseDefaults(t *testing.T) {
	inv, err := Parse([]byte(`<Invoice><InvoiceLine><Item><Name>Thing</Name></Item></InvoiceLine></Invoice>`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !strings.HasPrefix(inv.InvoiceNumber, "INV-") {
		t.Errorf("number = %q, want generated INV- prefix", inv.InvoiceNumber)
	}
	if inv.InvoiceType != "STANDARD" {
		t.Errorf("type = %q, want STANDARD", inv.InvoiceType)
	}
	if inv.Supplier.Name != "Unknown" {
		t.Errorf("supplier name = %q, want Unknown", inv.Supplier.Name)
	}
	it := inv.Items[0]
	if it.ItemID != "1" || it.Unit != "EA" || !it.Quantity.Equal(decimal.NewFromInt(1)) {
		t.Errorf("item defaults = %+v", it)
	}
}

func TestParseRejectsBadXML(t *testing.T) {
	if _, err := Parse([]byte(`<Invoice><cbc:ID>`)); err == nil {
		t.Error("expected parse error for truncated XML")
	}
}

func TestBuildParseRoundTrip(t *testing.T) {
	src := &invoice.Invoice{
		InvoiceNumber: "INV-2024-002",
		InvoiceType:   "STANDARD",
		Supplier:      invoice.Party{Name: "Grand Hotel", TaxNo: "SUP-001", Address: invoice.Address{City: "Beijing", Country: "CN"}},
		Customer:      invoice.Party{Name: "Acme Corp", TaxNo: "CUS-001"},
		Items: []invoice.LineItem{{
			ItemID:      "1",
			Description: "Deluxe Room",
			Unit:        "NIGHT",
			Quantity:    decimal.NewFromInt(2),
			UnitPrice:   decimal.NewFromInt(500),
			Amount:      decimal.NewFromInt(1000),
			TaxRate:     decimal.RequireFromString("0.13"),
			TaxCategory: "VAT-SPECIAL",
		}},
	}
	src.IssueDate = mustDate(t, "2024-03-15")
	src.Recalculate()
	src.TaxAmount = decimal.RequireFromString("115.04")
	src.NetAmount = src.TotalAmount.Sub(src.TaxAmount)

	out, err := Build(src)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	got, err := Parse([]byte(out))
	if err != nil {
		t.Fatalf("Parse of built document failed: %v", err)
	}

	if got.InvoiceNumber != src.InvoiceNumber {
		t.Errorf("number = %q, want %q", got.InvoiceNumber, src.InvoiceNumber)
	}
	if got.Supplier.TaxNo != "SUP-001" || got.Customer.TaxNo != "CUS-001" {
		t.Errorf("tax numbers = %q/%q", got.Supplier.TaxNo, got.Customer.TaxNo)
	}
	if len(got.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(got.Items))
	}
	if got.Items[0].TaxCategory != "VAT-SPECIAL" || !got.Items[0].TaxRate.Equal(decimal.RequireFromString("0.13")) {
		t.Errorf("item tax info = %q/%s", got.Items[0].TaxCategory, got.Items[0].TaxRate)
	}
	if !got.TotalAmount.Equal(src.TotalAmount) || !got.TaxAmount.Equal(src.TaxAmount) {
		t.Errorf("totals = %s/%s, want %s/%s", got.TotalAmount, got.TaxAmount, src.TotalAmount, src.TaxAmount)
	}
}
