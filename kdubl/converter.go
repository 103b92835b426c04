// Package kdubl converts between the KDUBL wire format, a UBL 2.1 subset,
// and the in-memory invoice document. Conversion happens only at the edges
// of the pipeline; everything in between works on the domain object.
package kdubl

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/openbilling/invoiceflow/invoice"
)

const (
	cbcNS = "urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2"
	cacNS = "urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"

	defaultCurrency = "CNY"
	defaultUnit     = "EA"
)

// Element tags carry only local names so parsing accepts both prefixed and
// unprefixed input. Build declares the UBL namespaces on the root.

type xmlInvoice struct {
	XMLName              xml.Name          `xml:"Invoice"`
	CbcNS                string            `xml:"xmlns:cbc,attr,omitempty"`
	CacNS                string            `xml:"xmlns:cac,attr,omitempty"`
	UBLVersionID         string            `xml:"UBLVersionID,omitempty"`
	ID                   string            `xml:"ID,omitempty"`
	IssueDate            string            `xml:"IssueDate,omitempty"`
	InvoiceTypeCode      string            `xml:"InvoiceTypeCode,omitempty"`
	DocumentCurrencyCode string            `xml:"DocumentCurrencyCode,omitempty"`
	Supplier             *xmlPartyWrapper  `xml:"AccountingSupplierParty"`
	Customer             *xmlPartyWrapper  `xml:"AccountingCustomerParty"`
	Lines                []xmlInvoiceLine  `xml:"InvoiceLine"`
	MonetaryTotal        *xmlMonetaryTotal `xml:"LegalMonetaryTotal"`
	TaxTotal             *xmlTaxTotal      `xml:"TaxTotal"`
}

type xmlPartyWrapper struct {
	Party xmlParty `xml:"Party"`
}

type xmlParty struct {
	Name          string        `xml:"Name,omitempty"`
	TaxScheme     *xmlTaxScheme `xml:"PartyTaxScheme"`
	PostalAddress *xmlAddress   `xml:"PostalAddress"`
}

type xmlTaxScheme struct {
	CompanyID string `xml:"CompanyID,omitempty"`
}

type xmlAddress struct {
	StreetName string      `xml:"StreetName,omitempty"`
	CityName   string      `xml:"CityName,omitempty"`
	Country    *xmlCountry `xml:"Country"`
}

type xmlCountry struct {
	IdentificationCode string `xml:"IdentificationCode,omitempty"`
}

type xmlInvoiceLine struct {
	ID                  string       `xml:"ID,omitempty"`
	InvoicedQuantity    *xmlQuantity `xml:"InvoicedQuantity"`
	LineExtensionAmount *xmlAmount   `xml:"LineExtensionAmount"`
	Item                xmlItem      `xml:"Item"`
	Price               *xmlPrice    `xml:"Price"`
}

type xmlQuantity struct {
	UnitCode string `xml:"unitCode,attr,omitempty"`
	Value    string `xml:",chardata"`
}

type xmlAmount struct {
	CurrencyID string `xml:"currencyID,attr,omitempty"`
	Value      string `xml:",chardata"`
}

type xmlItem struct {
	Name        string          `xml:"Name,omitempty"`
	TaxCategory *xmlTaxCategory `xml:"ClassifiedTaxCategory"`
}

type xmlTaxCategory struct {
	ID      string `xml:"ID,omitempty"`
	Percent string `xml:"Percent,omitempty"`
}

type xmlPrice struct {
	PriceAmount xmlAmount `xml:"PriceAmount"`
}

type xmlMonetaryTotal struct {
	LineExtensionAmount *xmlAmount `xml:"LineExtensionAmount"`
	PayableAmount       *xmlAmount `xml:"PayableAmount"`
}

type xmlTaxTotal struct {
	TaxAmount xmlAmount `xml:"TaxAmount"`
}

// Parse decodes a KDUBL document into an invoice. Missing optional elements
// get the same defaults the format has always implied: today's date, the
// STANDARD type, quantity 1 and unit EA.
func Parse(data []byte) (*invoice.Invoice, error) {
	var doc xmlInvoice
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse KDUBL: %w", err)
	}

	inv := &invoice.Invoice{
		InvoiceNumber: doc.ID,
		InvoiceType:   doc.InvoiceTypeCode,
	}
	if inv.InvoiceNumber == "" {
		inv.InvoiceNumber = "INV-" + time.Now().Format("20060102150405")
	}
	if inv.InvoiceType == "" {
		inv.InvoiceType = "STANDARD"
	}

	if doc.IssueDate != "" {
		d, err := time.Parse("2006-01-02", doc.IssueDate)
		if err != nil {
			return nil, fmt.Errorf("invalid issue date %q: %w", doc.IssueDate, err)
		}
		inv.IssueDate = d
	} else {
		inv.IssueDate = time.Now().Truncate(24 * time.Hour)
	}

	inv.Supplier = parseParty(doc.Supplier)
	inv.Customer = parseParty(doc.Customer)
	inv.Country = inv.Supplier.Address.Country

	for i, line := range doc.Lines {
		it, err := parseLine(i, line)
		if err != nil {
			return nil, err
		}
		inv.Items = append(inv.Items, it)
	}

	if doc.MonetaryTotal != nil {
		inv.TotalAmount = parseAmount(doc.MonetaryTotal.PayableAmount)
		inv.NetAmount = parseAmount(doc.MonetaryTotal.LineExtensionAmount)
	}
	if doc.TaxTotal != nil {
		inv.TaxAmount = parseAmount(&doc.TaxTotal.TaxAmount)
	}

	return inv, nil
}

func parseParty(w *xmlPartyWrapper) invoice.Party {
	if w == nil {
		return invoice.Party{Name: "Unknown"}
	}
	p := invoice.Party{Name: w.Party.Name}
	if p.Name == "" {
		p.Name = "Unknown"
	}
	if w.Party.TaxScheme != nil {
		p.TaxNo = w.Party.TaxScheme.CompanyID
	}
	if addr := w.Party.PostalAddress; addr != nil {
		p.Address.Street = addr.StreetName
		p.Address.City = addr.CityName
		if addr.Country != nil {
			p.Address.Country = addr.Country.IdentificationCode
		}
	}
	return p
}

func parseLine(i int, line xmlInvoiceLine) (invoice.LineItem, error) {
	it := invoice.LineItem{
		ItemID:      line.ID,
		Description: line.Item.Name,
		Unit:        defaultUnit,
		Quantity:    decimal.NewFromInt(1),
	}
	if it.ItemID == "" {
		it.ItemID = strconv.Itoa(i + 1)
	}
	if it.Description == "" {
		it.Description = "Unknown Item"
	}
	if q := line.InvoicedQuantity; q != nil {
		if q.UnitCode != "" {
			it.Unit = q.UnitCode
		}
		if q.Value != "" {
			v, err := decimal.NewFromString(q.Value)
			if err != nil {
				return it, fmt.Errorf("line %s: invalid quantity %q: %w", it.ItemID, q.Value, err)
			}
			it.Quantity = v
		}
	}
	it.Amount = parseAmount(line.LineExtensionAmount)
	if line.Price != nil {
		it.UnitPrice = parseAmount(&line.Price.PriceAmount)
	}
	if tc := line.Item.TaxCategory; tc != nil {
		it.TaxCategory = tc.ID
		if tc.Percent != "" {
			v, err := decimal.NewFromString(tc.Percent)
			if err != nil {
				return it, fmt.Errorf("line %s: invalid tax percent %q: %w", it.ItemID, tc.Percent, err)
			}
			it.TaxRate = v
		}
	}
	return it, nil
}

func parseAmount(a *xmlAmount) decimal.Decimal {
	if a == nil || a.Value == "" {
		return decimal.Zero
	}
	v, err := decimal.NewFromString(a.Value)
	if err != nil {
		return decimal.Zero
	}
	return v
}

// Build encodes an invoice back into KDUBL.
func Build(inv *invoice.Invoice) (string, error) {
	doc := xmlInvoice{
		CbcNS:                cbcNS,
		CacNS:                cacNS,
		UBLVersionID:         "2.1",
		ID:                   inv.InvoiceNumber,
		IssueDate:            inv.IssueDate.Format("2006-01-02"),
		InvoiceTypeCode:      inv.InvoiceType,
		DocumentCurrencyCode: defaultCurrency,
		Supplier:             buildParty(&inv.Supplier),
		Customer:             buildParty(&inv.Customer),
	}

	for _, it := range inv.Items {
		doc.Lines = append(doc.Lines, buildLine(&it))
	}

	doc.MonetaryTotal = &xmlMonetaryTotal{
		PayableAmount: amount(inv.TotalAmount),
	}
	if !inv.NetAmount.IsZero() {
		doc.MonetaryTotal.LineExtensionAmount = amount(inv.NetAmount)
	}
	if !inv.TaxAmount.IsZero() {
		doc.TaxTotal = &xmlTaxTotal{TaxAmount: *amount(inv.TaxAmount)}
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to build KDUBL: %w", err)
	}
	return xml.Header + string(out), nil
}

func buildParty(p *invoice.Party) *xmlPartyWrapper {
	w := &xmlPartyWrapper{Party: xmlParty{Name: p.Name}}
	if p.TaxNo != "" {
		w.Party.TaxScheme = &xmlTaxScheme{CompanyID: p.TaxNo}
	}
	if p.Address != (invoice.Address{}) {
		addr := &xmlAddress{StreetName: p.Address.Street, CityName: p.Address.City}
		if p.Address.Country != "" {
			addr.Country = &xmlCountry{IdentificationCode: p.Address.Country}
		}
		w.Party.PostalAddress = addr
	}
	return w
}

func buildLine(it *invoice.LineItem) xmlInvoiceLine {
	line := xmlInvoiceLine{
		ID: it.ItemID,
		InvoicedQuantity: &xmlQuantity{
			UnitCode: it.Unit,
			Value:    it.Quantity.String(),
		},
		LineExtensionAmount: amount(it.Amount),
		Item:                xmlItem{Name: it.Description},
		Price:               &xmlPrice{PriceAmount: *amount(it.UnitPrice)},
	}
	if it.TaxCategory != "" || !it.TaxRate.IsZero() {
		line.Item.TaxCategory = &xmlTaxCategory{ID: it.TaxCategory}
		if !it.TaxRate.IsZero() {
			line.Item.TaxCategory.Percent = it.TaxRate.String()
		}
	}
	return line
}

func amount(v decimal.Decimal) *xmlAmount {
	return &xmlAmount{CurrencyID: defaultCurrency, Value: v.String()}
}
