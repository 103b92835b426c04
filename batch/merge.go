// Package batch reshapes groups of invoices: merging invoices that share a
// supplier and customer pair into one, and splitting an invoice into one
// document per tax category.
package batch

import (
	"github.com/shopspring/decimal"

	"github.com/openbilling/invoiceflow/invoice"
)

type partyPair struct {
	supplierTaxNo string
	customerTaxNo string
}

type itemKey struct {
	taxRate  string
	name     string
	category string
}

// Merge combines invoices issued by the same supplier to the same customer
// into a single invoice per pair. Line items that agree on tax rate, name and
// tax category collapse into one line with summed quantity, amount and tax.
// Invoices with no partner keep their identity and pass through unchanged.
// Input order decides output order by first appearance of each pair.
func Merge(invoices []*invoice.Invoice) []*invoice.Invoice {
	if len(invoices) <= 1 {
		return invoices
	}

	groups := make(map[partyPair][]*invoice.Invoice)
	var order []partyPair
	for _, inv := range invoices {
		key := partyPair{inv.Supplier.TaxNo, inv.Customer.TaxNo}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], inv)
	}

	out := make([]*invoice.Invoice, 0, len(order))
	for _, key := range order {
		group := groups[key]
		if len(group) == 1 {
			out = append(out, group[0])
			continue
		}
		out = append(out, mergeGroup(group))
	}
	return out
}

// mergeGroup folds two or more invoices into one. The first invoice in the
// group is the template for everything but line items and totals.
func mergeGroup(group []*invoice.Invoice) *invoice.Invoice {
	merged := group[0].Clone()
	merged.InvoiceNumber = group[0].InvoiceNumber + "-M"

	var items []invoice.LineItem
	for _, inv := range group {
		items = append(items, inv.Items...)
	}
	merged.Items = combineItems(items)
	merged.Recalculate()
	return merged
}

func combineItems(items []invoice.LineItem) []invoice.LineItem {
	combined := make(map[itemKey]*invoice.LineItem)
	counts := make(map[itemKey]int)
	var order []itemKey

	for i := range items {
		it := items[i]
		key := itemKey{
			taxRate:  it.TaxRate.String(),
			name:     itemName(&it),
			category: it.TaxCategory,
		}
		dst, ok := combined[key]
		if !ok {
			cp := it
			combined[key] = &cp
			counts[key] = 1
			order = append(order, key)
			continue
		}
		if counts[key] == 1 {
			dst.Description = dst.Description + " (merged)"
		}
		counts[key]++
		dst.Quantity = dst.Quantity.Add(it.Quantity)
		dst.Amount = dst.Amount.Add(it.Amount)
		dst.TaxAmount = dst.TaxAmount.Add(it.TaxAmount)
	}

	// Unit price is only recomputed for lines that actually absorbed
	// another line. A line that merged with nothing keeps the price it
	// came with, even when amount != quantity * price.
	out := make([]invoice.LineItem, 0, len(order))
	for _, key := range order {
		it := combined[key]
		if counts[key] > 1 {
			if it.Quantity.IsZero() {
				it.UnitPrice = decimal.Zero
			} else {
				it.UnitPrice = it.Amount.Div(it.Quantity)
			}
		}
		out = append(out, *it)
	}
	return out
}

// itemName is the grouping name of a line: the standard name when present,
// the raw description otherwise.
func itemName(it *invoice.LineItem) string {
	if it.StandardName != "" {
		return it.StandardName
	}
	return it.Description
}
