package batch

import (
	"github.com/openbilling/invoiceflow/invoice"
)

// Split breaks an invoice into one invoice per tax category, each carrying a
// deep copy of the header and only the lines of its category. Output order
// follows the first appearance of each category in the line items. An
// invoice whose lines all share one category comes back as a single copy,
// and an invoice with no lines at all passes through as a copy too: split
// never drops a document.
func Split(inv *invoice.Invoice) []*invoice.Invoice {
	if inv == nil {
		return nil
	}
	if len(inv.Items) == 0 {
		return []*invoice.Invoice{inv.Clone()}
	}

	groups := make(map[string][]invoice.LineItem)
	var order []string
	for _, it := range inv.Items {
		if _, ok := groups[it.TaxCategory]; !ok {
			order = append(order, it.TaxCategory)
		}
		groups[it.TaxCategory] = append(groups[it.TaxCategory], it)
	}

	if len(order) == 1 {
		out := inv.Clone()
		out.Recalculate()
		return []*invoice.Invoice{out}
	}

	out := make([]*invoice.Invoice, 0, len(order))
	for _, category := range order {
		part := inv.Clone()
		part.InvoiceNumber = inv.InvoiceNumber + "-" + category
		part.Items = groups[category]
		part.Recalculate()
		out = append(out, part)
	}
	return out
}

// SplitAll applies Split to every invoice, flattening the results in order.
func SplitAll(invoices []*invoice.Invoice) []*invoice.Invoice {
	var out []*invoice.Invoice
	for _, inv := range invoices {
		out = append(out, Split(inv)...)
	}
	return out
}

// MergeAndSplit merges first, then splits the merged results. Merge runs
// before split so lines consolidated across invoices land in the right
// per-category document.
func MergeAndSplit(invoices []*invoice.Invoice) []*invoice.Invoice {
	return SplitAll(Merge(invoices))
}
