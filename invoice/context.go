package invoice

// Context returns the map view of the invoice that expressions evaluate
// against. Every declared field is present so a dotted path over the document
// never misses; empty strings and zero-value extensions read back as their
// values, absent optional structure reads as nil. Decimals are passed through
// unconverted so money never degrades to binary float.
func (inv *Invoice) Context() map[string]any {
	m := map[string]any{
		"invoice_number": inv.InvoiceNumber,
		"issue_date":     inv.IssueDate.Format("2006-01-02"),
		"invoice_type":   inv.InvoiceType,
		"country":        inv.Country,
		"supplier":       partyContext(&inv.Supplier),
		"customer":       partyContext(&inv.Customer),
		"total_amount":   inv.TotalAmount,
		"tax_amount":     inv.TaxAmount,
		"net_amount":     inv.NetAmount,
	}

	items := make([]any, len(inv.Items))
	for i := range inv.Items {
		items[i] = inv.Items[i].Context()
	}
	m["items"] = items

	ext := make(map[string]any, len(inv.Extensions))
	for k, v := range inv.Extensions {
		ext[k] = v
	}
	m["extensions"] = ext

	return m
}

// Context returns the map view of a single line item, used as the "item"
// variable for items[].* scoped rules.
func (it *LineItem) Context() map[string]any {
	return map[string]any{
		"item_id":       it.ItemID,
		"description":   it.Description,
		"standard_name": it.StandardName,
		"unit":          it.Unit,
		"quantity":      it.Quantity,
		"unit_price":    it.UnitPrice,
		"amount":        it.Amount,
		"tax_rate":      it.TaxRate,
		"tax_amount":    it.TaxAmount,
		"tax_category":  it.TaxCategory,
	}
}

func partyContext(p *Party) map[string]any {
	return map[string]any{
		"name":         p.Name,
		"tax_no":       p.TaxNo,
		"email":        p.Email,
		"phone":        p.Phone,
		"bank_account": p.BankAccount,
		"address": map[string]any{
			"street":      p.Address.Street,
			"city":        p.Address.City,
			"state":       p.Address.State,
			"postal_code": p.Address.PostalCode,
			"country":     p.Address.Country,
		},
	}
}
