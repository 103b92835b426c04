package invoice

import (
	"time"

	"github.com/shopspring/decimal"
)

// Address holds the postal address of a party.
type Address struct {
	Street     string `json:"street,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
}

// Party is one side of an invoice (supplier or customer).
type Party struct {
	Name        string  `json:"name"`
	TaxNo       string  `json:"tax_no,omitempty"`
	Address     Address `json:"address,omitempty"`
	Email       string  `json:"email,omitempty"`
	Phone       string  `json:"phone,omitempty"`
	BankAccount string  `json:"bank_account,omitempty"`
}

// LineItem is one billable row of an invoice.
type LineItem struct {
	ItemID       string          `json:"item_id"`
	Description  string          `json:"description"`
	StandardName string          `json:"standard_name,omitempty"`
	Unit         string          `json:"unit,omitempty"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Amount       decimal.Decimal `json:"amount"`
	TaxRate      decimal.Decimal `json:"tax_rate,omitempty"`
	TaxAmount    decimal.Decimal `json:"tax_amount,omitempty"`
	TaxCategory  string          `json:"tax_category,omitempty"`
}

// Invoice is the in-memory document the engines operate on. It is created per
// request, mutated in place through the pipeline and discarded afterwards;
// nothing here is persisted.
type Invoice struct {
	InvoiceNumber string          `json:"invoice_number"`
	IssueDate     time.Time       `json:"issue_date"`
	InvoiceType   string          `json:"invoice_type"`
	Country       string          `json:"country,omitempty"`
	Supplier      Party           `json:"supplier"`
	Customer      Party           `json:"customer"`
	Items         []LineItem      `json:"items"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	TaxAmount     decimal.Decimal `json:"tax_amount,omitempty"`
	NetAmount     decimal.Decimal `json:"net_amount,omitempty"`

	// Extensions holds rule-derived fields that have no declared slot on the
	// document. Keys are set by completion rules targeting "extensions.<key>".
	Extensions map[string]any `json:"extensions,omitempty"`
}

// Clone returns a deep copy. The split phase emits copies of the header so
// output documents never share line slices or extension maps.
func (inv *Invoice) Clone() *Invoice {
	out := *inv
	out.Items = make([]LineItem, len(inv.Items))
	copy(out.Items, inv.Items)
	if inv.Extensions != nil {
		out.Extensions = make(map[string]any, len(inv.Extensions))
		for k, v := range inv.Extensions {
			out.Extensions[k] = v
		}
	}
	return &out
}

// Recalculate rederives the monetary totals from the line items:
// total = sum of line amounts, tax = sum of line tax amounts,
// net = total - tax.
func (inv *Invoice) Recalculate() {
	total := decimal.Zero
	tax := decimal.Zero
	for _, it := range inv.Items {
		total = total.Add(it.Amount)
		tax = tax.Add(it.TaxAmount)
	}
	inv.TotalAmount = total
	inv.TaxAmount = tax
	inv.NetAmount = total.Sub(tax)
}
