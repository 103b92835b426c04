package invoice

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// FieldPathError reports a completion rule targeting a path that does not
// exist on the document, or a value that cannot be coerced into the field's
// declared type.
type FieldPathError struct {
	Path string
	Err  error
}

func (e *FieldPathError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("field path %q: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("field path %q does not exist", e.Path)
}

func (e *FieldPathError) Unwrap() error { return e.Err }

// Mutators are an explicit registry of dotted paths to typed setter closures.
// Navigation happens inside the closure; there is no runtime reflection.
type invoiceSetter func(*Invoice, any) error
type itemSetter func(*LineItem, any) error

var invoiceSetters = map[string]invoiceSetter{
	"invoice_number": func(inv *Invoice, v any) error { return setString(&inv.InvoiceNumber, v) },
	"invoice_type":   func(inv *Invoice, v any) error { return setString(&inv.InvoiceType, v) },
	"country":        func(inv *Invoice, v any) error { return setString(&inv.Country, v) },
	"total_amount":   func(inv *Invoice, v any) error { return setDecimal(&inv.TotalAmount, v) },
	"tax_amount":     func(inv *Invoice, v any) error { return setDecimal(&inv.TaxAmount, v) },
	"net_amount":     func(inv *Invoice, v any) error { return setDecimal(&inv.NetAmount, v) },

	"supplier.name":         func(inv *Invoice, v any) error { return setString(&inv.Supplier.Name, v) },
	"supplier.tax_no":       func(inv *Invoice, v any) error { return setString(&inv.Supplier.TaxNo, v) },
	"supplier.email":        func(inv *Invoice, v any) error { return setString(&inv.Supplier.Email, v) },
	"supplier.phone":        func(inv *Invoice, v any) error { return setString(&inv.Supplier.Phone, v) },
	"supplier.bank_account": func(inv *Invoice, v any) error { return setString(&inv.Supplier.BankAccount, v) },

	"customer.name":         func(inv *Invoice, v any) error { return setString(&inv.Customer.Name, v) },
	"customer.tax_no":       func(inv *Invoice, v any) error { return setString(&inv.Customer.TaxNo, v) },
	"customer.email":        func(inv *Invoice, v any) error { return setString(&inv.Customer.Email, v) },
	"customer.phone":        func(inv *Invoice, v any) error { return setString(&inv.Customer.Phone, v) },
	"customer.bank_account": func(inv *Invoice, v any) error { return setString(&inv.Customer.BankAccount, v) },

	"supplier.address.street":      func(inv *Invoice, v any) error { return setString(&inv.Supplier.Address.Street, v) },
	"supplier.address.city":        func(inv *Invoice, v any) error { return setString(&inv.Supplier.Address.City, v) },
	"supplier.address.country":     func(inv *Invoice, v any) error { return setString(&inv.Supplier.Address.Country, v) },
	"supplier.address.postal_code": func(inv *Invoice, v any) error { return setString(&inv.Supplier.Address.PostalCode, v) },
	"customer.address.street":      func(inv *Invoice, v any) error { return setString(&inv.Customer.Address.Street, v) },
	"customer.address.city":        func(inv *Invoice, v any) error { return setString(&inv.Customer.Address.City, v) },
	"customer.address.country":     func(inv *Invoice, v any) error { return setString(&inv.Customer.Address.Country, v) },
	"customer.address.postal_code": func(inv *Invoice, v any) error { return setString(&inv.Customer.Address.PostalCode, v) },

	// List fields are rebuilt as typed items rather than stored raw.
	"items": func(inv *Invoice, v any) error {
		items, err := coerceItems(v)
		if err != nil {
			return err
		}
		inv.Items = items
		return nil
	},
}

var itemSetters = map[string]itemSetter{
	"item_id":       func(it *LineItem, v any) error { return setString(&it.ItemID, v) },
	"description":   func(it *LineItem, v any) error { return setString(&it.Description, v) },
	"standard_name": func(it *LineItem, v any) error { return setString(&it.StandardName, v) },
	"unit":          func(it *LineItem, v any) error { return setString(&it.Unit, v) },
	"tax_category":  func(it *LineItem, v any) error { return setString(&it.TaxCategory, v) },
	"quantity":      func(it *LineItem, v any) error { return setDecimal(&it.Quantity, v) },
	"unit_price":    func(it *LineItem, v any) error { return setDecimal(&it.UnitPrice, v) },
	"amount":        func(it *LineItem, v any) error { return setDecimal(&it.Amount, v) },
	"tax_rate":      func(it *LineItem, v any) error { return setDecimal(&it.TaxRate, v) },
	"tax_amount":    func(it *LineItem, v any) error { return setDecimal(&it.TaxAmount, v) },
}

// SetField writes v at the dotted path on the document, coercing to the
// field's declared type. Paths under "extensions." create or overwrite the
// extension key. Unknown paths return a FieldPathError.
func SetField(inv *Invoice, path string, v any) error {
	if len(path) > 11 && path[:11] == "extensions." {
		if inv.Extensions == nil {
			inv.Extensions = make(map[string]any)
		}
		inv.Extensions[path[11:]] = v
		return nil
	}
	set, ok := invoiceSetters[path]
	if !ok {
		return &FieldPathError{Path: path}
	}
	if err := set(inv, v); err != nil {
		return &FieldPathError{Path: path, Err: err}
	}
	return nil
}

// SetItemField writes v on a single line item; name is the path segment after
// the "items[]." prefix of a completion rule target.
func SetItemField(it *LineItem, name string, v any) error {
	set, ok := itemSetters[name]
	if !ok {
		return &FieldPathError{Path: "items[]." + name}
	}
	if err := set(it, v); err != nil {
		return &FieldPathError{Path: "items[]." + name, Err: err}
	}
	return nil
}

func setString(dst *string, v any) error {
	s, ok := v.(string)
	if !ok {
		return fmt.Errorf("expected string, got %T", v)
	}
	*dst = s
	return nil
}

func setDecimal(dst *decimal.Decimal, v any) error {
	d, err := CoerceDecimal(v)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}

// CoerceDecimal converts the value shapes that rule expressions and wire
// decoding produce into an exact decimal. Binary floats are converted through
// their shortest decimal representation.
func CoerceDecimal(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case float64:
		return decimal.NewFromFloat(n), nil
	case string:
		d, err := decimal.NewFromString(n)
		if err != nil {
			return decimal.Zero, fmt.Errorf("not a decimal: %q", n)
		}
		return d, nil
	default:
		return decimal.Zero, fmt.Errorf("cannot coerce %T to decimal", v)
	}
}

func coerceItems(v any) ([]LineItem, error) {
	raw, ok := v.([]any)
	if !ok {
		if typed, ok := v.([]LineItem); ok {
			return typed, nil
		}
		return nil, fmt.Errorf("expected list of items, got %T", v)
	}
	items := make([]LineItem, 0, len(raw))
	for i, el := range raw {
		m, ok := el.(map[string]any)
		if !ok {
			if typed, ok := el.(LineItem); ok {
				items = append(items, typed)
				continue
			}
			return nil, fmt.Errorf("item %d: expected object, got %T", i, el)
		}
		var it LineItem
		for k, fv := range m {
			if fv == nil {
				continue
			}
			set, known := itemSetters[k]
			if !known {
				return nil, fmt.Errorf("item %d: unknown field %q", i, k)
			}
			if err := set(&it, fv); err != nil {
				return nil, fmt.Errorf("item %d: field %q: %w", i, k, err)
			}
		}
		items = append(items, it)
	}
	return items, nil
}
