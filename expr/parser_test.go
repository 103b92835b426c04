package expr

import (
	"errors"
	"testing"
)

func TestCompileValidExpressions(t *testing.T) {
	tests := []string{
		`true`,
		`document.supplier.name`,
		`!has(document.supplier.tax_no)`,
		`db_query('get_tax_number_by_name', document.supplier.name)`,
		`item.amount * get_tax_rate(item.description)`,
		`document.total_amount > 0 && document.country == "CN" || false`,
		`document.invoice_type == "STANDARD" ? 1 : 2`,
		`-document.tax_amount`,
		`"a" + 'b'`,
	}

	for _, src := range tests {
		t.Run(src, func(t *testing.T) {
			p, err := Compile(src)
			if err != nil {
				t.Fatalf("Compile(%q) failed: %v", src, err)
			}
			if p.Source() != src {
				t.Errorf("Source() = %q, want %q", p.Source(), src)
			}
		})
	}
}

func TestCompileSyntaxErrors(t *testing.T) {
	tests := []string{
		``,
		`document.supplier.name && (`,
		`has(document.supplier.name`,
		`document..name`,
		`1 +`,
		`"unterminated`,
		`a ? b`,
		`a && && b`,
		`1.2.3`,
	}

	for _, src := range tests {
		t.Run(src, func(t *testing.T) {
			_, err := Compile(src)
			if err == nil {
				t.Fatalf("Compile(%q) succeeded, want syntax error", src)
			}
			var se *SyntaxError
			if !errors.As(err, &se) {
				t.Errorf("error = %v, want *SyntaxError", err)
			}
		})
	}
}

func TestCompileTrailingGarbage(t *testing.T) {
	if _, err := Compile(`document.supplier.name extra`); err == nil {
		t.Error("expected error for trailing tokens")
	}
}
