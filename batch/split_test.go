package batch

import (
	"testing"

	"github.com/openbilling/invoiceflow/invoice"
)

func TestSplitByTaxCategory(t *testing.T) {
	inv := hotelInvoice("INV-001",
		roomItem("2", "1000"),
		mealItem("3", "150"),
	)

	got := Split(inv)
	if len(got) != 2 {
		t.Fatalf("split count = %d, want 2", len(got))
	}

	special := got[0]
	if special.InvoiceNumber != "INV-001-VAT-SPECIAL" {
		t.Errorf("first split number = %s, want INV-001-VAT-SPECIAL", special.InvoiceNumber)
	}
	if len(special.Items) != 1 || special.Items[0].TaxCategory != "VAT-SPECIAL" {
		t.Errorf("first split items = %v", special.Items)
	}
	if !special.TotalAmount.Equal(d("1000")) {
		t.Errorf("first split total = %s, want 1000", special.TotalAmount)
	}

	general := got[1]
	if general.InvoiceNumber != "INV-001-VAT-GENERAL" {
		t.Errorf("second split number = %s, want INV-001-VAT-GENERAL", general.InvoiceNumber)
	}
	if !general.TotalAmount.Equal(d("150")) {
		t.Errorf("second split total = %s, want 150", general.TotalAmount)
	}

	// Header fields carry over.
	if special.Supplier != inv.Supplier || general.Customer != inv.Customer {
		t.Error("split invoices must copy the header parties")
	}
}

func TestSplitSingleCategoryPassThrough(t *testing.T) {
	inv := hotelInvoice("INV-001", roomItem("2", "1000"))

	got := Split(inv)
	if len(got) != 1 {
		t.Fatalf("split count = %d, want 1", len(got))
	}
	if got[0].InvoiceNumber != "INV-001" {
		t.Errorf("number = %s, want unchanged INV-001", got[0].InvoiceNumber)
	}
	if got[0] == inv {
		t.Error("single-category split must still return a copy")
	}
}

func TestSplitOfSplitOutputIsNoOp(t *testing.T) {
	inv := hotelInvoice("INV-001", roomItem("2", "1000"), mealItem("3", "150"))

	first := SplitAll([]*invoice.Invoice{inv})
	second := SplitAll(first)

	if len(second) != len(first) {
		t.Fatalf("second split count = %d, want %d", len(second), len(first))
	}
	for i := range first {
		if second[i].InvoiceNumber != first[i].InvoiceNumber {
			t.Errorf("number changed on re-split: %s vs %s", second[i].InvoiceNumber, first[i].InvoiceNumber)
		}
		if !second[i].TotalAmount.Equal(first[i].TotalAmount) {
			t.Errorf("total changed on re-split: %s vs %s", second[i].TotalAmount, first[i].TotalAmount)
		}
	}
}

func TestSplitEmpty(t *testing.T) {
	if got := Split(nil); got != nil {
		t.Errorf("Split(nil) = %v, want nil", got)
	}
}

func TestSplitItemlessInvoicePassesThrough(t *testing.T) {
	inv := &invoice.Invoice{InvoiceNumber: "INV-001", Supplier: invoice.Party{Name: "Grand Hotel"}}

	got := Split(inv)
	if len(got) != 1 {
		t.Fatalf("split count = %d, want 1 (itemless invoice must not be dropped)", len(got))
	}
	if got[0].InvoiceNumber != "INV-001" || got[0].Supplier.Name != "Grand Hotel" {
		t.Errorf("split output = %+v, want a copy of the input", got[0])
	}
	if got[0] == inv {
		t.Error("itemless split must still return a copy")
	}

	all := SplitAll([]*invoice.Invoice{inv})
	if len(all) != 1 {
		t.Errorf("SplitAll count = %d, want 1", len(all))
	}
}

func TestMergeAndSplitOrder(t *testing.T) {
	// Two invoices with mixed categories: merge first consolidates lines,
	// split then emits one invoice per category across the whole group.
	a := hotelInvoice("INV-001", roomItem("5", "500"), mealItem("1", "50"))
	b := hotelInvoice("INV-002", roomItem("7", "700"))

	got := MergeAndSplit([]*invoice.Invoice{a, b})
	if len(got) != 2 {
		t.Fatalf("output count = %d, want 2 categories", len(got))
	}
	if !got[0].TotalAmount.Equal(d("1200")) {
		t.Errorf("room-category total = %s, want 1200", got[0].TotalAmount)
	}
	if !got[1].TotalAmount.Equal(d("50")) {
		t.Errorf("meal-category total = %s, want 50", got[1].TotalAmount)
	}
}
