package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openbilling/invoiceflow/rules"
)

// newTestServer runs without a database: built-in reference data and a fixed
// rule set.
func newTestServer(t *testing.T, completion []rules.CompletionRule, validation []rules.ValidationRule) *Server {
	t.Helper()
	s, err := NewServer(Config{})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	s.source = &rules.StaticSource{Completion: completion, Validation: validation}
	if err := s.reload(context.Background()); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	return s
}

func postJSON(t *testing.T, s *Server, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("status = %v, want healthy", body["status"])
	}
}

func TestValidateExpressionEndpoint(t *testing.T) {
	s := newTestServer(t, nil, nil)

	rec := postJSON(t, s, "/api/v1/expressions/validate", ValidateExpressionRequest{
		Expression: `document.total_amount > 0`,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp ValidateExpressionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if !resp.Valid {
		t.Errorf("Valid = false, error = %s", resp.Error)
	}

	rec = postJSON(t, s, "/api/v1/expressions/validate", ValidateExpressionRequest{
		Expression: `document.total_amount > (`,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if resp.Valid || resp.Error == "" {
		t.Errorf("expected invalid with message, got %+v", resp)
	}
}

func TestListRulesEndpoint(t *testing.T) {
	s := newTestServer(t, []rules.CompletionRule{{
		ID:          "set-country",
		Name:        "default country",
		Priority:    50,
		TargetField: "country",
		Expression:  `"CN"`,
		Active:      true,
	}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rules", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp RulesListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if len(resp.Completion) != 1 || resp.Completion[0].ID != "set-country" {
		t.Errorf("completion rules = %+v", resp.Completion)
	}
}

func TestReloadRulesEndpoint(t *testing.T) {
	s := newTestServer(t, nil, nil)
	s.source = &rules.StaticSource{Validation: []rules.ValidationRule{{
		ID:           "v1",
		Name:         "total positive",
		Expression:   `document.total_amount > 0`,
		ErrorMessage: "total must be positive",
		Active:       true,
	}}}

	rec := postJSON(t, s, "/api/v1/rules/reload", struct{}{})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	_, validation := s.store.Count()
	if validation != 1 {
		t.Errorf("validation rules after reload = %d, want 1", validation)
	}
}

func TestProcessEndpoint(t *testing.T) {
	s := newTestServer(t, []rules.CompletionRule{{
		ID:          "std-name",
		Name:        "standardize item names",
		Priority:    90,
		TargetField: "items[].standard_name",
		Expression:  `get_standard_name(item.description)`,
		Active:      true,
	}}, nil)

	doc := `<?xml version="1.0" encoding="UTF-8"?>
<Invoice xmlns:cbc="urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2"
         xmlns:cac="urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2">
  <cbc:ID>INV-001</cbc:ID>
  <cbc:IssueDate>2024-03-15</cbc:IssueDate>
  <cac:InvoiceLine>
    <cbc:ID>1</cbc:ID>
    <cbc:InvoicedQuantity unitCode="NIGHT">2</cbc:InvoicedQuantity>
    <cbc:LineExtensionAmount currencyID="CNY">1000</cbc:LineExtensionAmount>
    <cac:Item><cbc:Name>Deluxe Room</cbc:Name></cac:Item>
  </cac:InvoiceLine>
  <cac:LegalMonetaryTotal>
    <cbc:PayableAmount currencyID="CNY">1000</cbc:PayableAmount>
  </cac:LegalMonetaryTotal>
</Invoice>`

	rec := postJSON(t, s, "/api/v1/invoices/process", ProcessRequest{Documents: []string{doc}})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp ProcessResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("results = %d, want 1", len(resp.Results))
	}
	if resp.Results[0].Invoice.Items[0].StandardName != "Accommodation" {
		t.Errorf("standard name = %q, want Accommodation", resp.Results[0].Invoice.Items[0].StandardName)
	}
}

func TestProcessEndpointRejectsEmptyBatch(t *testing.T) {
	s := newTestServer(t, nil, nil)

	rec := postJSON(t, s, "/api/v1/invoices/process", ProcessRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
