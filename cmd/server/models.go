package main

import (
	"github.com/openbilling/invoiceflow/pipeline"
)

// API request and response models

// ProcessRequest is the request body for processing a batch of invoices.
type ProcessRequest struct {
	Documents []string `json:"documents"`
	Merge     bool     `json:"merge,omitempty"`
	Split     bool     `json:"split,omitempty"`
}

// ProcessResponse is the response for a processed batch.
type ProcessResponse struct {
	BatchID        string            `json:"batch_id"`
	Results        []pipeline.Result `json:"results"`
	ProcessingTime string            `json:"processing_time"`
}

// CompletionRuleResponse represents a completion rule in API responses.
type CompletionRuleResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Priority    int    `json:"priority"`
	ApplyTo     string `json:"apply_to,omitempty"`
	TargetField string `json:"target_field"`
	Expression  string `json:"expression"`
	Active      bool   `json:"active"`
}

// ValidationRuleResponse represents a validation rule in API responses.
type ValidationRuleResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Priority     int    `json:"priority"`
	ApplyTo      string `json:"apply_to,omitempty"`
	FieldPath    string `json:"field_path,omitempty"`
	Expression   string `json:"expression"`
	ErrorMessage string `json:"error_message"`
	Active       bool   `json:"active"`
}

// RulesListResponse is the response for listing active rules.
type RulesListResponse struct {
	Completion []CompletionRuleResponse `json:"completion"`
	Validation []ValidationRuleResponse `json:"validation"`
}

// ValidateExpressionRequest is the request body for compile-checking a rule
// expression without saving it.
type ValidateExpressionRequest struct {
	Expression string `json:"expression"`
}

// ValidateExpressionResponse reports whether an expression compiled.
type ValidateExpressionResponse struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}
