package rules

import (
	"fmt"
	"time"
)

// Kind distinguishes the two rule sets the store holds.
type Kind string

const (
	KindCompletion Kind = "completion"
	KindValidation Kind = "validation"
)

// CompletionRule computes a value for a document field when its guard holds.
// A TargetField starting with "items[]." applies the rule once per line item.
type CompletionRule struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Priority    int       `json:"priority"`
	ApplyTo     string    `json:"apply_to"` // guard expression; empty = always
	TargetField string    `json:"target_field"`
	Expression  string    `json:"expression"` // value expression
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

// ValidationRule evaluates a boolean expression and contributes an error
// message when it is false.
type ValidationRule struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Priority     int       `json:"priority"`
	ApplyTo      string    `json:"apply_to"`
	FieldPath    string    `json:"field_path,omitempty"` // documented target, informational
	Expression   string    `json:"expression"`
	ErrorMessage string    `json:"error_message"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

// Status of one rule application in the execution log.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
	StatusError   Status = "error"
)

// LogEntry records one rule application for auditing. Entries never influence
// control flow.
type LogEntry struct {
	Kind      Kind   `json:"type"`
	Status    Status `json:"status"`
	RuleID    string `json:"rule_id"`
	RuleName  string `json:"rule_name"`
	Message   string `json:"message"`
	Value     any    `json:"value,omitempty"`
	ItemIndex int    `json:"item_index,omitempty"` // meaningful for items[].* rules only
}

// ShapeError reports a malformed rule at load time. A load that hits one is
// rejected wholesale: a bad rule set is a configuration bug, not data.
type ShapeError struct {
	RuleID string
	Reason string
	Err    error
}

func (e *ShapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rule %s: %s: %v", e.RuleID, e.Reason, e.Err)
	}
	return fmt.Sprintf("rule %s: %s", e.RuleID, e.Reason)
}

func (e *ShapeError) Unwrap() error { return e.Err }
