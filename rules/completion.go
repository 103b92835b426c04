package rules

import (
	"context"
	"fmt"
	"strings"

	"github.com/openbilling/invoiceflow/expr"
	"github.com/openbilling/invoiceflow/internal/logger"
	"github.com/openbilling/invoiceflow/invoice"
)

const itemPrefix = "items[]."

// CompletionEngine evaluates completion rules against a document, writing
// computed values into its fields. Rules run in priority order; a rule whose
// target starts with "items[]." runs once per line item.
type CompletionEngine struct {
	store    *Store
	resolver expr.Resolver
}

func NewCompletionEngine(store *Store, resolver expr.Resolver) *CompletionEngine {
	return &CompletionEngine{store: store, resolver: resolver}
}

// Complete applies every active completion rule to inv in place and returns
// one log entry per rule evaluation. A failing rule is recorded and the run
// continues; only a nil document is an error.
func (e *CompletionEngine) Complete(ctx context.Context, inv *invoice.Invoice) ([]LogEntry, error) {
	if inv == nil {
		return nil, fmt.Errorf("complete: nil invoice")
	}

	rules := e.store.ActiveCompletionRules()
	log := make([]LogEntry, 0, len(rules))

	for _, cr := range rules {
		if cr.CompileErr != nil {
			entry := LogEntry{Kind: KindCompletion, RuleID: cr.Rule.ID, RuleName: cr.Rule.Name, ItemIndex: -1}
			log = append(log, e.ruleError(entry, "expression does not compile", cr.CompileErr))
			continue
		}
		if strings.HasPrefix(cr.Rule.TargetField, itemPrefix) {
			log = e.applyToItems(ctx, inv, cr, log)
		} else {
			log = append(log, e.applyToDocument(ctx, inv, cr))
		}
	}
	return log, nil
}

func (e *CompletionEngine) applyToDocument(ctx context.Context, inv *invoice.Invoice, cr *CompiledCompletionRule) LogEntry {
	entry := LogEntry{Kind: KindCompletion, RuleID: cr.Rule.ID, RuleName: cr.Rule.Name, ItemIndex: -1}
	vars := map[string]any{"document": inv.Context()}

	if cr.Guard != nil {
		ok, err := cr.Guard.EvalBool(ctx, vars, e.resolver)
		if err != nil {
			return e.ruleError(entry, "guard evaluation failed", err)
		}
		if !ok {
			entry.Status = StatusSkipped
			entry.Message = "condition not met"
			return entry
		}
	}

	v, err := cr.Value.Eval(ctx, vars, e.resolver)
	if err != nil {
		return e.ruleError(entry, "value evaluation failed", err)
	}
	if v == nil {
		entry.Status = StatusSkipped
		entry.Message = "expression produced null, nothing written"
		return entry
	}
	if err := invoice.SetField(inv, cr.Rule.TargetField, v); err != nil {
		return e.ruleError(entry, "field write failed", err)
	}
	entry.Status = StatusSuccess
	entry.Message = fmt.Sprintf("set %s", cr.Rule.TargetField)
	entry.Value = v
	return entry
}

func (e *CompletionEngine) applyToItems(ctx context.Context, inv *invoice.Invoice, cr *CompiledCompletionRule, log []LogEntry) []LogEntry {
	field := strings.TrimPrefix(cr.Rule.TargetField, itemPrefix)

	for i := range inv.Items {
		entry := LogEntry{Kind: KindCompletion, RuleID: cr.Rule.ID, RuleName: cr.Rule.Name, ItemIndex: i}
		// The document view is rebuilt per item so a write to item N is
		// visible when item N+1 evaluates.
		vars := map[string]any{
			"document": inv.Context(),
			"item":     inv.Items[i].Context(),
		}

		if cr.Guard != nil {
			ok, err := cr.Guard.EvalBool(ctx, vars, e.resolver)
			if err != nil {
				log = append(log, e.ruleError(entry, "guard evaluation failed", err))
				continue
			}
			if !ok {
				entry.Status = StatusSkipped
				entry.Message = "condition not met"
				log = append(log, entry)
				continue
			}
		}

		v, err := cr.Value.Eval(ctx, vars, e.resolver)
		if err != nil {
			log = append(log, e.ruleError(entry, "value evaluation failed", err))
			continue
		}
		if v == nil {
			entry.Status = StatusSkipped
			entry.Message = "expression produced null, nothing written"
			log = append(log, entry)
			continue
		}
		if err := invoice.SetItemField(&inv.Items[i], field, v); err != nil {
			log = append(log, e.ruleError(entry, "field write failed", err))
			continue
		}
		entry.Status = StatusSuccess
		entry.Message = fmt.Sprintf("set %s", cr.Rule.TargetField)
		entry.Value = v
		log = append(log, entry)
	}
	return log
}

func (e *CompletionEngine) ruleError(entry LogEntry, msg string, err error) LogEntry {
	logger.Warn("completion rule failed",
		"rule_id", entry.RuleID,
		"rule_name", entry.RuleName,
		"error", err)
	entry.Status = StatusError
	entry.Message = fmt.Sprintf("%s: %v", msg, err)
	return entry
}
