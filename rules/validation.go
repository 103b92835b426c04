package rules

import (
	"context"
	"fmt"

	"github.com/openbilling/invoiceflow/expr"
	"github.com/openbilling/invoiceflow/internal/logger"
	"github.com/openbilling/invoiceflow/invoice"
)

// ValidationEngine checks a document against every active validation rule.
// All rules run; there is no short-circuit on the first failure.
type ValidationEngine struct {
	store    *Store
	resolver expr.Resolver
}

func NewValidationEngine(store *Store, resolver expr.Resolver) *ValidationEngine {
	return &ValidationEngine{store: store, resolver: resolver}
}

// Validate returns whether the document passed, the collected failure
// messages in rule order, and a log entry per rule. A rule that cannot be
// evaluated counts as a failure with a synthesized message.
func (e *ValidationEngine) Validate(ctx context.Context, inv *invoice.Invoice) (bool, []string, []LogEntry) {
	rules := e.store.ActiveValidationRules()
	log := make([]LogEntry, 0, len(rules))
	var errs []string

	vars := map[string]any{"document": inv.Context()}

	for _, vr := range rules {
		entry := LogEntry{Kind: KindValidation, RuleID: vr.Rule.ID, RuleName: vr.Rule.Name, ItemIndex: -1}

		if vr.CompileErr != nil {
			errs = append(errs, failureMessage(vr, fmt.Sprintf("expression does not compile: %v", vr.CompileErr)))
			log = append(log, e.ruleError(entry, "expression does not compile", vr.CompileErr))
			continue
		}

		if vr.Guard != nil {
			ok, err := vr.Guard.EvalBool(ctx, vars, e.resolver)
			if err != nil {
				errs = append(errs, failureMessage(vr, fmt.Sprintf("guard evaluation failed: %v", err)))
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

		ok, err := vr.Check.EvalBool(ctx, vars, e.resolver)
		if err != nil {
			errs = append(errs, failureMessage(vr, fmt.Sprintf("rule evaluation failed: %v", err)))
			log = append(log, e.ruleError(entry, "rule evaluation failed", err))
			continue
		}
		if !ok {
			errs = append(errs, failureMessage(vr, vr.Rule.ErrorMessage))
			entry.Status = StatusFailed
			entry.Message = vr.Rule.ErrorMessage
			log = append(log, entry)
			continue
		}
		entry.Status = StatusSuccess
		log = append(log, entry)
	}

	return len(errs) == 0, errs, log
}

func failureMessage(vr *CompiledValidationRule, msg string) string {
	return fmt.Sprintf("%s: %s", vr.Rule.Name, msg)
}

func (e *ValidationEngine) ruleError(entry LogEntry, msg string, err error) LogEntry {
	logger.Warn("validation rule failed",
		"rule_id", entry.RuleID,
		"rule_name", entry.RuleName,
		"error", err)
	entry.Status = StatusError
	entry.Message = fmt.Sprintf("%s: %v", msg, err)
	return entry
}
