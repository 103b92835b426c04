package rules

import (
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/openbilling/invoiceflow/expr"
)

// CompiledCompletionRule pairs a completion rule with its compiled guard and
// value programs. Compilation happens once at load time; evaluation reuses
// the programs for every document. A rule whose expressions do not compile
// still loads, with CompileErr set: it reports an error entry on every run
// instead of rejecting the set.
type CompiledCompletionRule struct {
	Rule       CompletionRule
	Guard      *expr.Program // nil when ApplyTo is empty
	Value      *expr.Program
	CompileErr error
}

// CompiledValidationRule is the validation counterpart.
type CompiledValidationRule struct {
	Rule       ValidationRule
	Guard      *expr.Program
	Check      *expr.Program
	CompileErr error
}

type ruleSet struct {
	completion []*CompiledCompletionRule
	validation []*CompiledValidationRule
}

// Store holds the active, immutable rule sets. Load validates, compiles and
// sorts a complete replacement set, then swaps it in atomically: a run that
// started before the swap keeps the set it started with.
type Store struct {
	active atomic.Pointer[ruleSet]
}

// NewStore returns a store with empty rule sets.
func NewStore() *Store {
	s := &Store{}
	s.active.Store(&ruleSet{})
	return s
}

// Load replaces the active rule sets. Rules are sorted by priority
// descending, stable on their order in the input slice. A malformed rule
// (missing id, name, expression or target, duplicate id) rejects the whole
// load with a *ShapeError naming it, and the previously active set stays in
// place. An expression that fails to compile is not a shape problem: the
// rule loads carrying its compile error and the engines turn it into an
// error log entry per run, so one broken rule never blocks the rest of the
// set.
func (s *Store) Load(completion []CompletionRule, validation []ValidationRule) error {
	next := &ruleSet{
		completion: make([]*CompiledCompletionRule, 0, len(completion)),
		validation: make([]*CompiledValidationRule, 0, len(validation)),
	}

	seen := make(map[string]bool, len(completion)+len(validation))

	for _, r := range completion {
		if err := checkShape(r.ID, r.Name, r.Expression, seen); err != nil {
			return err
		}
		if r.TargetField == "" {
			return &ShapeError{RuleID: r.ID, Reason: "missing target field"}
		}
		cr := &CompiledCompletionRule{Rule: r}
		if r.ApplyTo != "" {
			if g, err := expr.Compile(r.ApplyTo); err != nil {
				cr.CompileErr = fmt.Errorf("guard: %w", err)
			} else {
				cr.Guard = g
			}
		}
		if cr.CompileErr == nil {
			if v, err := expr.Compile(r.Expression); err != nil {
				cr.CompileErr = fmt.Errorf("value: %w", err)
			} else {
				cr.Value = v
			}
		}
		next.completion = append(next.completion, cr)
	}

	for _, r := range validation {
		if err := checkShape(r.ID, r.Name, r.Expression, seen); err != nil {
			return err
		}
		if r.ErrorMessage == "" {
			return &ShapeError{RuleID: r.ID, Reason: "missing error message"}
		}
		vr := &CompiledValidationRule{Rule: r}
		if r.ApplyTo != "" {
			if g, err := expr.Compile(r.ApplyTo); err != nil {
				vr.CompileErr = fmt.Errorf("guard: %w", err)
			} else {
				vr.Guard = g
			}
		}
		if vr.CompileErr == nil {
			if c, err := expr.Compile(r.Expression); err != nil {
				vr.CompileErr = fmt.Errorf("check: %w", err)
			} else {
				vr.Check = c
			}
		}
		next.validation = append(next.validation, vr)
	}

	sort.SliceStable(next.completion, func(i, j int) bool {
		return next.completion[i].Rule.Priority > next.completion[j].Rule.Priority
	})
	sort.SliceStable(next.validation, func(i, j int) bool {
		return next.validation[i].Rule.Priority > next.validation[j].Rule.Priority
	})

	s.active.Store(next)
	return nil
}

func checkShape(id, name, expression string, seen map[string]bool) error {
	if id == "" {
		return &ShapeError{RuleID: "(unset)", Reason: "missing rule id"}
	}
	if seen[id] {
		return &ShapeError{RuleID: id, Reason: "duplicate rule id"}
	}
	seen[id] = true
	if name == "" {
		return &ShapeError{RuleID: id, Reason: "missing rule name"}
	}
	if expression == "" {
		return &ShapeError{RuleID: id, Reason: "missing expression"}
	}
	return nil
}

// ActiveCompletionRules returns the active completion rules in evaluation
// order. The returned slice is shared and must not be mutated.
func (s *Store) ActiveCompletionRules() []*CompiledCompletionRule {
	set := s.active.Load()
	out := make([]*CompiledCompletionRule, 0, len(set.completion))
	for _, r := range set.completion {
		if r.Rule.Active {
			out = append(out, r)
		}
	}
	return out
}

// ActiveValidationRules returns the active validation rules in evaluation
// order.
func (s *Store) ActiveValidationRules() []*CompiledValidationRule {
	set := s.active.Load()
	out := make([]*CompiledValidationRule, 0, len(set.validation))
	for _, r := range set.validation {
		if r.Rule.Active {
			out = append(out, r)
		}
	}
	return out
}

// Count reports how many rules of each kind are loaded, active or not.
func (s *Store) Count() (completion, validation int) {
	set := s.active.Load()
	return len(set.completion), len(set.validation)
}
