package rules

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// Source loads rule definitions from a backing store. The server reloads
// through it on demand and swaps the result into the Store.
type Source interface {
	LoadRules(ctx context.Context) ([]CompletionRule, []ValidationRule, error)
}

// PostgresSource reads rules from the rules table.
type PostgresSource struct {
	db *sql.DB
}

func NewPostgresSource(db *sql.DB) *PostgresSource {
	return &PostgresSource{db: db}
}

// LoadRules returns every rule in the table, completion and validation
// separately, ordered by priority descending then id for a stable load.
func (s *PostgresSource) LoadRules(ctx context.Context) ([]CompletionRule, []ValidationRule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, name, priority, apply_to, target_field, expression,
		       field_path, error_message, active, created_at, updated_at
		FROM rules
		ORDER BY priority DESC, id ASC
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer rows.Close()

	var completion []CompletionRule
	var validation []ValidationRule

	for rows.Next() {
		var (
			kind                               string
			r                                  CompletionRule
			applyTo, target, fieldPath, errMsg sql.NullString
		)
		if err := rows.Scan(&r.ID, &kind, &r.Name, &r.Priority, &applyTo, &target,
			&r.Expression, &fieldPath, &errMsg, &r.Active, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		r.ApplyTo = applyTo.String
		switch kind {
		case "completion":
			r.TargetField = target.String
			completion = append(completion, r)
		case "validation":
			validation = append(validation, ValidationRule{
				ID:           r.ID,
				Name:         r.Name,
				Priority:     r.Priority,
				ApplyTo:      r.ApplyTo,
				FieldPath:    fieldPath.String,
				Expression:   r.Expression,
				ErrorMessage: errMsg.String,
				Active:       r.Active,
				CreatedAt:    r.CreatedAt,
				UpdatedAt:    r.UpdatedAt,
			})
		default:
			return nil, nil, fmt.Errorf("rule %s has unknown kind %q", r.ID, kind)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating rules: %w", err)
	}

	return completion, validation, nil
}

// StaticSource serves a fixed rule set, used when the server runs without a
// database.
type StaticSource struct {
	Completion []CompletionRule
	Validation []ValidationRule
}

func (s *StaticSource) LoadRules(context.Context) ([]CompletionRule, []ValidationRule, error) {
	return s.Completion, s.Validation, nil
}
