package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// RuleRepo stores categorization rules. Conditions and actions live in JSON
// columns and are (un)marshalled at this boundary only.
type RuleRepo struct {
	db *sql.DB
}

func NewRuleRepo(db *sql.DB) *RuleRepo { return &RuleRepo{db: db} }

// ListActive returns active rules in evaluation order: priority descending,
// then id ascending so the older rule wins a priority tie.
func (r *RuleRepo) ListActive(ctx context.Context) ([]Rule, error) {
	return r.list(ctx, true)
}

// List returns every rule in evaluation order, including inactive ones.
func (r *RuleRepo) List(ctx context.Context) ([]Rule, error) {
	return r.list(ctx, false)
}

func (r *RuleRepo) list(ctx context.Context, activeOnly bool) ([]Rule, error) {
	query := `SELECT id, name, priority, is_active, match_type, conditions, actions, created_at FROM rules`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY priority DESC, id ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

func (r *RuleRepo) Get(ctx context.Context, id int64) (*Rule, error) {
	row := r.db.QueryRowContext(ctx, `
	SELECT id, name, priority, is_active, match_type, conditions, actions, created_at
	FROM rules WHERE id = ?`, id)
	rule, err := scanRule(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *RuleRepo) Create(ctx context.Context, rule Rule) (int64, error) {
	conditions, actions, err := marshalRule(rule)
	if err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx, `
	INSERT INTO rules(name, priority, is_active, match_type, conditions, actions, created_at)
	VALUES(?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`,
		rule.Name, rule.Priority, rule.IsActive, string(rule.MatchType), conditions, actions)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *RuleRepo) Update(ctx context.Context, id int64, rule Rule) error {
	conditions, actions, err := marshalRule(rule)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
	UPDATE rules
	SET name = ?, priority = ?, is_active = ?, match_type = ?, conditions = ?, actions = ?
	WHERE id = ?`,
		rule.Name, rule.Priority, rule.IsActive, string(rule.MatchType), conditions, actions, id)
	return err
}

func (r *RuleRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM rules WHERE id = ?`, id)
	return err
}

func marshalRule(rule Rule) (conditions, actions string, err error) {
	condBytes, err := json.Marshal(rule.Conditions)
	if err != nil {
		return "", "", fmt.Errorf("marshal conditions: %w", err)
	}
	actBytes, err := json.Marshal(rule.Actions)
	if err != nil {
		return "", "", fmt.Errorf("marshal actions: %w", err)
	}
	return string(condBytes), string(actBytes), nil
}

func scanRule(row rowScanner) (Rule, error) {
	var rule Rule
	var matchType, conditions, actions string
	if err := row.Scan(&rule.ID, &rule.Name, &rule.Priority, &rule.IsActive,
		&matchType, &conditions, &actions, &rule.CreatedAt); err != nil {
		return Rule{}, err
	}
	rule.MatchType = MatchType(matchType)
	if err := json.Unmarshal([]byte(conditions), &rule.Conditions); err != nil {
		return Rule{}, fmt.Errorf("unmarshal conditions of rule %d: %w", rule.ID, err)
	}
	if err := json.Unmarshal([]byte(actions), &rule.Actions); err != nil {
		return Rule{}, fmt.Errorf("unmarshal actions of rule %d: %w", rule.ID, err)
	}
	return rule, nil
}
