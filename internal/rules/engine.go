// Package rules evaluates categorization rules against transactions. All
// functions here are pure; applying rule actions to storage lives in the
// service layer so that preview and real application share one evaluator.
package rules

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/potzenhotz/sankash/internal/database/repository"
)

// InvalidTransferTargetError reports a mark_transfer action whose value is
// not an account id. It aborts only that action, never the batch.
type InvalidTransferTargetError struct {
	Value string
}

func (e *InvalidTransferTargetError) Error() string {
	return fmt.Sprintf("mark_transfer value %q is not an account id", e.Value)
}

// EvaluateCondition checks one condition against one transaction.
// Unknown fields or operators evaluate to false rather than failing: a stored
// rule must never be able to crash a batch run.
func EvaluateCondition(cond repository.RuleCondition, t repository.Transaction) bool {
	var fieldValue string
	switch cond.Field {
	case repository.FieldPayee:
		fieldValue = t.Payee
	case repository.FieldAmount:
		fieldValue = strconv.FormatFloat(t.Amount, 'f', -1, 64)
	case repository.FieldNotes:
		fieldValue = t.Notes
	default:
		return false
	}

	switch cond.Operator {
	case repository.OpContains:
		return strings.Contains(strings.ToLower(fieldValue), strings.ToLower(cond.Value))
	case repository.OpEquals:
		return strings.EqualFold(fieldValue, cond.Value)
	case repository.OpLess, repository.OpGreater:
		left, err := strconv.ParseFloat(fieldValue, 64)
		if err != nil {
			return false
		}
		right, err := strconv.ParseFloat(strings.TrimSpace(cond.Value), 64)
		if err != nil {
			return false
		}
		if cond.Operator == repository.OpLess {
			return left < right
		}
		return left > right
	}
	return false
}

// Matches reports whether the transaction satisfies the rule's conditions.
// match_type "any" means one condition suffices; anything else, including an
// unrecognized value from an unvalidated row, requires every condition.
// A rule with zero conditions never matches; the guard is explicit so an empty
// AND list cannot turn vacuously true.
func Matches(rule repository.Rule, t repository.Transaction) bool {
	if len(rule.Conditions) == 0 {
		return false
	}
	if rule.MatchType == repository.MatchAny {
		for _, cond := range rule.Conditions {
			if EvaluateCondition(cond, t) {
				return true
			}
		}
		return false
	}
	for _, cond := range rule.Conditions {
		if !EvaluateCondition(cond, t) {
			return false
		}
	}
	return true
}

// MatchingTransactions is the dry-run mode: it returns the subset of
// transactions the rule matches, without mutating anything.
func MatchingTransactions(rule repository.Rule, txs []repository.Transaction) []repository.Transaction {
	var out []repository.Transaction
	for _, t := range txs {
		if Matches(rule, t) {
			out = append(out, t)
		}
	}
	return out
}

// CountMatching reports how many transactions the rule currently matches.
func CountMatching(rule repository.Rule, txs []repository.Transaction) int {
	n := 0
	for _, t := range txs {
		if Matches(rule, t) {
			n++
		}
	}
	return n
}

// FromTransaction synthesizes a rule from one categorized example:
// payee-contains condition, set-category action.
func FromTransaction(t repository.Transaction, name string, priority int) (repository.Rule, error) {
	if t.Category == nil || *t.Category == "" {
		return repository.Rule{}, errors.New("transaction must have a category to create a rule")
	}
	return repository.Rule{
		Name:      name,
		Priority:  priority,
		IsActive:  true,
		MatchType: repository.MatchAny,
		Conditions: []repository.RuleCondition{
			{Field: repository.FieldPayee, Operator: repository.OpContains, Value: t.Payee},
		},
		Actions: []repository.RuleAction{
			{Type: repository.ActionSetCategory, Value: *t.Category},
		},
	}, nil
}
