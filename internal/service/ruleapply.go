package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/potzenhotz/sankash/internal/database/repository"
	"github.com/potzenhotz/sankash/internal/rules"
)

// RuleService applies stored rules to stored transactions. The matching logic
// itself lives in the rules package; this service only adds storage.
type RuleService struct {
	Transactions *repository.TransactionRepo
	Rules        *repository.RuleRepo
	Log          zerolog.Logger
}

// ApplyToUncategorized runs every active rule over every uncategorized
// transaction, first match wins per transaction. It returns the number of
// transactions categorized. Failures of individual actions are collected as
// warnings and never abort the batch.
func (s *RuleService) ApplyToUncategorized(ctx context.Context) (int, []error, error) {
	activeRules, err := s.Rules.ListActive(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("load active rules: %w", err)
	}
	if len(activeRules) == 0 {
		return 0, nil, nil
	}

	txs, err := s.Transactions.List(ctx, repository.TransactionFilters{OnlyUncategorized: true})
	if err != nil {
		return 0, nil, fmt.Errorf("load uncategorized transactions: %w", err)
	}

	categorized := 0
	var warnings []error
	for _, t := range txs {
		for _, rule := range activeRules {
			if !rules.Matches(rule, t) {
				continue
			}
			warnings = append(warnings, s.applyActions(ctx, rule, t)...)
			categorized++
			break // first match wins
		}
	}
	s.Log.Debug().
		Int("rules", len(activeRules)).
		Int("scanned", len(txs)).
		Int("categorized", categorized).
		Int("warnings", len(warnings)).
		Msg("rule pass complete")
	return categorized, warnings, nil
}

func (s *RuleService) applyActions(ctx context.Context, rule repository.Rule, t repository.Transaction) []error {
	var warnings []error
	for _, action := range rule.Actions {
		switch action.Type {
		case repository.ActionSetCategory:
			if err := s.Transactions.UpdateCategory(ctx, t.ID, action.Value); err != nil {
				warnings = append(warnings, fmt.Errorf("rule %d set_category on %s: %w", rule.ID, t.ID, err))
			}
		case repository.ActionMarkTransfer:
			target, err := strconv.ParseInt(strings.TrimSpace(action.Value), 10, 64)
			if err != nil {
				warnings = append(warnings, &rules.InvalidTransferTargetError{Value: action.Value})
				s.Log.Warn().Int64("rule_id", rule.ID).Str("value", action.Value).
					Msg("skipping mark_transfer with unparseable account id")
				continue
			}
			if err := s.Transactions.MarkTransfer(ctx, t.ID, target); err != nil {
				warnings = append(warnings, fmt.Errorf("rule %d mark_transfer on %s: %w", rule.ID, t.ID, err))
			}
		default:
			warnings = append(warnings, fmt.Errorf("rule %d has unknown action type %q", rule.ID, action.Type))
		}
	}
	return warnings
}

// TestRule previews which stored transactions a rule would match, using the
// same evaluator as ApplyToUncategorized so the preview cannot drift from the
// real run. Nothing is mutated.
func (s *RuleService) TestRule(ctx context.Context, rule repository.Rule) ([]repository.Transaction, error) {
	txs, err := s.Transactions.List(ctx, repository.TransactionFilters{})
	if err != nil {
		return nil, err
	}
	return rules.MatchingTransactions(rule, txs), nil
}

// CountMatching reports how many stored transactions a rule currently matches.
func (s *RuleService) CountMatching(ctx context.Context, rule repository.Rule) (int, error) {
	txs, err := s.Transactions.List(ctx, repository.TransactionFilters{})
	if err != nil {
		return 0, err
	}
	return rules.CountMatching(rule, txs), nil
}

// CreateFromTransaction persists a rule synthesized from one categorized
// transaction.
func (s *RuleService) CreateFromTransaction(ctx context.Context, transactionID, name string, priority int) (repository.Rule, error) {
	t, err := s.Transactions.Get(ctx, transactionID)
	if err != nil {
		return repository.Rule{}, err
	}
	if t == nil {
		return repository.Rule{}, fmt.Errorf("transaction %s not found", transactionID)
	}
	rule, err := rules.FromTransaction(*t, name, priority)
	if err != nil {
		return repository.Rule{}, err
	}
	id, err := s.Rules.Create(ctx, rule)
	if err != nil {
		return repository.Rule{}, err
	}
	rule.ID = id
	return rule, nil
}
