package rules

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/potzenhotz/sankash/internal/database/repository"
)

func sample() repository.Transaction {
	return repository.Transaction{
		Payee:  "REWE Markt GmbH",
		Notes:  "Lastschrift Einkauf",
		Amount: -31.20,
	}
}

func cond(field repository.ConditionField, op repository.ConditionOperator, value string) repository.RuleCondition {
	return repository.RuleCondition{Field: field, Operator: op, Value: value}
}

func TestEvaluateConditionContains(t *testing.T) {
	t.Parallel()

	tx := sample()
	require.True(t, EvaluateCondition(cond(repository.FieldPayee, repository.OpContains, "rewe"), tx))
	require.True(t, EvaluateCondition(cond(repository.FieldNotes, repository.OpContains, "EINKAUF"), tx))
	require.False(t, EvaluateCondition(cond(repository.FieldPayee, repository.OpContains, "aldi"), tx))
}

func TestEvaluateConditionEquals(t *testing.T) {
	t.Parallel()

	tx := sample()
	require.True(t, EvaluateCondition(cond(repository.FieldPayee, repository.OpEquals, "rewe markt gmbh"), tx))
	require.False(t, EvaluateCondition(cond(repository.FieldPayee, repository.OpEquals, "rewe"), tx))
	// amount compares against its decimal string form
	require.True(t, EvaluateCondition(cond(repository.FieldAmount, repository.OpEquals, "-31.2"), tx))
}

func TestEvaluateConditionNumeric(t *testing.T) {
	t.Parallel()

	tx := sample()
	require.True(t, EvaluateCondition(cond(repository.FieldAmount, repository.OpLess, "-30"), tx))
	require.False(t, EvaluateCondition(cond(repository.FieldAmount, repository.OpLess, "-50"), tx))
	require.True(t, EvaluateCondition(cond(repository.FieldAmount, repository.OpGreater, "-50"), tx))

	// non-numeric comparison value can never match
	require.False(t, EvaluateCondition(cond(repository.FieldAmount, repository.OpLess, "viel"), tx))
	// numeric comparison against a text field can never match
	require.False(t, EvaluateCondition(cond(repository.FieldPayee, repository.OpGreater, "0"), tx))
}

func TestEvaluateConditionUnknowns(t *testing.T) {
	t.Parallel()

	tx := sample()
	require.False(t, EvaluateCondition(cond("category", repository.OpContains, "x"), tx))
	require.False(t, EvaluateCondition(cond(repository.FieldPayee, "matches_regex", ".*"), tx))
}

func TestMatchesAllVersusAny(t *testing.T) {
	t.Parallel()

	tx := repository.Transaction{Payee: "Aldi Süd", Amount: -10}
	conds := []repository.RuleCondition{
		cond(repository.FieldPayee, repository.OpContains, "aldi"),
		cond(repository.FieldAmount, repository.OpLess, "-50"),
	}

	all := repository.Rule{MatchType: repository.MatchAll, Conditions: conds}
	any := repository.Rule{MatchType: repository.MatchAny, Conditions: conds}

	// -10 is not < -50, so the conjunction fails while the disjunction holds.
	require.False(t, Matches(all, tx))
	require.True(t, Matches(any, tx))
}

func TestMatchesEmptyConditions(t *testing.T) {
	t.Parallel()

	require.False(t, Matches(repository.Rule{MatchType: repository.MatchAll}, sample()))
	require.False(t, Matches(repository.Rule{MatchType: repository.MatchAny}, sample()))
}

func TestMatchesUnknownMatchTypeRequiresAll(t *testing.T) {
	t.Parallel()

	conds := []repository.RuleCondition{
		cond(repository.FieldPayee, repository.OpContains, "rewe"),
		cond(repository.FieldAmount, repository.OpLess, "-100"),
	}
	rule := repository.Rule{MatchType: "some", Conditions: conds}

	// an unrecognized match_type tightens to a conjunction, it never widens
	require.False(t, Matches(rule, sample()))

	rule.Conditions = conds[:1]
	require.True(t, Matches(rule, sample()))
}

func TestMatchingTransactionsAndCount(t *testing.T) {
	t.Parallel()

	txs := []repository.Transaction{
		{Payee: "REWE", Amount: -10},
		{Payee: "Aldi", Amount: -20},
		{Payee: "REWE City", Amount: -5},
	}
	rule := repository.Rule{
		MatchType:  repository.MatchAny,
		Conditions: []repository.RuleCondition{cond(repository.FieldPayee, repository.OpContains, "rewe")},
	}

	matched := MatchingTransactions(rule, txs)
	require.Len(t, matched, 2)
	require.Equal(t, 2, CountMatching(rule, txs))
	require.Equal(t, "REWE", matched[0].Payee)
	require.Equal(t, "REWE City", matched[1].Payee)
}

func TestFromTransaction(t *testing.T) {
	t.Parallel()

	category := "Groceries"
	tx := repository.Transaction{Payee: "REWE Markt", Category: &category}

	rule, err := FromTransaction(tx, "rewe", 5)
	require.NoError(t, err)
	require.Equal(t, "rewe", rule.Name)
	require.Equal(t, 5, rule.Priority)
	require.True(t, rule.IsActive)
	require.Len(t, rule.Conditions, 1)
	require.Equal(t, repository.FieldPayee, rule.Conditions[0].Field)
	require.Equal(t, "REWE Markt", rule.Conditions[0].Value)
	require.Len(t, rule.Actions, 1)
	require.Equal(t, repository.ActionSetCategory, rule.Actions[0].Type)
	require.Equal(t, "Groceries", rule.Actions[0].Value)

	require.True(t, Matches(rule, tx))
}

func TestFromTransactionRequiresCategory(t *testing.T) {
	t.Parallel()

	_, err := FromTransaction(repository.Transaction{Payee: "REWE"}, "rewe", 1)
	require.Error(t, err)

	empty := ""
	_, err = FromTransaction(repository.Transaction{Payee: "REWE", Category: &empty}, "rewe", 1)
	require.Error(t, err)
}
