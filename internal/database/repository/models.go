package repository

import "time"

// Account represents an account row.
type Account struct {
	ID            int64
	Name          string
	Bank          string
	AccountNumber string
	Currency      string
	IsActive      bool
}

// Transaction represents a persisted transaction row. Created by an import or
// manual entry; mutated only by category updates and transfer marking.
type Transaction struct {
	ID                string
	AccountID         int64
	Date              time.Time
	Payee             string
	Notes             string
	Amount            float64
	Category          *string
	IsCategorized     bool
	IsTransfer        bool
	TransferAccountID *int64
	ImportedID        *string
	ImportSessionID   *int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ConditionField is the closed set of transaction fields a rule can inspect.
type ConditionField string

const (
	FieldPayee  ConditionField = "payee"
	FieldAmount ConditionField = "amount"
	FieldNotes  ConditionField = "notes"
)

// ConditionOperator is the closed set of comparison operators.
type ConditionOperator string

const (
	OpContains ConditionOperator = "contains"
	OpEquals   ConditionOperator = "equals"
	OpLess     ConditionOperator = "<"
	OpGreater  ConditionOperator = ">"
)

// ActionType is the closed set of rule actions.
type ActionType string

const (
	ActionSetCategory  ActionType = "set_category"
	ActionMarkTransfer ActionType = "mark_transfer"
)

// MatchType selects AND ("all") or OR ("any") combination of conditions.
type MatchType string

const (
	MatchAll MatchType = "all"
	MatchAny MatchType = "any"
)

// RuleCondition is one predicate of a rule. Immutable once stored; rule edits
// replace the whole list.
type RuleCondition struct {
	Field    ConditionField    `json:"field"`
	Operator ConditionOperator `json:"operator"`
	Value    string            `json:"value"`
}

// RuleAction is one effect applied when a rule matches.
type RuleAction struct {
	Type  ActionType `json:"action_type"`
	Value string     `json:"value"`
}

// Rule is a prioritized auto-categorization rule. Higher priority runs first;
// among equal priorities the lower id wins.
type Rule struct {
	ID         int64
	Name       string
	Priority   int
	IsActive   bool
	MatchType  MatchType
	Conditions []RuleCondition
	Actions    []RuleAction
	CreatedAt  time.Time
}

// ImportRecord represents one import session: a single orchestrator run
// against a single file.
type ImportRecord struct {
	ID               int64
	Filename         string
	AccountID        int64
	BankFormat       string
	TotalCount       int
	ImportedCount    int
	DuplicateCount   int
	CategorizedCount int
	FileHash         string
	ImportDate       time.Time
}
