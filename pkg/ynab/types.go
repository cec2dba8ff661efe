package ynab

import (
	"encoding/json"
	"time"
)

// Account represents a YNAB account
type Account struct {
	ID                  string     `json:"id"`
	Name                string     `json:"name"`
	Type                string     `json:"type"`
	OnBudget            bool       `json:"on_budget"`
	Closed              bool       `json:"closed"`
	Note                *string    `json:"note"`
	Balance             int64      `json:"balance"`
	ClearedBalance      int64      `json:"cleared_balance"`
	UnclearedBalance    int64      `json:"uncleared_balance"`
	TransferPayeeID     *string    `json:"transfer_payee_id"`
	DirectImportLinked  bool       `json:"direct_import_linked,omitempty"`
	DirectImportInError bool       `json:"direct_import_in_error,omitempty"`
	LastReconciledAt    *time.Time `json:"last_reconciled_at,omitempty"`
	Deleted             bool       `json:"deleted"`
}

// Category represents a budget category
type Category struct {
	ID                      string  `json:"id"`
	CategoryGroupID         string  `json:"category_group_id"`
	CategoryGroupName       string  `json:"category_group_name,omitempty"`
	Name                    string  `json:"name"`
	Hidden                  bool    `json:"hidden"`
	OriginalCategoryGroupID *string `json:"original_category_group_id,omitempty"`
	Note                    *string `json:"note"`
	Budgeted                int64   `json:"budgeted"`
	Activity                int64   `json:"activity"`
	Balance                 int64   `json:"balance"`
	GoalType                *string `json:"goal_type"`
	GoalTarget              *int64  `json:"goal_target"`
	GoalTargetMonth         *Date   `json:"goal_target_month,omitempty"`
	GoalPercentageComplete  *int    `json:"goal_percentage_complete,omitempty"`
	Deleted                 bool    `json:"deleted"`
}

// CategoryGroup represents a group of categories
type CategoryGroup struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Hidden     bool        `json:"hidden"`
	Deleted    bool        `json:"deleted"`
	Categories []*Category `json:"categories"`
}

// SubTransaction is one split of a transaction
type SubTransaction struct {
	ID                    string  `json:"id"`
	TransactionID         string  `json:"transaction_id"`
	Amount                int64   `json:"amount"`
	Memo                  *string `json:"memo"`
	PayeeID               *string `json:"payee_id"`
	PayeeName             *string `json:"payee_name"`
	CategoryID            *string `json:"category_id"`
	CategoryName          *string `json:"category_name"`
	TransferAccountID     *string `json:"transfer_account_id"`
	TransferTransactionID *string `json:"transfer_transaction_id"`
	Deleted               bool    `json:"deleted"`
}

// TransactionDetail represents a transaction with resolved names
type TransactionDetail struct {
	ID                    string            `json:"id"`
	Date                  Date              `json:"date"`
	Amount                int64             `json:"amount"`
	Memo                  *string           `json:"memo"`
	Cleared               string            `json:"cleared"`
	Approved              bool              `json:"approved"`
	FlagColor             *string           `json:"flag_color"`
	AccountID             string            `json:"account_id"`
	AccountName           string            `json:"account_name"`
	PayeeID               *string           `json:"payee_id"`
	PayeeName             *string           `json:"payee_name"`
	CategoryID            *string           `json:"category_id"`
	CategoryName          *string           `json:"category_name"`
	TransferAccountID     *string           `json:"transfer_account_id"`
	TransferTransactionID *string           `json:"transfer_transaction_id"`
	MatchedTransactionID  *string           `json:"matched_transaction_id"`
	ImportID              *string           `json:"import_id"`
	Deleted               bool              `json:"deleted"`
	SubTransactions       []*SubTransaction `json:"subtransactions,omitempty"`
}

// CurrencyFormat describes how a budget displays amounts
type CurrencyFormat struct {
	ISOCode          string `json:"iso_code"`
	ExampleFormat    string `json:"example_format"`
	DecimalDigits    int    `json:"decimal_digits"`
	DecimalSeparator string `json:"decimal_separator"`
	SymbolFirst      bool   `json:"symbol_first"`
	GroupSeparator   string `json:"group_separator"`
	CurrencySymbol   string `json:"currency_symbol"`
	DisplaySymbol    bool   `json:"display_symbol"`
}

// BudgetSummary represents a budget in the budget list
type BudgetSummary struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	LastModifiedOn *time.Time      `json:"last_modified_on,omitempty"`
	FirstMonth     *Date           `json:"first_month,omitempty"`
	LastMonth      *Date           `json:"last_month,omitempty"`
	CurrencyFormat *CurrencyFormat `json:"currency_format,omitempty"`
}

// User represents the authenticated YNAB user
type User struct {
	ID string `json:"id"`
}

// BudgetList is the result of listing budgets
type BudgetList struct {
	Budgets       []*BudgetSummary `json:"budgets"`
	DefaultBudget *BudgetSummary   `json:"default_budget"`
}

// AccountList is a page of accounts with its server knowledge
type AccountList struct {
	Accounts        []*Account `json:"accounts"`
	ServerKnowledge int64      `json:"server_knowledge"`
}

// CategoryGroupList is the category tree with its server knowledge
type CategoryGroupList struct {
	CategoryGroups  []*CategoryGroup `json:"category_groups"`
	ServerKnowledge int64            `json:"server_knowledge"`
}

// Flatten returns the categories of every group, in group order
func (l *CategoryGroupList) Flatten() []*Category {
	var out []*Category
	for _, g := range l.CategoryGroups {
		for _, c := range g.Categories {
			if c.CategoryGroupName == "" {
				c.CategoryGroupName = g.Name
			}
			out = append(out, c)
		}
	}
	return out
}

// TransactionList is a set of transactions with its server knowledge
type TransactionList struct {
	Transactions    []*TransactionDetail `json:"transactions"`
	ServerKnowledge int64                `json:"server_knowledge"`
}

// Delta is the raw change set of one resource since a knowledge value
type Delta struct {
	Resource        Resource        `json:"resource"`
	ServerKnowledge int64           `json:"server_knowledge"`
	Records         json.RawMessage `json:"records"`
}
