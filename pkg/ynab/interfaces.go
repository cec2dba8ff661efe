package ynab

import (
	"context"
	"encoding/json"
)

// BudgetService handles budget operations
type BudgetService interface {
	// List retrieves budget summaries and the default budget
	List(ctx context.Context) (*BudgetList, error)
}

// AccountService handles all account-related operations
type AccountService interface {
	// List retrieves accounts, or only the changes since lastKnowledge when it is positive
	List(ctx context.Context, budgetID string, lastKnowledge int64) (*AccountList, error)

	// Get retrieves a single account by ID
	Get(ctx context.Context, budgetID, accountID string) (*Account, error)
}

// CategoryService handles category operations
type CategoryService interface {
	// List retrieves category groups, or only the changes since lastKnowledge when it is positive
	List(ctx context.Context, budgetID string, lastKnowledge int64) (*CategoryGroupList, error)

	// Get retrieves a single category by ID
	Get(ctx context.Context, budgetID, categoryID string) (*Category, error)
}

// TransactionService handles all transaction-related operations
type TransactionService interface {
	// Query returns a transaction query builder for a budget
	Query(budgetID string) TransactionQueryBuilder
}

// TransactionQueryBuilder provides a fluent interface for transaction queries
type TransactionQueryBuilder interface {
	// Since only includes transactions on or after the date
	Since(date Date) TransactionQueryBuilder

	// OnlyUnapproved only includes unapproved transactions
	OnlyUnapproved() TransactionQueryBuilder

	// OnlyUncategorized only includes uncategorized transactions
	OnlyUncategorized() TransactionQueryBuilder

	// SinceKnowledge only includes changes after a server knowledge value
	SinceKnowledge(knowledge int64) TransactionQueryBuilder

	// Execute runs the query
	Execute(ctx context.Context) (*TransactionList, error)

	// Raw runs the query and returns the transactions undecoded
	Raw(ctx context.Context) ([]json.RawMessage, int64, error)
}

// DeltaService fetches raw change sets for any delta-capable resource
type DeltaService interface {
	// Get retrieves the records of resource changed since lastKnowledge
	Get(ctx context.Context, budgetID string, resource Resource, lastKnowledge int64) (*Delta, error)
}

// UserService handles user operations
type UserService interface {
	// Get retrieves the authenticated user
	Get(ctx context.Context) (*User, error)
}
