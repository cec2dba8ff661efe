package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/eshaffer321/ynab-mcp-go/internal/deltasync"
	"github.com/eshaffer321/ynab-mcp-go/internal/knowledge"
	"github.com/eshaffer321/ynab-mcp-go/internal/types"
	"github.com/eshaffer321/ynab-mcp-go/pkg/ynab"
	"github.com/go-playground/validator/v10"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ynabTools holds the client and cache and implements all tool handlers
type ynabTools struct {
	client   *ynab.Client
	store    *knowledge.Store
	syncer   *deltasync.Syncer
	logger   types.Logger
	validate *validator.Validate
}

func newYNABTools(a *app) *ynabTools {
	return &ynabTools{
		client:   a.client,
		store:    a.store,
		syncer:   a.syncer,
		logger:   a.logger.WithComponent("tools"),
		validate: validator.New(),
	}
}

func registerTools(server *mcp.Server, tools *ynabTools) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_budgets",
		Description: "Lists all budgets available to the YNAB token.",
	}, tools.ListBudgets)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ynab_set_budget",
		Description: "Sets the default budget (when budgetId is given) and caches its accounts and categories. Run this before using the transaction tools.",
	}, tools.SetBudget)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_default_budget",
		Description: "Returns the default budget ID and the stored server knowledge cursor.",
	}, tools.GetDefaultBudget)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_accounts",
		Description: "Lists open accounts in a YNAB budget with balances in currency units.",
	}, tools.ListAccounts)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_categories",
		Description: "Lists visible categories in a YNAB budget with budgeted, activity and balance amounts.",
	}, tools.ListCategories)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ynab_get_transactions",
		Description: "Gets transactions from a budget. The first pull covers the last 3 days, later pulls use server knowledge to get only changes.",
	}, tools.GetTransactions)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delta_requests",
		Description: "Fetch only changes (deltas) since a given server_knowledge value for a resource. Supported resources: budget, accounts, categories, months, payees, transactions, scheduled_transactions.",
	}, tools.DeltaRequests)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "reset_knowledge",
		Description: "Clears the cached server knowledge, default budget and budget snapshots.",
	}, tools.ResetKnowledge)
}

// check runs struct validation on tool input
func (t *ynabTools) check(input interface{}) error {
	if err := t.validate.Struct(input); err != nil {
		return fmt.Errorf("invalid input: %w", err)
	}
	return nil
}

// warnPersist logs a store write failure; the cache still holds the change
func (t *ynabTools) warnPersist(err error, what string) {
	if err != nil {
		t.logger.Warn("Failed to persist "+what, "error", err)
	}
}

// ListBudgets tool

type ListBudgetsInput struct{}

type BudgetEntry struct {
	ID   string `json:"id" jsonschema:"Budget ID"`
	Name string `json:"name" jsonschema:"Budget name"`
}

type ListBudgetsOutput struct {
	Budgets []BudgetEntry `json:"budgets" jsonschema:"Budgets available to the token"`
	Count   int           `json:"count" jsonschema:"Number of budgets"`
}

func (t *ynabTools) ListBudgets(ctx context.Context, req *mcp.CallToolRequest, input ListBudgetsInput) (*mcp.CallToolResult, ListBudgetsOutput, error) {
	t.logger.Info("Listing budgets")

	list, err := t.client.Budgets.List(ctx)
	if err != nil {
		return nil, ListBudgetsOutput{}, fmt.Errorf("failed to list budgets: %w", err)
	}

	entries := make([]BudgetEntry, 0, len(list.Budgets))
	for _, b := range list.Budgets {
		entries = append(entries, BudgetEntry{ID: b.ID, Name: b.Name})
	}

	return nil, ListBudgetsOutput{Budgets: entries, Count: len(entries)}, nil
}

// SetBudget tool

type SetBudgetInput struct {
	BudgetID string `json:"budgetId,omitempty" jsonschema:"Budget to make the default (optional, keeps the current default when empty)" validate:"omitempty,max=64"`
}

type SetBudgetOutput struct {
	BudgetID string `json:"budgetId" jsonschema:"The default budget"`
	Primed   bool   `json:"primed" jsonschema:"Whether accounts and categories were fetched"`
	Message  string `json:"message" jsonschema:"Next step hint"`
}

func (t *ynabTools) SetBudget(ctx context.Context, req *mcp.CallToolRequest, input SetBudgetInput) (*mcp.CallToolResult, SetBudgetOutput, error) {
	if err := t.check(input); err != nil {
		return nil, SetBudgetOutput{}, err
	}

	if input.BudgetID != "" {
		t.warnPersist(t.store.SetDefaultBudgetID(input.BudgetID), "default budget")
	}

	budgetID := t.store.DefaultBudgetID()
	if budgetID == "" {
		return nil, SetBudgetOutput{}, fmt.Errorf("no default budget ID found, please set a default budget ID first")
	}

	primed, err := t.syncer.PrimeBudget(ctx, budgetID)
	if err != nil {
		return nil, SetBudgetOutput{}, fmt.Errorf("error getting budget %s: %w", budgetID, err)
	}

	return nil, SetBudgetOutput{
		BudgetID: budgetID,
		Primed:   primed,
		Message:  "Account and categories have been retrieved and saved. Ask the user what they want to do next.",
	}, nil
}

// GetDefaultBudget tool

type GetDefaultBudgetInput struct{}

type GetDefaultBudgetOutput struct {
	BudgetID              string `json:"budgetId" jsonschema:"Default budget ID, empty when unset"`
	LastKnowledgeOfServer int64  `json:"lastKnowledgeOfServer" jsonschema:"Stored server knowledge cursor, 0 when none"`
	Degraded              bool   `json:"degraded" jsonschema:"Whether the cache is running without persistence"`
}

func (t *ynabTools) GetDefaultBudget(ctx context.Context, req *mcp.CallToolRequest, input GetDefaultBudgetInput) (*mcp.CallToolResult, GetDefaultBudgetOutput, error) {
	return nil, GetDefaultBudgetOutput{
		BudgetID:              t.store.DefaultBudgetID(),
		LastKnowledgeOfServer: t.store.LastKnowledgeOfServer(),
		Degraded:              t.store.Degraded(),
	}, nil
}

// ListAccounts tool

type ListAccountsInput struct {
	BudgetID string `json:"budgetId,omitempty" jsonschema:"Budget to list accounts for (optional, defaults to the default budget)" validate:"omitempty,max=64"`
}

type AccountEntry struct {
	ID       string  `json:"id" jsonschema:"Account ID"`
	Name     string  `json:"name" jsonschema:"Account name"`
	Type     string  `json:"type" jsonschema:"Account type"`
	Balance  float64 `json:"balance" jsonschema:"Current balance in currency units"`
	OnBudget bool    `json:"on_budget" jsonschema:"Whether the account is on budget"`
	Closed   bool    `json:"closed" jsonschema:"Whether the account is closed"`
}

type ListAccountsOutput struct {
	BudgetID string         `json:"budgetId" jsonschema:"Budget the accounts belong to"`
	Accounts []AccountEntry `json:"accounts" jsonschema:"Open accounts"`
	Count    int            `json:"count" jsonschema:"Number of accounts"`
}

func (t *ynabTools) ListAccounts(ctx context.Context, req *mcp.CallToolRequest, input ListAccountsInput) (*mcp.CallToolResult, ListAccountsOutput, error) {
	if err := t.check(input); err != nil {
		return nil, ListAccountsOutput{}, err
	}

	budgetID, err := t.syncer.ResolveBudget(input.BudgetID)
	if err != nil {
		return nil, ListAccountsOutput{}, err
	}

	t.logger.Info("Listing accounts", "budget_id", budgetID)

	accounts, err := t.syncer.SyncAccounts(ctx, budgetID)
	if err != nil {
		return nil, ListAccountsOutput{}, fmt.Errorf("error listing accounts: %w", err)
	}

	entries := make([]AccountEntry, 0, len(accounts))
	for _, a := range accounts {
		entries = append(entries, AccountEntry{
			ID:       a.ID,
			Name:     a.Name,
			Type:     a.Type,
			Balance:  ynab.MilliunitsToAmount(a.Balance),
			OnBudget: a.OnBudget,
			Closed:   a.Closed,
		})
	}

	return nil, ListAccountsOutput{BudgetID: budgetID, Accounts: entries, Count: len(entries)}, nil
}

// ListCategories tool

type ListCategoriesInput struct {
	BudgetID string `json:"budgetId,omitempty" jsonschema:"Budget to list categories for (optional, defaults to the default budget)" validate:"omitempty,max=64"`
}

type CategoryEntry struct {
	ID         string   `json:"id" jsonschema:"Category ID"`
	Name       string   `json:"name" jsonschema:"Category name"`
	GroupID    string   `json:"group_id" jsonschema:"Category group ID"`
	GroupName  string   `json:"group_name" jsonschema:"Category group name"`
	Budgeted   float64  `json:"budgeted" jsonschema:"Budgeted this month in currency units"`
	Activity   float64  `json:"activity" jsonschema:"Activity this month in currency units"`
	Balance    float64  `json:"balance" jsonschema:"Available balance in currency units"`
	GoalType   *string  `json:"goal_type,omitempty" jsonschema:"Goal type, if any"`
	GoalTarget *float64 `json:"goal_target,omitempty" jsonschema:"Goal target in currency units, if any"`
	Note       *string  `json:"note,omitempty" jsonschema:"Category note"`
}

type ListCategoriesOutput struct {
	BudgetID   string          `json:"budgetId" jsonschema:"Budget the categories belong to"`
	Categories []CategoryEntry `json:"categories" jsonschema:"Visible categories"`
	Count      int             `json:"count" jsonschema:"Number of categories"`
}

func (t *ynabTools) ListCategories(ctx context.Context, req *mcp.CallToolRequest, input ListCategoriesInput) (*mcp.CallToolResult, ListCategoriesOutput, error) {
	if err := t.check(input); err != nil {
		return nil, ListCategoriesOutput{}, err
	}

	budgetID, err := t.syncer.ResolveBudget(input.BudgetID)
	if err != nil {
		return nil, ListCategoriesOutput{}, err
	}

	t.logger.Info("Listing categories", "budget_id", budgetID)

	categories, err := t.syncer.SyncCategories(ctx, budgetID)
	if err != nil {
		return nil, ListCategoriesOutput{}, fmt.Errorf("error listing categories: %w", err)
	}

	entries := make([]CategoryEntry, 0, len(categories))
	for _, c := range categories {
		entry := CategoryEntry{
			ID:        c.ID,
			Name:      c.Name,
			GroupID:   c.CategoryGroupID,
			GroupName: c.CategoryGroupName,
			Budgeted:  ynab.MilliunitsToAmount(c.Budgeted),
			Activity:  ynab.MilliunitsToAmount(c.Activity),
			Balance:   ynab.MilliunitsToAmount(c.Balance),
			GoalType:  c.GoalType,
			Note:      c.Note,
		}
		if c.GoalTarget != nil {
			target := ynab.MilliunitsToAmount(*c.GoalTarget)
			entry.GoalTarget = &target
		}
		entries = append(entries, entry)
	}

	return nil, ListCategoriesOutput{BudgetID: budgetID, Categories: entries, Count: len(entries)}, nil
}

// GetTransactions tool

type GetTransactionsInput struct {
	BudgetID string `json:"budget_id,omitempty" jsonschema:"Budget to fetch transactions for (optional, defaults to the default budget)" validate:"omitempty,max=64"`
}

type TransactionEntry struct {
	ID                    string  `json:"id" jsonschema:"Transaction ID"`
	Date                  string  `json:"date" jsonschema:"Transaction date (YYYY-MM-DD)"`
	Amount                string  `json:"amount" jsonschema:"Amount in currency units with two decimals"`
	Memo                  *string `json:"memo,omitempty" jsonschema:"Memo"`
	Cleared               string  `json:"cleared" jsonschema:"Cleared status"`
	Approved              bool    `json:"approved" jsonschema:"Whether the transaction is approved"`
	FlagColor             *string `json:"flag_color,omitempty" jsonschema:"Flag color"`
	AccountID             string  `json:"account_id" jsonschema:"Account ID"`
	AccountName           string  `json:"account_name" jsonschema:"Account name"`
	PayeeID               *string `json:"payee_id,omitempty" jsonschema:"Payee ID"`
	PayeeName             *string `json:"payee_name,omitempty" jsonschema:"Payee name"`
	CategoryID            *string `json:"category_id,omitempty" jsonschema:"Category ID"`
	CategoryName          *string `json:"category_name,omitempty" jsonschema:"Category name"`
	TransferAccountID     *string `json:"transfer_account_id,omitempty" jsonschema:"Transfer account ID"`
	TransferTransactionID *string `json:"transfer_transaction_id,omitempty" jsonschema:"Transfer transaction ID"`
	MatchedTransactionID  *string `json:"matched_transaction_id,omitempty" jsonschema:"Matched transaction ID"`
	ImportID              *string `json:"import_id,omitempty" jsonschema:"Import ID"`
	// Always false: deleted records are dropped before entries are built.
	// Kept so the output shape matches the YNAB transaction.
	Deleted               bool    `json:"deleted" jsonschema:"Whether the transaction is deleted"`
}

type GetTransactionsOutput struct {
	BudgetID         string             `json:"budget_id" jsonschema:"Budget the transactions belong to"`
	Transactions     []TransactionEntry `json:"transactions" jsonschema:"New or changed transactions"`
	TransactionCount int                `json:"transaction_count" jsonschema:"Number of transactions returned"`
	ServerKnowledge  int64              `json:"server_knowledge" jsonschema:"Server knowledge after this pull"`
	Delta            bool               `json:"delta" jsonschema:"Whether only changes since the last pull were requested"`
}

func (t *ynabTools) GetTransactions(ctx context.Context, req *mcp.CallToolRequest, input GetTransactionsInput) (*mcp.CallToolResult, GetTransactionsOutput, error) {
	if err := t.check(input); err != nil {
		return nil, GetTransactionsOutput{}, err
	}

	budgetID, err := t.syncer.ResolveBudget(input.BudgetID)
	if err != nil {
		return nil, GetTransactionsOutput{}, err
	}

	t.logger.Info("Getting transactions", "budget_id", budgetID)

	result, err := t.syncer.SyncTransactions(ctx, budgetID)
	if err != nil {
		return nil, GetTransactionsOutput{}, fmt.Errorf("error getting transactions: %w", err)
	}

	entries := make([]TransactionEntry, 0, len(result.Transactions))
	for _, txn := range result.Transactions {
		entries = append(entries, TransactionEntry{
			ID:                    txn.ID,
			Date:                  txn.Date.String(),
			Amount:                ynab.FormatMilliunits(txn.Amount),
			Memo:                  txn.Memo,
			Cleared:               txn.Cleared,
			Approved:              txn.Approved,
			FlagColor:             txn.FlagColor,
			AccountID:             txn.AccountID,
			AccountName:           txn.AccountName,
			PayeeID:               txn.PayeeID,
			PayeeName:             txn.PayeeName,
			CategoryID:            txn.CategoryID,
			CategoryName:          txn.CategoryName,
			TransferAccountID:     txn.TransferAccountID,
			TransferTransactionID: txn.TransferTransactionID,
			MatchedTransactionID:  txn.MatchedTransactionID,
			ImportID:              txn.ImportID,
			Deleted:               txn.Deleted,
		})
	}

	return nil, GetTransactionsOutput{
		BudgetID:         budgetID,
		Transactions:     entries,
		TransactionCount: len(entries),
		ServerKnowledge:  result.ServerKnowledge,
		Delta:            result.Delta,
	}, nil
}

// DeltaRequests tool

type DeltaRequestsInput struct {
	BudgetID              string `json:"budgetId,omitempty" jsonschema:"Budget to fetch deltas for (optional, defaults to the default budget)" validate:"omitempty,max=64"`
	Resource              string `json:"resource" jsonschema:"One of: budget, accounts, categories, months, payees, transactions, scheduled_transactions" validate:"required,oneof=budget accounts categories months payees transactions scheduled_transactions"`
	LastKnowledgeOfServer int64  `json:"lastKnowledgeOfServer" jsonschema:"The last server_knowledge value you have. Only changes since this value are returned." validate:"gte=0"`
}

type DeltaRequestsOutput struct {
	Resource        string `json:"resource" jsonschema:"Resource the records belong to"`
	ServerKnowledge int64  `json:"server_knowledge" jsonschema:"Server knowledge to pass on the next request"`
	Records         any    `json:"records" jsonschema:"Changed records as returned by YNAB"`
}

func (t *ynabTools) DeltaRequests(ctx context.Context, req *mcp.CallToolRequest, input DeltaRequestsInput) (*mcp.CallToolResult, DeltaRequestsOutput, error) {
	if err := t.check(input); err != nil {
		return nil, DeltaRequestsOutput{}, err
	}

	budgetID, err := t.syncer.ResolveBudget(input.BudgetID)
	if err != nil {
		return nil, DeltaRequestsOutput{}, err
	}

	resource, err := ynab.ParseResource(input.Resource)
	if err != nil {
		return nil, DeltaRequestsOutput{}, err
	}

	delta, err := t.client.Deltas.Get(ctx, budgetID, resource, input.LastKnowledgeOfServer)
	if err != nil {
		t.logger.Error("Error fetching delta", "resource", resource, "budget_id", budgetID, "error", err)
		return nil, DeltaRequestsOutput{}, fmt.Errorf("error fetching delta for resource %s in budget %s: %w", resource, budgetID, err)
	}

	var records any
	if err := json.Unmarshal(delta.Records, &records); err != nil {
		return nil, DeltaRequestsOutput{}, fmt.Errorf("invalid records in %s delta: %w", resource, err)
	}

	return nil, DeltaRequestsOutput{
		Resource:        resource.String(),
		ServerKnowledge: delta.ServerKnowledge,
		Records:         records,
	}, nil
}

// ResetKnowledge tool

type ResetKnowledgeInput struct{}

type ResetKnowledgeOutput struct {
	Message string `json:"message" jsonschema:"Result of the reset"`
}

func (t *ynabTools) ResetKnowledge(ctx context.Context, req *mcp.CallToolRequest, input ResetKnowledgeInput) (*mcp.CallToolResult, ResetKnowledgeOutput, error) {
	t.warnPersist(t.store.Reset(), "reset")
	return nil, ResetKnowledgeOutput{Message: "Server knowledge has been reset."}, nil
}
