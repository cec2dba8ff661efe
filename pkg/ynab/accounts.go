package ynab

import (
	"context"

	"github.com/pkg/errors"
)

// accountService implements the AccountService interface
type accountService struct {
	client *Client
}

// List retrieves accounts for a budget
func (s *accountService) List(ctx context.Context, budgetID string, lastKnowledge int64) (*AccountList, error) {
	if budgetID == "" {
		return nil, &ValidationError{Field: "budgetID", Message: "required"}
	}

	var result AccountList

	if err := s.client.get(ctx, budgetPath(budgetID, "accounts"), knowledgeQuery(lastKnowledge), &result); err != nil {
		return nil, errors.Wrap(err, "failed to list accounts")
	}

	return &result, nil
}

// Get retrieves a single account
func (s *accountService) Get(ctx context.Context, budgetID, accountID string) (*Account, error) {
	if budgetID == "" {
		return nil, &ValidationError{Field: "budgetID", Message: "required"}
	}
	if accountID == "" {
		return nil, &ValidationError{Field: "accountID", Message: "required"}
	}

	var result struct {
		Account *Account `json:"account"`
	}

	if err := s.client.get(ctx, budgetPath(budgetID, "accounts", accountID), nil, &result); err != nil {
		return nil, errors.Wrap(err, "failed to get account")
	}

	if result.Account == nil {
		return nil, ErrNotFound
	}

	return result.Account, nil
}

// OpenAccounts drops deleted and closed accounts
func OpenAccounts(accounts []*Account) []*Account {
	out := make([]*Account, 0, len(accounts))
	for _, a := range accounts {
		if a == nil || a.Deleted || a.Closed {
			continue
		}
		out = append(out, a)
	}
	return out
}
