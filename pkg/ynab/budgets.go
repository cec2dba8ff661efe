package ynab

import (
	"context"

	"github.com/pkg/errors"
)

// budgetService implements the BudgetService interface
type budgetService struct {
	client *Client
}

// List retrieves budget summaries
func (s *budgetService) List(ctx context.Context) (*BudgetList, error) {
	var result BudgetList

	if err := s.client.get(ctx, "/budgets", nil, &result); err != nil {
		return nil, errors.Wrap(err, "failed to list budgets")
	}

	return &result, nil
}
