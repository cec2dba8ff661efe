package ynab

import (
	"context"

	"github.com/pkg/errors"
)

type categoryService struct {
	client *Client
}

// List retrieves the category groups of a budget
func (s *categoryService) List(ctx context.Context, budgetID string, lastKnowledge int64) (*CategoryGroupList, error) {
	if budgetID == "" {
		return nil, &ValidationError{Field: "budgetID", Message: "required"}
	}

	var result CategoryGroupList

	if err := s.client.get(ctx, budgetPath(budgetID, "categories"), knowledgeQuery(lastKnowledge), &result); err != nil {
		return nil, errors.Wrap(err, "failed to list categories")
	}

	return &result, nil
}

// Get retrieves a single category
func (s *categoryService) Get(ctx context.Context, budgetID, categoryID string) (*Category, error) {
	if budgetID == "" {
		return nil, &ValidationError{Field: "budgetID", Message: "required"}
	}
	if categoryID == "" {
		return nil, &ValidationError{Field: "categoryID", Message: "required"}
	}

	var result struct {
		Category *Category `json:"category"`
	}

	if err := s.client.get(ctx, budgetPath(budgetID, "categories", categoryID), nil, &result); err != nil {
		return nil, errors.Wrap(err, "failed to get category")
	}

	if result.Category == nil {
		return nil, ErrNotFound
	}

	return result.Category, nil
}

// VisibleCategories drops deleted and hidden categories
func VisibleCategories(categories []*Category) []*Category {
	out := make([]*Category, 0, len(categories))
	for _, c := range categories {
		if c == nil || c.Deleted || c.Hidden {
			continue
		}
		out = append(out, c)
	}
	return out
}
