package ynab

import (
	"fmt"
	"strings"
)

// Resource names a budget resource that supports delta requests
type Resource string

const (
	ResourceBudget                Resource = "budget"
	ResourceAccounts              Resource = "accounts"
	ResourceCategories            Resource = "categories"
	ResourceMonths                Resource = "months"
	ResourcePayees                Resource = "payees"
	ResourceTransactions          Resource = "transactions"
	ResourceScheduledTransactions Resource = "scheduled_transactions"
)

// Resources lists every supported resource
var Resources = []Resource{
	ResourceBudget,
	ResourceAccounts,
	ResourceCategories,
	ResourceMonths,
	ResourcePayees,
	ResourceTransactions,
	ResourceScheduledTransactions,
}

// ParseResource converts a name into a Resource
func ParseResource(s string) (Resource, error) {
	r := Resource(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Resources {
		if r == known {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedResource, s)
}

// dataKey is the response field that holds the resource records
func (r Resource) dataKey() string {
	if r == ResourceCategories {
		return "category_groups"
	}
	return string(r)
}

// path returns the endpoint for the resource within a budget
func (r Resource) path(budgetID string) string {
	if r == ResourceBudget {
		return budgetPath(budgetID)
	}
	return budgetPath(budgetID, string(r))
}

func (r Resource) String() string {
	return string(r)
}
