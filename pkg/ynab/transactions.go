package ynab

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/pkg/errors"
)

// transactionService implements the TransactionService interface
type transactionService struct {
	client *Client
}

// Query returns a transaction query builder
func (s *transactionService) Query(budgetID string) TransactionQueryBuilder {
	return &transactionQueryBuilder{
		client:   s.client,
		budgetID: budgetID,
	}
}

// transactionQueryBuilder implements TransactionQueryBuilder
type transactionQueryBuilder struct {
	client        *Client
	budgetID      string
	since         *Date
	txnType       string
	lastKnowledge int64
}

// Since only includes transactions on or after date
func (b *transactionQueryBuilder) Since(date Date) TransactionQueryBuilder {
	b.since = &date
	return b
}

// OnlyUnapproved filters to unapproved transactions
func (b *transactionQueryBuilder) OnlyUnapproved() TransactionQueryBuilder {
	b.txnType = "unapproved"
	return b
}

// OnlyUncategorized filters to uncategorized transactions
func (b *transactionQueryBuilder) OnlyUncategorized() TransactionQueryBuilder {
	b.txnType = "uncategorized"
	return b
}

// SinceKnowledge requests only changes after knowledge
func (b *transactionQueryBuilder) SinceKnowledge(knowledge int64) TransactionQueryBuilder {
	b.lastKnowledge = knowledge
	return b
}

func (b *transactionQueryBuilder) values() url.Values {
	q := url.Values{}
	if b.since != nil && !b.since.IsZero() {
		q.Set("since_date", b.since.String())
	}
	if b.txnType != "" {
		q.Set("type", b.txnType)
	}
	if b.lastKnowledge > 0 {
		q.Set("last_knowledge_of_server", fmt.Sprintf("%d", b.lastKnowledge))
	}
	if len(q) == 0 {
		return nil
	}
	return q
}

// Execute runs the query
func (b *transactionQueryBuilder) Execute(ctx context.Context) (*TransactionList, error) {
	if b.budgetID == "" {
		return nil, &ValidationError{Field: "budgetID", Message: "required"}
	}

	var result TransactionList

	if err := b.client.get(ctx, budgetPath(b.budgetID, "transactions"), b.values(), &result); err != nil {
		return nil, errors.Wrap(err, "failed to query transactions")
	}

	return &result, nil
}

// Raw runs the query and keeps each transaction exactly as the server sent it
func (b *transactionQueryBuilder) Raw(ctx context.Context) ([]json.RawMessage, int64, error) {
	if b.budgetID == "" {
		return nil, 0, &ValidationError{Field: "budgetID", Message: "required"}
	}

	var result struct {
		Transactions    []json.RawMessage `json:"transactions"`
		ServerKnowledge int64             `json:"server_knowledge"`
	}

	if err := b.client.get(ctx, budgetPath(b.budgetID, "transactions"), b.values(), &result); err != nil {
		return nil, 0, errors.Wrap(err, "failed to query transactions")
	}

	if result.Transactions == nil {
		result.Transactions = []json.RawMessage{}
	}

	return result.Transactions, result.ServerKnowledge, nil
}
