package ynab

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
)

type deltaService struct {
	client *Client
}

// Get retrieves the changes to resource since lastKnowledge
func (s *deltaService) Get(ctx context.Context, budgetID string, resource Resource, lastKnowledge int64) (*Delta, error) {
	if budgetID == "" {
		return nil, &ValidationError{Field: "budgetID", Message: "required"}
	}
	resource, err := ParseResource(string(resource))
	if err != nil {
		return nil, err
	}
	if lastKnowledge < 0 {
		return nil, &ValidationError{Field: "lastKnowledge", Message: "must not be negative", Value: lastKnowledge}
	}

	var result map[string]json.RawMessage

	if err := s.client.get(ctx, resource.path(budgetID), knowledgeQuery(lastKnowledge), &result); err != nil {
		return nil, errors.Wrapf(err, "failed to get %s delta", resource)
	}

	delta := &Delta{Resource: resource, Records: result[resource.dataKey()]}

	if raw, ok := result["server_knowledge"]; ok {
		if err := json.Unmarshal(raw, &delta.ServerKnowledge); err != nil {
			return nil, errors.Wrap(err, "invalid server_knowledge")
		}
	}

	if len(delta.Records) == 0 {
		delta.Records = json.RawMessage("null")
	}

	return delta, nil
}
