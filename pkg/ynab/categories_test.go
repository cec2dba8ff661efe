package ynab

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const categoryGroupsResponse = `{
	"category_groups": [
		{
			"id": "g-1", "name": "Bills", "hidden": false, "deleted": false,
			"categories": [
				{"id": "c-1", "category_group_id": "g-1", "name": "Rent", "budgeted": 1200000, "activity": -1200000, "balance": 0},
				{"id": "c-2", "category_group_id": "g-1", "name": "Old", "hidden": true}
			]
		},
		{
			"id": "g-2", "name": "Fun", "hidden": false, "deleted": false,
			"categories": [
				{"id": "c-3", "category_group_id": "g-2", "name": "Dining", "deleted": true},
				{"id": "c-4", "category_group_id": "g-2", "name": "Games", "goal_type": "TB", "goal_target": 50000}
			]
		}
	],
	"server_knowledge": 7
}`

func TestCategoryService_List(t *testing.T) {
	client, mockTransport := newMockClient()

	mockTransport.On("Do", mock.Anything, "GET", "/budgets/b-1/categories", noQuery, nil, mock.Anything).
		Return(categoryGroupsResponse, nil)

	list, err := client.Categories.List(context.Background(), "b-1", 0)

	require.NoError(t, err)
	assert.Equal(t, int64(7), list.ServerKnowledge)
	require.Len(t, list.CategoryGroups, 2)

	flat := list.Flatten()
	require.Len(t, flat, 4)
	assert.Equal(t, "Bills", flat[0].CategoryGroupName)
	assert.Equal(t, "Fun", flat[3].CategoryGroupName)
	require.NotNil(t, flat[3].GoalTarget)
	assert.Equal(t, int64(50000), *flat[3].GoalTarget)

	visible := VisibleCategories(flat)
	require.Len(t, visible, 2)
	assert.Equal(t, "c-1", visible[0].ID)
	assert.Equal(t, "c-4", visible[1].ID)

	mockTransport.AssertExpectations(t)
}

func TestCategoryService_Get(t *testing.T) {
	client, mockTransport := newMockClient()

	mockTransport.On("Do", mock.Anything, "GET", "/budgets/b-1/categories/c-1", noQuery, nil, mock.Anything).
		Return(`{"category": {"id": "c-1", "name": "Rent", "balance": 25000}}`, nil)

	category, err := client.Categories.Get(context.Background(), "b-1", "c-1")

	require.NoError(t, err)
	assert.Equal(t, "Rent", category.Name)
	assert.InDelta(t, 25.0, MilliunitsToAmount(category.Balance), 1e-9)

	_, err = client.Categories.Get(context.Background(), "b-1", "")
	assert.ErrorIs(t, err, ErrInvalidRequest)

	mockTransport.AssertExpectations(t)
}
