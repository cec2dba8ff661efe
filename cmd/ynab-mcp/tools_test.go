package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/eshaffer321/ynab-mcp-go/internal/config"
	"github.com/eshaffer321/ynab-mcp-go/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI serves canned YNAB bodies by path
type fakeAPI struct {
	mu      sync.Mutex
	bodies  map[string]string
	queries []string
}

func (f *fakeAPI) set(path, data string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bodies[path] = data
}

func (f *fakeAPI) lastQuery() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queries) == 0 {
		return ""
	}
	return f.queries[len(f.queries)-1]
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.queries = append(f.queries, r.URL.RawQuery)
	body, ok := f.bodies[r.URL.Path]
	f.mu.Unlock()

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"id":"404.2","name":"resource_not_found","detail":"Resource not found"}}`))
		return
	}
	_, _ = w.Write([]byte(`{"data":` + body + `}`))
}

func testConfig(baseURL, dir, budgetID string) *config.Config {
	return &config.Config{
		YNAB: config.YNABConfig{
			APIToken: "test-token",
			BaseURL:  baseURL,
			BudgetID: budgetID,
			Timeout:  5 * time.Second,
		},
		Knowledge: config.KnowledgeConfig{Dir: dir},
		Logger:    config.LoggerConfig{Level: "info", Format: "console"},
	}
}

func newTestTools(t *testing.T, budgetID string) (*ynabTools, *fakeAPI) {
	t.Helper()

	api := &fakeAPI{bodies: map[string]string{}}
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	a, err := newApp(context.Background(), testConfig(server.URL, t.TempDir(), budgetID), logging.Nop())
	require.NoError(t, err)
	t.Cleanup(a.Close)

	return newYNABTools(a), api
}

func TestListBudgetsTool(t *testing.T) {
	tools, api := newTestTools(t, "")
	api.set("/budgets", `{"budgets":[{"id":"b-1","name":"Home"}],"default_budget":null}`)

	_, out, err := tools.ListBudgets(context.Background(), nil, ListBudgetsInput{})

	require.NoError(t, err)
	assert.Equal(t, 1, out.Count)
	assert.Equal(t, BudgetEntry{ID: "b-1", Name: "Home"}, out.Budgets[0])
}

func TestSetBudgetTool(t *testing.T) {
	tools, api := newTestTools(t, "")
	api.set("/budgets/b-9/accounts", `{"accounts":[{"id":"a-1","name":"Checking"}],"server_knowledge":1}`)
	api.set("/budgets/b-9/categories", `{"category_groups":[],"server_knowledge":1}`)

	_, _, err := tools.SetBudget(context.Background(), nil, SetBudgetInput{})
	require.Error(t, err)

	_, out, err := tools.SetBudget(context.Background(), nil, SetBudgetInput{BudgetID: "b-9"})
	require.NoError(t, err)
	assert.Equal(t, "b-9", out.BudgetID)
	assert.True(t, out.Primed)
	assert.Equal(t, "b-9", tools.store.DefaultBudgetID())

	_, ok := tools.store.Accounts("b-9")
	assert.True(t, ok)

	_, out, err = tools.SetBudget(context.Background(), nil, SetBudgetInput{})
	require.NoError(t, err)
	assert.False(t, out.Primed)
}

func TestGetDefaultBudgetTool(t *testing.T) {
	tools, _ := newTestTools(t, "b-1")
	require.NoError(t, tools.store.UpdateLastKnowledgeOfServer(77))

	_, out, err := tools.GetDefaultBudget(context.Background(), nil, GetDefaultBudgetInput{})

	require.NoError(t, err)
	assert.Equal(t, "b-1", out.BudgetID)
	assert.Equal(t, int64(77), out.LastKnowledgeOfServer)
	assert.False(t, out.Degraded)
}

func TestListAccountsTool(t *testing.T) {
	tools, api := newTestTools(t, "b-1")
	api.set("/budgets/b-1/accounts", `{"accounts":[
		{"id":"a-1","name":"Checking","type":"checking","on_budget":true,"balance":1500500},
		{"id":"a-2","name":"Closed","closed":true}
	],"server_knowledge":1}`)

	_, out, err := tools.ListAccounts(context.Background(), nil, ListAccountsInput{})

	require.NoError(t, err)
	assert.Equal(t, "b-1", out.BudgetID)
	require.Equal(t, 1, out.Count)
	assert.InDelta(t, 1500.5, out.Accounts[0].Balance, 1e-9)
	assert.True(t, out.Accounts[0].OnBudget)
}

func TestListCategoriesTool(t *testing.T) {
	tools, api := newTestTools(t, "b-1")
	api.set("/budgets/b-1/categories", `{"category_groups":[{"id":"g-1","name":"Bills","categories":[
		{"id":"c-1","category_group_id":"g-1","name":"Rent","budgeted":1200000,"activity":-600000,"balance":600000,"goal_type":"NEED","goal_target":1200000},
		{"id":"c-2","category_group_id":"g-1","name":"Hidden","hidden":true}
	]}],"server_knowledge":1}`)

	_, out, err := tools.ListCategories(context.Background(), nil, ListCategoriesInput{})

	require.NoError(t, err)
	require.Equal(t, 1, out.Count)
	c := out.Categories[0]
	assert.Equal(t, "Bills", c.GroupName)
	assert.InDelta(t, -600.0, c.Activity, 1e-9)
	require.NotNil(t, c.GoalTarget)
	assert.InDelta(t, 1200.0, *c.GoalTarget, 1e-9)
}

func TestGetTransactionsTool(t *testing.T) {
	tools, api := newTestTools(t, "b-1")
	api.set("/budgets/b-1/transactions", `{"transactions":[
		{"id":"t-1","date":"2024-03-14","amount":-12340,"cleared":"cleared","approved":true,"account_id":"a","account_name":"Checking","deleted":false},
		{"id":"t-2","date":"2024-03-14","amount":-1,"account_id":"a","account_name":"Checking","deleted":true}
	],"server_knowledge":50}`)

	_, out, err := tools.GetTransactions(context.Background(), nil, GetTransactionsInput{})
	require.NoError(t, err)
	assert.False(t, out.Delta)
	require.Equal(t, 1, out.TransactionCount)
	assert.Equal(t, "t-1", out.Transactions[0].ID)
	assert.False(t, out.Transactions[0].Deleted)
	assert.Equal(t, "-12.34", out.Transactions[0].Amount)
	assert.Equal(t, "2024-03-14", out.Transactions[0].Date)
	assert.Contains(t, api.lastQuery(), "since_date=")

	_, out, err = tools.GetTransactions(context.Background(), nil, GetTransactionsInput{})
	require.NoError(t, err)
	assert.True(t, out.Delta)
	assert.Equal(t, "last_knowledge_of_server=50", api.lastQuery())
}

func TestGetTransactionsTool_NoBudget(t *testing.T) {
	tools, _ := newTestTools(t, "")

	_, _, err := tools.GetTransactions(context.Background(), nil, GetTransactionsInput{})
	assert.Error(t, err)
}

func TestDeltaRequestsTool(t *testing.T) {
	tools, api := newTestTools(t, "b-1")
	api.set("/budgets/b-1/payees", `{"payees":[{"id":"p-1","name":"Cafe","deleted":false}],"server_knowledge":12}`)

	_, out, err := tools.DeltaRequests(context.Background(), nil, DeltaRequestsInput{Resource: "payees", LastKnowledgeOfServer: 10})

	require.NoError(t, err)
	assert.Equal(t, "payees", out.Resource)
	assert.Equal(t, int64(12), out.ServerKnowledge)
	records, ok := out.Records.([]any)
	require.True(t, ok)
	assert.Len(t, records, 1)
	assert.Equal(t, "last_knowledge_of_server=10", api.lastQuery())
}

func TestDeltaRequestsTool_Validation(t *testing.T) {
	tools, _ := newTestTools(t, "b-1")

	tests := []struct {
		name  string
		input DeltaRequestsInput
	}{
		{"missing resource", DeltaRequestsInput{}},
		{"unknown resource", DeltaRequestsInput{Resource: "webhooks"}},
		{"negative knowledge", DeltaRequestsInput{Resource: "accounts", LastKnowledgeOfServer: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := tools.DeltaRequests(context.Background(), nil, tt.input)
			assert.ErrorContains(t, err, "invalid input")
		})
	}
}

func TestResetKnowledgeTool(t *testing.T) {
	tools, _ := newTestTools(t, "b-1")
	require.NoError(t, tools.store.UpdateLastKnowledgeOfServer(9))

	_, out, err := tools.ResetKnowledge(context.Background(), nil, ResetKnowledgeInput{})

	require.NoError(t, err)
	assert.NotEmpty(t, out.Message)
	assert.Zero(t, tools.store.LastKnowledgeOfServer())
	assert.Empty(t, tools.store.Budgets())
}
