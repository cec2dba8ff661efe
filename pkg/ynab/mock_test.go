package ynab

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/stretchr/testify/mock"
)

// MockTransport is a mock implementation of the Transport interface
type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Do(ctx context.Context, method, path string, query url.Values, body interface{}, result interface{}) error {
	args := m.Called(ctx, method, path, query, body, result)

	// If mock provides result data, unmarshal it
	if args.Get(0) != nil {
		if err := json.Unmarshal([]byte(args.String(0)), result); err != nil {
			return err
		}
	}

	return args.Error(1)
}

func (m *MockTransport) SetAuth(token string) {
	m.Called(token)
}

func newMockClient() (*Client, *MockTransport) {
	mockTransport := new(MockTransport)
	client := &Client{
		transport: mockTransport,
		options:   &ClientOptions{},
		baseURL:   "https://api.test.com",
	}
	client.initServices()
	return client, mockTransport
}

// noQuery matches a request sent without query parameters
var noQuery = mock.MatchedBy(func(q url.Values) bool { return len(q) == 0 })

// withQuery matches a request whose query has exactly the given values
func withQuery(kv ...string) interface{} {
	return mock.MatchedBy(func(q url.Values) bool {
		if len(q) != len(kv)/2 {
			return false
		}
		for i := 0; i+1 < len(kv); i += 2 {
			if q.Get(kv[i]) != kv[i+1] {
				return false
			}
		}
		return true
	})
}
