package graph

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/zero-day-ai/cortex/internal/types"
)

// MockCall is a recorded Query or Execute call.
type MockCall struct {
	Cypher string
	Params map[string]any
}

type mockRule struct {
	contains string
	result   QueryResult
	err      error
	delay    time.Duration
}

// MockClient is a scripted Client for tests. Rules match on a substring
// of the Cypher text and are evaluated in registration order.
type MockClient struct {
	mu        sync.Mutex
	rules     []mockRule
	calls     []MockCall
	connected bool
	health    types.HealthStatus
}

// NewMockClient creates a healthy, unconnected mock.
func NewMockClient() *MockClient {
	return &MockClient{health: types.Healthy("mock graph client")}
}

// OnQuery registers a canned result for statements containing substr.
func (m *MockClient) OnQuery(substr string, records ...map[string]any) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, mockRule{contains: substr, result: QueryResult{Records: records}})
	return m
}

// OnQueryError registers an error for statements containing substr.
func (m *MockClient) OnQueryError(substr string, err error) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, mockRule{contains: substr, err: err})
	return m
}

// WithDelay delays the most recently registered rule.
func (m *MockClient) WithDelay(d time.Duration) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n := len(m.rules); n > 0 {
		m.rules[n-1].delay = d
	}
	return m
}

// SetHealth sets the status Health reports.
func (m *MockClient) SetHealth(h types.HealthStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.health = h
}

// Calls returns a copy of the recorded calls.
func (m *MockClient) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *MockClient) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = true
	return nil
}

func (m *MockClient) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
	return nil
}

func (m *MockClient) Health(ctx context.Context) types.HealthStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.health
}

func (m *MockClient) Query(ctx context.Context, cypher string, params map[string]any) (QueryResult, error) {
	return m.run(ctx, cypher, params)
}

func (m *MockClient) Execute(ctx context.Context, cypher string, params map[string]any) (QueryResult, error) {
	return m.run(ctx, cypher, params)
}

func (m *MockClient) run(ctx context.Context, cypher string, params map[string]any) (QueryResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{Cypher: cypher, Params: params})
	var rule *mockRule
	for i := range m.rules {
		if strings.Contains(cypher, m.rules[i].contains) {
			r := m.rules[i]
			rule = &r
			break
		}
	}
	m.mu.Unlock()

	if rule == nil {
		return QueryResult{Records: []map[string]any{}}, nil
	}
	if rule.delay > 0 {
		select {
		case <-time.After(rule.delay):
		case <-ctx.Done():
			return QueryResult{}, types.WrapRetryableError(ErrCodeGraphQueryTimeout, "query cancelled", ctx.Err())
		}
	}
	if rule.err != nil {
		return QueryResult{}, rule.err
	}
	return rule.result, nil
}
