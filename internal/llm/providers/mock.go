package providers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/zero-day-ai/cortex/internal/llm"
	"github.com/zero-day-ai/cortex/internal/types"
)

// Responder computes a mock reply from the request.
type Responder func(req llm.CompletionRequest) (string, error)

// MockProvider is a scripted provider for tests and offline runs.
// Replies cycle through the configured responses unless a Responder is set.
type MockProvider struct {
	mu        sync.Mutex
	name      string
	responses []string
	index     int
	responder Responder
	delay     func(req llm.CompletionRequest) time.Duration
	failAfter int
	calls     []llm.CompletionRequest
}

// NewMockProvider creates a provider named "mock" that cycles through responses.
func NewMockProvider(responses ...string) *MockProvider {
	if len(responses) == 0 {
		responses = []string{"Mock response"}
	}
	return &MockProvider{name: "mock", responses: responses, failAfter: -1}
}

// NewMockProviderFunc builds a mock whose replies come from fn.
func NewMockProviderFunc(name string, fn Responder) *MockProvider {
	return &MockProvider{name: name, responder: fn, failAfter: -1}
}

// WithDelay delays each reply by d(req) before the first chunk.
func (p *MockProvider) WithDelay(d func(req llm.CompletionRequest) time.Duration) *MockProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.delay = d
	return p
}

// FailStreamAfter makes Stream fail once at most n chunks have been delivered.
func (p *MockProvider) FailStreamAfter(n int) *MockProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failAfter = n
	return p
}

func (p *MockProvider) Name() string { return p.name }

// Calls returns every request received, in order.
func (p *MockProvider) Calls() []llm.CompletionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]llm.CompletionRequest, len(p.calls))
	copy(out, p.calls)
	return out
}

func (p *MockProvider) next(req llm.CompletionRequest) (string, time.Duration, int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls = append(p.calls, req)

	var delay time.Duration
	if p.delay != nil {
		delay = p.delay(req)
	}
	if p.responder != nil {
		reply, err := p.responder(req)
		return reply, delay, p.failAfter, err
	}
	reply := p.responses[p.index%len(p.responses)]
	p.index++
	return reply, delay, p.failAfter, nil
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *MockProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	reply, delay, _, err := p.next(req)
	if err != nil {
		return nil, err
	}
	if err := wait(ctx, delay); err != nil {
		return nil, llm.TranslateError(p.name, err)
	}
	return &llm.CompletionResponse{
		ID:           newResponseID(),
		Model:        req.Model,
		Content:      reply,
		FinishReason: llm.FinishReasonStop,
	}, nil
}

// Stream emits the reply in five-byte chunks.
func (p *MockProvider) Stream(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
	reply, delay, failAfter, err := p.next(req)
	if err != nil {
		return nil, err
	}

	chunks := make(chan llm.StreamChunk, 10)
	go func() {
		defer close(chunks)

		if err := wait(ctx, delay); err != nil {
			return
		}

		dropped := llm.StreamChunk{
			FinishReason: llm.FinishReasonError,
			Error:        types.NewRetryableError(llm.ErrProviderUnavailable, fmt.Sprintf("%s stream dropped", p.name)),
		}

		sent := 0
		for i := 0; i < len(reply); i += 5 {
			if failAfter >= 0 && sent >= failAfter {
				chunks <- dropped
				return
			}
			end := min(i+5, len(reply))
			select {
			case chunks <- llm.StreamChunk{Delta: llm.StreamDelta{Content: reply[i:end]}}:
				sent++
			case <-ctx.Done():
				return
			}
		}
		if failAfter >= 0 {
			chunks <- dropped
			return
		}
		select {
		case chunks <- llm.StreamChunk{FinishReason: llm.FinishReasonStop}:
		case <-ctx.Done():
		}
	}()
	return chunks, nil
}

func (p *MockProvider) Health(ctx context.Context) types.HealthStatus {
	return types.Healthy("mock provider")
}
