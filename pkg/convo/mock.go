package convo

import (
	"context"
	"sync"
)

// Mock implements Client for tests, replying from a script or a function.
type Mock struct {
	// ChatFunc handles requests when set.
	ChatFunc func(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	mu       sync.Mutex
	script   []*ChatResponse
	requests []*ChatRequest
}

var _ Client = (*Mock)(nil)

// NewMock creates a client that replies with the given responses in order.
// An exhausted script falls back to a plain chat reply.
func NewMock(replies ...*ChatResponse) *Mock {
	return &Mock{script: replies}
}

func (m *Mock) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.ChatFunc != nil {
		return m.ChatFunc(ctx, req)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.script) == 0 {
		return &ChatResponse{Status: StatusChat, Message: "Sure thing."}, nil
	}
	reply := m.script[0]
	m.script = m.script[1:]
	return reply, nil
}

// Requests returns every request received, in order.
func (m *Mock) Requests() []*ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*ChatRequest, len(m.requests))
	copy(out, m.requests)
	return out
}
