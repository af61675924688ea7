package routing

import (
	"context"
	"sync"
)

// Mock implements Client for tests.
type Mock struct {
	// GetRouteFunc and CompareRoutesFunc handle requests when set.
	GetRouteFunc      func(ctx context.Context, req Request) (*Route, error)
	CompareRoutesFunc func(ctx context.Context, req Request) (*Comparison, error)

	mu       sync.Mutex
	requests []Request
}

var _ Client = (*Mock)(nil)

func (m *Mock) GetRoute(ctx context.Context, req Request) (*Route, error) {
	m.record(req)
	if m.GetRouteFunc != nil {
		return m.GetRouteFunc(ctx, req)
	}
	return buildRoute([][]float64{
		{req.Start.Lat, req.Start.Lng},
		{req.End.Lat, req.End.Lng},
	}, req.TravelMode)
}

func (m *Mock) CompareRoutes(ctx context.Context, req Request) (*Comparison, error) {
	m.record(req)
	if m.CompareRoutesFunc != nil {
		return m.CompareRoutesFunc(ctx, req)
	}
	route, err := buildRoute([][]float64{
		{req.Start.Lat, req.Start.Lng},
		{req.End.Lat, req.End.Lng},
	}, req.TravelMode)
	if err != nil {
		return nil, err
	}
	return &Comparison{Fastest: *route, Safest: *route}, nil
}

// Requests returns every request received, in order.
func (m *Mock) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

func (m *Mock) record(req Request) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
}
