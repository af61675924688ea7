package routing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/safepath/buddy/internal/httpc"
	"github.com/safepath/buddy/internal/log"
)

// HTTPClient implements Client against the backend's routing endpoints.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a routing client for the given backend API root.
func NewHTTPClient(baseURL string, timeout time.Duration) (*HTTPClient, error) {
	if baseURL == "" {
		return nil, ErrNoBaseURL
	}
	if timeout <= 0 {
		timeout = httpc.DefaultTimeout
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  httpc.NewClient(timeout),
	}, nil
}

// wireRequest is the backend's route query payload.
type wireRequest struct {
	Start      []float64 `json:"start"`
	End        []float64 `json:"end"`
	Beta       float64   `json:"beta,omitempty"`
	Hour       int       `json:"hour,omitempty"`
	IsWeekend  bool      `json:"is_weekend,omitempty"`
	TravelMode string    `json:"travel_mode,omitempty"`
}

func toWire(req Request) wireRequest {
	return wireRequest{
		Start:      []float64{req.Start.Lat, req.Start.Lng},
		End:        []float64{req.End.Lat, req.End.Lng},
		Beta:       req.Beta,
		Hour:       req.Hour,
		IsWeekend:  req.IsWeekend,
		TravelMode: req.TravelMode,
	}
}

// GetRoute fetches a single route from POST /get-route.
func (c *HTTPClient) GetRoute(ctx context.Context, req Request) (*Route, error) {
	var reply struct {
		Status  string      `json:"status"`
		Route   [][]float64 `json:"route"`
		Message string      `json:"message"`
	}
	if err := c.post(ctx, "/get-route", toWire(req), &reply); err != nil {
		return nil, err
	}
	if reply.Status != "success" {
		return nil, fmt.Errorf("routing: backend error: %s", reply.Message)
	}

	route, err := buildRoute(reply.Route, req.TravelMode)
	if err != nil {
		return nil, err
	}
	log.Debug("route fetched",
		"points", len(route.Path),
		"distance_m", route.Distance,
		"mode", route.TravelMode,
	)
	return route, nil
}

// CompareRoutes fetches both options from POST /compare-routes.
func (c *HTTPClient) CompareRoutes(ctx context.Context, req Request) (*Comparison, error) {
	var reply struct {
		Status string `json:"status"`
		Data   struct {
			FastestRoute [][]float64 `json:"fastest_route"`
			SafestRoute  [][]float64 `json:"safest_route"`
			Metrics      Metrics     `json:"metrics"`
		} `json:"data"`
		Message string `json:"message"`
	}
	if err := c.post(ctx, "/compare-routes", toWire(req), &reply); err != nil {
		return nil, err
	}
	if reply.Status != "success" {
		return nil, fmt.Errorf("routing: backend error: %s", reply.Message)
	}

	fastest, err := buildRoute(reply.Data.FastestRoute, req.TravelMode)
	if err != nil {
		return nil, fmt.Errorf("routing: fastest route: %w", err)
	}
	safest, err := buildRoute(reply.Data.SafestRoute, req.TravelMode)
	if err != nil {
		return nil, fmt.Errorf("routing: safest route: %w", err)
	}

	return &Comparison{
		Fastest: *fastest,
		Safest:  *safest,
		Metrics: reply.Data.Metrics,
	}, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("routing: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("routing: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("routing: %s: %w", path, err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("routing: decode %s reply (HTTP %d): %w", path, resp.StatusCode, err)
	}
	return nil
}
