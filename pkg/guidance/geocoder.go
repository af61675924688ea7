package guidance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/safepath/buddy/internal/httpc"
	"github.com/safepath/buddy/pkg/geo"
)

// HTTPGeocoder resolves street names against a Nominatim-compatible
// reverse-geocoding endpoint (GET /reverse?format=jsonv2&lat=..&lon=..).
type HTTPGeocoder struct {
	baseURL string
	client  *http.Client
}

var _ Geocoder = (*HTTPGeocoder)(nil)

// NewHTTPGeocoder creates a geocoder for the given service root.
func NewHTTPGeocoder(baseURL string, timeout time.Duration) *HTTPGeocoder {
	if timeout <= 0 {
		timeout = httpc.DefaultTimeout
	}
	return &HTTPGeocoder{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  httpc.NewClient(timeout),
	}
}

// StreetName looks up the named way nearest to p. An address without any
// street-like component resolves to an empty name, not an error.
func (g *HTTPGeocoder) StreetName(ctx context.Context, p geo.Point) (string, error) {
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", fmt.Sprintf("%.6f", p.Lat))
	q.Set("lon", fmt.Sprintf("%.6f", p.Lng))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		g.baseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("guidance: create reverse request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("guidance: reverse geocode: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("guidance: reverse geocode: HTTP %d", resp.StatusCode)
	}

	var reply struct {
		Address struct {
			Road       string `json:"road"`
			Pedestrian string `json:"pedestrian"`
			Footway    string `json:"footway"`
			Cycleway   string `json:"cycleway"`
		} `json:"address"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return "", fmt.Errorf("guidance: decode reverse reply: %w", err)
	}

	for _, name := range []string{
		reply.Address.Road,
		reply.Address.Pedestrian,
		reply.Address.Footway,
		reply.Address.Cycleway,
	} {
		if name != "" {
			return name, nil
		}
	}
	return "", nil
}
