package guidance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/safepath/buddy/pkg/geo"
)

func reverseServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/reverse" {
			t.Errorf("path = %q, want /reverse", r.URL.Path)
		}
		if got := r.URL.Query().Get("format"); got != "jsonv2" {
			t.Errorf("format = %q, want jsonv2", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
}

func TestHTTPGeocoder_ResolvesRoad(t *testing.T) {
	srv := reverseServer(t, `{"address":{"road":"W 34th St","city":"New York"}}`)
	defer srv.Close()

	gc := NewHTTPGeocoder(srv.URL, 0)
	name, err := gc.StreetName(context.Background(), geo.Point{Lat: 40.75, Lng: -73.99})
	if err != nil {
		t.Fatalf("street name: %v", err)
	}
	if name != "W 34th St" {
		t.Errorf("name = %q, want W 34th St", name)
	}
}

func TestHTTPGeocoder_FallsBackToPedestrianWay(t *testing.T) {
	srv := reverseServer(t, `{"address":{"pedestrian":"High Line"}}`)
	defer srv.Close()

	gc := NewHTTPGeocoder(srv.URL, 0)
	name, err := gc.StreetName(context.Background(), geo.Point{Lat: 40.748, Lng: -74.005})
	if err != nil {
		t.Fatalf("street name: %v", err)
	}
	if name != "High Line" {
		t.Errorf("name = %q, want High Line", name)
	}
}

func TestHTTPGeocoder_NoStreetIsNotAnError(t *testing.T) {
	srv := reverseServer(t, `{"address":{"city":"New York"}}`)
	defer srv.Close()

	gc := NewHTTPGeocoder(srv.URL, 0)
	name, err := gc.StreetName(context.Background(), geo.Point{Lat: 40.75, Lng: -73.99})
	if err != nil {
		t.Fatalf("street name: %v", err)
	}
	if name != "" {
		t.Errorf("name = %q, want empty", name)
	}
}

func TestHTTPGeocoder_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "over quota", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	gc := NewHTTPGeocoder(srv.URL, 0)
	if _, err := gc.StreetName(context.Background(), geo.Point{}); err == nil {
		t.Error("expected error on HTTP 429")
	}
}
