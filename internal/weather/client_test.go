package weather

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

const currentBody = `{
	"name": "Pune",
	"sys": {"country": "IN"},
	"main": {"temp": 24.3, "feels_like": 25.1, "temp_min": 22.0, "temp_max": 27.5, "humidity": 64, "pressure": 1011},
	"weather": [{"description": "scattered clouds"}],
	"wind": {"speed": 3.6},
	"clouds": {"all": 40}
}`

const forecastBody = `{
	"city": {"name": "Pune", "country": "IN"},
	"list": [
		{"dt": 1735732800, "main": {"temp": 21.0}, "weather": [{"description": "clear sky"}]},
		{"dt": 1735743600, "main": {"temp": 24.5}, "weather": [{"description": "few clouds"}]},
		{"dt": 1735819200, "main": {"temp": 20.2}, "weather": [{"description": "light rain"}]}
	]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return NewClient("test-key", WithBaseURL(ts.URL))
}

func TestClient_Current(t *testing.T) {
	var gotPath, gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Encode()
		w.Write([]byte(currentBody))
	})

	cur, err := c.Current(context.Background(), "Pune", UnitsMetric)
	if err != nil {
		t.Fatal(err)
	}

	if gotPath != "/weather" {
		t.Fatalf("expected /weather, got %s", gotPath)
	}
	if gotQuery != "appid=test-key&q=Pune&units=metric" {
		t.Fatalf("unexpected query: %s", gotQuery)
	}

	if cur.City != "Pune" || cur.Country != "IN" {
		t.Fatalf("unexpected location: %s, %s", cur.City, cur.Country)
	}
	if cur.Temp != 24.3 {
		t.Fatalf("unexpected temp: %v", cur.Temp)
	}
	if cur.Description != "scattered clouds" {
		t.Fatalf("unexpected description: %s", cur.Description)
	}
	if cur.Humidity != 64 || cur.Pressure != 1011 || cur.Cloudiness != 40 {
		t.Fatalf("unexpected reading: %+v", cur)
	}
}

func TestClient_Forecast(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/forecast" {
			t.Errorf("expected /forecast, got %s", r.URL.Path)
		}
		w.Write([]byte(forecastBody))
	})

	f, err := c.Forecast(context.Background(), "Pune", UnitsMetric)
	if err != nil {
		t.Fatal(err)
	}
	if f.City != "Pune" {
		t.Fatalf("unexpected city: %s", f.City)
	}
	if len(f.Slots) != 3 {
		t.Fatalf("expected 3 slots, got %d", len(f.Slots))
	}
	if f.Slots[0].Temp != 21.0 || f.Slots[0].Description != "clear sky" {
		t.Fatalf("unexpected first slot: %+v", f.Slots[0])
	}
}

func TestClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		status  int
		wantErr error
	}{
		{http.StatusNotFound, ErrCityNotFound},
		{http.StatusUnauthorized, ErrInvalidAPIKey},
		{http.StatusTooManyRequests, ErrRateLimited},
		{http.StatusInternalServerError, ErrUpstream},
	}

	for _, tt := range tests {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		})
		_, err := c.Current(context.Background(), "Nowhere", UnitsMetric)
		if !errors.Is(err, tt.wantErr) {
			t.Fatalf("status %d: expected %v, got %v", tt.status, tt.wantErr, err)
		}
	}
}

func TestClient_MissingAPIKey(t *testing.T) {
	c := NewClient("")
	_, err := c.Current(context.Background(), "Pune", UnitsMetric)
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestParseUnits(t *testing.T) {
	if u, err := ParseUnits(""); err != nil || u != UnitsMetric {
		t.Fatalf("expected metric default, got %v %v", u, err)
	}
	if u, err := ParseUnits("imperial"); err != nil || u != UnitsImperial {
		t.Fatalf("expected imperial, got %v %v", u, err)
	}
	if _, err := ParseUnits("kelvin"); err == nil {
		t.Fatal("expected error for unsupported units")
	}
}
