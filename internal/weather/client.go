// Package weather implements the OpenWeather API client used by the MCP tools.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const defaultBaseURL = "https://api.openweathermap.org/data/2.5"

var (
	ErrMissingAPIKey = errors.New("OPENWEATHER_API_KEY not configured")
	ErrInvalidAPIKey = errors.New("invalid API key")
	ErrCityNotFound  = errors.New("city not found")
	ErrRateLimited   = errors.New("rate limit exceeded")
	ErrUpstream      = errors.New("upstream API error")
)

// Units selects the measurement system for API responses.
type Units string

const (
	UnitsMetric   Units = "metric"
	UnitsImperial Units = "imperial"
)

// ParseUnits validates a units string. Empty defaults to metric.
func ParseUnits(s string) (Units, error) {
	switch Units(s) {
	case "", UnitsMetric:
		return UnitsMetric, nil
	case UnitsImperial:
		return UnitsImperial, nil
	default:
		return "", fmt.Errorf("units must be 'metric' (Celsius) or 'imperial' (Fahrenheit), got %q", s)
	}
}

// TempSymbol returns the temperature suffix for the unit system.
func (u Units) TempSymbol() string {
	if u == UnitsImperial {
		return "°F"
	}
	return "°C"
}

// SpeedSymbol returns the wind speed suffix for the unit system.
func (u Units) SpeedSymbol() string {
	if u == UnitsImperial {
		return "mph"
	}
	return "m/s"
}

// Client calls the OpenWeather REST API. Each method issues exactly one
// HTTP request; upstream failures surface as typed errors with no retry.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the API base URL (used by tests).
func WithBaseURL(base string) ClientOption {
	return func(c *Client) { c.baseURL = base }
}

// WithTimeout overrides the HTTP timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.http.Timeout = d }
}

// NewClient creates an OpenWeather client. The key is not validated here;
// a missing key is reported on first use so the MCP server can still start
// and describe its tools.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Current is a current-conditions reading.
type Current struct {
	City        string
	Country     string
	Temp        float64
	FeelsLike   float64
	TempMin     float64
	TempMax     float64
	Description string
	Humidity    int
	Pressure    int
	WindSpeed   float64
	Cloudiness  int
	Units       Units
}

// ForecastSlot is a single 3-hour forecast entry.
type ForecastSlot struct {
	Time        time.Time
	Temp        float64
	Description string
}

// Forecast is a 5-day forecast in 3-hour steps.
type Forecast struct {
	City    string
	Country string
	Slots   []ForecastSlot
	Units   Units
}

type currentResponse struct {
	Name string `json:"name"`
	Sys  struct {
		Country string `json:"country"`
	} `json:"sys"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		TempMin   float64 `json:"temp_min"`
		TempMax   float64 `json:"temp_max"`
		Humidity  int     `json:"humidity"`
		Pressure  int     `json:"pressure"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Clouds struct {
		All int `json:"all"`
	} `json:"clouds"`
}

type forecastResponse struct {
	City struct {
		Name    string `json:"name"`
		Country string `json:"country"`
	} `json:"city"`
	List []struct {
		Dt   int64 `json:"dt"`
		Main struct {
			Temp float64 `json:"temp"`
		} `json:"main"`
		Weather []struct {
			Description string `json:"description"`
		} `json:"weather"`
	} `json:"list"`
}

// Current fetches current conditions for a city.
func (c *Client) Current(ctx context.Context, city string, units Units) (*Current, error) {
	var raw currentResponse
	if err := c.get(ctx, "/weather", city, units, &raw); err != nil {
		return nil, err
	}

	out := &Current{
		City:       raw.Name,
		Country:    raw.Sys.Country,
		Temp:       raw.Main.Temp,
		FeelsLike:  raw.Main.FeelsLike,
		TempMin:    raw.Main.TempMin,
		TempMax:    raw.Main.TempMax,
		Humidity:   raw.Main.Humidity,
		Pressure:   raw.Main.Pressure,
		WindSpeed:  raw.Wind.Speed,
		Cloudiness: raw.Clouds.All,
		Units:      units,
	}
	if len(raw.Weather) > 0 {
		out.Description = raw.Weather[0].Description
	}
	return out, nil
}

// Forecast fetches the 5-day / 3-hour forecast for a city.
func (c *Client) Forecast(ctx context.Context, city string, units Units) (*Forecast, error) {
	var raw forecastResponse
	if err := c.get(ctx, "/forecast", city, units, &raw); err != nil {
		return nil, err
	}

	out := &Forecast{
		City:    raw.City.Name,
		Country: raw.City.Country,
		Units:   units,
	}
	for _, item := range raw.List {
		slot := ForecastSlot{
			Time: time.Unix(item.Dt, 0),
			Temp: item.Main.Temp,
		}
		if len(item.Weather) > 0 {
			slot.Description = item.Weather[0].Description
		}
		out.Slots = append(out.Slots, slot)
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path, city string, units Units, out any) error {
	if c.apiKey == "" {
		return ErrMissingAPIKey
	}

	query := url.Values{}
	query.Set("q", city)
	query.Set("appid", c.apiKey)
	query.Set("units", string(units))

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, query.Encode())

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrCityNotFound, city)
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: check your OPENWEATHER_API_KEY", ErrInvalidAPIKey)
	case http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}
