package weather

import (
	"strings"
	"testing"
	"time"
)

func TestFormatCurrent(t *testing.T) {
	out := FormatCurrent(&Current{
		City:        "Pune",
		Country:     "IN",
		Temp:        24.3,
		FeelsLike:   25.1,
		TempMin:     22.0,
		TempMax:     27.5,
		Description: "scattered clouds",
		Humidity:    64,
		Pressure:    1011,
		WindSpeed:   3.6,
		Cloudiness:  40,
		Units:       UnitsMetric,
	})

	for _, want := range []string{
		"Pune, IN",
		"24.3°C",
		"Feels like: 25.1°C",
		"Scattered Clouds",
		"64%",
		"3.6 m/s",
		"1011 hPa",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestFormatCurrent_Imperial(t *testing.T) {
	out := FormatCurrent(&Current{
		City: "Boston", Country: "US", Temp: 75.2, Units: UnitsImperial, WindSpeed: 8.1,
	})
	if !strings.Contains(out, "75.2°F") {
		t.Fatalf("expected imperial temperature, got:\n%s", out)
	}
	if !strings.Contains(out, "8.1 mph") {
		t.Fatalf("expected mph wind speed, got:\n%s", out)
	}
}

func TestFormatForecast(t *testing.T) {
	base := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	f := &Forecast{
		City:    "Pune",
		Country: "IN",
		Units:   UnitsMetric,
		Slots: []ForecastSlot{
			{Time: base, Temp: 21.0, Description: "clear sky"},
			{Time: base.Add(3 * time.Hour), Temp: 24.5, Description: "few clouds"},
			{Time: base.Add(24 * time.Hour), Temp: 20.2, Description: "light rain"},
		},
	}

	out := FormatForecast(f)

	if !strings.Contains(out, "5-Day Forecast for Pune, IN") {
		t.Fatalf("missing header:\n%s", out)
	}
	// Two distinct day headers.
	if strings.Count(out, "📆") != 2 {
		t.Fatalf("expected 2 day headers:\n%s", out)
	}
	if !strings.Contains(out, "09:00: 21.0°C - Clear Sky") {
		t.Fatalf("missing first slot:\n%s", out)
	}
}

func TestFormatForecast_Empty(t *testing.T) {
	out := FormatForecast(&Forecast{City: "Pune", Units: UnitsMetric})
	if out != "No forecast data available" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestTitle(t *testing.T) {
	if got := title("scattered clouds"); got != "Scattered Clouds" {
		t.Fatalf("got %q", got)
	}
	if got := title(""); got != "" {
		t.Fatalf("got %q", got)
	}
}
