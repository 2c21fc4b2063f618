package weather

import (
	"fmt"
	"strings"
	"unicode"
)

// title uppercases the first letter of each word. OpenWeather descriptions
// come back all-lowercase ("scattered clouds").
func title(s string) string {
	prev := ' '
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(prev) {
			prev = r
			return unicode.ToUpper(r)
		}
		prev = r
		return r
	}, s)
}

// FormatCurrent renders a current-conditions reading as a human-readable
// string.
func FormatCurrent(c *Current) string {
	tempUnit := c.Units.TempSymbol()
	speedUnit := c.Units.SpeedSymbol()

	var b strings.Builder
	fmt.Fprintf(&b, "🌍 **%s, %s**\n\n", c.City, c.Country)
	fmt.Fprintf(&b, "🌡️ **Temperature:** %.1f%s\n", c.Temp, tempUnit)
	fmt.Fprintf(&b, "   Feels like: %.1f%s\n", c.FeelsLike, tempUnit)
	fmt.Fprintf(&b, "   Min: %.1f%s | Max: %.1f%s\n\n", c.TempMin, tempUnit, c.TempMax, tempUnit)
	fmt.Fprintf(&b, "☁️ **Conditions:** %s\n", title(c.Description))
	fmt.Fprintf(&b, "💧 **Humidity:** %d%%\n", c.Humidity)
	fmt.Fprintf(&b, "🌪️ **Wind Speed:** %.1f %s\n", c.WindSpeed, speedUnit)
	fmt.Fprintf(&b, "📊 **Pressure:** %d hPa\n", c.Pressure)
	fmt.Fprintf(&b, "☁️ **Cloudiness:** %d%%", c.Cloudiness)
	return b.String()
}

// FormatForecast renders a 5-day forecast grouped by day.
func FormatForecast(f *Forecast) string {
	if len(f.Slots) == 0 {
		return "No forecast data available"
	}

	tempUnit := f.Units.TempSymbol()

	var b strings.Builder
	fmt.Fprintf(&b, "📅 **5-Day Forecast for %s, %s**\n\n", f.City, f.Country)

	currentDate := ""
	for _, slot := range f.Slots {
		dateStr := slot.Time.Format("2006-01-02")
		if dateStr != currentDate {
			if currentDate != "" {
				b.WriteString("\n")
			}
			fmt.Fprintf(&b, "📆 **%s**\n", slot.Time.Format("Monday, January 02"))
			currentDate = dateStr
		}
		fmt.Fprintf(&b, "  ⏰ %s: %.1f%s - %s\n",
			slot.Time.Format("15:04"), slot.Temp, tempUnit, title(slot.Description))
	}
	return b.String()
}
