package weather

import (
	"fmt"
	"strings"
)

// TempUnit is a temperature scale for the conversion tool.
type TempUnit string

const (
	Celsius    TempUnit = "celsius"
	Fahrenheit TempUnit = "fahrenheit"
	Kelvin     TempUnit = "kelvin"
)

// ParseTempUnit accepts full names and single-letter aliases,
// case-insensitively.
func ParseTempUnit(s string) (TempUnit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "celsius", "c":
		return Celsius, nil
	case "fahrenheit", "f":
		return Fahrenheit, nil
	case "kelvin", "k":
		return Kelvin, nil
	default:
		return "", fmt.Errorf("units must be 'celsius'/'c', 'fahrenheit'/'f', or 'kelvin'/'k', got %q", s)
	}
}

// Symbol returns the display suffix for the unit.
func (u TempUnit) Symbol() string {
	switch u {
	case Celsius:
		return "°C"
	case Fahrenheit:
		return "°F"
	default:
		return "K"
	}
}

// ConvertTemp converts a temperature between scales, pivoting through
// Celsius.
func ConvertTemp(value float64, from, to TempUnit) float64 {
	if from == to {
		return value
	}

	var celsius float64
	switch from {
	case Celsius:
		celsius = value
	case Fahrenheit:
		celsius = (value - 32) * 5 / 9
	case Kelvin:
		celsius = value - 273.15
	}

	switch to {
	case Celsius:
		return celsius
	case Fahrenheit:
		return celsius*9/5 + 32
	default:
		return celsius + 273.15
	}
}
