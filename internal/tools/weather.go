// Package tools contains the MCP tool handlers exposed by the weather server.
package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/RobinCoderZhao/weather-agent-suite/internal/weather"
	"github.com/RobinCoderZhao/weather-agent-suite/pkg/mcpserver"
)

// CurrentWeatherRequest is the input for get_current_weather.
type CurrentWeatherRequest struct {
	City  string `json:"city" jsonschema:"title=City,description=City name"`
	Units string `json:"units,omitempty" jsonschema:"title=Units,description=Unit system: 'metric' (Celsius) or 'imperial' (Fahrenheit),default=metric"`
}

// ForecastRequest is the input for get_forecast.
type ForecastRequest struct {
	City  string `json:"city" jsonschema:"title=City,description=City name"`
	Units string `json:"units,omitempty" jsonschema:"title=Units,description=Unit system: 'metric' (Celsius) or 'imperial' (Fahrenheit),default=metric"`
}

// CurrentWeatherTool fetches and formats current conditions for a city.
type CurrentWeatherTool struct {
	mcpserver.BaseTool
	client *weather.Client
	logger *slog.Logger
}

func NewCurrentWeatherTool(client *weather.Client, logger *slog.Logger) *CurrentWeatherTool {
	return &CurrentWeatherTool{
		BaseTool: mcpserver.BaseTool{
			ToolName:        "get_current_weather",
			ToolDescription: "Get current weather for a city using OpenWeather API, supports metric (Celsius) or imperial (Fahrenheit) units.",
			ToolSchema:      mcpserver.SchemaFor((*CurrentWeatherRequest)(nil)),
		},
		client: client,
		logger: logger,
	}
}

func (t *CurrentWeatherTool) Execute(ctx context.Context, args map[string]any) (*mcpserver.ToolCallResult, error) {
	city, units, err := cityAndUnits(args)
	if err != nil {
		return mcpserver.ErrorResult(err), nil
	}

	t.logger.Info("getting current weather", "city", city, "units", units)

	cur, err := t.client.Current(ctx, city, units)
	if err != nil {
		return mcpserver.ErrorResult(err), nil
	}
	return mcpserver.TextResult(weather.FormatCurrent(cur)), nil
}

// ForecastTool fetches and formats the 5-day forecast for a city.
type ForecastTool struct {
	mcpserver.BaseTool
	client *weather.Client
	logger *slog.Logger
}

func NewForecastTool(client *weather.Client, logger *slog.Logger) *ForecastTool {
	return &ForecastTool{
		BaseTool: mcpserver.BaseTool{
			ToolName:        "get_forecast",
			ToolDescription: "Get 5-day weather forecast for a city with 3-hour intervals, supports metric (Celsius) or imperial (Fahrenheit) units.",
			ToolSchema:      mcpserver.SchemaFor((*ForecastRequest)(nil)),
		},
		client: client,
		logger: logger,
	}
}

func (t *ForecastTool) Execute(ctx context.Context, args map[string]any) (*mcpserver.ToolCallResult, error) {
	city, units, err := cityAndUnits(args)
	if err != nil {
		return mcpserver.ErrorResult(err), nil
	}

	t.logger.Info("getting forecast", "city", city, "units", units)

	f, err := t.client.Forecast(ctx, city, units)
	if err != nil {
		return mcpserver.ErrorResult(err), nil
	}
	return mcpserver.TextResult(weather.FormatForecast(f)), nil
}

// cityAndUnits pulls the shared city/units arguments out of a tool call.
func cityAndUnits(args map[string]any) (string, weather.Units, error) {
	city, _ := args["city"].(string)
	if strings.TrimSpace(city) == "" {
		return "", "", fmt.Errorf("city name is required")
	}

	unitsArg, _ := args["units"].(string)
	units, err := weather.ParseUnits(unitsArg)
	if err != nil {
		return "", "", err
	}
	return city, units, nil
}
