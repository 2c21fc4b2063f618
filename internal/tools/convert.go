package tools

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/RobinCoderZhao/weather-agent-suite/internal/weather"
	"github.com/RobinCoderZhao/weather-agent-suite/pkg/mcpserver"
)

// ConvertTemperatureRequest is the input for convert_temperature.
type ConvertTemperatureRequest struct {
	Temperature string `json:"temperature" jsonschema:"title=Temperature,description=Temperature value to convert"`
	FromUnit    string `json:"from_unit" jsonschema:"title=From unit,description=Source unit: celsius/c or fahrenheit/f or kelvin/k"`
	ToUnit      string `json:"to_unit" jsonschema:"title=To unit,description=Target unit: celsius/c or fahrenheit/f or kelvin/k"`
}

// ConvertTemperatureTool converts temperatures between Celsius, Fahrenheit
// and Kelvin. Pure arithmetic, no I/O.
type ConvertTemperatureTool struct {
	mcpserver.BaseTool
}

func NewConvertTemperatureTool() *ConvertTemperatureTool {
	return &ConvertTemperatureTool{
		BaseTool: mcpserver.BaseTool{
			ToolName:        "convert_temperature",
			ToolDescription: "Convert temperature between Celsius, Fahrenheit, and Kelvin units.",
			ToolSchema:      mcpserver.SchemaFor((*ConvertTemperatureRequest)(nil)),
		},
	}
}

func (t *ConvertTemperatureTool) Execute(ctx context.Context, args map[string]any) (*mcpserver.ToolCallResult, error) {
	rawValue, _ := args["temperature"].(string)
	if strings.TrimSpace(rawValue) == "" {
		// Some models send numbers despite the string schema.
		if n, ok := args["temperature"].(float64); ok {
			rawValue = strconv.FormatFloat(n, 'f', -1, 64)
		} else {
			return mcpserver.ErrorResult(fmt.Errorf("temperature value is required")), nil
		}
	}

	fromArg, _ := args["from_unit"].(string)
	toArg, _ := args["to_unit"].(string)
	if strings.TrimSpace(fromArg) == "" || strings.TrimSpace(toArg) == "" {
		return mcpserver.ErrorResult(fmt.Errorf("both from_unit and to_unit are required")), nil
	}

	from, err := weather.ParseTempUnit(fromArg)
	if err != nil {
		return mcpserver.ErrorResult(err), nil
	}
	to, err := weather.ParseTempUnit(toArg)
	if err != nil {
		return mcpserver.ErrorResult(err), nil
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(rawValue), 64)
	if err != nil {
		return mcpserver.ErrorResult(fmt.Errorf("invalid temperature value: %s", rawValue)), nil
	}

	result := weather.ConvertTemp(value, from, to)
	return mcpserver.TextResult(fmt.Sprintf("🌡️ **Temperature Conversion**\n%v%s = %.2f%s",
		value, from.Symbol(), result, to.Symbol())), nil
}
