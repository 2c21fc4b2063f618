package tools

import (
	"context"
	"fmt"
	"image/color"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/fogleman/gg"

	"github.com/RobinCoderZhao/weather-agent-suite/internal/weather"
	"github.com/RobinCoderZhao/weather-agent-suite/pkg/mcpserver"
)

// ForecastChartRequest is the input for render_forecast_chart.
type ForecastChartRequest struct {
	City       string `json:"city" jsonschema:"title=City,description=City name"`
	Units      string `json:"units,omitempty" jsonschema:"title=Units,description=Unit system: 'metric' (Celsius) or 'imperial' (Fahrenheit),default=metric"`
	OutputPath string `json:"output_path,omitempty" jsonschema:"title=Output path,description=Where to write the PNG. Defaults to the system temp directory."`
}

// ForecastChartTool renders the 5-day temperature series for a city as a
// PNG line chart and returns the file path.
type ForecastChartTool struct {
	mcpserver.BaseTool
	client *weather.Client
	logger *slog.Logger
}

func NewForecastChartTool(client *weather.Client, logger *slog.Logger) *ForecastChartTool {
	return &ForecastChartTool{
		BaseTool: mcpserver.BaseTool{
			ToolName:        "render_forecast_chart",
			ToolDescription: "Render the 5-day temperature forecast for a city as a PNG line chart and return the file path.",
			ToolSchema:      mcpserver.SchemaFor((*ForecastChartRequest)(nil)),
		},
		client: client,
		logger: logger,
	}
}

func (t *ForecastChartTool) Execute(ctx context.Context, args map[string]any) (*mcpserver.ToolCallResult, error) {
	city, units, err := cityAndUnits(args)
	if err != nil {
		return mcpserver.ErrorResult(err), nil
	}

	outputPath, _ := args["output_path"].(string)
	if outputPath == "" {
		name := strings.ToLower(strings.ReplaceAll(city, " ", "_"))
		outputPath = filepath.Join(os.TempDir(), fmt.Sprintf("forecast_%s.png", name))
	}

	t.logger.Info("rendering forecast chart", "city", city, "units", units, "path", outputPath)

	f, err := t.client.Forecast(ctx, city, units)
	if err != nil {
		return mcpserver.ErrorResult(err), nil
	}
	if len(f.Slots) == 0 {
		return mcpserver.ErrorResult(fmt.Errorf("no forecast data available for %s", city)), nil
	}

	if err := renderChart(f, outputPath); err != nil {
		return mcpserver.ErrorResult(fmt.Errorf("render chart: %w", err)), nil
	}

	return mcpserver.TextResult(fmt.Sprintf("Forecast chart for %s, %s written to %s", f.City, f.Country, outputPath)), nil
}

const (
	chartWidth   = 1200.0
	chartHeight  = 600.0
	chartPadding = 70.0
)

// renderChart draws the temperature polyline with day boundaries.
func renderChart(f *weather.Forecast, outputPath string) error {
	dc := gg.NewContext(int(chartWidth), int(chartHeight))

	// Background
	dc.SetColor(color.RGBA{15, 15, 36, 255})
	dc.Clear()

	minTemp, maxTemp := math.Inf(1), math.Inf(-1)
	for _, s := range f.Slots {
		minTemp = math.Min(minTemp, s.Temp)
		maxTemp = math.Max(maxTemp, s.Temp)
	}
	// Avoid a flat line collapsing the y-range.
	if maxTemp-minTemp < 1 {
		maxTemp = minTemp + 1
	}

	plotW := chartWidth - 2*chartPadding
	plotH := chartHeight - 2*chartPadding

	xAt := func(i int) float64 {
		if len(f.Slots) == 1 {
			return chartPadding
		}
		return chartPadding + plotW*float64(i)/float64(len(f.Slots)-1)
	}
	yAt := func(temp float64) float64 {
		return chartPadding + plotH*(1-(temp-minTemp)/(maxTemp-minTemp))
	}

	// Axes
	dc.SetColor(color.RGBA{90, 90, 120, 255})
	dc.SetLineWidth(1)
	dc.DrawLine(chartPadding, chartPadding, chartPadding, chartHeight-chartPadding)
	dc.DrawLine(chartPadding, chartHeight-chartPadding, chartWidth-chartPadding, chartHeight-chartPadding)
	dc.Stroke()

	// Day boundaries and labels
	currentDate := ""
	for i, s := range f.Slots {
		dateStr := s.Time.Format("2006-01-02")
		if dateStr == currentDate {
			continue
		}
		currentDate = dateStr
		x := xAt(i)
		dc.SetColor(color.RGBA{60, 60, 90, 255})
		dc.DrawLine(x, chartPadding, x, chartHeight-chartPadding)
		dc.Stroke()
		dc.SetColor(color.RGBA{170, 170, 200, 255})
		dc.DrawStringAnchored(s.Time.Format("Mon 01/02"), x, chartHeight-chartPadding+20, 0, 0.5)
	}

	// Temperature scale marks
	dc.SetColor(color.RGBA{170, 170, 200, 255})
	for _, temp := range []float64{minTemp, (minTemp + maxTemp) / 2, maxTemp} {
		dc.DrawStringAnchored(fmt.Sprintf("%.1f%s", temp, f.Units.TempSymbol()),
			chartPadding-10, yAt(temp), 1, 0.5)
	}

	// Temperature polyline
	dc.SetColor(color.RGBA{80, 200, 255, 255})
	dc.SetLineWidth(2)
	for i := 1; i < len(f.Slots); i++ {
		dc.DrawLine(xAt(i-1), yAt(f.Slots[i-1].Temp), xAt(i), yAt(f.Slots[i].Temp))
	}
	dc.Stroke()

	// Data points
	for i, s := range f.Slots {
		dc.DrawCircle(xAt(i), yAt(s.Temp), 3)
		dc.Fill()
	}

	// Title
	dc.SetColor(color.White)
	dc.DrawStringAnchored(fmt.Sprintf("5-Day Forecast - %s, %s", f.City, f.Country),
		chartWidth/2, chartPadding/2, 0.5, 0.5)

	return dc.SavePNG(outputPath)
}
