// weather-mcp — OpenWeather MCP server and weather CLI
//
// Usage:
//
//	weather-mcp serve              # MCP server over stdio
//	weather-mcp serve --http :8080 # MCP server over HTTP/SSE
//	weather-mcp current <city>     # current weather, directly
//	weather-mcp forecast <city>    # 5-day forecast, directly
//	weather-mcp convert 100 c f    # temperature conversion
//	weather-mcp chart <city>       # render forecast PNG
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/RobinCoderZhao/weather-agent-suite/internal/tools"
	"github.com/RobinCoderZhao/weather-agent-suite/internal/weather"
	"github.com/RobinCoderZhao/weather-agent-suite/pkg/config"
	"github.com/RobinCoderZhao/weather-agent-suite/pkg/mcpserver"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "weather-mcp",
		Short: "OpenWeather MCP server",
		Long:  "Exposes current weather, 5-day forecasts, temperature conversion and forecast charts as MCP tools, over stdio or HTTP.",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(currentCmd())
	rootCmd.AddCommand(forecastCmd())
	rootCmd.AddCommand(convertCmd())
	rootCmd.AddCommand(chartCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

// newLogger writes text logs to stderr for CLI subcommands.
func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// serveLogger writes JSON logs to stderr: stdout belongs to the MCP
// protocol.
func serveLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

func weatherClient() (*weather.Client, error) {
	config.LoadDotenv()
	apiKey := os.Getenv("OPENWEATHER_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENWEATHER_API_KEY environment variable is not set")
	}
	return weather.NewClient(apiKey), nil
}

// NewServer builds the MCP server with the full weather tool set.
func NewServer(client *weather.Client, logger *slog.Logger) *mcpserver.Server {
	srv := mcpserver.New("weather", version, mcpserver.WithLogger(logger))
	srv.Use(mcpserver.RecoveryMiddleware())
	srv.Use(mcpserver.LoggingMiddleware(logger))
	srv.RegisterTools(
		tools.NewCurrentWeatherTool(client, logger),
		tools.NewForecastTool(client, logger),
		tools.NewConvertTemperatureTool(),
		tools.NewForecastChartTool(client, logger),
	)
	return srv
}

func serveCmd() *cobra.Command {
	var httpAddr string
	var authSecret string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server (stdio by default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := serveLogger()
			client, err := weatherClient()
			if err != nil {
				return err
			}
			srv := NewServer(client, logger)

			if httpAddr != "" {
				logger.Info("starting MCP server over HTTP", "addr", httpAddr)
				var opts []mcpserver.HTTPOption
				if authSecret != "" {
					opts = append(opts, mcpserver.WithJWTAuth([]byte(authSecret)))
				}
				return srv.RunHTTP(httpAddr, opts...)
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			logger.Info("starting MCP server over stdio")
			return srv.RunStdio(ctx)
		},
	}

	cmd.Flags().StringVar(&httpAddr, "http", "", "serve over HTTP on this address instead of stdio")
	cmd.Flags().StringVar(&authSecret, "auth-secret", "", "require JWT bearer auth with this HMAC secret (HTTP only)")
	return cmd
}

func currentCmd() *cobra.Command {
	var units string

	cmd := &cobra.Command{
		Use:   "current <city>",
		Short: "Show the current weather for a city",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := weatherClient()
			if err != nil {
				return err
			}
			u, err := weather.ParseUnits(units)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			current, err := client.Current(ctx, args[0], u)
			if err != nil {
				return err
			}
			fmt.Println(weather.FormatCurrent(current))
			return nil
		},
	}

	cmd.Flags().StringVarP(&units, "units", "u", "metric", "unit system: metric or imperial")
	return cmd
}

func forecastCmd() *cobra.Command {
	var units string

	cmd := &cobra.Command{
		Use:   "forecast <city>",
		Short: "Show the 5-day forecast for a city",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := weatherClient()
			if err != nil {
				return err
			}
			u, err := weather.ParseUnits(units)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			forecast, err := client.Forecast(ctx, args[0], u)
			if err != nil {
				return err
			}
			fmt.Println(weather.FormatForecast(forecast))
			return nil
		},
	}

	cmd.Flags().StringVarP(&units, "units", "u", "metric", "unit system: metric or imperial")
	return cmd
}

func convertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "convert <value> <from> <to>",
		Short: "Convert a temperature between celsius, fahrenheit and kelvin",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("invalid temperature value: %s", args[0])
			}
			from, err := weather.ParseTempUnit(args[1])
			if err != nil {
				return err
			}
			to, err := weather.ParseTempUnit(args[2])
			if err != nil {
				return err
			}

			result := weather.ConvertTemp(value, from, to)
			fmt.Printf("🌡️  %v%s = %.2f%s\n", value, from.Symbol(), result, to.Symbol())
			return nil
		},
	}
}

func chartCmd() *cobra.Command {
	var units string
	var out string

	cmd := &cobra.Command{
		Use:   "chart <city>",
		Short: "Render the 5-day forecast as a PNG line chart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			client, err := weatherClient()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()

			tool := tools.NewForecastChartTool(client, logger)
			result, err := tool.Execute(ctx, map[string]any{
				"city":        args[0],
				"units":       units,
				"output_path": out,
			})
			if err != nil {
				return err
			}
			if result.IsError {
				return fmt.Errorf("%s", result.Text())
			}
			fmt.Printf("📈 %s\n", result.Text())
			return nil
		},
	}

	cmd.Flags().StringVarP(&units, "units", "u", "metric", "unit system: metric or imperial")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output PNG path")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("weather-mcp %s\n", version)
		},
	}
}
