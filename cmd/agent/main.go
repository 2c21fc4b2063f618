// agent — Gemini-driven assistant over MCP tool servers
//
// Usage:
//
//	agent ask "weather in Pune?"   # answer a query with tools
//	agent tools                    # list the tools the agent sees
//	agent history                  # show recent queries
//	agent version                  # show version
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	agentpkg "github.com/RobinCoderZhao/weather-agent-suite/internal/agent"
	"github.com/RobinCoderZhao/weather-agent-suite/internal/history"
	"github.com/RobinCoderZhao/weather-agent-suite/internal/tools"
	"github.com/RobinCoderZhao/weather-agent-suite/internal/weather"
	"github.com/RobinCoderZhao/weather-agent-suite/pkg/config"
	"github.com/RobinCoderZhao/weather-agent-suite/pkg/mcpserver"
)

var version = "dev"

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "agent",
		Short: "Gemini-driven assistant over MCP tool servers",
		Long:  "Spawns the weather MCP server (and the GitHub MCP server when a token is configured), hands their tools to Gemini, and answers queries by executing the tool calls the model requests.",
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "agent.yaml", "config file path")

	rootCmd.AddCommand(askCmd(&configPath))
	rootCmd.AddCommand(toolsCmd(&configPath))
	rootCmd.AddCommand(historyCmd(&configPath))
	rootCmd.AddCommand(weatherServeCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func connect(ctx context.Context, configPath string) (*agentpkg.Agent, error) {
	cfg, err := agentpkg.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	return agentpkg.New(ctx, cfg, newLogger())
}

func askCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <query>",
		Short: "Answer a query, calling weather and GitHub tools as needed",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			a, err := connect(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			fmt.Println("🤖 Thinking...")
			result, err := a.Ask(ctx, query)
			if err != nil {
				return err
			}

			fmt.Printf("\n%s\n", result.Answer)
			fmt.Printf("\n📊 Tool calls: %d | Tokens: %d in / %d out | Cost: $%.4f\n",
				result.ToolCalls, result.TokensIn, result.TokensOut, result.Cost)
			return nil
		},
	}
}

func toolsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the tools available to the agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			a, err := connect(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			list := a.Tools()
			fmt.Printf("🔧 %d tools available:\n\n", len(list))
			for _, t := range list {
				fmt.Printf("  %s\n      %s\n", t.Name, t.Description)
			}
			return nil
		},
	}
}

func historyCmd(configPath *string) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent queries and their tool calls",
		RunE: func(cmd *cobra.Command, args []string) error {
			config.LoadDotenv()
			cfg := agentpkg.DefaultConfig()
			if err := config.LoadOrDefault(*configPath, &cfg); err != nil {
				return err
			}
			if cfg.History.Path == "" {
				fmt.Println("⚠️  Query history is disabled.")
				return nil
			}

			store, err := history.New(cfg.History.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			queries, err := store.RecentQueries(ctx, limit)
			if err != nil {
				return err
			}
			if len(queries) == 0 {
				fmt.Println("No queries recorded yet.")
				return nil
			}

			for _, q := range queries {
				fmt.Printf("🗨️  [%s] %s\n", q.CreatedAt.Format("2006-01-02 15:04"), q.Query)
				calls, err := store.ToolCallsFor(ctx, q.ID)
				if err != nil {
					return err
				}
				for _, c := range calls {
					status := "✅"
					if c.IsError {
						status = "❌"
					}
					fmt.Printf("    %s %s/%s\n", status, c.Server, c.Tool)
				}
				fmt.Printf("    💬 %s\n", firstLine(q.Response))
				fmt.Printf("    📊 %d in / %d out | $%.4f\n\n", q.TokensIn, q.TokensOut, q.Cost)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of queries to show")
	return cmd
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " …"
	}
	return s
}

// weatherServeCmd runs the bundled weather MCP server over stdio. The
// agent spawns its own binary with this subcommand so a separate
// weather-mcp install is not needed.
func weatherServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "weather-serve",
		Short:  "Run the bundled weather MCP server over stdio",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
			apiKey := os.Getenv("OPENWEATHER_API_KEY")
			if apiKey == "" {
				return fmt.Errorf("OPENWEATHER_API_KEY environment variable is not set")
			}
			client := weather.NewClient(apiKey)

			srv := mcpserver.New("weather", version, mcpserver.WithLogger(logger))
			srv.Use(mcpserver.RecoveryMiddleware())
			srv.RegisterTools(
				tools.NewCurrentWeatherTool(client, logger),
				tools.NewForecastTool(client, logger),
				tools.NewConvertTemperatureTool(),
				tools.NewForecastChartTool(client, logger),
			)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return srv.RunStdio(ctx)
		},
	}
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("agent %s\n", version)
		},
	}
}
