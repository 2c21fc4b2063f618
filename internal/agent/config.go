package agent

import (
	"fmt"
	"os"
	"strings"

	"github.com/RobinCoderZhao/weather-agent-suite/pkg/config"
	"github.com/RobinCoderZhao/weather-agent-suite/pkg/llm"
	"github.com/RobinCoderZhao/weather-agent-suite/pkg/mcpclient"
)

// Config holds the agent configuration. Values come from an optional YAML
// file with environment variables taking precedence.
type Config struct {
	Gemini  GeminiConfig  `yaml:"gemini"`
	GitHub  GitHubConfig  `yaml:"github"`
	Weather WeatherConfig `yaml:"weather"`
	History HistoryConfig `yaml:"history"`

	// Servers overrides the default MCP server set when non-empty.
	Servers []mcpclient.ServerConfig `yaml:"servers"`
}

// GeminiConfig configures the Gemini model driving the agent.
type GeminiConfig struct {
	APIKey      string  `yaml:"api_key" env:"GEMINI_API_KEY"`
	Model       string  `yaml:"model" env:"GEMINI_MODEL"`
	Temperature float64 `yaml:"temperature" env:"GEMINI_TEMPERATURE"`
}

// GitHubConfig configures the external GitHub MCP server.
type GitHubConfig struct {
	Token    string `yaml:"token" env:"GITHUB_PERSONAL_ACCESS_TOKEN"`
	Toolsets string `yaml:"toolsets" env:"GITHUB_TOOLSETS"`
	// Image is the container image for the GitHub MCP server.
	Image string `yaml:"image" env:"GITHUB_MCP_IMAGE"`
}

// WeatherConfig carries the OpenWeather key passed down to the weather
// MCP server subprocess.
type WeatherConfig struct {
	APIKey string `yaml:"api_key" env:"OPENWEATHER_API_KEY"`
}

// HistoryConfig configures the SQLite query history.
type HistoryConfig struct {
	Path string `yaml:"path" env:"AGENT_HISTORY_DB"`
}

// DefaultConfig returns a Config with sensible defaults applied.
func DefaultConfig() Config {
	return Config{
		Gemini: GeminiConfig{Model: "gemini-2.5-flash"},
		GitHub: GitHubConfig{
			Toolsets: "repos,issues,pull_requests",
			Image:    "ghcr.io/github/github-mcp-server",
		},
		History: HistoryConfig{Path: "agent_history.db"},
	}
}

// LoadConfig loads the agent config from path (optional) plus environment
// overrides, after reading a .env file if present.
func LoadConfig(path string) (*Config, error) {
	config.LoadDotenv()

	cfg := DefaultConfig()
	if err := config.LoadOrDefault(path, &cfg); err != nil {
		return nil, err
	}
	if cfg.Gemini.Model == "" {
		cfg.Gemini.Model = "gemini-2.5-flash"
	}
	if cfg.GitHub.Toolsets == "" {
		cfg.GitHub.Toolsets = "repos,issues,pull_requests"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that required settings are present.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Gemini.APIKey) == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	return nil
}

// LLMConfig builds the llm.Config for the configured Gemini model.
func (c *Config) LLMConfig() llm.Config {
	cfg := llm.DefaultConfig()
	cfg.APIKey = c.Gemini.APIKey
	cfg.Model = c.Gemini.Model
	cfg.Temperature = c.Gemini.Temperature
	return cfg
}

// ServerConfigs returns the MCP servers to spawn. An explicit Servers list
// in the YAML wins; otherwise the weather server is always included and
// the GitHub server is added when a token is configured.
func (c *Config) ServerConfigs() []mcpclient.ServerConfig {
	if len(c.Servers) > 0 {
		return c.Servers
	}

	weatherCmd := os.Args[0]
	if exe, err := os.Executable(); err == nil {
		weatherCmd = exe
	}

	servers := []mcpclient.ServerConfig{
		{
			Name:    "weather",
			Command: weatherCmd,
			Args:    []string{"weather-serve"},
			Env:     map[string]string{"OPENWEATHER_API_KEY": c.Weather.APIKey},
		},
	}

	if c.GitHub.Token != "" {
		servers = append(servers, mcpclient.ServerConfig{
			Name:    "github",
			Command: "docker",
			Args: []string{
				"run", "-i", "--rm",
				"-e", "GITHUB_PERSONAL_ACCESS_TOKEN",
				"-e", "GITHUB_TOOLSETS",
				c.GitHub.Image,
			},
			Env: map[string]string{
				"GITHUB_PERSONAL_ACCESS_TOKEN": c.GitHub.Token,
				"GITHUB_TOOLSETS":              c.GitHub.Toolsets,
			},
		})
	}
	return servers
}
