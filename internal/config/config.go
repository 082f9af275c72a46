package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// LLM providers
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Search providers
const (
	SearchTavily = "tavily"
	SearchMCP    = "mcp"
)

// Session backends
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// MCP transport types
const (
	ClientTypeSSE            = "sse"
	ClientTypeStreamableHTTP = "streamable_http"
	ClientTypeStdio          = "stdio"
)

// DefaultSystemPrompt is sent with every model call unless llm.system_prompt overrides it.
const DefaultSystemPrompt = "you can use tools to get more information which you don't have."

// Config holds the application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	LLM     LLMConfig     `mapstructure:"llm"`
	Search  SearchConfig  `mapstructure:"search"`
	Session SessionConfig `mapstructure:"session"`
	Log     LogConfig     `mapstructure:"log"`
}

// ServerConfig holds the HTTP server configuration
type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           string   `mapstructure:"port"`
	CookieName     string   `mapstructure:"cookie_name"`
	CookieSecure   bool     `mapstructure:"cookie_secure"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%s", s.Host, s.Port)
}

// LLMConfig holds the LLM configuration
type LLMConfig struct {
	Provider     string `mapstructure:"provider"`
	BaseURL      string `mapstructure:"base_url"`
	APIKey       string `mapstructure:"api_key"`
	Model        string `mapstructure:"model"`
	SystemPrompt string `mapstructure:"system_prompt"`
}

// SearchConfig holds the web search configuration
type SearchConfig struct {
	Provider    string          `mapstructure:"provider"`
	BaseURL     string          `mapstructure:"base_url"`
	APIKey      string          `mapstructure:"api_key"`
	MaxResults  int             `mapstructure:"max_results"`
	SearchDepth string          `mapstructure:"search_depth"`
	MCP         MCPServerConfig `mapstructure:"mcp"`
}

// MCPServerConfig describes the MCP server exposing the search tool.
type MCPServerConfig struct {
	Name    string            `mapstructure:"name"`
	Type    string            `mapstructure:"type"`
	URL     string            `mapstructure:"url"`
	Command string            `mapstructure:"command"`
	Args    []string          `mapstructure:"args"`
	Env     map[string]string `mapstructure:"env"`
	Headers map[string]string `mapstructure:"headers"`
	Tool    string            `mapstructure:"tool"`
}

// SessionConfig holds the session store configuration
type SessionConfig struct {
	Backend    string        `mapstructure:"backend"`
	TTL        time.Duration `mapstructure:"ttl"`
	RedisURL   string        `mapstructure:"redis_url"`
	SQLitePath string        `mapstructure:"sqlite_path"`
}

// LogConfig holds the logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "3001")
	v.SetDefault("server.cookie_name", "relay_session")
	v.SetDefault("server.cookie_secure", false)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000", "http://localhost:5173"})

	v.SetDefault("llm.provider", ProviderGemini)
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "gemini-2.0-flash")
	v.SetDefault("llm.system_prompt", DefaultSystemPrompt)

	v.SetDefault("search.provider", SearchTavily)
	v.SetDefault("search.base_url", "https://api.tavily.com")
	v.SetDefault("search.api_key", "")
	v.SetDefault("search.max_results", 5)
	v.SetDefault("search.search_depth", "basic")
	v.SetDefault("search.mcp.name", "search")
	v.SetDefault("search.mcp.type", ClientTypeStreamableHTTP)
	v.SetDefault("search.mcp.url", "")
	v.SetDefault("search.mcp.command", "")
	v.SetDefault("search.mcp.tool", "search")

	v.SetDefault("session.backend", BackendMemory)
	v.SetDefault("session.ttl", 24*time.Hour)
	v.SetDefault("session.redis_url", "redis://localhost:6379/0")
	v.SetDefault("session.sqlite_path", ":memory:")

	v.SetDefault("log.level", "info")
}

// Load reads config.yaml (or the file named by CONFIG_PATH) when present and applies
// environment overrides. A missing file is not an error.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Short names used by existing .env files.
	_ = v.BindEnv("server.port", "SERVER_PORT", "PORT")
	_ = v.BindEnv("llm.api_key", "LLM_API_KEY", "GOOGLE_API_KEY")
	_ = v.BindEnv("search.api_key", "SEARCH_API_KEY", "TAVILY_API_KEY")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects provider and backend names nothing can be built from.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("unsupported llm.provider %q", c.LLM.Provider)
	}
	switch c.Search.Provider {
	case SearchTavily:
	case SearchMCP:
		switch c.Search.MCP.Type {
		case ClientTypeSSE, ClientTypeStreamableHTTP, ClientTypeStdio:
		default:
			return fmt.Errorf("unsupported search.mcp.type %q", c.Search.MCP.Type)
		}
	default:
		return fmt.Errorf("unsupported search.provider %q", c.Search.Provider)
	}
	switch c.Session.Backend {
	case BackendMemory, BackendRedis, BackendSQLite:
	default:
		return fmt.Errorf("unsupported session.backend %q", c.Session.Backend)
	}
	if c.Server.Port == "" {
		return errors.New("server.port must not be empty")
	}
	return nil
}
