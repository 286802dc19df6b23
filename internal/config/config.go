// ABOUTME: Configuration loading and parsing for browser-bridge
// ABOUTME: Supports YAML or TOML files with environment variable expansion and duration parsing

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable holding an explicit config path.
const EnvConfigPath = "BROWSER_BRIDGE_CONFIG"

// Config represents the complete browser-bridge configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Agent     AgentConfig     `yaml:"agent" toml:"agent"`
	Tools     ToolsConfig     `yaml:"tools" toml:"tools"`
	Auth      AuthConfig      `yaml:"auth" toml:"auth"`
	Tailscale TailscaleConfig `yaml:"tailscale" toml:"tailscale"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
}

// ServerConfig holds listener addresses and endpoint paths
type ServerConfig struct {
	HTTPAddr  string `yaml:"http_addr" toml:"http_addr"`
	AgentPath string `yaml:"agent_path" toml:"agent_path"`
	MCPPath   string `yaml:"mcp_path" toml:"mcp_path"`
}

// AgentConfig holds websocket timing for the browser agent link
type AgentConfig struct {
	HeartbeatInterval time.Duration `yaml:"-" toml:"-"`
	IdleTimeout       time.Duration `yaml:"-" toml:"-"`
	WriteTimeout      time.Duration `yaml:"-" toml:"-"`

	// AllowedOrigins restricts websocket upgrades by Origin header. Empty allows all.
	AllowedOrigins []string `yaml:"allowed_origins" toml:"allowed_origins"`

	// Raw string values for unmarshaling
	HeartbeatIntervalRaw string `yaml:"heartbeat_interval" toml:"heartbeat_interval"`
	IdleTimeoutRaw       string `yaml:"idle_timeout" toml:"idle_timeout"`
	WriteTimeoutRaw      string `yaml:"write_timeout" toml:"write_timeout"`
}

// ToolsConfig holds tool call settings
type ToolsConfig struct {
	CallTimeout    time.Duration `yaml:"-" toml:"-"`
	CallTimeoutRaw string        `yaml:"call_timeout" toml:"call_timeout"`

	// Disabled lists tool names removed from the catalog.
	Disabled []string `yaml:"disabled" toml:"disabled"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" toml:"jwt_secret"`
}

// TailscaleConfig holds Tailscale tsnet configuration
type TailscaleConfig struct {
	Enabled   bool   `yaml:"enabled" toml:"enabled"`
	Hostname  string `yaml:"hostname" toml:"hostname"`
	AuthKey   string `yaml:"auth_key" toml:"auth_key"`
	StateDir  string `yaml:"state_dir" toml:"state_dir"`
	Ephemeral bool   `yaml:"ephemeral" toml:"ephemeral"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Defaults
const (
	DefaultHTTPAddr          = "127.0.0.1:8765"
	DefaultAgentPath         = "/agent"
	DefaultMCPPath           = "/mcp"
	DefaultHeartbeatInterval = 30 * time.Second
	DefaultIdleTimeout       = 90 * time.Second
	DefaultWriteTimeout      = 10 * time.Second
	DefaultCallTimeout       = 15 * time.Second
)

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are parsed as TOML; anything else is YAML.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data, formatFor(path))
}

// Format is a config file syntax.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

func formatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// Parse decodes data in the given format, then applies defaults and validates.
func Parse(data []byte, format Format) (*Config, error) {
	expanded := expandEnvVars(string(data))

	var cfg Config
	switch format {
	case FormatTOML:
		if _, err := toml.Decode(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	default:
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Resolve finds and loads the configuration. An explicit path wins, then
// $BROWSER_BRIDGE_CONFIG, then the user config directory. A missing default
// file yields Default(); a missing explicit file is an error.
func Resolve(explicit string) (*Config, string, error) {
	if explicit == "" {
		explicit = os.Getenv(EnvConfigPath)
	}
	if explicit != "" {
		cfg, err := Load(explicit)
		return cfg, explicit, err
	}

	path := DefaultPath()
	if path == "" {
		return Default(), "", nil
	}
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), "", nil
	}
	return cfg, path, err
}

// DefaultPath returns $XDG_CONFIG_HOME/browser-bridge/config.yaml, or "" when
// no user config directory can be determined.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "browser-bridge", "config.yaml")
}

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envPattern.FindStringSubmatch(match)[1])
	})
}

func (c *Config) applyDefaults() {
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = DefaultHTTPAddr
	}
	if c.Server.AgentPath == "" {
		c.Server.AgentPath = DefaultAgentPath
	}
	if c.Server.MCPPath == "" {
		c.Server.MCPPath = DefaultMCPPath
	}
	if c.Agent.HeartbeatInterval == 0 {
		c.Agent.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.Agent.IdleTimeout == 0 {
		c.Agent.IdleTimeout = DefaultIdleTimeout
	}
	if c.Agent.WriteTimeout == 0 {
		c.Agent.WriteTimeout = DefaultWriteTimeout
	}
	if c.Tools.CallTimeout == 0 {
		c.Tools.CallTimeout = DefaultCallTimeout
	}
	if c.Tailscale.Hostname == "" {
		c.Tailscale.Hostname = "browser-bridge"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate checks that all configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if !c.Tailscale.Enabled && c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required (or enable tailscale)")
	}

	for name, p := range map[string]string{"server.agent_path": c.Server.AgentPath, "server.mcp_path": c.Server.MCPPath} {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("%s must start with /", name)
		}
	}
	if c.Server.AgentPath == c.Server.MCPPath {
		return fmt.Errorf("server.agent_path and server.mcp_path must differ")
	}

	if c.Agent.HeartbeatInterval < 0 || c.Agent.IdleTimeout < 0 || c.Agent.WriteTimeout < 0 {
		return fmt.Errorf("agent durations must not be negative")
	}
	if c.Agent.IdleTimeout <= c.Agent.HeartbeatInterval {
		return fmt.Errorf("agent.idle_timeout (%s) must exceed agent.heartbeat_interval (%s)",
			c.Agent.IdleTimeout, c.Agent.HeartbeatInterval)
	}
	if c.Tools.CallTimeout < 0 {
		return fmt.Errorf("tools.call_timeout must not be negative")
	}

	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format %q is not one of text, json", c.Logging.Format)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"agent.heartbeat_interval", cfg.Agent.HeartbeatIntervalRaw, &cfg.Agent.HeartbeatInterval},
		{"agent.idle_timeout", cfg.Agent.IdleTimeoutRaw, &cfg.Agent.IdleTimeout},
		{"agent.write_timeout", cfg.Agent.WriteTimeoutRaw, &cfg.Agent.WriteTimeout},
		{"tools.call_timeout", cfg.Tools.CallTimeoutRaw, &cfg.Tools.CallTimeout},
	}

	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}
	return nil
}
