// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML and TOML loading, env var expansion, defaults, and validation

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoad_ValidYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
server:
  http_addr: "0.0.0.0:9000"
  agent_path: "/ws"
  mcp_path: "/rpc"

agent:
  heartbeat_interval: "10s"
  idle_timeout: "45s"
  write_timeout: "2s"
  allowed_origins:
    - "chrome-extension://abcdef"

tools:
  call_timeout: "20s"
  disabled:
    - take_screenshot

logging:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTPAddr != "0.0.0.0:9000" {
		t.Errorf("Server.HTTPAddr = %q, want %q", cfg.Server.HTTPAddr, "0.0.0.0:9000")
	}
	if cfg.Server.AgentPath != "/ws" || cfg.Server.MCPPath != "/rpc" {
		t.Errorf("paths = %q, %q", cfg.Server.AgentPath, cfg.Server.MCPPath)
	}
	if cfg.Agent.HeartbeatInterval != 10*time.Second {
		t.Errorf("Agent.HeartbeatInterval = %v, want 10s", cfg.Agent.HeartbeatInterval)
	}
	if cfg.Agent.IdleTimeout != 45*time.Second {
		t.Errorf("Agent.IdleTimeout = %v, want 45s", cfg.Agent.IdleTimeout)
	}
	if cfg.Agent.WriteTimeout != 2*time.Second {
		t.Errorf("Agent.WriteTimeout = %v, want 2s", cfg.Agent.WriteTimeout)
	}
	if len(cfg.Agent.AllowedOrigins) != 1 || cfg.Agent.AllowedOrigins[0] != "chrome-extension://abcdef" {
		t.Errorf("Agent.AllowedOrigins = %v", cfg.Agent.AllowedOrigins)
	}
	if cfg.Tools.CallTimeout != 20*time.Second {
		t.Errorf("Tools.CallTimeout = %v, want 20s", cfg.Tools.CallTimeout)
	}
	if len(cfg.Tools.Disabled) != 1 || cfg.Tools.Disabled[0] != "take_screenshot" {
		t.Errorf("Tools.Disabled = %v", cfg.Tools.Disabled)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
}

func TestLoad_ValidTOML(t *testing.T) {
	path := writeConfig(t, "config.toml", `
[server]
http_addr = "127.0.0.1:9100"

[agent]
heartbeat_interval = "5s"
idle_timeout = "20s"

[tools]
call_timeout = "3s"
disabled = ["delete_history_url", "delete_bookmark"]

[tailscale]
enabled = true
hostname = "bridge"
ephemeral = true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTPAddr != "127.0.0.1:9100" {
		t.Errorf("Server.HTTPAddr = %q", cfg.Server.HTTPAddr)
	}
	if cfg.Agent.IdleTimeout != 20*time.Second {
		t.Errorf("Agent.IdleTimeout = %v, want 20s", cfg.Agent.IdleTimeout)
	}
	if cfg.Tools.CallTimeout != 3*time.Second {
		t.Errorf("Tools.CallTimeout = %v, want 3s", cfg.Tools.CallTimeout)
	}
	if len(cfg.Tools.Disabled) != 2 {
		t.Errorf("Tools.Disabled = %v", cfg.Tools.Disabled)
	}
	if !cfg.Tailscale.Enabled || cfg.Tailscale.Hostname != "bridge" || !cfg.Tailscale.Ephemeral {
		t.Errorf("Tailscale = %+v", cfg.Tailscale)
	}
	// Unset sections still get defaults.
	if cfg.Server.MCPPath != DefaultMCPPath {
		t.Errorf("Server.MCPPath = %q, want default", cfg.Server.MCPPath)
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_BRIDGE_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("TEST_BRIDGE_ADDR", "127.0.0.1:7777")

	path := writeConfig(t, "config.yaml", `
server:
  http_addr: "${TEST_BRIDGE_ADDR}"
auth:
  jwt_secret: "${TEST_BRIDGE_SECRET}"
tailscale:
  auth_key: "${TEST_BRIDGE_UNSET_VAR}"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.HTTPAddr != "127.0.0.1:7777" {
		t.Errorf("Server.HTTPAddr = %q", cfg.Server.HTTPAddr)
	}
	if cfg.Auth.JWTSecret != "0123456789abcdef0123456789abcdef" {
		t.Errorf("Auth.JWTSecret = %q", cfg.Auth.JWTSecret)
	}
	if cfg.Tailscale.AuthKey != "" {
		t.Errorf("unset variable should expand to empty, got %q", cfg.Tailscale.AuthKey)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.HTTPAddr != DefaultHTTPAddr {
		t.Errorf("Server.HTTPAddr = %q, want %q", cfg.Server.HTTPAddr, DefaultHTTPAddr)
	}
	if cfg.Server.AgentPath != "/agent" || cfg.Server.MCPPath != "/mcp" {
		t.Errorf("paths = %q, %q", cfg.Server.AgentPath, cfg.Server.MCPPath)
	}
	if cfg.Agent.HeartbeatInterval != 30*time.Second || cfg.Agent.IdleTimeout != 90*time.Second {
		t.Errorf("Agent = %+v", cfg.Agent)
	}
	if cfg.Tools.CallTimeout != 15*time.Second {
		t.Errorf("Tools.CallTimeout = %v, want 15s", cfg.Tools.CallTimeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default().Validate() error = %v", err)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{"invalid yaml", "c.yaml", "server: [unclosed", "parsing config file"},
		{"invalid toml", "c.toml", "[server\nhttp_addr=", "parsing config file"},
		{"bad duration", "c.yaml", "tools:\n  call_timeout: soon\n", "tools.call_timeout"},
		{"relative path", "c.yaml", "server:\n  agent_path: agent\n", "must start with /"},
		{"same paths", "c.yaml", "server:\n  agent_path: /x\n  mcp_path: /x\n", "must differ"},
		{"idle below heartbeat", "c.yaml", "agent:\n  heartbeat_interval: 60s\n  idle_timeout: 30s\n", "idle_timeout"},
		{"short secret", "c.yaml", "auth:\n  jwt_secret: hunter2\n", "jwt_secret"},
		{"bad level", "c.yaml", "logging:\n  level: loud\n", "logging.level"},
		{"bad format", "c.yaml", "logging:\n  format: xml\n", "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.file, tt.content))
			if err == nil {
				t.Fatal("Load() should have returned an error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}

	t.Run("missing file", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
			t.Error("Load() should fail for a missing file")
		}
	})
}

func TestResolve(t *testing.T) {
	t.Run("explicit path wins", func(t *testing.T) {
		path := writeConfig(t, "explicit.yaml", "server:\n  http_addr: \"127.0.0.1:1111\"\n")
		t.Setenv(EnvConfigPath, writeConfig(t, "env.yaml", "server:\n  http_addr: \"127.0.0.1:2222\"\n"))

		cfg, used, err := Resolve(path)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if used != path || cfg.Server.HTTPAddr != "127.0.0.1:1111" {
			t.Errorf("Resolve() used %q with addr %q", used, cfg.Server.HTTPAddr)
		}
	})

	t.Run("environment variable", func(t *testing.T) {
		envPath := writeConfig(t, "env.yaml", "server:\n  http_addr: \"127.0.0.1:2222\"\n")
		t.Setenv(EnvConfigPath, envPath)

		cfg, used, err := Resolve("")
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if used != envPath || cfg.Server.HTTPAddr != "127.0.0.1:2222" {
			t.Errorf("Resolve() used %q with addr %q", used, cfg.Server.HTTPAddr)
		}
	})

	t.Run("user config directory", func(t *testing.T) {
		xdg := t.TempDir()
		t.Setenv(EnvConfigPath, "")
		t.Setenv("XDG_CONFIG_HOME", xdg)
		dir := filepath.Join(xdg, "browser-bridge")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server:\n  http_addr: \"127.0.0.1:3333\"\n"), 0o644); err != nil {
			t.Fatal(err)
		}

		cfg, _, err := Resolve("")
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if cfg.Server.HTTPAddr != "127.0.0.1:3333" {
			t.Errorf("Server.HTTPAddr = %q", cfg.Server.HTTPAddr)
		}
	})

	t.Run("defaults when nothing exists", func(t *testing.T) {
		t.Setenv(EnvConfigPath, "")
		t.Setenv("XDG_CONFIG_HOME", t.TempDir())

		cfg, used, err := Resolve("")
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if used != "" || cfg.Server.HTTPAddr != DefaultHTTPAddr {
			t.Errorf("Resolve() used %q with addr %q", used, cfg.Server.HTTPAddr)
		}
	})

	t.Run("missing explicit file is an error", func(t *testing.T) {
		if _, _, err := Resolve(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
			t.Error("Resolve() should fail for a missing explicit path")
		}
	})
}
