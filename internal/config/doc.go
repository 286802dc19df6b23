// Package config handles configuration loading for browser-bridge.
//
// # Overview
//
// Configuration is loaded from a YAML or TOML file with environment
// variable expansion. Every field has a default, so the bridge runs with no
// file at all.
//
// # Configuration File
//
// Locations (in order):
//
//  1. Path passed on the command line
//  2. Path from BROWSER_BRIDGE_CONFIG environment variable
//  3. $XDG_CONFIG_HOME/browser-bridge/config.yaml
//
// Files ending in .toml are parsed as TOML; anything else is YAML.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	auth:
//	  jwt_secret: "${BROWSER_BRIDGE_JWT_SECRET}"
//
// Unset variables expand to an empty string.
//
// # Configuration Sections
//
// Server:
//
//	server:
//	  http_addr: "127.0.0.1:8765"
//	  agent_path: "/agent"
//	  mcp_path: "/mcp"
//
// Agent link:
//
//	agent:
//	  heartbeat_interval: "30s"
//	  idle_timeout: "90s"
//	  write_timeout: "10s"
//	  allowed_origins:
//	    - "chrome-extension://<extension-id>"
//
// Tools:
//
//	tools:
//	  call_timeout: "15s"
//	  disabled: [delete_history_url]
//
// Tailscale (serve on the tailnet instead of a local port):
//
//	tailscale:
//	  enabled: true
//	  hostname: "browser-bridge"
//	  auth_key: "${TS_AUTHKEY}"
//	  ephemeral: true
//
// Logging:
//
//	logging:
//	  level: "info"    # debug, info, warn, error
//	  format: "text"   # text, json
//
// # Duration Parsing
//
// Durations are Go duration strings ("30s", "5m", "1h30m").
package config
