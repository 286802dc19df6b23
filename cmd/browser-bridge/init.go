// ABOUTME: The init subcommand writes a starter config with a fresh JWT secret
// ABOUTME: Refuses to overwrite an existing file unless --force is given

package main

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/browser-bridge/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with a random JWT secret",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = os.Getenv(config.EnvConfigPath)
		}
		if path == "" {
			path = config.DefaultPath()
		}
		if path == "" {
			return errors.New("cannot determine a config path; pass --config")
		}
		return runInit(path, initForce)
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")
}

const configTemplate = `# browser-bridge configuration
# Generated by browser-bridge init

server:
  http_addr: %q
  agent_path: %q
  mcp_path: %q

agent:
  heartbeat_interval: "30s"
  idle_timeout: "90s"
  write_timeout: "10s"
  # allowed_origins:
  #   - "chrome-extension://<extension-id>"

tools:
  call_timeout: "15s"
  # disabled: ["take_screenshot"]

auth:
  jwt_secret: %q

tailscale:
  enabled: false
  hostname: "browser-bridge"

logging:
  level: "info"
  format: "text"
`

func runInit(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("checking config file: %w", err)
	}

	secretBytes := make([]byte, 32)
	if _, err := rand.Read(secretBytes); err != nil {
		return fmt.Errorf("generating JWT secret: %w", err)
	}
	secret := base64.StdEncoding.EncodeToString(secretBytes)

	content := fmt.Sprintf(configTemplate,
		config.DefaultHTTPAddr, config.DefaultAgentPath, config.DefaultMCPPath, secret)

	// Round-trip through the parser so a template mistake never ships a broken file.
	if _, err := config.Parse([]byte(content), config.FormatYAML); err != nil {
		return fmt.Errorf("generated config is invalid: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Printf("  ✓ Created config: %s\n", path)
	fmt.Println()
	yellow.Println("  Next:")
	fmt.Println("    browser-bridge token my-client   # mint an MCP bearer token")
	fmt.Println("    browser-bridge serve             # start the bridge")
	fmt.Println()
	return nil
}
