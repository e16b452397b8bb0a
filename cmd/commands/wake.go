package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/aegisworks/aegis/internal/config"
)

// NewWakeCommand returns the onboarding subcommand.
func NewWakeCommand() *cli.Command {
	return &cli.Command{
		Name:   "wake",
		Usage:  "Initialize the Aegis home directory (~/.aegis)",
		Action: runWake,
	}
}

func runWake(_ context.Context, _ *cli.Command) error {
	root := config.AegisPath()
	created := false

	// Ensure directories exist.
	dirs := []string{
		root,
		filepath.Join(root, "logs"),
		filepath.Join(root, "missions"),
	}
	for _, d := range dirs {
		if _, err := os.Stat(d); err != nil {
			if err := os.MkdirAll(d, 0o755); err != nil {
				return fmt.Errorf("create dir %s: %w", d, err)
			}
			fmt.Printf("  Created %s\n", d)
			created = true
		}
	}

	// Write default config if missing.
	configPath := config.ConfigPath()
	if _, err := os.Stat(configPath); err != nil {
		if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Printf("  Created %s\n", configPath)
		created = true
	}

	// Write default .env if missing.
	dotenvPath := config.DotenvPath()
	if _, err := os.Stat(dotenvPath); err != nil {
		if err := os.WriteFile(dotenvPath, []byte(defaultDotenv), 0o600); err != nil {
			return fmt.Errorf("write .env: %w", err)
		}
		fmt.Printf("  Created %s\n", dotenvPath)
		created = true
	}

	if !created {
		fmt.Printf("Already initialized — %s is complete. Nothing to do.\n", root)
		return nil
	}

	fmt.Println(wakeMessage(root))
	return nil
}

const defaultConfig = `{
	// Aegis Configuration

	"gateway": {
		"host": "127.0.0.1",
		"port": 18700
	},

	"models": {
		"capable": "pro",
		"fast": "flash",
		"providers": {
			"pro": {
				"driver": "gemini",
				"model": "gemini-3-pro-preview",
				"options": {
					"thinking_budget": 0
				}
			},
			"flash": {
				"driver": "gemini",
				"model": "gemini-3-flash-preview"
			}

			// Local model via Ollama (no auth required)
			// "local": {
			// 	"driver": "ollama",
			// 	"model": "llama3.1:8b",
			// 	"base_url": "http://localhost:11434",
			// 	"max_tokens": 4096
			// }
		}
	},

	"pipeline": {
		"max_retries": 2,
		"score_threshold": 100
	},

	"vault": {
		// "db": "/path/to/vault.db"
	},

	"events": {
		"buffer_size": 1024
	}

	// Recurring mission templates
	// "schedules": [
	// 	{
	// 		"cron": "0 6 * * *",
	// 		"prompt": "Summarize overnight telemetry",
	// 		"modality": "TEXT"
	// 	}
	// ]
}
`

const defaultDotenv = `# Aegis environment variables
# This file is loaded automatically. Existing env vars are never overridden.

# GEMINI_API_KEY=...
# OPENAI_API_KEY=sk-...
`

func wakeMessage(root string) string {
	return fmt.Sprintf(`
  Aegis is ready.

  Home set up at %s
  Config, logs, missions — all in there.

  Next steps:
    1. Drop your API key in %s/.env
    2. Tweak %s/config.jsonc if you feel like it
    3. Run: aegis daemon

  Submit your first mission with: aegis submit "directive"
`, root, root, root)
}
