package config

import (
	"os"
	"path/filepath"
)

// AegisPath returns the root directory for Aegis data.
// It uses $AEGIS_PATH if set, otherwise defaults to ~/.aegis.
func AegisPath() string {
	if v := os.Getenv("AEGIS_PATH"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".aegis")
	}
	return filepath.Join(home, ".aegis")
}

// ConfigPath returns the path to the Aegis config file.
func ConfigPath() string {
	return filepath.Join(AegisPath(), "config.jsonc")
}

// DotenvPath returns the path to the Aegis .env file.
func DotenvPath() string {
	return filepath.Join(AegisPath(), ".env")
}
