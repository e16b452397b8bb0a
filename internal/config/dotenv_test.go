package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDotenv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")

	content := `# comment
AEGIS_DOTENV_A=hello
AEGIS_DOTENV_B="quoted value"
AEGIS_DOTENV_C='single'

not-a-pair
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	t.Setenv("AEGIS_DOTENV_A", "existing")
	os.Unsetenv("AEGIS_DOTENV_B")
	os.Unsetenv("AEGIS_DOTENV_C")
	t.Cleanup(func() {
		os.Unsetenv("AEGIS_DOTENV_B")
		os.Unsetenv("AEGIS_DOTENV_C")
	})

	if err := LoadDotenv(path); err != nil {
		t.Fatalf("LoadDotenv: %v", err)
	}

	// Existing vars are never overridden.
	if got := os.Getenv("AEGIS_DOTENV_A"); got != "existing" {
		t.Errorf("A = %q, want existing", got)
	}
	if got := os.Getenv("AEGIS_DOTENV_B"); got != "quoted value" {
		t.Errorf("B = %q", got)
	}
	if got := os.Getenv("AEGIS_DOTENV_C"); got != "single" {
		t.Errorf("C = %q", got)
	}
}

func TestLoadDotenv_MissingFile(t *testing.T) {
	if err := LoadDotenv(filepath.Join(t.TempDir(), "nope")); err != nil {
		t.Fatalf("missing file should be ignored: %v", err)
	}
}
