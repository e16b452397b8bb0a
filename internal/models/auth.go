package models

import (
	"fmt"
	"os"
	"strings"

	"github.com/aegisworks/aegis/internal/config"
)

// ResolvedAuth holds resolved provider credentials.
type ResolvedAuth struct {
	Value string
}

// ResolveAuth resolves the credentials for a provider.
// Resolution order: config api_key (with ${VAR} indirection) → driver
// default env var.
func ResolveAuth(cfg config.ProviderConfig) (ResolvedAuth, error) {
	apiKey := strings.TrimSpace(cfg.Auth.APIKey)
	if strings.HasPrefix(apiKey, "${") && strings.HasSuffix(apiKey, "}") {
		apiKey = os.Getenv(apiKey[2 : len(apiKey)-1])
	}
	if apiKey != "" {
		return ResolvedAuth{Value: apiKey}, nil
	}

	switch strings.ToLower(cfg.Driver) {
	case "gemini":
		for _, env := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"} {
			if key := os.Getenv(env); key != "" {
				return ResolvedAuth{Value: key}, nil
			}
		}
		return ResolvedAuth{}, fmt.Errorf("GEMINI_API_KEY not set")
	case "openai":
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			return ResolvedAuth{Value: key}, nil
		}
		return ResolvedAuth{}, fmt.Errorf("OPENAI_API_KEY not set")
	default:
		return ResolvedAuth{}, fmt.Errorf("unknown driver %q: cannot resolve auth", cfg.Driver)
	}
}
