package models

import (
	"context"
	"errors"
	"testing"

	"github.com/aegisworks/aegis/internal/capability"
	"github.com/aegisworks/aegis/internal/config"
)

func TestRegistryUnknownProvider(t *testing.T) {
	r := NewRegistry(config.ModelsConfig{})
	if _, err := r.Get(context.Background(), "nope"); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestRegistryTierNames(t *testing.T) {
	r := NewRegistry(config.ModelsConfig{
		Capable: "pro",
		Fast:    "flash",
		Providers: map[string]config.ProviderConfig{
			"pro":   {Driver: "gemini", Model: "gemini-3-pro-preview"},
			"flash": {Driver: "gemini", Model: "gemini-3-flash-preview"},
		},
	})

	if got := r.TierName(capability.TierCapable); got != "pro" {
		t.Errorf("capable tier = %q", got)
	}
	if got := r.TierName(capability.TierFast); got != "flash" {
		t.Errorf("fast tier = %q", got)
	}
}

func TestRegistryMissingTier(t *testing.T) {
	r := NewRegistry(config.ModelsConfig{})
	if _, err := r.ForTier(context.Background(), capability.TierCapable); err == nil {
		t.Fatal("expected error for unconfigured tier")
	}
}

func TestCreateModelUnknownDriver(t *testing.T) {
	_, err := CreateModel(context.Background(), config.ProviderConfig{Driver: "carrier-pigeon"})
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestResolveAuthConfigKey(t *testing.T) {
	auth, err := ResolveAuth(config.ProviderConfig{
		Driver: "gemini",
		Auth:   config.AuthConfig{APIKey: "direct-key"},
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if auth.Value != "direct-key" {
		t.Errorf("value = %q", auth.Value)
	}
}

func TestResolveAuthEnvIndirection(t *testing.T) {
	t.Setenv("AEGIS_MODELS_TEST_KEY", "from-env")
	auth, err := ResolveAuth(config.ProviderConfig{
		Driver: "gemini",
		Auth:   config.AuthConfig{APIKey: "${AEGIS_MODELS_TEST_KEY}"},
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if auth.Value != "from-env" {
		t.Errorf("value = %q", auth.Value)
	}
}

func TestResolveAuthDriverDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "gem")
	auth, err := ResolveAuth(config.ProviderConfig{Driver: "gemini"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if auth.Value != "gem" {
		t.Errorf("value = %q", auth.Value)
	}
}

func TestHandleError(t *testing.T) {
	base := errors.New("HTTP 429: too many requests")
	wrapped := HandleError(base)
	if !errors.Is(wrapped, base) {
		t.Error("wrapped error must keep the cause")
	}
	if wrapped.Error() == base.Error() {
		t.Error("rate limit should be rephrased")
	}

	if HandleError(nil) != nil {
		t.Error("nil must stay nil")
	}
}
