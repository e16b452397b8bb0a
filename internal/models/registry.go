// Package models manages named chat model providers and their drivers.
package models

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloudwego/eino/components/model"

	"github.com/aegisworks/aegis/internal/capability"
	"github.com/aegisworks/aegis/internal/config"
)

// ProviderEntry holds a lazily-initialized model instance.
type ProviderEntry struct {
	Config config.ProviderConfig
	model  model.ToolCallingChatModel
	once   sync.Once
	err    error
}

// Registry manages named model providers with lazy initialization and
// resolves the capable/fast tier aliases.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]*ProviderEntry
	capable   string
	fast      string
}

// NewRegistry creates a model registry from config.
func NewRegistry(cfg config.ModelsConfig) *Registry {
	r := &Registry{
		providers: make(map[string]*ProviderEntry),
		capable:   cfg.Capable,
		fast:      cfg.Fast,
	}
	for name, provCfg := range cfg.Providers {
		r.providers[name] = &ProviderEntry{Config: provCfg}
	}
	return r
}

// Get returns the named model, initializing it lazily.
func (r *Registry) Get(ctx context.Context, name string) (model.ToolCallingChatModel, error) {
	r.mu.RLock()
	entry, ok := r.providers[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("model provider %q not found", name)
	}

	entry.once.Do(func() {
		entry.model, entry.err = CreateModel(ctx, entry.Config)
	})
	return entry.model, entry.err
}

// ForTier resolves a tier alias to its provider.
func (r *Registry) ForTier(ctx context.Context, tier capability.Tier) (model.ToolCallingChatModel, error) {
	name := r.fast
	if tier == capability.TierCapable {
		name = r.capable
	}
	if name == "" {
		return nil, fmt.Errorf("no provider configured for %s tier", tier)
	}
	return r.Get(ctx, name)
}

// TierName returns the provider name behind a tier alias.
func (r *Registry) TierName(tier capability.Tier) string {
	if tier == capability.TierCapable {
		return r.capable
	}
	return r.fast
}

// Model implements capability.ChatProvider.
func (r *Registry) Model(tier capability.Tier) (model.ToolCallingChatModel, error) {
	return r.ForTier(context.Background(), tier)
}

var _ capability.ChatProvider = (*Registry)(nil)
