package config

import "time"

// Config is the root configuration for Aegis.
type Config struct {
	Gateway   GatewayConfig    `json:"gateway"`
	Models    ModelsConfig     `json:"models"`
	Pipeline  PipelineConfig   `json:"pipeline"`
	Vault     VaultConfig      `json:"vault"`
	Events    EventsConfig     `json:"events"`
	Schedules []ScheduleConfig `json:"schedules,omitempty"`
}

// GatewayConfig holds the gateway server settings.
type GatewayConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// ModelsConfig holds model provider configuration.
// Capable and Fast name the providers backing the two execution tiers.
type ModelsConfig struct {
	Capable   string                    `json:"capable"`
	Fast      string                    `json:"fast"`
	Providers map[string]ProviderConfig `json:"providers"`
}

// ProviderConfig configures a single LLM provider.
type ProviderConfig struct {
	Driver    string         `json:"driver"` // "gemini", "openai", "ollama"
	Model     string         `json:"model"`
	BaseURL   string         `json:"base_url,omitempty"`
	Auth      AuthConfig     `json:"auth"`
	MaxTokens int            `json:"max_tokens,omitempty"`
	Timeout   Duration       `json:"timeout,omitempty"`
	Options   map[string]any `json:"options,omitempty"`
}

// AuthConfig configures API key resolution.
type AuthConfig struct {
	APIKey string `json:"api_key,omitempty"` // direct key or ${{ .Env.VAR }} template
}

// PipelineConfig holds the mission pipeline policy knobs.
type PipelineConfig struct {
	// MaxRetries bounds how many times a run may start from the Control
	// stage before the mission fails terminally. Observed deployments use
	// 2 and 50; this is policy, not a constant.
	MaxRetries int `json:"max_retries"`
	// ScoreThreshold is the audit acceptance cut-off. A run whose audit
	// score falls below it soft-fails and restarts. 100 means only a
	// perfect verification passes.
	ScoreThreshold int      `json:"score_threshold"`
	TickInterval   Duration `json:"tick_interval,omitempty"`
}

// VaultConfig holds artifact vault settings.
type VaultConfig struct {
	DB string `json:"db,omitempty"` // SQLite path; empty disables persistence
}

// EventsConfig holds event bus settings.
type EventsConfig struct {
	BufferSize int `json:"buffer_size"`
}

// ScheduleConfig describes a recurring mission template.
type ScheduleConfig struct {
	Cron        string `json:"cron,omitempty"`
	IntervalSec int    `json:"interval_sec,omitempty"`
	Prompt      string `json:"prompt"`
	Modality    string `json:"modality"`
	CooldownSec int    `json:"cooldown_sec,omitempty"`
}

// Duration wraps time.Duration for JSON unmarshaling.
type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}
