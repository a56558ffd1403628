// Package config builds the single immutable configuration value that is
// constructed at startup and handed to every component.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/steveyegge/oaiguard/internal/types"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Inference engines
const (
	EngineOllama    = "ollama"
	EngineOpenAI    = "openai"
	EngineAnthropic = "anthropic"
)

// Default models per engine
const (
	DefaultOllamaModel    = "llama3.2"
	DefaultOpenAIModel    = "gpt-4o"
	DefaultAnthropicModel = "claude-sonnet-4-5-20250929"
)

// DefaultAllowlist holds the command prefixes that may appear in an incident.
var DefaultAllowlist = []string{"systemctl status", "systemctl restart", "journalctl -u", "grep", "tail"}

// Config holds every tunable of the triage engine.
//
// Treat a Config as a value: components receive a copy and never mutate it.
// Use With to derive a modified configuration.
type Config struct {
	// Inference
	Engine           string        `yaml:"engine"`
	Model            string        `yaml:"model"`
	BaseURL          string        `yaml:"base_url"`
	APIKey           string        `yaml:"-"` // never read from or written to files
	InferenceTimeout time.Duration `yaml:"inference_timeout"`
	MaxTokens        int           `yaml:"max_tokens"`
	Temperature      float64       `yaml:"temperature"`
	KeepAlive        string        `yaml:"keep_alive"`

	// MaxConcurrentInference limits in-flight model calls (0 = unlimited)
	MaxConcurrentInference int `yaml:"max_concurrent_inference"`
	// InferenceRPS rate-limits model calls per second (0 = unlimited)
	InferenceRPS float64 `yaml:"inference_rps"`

	// Storage
	IncidentDir      string        `yaml:"incident_dir"`
	HistoryDB        string        `yaml:"history_db"`        // empty = <IncidentDir>/triage_cache.sqlite3
	HistoryRetention time.Duration `yaml:"history_retention"` // 0 = keep forever

	// Log window
	ContextLines int `yaml:"context_lines"`
	Window       int `yaml:"window"`
	TailN        int `yaml:"tail_n"`

	// Triage behaviour
	UseHistory      bool       `yaml:"use_history"`
	UseHeuristics   bool       `yaml:"use_heuristics"`
	FastOnly        bool       `yaml:"fast_only"`
	Mode            types.Mode `yaml:"mode"`
	SkipDiagnostics bool       `yaml:"skip_diagnostics"`
	Auto            bool       `yaml:"auto"`

	// Command policy
	Allowlist      []string         `yaml:"allowlist"`
	AutoPolicy     types.AutoPolicy `yaml:"auto_policy"`
	WhitelistFile  string           `yaml:"whitelist_file"`
	VerifyTimeout  time.Duration    `yaml:"verify_timeout"`
	VerifyInterval time.Duration    `yaml:"verify_interval"`
	CommandTimeout time.Duration    `yaml:"command_timeout"`

	// Process
	Workers     int    `yaml:"workers"`
	LogLevel    string `yaml:"log_level"`
	LogJSON     bool   `yaml:"log_json"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		Engine:                 EngineOllama,
		InferenceTimeout:       120 * time.Second,
		MaxTokens:              256,
		Temperature:            0.2,
		KeepAlive:              "-1",
		MaxConcurrentInference: 3,
		IncidentDir:            "/var/log/oai_incidents",
		ContextLines:           50,
		Window:                 800,
		TailN:                  0,
		UseHistory:             true,
		UseHeuristics:          true,
		Mode:                   types.ModeNone,
		Allowlist:              append([]string(nil), DefaultAllowlist...),
		AutoPolicy:             types.PolicyOAIOnly,
		WhitelistFile:          "/etc/oai-guard-whitelist.txt",
		VerifyTimeout:          20 * time.Second,
		VerifyInterval:         2 * time.Second,
		CommandTimeout:         180 * time.Second,
		Workers:                2,
		LogLevel:               "info",
	}
}

// EffectiveModel returns Model, or the engine's default model when unset.
func (c Config) EffectiveModel() string {
	if c.Model != "" {
		return c.Model
	}
	switch c.Engine {
	case EngineOpenAI:
		return DefaultOpenAIModel
	case EngineAnthropic:
		return DefaultAnthropicModel
	default:
		return DefaultOllamaModel
	}
}

// DefaultOllamaURL is where a local Ollama server listens.
const DefaultOllamaURL = "http://localhost:11434"

// EffectiveBaseURL returns BaseURL, or the local Ollama address for the
// ollama engine. Hosted engines use their SDK default when unset.
func (c Config) EffectiveBaseURL() string {
	if c.BaseURL != "" || c.Engine != EngineOllama {
		return c.BaseURL
	}
	return DefaultOllamaURL
}

// HistoryPath returns the history database location.
func (c Config) HistoryPath() string {
	if c.HistoryDB != "" {
		return c.HistoryDB
	}
	return filepath.Join(c.IncidentDir, "triage_cache.sqlite3")
}

// AllowlistCopy returns a copy of the allowed command prefixes.
func (c Config) AllowlistCopy() []string {
	return append([]string(nil), c.Allowlist...)
}

// Validate checks if the configuration has valid values
func (c Config) Validate() error {
	switch c.Engine {
	case EngineOllama, EngineOpenAI, EngineAnthropic:
	default:
		return fmt.Errorf("%w: engine must be one of ollama, openai, anthropic (got %q)", ErrInvalid, c.Engine)
	}
	if c.InferenceTimeout <= 0 {
		return fmt.Errorf("%w: inference_timeout must be positive (got %v)", ErrInvalid, c.InferenceTimeout)
	}
	if c.MaxTokens < 1 {
		return fmt.Errorf("%w: max_tokens must be at least 1 (got %d)", ErrInvalid, c.MaxTokens)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: temperature must be between 0 and 2 (got %v)", ErrInvalid, c.Temperature)
	}
	if c.MaxConcurrentInference < 0 {
		return fmt.Errorf("%w: max_concurrent_inference cannot be negative (got %d)", ErrInvalid, c.MaxConcurrentInference)
	}
	if c.InferenceRPS < 0 {
		return fmt.Errorf("%w: inference_rps cannot be negative (got %v)", ErrInvalid, c.InferenceRPS)
	}
	if strings.TrimSpace(c.IncidentDir) == "" {
		return fmt.Errorf("%w: incident_dir is required", ErrInvalid)
	}
	if c.HistoryRetention < 0 {
		return fmt.Errorf("%w: history_retention cannot be negative (got %v)", ErrInvalid, c.HistoryRetention)
	}
	if c.ContextLines < 1 {
		return fmt.Errorf("%w: context_lines must be at least 1 (got %d)", ErrInvalid, c.ContextLines)
	}
	if c.Window < 1 {
		return fmt.Errorf("%w: window must be at least 1 (got %d)", ErrInvalid, c.Window)
	}
	if c.TailN < 0 {
		return fmt.Errorf("%w: tail_n cannot be negative (got %d)", ErrInvalid, c.TailN)
	}
	if !c.Mode.IsValid() {
		return fmt.Errorf("%w: mode must be none, verify or augment (got %q)", ErrInvalid, c.Mode)
	}
	// Unknown auto policies are accepted and authorize nothing.
	if c.VerifyInterval <= 0 {
		return fmt.Errorf("%w: verify_interval must be positive (got %v)", ErrInvalid, c.VerifyInterval)
	}
	if c.VerifyTimeout < c.VerifyInterval {
		return fmt.Errorf("%w: verify_timeout (%v) must be >= verify_interval (%v)", ErrInvalid, c.VerifyTimeout, c.VerifyInterval)
	}
	if c.CommandTimeout <= 0 {
		return fmt.Errorf("%w: command_timeout must be positive (got %v)", ErrInvalid, c.CommandTimeout)
	}
	if c.Workers < 1 || c.Workers > 64 {
		return fmt.Errorf("%w: workers must be between 1 and 64 (got %d)", ErrInvalid, c.Workers)
	}
	return nil
}

// String returns a human-readable representation of the config.
// The API key is never included.
func (c Config) String() string {
	return fmt.Sprintf(
		"Config{Engine: %s, Model: %s, History: %t, Heuristics: %t, FastOnly: %t, Mode: %s, "+
			"Auto: %t, AutoPolicy: %s, IncidentDir: %s, HistoryDB: %s}",
		c.Engine, c.EffectiveModel(), c.UseHistory, c.UseHeuristics, c.FastOnly, c.modeOrNone(),
		c.Auto, c.AutoPolicy, c.IncidentDir, c.HistoryPath(),
	)
}

func (c Config) modeOrNone() types.Mode {
	if c.Mode == "" {
		return types.ModeNone
	}
	return c.Mode
}
