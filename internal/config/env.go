package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/steveyegge/oaiguard/internal/types"
)

// FromEnv overlays environment variables onto base.
//
// Environment variables:
//   - OAI_ENGINE: ollama, openai or anthropic (default: ollama)
//   - OAI_MODEL: model name; falls back to OLLAMA_MODEL / OPENAI_MODEL for those engines
//   - OAI_BASE_URL: inference endpoint; falls back to OLLAMA_BASE_URL
//   - OAI_API_KEY: API key; falls back to OPENAI_API_KEY / ANTHROPIC_API_KEY
//   - OAI_TIMEOUT: per-call inference timeout, seconds or Go duration (default: 120s)
//   - OAI_MAX_TOKENS, OAI_TEMPERATURE, KEEP_ALIVE
//   - INCIDENT_DIR, HISTORY_DB, HISTORY_RETENTION
//   - CONTEXT_LINES, WINDOW, TAIL_N
//   - USE_HISTORY, FAST_FIRST, FAST_ONLY, TRIAGE_MODE, SKIP_DIAG, AUTO
//   - ALLOWLIST: comma separated command prefixes
//   - AUTO_POLICY, WHITELIST_FILE, AUTO_VERIFY_TIMEOUT, AUTO_VERIFY_INTERVAL, CMD_TIMEOUT
//   - WORKERS, MAX_CONCURRENT_INFERENCE, INFERENCE_RPS, LOG_LEVEL, LOG_JSON, METRICS_ADDR
//
// Returns an error if any environment variable has an invalid value.
func FromEnv(base Config) (Config, error) {
	cfg := base
	cfg.Allowlist = base.AllowlistCopy()

	if err := parseEnvString("OAI_ENGINE", &cfg.Engine); err != nil {
		return cfg, err
	}
	cfg.Engine = strings.ToLower(strings.TrimSpace(cfg.Engine))

	modelKeys := []string{"OAI_MODEL"}
	urlKeys := []string{"OAI_BASE_URL"}
	keyKeys := []string{"OAI_API_KEY"}
	switch cfg.Engine {
	case EngineOllama:
		modelKeys = append(modelKeys, "OLLAMA_MODEL")
		urlKeys = append(urlKeys, "OLLAMA_BASE_URL")
	case EngineOpenAI:
		modelKeys = append(modelKeys, "OPENAI_MODEL")
		urlKeys = append(urlKeys, "OPENAI_BASE_URL")
		keyKeys = append(keyKeys, "OPENAI_API_KEY")
	case EngineAnthropic:
		modelKeys = append(modelKeys, "ANTHROPIC_MODEL")
		keyKeys = append(keyKeys, "ANTHROPIC_API_KEY")
	}
	firstEnv(modelKeys, &cfg.Model)
	firstEnv(urlKeys, &cfg.BaseURL)
	firstEnv(keyKeys, &cfg.APIKey)
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	steps := []error{
		parseEnvDuration("OAI_TIMEOUT", &cfg.InferenceTimeout),
		parseEnvInt("OAI_MAX_TOKENS", &cfg.MaxTokens),
		parseEnvFloat("OAI_TEMPERATURE", &cfg.Temperature),
		parseEnvString("KEEP_ALIVE", &cfg.KeepAlive),
		parseEnvInt("MAX_CONCURRENT_INFERENCE", &cfg.MaxConcurrentInference),
		parseEnvFloat("INFERENCE_RPS", &cfg.InferenceRPS),
		parseEnvString("INCIDENT_DIR", &cfg.IncidentDir),
		parseEnvString("HISTORY_DB", &cfg.HistoryDB),
		parseEnvDuration("HISTORY_RETENTION", &cfg.HistoryRetention),
		parseEnvInt("CONTEXT_LINES", &cfg.ContextLines),
		parseEnvInt("WINDOW", &cfg.Window),
		parseEnvInt("TAIL_N", &cfg.TailN),
		parseEnvBool("USE_HISTORY", &cfg.UseHistory),
		parseEnvBool("FAST_FIRST", &cfg.UseHeuristics),
		parseEnvBool("FAST_ONLY", &cfg.FastOnly),
		parseEnvBool("SKIP_DIAG", &cfg.SkipDiagnostics),
		parseEnvBool("AUTO", &cfg.Auto),
		parseEnvString("WHITELIST_FILE", &cfg.WhitelistFile),
		parseEnvDuration("AUTO_VERIFY_TIMEOUT", &cfg.VerifyTimeout),
		parseEnvDuration("AUTO_VERIFY_INTERVAL", &cfg.VerifyInterval),
		parseEnvDuration("CMD_TIMEOUT", &cfg.CommandTimeout),
		parseEnvInt("WORKERS", &cfg.Workers),
		parseEnvString("LOG_LEVEL", &cfg.LogLevel),
		parseEnvBool("LOG_JSON", &cfg.LogJSON),
		parseEnvString("METRICS_ADDR", &cfg.MetricsAddr),
	}
	for _, err := range steps {
		if err != nil {
			return cfg, err
		}
	}

	var mode, policy string
	_ = parseEnvString("TRIAGE_MODE", &mode)
	if mode != "" {
		cfg.Mode = types.Mode(strings.ToLower(mode))
	}
	_ = parseEnvString("AUTO_POLICY", &policy)
	if policy != "" {
		cfg.AutoPolicy = types.AutoPolicy(strings.ToLower(policy))
	}
	if raw := os.Getenv("ALLOWLIST"); raw != "" {
		cfg.Allowlist = SplitList(raw)
	}

	return cfg, nil
}

// SplitList splits a comma separated list, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func firstEnv(keys []string, dest *string) {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			*dest = v
			return
		}
	}
}

// parseEnvInt parses an int from an environment variable
func parseEnvInt(key string, dest *int) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvFloat parses a float from an environment variable
func parseEnvFloat(key string, dest *float64) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvBool parses a bool from an environment variable.
// Accepts strconv.ParseBool forms plus yes/no.
func parseEnvBool(key string, dest *bool) error {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch value {
	case "":
		return nil
	case "yes", "y", "on":
		*dest = true
		return nil
	case "no", "n", "off":
		*dest = false
		return nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvString parses a string from an environment variable
func parseEnvString(key string, dest *string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	*dest = value
	return nil
}

// parseEnvDuration accepts a Go duration ("20s") or a bare number of seconds ("20").
func parseEnvDuration(key string, dest *time.Duration) error {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return nil
	}
	d, err := ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = d
	return nil
}

// ParseDuration extends time.ParseDuration with bare seconds and a "d" day suffix.
func ParseDuration(s string) (time.Duration, error) {
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	var days int
	if _, err := fmt.Sscanf(s, "%dd", &days); err == nil && strings.HasSuffix(s, "d") {
		return time.Duration(days) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}
