package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/steveyegge/oaiguard/internal/logging"
)

// Client sends one system/user prompt pair to a model and returns its raw text.
// The caller's context carries the deadline.
type Client interface {
	Infer(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// ErrEmptyResponse is returned when a backend answers without any text.
var ErrEmptyResponse = errors.New("model returned an empty response")

// StatusError is an HTTP failure from a backend.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.StatusCode, truncate(e.Body, 300))
}

// Config selects and configures a backend.
type Config struct {
	Engine      string // ollama, openai, anthropic
	Model       string
	BaseURL     string
	APIKey      string
	MaxTokens   int
	Temperature float64
	KeepAlive   string // ollama only; "-1" keeps the model loaded

	HTTPClient *http.Client // optional
	Logger     *slog.Logger // optional
}

// NewClient returns the backend named by cfg.Engine.
func NewClient(cfg Config) (Client, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 256
	}
	cfg.Logger = logging.OrDefault(cfg.Logger)

	switch strings.ToLower(cfg.Engine) {
	case "ollama", "":
		return NewOllamaClient(cfg), nil
	case "openai":
		return NewOpenAIClient(cfg)
	case "anthropic":
		return NewAnthropicClient(cfg)
	default:
		return nil, fmt.Errorf("unknown engine %q", cfg.Engine)
	}
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, systemPrompt, userPrompt string) (string, error)

// Infer calls f.
func (f ClientFunc) Infer(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return f(ctx, systemPrompt, userPrompt)
}
