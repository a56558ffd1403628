package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/steveyegge/oaiguard/internal/logging"
)

// OllamaClient talks to a local Ollama server through /api/generate.
type OllamaClient struct {
	httpClient  *http.Client
	baseURL     string
	model       string
	maxTokens   int
	temperature float64
	keepAlive   any
	logger      *slog.Logger
}

type ollamaGenerateRequest struct {
	Model     string         `json:"model"`
	Prompt    string         `json:"prompt"`
	Stream    bool           `json:"stream"`
	Options   map[string]any `json:"options,omitempty"`
	KeepAlive any            `json:"keep_alive,omitempty"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// NewOllamaClient builds an Ollama client. The HTTP client has no timeout of
// its own; the request context bounds each call.
func NewOllamaClient(cfg Config) *OllamaClient {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	logger := logging.OrDefault(cfg.Logger)
	return &OllamaClient{
		httpClient:  httpClient,
		baseURL:     baseURL,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		keepAlive:   parseKeepAlive(cfg.KeepAlive),
		logger:      logger,
	}
}

// parseKeepAlive sends integers as numbers and durations ("24h") as strings.
func parseKeepAlive(v string) any {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return v
}

// Infer streams the generation and falls back to a single response when the
// server rejects the streaming request with a client error.
func (o *OllamaClient) Infer(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	req := ollamaGenerateRequest{
		Model:  o.model,
		Prompt: buildPrompt(systemPrompt, userPrompt),
		Stream: true,
		Options: map[string]any{
			"num_predict": o.maxTokens,
			"temperature": o.temperature,
		},
		KeepAlive: o.keepAlive,
	}

	text, err := o.generate(ctx, req)
	var se *StatusError
	if err != nil && errors.As(err, &se) && se.StatusCode >= 400 && se.StatusCode < 500 {
		o.logger.Debug("ollama rejected streaming request, retrying without stream", "status", se.StatusCode)
		req.Stream = false
		text, err = o.generate(ctx, req)
	}
	if err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (o *OllamaClient) generate(ctx context.Context, payload ollamaGenerateRequest) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &StatusError{StatusCode: resp.StatusCode, Body: string(b)}
	}

	if !payload.Stream {
		var out ollamaGenerateResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return "", fmt.Errorf("failed to decode response: %w", err)
		}
		if out.Error != "" {
			return "", fmt.Errorf("server error: %s", out.Error)
		}
		return out.Response, nil
	}

	// NDJSON: one chunk per line until done
	var sb strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	chunks := 0
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var chunk ollamaGenerateResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			continue
		}
		if chunk.Error != "" {
			return "", fmt.Errorf("server error: %s", chunk.Error)
		}
		sb.WriteString(chunk.Response)
		chunks++
		if chunk.Done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading stream: %w", err)
	}
	o.logger.Debug("ollama stream complete", "chunks", chunks)
	return sb.String(), nil
}

// buildPrompt flattens the prompt pair for the completion-style endpoint.
func buildPrompt(systemPrompt, userPrompt string) string {
	var sb strings.Builder
	if s := strings.TrimSpace(systemPrompt); s != "" {
		sb.WriteString(s)
		sb.WriteString("\n\n")
	}
	sb.WriteString("You must reply with STRICT JSON only.\n\n")
	sb.WriteString("USER:\n")
	sb.WriteString(strings.TrimSpace(userPrompt))
	return sb.String()
}
