package ai

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/steveyegge/oaiguard/internal/logging"
)

// Supervisor wraps a Client with retries, a circuit breaker, a concurrency
// cap and a rate limit. It is itself a Client and safe for concurrent use.
type Supervisor struct {
	inner          Client
	retry          RetryConfig
	circuitBreaker *CircuitBreaker
	concurrencySem *semaphore.Weighted // nil = unlimited
	limiter        *rate.Limiter       // nil = unlimited
	logger         *slog.Logger

	sleep func(time.Duration) <-chan time.Time
}

// SupervisorConfig holds supervisor configuration
type SupervisorConfig struct {
	Retry              RetryConfig // zero value = DefaultRetryConfig()
	MaxConcurrentCalls int         // 0 = unlimited
	RequestsPerSecond  float64     // 0 = unlimited
	Logger             *slog.Logger
}

// NewSupervisor wraps inner.
func NewSupervisor(inner Client, cfg SupervisorConfig) (*Supervisor, error) {
	if inner == nil {
		return nil, fmt.Errorf("client is required")
	}

	retry := cfg.Retry
	if retry == (RetryConfig{}) {
		retry = DefaultRetryConfig()
	}
	logger := logging.OrDefault(cfg.Logger)

	s := &Supervisor{
		inner:  inner,
		retry:  retry,
		logger: logger,
		sleep:  time.After,
	}
	if retry.CircuitBreakerEnabled {
		s.circuitBreaker = NewCircuitBreaker(retry.FailureThreshold, retry.SuccessThreshold, retry.OpenTimeout)
		s.circuitBreaker.logger = logger
	}
	if cfg.MaxConcurrentCalls > 0 {
		s.concurrencySem = semaphore.NewWeighted(int64(cfg.MaxConcurrentCalls))
	}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.MaxConcurrentCalls
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return s, nil
}

// Infer implements Client.
func (s *Supervisor) Infer(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if s.concurrencySem != nil {
		if err := s.concurrencySem.Acquire(ctx, 1); err != nil {
			return "", fmt.Errorf("failed to acquire inference slot: %w", err)
		}
		defer s.concurrencySem.Release(1)
	}

	var out string
	err := s.retryWithBackoff(ctx, "infer", func(ctx context.Context) error {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		text, err := s.inner.Infer(ctx, systemPrompt, userPrompt)
		if err != nil {
			return err
		}
		out = text
		return nil
	})
	return out, err
}

// CircuitState reports the breaker state, or CircuitClosed when disabled.
func (s *Supervisor) CircuitState() CircuitState {
	if s.circuitBreaker == nil {
		return CircuitClosed
	}
	return s.circuitBreaker.State()
}
