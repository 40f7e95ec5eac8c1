package narrative

import (
	"context"
	"log"
	"time"

	"fundamentals-lab/internal/domain"
	"fundamentals-lab/internal/observability"
)

// ServiceOptions contains configuration for creating a Service.
type ServiceOptions struct {
	// Provider may be nil; Annotate then always returns nil.
	Provider Provider
	// Timeout bounds one generation call. Default: 20s.
	Timeout time.Duration
	Logger  *log.Logger
}

// Service wraps a Provider with degrade-to-absent semantics: the narrative
// is cosmetic, so a missing provider, a timeout, or any provider error
// yields nil commentary, never a failed response.
type Service struct {
	provider Provider
	timeout  time.Duration
	logger   *log.Logger
}

// NewService creates a narrative service.
func NewService(opts ServiceOptions) *Service {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Service{
		provider: opts.Provider,
		timeout:  timeout,
		logger:   logger,
	}
}

// Enabled reports whether a provider is configured.
func (s *Service) Enabled() bool {
	return s.provider != nil
}

// Annotate generates commentary for computed analytics. Always called
// after the deterministic computation completes; returns nil on any
// failure.
func (s *Service) Annotate(ctx context.Context, req Request) *domain.Narrative {
	if s.provider == nil {
		return nil
	}

	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	n, err := s.provider.Generate(genCtx, req)
	if err != nil {
		observability.RecordNarrative("error", time.Since(start).Seconds())
		s.logger.Printf("narrative for %s:%s degraded to absent: %v", req.Exchange, req.Ticker, err)
		return nil
	}

	observability.RecordNarrative("success", time.Since(start).Seconds())
	return n
}
