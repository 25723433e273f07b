// Package api serves the latest health snapshot as JSON for the dashboard.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rbpanama/idbhealth/internal/contract"
	"github.com/rbpanama/idbhealth/schema"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// Assessor runs one assessment and returns its snapshot.
type Assessor func(ctx context.Context) (schema.HealthSnapshot, error)

// ErrRefreshInProgress is returned when a refresh is requested while another one runs.
var ErrRefreshInProgress = errors.New("a refresh is already in progress")

// ErrNoSnapshot is returned when no assessment has completed yet.
var ErrNoSnapshot = errors.New("no snapshot available yet")

// ServerConfig holds configuration for the server.
type ServerConfig struct {
	Assess          Assessor
	Logger          zerolog.Logger
	RefreshInterval time.Duration

	// RefreshLimit is the number of manual refreshes allowed per client per minute.
	RefreshLimit int

	// BreakerTimeout is how long the breaker stays open after repeated connectivity failures.
	BreakerTimeout time.Duration

	// RefreshTimeout bounds a manual refresh, which outlives the request that started it.
	RefreshTimeout time.Duration
}

// Server holds the latest snapshot and refreshes it periodically.
type Server struct {
	assess          Assessor
	logger          zerolog.Logger
	refreshInterval time.Duration
	refreshLimit    int
	refreshTimeout  time.Duration
	breaker         *gobreaker.CircuitBreaker[schema.HealthSnapshot]

	refreshMu sync.Mutex // Held while an assessment runs

	mu          sync.RWMutex // Protects the fields below
	snapshot    *schema.HealthSnapshot
	lastErr     error
	lastAttempt time.Time
}

// NewServer creates a server. No assessment runs until Refresh or Run is called.
func NewServer(cfg ServerConfig) *Server {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = contract.DefaultRefreshInterval
	}
	if cfg.RefreshLimit <= 0 {
		cfg.RefreshLimit = 2
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = 5 * time.Minute
	}
	if cfg.RefreshTimeout <= 0 {
		cfg.RefreshTimeout = 15 * time.Minute
	}

	s := &Server{
		assess:          cfg.Assess,
		logger:          cfg.Logger,
		refreshInterval: cfg.RefreshInterval,
		refreshLimit:    cfg.RefreshLimit,
		refreshTimeout:  cfg.RefreshTimeout,
	}
	s.breaker = gobreaker.NewCircuitBreaker[schema.HealthSnapshot](gobreaker.Settings{
		Name:        "warehouse",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		// Only an unreachable warehouse counts against the breaker
		IsSuccessful: func(err error) bool {
			return err == nil || !contract.IsConnectivity(err) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})
	return s
}

// Snapshot returns the latest snapshot.
func (s *Server) Snapshot() (schema.HealthSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot == nil {
		if s.lastErr != nil {
			return schema.HealthSnapshot{}, fmt.Errorf("%w: last attempt failed: %v", ErrNoSnapshot, s.lastErr)
		}
		return schema.HealthSnapshot{}, ErrNoSnapshot
	}
	return *s.snapshot, nil
}

// Refresh runs one assessment through the circuit breaker and stores the result.
// A failed refresh keeps the previous snapshot. A refresh cut short by the
// cancellation of ctx is not recorded as a failure.
func (s *Server) Refresh(ctx context.Context) (schema.HealthSnapshot, error) {
	if !s.refreshMu.TryLock() {
		return schema.HealthSnapshot{}, ErrRefreshInProgress
	}
	defer s.refreshMu.Unlock()

	snapshot, err := s.breaker.Execute(func() (schema.HealthSnapshot, error) {
		return s.assess(ctx)
	})
	if err != nil && errors.Is(err, context.Canceled) && ctx.Err() != nil {
		s.logger.Debug().Err(err).Msg("refresh cancelled")
		return schema.HealthSnapshot{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAttempt = time.Now().UTC()
	s.lastErr = err
	if err != nil {
		s.logger.Error().Err(err).Msg("refresh failed")
		return schema.HealthSnapshot{}, err
	}
	s.snapshot = &snapshot
	s.logger.Info().Str("snapshot", snapshot.ID).Int("warnings", snapshot.Summary.Warnings).Msg("snapshot refreshed")
	return snapshot, nil
}

// Run refreshes immediately and then on every interval until ctx is cancelled.
func (s *Server) Run(ctx context.Context) {
	ticker := time.NewTicker(s.refreshInterval)
	defer ticker.Stop()

	for {
		if _, err := s.Refresh(ctx); err != nil && !errors.Is(err, ErrRefreshInProgress) {
			s.logger.Debug().Dur("next_in", s.refreshInterval).Msg("waiting for next refresh")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// ListenAndServe serves the API on addr and refreshes in the background.
// It shuts down gracefully when ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("serving health API")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

// status reports the state the health endpoint exposes.
func (s *Server) status() (snapshot *schema.HealthSnapshot, lastErr error, lastAttempt time.Time, breaker gobreaker.State) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot, s.lastErr, s.lastAttempt, s.breaker.State()
}
