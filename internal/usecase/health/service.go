// Package health aggregates readiness checks over the service's
// external dependencies.
package health

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/maknoon-cloud/qurandex/internal/db"
	"github.com/maknoon-cloud/qurandex/internal/domain"
)

// Status values reported per component and overall.
const (
	StatusUp       = "up"
	StatusDown     = "down"
	StatusDegraded = "degraded"
)

const checkTimeout = 5 * time.Second

// Report is the aggregated health snapshot.
type Report struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
}

// Service checks the document store and the embedding provider.
// provider may be nil when no health-checkable embedder is configured.
type Service struct {
	store    db.Pinger
	provider domain.HealthChecker
	logger   *zap.Logger
}

// New creates a health service.
func New(store db.Pinger, provider domain.HealthChecker, logger *zap.Logger) *Service {
	return &Service{store: store, provider: provider, logger: logger}
}

// Check probes all components. The store is a hard dependency: if it is
// down the service is down. The embedding provider only degrades health,
// since search falls back to keyword retrieval without it.
func (s *Service) Check(ctx context.Context) Report {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	components := map[string]string{}

	storeStatus := StatusUp
	if err := s.store.Ping(ctx); err != nil {
		s.logger.Warn("Store health check failed", zap.Error(err))
		storeStatus = StatusDown
	}
	components["store"] = storeStatus

	providerStatus := StatusUp
	if s.provider != nil {
		if err := s.provider.HealthCheck(ctx); err != nil {
			s.logger.Warn("Embedding provider health check failed", zap.Error(err))
			providerStatus = StatusDown
		}
		components["embedding_provider"] = providerStatus
	}

	status := StatusUp
	switch {
	case storeStatus == StatusDown:
		status = StatusDown
	case providerStatus == StatusDown:
		status = StatusDegraded
	}

	return Report{Status: status, Components: components}
}
