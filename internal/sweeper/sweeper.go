// Package sweeper runs the periodic maintenance loop: expiring overdue
// sessions, purging vault entries and orphaned artifacts, and pruning old
// audit records. The three passes are failure-isolated so one failing
// subsystem never starves the others.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	auditUsecase "github.com/allisson/provision/internal/audit/usecase"
	deploymentUsecase "github.com/allisson/provision/internal/deployment/usecase"
	vaultUsecase "github.com/allisson/provision/internal/vault/usecase"
)

// Config holds the sweeper settings.
type Config struct {
	Interval       time.Duration
	AuditRetention time.Duration
}

// Sweeper drives the periodic cleanup passes. Sessions in applying are never
// touched: ListExpired excludes them and the session busy flag covers the
// race window.
type Sweeper struct {
	config   Config
	sessions deploymentUsecase.SessionUseCase
	vault    vaultUsecase.Vault
	audit    auditUsecase.UseCase
	logger   *slog.Logger
}

// New creates a Sweeper.
func New(
	config Config,
	sessions deploymentUsecase.SessionUseCase,
	vault vaultUsecase.Vault,
	audit auditUsecase.UseCase,
	logger *slog.Logger,
) *Sweeper {
	return &Sweeper{
		config:   config,
		sessions: sessions,
		vault:    vault,
		audit:    audit,
		logger:   logger,
	}
}

// Start runs the sweep loop until the context is cancelled.
func (s *Sweeper) Start(ctx context.Context) error {
	s.logger.Info("starting sweeper",
		slog.Duration("interval", s.config.Interval),
		slog.Duration("audit_retention", s.config.AuditRetention),
	)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("stopping sweeper")
			return ctx.Err()
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one round of all three passes. The passes touch disjoint tables
// and run concurrently; each logs its own failure without aborting the others.
func (s *Sweeper) Sweep(ctx context.Context) {
	now := time.Now().UTC()

	var group errgroup.Group

	group.Go(func() error {
		expired, err := s.sessions.ExpireDue(ctx, now)
		if err != nil {
			s.logger.Error("session expiry pass failed", slog.Any("error", err))
		} else if expired > 0 {
			s.logger.Info("expired sessions", slog.Int("count", expired))
		}
		return nil
	})

	group.Go(func() error {
		purged, err := s.vault.Sweep(ctx, now)
		if err != nil {
			s.logger.Error("vault sweep pass failed", slog.Any("error", err))
		} else if purged > 0 {
			s.logger.Info("purged vault entries", slog.Int("count", purged))
		}
		return nil
	})

	group.Go(func() error {
		pruned, err := s.audit.Prune(ctx, s.config.AuditRetention, false)
		if err != nil {
			s.logger.Error("audit prune pass failed", slog.Any("error", err))
		} else if pruned > 0 {
			s.logger.Info("pruned audit records", slog.Int64("count", pruned))
		}
		return nil
	})

	_ = group.Wait()
}
