package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	deploymentDomain "github.com/allisson/provision/internal/deployment/domain"
	"github.com/allisson/provision/internal/metrics"
	"github.com/allisson/provision/internal/runner"
)

// sessionUseCaseWithMetrics decorates SessionUseCase with metrics instrumentation.
type sessionUseCaseWithMetrics struct {
	next    SessionUseCase
	metrics metrics.BusinessMetrics
}

// NewSessionUseCaseWithMetrics wraps a SessionUseCase with metrics recording.
func NewSessionUseCaseWithMetrics(useCase SessionUseCase, m metrics.BusinessMetrics) SessionUseCase {
	return &sessionUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (s *sessionUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.RecordOperation(ctx, "deployment", operation, status)
	s.metrics.RecordDuration(ctx, "deployment", operation, time.Since(start), status)
}

func (s *sessionUseCaseWithMetrics) Create(
	ctx context.Context,
	owner, projectID, provider string,
) (*deploymentDomain.Session, error) {
	start := time.Now()
	session, err := s.next.Create(ctx, owner, projectID, provider)
	s.record(ctx, "session_create", start, err)
	return session, err
}

func (s *sessionUseCaseWithMetrics) Get(ctx context.Context, id uuid.UUID) (*deploymentDomain.Session, error) {
	start := time.Now()
	session, err := s.next.Get(ctx, id)
	s.record(ctx, "session_get", start, err)
	return session, err
}

func (s *sessionUseCaseWithMetrics) AddResource(
	ctx context.Context,
	id uuid.UUID,
	spec deploymentDomain.ResourceSpec,
) (*deploymentDomain.Session, error) {
	start := time.Now()
	session, err := s.next.AddResource(ctx, id, spec)
	s.record(ctx, "resource_add", start, err)
	return session, err
}

func (s *sessionUseCaseWithMetrics) RemoveResource(
	ctx context.Context,
	id uuid.UUID,
	resourceType string,
) (*deploymentDomain.Session, error) {
	start := time.Now()
	session, err := s.next.RemoveResource(ctx, id, resourceType)
	s.record(ctx, "resource_remove", start, err)
	return session, err
}

func (s *sessionUseCaseWithMetrics) Submit(ctx context.Context, id uuid.UUID) (*deploymentDomain.Session, error) {
	start := time.Now()
	session, err := s.next.Submit(ctx, id)
	s.record(ctx, "session_submit", start, err)
	return session, err
}

func (s *sessionUseCaseWithMetrics) Approve(ctx context.Context, id uuid.UUID) (*deploymentDomain.Session, error) {
	start := time.Now()
	session, err := s.next.Approve(ctx, id)
	s.record(ctx, "session_approve", start, err)
	return session, err
}

func (s *sessionUseCaseWithMetrics) Cancel(ctx context.Context, id uuid.UUID) (*deploymentDomain.Session, error) {
	start := time.Now()
	session, err := s.next.Cancel(ctx, id)
	s.record(ctx, "session_cancel", start, err)
	return session, err
}

func (s *sessionUseCaseWithMetrics) Subscribe(id uuid.UUID) (<-chan runner.Message, func()) {
	return s.next.Subscribe(id)
}

func (s *sessionUseCaseWithMetrics) Export(ctx context.Context, id uuid.UUID) (string, error) {
	start := time.Now()
	token, err := s.next.Export(ctx, id)
	s.record(ctx, "session_export", start, err)
	return token, err
}

func (s *sessionUseCaseWithMetrics) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	start := time.Now()
	expired, err := s.next.ExpireDue(ctx, now)
	s.record(ctx, "session_expire", start, err)
	return expired, err
}
