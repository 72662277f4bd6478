package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/provision/internal/audit/domain"
	auditUsecase "github.com/allisson/provision/internal/audit/usecase"
	deploymentDomain "github.com/allisson/provision/internal/deployment/domain"
	apperrors "github.com/allisson/provision/internal/errors"
	ledgerUsecase "github.com/allisson/provision/internal/ledger/usecase"
	policyDomain "github.com/allisson/provision/internal/policy/domain"
	policyUsecase "github.com/allisson/provision/internal/policy/usecase"
	"github.com/allisson/provision/internal/runner"
	vaultUsecase "github.com/allisson/provision/internal/vault/usecase"
)

const (
	expireBatchSize = 100
	// Error excerpts in audit metadata are capped so a huge tool transcript
	// cannot bloat the audit table.
	errorExcerptLimit = 500
)

type sessionUseCase struct {
	sessionRepo SessionRepository
	validator   policyUsecase.Validator
	ledger      ledgerUsecase.QuotaLedger
	audit       auditUsecase.UseCase
	runner      runner.Runner
	workspace   WorkspaceManager
	broker      *runner.Broker
	vault       vaultUsecase.Vault
	guard       *sessionGuard
	sessionTTL  time.Duration
	logger      *slog.Logger
}

// NewSessionUseCase creates the session orchestrator.
func NewSessionUseCase(
	sessionRepo SessionRepository,
	validator policyUsecase.Validator,
	ledger ledgerUsecase.QuotaLedger,
	audit auditUsecase.UseCase,
	iacRunner runner.Runner,
	workspace WorkspaceManager,
	broker *runner.Broker,
	vault vaultUsecase.Vault,
	sessionTTL time.Duration,
	logger *slog.Logger,
) SessionUseCase {
	return &sessionUseCase{
		sessionRepo: sessionRepo,
		validator:   validator,
		ledger:      ledger,
		audit:       audit,
		runner:      iacRunner,
		workspace:   workspace,
		broker:      broker,
		vault:       vault,
		guard:       newSessionGuard(),
		sessionTTL:  sessionTTL,
		logger:      logger,
	}
}

func (s *sessionUseCase) Create(
	ctx context.Context,
	owner, projectID, provider string,
) (*deploymentDomain.Session, error) {
	session := deploymentDomain.NewSession(owner, projectID, provider, s.sessionTTL)

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, &auditDomain.Record{
		EventType: auditDomain.SessionCreated,
		Actor:     owner,
		ProjectID: projectID,
		SessionID: session.ID,
		Outcome:   "success",
	})

	s.logger.Info("session created",
		slog.String("session_id", session.ID.String()),
		slog.String("owner", owner),
		slog.String("project_id", projectID),
	)

	return session, nil
}

func (s *sessionUseCase) Get(ctx context.Context, id uuid.UUID) (*deploymentDomain.Session, error) {
	return s.sessionRepo.GetByID(ctx, id)
}

func (s *sessionUseCase) AddResource(
	ctx context.Context,
	id uuid.UUID,
	spec deploymentDomain.ResourceSpec,
) (*deploymentDomain.Session, error) {
	if err := s.guard.Acquire(id); err != nil {
		return nil, err
	}
	defer s.guard.Release(id)

	session, err := s.sessionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := session.AddResource(spec); err != nil {
		return nil, err
	}

	if err := s.sessionRepo.Update(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *sessionUseCase) RemoveResource(
	ctx context.Context,
	id uuid.UUID,
	resourceType string,
) (*deploymentDomain.Session, error) {
	if err := s.guard.Acquire(id); err != nil {
		return nil, err
	}
	defer s.guard.Release(id)

	session, err := s.sessionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := session.RemoveResource(resourceType); err != nil {
		return nil, err
	}

	if err := s.sessionRepo.Update(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Submit validates the change-set and runs a plan. The caller gets the final
// snapshot: plan_ready, or failed with the reasons recorded on the session.
func (s *sessionUseCase) Submit(ctx context.Context, id uuid.UUID) (*deploymentDomain.Session, error) {
	if err := s.guard.Acquire(id); err != nil {
		return nil, err
	}
	defer s.guard.Release(id)

	session, err := s.sessionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if len(session.Resources) == 0 {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "session has no resources")
	}

	// A resource edit in plan_ready already moved the session back to
	// validating; a fresh draft makes the move here.
	if session.State == deploymentDomain.StateDraft {
		if err := session.Transition(deploymentDomain.StateValidating); err != nil {
			return nil, err
		}
	} else if session.State != deploymentDomain.StateValidating {
		return nil, apperrors.Wrap(
			apperrors.ErrConflict,
			fmt.Sprintf("cannot submit session in state %s", session.State),
		)
	}

	result, err := s.validator.Validate(ctx, buildPolicyRequest(session))
	if err != nil {
		return nil, err
	}

	session.Warnings = result.Warnings
	session.Violations = nil

	if !result.IsValid {
		for _, violation := range result.Violations {
			session.Violations = append(session.Violations,
				fmt.Sprintf("%s: %s", violation.Code, violation.Message))
		}
		if err := session.Transition(deploymentDomain.StateFailed); err != nil {
			return nil, err
		}
		if err := s.sessionRepo.Update(ctx, session); err != nil {
			return nil, err
		}
		return session, nil
	}

	if err := session.Transition(deploymentDomain.StatePlanning); err != nil {
		return nil, err
	}
	if err := s.sessionRepo.Update(ctx, session); err != nil {
		return nil, err
	}

	session.PlanResult = s.plan(ctx, session)

	nextState := deploymentDomain.StatePlanReady
	outcome := "success"
	if !session.PlanResult.Success {
		nextState = deploymentDomain.StateFailed
		outcome = "failure"
	}
	if err := session.Transition(nextState); err != nil {
		return nil, err
	}
	if err := s.sessionRepo.Update(ctx, session); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, &auditDomain.Record{
		EventType: auditDomain.PlanCompleted,
		Actor:     session.Owner,
		ProjectID: session.ProjectID,
		SessionID: session.ID,
		Outcome:   outcome,
		Metadata: map[string]any{
			"to_add":     session.PlanResult.ToAdd,
			"to_change":  session.PlanResult.ToChange,
			"to_destroy": session.PlanResult.ToDestroy,
		},
	})

	return session, nil
}

// plan renders a workspace and runs the dry-run. Failures are reported inside
// the result, never as hard errors: a broken plan is a session outcome.
func (s *sessionUseCase) plan(ctx context.Context, session *deploymentDomain.Session) *deploymentDomain.PlanResult {
	dir, err := s.workspace.Create(session.ID, session.Provider, session.Resources)
	if err != nil {
		return &deploymentDomain.PlanResult{Errors: []string{err.Error()}}
	}
	defer func() {
		if removeErr := s.workspace.Remove(dir); removeErr != nil {
			s.logger.Error("failed to remove workspace",
				slog.String("session_id", session.ID.String()),
				slog.Any("error", removeErr),
			)
		}
	}()

	output, err := s.runner.Plan(ctx, dir)
	if err != nil {
		return &deploymentDomain.PlanResult{Errors: []string{err.Error()}}
	}

	return &deploymentDomain.PlanResult{
		ToAdd:         output.ToAdd,
		ToChange:      output.ToChange,
		ToDestroy:     output.ToDestroy,
		EstimatedCost: session.EstimatedCost(),
		RawOutput:     output.RawOutput,
		Success:       output.Success,
		Errors:        output.Errors,
	}
}

// Approve reserves quota and hands the session to the background apply. The
// busy flag stays held until the apply finishes, so no other mutating call
// can interleave with an in-flight deployment.
func (s *sessionUseCase) Approve(ctx context.Context, id uuid.UUID) (*deploymentDomain.Session, error) {
	if err := s.guard.Acquire(id); err != nil {
		return nil, err
	}

	session, err := s.approve(ctx, id)
	if err != nil {
		s.guard.Release(id)
		return nil, err
	}

	go s.apply(session)

	return session, nil
}

func (s *sessionUseCase) approve(ctx context.Context, id uuid.UUID) (*deploymentDomain.Session, error) {
	session, err := s.sessionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if session.State != deploymentDomain.StatePlanReady ||
		session.PlanResult == nil || !session.PlanResult.Success {
		return nil, apperrors.Wrap(apperrors.ErrConflict, "session is not ready for approval")
	}

	if err := s.ledger.Reserve(ctx, session.ID, session.ProjectID, session.ResourceCounts()); err != nil {
		return nil, err
	}

	if err := session.Transition(deploymentDomain.StateApproved); err != nil {
		s.releaseReservation(ctx, session.ID)
		return nil, err
	}
	if err := session.Transition(deploymentDomain.StateApplying); err != nil {
		s.releaseReservation(ctx, session.ID)
		return nil, err
	}
	if err := s.sessionRepo.Update(ctx, session); err != nil {
		s.releaseReservation(ctx, session.ID)
		return nil, err
	}

	return session, nil
}

// apply drives the external tool to completion. It runs detached from the
// approving request, so it carries its own context.
func (s *sessionUseCase) apply(session *deploymentDomain.Session) {
	ctx := context.Background()
	defer s.guard.Release(session.ID)

	dir, err := s.workspace.Create(session.ID, session.Provider, session.Resources)
	if err != nil {
		s.finishApply(ctx, session, runner.Result{
			Kind:   runner.KindApply,
			Errors: []string{err.Error()},
		})
		return
	}
	defer func() {
		if removeErr := s.workspace.Remove(dir); removeErr != nil {
			s.logger.Error("failed to remove workspace",
				slog.String("session_id", session.ID.String()),
				slog.Any("error", removeErr),
			)
		}
	}()

	handle, err := s.runner.Apply(ctx, dir)
	if err != nil {
		s.finishApply(ctx, session, runner.Result{
			Kind:   runner.KindApply,
			Errors: []string{err.Error()},
		})
		return
	}

	for line := range handle.Lines() {
		s.broker.Publish(session.ID, line)
	}

	s.finishApply(ctx, session, handle.Wait())
}

// finishApply settles the quota reservation, records the terminal state, and
// closes the output stream.
func (s *sessionUseCase) finishApply(ctx context.Context, session *deploymentDomain.Session, result runner.Result) {
	if result.Success {
		if err := s.ledger.Commit(ctx, session.ID); err != nil {
			s.logger.Error("failed to commit quota reservation",
				slog.String("session_id", session.ID.String()),
				slog.Any("error", err),
			)
		}
	} else {
		s.releaseReservation(ctx, session.ID)
	}

	nextState := deploymentDomain.StateApplied
	eventType := auditDomain.DeploymentCompleted
	outcome := "success"
	metadata := map[string]any{}
	if !result.Success {
		nextState = deploymentDomain.StateFailed
		eventType = auditDomain.DeploymentFailed
		outcome = "failure"
		metadata["kind"] = string(result.Kind)
		metadata["errors"] = excerpt(strings.Join(result.Errors, "; "))
	}

	if err := session.Transition(nextState); err != nil {
		s.logger.Error("failed to finish apply transition",
			slog.String("session_id", session.ID.String()),
			slog.Any("error", err),
		)
	} else if err := s.sessionRepo.Update(ctx, session); err != nil {
		s.logger.Error("failed to persist applied session",
			slog.String("session_id", session.ID.String()),
			slog.Any("error", err),
		)
	}

	s.audit.Record(ctx, &auditDomain.Record{
		EventType: eventType,
		Actor:     session.Owner,
		ProjectID: session.ProjectID,
		SessionID: session.ID,
		Outcome:   outcome,
		Metadata:  metadata,
	})

	s.logger.Info("apply finished",
		slog.String("session_id", session.ID.String()),
		slog.String("state", string(session.State)),
		slog.Bool("success", result.Success),
	)

	s.broker.Close(session.ID, result)
}

func (s *sessionUseCase) Cancel(ctx context.Context, id uuid.UUID) (*deploymentDomain.Session, error) {
	if err := s.guard.Acquire(id); err != nil {
		return nil, err
	}
	defer s.guard.Release(id)

	session, err := s.sessionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := session.Transition(deploymentDomain.StateCancelled); err != nil {
		return nil, err
	}

	s.releaseReservation(ctx, session.ID)

	if err := s.sessionRepo.Update(ctx, session); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, &auditDomain.Record{
		EventType: auditDomain.SessionCancelled,
		Actor:     session.Owner,
		ProjectID: session.ProjectID,
		SessionID: session.ID,
		Outcome:   "success",
	})

	return session, nil
}

func (s *sessionUseCase) Subscribe(id uuid.UUID) (<-chan runner.Message, func()) {
	return s.broker.Subscribe(id)
}

// Export renders a provider-neutral bundle of the session's resources and
// issues a single-use vault token for it. The bundle is for human review and
// is never fed back to the tool.
func (s *sessionUseCase) Export(ctx context.Context, id uuid.UUID) (string, error) {
	session, err := s.sessionRepo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}

	if len(session.Resources) == 0 {
		return "", apperrors.Wrap(apperrors.ErrInvalidInput, "session has no resources to export")
	}

	bundle, err := renderBundle(session)
	if err != nil {
		return "", err
	}

	token, err := s.vault.Issue(ctx, session.Owner, session.ID, bundle, 0)
	if err != nil {
		return "", err
	}

	s.audit.Record(ctx, &auditDomain.Record{
		EventType: auditDomain.ExportIssued,
		Actor:     session.Owner,
		ProjectID: session.ProjectID,
		SessionID: session.ID,
		Outcome:   "success",
	})

	return token, nil
}

func (s *sessionUseCase) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	sessions, err := s.sessionRepo.ListExpired(ctx, now, expireBatchSize)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, session := range sessions {
		// An in-flight mutating call wins; the sweeper gets the session on
		// its next pass if it is still due.
		if err := s.guard.Acquire(session.ID); err != nil {
			continue
		}

		err := s.expireSession(ctx, session)
		s.guard.Release(session.ID)
		if err != nil {
			s.logger.Error("failed to expire session",
				slog.String("session_id", session.ID.String()),
				slog.Any("error", err),
			)
			continue
		}
		expired++
	}

	return expired, nil
}

func (s *sessionUseCase) expireSession(ctx context.Context, session *deploymentDomain.Session) error {
	if err := session.Transition(deploymentDomain.StateExpired); err != nil {
		return err
	}

	s.releaseReservation(ctx, session.ID)

	if err := s.sessionRepo.Update(ctx, session); err != nil {
		return err
	}

	s.audit.Record(ctx, &auditDomain.Record{
		EventType: auditDomain.SessionExpired,
		Actor:     "sweeper",
		ProjectID: session.ProjectID,
		SessionID: session.ID,
		Outcome:   "success",
	})

	return nil
}

func (s *sessionUseCase) releaseReservation(ctx context.Context, sessionID uuid.UUID) {
	if err := s.ledger.Release(ctx, sessionID); err != nil {
		s.logger.Error("failed to release quota reservation",
			slog.String("session_id", sessionID.String()),
			slog.Any("error", err),
		)
	}
}

func buildPolicyRequest(session *deploymentDomain.Session) *policyDomain.Request {
	resources := make([]policyDomain.ResourceRequest, 0, len(session.Resources))
	for _, resource := range session.Resources {
		resources = append(resources, policyDomain.ResourceRequest{
			Type:     resource.Type,
			Config:   resource.Config,
			UnitCost: resource.EstimatedUnitCost,
		})
	}
	return &policyDomain.Request{
		CallerID:  session.Owner,
		ProjectID: session.ProjectID,
		Resources: resources,
	}
}

// exportBundle is the provider-neutral review document issued through the
// vault.
type exportBundle struct {
	SessionID     uuid.UUID                       `json:"session_id"`
	ProjectID     string                          `json:"project_id"`
	Provider      string                          `json:"provider"`
	GeneratedAt   time.Time                       `json:"generated_at"`
	Resources     []deploymentDomain.ResourceSpec `json:"resources"`
	EstimatedCost float64                         `json:"estimated_cost"`
	Plan          *deploymentDomain.PlanResult    `json:"plan,omitempty"`
}

func renderBundle(session *deploymentDomain.Session) ([]byte, error) {
	bundle := exportBundle{
		SessionID:     session.ID,
		ProjectID:     session.ProjectID,
		Provider:      session.Provider,
		GeneratedAt:   time.Now().UTC(),
		Resources:     session.Resources,
		EstimatedCost: session.EstimatedCost(),
		Plan:          session.PlanResult,
	}
	rendered, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to render export bundle")
	}
	return rendered, nil
}

// excerpt caps diagnostic text for audit metadata, cutting on a rune
// boundary so multibyte tool output stays valid UTF-8.
func excerpt(s string) string {
	if len(s) <= errorExcerptLimit {
		return s
	}
	end := errorExcerptLimit
	for end > 0 && !utf8.RuneStart(s[end]) {
		end--
	}
	return s[:end]
}
