package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/allisson/provision/internal/errors"
)

// ResourceSpec is one proposed resource. Immutable once the session leaves
// draft: edits after plan_ready go through a new validation cycle.
type ResourceSpec struct {
	Type              string         `json:"type"`
	Config            map[string]any `json:"config"`
	EstimatedUnitCost float64        `json:"estimated_unit_cost"`
}

// PlanResult is the outcome of one plan invocation. Re-planning supersedes
// the previous result; results are never merged or diffed.
type PlanResult struct {
	ToAdd         int      `json:"to_add"`
	ToChange      int      `json:"to_change"`
	ToDestroy     int      `json:"to_destroy"`
	EstimatedCost float64  `json:"estimated_cost"`
	RawOutput     string   `json:"raw_output,omitempty"`
	Success       bool     `json:"success"`
	Errors        []string `json:"errors,omitempty"`
}

// Session is a deployment session. It is exclusively owned by the session
// use case and mutated only through transition methods; repositories persist
// whole snapshots.
type Session struct {
	ID         uuid.UUID
	Owner      string
	ProjectID  string
	Provider   string
	State      State
	Resources  []ResourceSpec
	PlanResult *PlanResult
	Violations []string
	Warnings   []string
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// NewSession creates a draft session with the given TTL.
func NewSession(owner, projectID, provider string, ttl time.Duration) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        uuid.Must(uuid.NewV7()),
		Owner:     owner,
		ProjectID: projectID,
		Provider:  provider,
		State:     StateDraft,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// Transition moves the session to the target state, enforcing the edge set.
func (s *Session) Transition(to State) error {
	if !CanTransition(s.State, to) {
		return apperrors.Wrap(
			apperrors.ErrConflict,
			fmt.Sprintf("invalid transition from %s to %s", s.State, to),
		)
	}
	s.State = to
	return nil
}

// Expired reports whether the session TTL has elapsed.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// AddResource appends a resource spec. Allowed in draft, and in plan_ready
// where it discards the stale plan so the session re-validates.
func (s *Session) AddResource(spec ResourceSpec) error {
	switch s.State {
	case StateDraft:
		s.Resources = append(s.Resources, spec)
		return nil
	case StatePlanReady:
		s.Resources = append(s.Resources, spec)
		s.PlanResult = nil
		return s.Transition(StateValidating)
	default:
		return apperrors.Wrap(
			apperrors.ErrConflict,
			fmt.Sprintf("cannot add resources in state %s", s.State),
		)
	}
}

// RemoveResource removes the first resource of the given type.
// Only allowed in draft.
func (s *Session) RemoveResource(resourceType string) error {
	if s.State != StateDraft {
		return apperrors.Wrap(
			apperrors.ErrConflict,
			fmt.Sprintf("cannot remove resources in state %s", s.State),
		)
	}
	for i, resource := range s.Resources {
		if resource.Type == resourceType {
			s.Resources = append(s.Resources[:i], s.Resources[i+1:]...)
			return nil
		}
	}
	return apperrors.Wrap(
		apperrors.ErrNotFound,
		fmt.Sprintf("no resource of type %q in session", resourceType),
	)
}

// ResourceCounts returns the number of requested resources per type.
func (s *Session) ResourceCounts() map[string]int {
	counts := make(map[string]int, len(s.Resources))
	for _, resource := range s.Resources {
		counts[resource.Type]++
	}
	return counts
}

// EstimatedCost sums the per-unit cost estimates of all resources.
func (s *Session) EstimatedCost() float64 {
	var total float64
	for _, resource := range s.Resources {
		total += resource.EstimatedUnitCost
	}
	return total
}
