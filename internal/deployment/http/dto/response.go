// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	"time"

	deploymentDomain "github.com/allisson/provision/internal/deployment/domain"
)

// ResourceResponse represents a resource spec in API responses.
type ResourceResponse struct {
	Type              string         `json:"type"`
	Config            map[string]any `json:"config,omitempty"`
	EstimatedUnitCost float64        `json:"estimated_unit_cost"`
}

// PlanResponse represents a plan result in API responses. The raw tool
// transcript stays server-side.
type PlanResponse struct {
	ToAdd         int      `json:"to_add"`
	ToChange      int      `json:"to_change"`
	ToDestroy     int      `json:"to_destroy"`
	EstimatedCost float64  `json:"estimated_cost"`
	Success       bool     `json:"success"`
	Errors        []string `json:"errors,omitempty"`
}

// SessionResponse represents a session snapshot in API responses.
type SessionResponse struct {
	ID         string             `json:"id"`
	Owner      string             `json:"owner"`
	ProjectID  string             `json:"project_id"`
	Provider   string             `json:"provider"`
	State      string             `json:"state"`
	Resources  []ResourceResponse `json:"resources"`
	Plan       *PlanResponse      `json:"plan,omitempty"`
	Violations []string           `json:"violations,omitempty"`
	Warnings   []string           `json:"warnings,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
	ExpiresAt  time.Time          `json:"expires_at"`
}

// MapSessionToResponse converts a domain session to an API response.
func MapSessionToResponse(session *deploymentDomain.Session) SessionResponse {
	resources := make([]ResourceResponse, 0, len(session.Resources))
	for _, resource := range session.Resources {
		resources = append(resources, ResourceResponse{
			Type:              resource.Type,
			Config:            resource.Config,
			EstimatedUnitCost: resource.EstimatedUnitCost,
		})
	}

	response := SessionResponse{
		ID:         session.ID.String(),
		Owner:      session.Owner,
		ProjectID:  session.ProjectID,
		Provider:   session.Provider,
		State:      string(session.State),
		Resources:  resources,
		Violations: session.Violations,
		Warnings:   session.Warnings,
		CreatedAt:  session.CreatedAt,
		ExpiresAt:  session.ExpiresAt,
	}

	if session.PlanResult != nil {
		response.Plan = &PlanResponse{
			ToAdd:         session.PlanResult.ToAdd,
			ToChange:      session.PlanResult.ToChange,
			ToDestroy:     session.PlanResult.ToDestroy,
			EstimatedCost: session.PlanResult.EstimatedCost,
			Success:       session.PlanResult.Success,
			Errors:        session.PlanResult.Errors,
		}
	}

	return response
}

// ExportResponse represents an issued export token.
type ExportResponse struct {
	Token string `json:"token"`
}
