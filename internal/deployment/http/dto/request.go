// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	validation "github.com/jellydator/validation"

	customValidation "github.com/allisson/provision/internal/validation"
)

// CreateSessionRequest contains the parameters for opening a deployment session.
type CreateSessionRequest struct {
	ProjectID string `json:"project_id"`
	Provider  string `json:"provider"` // e.g. "aws", "gcp"
}

// Validate checks if the create session request is valid.
func (r *CreateSessionRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.ProjectID,
			validation.Required,
			validation.Length(1, 255),
		),
		validation.Field(&r.Provider,
			validation.Required,
			customValidation.ProviderName,
		),
	)
}

// AddResourceRequest contains the parameters for adding a resource to a session.
type AddResourceRequest struct {
	Type              string         `json:"type"`
	Config            map[string]any `json:"config"`
	EstimatedUnitCost float64        `json:"estimated_unit_cost"`
}

// Validate checks if the add resource request is valid.
func (r *AddResourceRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Type,
			validation.Required,
			customValidation.ResourceType,
		),
		validation.Field(&r.EstimatedUnitCost,
			validation.Min(float64(0)),
		),
	)
}
