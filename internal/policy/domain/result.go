package domain

import "fmt"

// ResourceRequest is one proposed resource as seen by the validator.
type ResourceRequest struct {
	Type     string
	Config   map[string]any
	UnitCost float64
}

// Region extracts the region configuration value, if any.
func (r *ResourceRequest) Region() string {
	if region, ok := r.Config["region"].(string); ok {
		return region
	}
	return ""
}

// Size extracts the numeric size configuration value, if any.
func (r *ResourceRequest) Size() int {
	switch v := r.Config["size"].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}

// Request is a full validation request for a proposed change-set.
type Request struct {
	CallerID  string
	ProjectID string
	Resources []ResourceRequest
}

// Violation is one blocking validation failure. Code is machine-readable
// (e.g. "permission_denied:deploy:vm", "quota_exceeded:vm").
type Violation struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	ResourceType string `json:"resource_type,omitempty"`
}

// Result is the outcome of validating a proposed change-set. All checks are
// evaluated so the full violation list returns in one call.
type Result struct {
	IsValid      bool        `json:"is_valid"`
	Violations   []Violation `json:"violations,omitempty"`
	Warnings     []string    `json:"warnings,omitempty"`
	CostEstimate float64     `json:"cost_estimate"`
}

// DeployCapability returns the capability name required to deploy a resource type.
func DeployCapability(resourceType string) string {
	return fmt.Sprintf("deploy:%s", resourceType)
}
