package domain

import (
	"time"

	"github.com/google/uuid"
)

// GrantConstraints restricts how a capability may be exercised.
// A zero MaxSize means no size ceiling; an empty Regions list means any region.
type GrantConstraints struct {
	MaxSize int      `json:"max_size,omitempty"`
	Regions []string `json:"regions,omitempty"`
}

// PermissionGrant gives a user a capability on a project, optionally bounded
// by constraints and an expiry. Read-mostly: written by operators, read on
// every validation.
type PermissionGrant struct {
	ID          uuid.UUID
	UserID      string
	ProjectID   string
	Capability  string
	Constraints GrantConstraints
	ExpiresAt   *time.Time
	CreatedAt   time.Time
}

// Active reports whether the grant is usable at the given time.
func (g *PermissionGrant) Active(now time.Time) bool {
	return g.ExpiresAt == nil || now.Before(*g.ExpiresAt)
}

// AllowsRegion reports whether the grant permits the given region.
func (g *PermissionGrant) AllowsRegion(region string) bool {
	if len(g.Constraints.Regions) == 0 {
		return true
	}
	for _, r := range g.Constraints.Regions {
		if r == region {
			return true
		}
	}
	return false
}

// AllowsSize reports whether the grant permits the given resource size.
func (g *PermissionGrant) AllowsSize(size int) bool {
	return g.Constraints.MaxSize == 0 || size <= g.Constraints.MaxSize
}
