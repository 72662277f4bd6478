// Package domain defines the resource ledger entities: per-project quota
// counters and per-user permission grants.
package domain

import (
	"time"
)

// QuotaRecord tracks resource usage against a per-project ceiling for one
// resource type. Used is a live counter and must only be mutated through the
// ledger's atomic check-and-reserve/release operations, never directly.
type QuotaRecord struct {
	ProjectID    string
	ResourceType string
	Limit        int
	Used         int
	UpdatedAt    time.Time
}

// Remaining returns the capacity left under the quota ceiling.
func (q *QuotaRecord) Remaining() int {
	remaining := q.Limit - q.Used
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Reservation records a soft quota hold taken for a deployment session at
// approval time. It is finalized after a successful apply or released on
// failure, cancellation, or expiry.
type Reservation struct {
	SessionID string
	ProjectID string
	Deltas    map[string]int
	CreatedAt time.Time
}
