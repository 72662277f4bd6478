package usecase

import (
	"context"
	"time"

	ledgerDomain "github.com/allisson/provision/internal/ledger/domain"
)

// grantReader implements GrantReader on top of the grant repository.
type grantReader struct {
	grantRepo GrantRepository
}

// NewGrantReader creates a new GrantReader.
func NewGrantReader(grantRepo GrantRepository) GrantReader {
	return &grantReader{grantRepo: grantRepo}
}

// ActiveGrants returns the unexpired grants a user holds on a project.
func (g *grantReader) ActiveGrants(
	ctx context.Context,
	userID, projectID string,
) ([]*ledgerDomain.PermissionGrant, error) {
	return g.grantRepo.ListActive(ctx, userID, projectID, time.Now().UTC())
}
