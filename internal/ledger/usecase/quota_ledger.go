package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/provision/internal/database"
	apperrors "github.com/allisson/provision/internal/errors"
	ledgerDomain "github.com/allisson/provision/internal/ledger/domain"
)

// quotaLedger implements QuotaLedger with a project-scoped lock registry.
// Counters live in the database; soft reservations live in memory keyed by
// session ID, so release after failure knows exactly what to subtract.
type quotaLedger struct {
	txManager database.TxManager
	quotaRepo QuotaRepository

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	resMu        sync.Mutex
	reservations map[uuid.UUID]*ledgerDomain.Reservation
}

// NewQuotaLedger creates a new QuotaLedger backed by the given repository.
func NewQuotaLedger(txManager database.TxManager, quotaRepo QuotaRepository) QuotaLedger {
	return &quotaLedger{
		txManager:    txManager,
		quotaRepo:    quotaRepo,
		locks:        make(map[string]*sync.Mutex),
		reservations: make(map[uuid.UUID]*ledgerDomain.Reservation),
	}
}

// projectLock returns the mutex for a project, creating it on first use.
// Unrelated projects never contend.
func (q *quotaLedger) projectLock(projectID string) *sync.Mutex {
	q.mu.Lock()
	defer q.mu.Unlock()

	lock, ok := q.locks[projectID]
	if !ok {
		lock = &sync.Mutex{}
		q.locks[projectID] = lock
	}
	return lock
}

// Quotas returns the current quota records for a project.
func (q *quotaLedger) Quotas(ctx context.Context, projectID string) ([]*ledgerDomain.QuotaRecord, error) {
	return q.quotaRepo.ListByProject(ctx, projectID)
}

// Reserve atomically checks and increments the used counters for all deltas.
func (q *quotaLedger) Reserve(
	ctx context.Context,
	sessionID uuid.UUID,
	projectID string,
	deltas map[string]int,
) error {
	if len(deltas) == 0 {
		return nil
	}

	lock := q.projectLock(projectID)
	lock.Lock()
	defer lock.Unlock()

	// Check every type under the lock before touching any counter.
	records, err := q.quotaRepo.ListByProject(ctx, projectID)
	if err != nil {
		return err
	}

	byType := make(map[string]*ledgerDomain.QuotaRecord, len(records))
	for _, record := range records {
		byType[record.ResourceType] = record
	}

	for resourceType, delta := range deltas {
		record, ok := byType[resourceType]
		if !ok {
			return apperrors.Wrap(
				apperrors.ErrQuotaExceeded,
				fmt.Sprintf("no quota configured for resource type %q", resourceType),
			)
		}
		if record.Used+delta > record.Limit {
			return apperrors.Wrap(
				apperrors.ErrQuotaExceeded,
				fmt.Sprintf(
					"resource type %q: requested %d, remaining %d",
					resourceType, delta, record.Remaining(),
				),
			)
		}
	}

	// All checks passed; apply increments in one transaction.
	err = q.txManager.WithTx(ctx, func(txCtx context.Context) error {
		for resourceType, delta := range deltas {
			if err := q.quotaRepo.AdjustUsed(txCtx, projectID, resourceType, delta); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	q.resMu.Lock()
	q.reservations[sessionID] = &ledgerDomain.Reservation{
		SessionID: sessionID.String(),
		ProjectID: projectID,
		Deltas:    deltas,
		CreatedAt: time.Now().UTC(),
	}
	q.resMu.Unlock()

	return nil
}

// Commit finalizes a reservation. The counters already reflect the usage.
func (q *quotaLedger) Commit(_ context.Context, sessionID uuid.UUID) error {
	q.resMu.Lock()
	delete(q.reservations, sessionID)
	q.resMu.Unlock()
	return nil
}

// Release undoes a reservation, decrementing the used counters.
func (q *quotaLedger) Release(ctx context.Context, sessionID uuid.UUID) error {
	q.resMu.Lock()
	reservation, ok := q.reservations[sessionID]
	if ok {
		delete(q.reservations, sessionID)
	}
	q.resMu.Unlock()

	if !ok {
		return nil
	}

	lock := q.projectLock(reservation.ProjectID)
	lock.Lock()
	defer lock.Unlock()

	return q.txManager.WithTx(ctx, func(txCtx context.Context) error {
		for resourceType, delta := range reservation.Deltas {
			if err := q.quotaRepo.AdjustUsed(txCtx, reservation.ProjectID, resourceType, -delta); err != nil {
				return err
			}
		}
		return nil
	})
}
