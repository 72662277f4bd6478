package usecase

import (
	"context"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/allisson/provision/internal/errors"
	vaultDomain "github.com/allisson/provision/internal/vault/domain"
	"github.com/allisson/provision/internal/vault/service"
)

const (
	shardCount = 16
	// Payloads up to this size stay inline; larger ones go to the artifact
	// store.
	inlineThreshold = 4 * 1024
)

type shard struct {
	mu      sync.Mutex
	entries map[string]*vaultDomain.Entry
}

// vaultUsecase keeps entry metadata in sharded in-memory maps. Losing the
// process loses the entries, which is acceptable: everything in the vault is
// regenerable from its session.
type vaultUsecase struct {
	shards     [shardCount]*shard
	tokens     service.TokenGenerator
	artifacts  service.ArtifactStore
	defaultTTL time.Duration
	logger     *slog.Logger
}

// NewVault creates a Vault backed by the given token generator and artifact
// store. defaultTTL applies when Issue is called with a nonpositive ttl.
func NewVault(tokens service.TokenGenerator, artifacts service.ArtifactStore, defaultTTL time.Duration, logger *slog.Logger) Vault {
	v := &vaultUsecase{
		tokens:     tokens,
		artifacts:  artifacts,
		defaultTTL: defaultTTL,
		logger:     logger,
	}
	for i := range v.shards {
		v.shards[i] = &shard{entries: make(map[string]*vaultDomain.Entry)}
	}
	return v
}

func (v *vaultUsecase) shardFor(token string) *shard {
	hasher := fnv.New32a()
	hasher.Write([]byte(token))
	return v.shards[hasher.Sum32()%shardCount]
}

func (v *vaultUsecase) Issue(ctx context.Context, owner string, sessionID uuid.UUID, payload []byte, ttl time.Duration) (string, error) {
	if len(payload) == 0 {
		return "", apperrors.Wrap(apperrors.ErrInvalidInput, "payload cannot be empty")
	}
	if ttl <= 0 {
		ttl = v.defaultTTL
	}

	token, err := v.tokens.Generate(sessionID.String(), owner)
	if err != nil {
		return "", apperrors.Wrap(err, "failed to generate vault token")
	}

	now := time.Now().UTC()
	entry := &vaultDomain.Entry{
		Token:     token,
		Owner:     owner,
		SessionID: sessionID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	if len(payload) > inlineThreshold {
		entry.ArtifactKey = token
	} else {
		entry.Payload = append([]byte(nil), payload...)
	}

	// Register before writing the artifact: Sweep only deletes artifacts
	// with no owning entry, so an entry that exists first keeps a
	// concurrent sweep from treating the fresh artifact as an orphan.
	s := v.shardFor(token)
	s.mu.Lock()
	s.entries[token] = entry
	s.mu.Unlock()

	if !entry.Inline() {
		if err := v.artifacts.Write(ctx, token, payload); err != nil {
			s.mu.Lock()
			delete(s.entries, token)
			s.mu.Unlock()
			return "", err
		}
	}

	v.logger.Info("vault entry issued",
		slog.String("owner", owner),
		slog.String("session_id", sessionID.String()),
		slog.Time("expires_at", entry.ExpiresAt),
		slog.Bool("inline", entry.Inline()),
	)

	return token, nil
}

func (v *vaultUsecase) Redeem(ctx context.Context, token string) ([]byte, error) {
	if err := v.tokens.Validate(token); err != nil {
		return nil, apperrors.ErrNotFound
	}

	s := v.shardFor(token)
	s.mu.Lock()
	entry, ok := s.entries[token]
	if ok {
		delete(s.entries, token)
	}
	s.mu.Unlock()

	// Unknown and expired look identical to the caller.
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	if entry.Expired(time.Now().UTC()) {
		v.discardArtifact(ctx, entry)
		return nil, apperrors.ErrNotFound
	}

	if entry.Inline() {
		return entry.Payload, nil
	}

	payload, err := v.artifacts.Read(ctx, entry.ArtifactKey)
	if err != nil {
		return nil, err
	}
	v.discardArtifact(ctx, entry)
	return payload, nil
}

func (v *vaultUsecase) Sweep(ctx context.Context, now time.Time) (int, error) {
	purged := 0
	live := make(map[string]struct{})

	for _, s := range v.shards {
		s.mu.Lock()
		for token, entry := range s.entries {
			if entry.Expired(now) {
				delete(s.entries, token)
				purged++
				v.discardArtifact(ctx, entry)
				continue
			}
			if !entry.Inline() {
				live[entry.ArtifactKey] = struct{}{}
			}
		}
		s.mu.Unlock()
	}

	if err := v.sweepOrphans(ctx, live); err != nil {
		return purged, err
	}

	return purged, nil
}

// sweepOrphans deletes artifacts with no owning entry: leftovers from
// crashes or missed deletes. live holds the artifact keys seen during the
// shard scan; any other key is re-checked against its shard before deletion,
// because Issue registers the entry before writing the artifact and may have
// done both since the scan.
func (v *vaultUsecase) sweepOrphans(ctx context.Context, live map[string]struct{}) error {
	keys, err := v.artifacts.Keys(ctx)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if _, ok := live[key]; ok {
			continue
		}

		s := v.shardFor(key)
		s.mu.Lock()
		_, owned := s.entries[key]
		s.mu.Unlock()
		if owned {
			continue
		}

		if err := v.artifacts.Delete(ctx, key); err != nil {
			v.logger.Error("failed to delete orphaned artifact",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

func (v *vaultUsecase) discardArtifact(ctx context.Context, entry *vaultDomain.Entry) {
	if entry.Inline() {
		return
	}
	if err := v.artifacts.Delete(ctx, entry.ArtifactKey); err != nil {
		v.logger.Error("failed to delete artifact",
			slog.String("key", entry.ArtifactKey),
			slog.String("error", err.Error()),
		)
	}
}
