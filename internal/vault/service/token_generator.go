package service

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"regexp"
	"time"

	"golang.org/x/crypto/blake2b"
)

var tokenPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// TokenGenerator derives opaque vault tokens. Tokens carry no recoverable
// structure: they are keyed hashes over the issuing context plus fresh
// randomness, so they cannot be predicted or enumerated.
type TokenGenerator interface {
	// Generate derives a token for the given entity and issuer.
	Generate(entityID string, issuer string) (string, error)

	// Validate checks that token has the shape of a generated token.
	Validate(token string) error
}

// blake2bGenerator implements TokenGenerator with a keyed BLAKE2b-256 hash.
type blake2bGenerator struct {
	key []byte
}

// NewTokenGenerator creates a generator with a fresh random key. The key is
// never persisted: tokens only need to be unguessable, not re-derivable, so a
// process restart invalidating the keyspace is fine for ephemeral entries.
func NewTokenGenerator() (TokenGenerator, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate token key: %w", err)
	}
	return &blake2bGenerator{key: key}, nil
}

func (g *blake2bGenerator) Generate(entityID string, issuer string) (string, error) {
	hasher, err := blake2b.New256(g.key)
	if err != nil {
		return "", fmt.Errorf("failed to create hasher: %w", err)
	}

	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	var issuedAt [8]byte
	binary.BigEndian.PutUint64(issuedAt[:], uint64(time.Now().UnixNano()))

	hasher.Write([]byte(entityID))
	hasher.Write([]byte(issuer))
	hasher.Write(issuedAt[:])
	hasher.Write(nonce)

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

func (g *blake2bGenerator) Validate(token string) error {
	if !tokenPattern.MatchString(token) {
		return fmt.Errorf("token must be a 64-character lowercase hex string")
	}
	return nil
}
