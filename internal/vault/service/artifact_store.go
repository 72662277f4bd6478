package service

import (
	"context"
	"fmt"
	"io"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	// Register the filesystem bucket driver.
	_ "gocloud.dev/blob/fileblob"

	apperrors "github.com/allisson/provision/internal/errors"
)

// ArtifactStore persists payloads too large to keep inline. Keys are vault
// tokens, so store contents without a live entry are orphans and safe to
// delete.
type ArtifactStore interface {
	// Write stores the payload under key.
	Write(ctx context.Context, key string, payload []byte) error

	// Read returns the payload stored under key. Returns
	// apperrors.ErrNotFound when the key does not exist.
	Read(ctx context.Context, key string) ([]byte, error)

	// Delete removes the payload under key. Deleting a missing key is not
	// an error.
	Delete(ctx context.Context, key string) error

	// Keys returns every key currently in the store.
	Keys(ctx context.Context) ([]string, error)

	// Close releases the underlying bucket.
	Close() error
}

// blobArtifactStore implements ArtifactStore on a gocloud.dev blob bucket.
type blobArtifactStore struct {
	bucket *blob.Bucket
}

// NewBlobArtifactStore opens the bucket at bucketURL (e.g. "file:///var/...")
// and returns a store backed by it.
func NewBlobArtifactStore(ctx context.Context, bucketURL string) (ArtifactStore, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open artifact bucket: %w", err)
	}
	return &blobArtifactStore{bucket: bucket}, nil
}

func (s *blobArtifactStore) Write(ctx context.Context, key string, payload []byte) error {
	if err := s.bucket.WriteAll(ctx, key, payload, nil); err != nil {
		return apperrors.Wrap(err, "failed to write artifact")
	}
	return nil
}

func (s *blobArtifactStore) Read(ctx context.Context, key string) ([]byte, error) {
	payload, err := s.bucket.ReadAll(ctx, key)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.Wrap(err, "failed to read artifact")
	}
	return payload, nil
}

func (s *blobArtifactStore) Delete(ctx context.Context, key string) error {
	if err := s.bucket.Delete(ctx, key); err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil
		}
		return apperrors.Wrap(err, "failed to delete artifact")
	}
	return nil
}

func (s *blobArtifactStore) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := s.bucket.List(nil)
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to list artifacts")
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

func (s *blobArtifactStore) Close() error {
	return s.bucket.Close()
}
