package storage

import (
	"context"
	"errors"
)

// ErrObjectNotFound is returned by Read when the key does not exist.
var ErrObjectNotFound = errors.New("storage: object not found")

// ObjectStorage defines the object-store operations the pipeline depends on.
// Buckets are passed per call so one client can serve both the active and
// the archive namespace.
type ObjectStorage interface {
	// EnsureBucket creates the bucket if it doesn't exist
	EnsureBucket(ctx context.Context, bucket string) error

	// List returns every key in the bucket in lexicographic order
	List(ctx context.Context, bucket string) ([]string, error)

	// Read returns the full object body, or ErrObjectNotFound
	Read(ctx context.Context, bucket, key string) ([]byte, error)

	// Exists checks if an object exists
	Exists(ctx context.Context, bucket, key string) (bool, error)

	// Copy copies an object, overwriting the destination if present
	Copy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error

	// Delete deletes an object from storage
	Delete(ctx context.Context, bucket, key string) error
}
