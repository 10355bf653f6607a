package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/DavidD95/Prueba-Data-Engineering/internal/domain"
	"github.com/DavidD95/Prueba-Data-Engineering/internal/logger"
	"github.com/DavidD95/Prueba-Data-Engineering/internal/storage"
)

// Discovery lists the units waiting in the active bucket.
type Discovery struct {
	storage       storage.ObjectStorage
	bucket        string
	archiveBucket string
	archivePrefix string
}

// NewDiscovery creates a Discovery. Keys under archivePrefix are only
// excluded when archives share the active bucket.
func NewDiscovery(store storage.ObjectStorage, bucket, archiveBucket, archivePrefix string) *Discovery {
	if archiveBucket == "" {
		archiveBucket = bucket
	}
	return &Discovery{
		storage:       store,
		bucket:        bucket,
		archiveBucket: archiveBucket,
		archivePrefix: archivePrefix,
	}
}

// Discover returns a batch of every unarchived key, sorted. An empty batch
// is a normal outcome; a listing error wraps ErrDiscovery.
func (d *Discovery) Discover(ctx context.Context, runID string) (*domain.Batch, error) {
	start := time.Now()
	keys, err := d.storage.List(ctx, d.bucket)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %w", ErrDiscovery, d.bucket, err)
	}

	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		if d.eligible(key) {
			ids = append(ids, key)
		}
	}
	sort.Strings(ids)

	logger.With(logger.Fields{
		logger.FieldComponent: "discovery",
		"listed":              len(keys),
	}).WithCount(len(ids)).WithDuration(time.Since(start)).Info(ctx, "Discovered %d units in %s", len(ids), d.bucket)

	return domain.NewBatch(runID, d.bucket, ids, time.Now()), nil
}

func (d *Discovery) eligible(key string) bool {
	if key == "" || strings.HasSuffix(key, "/") {
		return false
	}
	if d.archiveBucket == d.bucket && d.archivePrefix != "" && strings.HasPrefix(key, d.archivePrefix) {
		return false
	}
	return true
}
