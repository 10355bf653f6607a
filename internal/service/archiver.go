package service

import (
	"context"
	"fmt"
	"time"

	"github.com/DavidD95/Prueba-Data-Engineering/internal/domain"
	"github.com/DavidD95/Prueba-Data-Engineering/internal/logger"
	"github.com/DavidD95/Prueba-Data-Engineering/internal/storage"
)

// Archiver relocates processed units from the active bucket to the archive.
type Archiver struct {
	storage       storage.ObjectStorage
	bucket        string
	archiveBucket string
	archivePrefix string
}

// NewArchiver creates an Archiver. An empty archiveBucket archives in place
// under archivePrefix.
func NewArchiver(store storage.ObjectStorage, bucket, archiveBucket, archivePrefix string) *Archiver {
	if archiveBucket == "" {
		archiveBucket = bucket
	}
	return &Archiver{
		storage:       store,
		bucket:        bucket,
		archiveBucket: archiveBucket,
		archivePrefix: archivePrefix,
	}
}

// ArchiveKey returns the key a unit is archived under.
func (a *Archiver) ArchiveKey(unitID string) string {
	return a.archivePrefix + unitID
}

// Archive copies the unit to the archive and then deletes the original.
// The original is never deleted unless the copy succeeded. Archiving a unit
// whose original is gone but whose archive copy exists is a no-op.
func (a *Archiver) Archive(ctx context.Context, unitID string) domain.UnitOutcome {
	ctx = logger.SetUnitID(ctx, unitID)
	start := time.Now()
	dstKey := a.ArchiveKey(unitID)

	out := domain.UnitOutcome{UnitID: unitID, Attempts: 1}
	fail := func(cause error) domain.UnitOutcome {
		out.State = domain.UnitStateArchiveFailed
		out.Err = fmt.Errorf("%w: %s: %w", ErrArchive, unitID, cause)
		out.Duration = time.Since(start)
		logger.With(logger.Fields{logger.FieldComponent: "archiver"}).
			WithStatus(string(out.State)).
			Error(ctx, "%v", out.Err)
		return out
	}

	exists, err := a.storage.Exists(ctx, a.bucket, unitID)
	if err != nil {
		return fail(fmt.Errorf("check source: %w", err))
	}

	if !exists {
		archived, err := a.storage.Exists(ctx, a.archiveBucket, dstKey)
		if err != nil {
			return fail(fmt.Errorf("check archive copy: %w", err))
		}
		if !archived {
			return fail(fmt.Errorf("source missing and no archive copy at %s/%s", a.archiveBucket, dstKey))
		}
		out.State = domain.UnitStateArchived
		out.Duration = time.Since(start)
		logger.CtxInfo(ctx, "Unit already archived at %s/%s", a.archiveBucket, dstKey)
		return out
	}

	if err := a.storage.Copy(ctx, a.bucket, unitID, a.archiveBucket, dstKey); err != nil {
		return fail(fmt.Errorf("copy to %s/%s: %w", a.archiveBucket, dstKey, err))
	}
	if err := a.storage.Delete(ctx, a.bucket, unitID); err != nil {
		// The archive copy exists; the next run re-copies and retries the delete
		return fail(fmt.Errorf("delete original after copy: %w", err))
	}

	out.State = domain.UnitStateArchived
	out.Duration = time.Since(start)
	logger.With(logger.Fields{logger.FieldComponent: "archiver"}).
		WithStatus(string(out.State)).
		WithDuration(out.Duration).
		Info(ctx, "Unit archived to %s/%s", a.archiveBucket, dstKey)
	return out
}
