package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DavidD95/Prueba-Data-Engineering/internal/domain"
	"github.com/DavidD95/Prueba-Data-Engineering/internal/logger"
	"github.com/DavidD95/Prueba-Data-Engineering/internal/repository"
	"github.com/DavidD95/Prueba-Data-Engineering/internal/storage"
)

// Loader appends one unit's raw content to the staging table.
type Loader struct {
	storage   storage.ObjectStorage
	warehouse repository.Warehouse
	bucket    string
	table     string
	retry     RetryPolicy
	now       func() time.Time
}

// NewLoader creates a new Loader.
func NewLoader(store storage.ObjectStorage, warehouse repository.Warehouse, bucket, table string, retry RetryPolicy) *Loader {
	return &Loader{
		storage:   store,
		warehouse: warehouse,
		bucket:    bucket,
		table:     table,
		retry:     retry,
		now:       time.Now,
	}
}

// Load stages one unit. It never returns an error: the outcome carries the
// terminal state (loaded, skipped or load_failed) and the cause.
func (l *Loader) Load(ctx context.Context, unitID string) domain.UnitOutcome {
	ctx = logger.SetUnitID(ctx, unitID)
	start := time.Now()

	attempts, err := l.retry.Do(ctx, func(ctx context.Context, attempt int) error {
		err := l.loadOnce(ctx, unitID)
		if err != nil && !errors.Is(err, ErrUnitVanished) && !IsPermanent(err) {
			logger.With(logger.Fields{logger.FieldComponent: "loader"}).
				WithAttempt(attempt).
				Warn(ctx, "Load attempt failed: %v", err)
		}
		return err
	})

	out := domain.UnitOutcome{
		UnitID:   unitID,
		Attempts: attempts,
		Duration: time.Since(start),
	}
	switch {
	case err == nil:
		out.State = domain.UnitStateLoaded
	case errors.Is(err, ErrUnitVanished):
		out.State = domain.UnitStateSkipped
		out.Err = err
	default:
		out.State = domain.UnitStateLoadFailed
		out.Err = fmt.Errorf("%w: %s: %w", ErrUnitLoad, unitID, err)
	}

	entry := logger.With(logger.Fields{logger.FieldComponent: "loader"}).
		WithStatus(string(out.State)).
		WithAttempt(attempts).
		WithDuration(out.Duration)
	switch out.State {
	case domain.UnitStateLoaded:
		entry.Info(ctx, "Unit loaded")
	case domain.UnitStateSkipped:
		entry.Warn(ctx, "Unit skipped: %v", out.Err)
	default:
		entry.Error(ctx, "Unit load failed: %v", out.Err)
	}
	return out
}

// loadOnce is a single attempt. Row rejections are returned as permanent.
func (l *Loader) loadOnce(ctx context.Context, unitID string) error {
	exists, err := l.storage.Exists(ctx, l.bucket, unitID)
	if err != nil {
		return fmt.Errorf("failed to check existence: %w", err)
	}
	if !exists {
		return ErrUnitVanished
	}

	data, err := l.storage.Read(ctx, l.bucket, unitID)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return ErrUnitVanished
		}
		return fmt.Errorf("failed to read object: %w", err)
	}

	if err := l.warehouse.EnsureTable(ctx, l.table); err != nil {
		return fmt.Errorf("failed to ensure staging table: %w", err)
	}

	rowErrs, err := l.warehouse.InsertRows(ctx, l.table, []domain.StagingRecord{{
		Identifier: unitID,
		RawContent: string(data),
		LoadedAt:   l.now().UTC(),
	}})
	if err != nil {
		return fmt.Errorf("failed to insert staging row: %w", err)
	}
	if len(rowErrs) > 0 {
		errs := make([]error, len(rowErrs))
		for i, re := range rowErrs {
			errs[i] = re
		}
		return Permanent(fmt.Errorf("warehouse rejected %d rows: %w", len(rowErrs), errors.Join(errs...)))
	}

	logger.With(logger.Fields{logger.FieldComponent: "loader"}).
		WithSize(len(data)).
		Debug(ctx, "Staged %s into %s", unitID, l.table)
	return nil
}
