package repository

import (
	"context"
	"time"

	"github.com/DavidD95/Prueba-Data-Engineering/internal/domain"
	"gorm.io/gorm"
)

// RunRepository persists the run ledger.
type RunRepository struct {
	db *gorm.DB
}

// NewRunRepository creates a new RunRepository.
func NewRunRepository(db *gorm.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a run in its starting state. Units are written by Finish.
func (r *RunRepository) Create(ctx context.Context, run *domain.RunRecord) error {
	return r.db.WithContext(ctx).Omit("Units").Create(run).Error
}

// Finish stores the final counters and per-unit outcomes of a run.
// created_at is left as written by Create.
func (r *RunRepository) Finish(ctx context.Context, run *domain.RunRecord) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Units", "CreatedAt").Save(run).Error; err != nil {
			return err
		}
		if err := tx.Where("run_id = ?", run.ID).Delete(&domain.RunUnitRecord{}).Error; err != nil {
			return err
		}
		if len(run.Units) == 0 {
			return nil
		}
		for i := range run.Units {
			run.Units[i].ID = 0
			run.Units[i].RunID = run.ID
		}
		return tx.Create(&run.Units).Error
	})
}

// GetByID retrieves a run with its unit outcomes.
func (r *RunRepository) GetByID(ctx context.Context, id string) (*domain.RunRecord, error) {
	var run domain.RunRecord
	err := r.db.WithContext(ctx).
		Preload("Units", func(db *gorm.DB) *gorm.DB { return db.Order("unit_id ASC") }).
		First(&run, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// List returns runs newest first, without unit outcomes.
func (r *RunRepository) List(ctx context.Context, limit, offset int) ([]domain.RunRecord, error) {
	var runs []domain.RunRecord
	err := r.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&runs).Error
	return runs, err
}

// MarkStale fails runs still recorded as running, e.g. after a crash.
func (r *RunRepository) MarkStale(ctx context.Context, reason string) (int64, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&domain.RunRecord{}).
		Where("status = ?", domain.RunStatusRunning).
		Updates(map[string]interface{}{
			"status":       domain.RunStatusFailed,
			"error_log":    reason,
			"completed_at": &now,
		})
	return result.RowsAffected, result.Error
}
