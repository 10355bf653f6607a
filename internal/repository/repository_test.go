package repository

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/DavidD95/Prueba-Data-Engineering/internal/config"
	"github.com/DavidD95/Prueba-Data-Engineering/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := InitDB(&config.WarehouseConfig{
		Driver:       "sqlite",
		Path:         filepath.Join(t.TempDir(), "warehouse.db"),
		AutoMigrate:  true,
		MaxIdleConns: 2,
		MaxOpenConns: 4,
	})
	require.NoError(t, err)
	return db
}

func countRows(t *testing.T, w *GormWarehouse, table string) int64 {
	t.Helper()
	rows, err := w.Query(context.Background(), "SELECT COUNT(*) AS n FROM "+table)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	n, ok := rows[0]["n"].(int64)
	require.True(t, ok, "unexpected count type %T", rows[0]["n"])
	return n
}

func TestInitDB_UnsupportedDriver(t *testing.T) {
	_, err := InitDB(&config.WarehouseConfig{Driver: "oracle"})
	assert.Error(t, err)
}

func TestGormWarehouse_EnsureTableConcurrent(t *testing.T) {
	w := NewGormWarehouse(newTestDB(t))
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = w.EnsureTable(ctx, "raw_sales")
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "caller %d", i)
	}
	assert.Equal(t, int64(0), countRows(t, w, "raw_sales"))

	// Cached path
	require.NoError(t, w.EnsureTable(ctx, "raw_sales"))
}

func TestGormWarehouse_RecreatesDroppedTable(t *testing.T) {
	db := newTestDB(t)
	w := NewGormWarehouse(db)
	ctx := context.Background()
	row := []domain.StagingRecord{{Identifier: "a.csv", RawContent: "1", LoadedAt: time.Now().UTC()}}

	require.NoError(t, w.EnsureTable(ctx, "raw_sales"))
	require.NoError(t, db.Exec("DROP TABLE raw_sales").Error)

	// The first insert after the drop is a transport error and resets the cache
	_, err := w.InsertRows(ctx, "raw_sales", row)
	require.Error(t, err)

	require.NoError(t, w.EnsureTable(ctx, "raw_sales"))
	rowErrs, err := w.InsertRows(ctx, "raw_sales", row)
	require.NoError(t, err)
	assert.Empty(t, rowErrs)
	assert.Equal(t, int64(1), countRows(t, w, "raw_sales"))
}

func TestGormWarehouse_InsertAndQuery(t *testing.T) {
	w := NewGormWarehouse(newTestDB(t))
	ctx := context.Background()
	require.NoError(t, w.EnsureTable(ctx, "raw_sales"))

	now := time.Now().UTC()
	rowErrs, err := w.InsertRows(ctx, "raw_sales", []domain.StagingRecord{
		{Identifier: "sales_01.csv", RawContent: "id,amount\n1,10\n", LoadedAt: now},
		{Identifier: "sales_02.csv", RawContent: "id,amount\n2,20\n", LoadedAt: now},
	})
	require.NoError(t, err)
	assert.Empty(t, rowErrs)
	assert.Equal(t, int64(2), countRows(t, w, "raw_sales"))

	rows, err := w.Query(ctx, "SELECT identifier, raw_content FROM raw_sales WHERE identifier = ?", "sales_02.csv")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "id,amount\n2,20\n", rows[0]["raw_content"])
}

func TestGormWarehouse_InsertRejectsInvalidRows(t *testing.T) {
	w := NewGormWarehouse(newTestDB(t))
	ctx := context.Background()
	require.NoError(t, w.EnsureTable(ctx, "raw_sales"))

	tests := []struct {
		name string
		row  domain.StagingRecord
	}{
		{"empty identifier", domain.StagingRecord{RawContent: "x"}},
		{"invalid utf8", domain.StagingRecord{Identifier: "a.csv", RawContent: string([]byte{0xff, 0xfe})}},
		{"nul byte", domain.StagingRecord{Identifier: "a.csv", RawContent: "a\x00b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rowErrs, err := w.InsertRows(ctx, "raw_sales", []domain.StagingRecord{tt.row})
			require.NoError(t, err)
			require.Len(t, rowErrs, 1)
			assert.Equal(t, 0, rowErrs[0].Index)
		})
	}
	assert.Equal(t, int64(0), countRows(t, w, "raw_sales"))
}

func TestGormWarehouse_InsertMissingTableIsTransportError(t *testing.T) {
	w := NewGormWarehouse(newTestDB(t))
	rowErrs, err := w.InsertRows(context.Background(), "does_not_exist", []domain.StagingRecord{
		{Identifier: "a.csv", RawContent: "x", LoadedAt: time.Now()},
	})
	assert.Error(t, err)
	assert.Empty(t, rowErrs)
}

func TestRunRepository_Lifecycle(t *testing.T) {
	repo := NewRunRepository(newTestDB(t))
	ctx := context.Background()

	started := time.Now().Add(-time.Minute)
	run := &domain.RunRecord{ID: "run-1", Bucket: "sales", Status: domain.RunStatusRunning, StartedAt: started}
	require.NoError(t, repo.Create(ctx, run))
	created, err := repo.GetByID(ctx, "run-1")
	require.NoError(t, err)
	require.False(t, created.CreatedAt.IsZero())

	// Finish receives a fresh record, as built from a run report
	done := time.Now()
	run = &domain.RunRecord{ID: "run-1", Bucket: "sales", StartedAt: started}
	run.Status = domain.RunStatusDone
	run.TotalUnits = 2
	run.LoadedUnits = 1
	run.SkippedUnits = 1
	run.ArchivedUnits = 1
	run.CompletedAt = &done
	run.Units = []domain.RunUnitRecord{
		{UnitID: "b.csv", State: domain.UnitStateSkipped, Attempts: 1},
		{UnitID: "a.csv", State: domain.UnitStateArchived, Attempts: 1},
	}
	require.NoError(t, repo.Finish(ctx, run))

	got, err := repo.GetByID(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusDone, got.Status)
	assert.Equal(t, 1, got.ArchivedUnits)
	assert.True(t, got.CreatedAt.Equal(created.CreatedAt), "created_at %v, want %v", got.CreatedAt, created.CreatedAt)
	require.Len(t, got.Units, 2)
	assert.Equal(t, "a.csv", got.Units[0].UnitID)
	assert.Equal(t, domain.UnitStateArchived, got.Units[0].State)

	// Finishing twice replaces unit outcomes instead of duplicating them
	require.NoError(t, repo.Finish(ctx, run))
	got, err = repo.GetByID(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, got.Units, 2)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRunRepository_ListAndMarkStale(t *testing.T) {
	repo := NewRunRepository(newTestDB(t))
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i, id := range []string{"old", "mid", "new"} {
		require.NoError(t, repo.Create(ctx, &domain.RunRecord{
			ID:        id,
			Bucket:    "sales",
			Status:    domain.RunStatusRunning,
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	runs, err := repo.List(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "new", runs[0].ID)
	assert.Equal(t, "mid", runs[1].ID)

	n, err := repo.MarkStale(ctx, "interrupted")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	got, err := repo.GetByID(ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusFailed, got.Status)
	assert.Equal(t, "interrupted", got.ErrorLog)
	assert.NotNil(t, got.CompletedAt)
}
