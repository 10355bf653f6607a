package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/DavidD95/Prueba-Data-Engineering/internal/config"
	"github.com/DavidD95/Prueba-Data-Engineering/internal/domain"
	"github.com/DavidD95/Prueba-Data-Engineering/internal/runner"
	"github.com/DavidD95/Prueba-Data-Engineering/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Warehouse: config.WarehouseConfig{
			Driver:       "sqlite",
			Path:         filepath.Join(t.TempDir(), "warehouse.db"),
			StagingTable: "raw_sales",
			AutoMigrate:  true,
			MaxIdleConns: 1,
			MaxOpenConns: 1,
		},
		Pipeline: config.PipelineConfig{
			Bucket:        "sales",
			ArchivePrefix: "archive/",
			Workers:       2,
			FailurePolicy: config.FailurePolicyPartial,
			Retry:         config.RetryConfig{MaxAttempts: 1},
		},
		Transform: config.TransformConfig{
			Engine:      config.TransformEngineExec,
			RunCommand:  "dbt run",
			TestCommand: "dbt test",
		},
	}
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Pipeline.Bucket = ""
	_, err := New(context.Background(), cfg, nil, WithStorage(testutil.NewMemoryStorage()))
	assert.ErrorContains(t, err, "invalid config")
}

func TestNew_SelectsRunnerByEngine(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(context.Background(), cfg, nil, WithStorage(testutil.NewMemoryStorage()))
	require.NoError(t, err)
	defer a.Close()
	assert.IsType(t, &runner.ExecRunner{}, a.Runner)
	assert.NoError(t, a.Ping(context.Background()))

	cfg = testConfig(t)
	cfg.Transform.Engine = config.TransformEngineSQL
	b, err := New(context.Background(), cfg, nil, WithStorage(testutil.NewMemoryStorage()))
	require.NoError(t, err)
	defer b.Close()
	assert.IsType(t, &runner.SQLRunner{}, b.Runner)
}

func TestNew_EnsuresSeparateArchiveBucket(t *testing.T) {
	store := testutil.NewMemoryStorage()
	cfg := testConfig(t)
	cfg.Pipeline.ArchiveBucket = "sales-archive"

	a, err := New(context.Background(), cfg, nil, WithStorage(store))
	require.NoError(t, err)
	defer a.Close()
	assert.Equal(t, []string{"sales-archive/"}, store.Calls(testutil.OpEnsureBucket))
}

func TestApp_RunEndToEnd(t *testing.T) {
	store := testutil.NewMemoryStorage()
	store.Put("sales", "2025-06-01.json", []byte(`{"total": 10}`))
	store.Put("sales", "2025-06-02.json", []byte(`{"total": 12}`))
	fake := testutil.NewFakeRunner()

	a, err := New(context.Background(), testConfig(t), nil, WithStorage(store), WithRunner(fake))
	require.NoError(t, err)
	defer a.Close()

	report, err := a.Orchestrator.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusDone, report.Status)
	assert.Equal(t, []string{"dbt run", "dbt test"}, fake.Calls())
	assert.Equal(t, []string{"archive/2025-06-01.json", "archive/2025-06-02.json"}, store.Keys("sales"))

	rows, err := a.Warehouse.Query(context.Background(), "SELECT COUNT(*) AS n FROM raw_sales")
	require.NoError(t, err)
	assert.EqualValues(t, 2, rows[0]["n"])

	run, err := a.Runs.GetByID(context.Background(), report.RunID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusDone, run.Status)
	assert.Equal(t, 2, run.ArchivedUnits)
	assert.Len(t, run.Units, 2)
}
