package service

import (
	"context"
	"errors"
	"testing"

	"github.com/DavidD95/Prueba-Data-Engineering/internal/domain"
	"github.com/DavidD95/Prueba-Data-Engineering/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscovery_FiltersAndSorts(t *testing.T) {
	store := testutil.NewMemoryStorage()
	for _, key := range []string{"b.csv", "archive/old.csv", "a.csv", "incoming/", "incoming/c.csv"} {
		store.Put("sales", key, []byte("x"))
	}

	batch, err := NewDiscovery(store, "sales", "", "archive/").Discover(context.Background(), "run-1")
	require.NoError(t, err)

	assert.Equal(t, []string{"a.csv", "b.csv", "incoming/c.csv"}, batch.IDs())
	assert.Equal(t, "run-1", batch.RunID)
	for _, u := range batch.Units {
		assert.Equal(t, domain.UnitStateDiscovered, u.State)
	}
}

func TestDiscovery_SeparateArchiveBucketKeepsPrefix(t *testing.T) {
	store := testutil.NewMemoryStorage()
	store.Put("sales", "archive/a.csv", []byte("x"))

	batch, err := NewDiscovery(store, "sales", "sales-archive", "archive/").Discover(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"archive/a.csv"}, batch.IDs())
}

func TestDiscovery_Empty(t *testing.T) {
	batch, err := NewDiscovery(testutil.NewMemoryStorage(), "sales", "", "archive/").Discover(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, 0, batch.Len())
}

func TestDiscovery_ListErrorIsFatal(t *testing.T) {
	store := testutil.NewMemoryStorage()
	store.Fail(testutil.OpList, "", errors.New("access denied"), -1)

	_, err := NewDiscovery(store, "sales", "", "archive/").Discover(context.Background(), "run-1")
	assert.ErrorIs(t, err, ErrDiscovery)
	assert.Contains(t, err.Error(), "access denied")
}
