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

func TestArchiver_CopyThenDelete(t *testing.T) {
	store := testutil.NewMemoryStorage()
	store.Put("sales", "a.csv", []byte("x"))
	a := NewArchiver(store, "sales", "", "archive/")

	out := a.Archive(context.Background(), "a.csv")
	require.NoError(t, out.Err)
	assert.Equal(t, domain.UnitStateArchived, out.State)

	assert.False(t, store.Has("sales", "a.csv"))
	assert.True(t, store.Has("sales", "archive/a.csv"))
	assert.Equal(t, []string{
		"exists sales/a.csv",
		"copy sales/a.csv",
		"delete sales/a.csv",
	}, store.Log())
}

func TestArchiver_SeparateBucket(t *testing.T) {
	store := testutil.NewMemoryStorage()
	store.Put("sales", "a.csv", []byte("x"))

	out := NewArchiver(store, "sales", "sales-archive", "").Archive(context.Background(), "a.csv")
	require.NoError(t, out.Err)
	assert.True(t, store.Has("sales-archive", "a.csv"))
	assert.Empty(t, store.Keys("sales"))
}

func TestArchiver_CopyFailureNeverDeletes(t *testing.T) {
	store := testutil.NewMemoryStorage()
	store.Put("sales", "a.csv", []byte("x"))
	store.Fail(testutil.OpCopy, "a.csv", errors.New("quota exceeded"), -1)

	out := NewArchiver(store, "sales", "", "archive/").Archive(context.Background(), "a.csv")
	assert.Equal(t, domain.UnitStateArchiveFailed, out.State)
	assert.ErrorIs(t, out.Err, ErrArchive)
	assert.True(t, store.Has("sales", "a.csv"))
	assert.Empty(t, store.Calls(testutil.OpDelete))
}

func TestArchiver_CrashBetweenCopyAndDeleteIsRecoverable(t *testing.T) {
	store := testutil.NewMemoryStorage()
	store.Put("sales", "a.csv", []byte("payload"))
	store.Fail(testutil.OpDelete, "a.csv", errors.New("process killed"), 1)
	a := NewArchiver(store, "sales", "", "archive/")

	out := a.Archive(context.Background(), "a.csv")
	assert.Equal(t, domain.UnitStateArchiveFailed, out.State)
	// Nothing lost: both copies exist
	assert.True(t, store.Has("sales", "a.csv"))
	assert.True(t, store.Has("sales", "archive/a.csv"))

	out = a.Archive(context.Background(), "a.csv")
	require.NoError(t, out.Err)
	assert.False(t, store.Has("sales", "a.csv"))
	assert.True(t, store.Has("sales", "archive/a.csv"))
}

func TestArchiver_Idempotent(t *testing.T) {
	store := testutil.NewMemoryStorage()
	store.Put("sales", "a.csv", []byte("x"))
	a := NewArchiver(store, "sales", "", "archive/")

	require.NoError(t, a.Archive(context.Background(), "a.csv").Err)
	second := a.Archive(context.Background(), "a.csv")

	require.NoError(t, second.Err)
	assert.Equal(t, domain.UnitStateArchived, second.State)
	assert.Equal(t, []string{"archive/a.csv"}, store.Keys("sales"))
	assert.Len(t, store.Calls(testutil.OpCopy), 1)
}

func TestArchiver_MissingEverywhereFails(t *testing.T) {
	store := testutil.NewMemoryStorage()
	out := NewArchiver(store, "sales", "", "archive/").Archive(context.Background(), "ghost.csv")
	assert.Equal(t, domain.UnitStateArchiveFailed, out.State)
	assert.ErrorIs(t, out.Err, ErrArchive)
}
