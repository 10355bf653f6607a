package service

import (
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DavidD95/Prueba-Data-Engineering/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBarrier_WaitsForEveryTask(t *testing.T) {
	ids := make([]string, 20)
	for i := range ids {
		ids[i] = fmt.Sprintf("unit-%02d", i)
	}

	var finished atomic.Int32
	task := func(ctx context.Context, id string) domain.UnitOutcome {
		time.Sleep(time.Duration(rand.Intn(5)) * time.Millisecond)
		finished.Add(1)
		return domain.UnitOutcome{UnitID: id, State: domain.UnitStateLoaded}
	}

	outcomes := NewBarrier(4).Launch(context.Background(), ids, domain.UnitStateLoadFailed, task).Wait()

	assert.Equal(t, int32(len(ids)), finished.Load())
	require.Len(t, outcomes, len(ids))
	for i, out := range outcomes {
		assert.Equal(t, ids[i], out.UnitID, "outcomes keep launch order")
		assert.Equal(t, domain.UnitStateLoaded, out.State)
	}
}

func TestBarrier_BoundsConcurrency(t *testing.T) {
	var active, peak atomic.Int32
	task := func(ctx context.Context, id string) domain.UnitOutcome {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		active.Add(-1)
		return domain.UnitOutcome{UnitID: id, State: domain.UnitStateLoaded}
	}

	ids := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	NewBarrier(3).Launch(context.Background(), ids, domain.UnitStateLoadFailed, task).Wait()
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestBarrier_RecoversPanics(t *testing.T) {
	task := func(ctx context.Context, id string) domain.UnitOutcome {
		if id == "boom" {
			panic("unexpected nil")
		}
		return domain.UnitOutcome{UnitID: id, State: domain.UnitStateArchived}
	}

	outcomes := NewBarrier(2).Launch(context.Background(), []string{"ok", "boom"}, domain.UnitStateArchiveFailed, task).Wait()
	assert.Equal(t, domain.UnitStateArchived, outcomes[0].State)
	assert.Equal(t, domain.UnitStateArchiveFailed, outcomes[1].State)
	assert.ErrorContains(t, outcomes[1].Err, "unexpected nil")
}

func TestBarrier_EmptyAndDone(t *testing.T) {
	j := NewBarrier(2).Launch(context.Background(), nil, domain.UnitStateLoadFailed, nil)
	select {
	case <-j.Done():
	case <-time.After(time.Second):
		t.Fatal("empty join never completed")
	}
	assert.Empty(t, j.Wait())
}
