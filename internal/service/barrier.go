package service

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/DavidD95/Prueba-Data-Engineering/internal/domain"
	"github.com/DavidD95/Prueba-Data-Engineering/internal/logger"
	"golang.org/x/sync/errgroup"
)

// UnitTask processes one unit and reports its terminal outcome.
type UnitTask func(ctx context.Context, unitID string) domain.UnitOutcome

// Barrier fans unit tasks out over a bounded pool of workers.
type Barrier struct {
	workers int
}

// NewBarrier creates a Barrier running at most workers tasks at once.
func NewBarrier(workers int) *Barrier {
	if workers < 1 {
		workers = 1
	}
	return &Barrier{workers: workers}
}

// Join is the handle for one fan-out. Wait is the only way to read outcomes.
type Join struct {
	outcomes []domain.UnitOutcome
	done     chan struct{}
}

// Launch starts task for every id and returns immediately. A panicking task
// is recorded with failState instead of crashing the run.
func (b *Barrier) Launch(ctx context.Context, ids []string, failState domain.UnitState, task UnitTask) *Join {
	j := &Join{
		outcomes: make([]domain.UnitOutcome, len(ids)),
		done:     make(chan struct{}),
	}

	go func() {
		defer close(j.done)

		var g errgroup.Group
		g.SetLimit(b.workers)
		for i, id := range ids {
			g.Go(func() error {
				// Each task owns exactly one slot
				j.outcomes[i] = runTask(ctx, id, failState, task)
				return nil
			})
		}
		_ = g.Wait()
	}()

	return j
}

// Wait blocks until every launched task reached a terminal outcome.
// Outcomes are in launch order regardless of completion order.
func (j *Join) Wait() []domain.UnitOutcome {
	<-j.done
	return j.outcomes
}

// Done is closed once every task finished.
func (j *Join) Done() <-chan struct{} {
	return j.done
}

func runTask(ctx context.Context, id string, failState domain.UnitState, task UnitTask) (out domain.UnitOutcome) {
	defer func() {
		if r := recover(); r != nil {
			logger.CtxError(logger.SetUnitID(ctx, id), "Unit task panic recovered: %v\n%s", r, debug.Stack())
			out = domain.UnitOutcome{
				UnitID: id,
				State:  failState,
				Err:    fmt.Errorf("unit task panicked: %v", r),
			}
		}
	}()

	out = task(ctx, id)
	if out.UnitID == "" {
		out.UnitID = id
	}
	return out
}
