package service

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/DavidD95/Prueba-Data-Engineering/internal/config"
	"github.com/DavidD95/Prueba-Data-Engineering/internal/domain"
	"github.com/DavidD95/Prueba-Data-Engineering/internal/logger"
	"github.com/DavidD95/Prueba-Data-Engineering/internal/repository"
	"github.com/DavidD95/Prueba-Data-Engineering/internal/runner"
	"github.com/DavidD95/Prueba-Data-Engineering/internal/storage"
	"github.com/google/uuid"
)

// Options configures an Orchestrator.
type Options struct {
	Bucket        string
	ArchiveBucket string
	ArchivePrefix string
	StagingTable  string
	Workers       int
	FailurePolicy string
	Retry         RetryPolicy
	Transform     config.TransformConfig
}

// OptionsFromConfig maps the pipeline, warehouse and transform sections.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Bucket:        cfg.Pipeline.Bucket,
		ArchiveBucket: cfg.Pipeline.ArchiveBucket,
		ArchivePrefix: cfg.Pipeline.ArchivePrefix,
		StagingTable:  cfg.Warehouse.StagingTable,
		Workers:       cfg.Pipeline.Workers,
		FailurePolicy: cfg.Pipeline.FailurePolicy,
		Retry:         NewRetryPolicy(cfg.Pipeline.Retry),
		Transform:     cfg.Transform,
	}
}

// RunLedger persists run summaries.
type RunLedger interface {
	Create(ctx context.Context, run *domain.RunRecord) error
	Finish(ctx context.Context, run *domain.RunRecord) error
}

// Notifier is told about every finished run.
type Notifier interface {
	NotifyRun(ctx context.Context, run *domain.RunRecord) error
}

// Orchestrator sequences one batch run: discovery, per-unit loads, the
// barrier, the transform stage and per-unit archival.
type Orchestrator struct {
	discovery *Discovery
	loader    *Loader
	barrier   *Barrier
	transform *TransformStage
	archiver  *Archiver

	opts     Options
	ledger   RunLedger
	notifier Notifier
	recorder *StateRecorder
	logger   *logger.Logger

	running  atomic.Bool
	newRunID func() string
}

// NewOrchestrator creates a new Orchestrator.
func NewOrchestrator(
	store storage.ObjectStorage,
	warehouse repository.Warehouse,
	transformRunner runner.Runner,
	opts Options,
	log *logger.Logger,
) *Orchestrator {
	if log == nil {
		log = logger.GetDefault()
	}
	return &Orchestrator{
		discovery: NewDiscovery(store, opts.Bucket, opts.ArchiveBucket, opts.ArchivePrefix),
		loader:    NewLoader(store, warehouse, opts.Bucket, opts.StagingTable, opts.Retry),
		barrier:   NewBarrier(opts.Workers),
		transform: NewTransformStage(transformRunner, opts.Transform),
		archiver:  NewArchiver(store, opts.Bucket, opts.ArchiveBucket, opts.ArchivePrefix),
		opts:      opts,
		logger:    log,
		newRunID:  uuid.NewString,
	}
}

// SetLedger enables best-effort run persistence.
func (o *Orchestrator) SetLedger(l RunLedger) { o.ledger = l }

// SetNotifier enables best-effort completion notifications.
func (o *Orchestrator) SetNotifier(n Notifier) { o.notifier = n }

// SetRecorder records every state transition.
func (o *Orchestrator) SetRecorder(r *StateRecorder) { o.recorder = r }

// Running reports whether a run is in flight.
func (o *Orchestrator) Running() bool { return o.running.Load() }

// Run executes one batch run. The report is always returned once the run
// started; the error is non-nil only for fatal outcomes (transform failure,
// discovery failure, policy abort, cancellation) or ErrRunInProgress.
func (o *Orchestrator) Run(ctx context.Context) (*RunReport, error) {
	if !o.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer o.running.Store(false)

	report := &RunReport{
		RunID:     o.newRunID(),
		Bucket:    o.opts.Bucket,
		StartedAt: time.Now(),
	}
	ctx = o.logger.WithContext(ctx)
	ctx = logger.SetRunID(ctx, report.RunID)
	ctx = logger.SetBucket(ctx, o.opts.Bucket)

	o.recordStart(ctx, report)
	o.execute(ctx, report)
	report.CompletedAt = time.Now()
	o.recordFinish(ctx, report)

	if report.Status.Fatal() {
		return report, report.Err
	}
	return report, nil
}

func (o *Orchestrator) execute(ctx context.Context, report *RunReport) {
	var state State = &IdleState{}
	o.enter(ctx, report, state)

	defer func() {
		if r := recover(); r != nil {
			logger.CtxError(ctx, "Orchestrator panic recovered: %v\n%s", r, debug.Stack())
			report.Err = fmt.Errorf("orchestrator panic in %s: %v", state.Name(), r)
			failed := &FailedState{}
			o.enter(ctx, report, failed)
			o.finish(ctx, report, failed)
		}
	}()

	var batch *domain.Batch
	var loads *Join

	for {
		switch s := state.(type) {
		case *IdleState:
			if err := ctx.Err(); err != nil {
				report.Err = err
				state = s.ToFailed()
			} else {
				state = s.ToDiscovering()
			}

		case *DiscoveringState:
			if err := ctx.Err(); err != nil {
				report.Err = err
				state = s.ToFailed()
				break
			}
			b, err := o.discovery.Discover(logger.SetStage(ctx, s.Name()), report.RunID)
			switch {
			case err != nil:
				report.Err = err
				state = s.ToFailed()
			case b.Len() == 0:
				state = s.ToNoWork()
			default:
				batch = b
				state = s.ToLoading()
			}

		case *LoadingState:
			if err := ctx.Err(); err != nil {
				report.Err = err
				state = s.ToFailed()
				break
			}
			loads = o.barrier.Launch(logger.SetStage(ctx, s.Name()), batch.IDs(), domain.UnitStateLoadFailed, o.loader.Load)
			state = s.ToBarrierWait()

		case *BarrierWaitState:
			// Always join, even when cancelled, so no loader outlives the run
			report.Units = loads.Wait()
			state = o.decide(ctx, s, report)

		case *TransformingState:
			if err := ctx.Err(); err != nil {
				report.Err = err
				state = s.ToFailed()
				break
			}
			result, err := o.transform.Execute(logger.SetStage(ctx, s.Name()))
			report.Transform = result
			switch {
			case ctx.Err() != nil:
				report.Err = fmt.Errorf("transform interrupted: %w", ctx.Err())
				state = s.ToFailed()
			case err != nil:
				report.Err = err
				state = s.ToTransformFailed()
			default:
				state = s.ToArchiving()
			}

		case *ArchivingState:
			if err := ctx.Err(); err != nil {
				report.Err = err
				state = s.ToFailed()
				break
			}
			o.archive(logger.SetStage(ctx, s.Name()), report)
			if err := ctx.Err(); err != nil {
				report.Err = fmt.Errorf("archival interrupted: %w", err)
				state = s.ToFailed()
			} else {
				state = s.ToDone()
			}

		case TerminalState:
			o.finish(ctx, report, s)
			return
		}

		o.enter(ctx, report, state)
	}
}

// decide applies the failure policy once every loader finished.
func (o *Orchestrator) decide(ctx context.Context, s *BarrierWaitState, report *RunReport) State {
	if err := ctx.Err(); err != nil {
		report.Err = fmt.Errorf("load interrupted: %w", err)
		return s.ToFailed()
	}

	loaded := report.Count(domain.UnitStateLoaded)
	failed := report.Count(domain.UnitStateLoadFailed)

	logger.With(logger.Fields{
		"loaded":  loaded,
		"skipped": report.Count(domain.UnitStateSkipped),
		"failed":  failed,
	}).WithCount(len(report.Units)).Info(ctx, "Barrier released")

	if o.opts.FailurePolicy == config.FailurePolicyStrict && failed > 0 {
		report.Err = fmt.Errorf("%w: %d of %d units failed to load under strict policy",
			ErrBatchAborted, failed, len(report.Units))
		return s.ToFailed()
	}
	if loaded == 0 {
		return s.ToSkipTransform()
	}
	return s.ToTransforming()
}

// archive relocates loaded units and folds the results into their outcomes.
func (o *Orchestrator) archive(ctx context.Context, report *RunReport) {
	var ids []string
	var positions []int
	for i, u := range report.Units {
		if u.State == domain.UnitStateLoaded {
			ids = append(ids, u.UnitID)
			positions = append(positions, i)
		}
	}

	outcomes := o.barrier.Launch(ctx, ids, domain.UnitStateArchiveFailed, o.archiver.Archive).Wait()
	for k, out := range outcomes {
		u := &report.Units[positions[k]]
		u.State = out.State
		u.Err = out.Err
		u.Duration += out.Duration
	}
}

func (o *Orchestrator) enter(ctx context.Context, report *RunReport, state State) {
	report.Path = append(report.Path, state.Name())
	if o.recorder != nil {
		o.recorder.Record(state)
	}
	logger.CtxDebug(ctx, "Entering state %s", state.Name())
}

func (o *Orchestrator) finish(ctx context.Context, report *RunReport, s TerminalState) {
	report.State = s.Name()
	report.Status = s.Status()

	entry := logger.With(logger.Fields{
		"loaded":   report.Loaded(),
		"skipped":  report.Count(domain.UnitStateSkipped),
		"failed":   report.Count(domain.UnitStateLoadFailed),
		"archived": report.Count(domain.UnitStateArchived),
	}).WithStatus(string(report.Status)).
		WithCount(len(report.Units)).
		WithDuration(time.Since(report.StartedAt))

	if report.Status.Fatal() {
		entry.Error(ctx, "Run finished in %s: %v", s.Name(), report.Err)
		return
	}
	entry.Info(ctx, "Run finished in %s", s.Name())
}

func (o *Orchestrator) recordStart(ctx context.Context, report *RunReport) {
	if o.ledger == nil {
		return
	}
	rec := &domain.RunRecord{
		ID:        report.RunID,
		Bucket:    report.Bucket,
		Status:    domain.RunStatusRunning,
		StartedAt: report.StartedAt,
	}
	if err := o.ledger.Create(context.WithoutCancel(ctx), rec); err != nil {
		logger.FromContext(ctx).WithError(err).Warn("Failed to record run start")
	}
}

func (o *Orchestrator) recordFinish(ctx context.Context, report *RunReport) {
	if o.ledger == nil && o.notifier == nil {
		return
	}
	rec := report.Record()
	ctx = context.WithoutCancel(ctx)

	if o.ledger != nil {
		if err := o.ledger.Finish(ctx, rec); err != nil {
			logger.FromContext(ctx).WithError(err).Warn("Failed to record run result")
		}
	}
	if o.notifier != nil {
		if err := o.notifier.NotifyRun(ctx, rec); err != nil {
			logger.FromContext(ctx).WithError(err).Warn("Failed to send run notification")
		}
	}
}
