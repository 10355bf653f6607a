package service

import (
	"sync"

	"github.com/DavidD95/Prueba-Data-Engineering/internal/domain"
)

// State is one step of an orchestrator run. Each state exposes only its
// legal successors as To* methods, so transitions are strictly forward.
type State interface {
	Name() string
}

// TerminalState ends a run and maps to the persisted run status.
type TerminalState interface {
	State
	Status() domain.RunStatus
}

// IdleState - run created, nothing done yet
type IdleState struct{}

func (s *IdleState) Name() string                     { return "idle" }
func (s *IdleState) ToDiscovering() *DiscoveringState { return &DiscoveringState{} }
func (s *IdleState) ToFailed() *FailedState           { return &FailedState{} }

// DiscoveringState - listing the active bucket
type DiscoveringState struct{}

func (s *DiscoveringState) Name() string             { return "discovering" }
func (s *DiscoveringState) ToNoWork() *NoWorkState   { return &NoWorkState{} }
func (s *DiscoveringState) ToLoading() *LoadingState { return &LoadingState{} }
func (s *DiscoveringState) ToFailed() *FailedState   { return &FailedState{} }

// LoadingState - unit loaders launched
type LoadingState struct{}

func (s *LoadingState) Name() string                     { return "loading" }
func (s *LoadingState) ToBarrierWait() *BarrierWaitState { return &BarrierWaitState{} }
func (s *LoadingState) ToFailed() *FailedState           { return &FailedState{} }

// BarrierWaitState - joining every loader and deciding eligibility
type BarrierWaitState struct{}

func (s *BarrierWaitState) Name() string                         { return "barrier_wait" }
func (s *BarrierWaitState) ToSkipTransform() *SkipTransformState { return &SkipTransformState{} }
func (s *BarrierWaitState) ToTransforming() *TransformingState   { return &TransformingState{} }
func (s *BarrierWaitState) ToFailed() *FailedState               { return &FailedState{} }

// TransformingState - transform then validate, once
type TransformingState struct{}

func (s *TransformingState) Name() string                             { return "transforming" }
func (s *TransformingState) ToTransformFailed() *TransformFailedState { return &TransformFailedState{} }
func (s *TransformingState) ToArchiving() *ArchivingState             { return &ArchivingState{} }
func (s *TransformingState) ToFailed() *FailedState                   { return &FailedState{} }

// ArchivingState - relocating loaded units
type ArchivingState struct{}

func (s *ArchivingState) Name() string           { return "archiving" }
func (s *ArchivingState) ToDone() *DoneState     { return &DoneState{} }
func (s *ArchivingState) ToFailed() *FailedState { return &FailedState{} }

// NoWorkState - nothing discovered (terminal)
type NoWorkState struct{}

func (s *NoWorkState) Name() string             { return "no_work" }
func (s *NoWorkState) Status() domain.RunStatus { return domain.RunStatusNoWork }

// SkipTransformState - units discovered but none loaded (terminal)
type SkipTransformState struct{}

func (s *SkipTransformState) Name() string             { return "skip_transform" }
func (s *SkipTransformState) Status() domain.RunStatus { return domain.RunStatusSkipTransform }

// TransformFailedState - transform or validation failed (terminal)
type TransformFailedState struct{}

func (s *TransformFailedState) Name() string             { return "transform_failed" }
func (s *TransformFailedState) Status() domain.RunStatus { return domain.RunStatusTransformFailed }

// DoneState - batch archived (terminal)
type DoneState struct{}

func (s *DoneState) Name() string             { return "done" }
func (s *DoneState) Status() domain.RunStatus { return domain.RunStatusDone }

// FailedState - discovery error, policy abort, cancellation or panic (terminal)
type FailedState struct{}

func (s *FailedState) Name() string             { return "failed" }
func (s *FailedState) Status() domain.RunStatus { return domain.RunStatusFailed }

// StateRecorder tracks the state path of runs, mainly for tests.
type StateRecorder struct {
	mu   sync.Mutex
	path []string
}

func NewStateRecorder() *StateRecorder {
	return &StateRecorder{path: make([]string, 0)}
}

func (r *StateRecorder) Record(state State) {
	r.mu.Lock()
	r.path = append(r.path, state.Name())
	r.mu.Unlock()
}

func (r *StateRecorder) Path() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.path...)
}
