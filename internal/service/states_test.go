package service

import (
	"testing"

	"github.com/DavidD95/Prueba-Data-Engineering/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestStatePaths(t *testing.T) {
	recorder := NewStateRecorder()

	idle := &IdleState{}
	recorder.Record(idle)
	discovering := idle.ToDiscovering()
	recorder.Record(discovering)
	loading := discovering.ToLoading()
	recorder.Record(loading)
	barrier := loading.ToBarrierWait()
	recorder.Record(barrier)
	transforming := barrier.ToTransforming()
	recorder.Record(transforming)
	archiving := transforming.ToArchiving()
	recorder.Record(archiving)
	recorder.Record(archiving.ToDone())

	assert.Equal(t, []string{
		"idle", "discovering", "loading", "barrier_wait", "transforming", "archiving", "done",
	}, recorder.Path())
}

func TestTerminalStatus(t *testing.T) {
	tests := []struct {
		state TerminalState
		want  domain.RunStatus
		fatal bool
	}{
		{(&DiscoveringState{}).ToNoWork(), domain.RunStatusNoWork, false},
		{(&BarrierWaitState{}).ToSkipTransform(), domain.RunStatusSkipTransform, false},
		{(&TransformingState{}).ToTransformFailed(), domain.RunStatusTransformFailed, true},
		{(&ArchivingState{}).ToDone(), domain.RunStatusDone, false},
		{(&IdleState{}).ToFailed(), domain.RunStatusFailed, true},
	}

	for _, tt := range tests {
		t.Run(tt.state.Name(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.state.Status())
			assert.Equal(t, tt.fatal, tt.state.Status().Fatal())
			assert.Equal(t, string(tt.want), tt.state.Name())
		})
	}
}
