package service

import (
	"errors"
	"fmt"

	"github.com/DavidD95/Prueba-Data-Engineering/internal/domain"
)

var (
	// ErrDiscovery wraps listing failures. Fatal, raised before any load.
	ErrDiscovery = errors.New("discovery failed")
	// ErrUnitVanished marks a unit that disappeared between discovery and load.
	ErrUnitVanished = errors.New("unit vanished before load")
	// ErrUnitLoad marks a unit whose load failed after retries.
	ErrUnitLoad = errors.New("unit load failed")
	// ErrTransform is matched by every TransformError.
	ErrTransform = errors.New("transform stage failed")
	// ErrArchive marks a unit whose relocation failed.
	ErrArchive = errors.New("unit archive failed")
	// ErrBatchAborted is raised when the failure policy rejects the batch.
	ErrBatchAborted = errors.New("batch aborted")
	// ErrRunInProgress is returned when a run is triggered while another is active.
	ErrRunInProgress = errors.New("run already in progress")
)

// TransformError reports the step that failed and its captured output.
type TransformError struct {
	Step   string
	Result domain.StepResult
	// Err is set when the step could not be executed at all.
	Err error
}

func (e *TransformError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s step failed: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("%s step exited with code %d", e.Step, e.Result.ExitCode)
}

func (e *TransformError) Is(target error) bool {
	return target == ErrTransform
}

func (e *TransformError) Unwrap() error {
	return e.Err
}
