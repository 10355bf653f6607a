package service

import (
	"context"

	"github.com/DavidD95/Prueba-Data-Engineering/internal/config"
	"github.com/DavidD95/Prueba-Data-Engineering/internal/domain"
	"github.com/DavidD95/Prueba-Data-Engineering/internal/logger"
	"github.com/DavidD95/Prueba-Data-Engineering/internal/runner"
)

// Transform stage steps, in execution order.
const (
	StepTransform = "transform"
	StepValidate  = "validate"
)

// TransformStage runs the batch transformation and its validation.
type TransformStage struct {
	runner  runner.Runner
	workdir string
	steps   [2]step
}

type step struct {
	name    string
	command string
}

// NewTransformStage creates a TransformStage from the transform config.
func NewTransformStage(r runner.Runner, cfg config.TransformConfig) *TransformStage {
	return &TransformStage{
		runner:  r,
		workdir: cfg.WorkDir,
		steps: [2]step{
			{name: StepTransform, command: cfg.RunCommand},
			{name: StepValidate, command: cfg.TestCommand},
		},
	}
}

// Execute runs transform then validate, once each, without retry. The
// returned result holds every executed step's output on success and failure;
// the error is a *TransformError naming the failed step.
func (t *TransformStage) Execute(ctx context.Context) (*domain.TransformResult, error) {
	result := &domain.TransformResult{Status: domain.TransformFailed}

	for _, s := range t.steps {
		stepCtx := logger.SetStage(ctx, s.name)
		res, err := t.runner.Run(stepCtx, s.command, t.workdir)
		sr := domain.StepResult{
			Name:     s.name,
			Command:  s.command,
			ExitCode: res.ExitCode,
			Stdout:   res.Stdout,
			Stderr:   res.Stderr,
			Duration: res.Duration,
		}
		result.Steps = append(result.Steps, sr)

		entry := logger.With(logger.Fields{
			logger.FieldComponent: "transform",
			"command":             s.command,
			"exit_code":           res.ExitCode,
		}).WithDuration(res.Duration)

		if err != nil {
			entry.Error(stepCtx, "Step could not run: %v", err)
			return result, &TransformError{Step: s.name, Result: sr, Err: err}
		}
		if res.ExitCode != 0 {
			entry.With(logger.Fields{"stdout": res.Stdout, "stderr": res.Stderr}).
				Error(stepCtx, "Step exited with code %d", res.ExitCode)
			return result, &TransformError{Step: s.name, Result: sr}
		}
		entry.Info(stepCtx, "Step succeeded")
		if res.Stdout != "" {
			logger.CtxDebug(stepCtx, "%s output:\n%s", s.name, res.Stdout)
		}
	}

	result.Status = domain.TransformSucceeded
	return result, nil
}
