// Package runner executes the external transformation and validation steps.
package runner

import (
	"context"
	"time"
)

// Result is the captured outcome of one command. A non-zero ExitCode means
// the step failed; the Runner itself only errors when the command could not
// be started at all.
type Result struct {
	ExitCode int           `json:"exit_code"`
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	Duration time.Duration `json:"duration"`
}

// Runner runs a command in a working directory.
type Runner interface {
	Run(ctx context.Context, command, workdir string) (Result, error)
}
