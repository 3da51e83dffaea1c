package harness

import (
	"errors"
	"fmt"
)

// Stage names a step of the setup sequence.
type Stage string

// Setup stages in execution order.
const (
	StageConnect Stage = "connect"
	StageFund    Stage = "fund"
	StageDeploy  Stage = "deploy"
	// StageCommit is a failure to publish setup results (incomplete data).
	StageCommit Stage = "commit"
)

var (
	// ErrNotReady is returned when session data is requested before
	// successful initialization.
	ErrNotReady = errors.New("session is not initialized")
	// ErrGateAborted is returned when the caller gave up waiting for the
	// initialization gate.
	ErrGateAborted = errors.New("initialization gate wait aborted")
)

// SetupError is a failure of some setup stage. Session never caches it, the
// next gate acquisition retries the whole sequence.
type SetupError struct {
	Stage Stage
	Err   error
}

// Error implements the error interface.
func (e *SetupError) Error() string {
	return fmt.Sprintf("setup failed at %s stage: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying cause.
func (e *SetupError) Unwrap() error {
	return e.Err
}

func stageError(stage Stage, err error) error {
	return &SetupError{Stage: stage, Err: err}
}
