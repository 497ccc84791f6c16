package session

import (
	"errors"
	"fmt"
)

var (
	// ErrOperationInProgress is returned when an operation that drives the
	// runtime is issued while another one has not finished.
	ErrOperationInProgress = errors.New("operation in progress")

	// ErrSessionNotReady is returned when an operation is issued in a state
	// that does not permit it.
	ErrSessionNotReady = errors.New("session not ready")

	// ErrAdapterFailure matches every *AdapterError.
	ErrAdapterFailure = errors.New("adapter failure")

	// ErrNoSurface is returned by AttachSurface when given a nil surface.
	ErrNoSurface = errors.New("no surface")

	// ErrNoSaveMemory is returned by RestoreSave for cartridges without
	// battery backed RAM.
	ErrNoSaveMemory = errors.New("cartridge has no battery backed RAM")

	errCoreNotLoaded = errors.New("core not loaded")
)

// AdapterError wraps a failure reported by the runtime.
type AdapterError struct {
	Op  string
	Err error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("adapter %s: %v", e.Op, e.Err)
}

func (e *AdapterError) Unwrap() error { return e.Err }

func (e *AdapterError) Is(target error) bool { return target == ErrAdapterFailure }

func notReady(op string, s State) error {
	return fmt.Errorf("%s in state %s: %w", op, s, ErrSessionNotReady)
}

func inProgress(op, current string) error {
	return fmt.Errorf("%s while %s is in progress: %w", op, current, ErrOperationInProgress)
}
