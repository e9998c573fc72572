package installer

import (
	"context"
	"errors"
	"fmt"

	"github.com/Guliveer/devdash/internal/models"
)

var (
	// ErrJobNotFound is returned for ids that were never issued or were dismissed.
	ErrJobNotFound = errors.New("install job not found")
	// ErrNotCancellable is returned when the installer process already runs.
	ErrNotCancellable = errors.New("install job is running its installer and cannot be cancelled")
	// ErrJobFinished is returned when cancelling a job that already ended.
	ErrJobFinished = errors.New("install job already finished")
	// ErrJobActive is returned when dismissing a job that has not ended.
	ErrJobActive = errors.New("install job is still active")
	// ErrClosed is returned by RequestInstall after Shutdown.
	ErrClosed = errors.New("installer is shut down")
)

// failureError carries the failure kind of a job step and whether another
// attempt may succeed.
type failureError struct {
	kind  models.FailureKind
	retry bool
	err   error
}

func (e *failureError) Error() string {
	return fmt.Sprintf("%s: %v", e.kind, e.err)
}

func (e *failureError) Unwrap() error { return e.err }

func networkError(retry bool, format string, args ...any) error {
	return &failureError{kind: models.FailureNetwork, retry: retry, err: fmt.Errorf(format, args...)}
}

func verificationError(format string, args ...any) error {
	return &failureError{kind: models.FailureVerification, err: fmt.Errorf(format, args...)}
}

func processError(format string, args ...any) error {
	return &failureError{kind: models.FailureProcess, err: fmt.Errorf(format, args...)}
}

var errCancelled = &failureError{kind: models.FailureCancelled, err: context.Canceled}

// toFailure maps err to the job's recorded failure.
func toFailure(err error) *models.Failure {
	var fe *failureError
	if errors.As(err, &fe) {
		f := &models.Failure{Kind: fe.kind}
		if fe.kind != models.FailureCancelled {
			f.Message = fe.err.Error()
		}
		return f
	}
	if errors.Is(err, context.Canceled) {
		return &models.Failure{Kind: models.FailureCancelled}
	}
	return &models.Failure{Kind: models.FailureNetwork, Message: err.Error()}
}

func retryable(err error) bool {
	var fe *failureError
	return errors.As(err, &fe) && fe.retry
}
