package engine

import (
	"errors"
	"fmt"

	"github.com/kroma-labs/swarms-go/httpclient"
)

// ErrClosed is returned for work submitted after Close.
var ErrClosed = errors.New("engine: closed")

// TransientRemoteError is a retryable failure of a single attempt.
type TransientRemoteError struct {
	Operation  string
	Kind       httpclient.Kind
	StatusCode int
	Body       []byte
	Err        error
}

func (e *TransientRemoteError) Error() string {
	return fmt.Sprintf("%s: %v", e.Operation, e.Err)
}

func (e *TransientRemoteError) Unwrap() error {
	return e.Err
}

// PermanentRemoteError is a failure that retrying cannot fix.
type PermanentRemoteError struct {
	Operation  string
	StatusCode int
	Body       []byte
	Err        error
}

func (e *PermanentRemoteError) Error() string {
	return fmt.Sprintf("%s: %v", e.Operation, e.Err)
}

func (e *PermanentRemoteError) Unwrap() error {
	return e.Err
}

// RetryExhaustedError is returned when every attempt failed transiently.
// Last is the failure of the final attempt.
type RetryExhaustedError struct {
	Operation string
	Attempts  int
	Last      *TransientRemoteError
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("%s: retries exhausted after %d attempts: %v", e.Operation, e.Attempts, e.Last.Err)
}

func (e *RetryExhaustedError) Unwrap() error {
	return e.Last
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var transient *TransientRemoteError
	if errors.As(err, &transient) {
		return transient.StatusCode
	}
	var permanent *PermanentRemoteError
	if errors.As(err, &permanent) {
		return permanent.StatusCode
	}
	return 0
}

// remoteError converts an attempt error into the engine's error variants.
// Errors that did not come from the network are returned unchanged.
func remoteError(operation string, err error) error {
	f, ok := httpclient.AsFailure(err)
	if !ok {
		return err
	}
	if f.Retryable() {
		return &TransientRemoteError{
			Operation:  operation,
			Kind:       f.Kind,
			StatusCode: f.StatusCode,
			Body:       f.Body,
			Err:        f,
		}
	}
	return &PermanentRemoteError{
		Operation:  operation,
		StatusCode: f.StatusCode,
		Body:       f.Body,
		Err:        f,
	}
}
