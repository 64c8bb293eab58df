// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package offload

import (
	"context"
	"errors"
	"fmt"

	"github.com/ManuGH/edgecam/internal/segment"
)

// ErrTransientNetwork marks upload failures caused by timeouts or connection loss.
var ErrTransientNetwork = errors.New("transient network error")

// RemoteRejectionError is a non-2xx answer from the upload endpoint.
// It is retried like a transient error: the local file was not deleted.
type RemoteRejectionError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *RemoteRejectionError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("remote rejected upload: %s", e.Status)
	}
	return fmt.Sprintf("remote rejected upload: %s: %s", e.Status, e.Body)
}

// transientError wraps a transport failure so errors.Is(err, ErrTransientNetwork) holds
// while the cause stays reachable.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return "transient network error: " + e.err.Error() }

func (e *transientError) Unwrap() []error { return []error{ErrTransientNetwork, e.err} }

func transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// Failure classes used for metrics and retry decisions.
const (
	ClassSuccess   = "success"
	ClassTransient = "transient"
	ClassRejected  = "rejected"
	ClassCanceled  = "canceled"
	ClassStorage   = "storage"
)

// Classify maps an upload or pass error to its failure class.
func Classify(err error) string {
	var rej *RemoteRejectionError
	switch {
	case err == nil:
		return ClassSuccess
	case errors.Is(err, context.Canceled):
		return ClassCanceled
	case segment.IsStorageError(err):
		return ClassStorage
	case errors.As(err, &rej):
		return ClassRejected
	default:
		return ClassTransient
	}
}

// Retryable reports whether another pass within the same tick may help.
func Retryable(err error) bool {
	switch Classify(err) {
	case ClassTransient, ClassRejected:
		return true
	default:
		return false
	}
}
