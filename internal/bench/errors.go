package bench

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout marks an operation that did not finish within the configured
	// operation timeout.
	ErrTimeout = errors.New("operation timed out")

	// ErrNoData is returned when a statistic is requested over an empty or
	// all-failed set of results.
	ErrNoData = errors.New("no data")
)

// ConnectivityError reports a server that could not be reached. It aborts the
// server run it occurred in.
type ConnectivityError struct {
	Server string
	Err    error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("database connection to [%s] unsuccessful: %v", e.Server, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// DatasetResetError reports a failure to remove the previous benchmark data.
// It aborts the server run it occurred in.
type DatasetResetError struct {
	Server string
	Err    error
}

func (e *DatasetResetError) Error() string {
	return fmt.Sprintf("cleaning database [%s] unsuccessful: %v", e.Server, e.Err)
}

func (e *DatasetResetError) Unwrap() error { return e.Err }

// OperationError is recorded on the result of a timed operation that failed.
// It never leaves the worker that produced it.
type OperationError struct {
	Operation string
	Err       error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Operation, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }
