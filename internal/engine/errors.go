package engine

import (
	"errors"
	"fmt"
)

// ConnectivityError means a source or the destination could not be reached
// before any table was processed. It aborts the whole run.
type ConnectivityError struct {
	Target string // source name, or "destination"
	Err    error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("cannot connect to %s: %v", e.Target, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// SchemaIntrospectionError fails a single table whose metadata could not be read.
type SchemaIntrospectionError struct {
	Source string
	Table  string
	Err    error
}

func (e *SchemaIntrospectionError) Error() string {
	return fmt.Sprintf("introspect %s.%s: %v", e.Source, e.Table, e.Err)
}

func (e *SchemaIntrospectionError) Unwrap() error { return e.Err }

// LoadBatchError fails a single table at the batch starting at Offset. Rows
// from earlier batches stay in the destination.
type LoadBatchError struct {
	Table  string
	Offset int64
	Err    error
}

func (e *LoadBatchError) Error() string {
	return fmt.Sprintf("batch at offset %d of %s: %v", e.Offset, e.Table, e.Err)
}

func (e *LoadBatchError) Unwrap() error { return e.Err }

// ErrTruncate marks a failed best-effort truncate. It is logged, never returned
// from a table copy.
var ErrTruncate = errors.New("truncate failed")

// IsConnectivity reports whether err stops the whole run.
func IsConnectivity(err error) bool {
	var connErr *ConnectivityError
	return errors.As(err, &connErr)
}
