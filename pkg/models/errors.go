package models

import (
	"errors"
	"fmt"
)

// ErrNoData signals an empty source table. User-correctable: load data first.
var ErrNoData = errors.New("no data available")

// ErrArtifactMissing signals that no trained model artifact pair is available
var ErrArtifactMissing = errors.New("model artifacts not trained yet")

// InsufficientDataError signals a nonzero row count below an algorithm's minimum
type InsufficientDataError struct {
	Rows int
	Min  int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: %d rows, need at least %d", e.Rows, e.Min)
}

// FeatureSchemaError signals a train/serve schema mismatch. This is a bug, not
// a data condition, and callers should surface it loudly.
type FeatureSchemaError struct {
	Missing []string
}

func (e *FeatureSchemaError) Error() string {
	return fmt.Sprintf("feature schema mismatch: missing columns %v", e.Missing)
}

// ExternalWriteError wraps a best-effort persistence failure. It is logged,
// never propagated to the caller of a query operation.
type ExternalWriteError struct {
	Target string
	Err    error
}

func (e *ExternalWriteError) Error() string {
	return fmt.Sprintf("external write to %s failed: %v", e.Target, e.Err)
}

func (e *ExternalWriteError) Unwrap() error {
	return e.Err
}
