// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package expression

import (
	"errors"
	"fmt"
)

// Sentinel errors for expression operations.
var (
	// ErrInvalidArgument is returned when a required argument is missing or malformed.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrOutOfBounds is returned when an expression window lies outside its document.
	ErrOutOfBounds = errors.New("expression window out of bounds")

	// ErrEvaluation is returned when evaluating a compiled expression fails.
	ErrEvaluation = errors.New("expression evaluation failed")

	// ErrInvalidResult is returned when a Value is read as the wrong kind.
	ErrInvalidResult = errors.New("expression returned invalid result type")
)

// CompileError describes why a text could not be compiled.
//
// Cursor is a byte offset into Source, always within [0, len(Source)]. Position
// is the absolute location of the cursor in the enclosing document.
type CompileError struct {
	Message  string
	Source   string
	Cursor   int
	Name     string
	Position Position
	Cause    error
}

// NewCompileError creates a CompileError located with cfg. A cursor outside
// source is clamped to its bounds.
func NewCompileError(cfg *Config, source string, cursor int, message string, cause error) *CompileError {
	cursor = max(0, min(cursor, len(source)))
	ce := &CompileError{
		Message: message,
		Source:  source,
		Cursor:  cursor,
		Cause:   cause,
	}
	if cfg != nil {
		ce.Name, _ = cfg.Name()
		ce.Position = Locate(cfg, source, cursor)
	}
	return ce
}

// Error implements the error interface for CompileError.
func (e *CompileError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s:%s: %s", e.Name, e.Position, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Position, e.Message)
}

// Unwrap returns the underlying error.
func (e *CompileError) Unwrap() error {
	return e.Cause
}

// EvalError is returned when a compiled expression fails at runtime.
type EvalError struct {
	Source string
	Cause  error
}

// NewEvalError wraps a backend runtime error.
func NewEvalError(source string, cause error) *EvalError {
	return &EvalError{Source: source, Cause: cause}
}

// Error implements the error interface for EvalError.
func (e *EvalError) Error() string {
	return fmt.Sprintf("%s in %q: %s", ErrEvaluation, e.Source, e.Cause)
}

// Unwrap returns ErrEvaluation and the underlying error.
func (e *EvalError) Unwrap() []error {
	return []error{ErrEvaluation, e.Cause}
}
