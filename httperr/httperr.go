// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package httperr maps expression errors to HTTP status codes.
package httperr

import (
	"errors"
	"net/http"

	"github.com/stacklok/toolhive-expression/expression"
)

// CodedError wraps an error with an explicit HTTP status code, overriding
// the code the error would otherwise map to.
type CodedError struct {
	err  error
	code int
}

// Error implements the error interface.
func (e *CodedError) Error() string {
	return e.err.Error()
}

// Unwrap returns the underlying error for errors.Is() and errors.As() compatibility.
func (e *CodedError) Unwrap() error {
	return e.err
}

// HTTPCode returns the HTTP status code associated with this error.
func (e *CodedError) HTTPCode() int {
	return e.code
}

// WithCode wraps an error with an HTTP status code.
// If err is nil, WithCode returns nil.
func WithCode(err error, code int) error {
	if err == nil {
		return nil
	}
	return &CodedError{err: err, code: code}
}

// New creates a new error with the given message and HTTP status code.
func New(message string, code int) error {
	return &CodedError{err: errors.New(message), code: code}
}

// Code returns the HTTP status code for err:
//   - 200 for nil
//   - the code of the outermost CodedError in the chain
//   - 400 for invalid arguments and out of bounds windows
//   - 422 for compile and evaluation failures
//   - 500 otherwise
func Code(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.code
	}

	var compileErr *expression.CompileError
	switch {
	case errors.Is(err, expression.ErrInvalidArgument), errors.Is(err, expression.ErrOutOfBounds):
		return http.StatusBadRequest
	case errors.As(err, &compileErr), errors.Is(err, expression.ErrEvaluation):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
