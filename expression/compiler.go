// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package expression

import "fmt"

// Compiler turns source text into a CompiledExpression.
//
// Implementations return an error wrapping ErrInvalidArgument if the config is
// invalid, an error wrapping ErrOutOfBounds if a CompileWindow window does not
// lie within the document, and a *CompileError for any problem found in the text
// itself. Compilation is all-or-nothing.
type Compiler interface {
	// Compile compiles a standalone expression.
	Compile(text string, cfg *Config) (CompiledExpression, error)

	// CompileWindow compiles document[start:start+length]. The config's start
	// row and column must describe the position of start within the document.
	// The result behaves exactly like Compile on the same slice.
	CompileWindow(document string, start, length int, cfg *Config) (CompiledExpression, error)
}

// CompiledExpression is an immutable, evaluable artifact. It is safe to call Eval
// from multiple goroutines with independent variable maps.
type CompiledExpression interface {
	// Eval evaluates the expression against vars. A nil map is treated as empty.
	// Failures are returned as *EvalError.
	Eval(vars map[string]any) (Value, error)

	// Source returns the text the expression was compiled from.
	Source() string
}

// Window returns document[start:start+length] without copying, or an error
// wrapping ErrOutOfBounds if the window falls outside the document.
func Window(document string, start, length int) (string, error) {
	if start < 0 || length < 0 || start > len(document)-length {
		return "", fmt.Errorf("%w: window [%d, %d+%d) outside document of length %d",
			ErrOutOfBounds, start, start, length, len(document))
	}
	return document[start : start+length], nil
}
