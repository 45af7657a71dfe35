// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package cel

import (
	"github.com/google/cel-go/cel"

	"github.com/stacklok/toolhive-expression/expression"
)

// CompiledExpression represents a pre-compiled CEL program ready for evaluation.
type CompiledExpression struct {
	source  string
	program cel.Program
}

var _ expression.CompiledExpression = (*CompiledExpression)(nil)

// Source returns the original expression source string.
func (ce *CompiledExpression) Source() string {
	return ce.source
}

// Eval executes the compiled expression against the provided variables and
// returns the result. Runtime failures, such as a referenced variable missing
// from vars, are returned as *expression.EvalError.
//
// Example:
//
//	result, err := compiled.Eval(map[string]any{"a": 2, "b": 3})
func (ce *CompiledExpression) Eval(vars map[string]any) (expression.Value, error) {
	if vars == nil {
		vars = map[string]any{}
	}
	out, _, err := ce.program.Eval(vars)
	if err != nil {
		return expression.NullValue(), expression.NewEvalError(ce.source, err)
	}
	return toValue(out), nil
}

// EvalBool executes the compiled expression and returns the result as a bool.
// Returns an error wrapping expression.ErrInvalidResult if the expression does
// not evaluate to a boolean.
func (ce *CompiledExpression) EvalBool(vars map[string]any) (bool, error) {
	result, err := ce.Eval(vars)
	if err != nil {
		return false, err
	}
	return result.AsBool()
}
