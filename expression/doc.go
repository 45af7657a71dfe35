// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

/*
Package expression defines the contract shared by every expression backend in
toolhive-expression: how source text, either standalone or embedded in a larger
document, is compiled once into a reusable [CompiledExpression] and later
evaluated against named variables.

# Position Tracking

A [Config] describes where an expression starts within its enclosing document.
Row and column are 1-based and default to (1,1):

	cfg := expression.NewConfig(loader.New()).
	    WithName("greeting.tmpl").
	    WithStartRow(3).
	    WithStartColumn(5)

When a compile fails, the backend returns a [*CompileError] whose Cursor is an
offset into the text it examined. The error's Position combines that cursor
with the config's start row and column, so it points into the document rather
than into the expression:

	_, err := compiler.Compile("1 + + 2", cfg)
	var compileErr *expression.CompileError
	if errors.As(err, &compileErr) {
	    fmt.Println(compileErr.Position) // 3:9
	}

# Embedded Expressions

CompileWindow compiles a slice of a document without copying it. The config
must describe the position of the window start:

	exprCfg := cfg.Advance(document[:start])
	compiled, err := compiler.CompileWindow(document, start, length, exprCfg)

# Evaluation

Compiled expressions are immutable and may be evaluated concurrently. Results
are returned as a tagged [Value]:

	v, err := compiled.Eval(map[string]any{"a": 2, "b": 3})
	n, err := v.AsInt() // 5

Evaluation failures are reported as [*EvalError], never as [*CompileError].

# Errors

  - [ErrInvalidArgument]: a nil or malformed config, or an unknown variable type name
  - [ErrOutOfBounds]: a CompileWindow window outside the document
  - [*CompileError]: the text cannot be compiled
  - [*EvalError] wrapping [ErrEvaluation]: the expression failed at runtime
  - [ErrInvalidResult]: a Value accessor was used on the wrong kind
*/
package expression
