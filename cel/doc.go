// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

/*
Package cel provides a CEL implementation of expression.Compiler for compiling
and evaluating expressions against named variables.

The engine provides lazy-initialized, thread-safe environment caching, expression
compilation with positional parse and type-check error reporting, evaluation into
tagged expression.Value results, and built-in safeguards against denial-of-service
via configurable expression length and runtime cost limits.

# Basic Usage

Create an engine, compile an expression against a config and evaluate it:

	engine := cel.NewEngine()
	cfg := expression.NewConfig(loader.New())

	compiled, err := engine.Compile(`a + b`, cfg)
	if err != nil {
	    // handle compilation error
	}

	result, err := compiled.Eval(map[string]any{"a": 2, "b": 3})
	// result.AsInt() == 5

# Variable Declarations

Variables can be declared on the engine with CEL environment options, or per
expression through the config's variable types, which the config's loader
resolves:

	cfg := expression.NewConfig(loader.New()).
	    WithVariableTypes(map[string]string{"user": "map<string, dyn>"})

Any other identifier is declared as dyn so it can be bound at evaluation time.
Call WithStrictVariables to report undeclared identifiers as check errors
instead.

# Error Handling

Compilation errors are returned as *expression.CompileError. The cursor is an
offset into the compiled text, and the position is absolute within the
document the config describes. The CEL details are kept as the cause:

	_, err := engine.Compile(`claims["sub"`, cfg)
	var compileErr *expression.CompileError
	if errors.As(err, &compileErr) {
	    fmt.Println(compileErr.Position, compileErr.Message)
	}
	var parseErr *cel.ParseError
	if errors.As(err, &parseErr) {
	    fmt.Println(parseErr.AsJSON()) // structured JSON error details
	}

# Runtime Artifacts

Environments extended with per-expression declarations are stored in the
config's loader when it implements expression.ArtifactScope, such as
loader.Registry. They are stored only after a successful compilation and are
reused by later compilations of the same engine with the same declarations.
Each engine keys its artifacts with its own identity, so engines with different
options can share one loader.

# DoS Protection

The engine includes configurable safeguards against denial-of-service:

	engine := cel.NewEngine(opts...).
	    WithMaxExpressionLength(5000). // reject overly long expressions
	    WithCostLimit(500000)          // limit runtime evaluation cost

# Concurrency

The Engine and CompiledExpression types are safe for concurrent use. A compiled
expression can be evaluated from multiple goroutines simultaneously.
*/
package cel
