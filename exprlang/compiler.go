// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package exprlang

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/file"
	"github.com/expr-lang/expr/vm"

	"github.com/stacklok/toolhive-expression/expression"
)

// DefaultMaxExpressionLength is the maximum allowed length for an expression.
const DefaultMaxExpressionLength = 10000

// ErrExpressionCompile is the root of every expr-lang compile failure.
var ErrExpressionCompile = errors.New("expr expression compile failed")

// Compiler compiles expr-lang expressions against an expression.Config.
// It is safe for concurrent use from multiple goroutines.
type Compiler struct {
	options             []expr.Option
	maxExpressionLength int
	strictVariables     bool
	logger              *slog.Logger
}

var _ expression.Compiler = (*Compiler)(nil)

// New creates a Compiler. The options are applied to every compilation after
// the environment derived from the config.
func New(options ...expr.Option) *Compiler {
	return &Compiler{
		options:             options,
		maxExpressionLength: DefaultMaxExpressionLength,
		logger:              slog.New(slog.DiscardHandler),
	}
}

// WithMaxExpressionLength sets the maximum allowed length for expressions.
func (c *Compiler) WithMaxExpressionLength(maxLen int) *Compiler {
	c.maxExpressionLength = maxLen
	return c
}

// WithStrictVariables rejects identifiers that are not typed by the config.
func (c *Compiler) WithStrictVariables() *Compiler {
	c.strictVariables = true
	return c
}

// WithLogger sets the logger used for debug diagnostics.
func (c *Compiler) WithLogger(logger *slog.Logger) *Compiler {
	c.logger = logger
	return c
}

// Compile parses and type checks an expression into a program that can be
// evaluated many times.
func (c *Compiler) Compile(text string, cfg *expression.Config) (expression.CompiledExpression, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(text) > c.maxExpressionLength {
		return nil, c.fail(cfg, text, c.maxExpressionLength,
			fmt.Sprintf("expression length %d exceeds maximum of %d", len(text), c.maxExpressionLength),
			ErrExpressionCompile)
	}

	varTypes, err := cfg.ResolveVariableTypes()
	if err != nil {
		return nil, err
	}

	program, err := expr.Compile(text, c.compileOptions(varTypes)...)
	if err != nil {
		var fileErr *file.Error
		if errors.As(err, &fileErr) {
			cursor := expression.OffsetOf(text, fileErr.Line, fileErr.Column)
			return nil, c.fail(cfg, text, cursor, fileErr.Message, fmt.Errorf("%w: %w", ErrExpressionCompile, err))
		}
		return nil, c.fail(cfg, text, 0, err.Error(), fmt.Errorf("%w: %w", ErrExpressionCompile, err))
	}

	return &CompiledExpression{source: text, program: program}, nil
}

// CompileWindow compiles document[start:start+length]. The config must point
// at start within the document.
func (c *Compiler) CompileWindow(
	document string, start, length int, cfg *expression.Config,
) (expression.CompiledExpression, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	text, err := expression.Window(document, start, length)
	if err != nil {
		return nil, err
	}
	return c.Compile(text, cfg)
}

// compileOptions builds a typed environment of zero values from the resolved
// variable types.
func (c *Compiler) compileOptions(varTypes map[string]reflect.Type) []expr.Option {
	opts := make([]expr.Option, 0, len(c.options)+2)
	if len(varTypes) > 0 {
		env := make(map[string]any, len(varTypes))
		for name, t := range varTypes {
			env[name] = reflect.Zero(t).Interface()
		}
		opts = append(opts, expr.Env(env))
		if !c.strictVariables {
			opts = append(opts, expr.AllowUndefinedVariables())
		}
	} else if c.strictVariables {
		opts = append(opts, expr.Env(map[string]any{}))
	}
	return append(opts, c.options...)
}

func (c *Compiler) fail(cfg *expression.Config, text string, cursor int, msg string, cause error) error {
	ce := expression.NewCompileError(cfg, text, cursor, msg, cause)
	c.logger.Debug("expr expression compile failed",
		"name", ce.Name,
		"position", ce.Position.String(),
		"cursor", ce.Cursor,
		"error", ce.Message,
	)
	return ce
}

// CompiledExpression is a compiled expr-lang program ready for evaluation.
type CompiledExpression struct {
	source  string
	program *vm.Program
}

var _ expression.CompiledExpression = (*CompiledExpression)(nil)

// Source returns the original expression source string.
func (ce *CompiledExpression) Source() string {
	return ce.source
}

// Eval runs the program against vars. Runtime failures are returned as
// *expression.EvalError.
func (ce *CompiledExpression) Eval(vars map[string]any) (expression.Value, error) {
	if vars == nil {
		vars = map[string]any{}
	}
	out, err := expr.Run(ce.program, vars)
	if err != nil {
		return expression.NullValue(), expression.NewEvalError(ce.source, err)
	}
	return expression.ValueOf(out), nil
}
