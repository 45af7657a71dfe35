// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package cel_test

import (
	"errors"
	"runtime"
	"strings"
	"testing"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/ext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/toolhive-expression/cel"
	"github.com/stacklok/toolhive-expression/expression"
	"github.com/stacklok/toolhive-expression/loader"
)

// newTestClaimsEngine creates a CEL engine for testing claims-based expressions.
// This demonstrates how consumers should configure the generic CEL engine.
func newTestClaimsEngine() *cel.Engine {
	return cel.NewEngine(
		celgo.Variable("claims", celgo.MapType(celgo.StringType, celgo.DynType)),
	)
}

func newTestConfig() *expression.Config {
	return expression.NewConfig(loader.New())
}

func TestNewEngine(t *testing.T) {
	t.Parallel()

	engine := newTestClaimsEngine()
	require.NotNil(t, engine)

	// Should be able to compile a valid expression
	expr, err := engine.Compile(`claims["sub"] == "user123"`, newTestConfig())
	require.NoError(t, err)
	require.NotNil(t, expr)
}

func TestEngine_Compile_ValidExpressions(t *testing.T) {
	t.Parallel()

	engine := newTestClaimsEngine()

	tests := []struct {
		name string
		expr string
	}{
		{
			name: "string equality",
			expr: `claims["sub"] == "user123"`,
		},
		{
			name: "membership in array",
			expr: `"admins" in claims["groups"]`,
		},
		{
			name: "key exists in map",
			expr: `"act" in claims`,
		},
		{
			name: "exists function",
			expr: `claims["groups"].exists(g, g in ["admin", "sre"])`,
		},
		{
			name: "ternary expression",
			expr: `"act" in claims ? "delegated" : "direct"`,
		},
		{
			name: "undeclared variables",
			expr: `a + b`,
		},
		{
			name: "true literal",
			expr: `true`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			expr, err := engine.Compile(tt.expr, newTestConfig())
			require.NoError(t, err)
			require.NotNil(t, expr)
			assert.Equal(t, tt.expr, expr.Source())
		})
	}
}

func TestEngine_Compile_ParseErrors(t *testing.T) {
	t.Parallel()

	engine := newTestClaimsEngine()

	tests := []struct {
		name string
		expr string
	}{
		{
			name: "unclosed bracket",
			expr: `claims["sub"`,
		},
		{
			name: "invalid operator",
			expr: `claims["sub"] === "user123"`,
		},
		{
			name: "unclosed string",
			expr: `claims["sub] == "user123"`,
		},
		{
			name: "missing operand",
			expr: `claims["sub"] ==`,
		},
		{
			name: "empty expression",
			expr: ``,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			expr, err := engine.Compile(tt.expr, newTestConfig())
			require.Error(t, err)
			require.Nil(t, expr)

			var compileErr *expression.CompileError
			require.True(t, errors.As(err, &compileErr), "expected CompileError, got %T", err)
			assert.Equal(t, tt.expr, compileErr.Source)
			assert.GreaterOrEqual(t, compileErr.Cursor, 0)
			assert.LessOrEqual(t, compileErr.Cursor, len(tt.expr))

			var parseErr *cel.ParseError
			assert.True(t, errors.As(err, &parseErr), "expected ParseError, got %T", err)
			assert.ErrorIs(t, err, cel.ErrExpressionCheck)
		})
	}
}

func TestEngine_Compile_CheckErrors(t *testing.T) {
	t.Parallel()

	engine := newTestClaimsEngine().WithStrictVariables()

	tests := []struct {
		name string
		expr string
	}{
		{
			name: "undefined variable",
			expr: `undefined_var == "test"`,
		},
		{
			name: "undefined function",
			expr: `undefined_func(claims)`,
		},
		{
			name: "no matching overload",
			expr: `"a" + 1`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			expr, err := engine.Compile(tt.expr, newTestConfig())
			require.Error(t, err)
			require.Nil(t, expr)

			var compileErr *expression.CompileError
			require.True(t, errors.As(err, &compileErr), "expected CompileError, got %T", err)
			assert.LessOrEqual(t, compileErr.Cursor, len(tt.expr))

			var checkErr *cel.CheckError
			assert.True(t, errors.As(err, &checkErr), "expected CheckError, got %T", err)
		})
	}
}

func TestEngine_Compile_FailurePosition(t *testing.T) {
	t.Parallel()

	engine := cel.NewEngine()

	t.Run("cursor points at the offending token", func(t *testing.T) {
		t.Parallel()

		cfg := newTestConfig().WithStartRow(3).WithStartColumn(5)
		_, err := engine.Compile("1 + + 2", cfg)
		require.Error(t, err)

		var compileErr *expression.CompileError
		require.True(t, errors.As(err, &compileErr))
		assert.Equal(t, 4, compileErr.Cursor)
		assert.Equal(t, "1 + + 2", compileErr.Source)
		assert.Equal(t, expression.Position{Line: 3, Column: 9}, compileErr.Position)
		assert.True(t, strings.HasPrefix(compileErr.Error(), "3:9: "), compileErr.Error())
	})

	t.Run("multi-line expression", func(t *testing.T) {
		t.Parallel()

		cfg := newTestConfig().WithStartRow(2).WithStartColumn(3).WithName("page.tmpl")
		_, err := engine.Compile("a +\n  + b", cfg)
		require.Error(t, err)

		var compileErr *expression.CompileError
		require.True(t, errors.As(err, &compileErr))
		assert.Equal(t, 6, compileErr.Cursor)
		assert.Equal(t, expression.Position{Line: 3, Column: 3}, compileErr.Position)
		assert.Equal(t, "page.tmpl", compileErr.Name)
		assert.True(t, strings.HasPrefix(compileErr.Error(), "page.tmpl:3:3: "), compileErr.Error())
	})

	t.Run("config is not modified", func(t *testing.T) {
		t.Parallel()

		cfg := newTestConfig().WithStartRow(7).WithStartColumn(2)
		_, err := engine.Compile("1 + + 2", cfg)
		require.Error(t, err)
		assert.Equal(t, 7, cfg.StartRow())
		assert.Equal(t, 2, cfg.StartColumn())
	})
}

func TestEngine_Compile_InvalidArguments(t *testing.T) {
	t.Parallel()

	engine := cel.NewEngine()

	tests := []struct {
		name string
		cfg  *expression.Config
	}{
		{
			name: "nil config",
			cfg:  nil,
		},
		{
			name: "nil loader",
			cfg:  expression.NewConfig(nil),
		},
		{
			name: "zero start row",
			cfg:  newTestConfig().WithStartRow(0),
		},
		{
			name: "unknown variable type",
			cfg:  newTestConfig().WithVariableTypes(map[string]string{"a": "no_such_type"}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := engine.Compile("1 + + 2", tt.cfg)
			require.ErrorIs(t, err, expression.ErrInvalidArgument)

			var compileErr *expression.CompileError
			assert.False(t, errors.As(err, &compileErr), "invalid arguments must fail before parsing")

			_, err = engine.CompileWindow("1 + + 2", 0, len("1 + + 2"), tt.cfg)
			require.ErrorIs(t, err, expression.ErrInvalidArgument)
		})
	}
}

func TestEngine_CompileWindow(t *testing.T) {
	t.Parallel()

	engine := cel.NewEngine()
	document := "Total: ${price * quantity} EUR"
	start := strings.Index(document, "price")
	length := len("price * quantity")

	t.Run("behaves like compiling the slice", func(t *testing.T) {
		t.Parallel()

		cfg := newTestConfig().Advance(document[:start])
		windowed, err := engine.CompileWindow(document, start, length, cfg)
		require.NoError(t, err)
		direct, err := engine.Compile(document[start:start+length], cfg)
		require.NoError(t, err)

		assert.Equal(t, direct.Source(), windowed.Source())
		for _, vars := range []map[string]any{
			{"price": 3, "quantity": 4},
			{"price": 10, "quantity": 0},
		} {
			want, err := direct.Eval(vars)
			require.NoError(t, err)
			got, err := windowed.Eval(vars)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
	})

	t.Run("failure position is absolute", func(t *testing.T) {
		t.Parallel()

		doc := "line one\nvalue: ${1 + + 2}"
		exprStart := strings.Index(doc, "1 +")
		cfg := newTestConfig().Advance(doc[:exprStart])
		_, err := engine.CompileWindow(doc, exprStart, len("1 + + 2"), cfg)

		var compileErr *expression.CompileError
		require.True(t, errors.As(err, &compileErr))
		assert.Equal(t, 4, compileErr.Cursor)
		assert.Equal(t, "1 + + 2", compileErr.Source)
		assert.Equal(t, expression.Position{Line: 2, Column: 14}, compileErr.Position)
	})

	t.Run("out of bounds windows", func(t *testing.T) {
		t.Parallel()

		windows := []struct{ start, length int }{
			{-1, 3},
			{0, len(document) + 1},
			{len(document), 1},
			{5, -1},
		}
		for _, w := range windows {
			_, err := engine.CompileWindow(document, w.start, w.length, newTestConfig())
			require.ErrorIs(t, err, expression.ErrOutOfBounds, "window %d+%d", w.start, w.length)

			var compileErr *expression.CompileError
			assert.False(t, errors.As(err, &compileErr))
		}
	})
}

func TestEngine_Check(t *testing.T) {
	t.Parallel()

	engine := newTestClaimsEngine()

	t.Run("valid expression", func(t *testing.T) {
		t.Parallel()
		err := engine.Check(`claims["sub"] == "user123"`, newTestConfig())
		require.NoError(t, err)
	})

	t.Run("invalid expression", func(t *testing.T) {
		t.Parallel()
		err := engine.Check(`claims["sub"`, newTestConfig())
		require.Error(t, err)

		var parseErr *cel.ParseError
		assert.True(t, errors.As(err, &parseErr))
	})

	t.Run("expression too long", func(t *testing.T) {
		t.Parallel()
		short := cel.NewEngine().WithMaxExpressionLength(5)
		err := short.Check(`1 + 2 + 3`, newTestConfig())
		require.ErrorIs(t, err, cel.ErrExpressionCheck)

		var compileErr *expression.CompileError
		require.True(t, errors.As(err, &compileErr))
		assert.Equal(t, 5, compileErr.Cursor)
	})
}

func TestEngine_VariableTypes(t *testing.T) {
	t.Parallel()

	engine := cel.NewEngine()

	t.Run("typed variable", func(t *testing.T) {
		t.Parallel()

		cfg := newTestConfig().WithVariableTypes(map[string]string{"n": "int"})
		expr, err := engine.Compile(`n + 1`, cfg)
		require.NoError(t, err)

		result, err := expr.Eval(map[string]any{"n": 41})
		require.NoError(t, err)
		n, err := result.AsInt()
		require.NoError(t, err)
		assert.Equal(t, int64(42), n)
	})

	t.Run("type mismatch is a check error", func(t *testing.T) {
		t.Parallel()

		cfg := newTestConfig().WithVariableTypes(map[string]string{"n": "string"})
		_, err := engine.Compile(`n + 1`, cfg)

		var checkErr *cel.CheckError
		require.True(t, errors.As(err, &checkErr), "expected CheckError, got %T", err)
	})

	t.Run("parameterized types", func(t *testing.T) {
		t.Parallel()

		cfg := newTestConfig().WithVariableTypes(map[string]string{
			"scores": "map<string, list<int>>",
		})
		expr, err := engine.Compile(`scores["alice"].exists(s, s > 90)`, cfg)
		require.NoError(t, err)

		result, err := expr.Eval(map[string]any{
			"scores": map[string][]int64{"alice": {70, 95}},
		})
		require.NoError(t, err)
		assert.Equal(t, expression.BoolValue(true), result)
	})
}

func TestEngine_Artifacts(t *testing.T) {
	t.Parallel()

	engine := cel.NewEngine()
	reg := loader.New()
	cfg := expression.NewConfig(reg)

	require.Equal(t, 0, reg.Artifacts())

	_, err := engine.Compile(`a + b`, cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, reg.Artifacts())

	// Same declarations reuse the stored environment
	_, err = engine.Compile(`b * a`, cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, reg.Artifacts())

	// Literal-only expressions need no extended environment
	_, err = engine.Compile(`1 + 2`, cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, reg.Artifacts())

	// Failed compilations leave nothing behind
	_, err = engine.Compile(`c + "x" + 1`, cfg)
	require.Error(t, err)
	_, err = engine.Compile(`d +`, cfg)
	require.Error(t, err)
	assert.Equal(t, 1, reg.Artifacts())

	// Another engine owns its own artifacts in the same registry
	_, err = cel.NewEngine().Compile(`a + b`, cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Artifacts())
}

func TestEngine_ArtifactsAreScopedToEngine(t *testing.T) {
	t.Parallel()

	reg := loader.New()
	cfg := expression.NewConfig(reg)

	for i := range 6 {
		if i%2 == 0 {
			_, err := cel.NewEngine(ext.Strings()).Compile(`s.upperAscii()`, cfg)
			require.NoError(t, err, "iteration %d", i)
		} else {
			_, err := cel.NewEngine().Compile(`s.upperAscii()`, cfg)
			var compileErr *expression.CompileError
			require.ErrorAs(t, err, &compileErr, "iteration %d", i)
			assert.Contains(t, compileErr.Message, "upperAscii")
		}
		runtime.GC()
	}

	// Only the engines with the strings extension stored an environment.
	assert.Equal(t, 3, reg.Artifacts())
}

func TestCompiledExpression_Eval(t *testing.T) {
	t.Parallel()

	engine := newTestClaimsEngine()

	tests := []struct {
		name     string
		expr     string
		claims   map[string]any
		expected any
	}{
		{
			name: "string equality true",
			expr: `claims["sub"] == "user123"`,
			claims: map[string]any{
				"sub": "user123",
			},
			expected: true,
		},
		{
			name: "string equality false",
			expr: `claims["sub"] == "user123"`,
			claims: map[string]any{
				"sub": "other-user",
			},
			expected: false,
		},
		{
			name: "membership in array true",
			expr: `"admins" in claims["groups"]`,
			claims: map[string]any{
				"groups": []any{"users", "admins", "developers"},
			},
			expected: true,
		},
		{
			name: "complex boolean with agent delegation",
			expr: `"admins" in claims["groups"] && !("act" in claims)`,
			claims: map[string]any{
				"sub":    "user123",
				"groups": []any{"admins"},
				"act": map[string]any{
					"sub": "agent456",
				},
			},
			expected: false,
		},
		{
			name: "ternary expression",
			expr: `"act" in claims ? "delegated" : "direct"`,
			claims: map[string]any{
				"sub": "user123",
			},
			expected: "direct",
		},
		{
			name:     "false literal",
			expr:     `false`,
			claims:   map[string]any{},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			expr, err := engine.Compile(tt.expr, newTestConfig())
			require.NoError(t, err)

			vars := map[string]any{"claims": tt.claims}
			result, err := expr.Eval(vars)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result.Native())
		})
	}
}

func TestCompiledExpression_Eval_Stateless(t *testing.T) {
	t.Parallel()

	expr, err := cel.NewEngine().Compile(`a + b`, newTestConfig())
	require.NoError(t, err)

	result, err := expr.Eval(map[string]any{"a": 2, "b": 3})
	require.NoError(t, err)
	assert.Equal(t, expression.IntValue(5), result)

	result, err = expr.Eval(map[string]any{"a": 10, "b": 1})
	require.NoError(t, err)
	assert.Equal(t, expression.IntValue(11), result)
}

func TestCompiledExpression_Eval_Errors(t *testing.T) {
	t.Parallel()

	engine := cel.NewEngine()

	t.Run("missing variable is an evaluation error", func(t *testing.T) {
		t.Parallel()

		expr, err := engine.Compile(`a + b`, newTestConfig())
		require.NoError(t, err)

		_, err = expr.Eval(map[string]any{"a": 2})
		require.Error(t, err)
		assert.ErrorIs(t, err, expression.ErrEvaluation)

		var evalErr *expression.EvalError
		require.True(t, errors.As(err, &evalErr))
		assert.Equal(t, "a + b", evalErr.Source)

		var compileErr *expression.CompileError
		assert.False(t, errors.As(err, &compileErr))
	})

	t.Run("nil vars without references", func(t *testing.T) {
		t.Parallel()

		expr, err := engine.Compile(`1 + 2`, newTestConfig())
		require.NoError(t, err)

		result, err := expr.Eval(nil)
		require.NoError(t, err)
		assert.Equal(t, expression.IntValue(3), result)
	})

	t.Run("cost limit exceeded", func(t *testing.T) {
		t.Parallel()

		cheap := cel.NewEngine().WithCostLimit(1)
		expr, err := cheap.Compile(`[1, 2, 3].map(x, x * 2)`, newTestConfig())
		require.NoError(t, err)

		_, err = expr.Eval(nil)
		assert.ErrorIs(t, err, expression.ErrEvaluation)
	})
}

func TestCompiledExpression_Eval_ResultKinds(t *testing.T) {
	t.Parallel()

	engine := cel.NewEngine()

	tests := []struct {
		name string
		expr string
		kind expression.Kind
		want any
	}{
		{name: "null", expr: `null`, kind: expression.KindNull, want: nil},
		{name: "uint", expr: `7u`, kind: expression.KindUint, want: uint64(7)},
		{name: "double", expr: `1.5`, kind: expression.KindDouble, want: 1.5},
		{name: "bytes", expr: `b"ab"`, kind: expression.KindBytes, want: []byte("ab")},
		{name: "list", expr: `[1, "x"]`, kind: expression.KindList, want: []any{int64(1), "x"}},
		{name: "map", expr: `{"k": true}`, kind: expression.KindMap, want: map[any]any{"k": true}},
		{name: "timestamp", expr: `timestamp("2024-01-02T03:04:05Z")`, kind: expression.KindObject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			expr, err := engine.Compile(tt.expr, newTestConfig())
			require.NoError(t, err)

			result, err := expr.Eval(nil)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, result.Kind())
			if tt.want != nil {
				assert.Equal(t, tt.want, result.Native())
			}
		})
	}
}

func TestCompiledExpression_EvalBool(t *testing.T) {
	t.Parallel()

	engine := newTestClaimsEngine()

	compileBool := func(t *testing.T, src string) *cel.CompiledExpression {
		t.Helper()
		expr, err := engine.Compile(src, newTestConfig())
		require.NoError(t, err)
		compiled, ok := expr.(*cel.CompiledExpression)
		require.True(t, ok)
		return compiled
	}

	t.Run("returns true", func(t *testing.T) {
		t.Parallel()

		expr := compileBool(t, `claims["sub"] == "user123"`)
		result, err := expr.EvalBool(map[string]any{"claims": map[string]any{"sub": "user123"}})
		require.NoError(t, err)
		assert.True(t, result)
	})

	t.Run("error on non-bool result", func(t *testing.T) {
		t.Parallel()

		expr := compileBool(t, `claims["sub"]`)
		_, err := expr.EvalBool(map[string]any{"claims": map[string]any{"sub": "user123"}})
		require.Error(t, err)
		assert.ErrorIs(t, err, expression.ErrInvalidResult)
	})

	t.Run("evaluation error wraps ErrEvaluation", func(t *testing.T) {
		t.Parallel()

		// Provide an empty claims map so the nested access fails at runtime
		expr := compileBool(t, `claims["missing"]["nested"]`)
		_, err := expr.EvalBool(map[string]any{"claims": map[string]any{}})
		require.Error(t, err)
		assert.ErrorIs(t, err, expression.ErrEvaluation)
	})
}

func TestParseError_Details(t *testing.T) {
	t.Parallel()

	engine := newTestClaimsEngine()

	_, err := engine.Compile(`claims["sub"`, newTestConfig())
	require.Error(t, err)

	var parseErr *cel.ParseError
	require.True(t, errors.As(err, &parseErr))

	// Should contain source and error details
	assert.Contains(t, parseErr.Error(), "parse")
	assert.Contains(t, parseErr.Source, `claims["sub"`)
	assert.NotEmpty(t, parseErr.Errors)
	assert.Contains(t, parseErr.AsJSON(), `"source"`)
}

func TestEngine_Concurrency(t *testing.T) {
	t.Parallel()

	engine := newTestClaimsEngine()

	// Compile the expression once
	expr, err := engine.Compile(`"admins" in claims["groups"]`, newTestConfig())
	require.NoError(t, err)

	const numGoroutines = 100
	results := make(chan bool, numGoroutines)
	errs := make(chan error, numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func(i int) {
			groups := []any{"users"}
			if i%2 == 0 {
				groups = append(groups, "admins")
			}

			result, err := expr.Eval(map[string]any{
				"claims": map[string]any{"groups": groups},
			})
			if err != nil {
				errs <- err
				return
			}
			b, err := result.AsBool()
			if err != nil {
				errs <- err
				return
			}
			results <- b
		}(i)
	}

	trueCount := 0
	for i := 0; i < numGoroutines; i++ {
		select {
		case err := <-errs:
			t.Fatalf("unexpected error: %v", err)
		case result := <-results:
			if result {
				trueCount++
			}
		}
	}
	assert.Equal(t, numGoroutines/2, trueCount)
}
