// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package cel provides a CEL implementation of expression.Compiler.
package cel

import (
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common"
	"github.com/google/uuid"

	"github.com/stacklok/toolhive-expression/expression"
)

const (
	// DefaultMaxExpressionLength is the maximum allowed length for a CEL expression.
	// This limit prevents DoS attacks via excessively long expressions.
	DefaultMaxExpressionLength = 10000

	// DefaultCostLimit is the default runtime cost limit for CEL program evaluation.
	// This prevents DoS attacks via expensive operations in expressions.
	DefaultCostLimit = 1000000

	// defaultSourceName is used in CEL diagnostics when the config has no name.
	defaultSourceName = "<input>"

	// maxDeclaredNames bounds the identifier lookups an engine remembers.
	maxDeclaredNames = 4096
)

// Engine compiles CEL expressions against an expression.Config.
// It is safe for concurrent use from multiple goroutines.
type Engine struct {
	// id scopes the engine's artifacts within a shared loader.
	id                  string
	envCache            *envCache
	factory             envFactory
	maxExpressionLength int
	costLimit           uint64
	strictVariables     bool
	logger              *slog.Logger

	// declared caches whether an identifier resolves in the base environment,
	// for at most declaredLimit names.
	declared      sync.Map
	declaredCount atomic.Int64
	declaredLimit int64
}

var _ expression.Compiler = (*Engine)(nil)

// envFactory is a function that creates a CEL environment.
type envFactory func() (*cel.Env, error)

// envCache holds a lazily-initialized CEL environment.
type envCache struct {
	once sync.Once
	env  *cel.Env
	err  error
}

// NewEngine creates a new CEL engine. The options are passed to cel.NewEnv to
// configure the base environment shared by every compiled expression, for
// example variable declarations or extension libraries.
//
// Identifiers that the base environment does not declare are declared as dyn,
// or with the type named in the config's variable types. Use
// WithStrictVariables to reject undeclared identifiers instead.
//
// Example usage:
//
//	engine := cel.NewEngine(
//	    cel.Variable("claims", cel.MapType(cel.StringType, cel.DynType)),
//	)
func NewEngine(options ...cel.EnvOption) *Engine {
	return &Engine{
		id:                  uuid.NewString(),
		envCache:            &envCache{},
		maxExpressionLength: DefaultMaxExpressionLength,
		costLimit:           DefaultCostLimit,
		logger:              slog.New(slog.DiscardHandler),
		declaredLimit:       maxDeclaredNames,
		factory: func() (*cel.Env, error) {
			return cel.NewEnv(options...)
		},
	}
}

// WithMaxExpressionLength sets the maximum allowed length for CEL expressions.
// Expressions exceeding this length will be rejected during compilation.
func (e *Engine) WithMaxExpressionLength(maxLen int) *Engine {
	e.maxExpressionLength = maxLen
	return e
}

// WithCostLimit sets the runtime cost limit for CEL program evaluation.
// Programs that exceed this cost during evaluation will return an error.
func (e *Engine) WithCostLimit(limit uint64) *Engine {
	e.costLimit = limit
	return e
}

// WithStrictVariables disables the implicit dyn declaration of identifiers
// that are neither declared in the base environment nor typed by the config.
func (e *Engine) WithStrictVariables() *Engine {
	e.strictVariables = true
	return e
}

// WithLogger sets the logger used for debug diagnostics.
func (e *Engine) WithLogger(logger *slog.Logger) *Engine {
	e.logger = logger
	return e
}

// getEnv returns the CEL environment, creating it lazily on first access.
func (e *Engine) getEnv() (*cel.Env, error) {
	e.envCache.once.Do(func() {
		e.envCache.env, e.envCache.err = e.factory()
	})
	return e.envCache.env, e.envCache.err
}

// Compile parses, type checks and plans a CEL expression. The returned
// expression can be evaluated many times against different variables.
//
// Returns an error wrapping expression.ErrInvalidArgument for an invalid
// config, or an *expression.CompileError whose Cause is a ParseError or
// CheckError for problems in the text.
func (e *Engine) Compile(text string, cfg *expression.Config) (expression.CompiledExpression, error) {
	compiled, err := e.compile(text, cfg, true)
	if err != nil {
		return nil, err
	}
	return compiled, nil
}

// CompileWindow compiles document[start:start+length]. The config must point
// at start within the document.
func (e *Engine) CompileWindow(
	document string, start, length int, cfg *expression.Config,
) (expression.CompiledExpression, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	text, err := expression.Window(document, start, length)
	if err != nil {
		return nil, err
	}
	return e.Compile(text, cfg)
}

// Check verifies that a CEL expression is syntactically and semantically valid
// without creating a program. This is useful for configuration validation.
func (e *Engine) Check(text string, cfg *expression.Config) error {
	_, err := e.compile(text, cfg, false)
	return err
}

func (e *Engine) compile(text string, cfg *expression.Config, plan bool) (*CompiledExpression, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Check expression length to prevent DoS via excessively long expressions
	if len(text) > e.maxExpressionLength {
		return nil, e.fail(cfg, text, e.maxExpressionLength,
			fmt.Sprintf("expression length %d exceeds maximum of %d", len(text), e.maxExpressionLength),
			ErrExpressionCheck)
	}

	varTypes, err := cfg.ResolveVariableTypes()
	if err != nil {
		return nil, err
	}

	env, err := e.getEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to get CEL environment: %w", err)
	}

	name, ok := cfg.Name()
	if !ok || name == "" {
		name = defaultSourceName
	}

	// Parse the expression
	parsedAst, issues := env.ParseSource(common.NewStringSource(text, name))
	if issues.Err() != nil {
		return nil, e.failIssues(cfg, text, issues, newParseError(text, issues))
	}

	decls := e.declarations(env, parsedAst, varTypes)
	exprEnv, artifactKey, err := e.extend(env, cfg, decls)
	if err != nil {
		return nil, e.fail(cfg, text, 0, "failed to declare expression variables", err)
	}

	// Type check the expression
	checkedAst, issues := exprEnv.Check(parsedAst)
	if issues.Err() != nil {
		return nil, e.failIssues(cfg, text, issues, newCheckError(text, issues))
	}
	if !plan {
		return nil, nil
	}

	// Compile to a program with cost limit to prevent DoS via expensive operations
	program, err := exprEnv.Program(checkedAst, cel.CostLimit(e.costLimit))
	if err != nil {
		return nil, e.fail(cfg, text, 0, "failed to create CEL program", err)
	}

	// The extended environment becomes an artifact of the loader only once the
	// whole compilation has succeeded.
	if scope, ok := cfg.Loader().(expression.ArtifactScope); ok && artifactKey != "" {
		scope.StoreArtifact(artifactKey, exprEnv)
		if id, ok := scope.(interface{ ID() string }); ok {
			e.logger.Debug("CEL environment stored", "loader", id.ID(), "key", artifactKey)
		}
	}

	return &CompiledExpression{
		source:  text,
		program: program,
	}, nil
}

// declaration is a variable added to the base environment for one expression.
type declaration struct {
	name string
	typ  *cel.Type
}

// declarations returns the variables to add on top of env: every config typed
// variable and, unless strict, every undeclared free identifier as dyn.
// Identifiers the base environment already resolves are left alone.
func (e *Engine) declarations(env *cel.Env, parsed *cel.Ast, varTypes map[string]reflect.Type) []declaration {
	seen := make(map[string]bool, len(varTypes))
	var decls []declaration
	for name, t := range varTypes {
		seen[name] = true
		if e.isDeclared(env, name) {
			e.logger.Debug("config variable type ignored, variable declared by engine", "variable", name)
			continue
		}
		decls = append(decls, declaration{name: name, typ: celType(t)})
	}
	if !e.strictVariables {
		for _, name := range freeIdentifiers(parsed) {
			if seen[name] || e.isDeclared(env, name) {
				continue
			}
			seen[name] = true
			decls = append(decls, declaration{name: name, typ: cel.DynType})
		}
	}
	sort.Slice(decls, func(i, j int) bool { return decls[i].name < decls[j].name })
	return decls
}

// isDeclared reports whether name resolves in the base environment.
func (e *Engine) isDeclared(env *cel.Env, name string) bool {
	if v, ok := e.declared.Load(name); ok {
		return v.(bool)
	}
	_, issues := env.Compile(name)
	declared := issues.Err() == nil
	if e.declaredCount.Add(1) <= e.declaredLimit {
		if _, loaded := e.declared.LoadOrStore(name, declared); loaded {
			e.declaredCount.Add(-1)
		}
	} else {
		e.declaredCount.Add(-1)
	}
	return declared
}

// extend returns the environment to check the expression in. When decls is
// not empty, the extended environment is looked up in the config's artifact
// scope first; the returned key is non-empty when a new environment was built
// and still has to be stored.
func (e *Engine) extend(env *cel.Env, cfg *expression.Config, decls []declaration) (*cel.Env, string, error) {
	if len(decls) == 0 {
		return env, "", nil
	}

	sig := make([]string, len(decls))
	for i, d := range decls {
		sig[i] = d.name + "=" + d.typ.String()
	}
	key := "cel:" + e.id + ":" + strings.Join(sig, ",")

	if scope, ok := cfg.Loader().(expression.ArtifactScope); ok {
		if artifact, ok := scope.LoadArtifact(key); ok {
			if cached, ok := artifact.(*cel.Env); ok {
				return cached, "", nil
			}
		}
	}

	opts := make([]cel.EnvOption, len(decls))
	for i, d := range decls {
		opts[i] = cel.Variable(d.name, d.typ)
	}
	extended, err := env.Extend(opts...)
	if err != nil {
		return nil, "", err
	}
	return extended, key, nil
}

// failIssues builds a CompileError positioned at the earliest CEL issue.
func (e *Engine) failIssues(cfg *expression.Config, text string, issues *cel.Issues, cause error) error {
	cursor, msg := 0, cause.Error()
	for i, issue := range issues.Errors() {
		offset := expression.OffsetOf(text, issue.Location.Line(), issue.Location.Column())
		if i == 0 || offset < cursor {
			cursor, msg = offset, issue.Message
		}
	}
	return e.fail(cfg, text, cursor, msg, cause)
}

func (e *Engine) fail(cfg *expression.Config, text string, cursor int, msg string, cause error) error {
	ce := expression.NewCompileError(cfg, text, cursor, msg, cause)
	e.logger.Debug("CEL expression compile failed",
		"name", ce.Name,
		"position", ce.Position.String(),
		"cursor", ce.Cursor,
		"error", ce.Message,
	)
	return ce
}
