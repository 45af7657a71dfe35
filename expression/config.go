// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package expression

import (
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"
)

// Loader is the resource context an expression is compiled against. It resolves
// the type names used in Config.VariableTypes.
type Loader interface {
	ResolveType(name string) (reflect.Type, error)
}

// ArtifactScope is implemented by loaders that can own runtime artifacts
// generated while compiling. An artifact stored in the scope lives as long as the
// loader does, and every compiled expression that uses it keeps the loader alive.
type ArtifactScope interface {
	// LoadArtifact returns the artifact stored under key, if any.
	LoadArtifact(key string) (any, bool)
	// StoreArtifact stores artifact under key unless one is already present, and
	// returns the artifact that ends up in the scope.
	StoreArtifact(key string, artifact any) any
}

// Config carries the position of an expression within its document, optional
// typing hints and the loader used to resolve them.
//
// A Config is owned by the caller. Compilers read it but never change it. Use
// Clone or CopyConfig to derive an independent Config before adjusting it, in
// particular when compiling from several goroutines.
type Config struct {
	loader        Loader
	name          string
	hasName       bool
	startRow      int
	startColumn   int
	variableTypes map[string]string
}

// NewConfig creates a Config positioned at the start of a document (row 1,
// column 1) using the given loader.
func NewConfig(loader Loader) *Config {
	return &Config{
		loader:      loader,
		startRow:    1,
		startColumn: 1,
	}
}

// CopyConfig creates an independent copy of orig. The variable type mapping is
// shared by reference, not cloned.
//
// Returns ErrInvalidArgument if orig is nil.
func CopyConfig(orig *Config) (*Config, error) {
	if orig == nil {
		return nil, fmt.Errorf("%w: config to copy cannot be nil", ErrInvalidArgument)
	}
	return orig.Clone(), nil
}

// Clone returns an independent copy of the config.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

// Loader returns the resource context of the config.
func (c *Config) Loader() Loader {
	return c.loader
}

// StartRow returns the 1-based row where the expression starts.
func (c *Config) StartRow() int {
	return c.startRow
}

// StartColumn returns the 1-based column where the expression starts.
func (c *Config) StartColumn() int {
	return c.startColumn
}

// Name returns the symbolic name used in diagnostics, such as a template name.
func (c *Config) Name() (string, bool) {
	return c.name, c.hasName
}

// VariableTypes returns the mapping from variable name to type name. Backends
// may use it to produce better typed programs.
func (c *Config) VariableTypes() (map[string]string, bool) {
	return c.variableTypes, c.variableTypes != nil
}

// WithStartRow sets the row where the expression starts.
func (c *Config) WithStartRow(row int) *Config {
	c.startRow = row
	return c
}

// WithStartColumn sets the column where the expression starts.
func (c *Config) WithStartColumn(column int) *Config {
	c.startColumn = column
	return c
}

// WithName sets the diagnostic name.
func (c *Config) WithName(name string) *Config {
	c.name = name
	c.hasName = true
	return c
}

// WithVariableTypes sets the variable type mapping. Passing nil clears it.
func (c *Config) WithVariableTypes(types map[string]string) *Config {
	c.variableTypes = types
	return c
}

// Advance returns a copy of the config positioned right after text, as if text
// had been read starting at the config's current position.
func (c *Config) Advance(text string) *Config {
	cp := c.Clone()
	newlines := strings.Count(text, "\n")
	if newlines == 0 {
		cp.startColumn += utf8.RuneCountInString(text)
		return cp
	}
	cp.startRow += newlines
	cp.startColumn = utf8.RuneCountInString(text[strings.LastIndexByte(text, '\n')+1:]) + 1
	return cp
}

// Validate reports whether the config can be used for compilation.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: config cannot be nil", ErrInvalidArgument)
	}
	if c.loader == nil {
		return fmt.Errorf("%w: config loader cannot be nil", ErrInvalidArgument)
	}
	if c.startRow < 1 || c.startColumn < 1 {
		return fmt.Errorf("%w: start position %d:%d must be 1-based",
			ErrInvalidArgument, c.startRow, c.startColumn)
	}
	return nil
}

// ResolveVariableTypes resolves every type name in the config through its
// loader. It returns nil if the config declares no variable types.
func (c *Config) ResolveVariableTypes() (map[string]reflect.Type, error) {
	if c.variableTypes == nil {
		return nil, nil
	}
	resolved := make(map[string]reflect.Type, len(c.variableTypes))
	for name, typeName := range c.variableTypes {
		t, err := c.loader.ResolveType(typeName)
		if err != nil {
			return nil, fmt.Errorf("%w: variable %q: %w", ErrInvalidArgument, name, err)
		}
		resolved[name] = t
	}
	return resolved, nil
}
