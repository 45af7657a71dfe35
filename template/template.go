// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package template

import (
	"errors"
	"fmt"
	"strings"

	"github.com/stacklok/toolhive-expression/expression"
)

const (
	openDelim   = "${"
	escapeDelim = "$${"
)

// Template is a parsed document whose embedded expressions are compiled.
type Template struct {
	source   string
	segments []segment
}

// segment is either literal text or a compiled expression.
type segment struct {
	literal string
	expr    expression.CompiledExpression
}

// Parse splits document into literal text and embedded expressions and
// compiles every expression with c. The config describes where document
// starts; it is not modified.
//
// All compile failures are collected and returned joined with errors.Join.
// Use CompileErrors to list them.
func Parse(c expression.Compiler, document string, cfg *expression.Config) (*Template, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: compiler cannot be nil", expression.ErrInvalidArgument)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	t := &Template{source: document}
	var (
		errs    []error
		literal strings.Builder
		at      = cfg
		atPos   int
	)

	i := 0
	for i < len(document) {
		if strings.HasPrefix(document[i:], escapeDelim) {
			literal.WriteString(openDelim)
			i += len(escapeDelim)
			continue
		}
		if !strings.HasPrefix(document[i:], openDelim) {
			literal.WriteByte(document[i])
			i++
			continue
		}

		start := i + len(openDelim)
		end := closingBrace(document, start)
		if end < 0 {
			errs = append(errs, expression.NewCompileError(cfg, document, i, "unterminated expression block", nil))
			break
		}

		if literal.Len() > 0 {
			t.segments = append(t.segments, segment{literal: literal.String()})
			literal.Reset()
		}

		at = at.Advance(document[atPos:start])
		atPos = start
		compiled, err := c.CompileWindow(document, start, end-start, at)
		if err != nil {
			errs = append(errs, err)
		} else {
			t.segments = append(t.segments, segment{expr: compiled})
		}
		i = end + 1
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	if literal.Len() > 0 {
		t.segments = append(t.segments, segment{literal: literal.String()})
	}
	return t, nil
}

// closingBrace returns the index of the brace closing an expression that
// starts at from, or -1. Nested braces are balanced and quoted strings are
// skipped.
func closingBrace(document string, from int) int {
	depth := 1
	for i := from; i < len(document); i++ {
		switch c := document[i]; c {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		case '"', '\'', '`':
			i = closingQuote(document, i+1, c)
			if i < 0 {
				return -1
			}
		}
	}
	return -1
}

// closingQuote returns the index of the quote that ends a string literal
// starting at from.
func closingQuote(document string, from int, quote byte) int {
	for i := from; i < len(document); i++ {
		switch document[i] {
		case '\\':
			if quote != '`' {
				i++
			}
		case quote:
			return i
		}
	}
	return -1
}

// Source returns the document the template was parsed from.
func (t *Template) Source() string {
	return t.source
}

// Expressions returns the compiled expressions in document order.
func (t *Template) Expressions() []expression.CompiledExpression {
	var out []expression.CompiledExpression
	for _, s := range t.segments {
		if s.expr != nil {
			out = append(out, s.expr)
		}
	}
	return out
}

// Render evaluates every expression against vars and returns the document
// with each expression replaced by its value. Null values render as empty
// text.
func (t *Template) Render(vars map[string]any) (string, error) {
	var b strings.Builder
	b.Grow(len(t.source))
	for _, s := range t.segments {
		if s.expr == nil {
			b.WriteString(s.literal)
			continue
		}
		v, err := s.expr.Eval(vars)
		if err != nil {
			return "", err
		}
		if !v.IsNull() {
			b.WriteString(v.String())
		}
	}
	return b.String(), nil
}

// CompileErrors returns every *expression.CompileError in err, including
// errors joined by Parse.
func CompileErrors(err error) []*expression.CompileError {
	switch e := err.(type) {
	case nil:
		return nil
	case *expression.CompileError:
		return []*expression.CompileError{e}
	case interface{ Unwrap() []error }:
		var out []*expression.CompileError
		for _, inner := range e.Unwrap() {
			out = append(out, CompileErrors(inner)...)
		}
		return out
	}
	var ce *expression.CompileError
	if errors.As(err, &ce) {
		return []*expression.CompileError{ce}
	}
	return nil
}
