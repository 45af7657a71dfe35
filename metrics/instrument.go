// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"time"

	"github.com/stacklok/toolhive-expression/expression"
)

// Instrument wraps compiler so that every compilation, and every evaluation of
// the expressions it returns, is recorded in collector under backend.
func Instrument(backend string, compiler expression.Compiler, collector *Collector) expression.Compiler {
	return &instrumentedCompiler{backend: backend, next: compiler, collector: collector}
}

type instrumentedCompiler struct {
	backend   string
	next      expression.Compiler
	collector *Collector
}

func (ic *instrumentedCompiler) Compile(text string, cfg *expression.Config) (expression.CompiledExpression, error) {
	start := time.Now()
	compiled, err := ic.next.Compile(text, cfg)
	return ic.wrap(compiled, start, err)
}

func (ic *instrumentedCompiler) CompileWindow(
	document string, start, length int, cfg *expression.Config,
) (expression.CompiledExpression, error) {
	began := time.Now()
	compiled, err := ic.next.CompileWindow(document, start, length, cfg)
	return ic.wrap(compiled, began, err)
}

func (ic *instrumentedCompiler) wrap(
	compiled expression.CompiledExpression, start time.Time, err error,
) (expression.CompiledExpression, error) {
	ic.collector.RecordCompile(ic.backend, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return &instrumentedExpression{CompiledExpression: compiled, backend: ic.backend, collector: ic.collector}, nil
}

type instrumentedExpression struct {
	expression.CompiledExpression
	backend   string
	collector *Collector
}

func (ie *instrumentedExpression) Eval(vars map[string]any) (expression.Value, error) {
	start := time.Now()
	v, err := ie.CompiledExpression.Eval(vars)
	ie.collector.RecordEval(ie.backend, time.Since(start), err)
	return v, err
}
