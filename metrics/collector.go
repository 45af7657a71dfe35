// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package metrics records Prometheus metrics for expression compilation and
// evaluation.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/stacklok/toolhive-expression/expression"
)

// Outcome labels.
const (
	OutcomeSuccess         = "success"
	OutcomeInvalidArgument = "invalid_argument"
	OutcomeOutOfBounds     = "out_of_bounds"
	OutcomeCompileError    = "compile_error"
	OutcomeEvalError       = "eval_error"
	OutcomeError           = "error"
)

// Collector holds the expression metrics.
//
// Metrics:
//   - expression_compile_total: compilations by backend and outcome
//   - expression_compile_duration_seconds: compilation duration by backend
//   - expression_eval_total: evaluations by backend and outcome
//   - expression_eval_duration_seconds: evaluation duration by backend
type Collector struct {
	compileTotal    *prometheus.CounterVec
	compileDuration *prometheus.HistogramVec
	evalTotal       *prometheus.CounterVec
	evalDuration    *prometheus.HistogramVec
}

// NewCollector creates the expression metrics and registers them with
// registerer. If registerer is nil, a new private registry is used.
func NewCollector(registerer prometheus.Registerer) *Collector {
	if registerer == nil {
		registerer = prometheus.NewRegistry()
	}

	c := &Collector{
		compileTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "expression_compile_total",
				Help: "Total number of expression compilations",
			},
			[]string{"backend", "outcome"},
		),
		compileDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "expression_compile_duration_seconds",
				Help: "Duration of expression compilation in seconds",
				// 10µs to ~160ms
				Buckets: prometheus.ExponentialBuckets(0.00001, 2, 15),
			},
			[]string{"backend"},
		),
		evalTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "expression_eval_total",
				Help: "Total number of expression evaluations",
			},
			[]string{"backend", "outcome"},
		),
		evalDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "expression_eval_duration_seconds",
				Help: "Duration of expression evaluation in seconds",
				// 1µs to ~16ms
				Buckets: prometheus.ExponentialBuckets(0.000001, 2, 15),
			},
			[]string{"backend"},
		),
	}

	registerer.MustRegister(c.compileTotal, c.compileDuration, c.evalTotal, c.evalDuration)
	return c
}

// RecordCompile records one compilation.
func (c *Collector) RecordCompile(backend string, duration time.Duration, err error) {
	c.compileTotal.WithLabelValues(backend, Outcome(err)).Inc()
	c.compileDuration.WithLabelValues(backend).Observe(duration.Seconds())
}

// RecordEval records one evaluation.
func (c *Collector) RecordEval(backend string, duration time.Duration, err error) {
	c.evalTotal.WithLabelValues(backend, Outcome(err)).Inc()
	c.evalDuration.WithLabelValues(backend).Observe(duration.Seconds())
}

// Outcome classifies an error returned by a compiler or a compiled expression.
func Outcome(err error) string {
	var compileErr *expression.CompileError
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, expression.ErrInvalidArgument):
		return OutcomeInvalidArgument
	case errors.Is(err, expression.ErrOutOfBounds):
		return OutcomeOutOfBounds
	case errors.As(err, &compileErr):
		return OutcomeCompileError
	case errors.Is(err, expression.ErrEvaluation):
		return OutcomeEvalError
	default:
		return OutcomeError
	}
}
