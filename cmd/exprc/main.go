// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Command exprc checks, evaluates and renders expressions with the CEL or
// expr-lang backend.
package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/stacklok/toolhive-expression/env"
	"github.com/stacklok/toolhive-expression/expression"
	"github.com/stacklok/toolhive-expression/logging"
	"github.com/stacklok/toolhive-expression/metrics"
)

// Context is passed to every command.
type Context struct {
	// Compiler is the compiler of the selected backend, one of Compilers.
	Compiler  expression.Compiler
	Compilers map[string]expression.Compiler
	Backend   string
	Config    *expression.Config
	Gatherer  prometheus.Gatherer
	Logger    *slog.Logger
	Stdout    io.Writer
	Stderr    io.Writer
}

// CLI is the exprc command line.
var CLI struct {
	Backend string `help:"Expression backend (${enum})" enum:"cel,expr" default:"${backend}"`
	Config  string `help:"Expression config file (YAML); defaults to toolhive-expression/config.yaml in the XDG config dirs" type:"path"`
	Metrics bool   `help:"Print compile and eval metrics to stderr when done"`

	Check  CheckCmd  `cmd:"" help:"Compile every expression in template files and report errors"`
	Eval   EvalCmd   `cmd:"" help:"Evaluate a single expression"`
	Render RenderCmd `cmd:"" help:"Render a template file"`
	Serve  ServeCmd  `cmd:"" help:"Serve the expression API over HTTP"`
}

func main() {
	reader := &env.OSReader{}
	kctx := kong.Parse(&CLI,
		kong.Name("exprc"),
		kong.Description("Expression compiler with document positions."),
		kong.Vars{"backend": env.GetenvOr(reader, env.Backend, "cel")},
	)

	logger := logging.New(append(logging.FromEnv(reader), logging.WithComponent("exprc"))...)

	registry := prometheus.NewRegistry()
	compilers, err := newCompilers(logger, metrics.NewCollector(registry))
	if err != nil {
		fatal(err)
	}
	cfg, err := loadConfig(CLI.Config)
	if err != nil {
		fatal(err)
	}

	runErr := kctx.Run(&Context{
		Compiler:  compilers[CLI.Backend],
		Compilers: compilers,
		Backend:   CLI.Backend,
		Config:    cfg,
		Gatherer:  registry,
		Logger:    logger,
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
	})
	if CLI.Metrics {
		if err := writeMetrics(os.Stderr, registry); err != nil {
			logger.Warn("failed to gather metrics", "error", err)
		}
	}
	if runErr != nil {
		fatal(runErr)
	}
}

func fatal(err error) {
	color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
