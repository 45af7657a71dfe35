// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/stacklok/toolhive-expression/server"
)

// ServeCmd serves the expression API.
type ServeCmd struct {
	Addr string `help:"Address to listen on" default:":8080"`
}

// Run executes the serve command
func (cmd *ServeCmd) Run(ctx *Context) error {
	srv, err := server.New(ctx.Compilers, ctx.Backend,
		server.WithLogger(ctx.Logger),
		server.WithBaseConfig(ctx.Config),
		server.WithMetrics(ctx.Gatherer),
	)
	if err != nil {
		return err
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.ListenAndServe(sigCtx, cmd.Addr)
}
