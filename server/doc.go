// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

/*
Package server exposes expression compilers over HTTP.

Every endpoint takes a JSON Request and answers with a JSON Response:

	POST /v1/check   compile an expression or a template
	POST /v1/eval    evaluate an expression
	POST /v1/render  render a template
	GET  /healthz    liveness
	GET  /metrics    Prometheus metrics, when configured

Compile failures are reported as diagnostics with absolute positions and
status 422. The X-Expression-Name header sets the name used in diagnostics.

	srv, err := server.New(map[string]expression.Compiler{"cel": cel.NewEngine()}, "cel",
	    server.WithLogger(logger))
	err = srv.ListenAndServe(ctx, ":8080")
*/
package server
