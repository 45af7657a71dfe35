// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package recovery provides panic recovery middleware for HTTP handlers.
//
// A panic while compiling or evaluating an expression is logged with its
// stack and answered with 500 Internal Server Error, so a single request
// cannot crash the server.
//
//	handler := recovery.Middleware(logger)(mux)
//	http.ListenAndServe(":8080", handler)
package recovery
