// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

/*
Package httperr maps errors to HTTP status codes for the expression API.

Errors returned by compilers and compiled expressions map to a status code
without any wrapping:

	_, err := compiler.Compile(text, cfg)
	code := httperr.Code(err) // 422 for *expression.CompileError

Handlers that fail for other reasons attach a code explicitly:

	err := httperr.WithCode(fmt.Errorf("unknown backend %q", name), http.StatusBadRequest)

A CodedError supports errors.Is() and errors.As() on the error it wraps.
*/
package httperr
