// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

/*
Package http provides security-focused validation functions for HTTP request headers.

The expression API takes the diagnostic name of a request from a header, so
header values are validated against RFC 7230 before they reach a compiler and
end up in error messages.

# Header Validation

Validate HTTP header names and values per RFC 7230:

	if err := http.ValidateHeaderName("X-Custom-Header"); err != nil {
		// Handle invalid header name
	}

	if err := http.ValidateHeaderValue("Bearer token123"); err != nil {
		// Handle invalid header value
	}

The validators check for:
  - CRLF injection attempts (\r\n sequences)
  - Control characters
  - RFC 7230 token compliance for header names
  - Length limits to prevent DoS (256 bytes for names, 8192 for values)

# Media Type Validation

Validate a Content-Type header against the accepted media types:

	if err := http.ValidateMediaType(r.Header.Get("Content-Type"), "application/json"); err != nil {
		// Respond with 415 Unsupported Media Type
	}
*/
package http
