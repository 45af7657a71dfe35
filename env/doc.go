// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

/*
Package env provides an interface-based abstraction for environment variable
access, enabling dependency injection and testing isolation.

# Basic Usage

Use OSReader to read environment variables via the standard os package:

	reader := &env.OSReader{}
	value := reader.Getenv("MY_VAR")

# Testing

The Reader interface allows injecting a mock in tests to avoid relying on
real environment variables. A generated mock is available in the mocks
sub-package:

	ctrl := gomock.NewController(t)
	mock := mocks.NewMockReader(ctrl)
	mock.EXPECT().Getenv("MY_VAR").Return("test-value")

	result := myFunc(mock)

# Variables

The variables read by toolhive-expression are named by the constants in this
package: LogLevel, LogFormat and UnstructuredLogs configure logging, and
Backend selects the default backend of the exprc command. GetenvOr reads a
variable with a fallback:

	backend := env.GetenvOr(reader, env.Backend, "cel")

# Design

This package follows the interface-based dependency injection pattern used
throughout toolhive. Production code accepts an env.Reader, while tests
substitute the generated mock.
*/
package env
