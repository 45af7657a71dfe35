// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package env

//go:generate mockgen -copyright_file=../.github/license-header.txt -source=env.go -destination=mocks/mock_reader.go -package=mocks Reader

import "os"

// Environment variables read by toolhive-expression.
const (
	// LogLevel is the minimum log level, such as "debug" or "warn".
	LogLevel = "LOG_LEVEL"
	// LogFormat selects "json" or "text" log output.
	LogFormat = "LOG_FORMAT"
	// UnstructuredLogs selects text log output when true and LOG_FORMAT is unset.
	UnstructuredLogs = "UNSTRUCTURED_LOGS"
	// Backend is the default expression backend of the exprc CLI.
	Backend = "EXPRC_BACKEND"
)

// Reader defines an interface for environment variable access
type Reader interface {
	Getenv(key string) string
}

// OSReader implements Reader using the standard os package
type OSReader struct{}

// Getenv returns the value of the environment variable named by the key
func (*OSReader) Getenv(key string) string {
	return os.Getenv(key)
}

// GetenvOr returns the value of key read through r, or fallback when the
// variable is empty or unset.
func GetenvOr(r Reader, key, fallback string) string {
	if v := r.Getenv(key); v != "" {
		return v
	}
	return fallback
}
