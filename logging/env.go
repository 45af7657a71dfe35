// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package logging

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/stacklok/toolhive-expression/env"
)

// FromEnv returns the options selected by the environment:
//   - LOG_LEVEL sets the level ("debug", "info", "warn", "error"). Invalid
//     values are ignored.
//   - LOG_FORMAT selects "json" or "text".
//   - UNSTRUCTURED_LOGS=true selects text when LOG_FORMAT is not set.
//
// Later options passed to [New] override these:
//
//	logger := logging.New(append(logging.FromEnv(&env.OSReader{}), logging.WithOutput(w))...)
func FromEnv(r env.Reader) []Option {
	var opts []Option

	if raw := r.Getenv(env.LogLevel); raw != "" {
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(raw)); err == nil {
			opts = append(opts, WithLevel(lvl))
		}
	}

	switch strings.ToLower(r.Getenv(env.LogFormat)) {
	case "text":
		opts = append(opts, WithFormat(FormatText))
	case "json":
		opts = append(opts, WithFormat(FormatJSON))
	default:
		if unstructured, err := strconv.ParseBool(r.Getenv(env.UnstructuredLogs)); err == nil && unstructured {
			opts = append(opts, WithFormat(FormatText))
		}
	}

	return opts
}
