// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/adrg/xdg"
	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"

	"github.com/stacklok/toolhive-expression/cel"
	"github.com/stacklok/toolhive-expression/expression"
	"github.com/stacklok/toolhive-expression/exprlang"
	"github.com/stacklok/toolhive-expression/loader"
	"github.com/stacklok/toolhive-expression/metrics"
	"github.com/stacklok/toolhive-expression/validation/identifier"
)

// defaultConfigPath is looked up in the XDG config directories.
const defaultConfigPath = "toolhive-expression/config.yaml"

// backends lists the supported backend names.
var backends = []string{"cel", "expr"}

// newCompilers returns an instrumented compiler for every backend.
func newCompilers(logger *slog.Logger, collector *metrics.Collector) (map[string]expression.Compiler, error) {
	compilers := make(map[string]expression.Compiler, len(backends))
	for _, backend := range backends {
		c, err := newCompiler(backend, logger, collector)
		if err != nil {
			return nil, err
		}
		compilers[backend] = c
	}
	return compilers, nil
}

// newCompiler returns the instrumented compiler for backend.
func newCompiler(backend string, logger *slog.Logger, collector *metrics.Collector) (expression.Compiler, error) {
	var c expression.Compiler
	switch backend {
	case "cel":
		c = cel.NewEngine().WithLogger(logger)
	case "expr":
		c = exprlang.New().WithLogger(logger)
	default:
		return nil, fmt.Errorf("unknown backend %q", backend)
	}
	return metrics.Instrument(backend, c, collector), nil
}

// loadConfig reads the expression config from path. An empty path falls back
// to the XDG config file, and to the defaults when there is none.
func loadConfig(path string) (*expression.Config, error) {
	reg := loader.New()
	if path == "" {
		found, err := xdg.SearchConfigFile(defaultConfigPath)
		if err != nil {
			return expression.NewConfig(reg), nil
		}
		path = found
	}

	data, err := os.ReadFile(path) // #nosec G304 - path is provided by the user
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config file %s not found", path)
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	cfg, err := expression.DecodeConfig(data, reg)
	if err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

// parseVars converts name=value flags into variables. Values are decoded as
// YAML scalars, so 3 is an int, true a bool and "3" a string.
func parseVars(raw map[string]string) (map[string]any, error) {
	if err := identifier.ValidateNames(raw); err != nil {
		return nil, err
	}
	vars := make(map[string]any, len(raw))
	for name, value := range raw {
		var v any
		if err := yaml.Unmarshal([]byte(value), &v); err != nil {
			return nil, fmt.Errorf("invalid value for variable %q: %w", name, err)
		}
		vars[name] = v
	}
	return vars, nil
}

// loadVars reads variables from a YAML mapping file.
func loadVars(path string) (map[string]any, error) {
	if path == "" {
		return map[string]any{}, nil
	}
	data, err := os.ReadFile(path) // #nosec G304 - path is provided by the user
	if err != nil {
		return nil, fmt.Errorf("failed to read vars file %s: %w", path, err)
	}
	vars := map[string]any{}
	if err := yaml.Unmarshal(data, &vars); err != nil {
		return nil, fmt.Errorf("invalid vars file %s: %w", path, err)
	}
	if err := identifier.ValidateNames(vars); err != nil {
		return nil, fmt.Errorf("invalid vars file %s: %w", path, err)
	}
	return vars, nil
}

// writeMetrics prints every sample gathered from registry, one per line.
func writeMetrics(w io.Writer, registry *prometheus.Registry) error {
	families, err := registry.Gather()
	if err != nil {
		return err
	}
	for _, family := range families {
		for _, m := range family.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, l := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", l.GetName(), l.GetValue()))
			}
			sort.Strings(labels)

			switch {
			case m.GetCounter() != nil:
				fmt.Fprintf(w, "%s{%s} %g\n", family.GetName(), strings.Join(labels, ","), m.GetCounter().GetValue())
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				fmt.Fprintf(w, "%s{%s} count=%d sum=%gs\n",
					family.GetName(), strings.Join(labels, ","), h.GetSampleCount(), h.GetSampleSum())
			}
		}
	}
	return nil
}
