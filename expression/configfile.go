// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package expression

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed data/config.schema.json
var configSchema []byte

// ConfigFile is the on-disk form of a Config.
type ConfigFile struct {
	Name          string            `yaml:"name,omitempty" json:"name,omitempty"`
	StartRow      int               `yaml:"start_row,omitempty" json:"start_row,omitempty"`
	StartColumn   int               `yaml:"start_column,omitempty" json:"start_column,omitempty"`
	VariableTypes map[string]string `yaml:"variable_types,omitempty" json:"variable_types,omitempty"`
}

// DecodeConfig parses a YAML (or JSON) config document, validates it against the
// embedded schema and builds a Config bound to loader. Fields that are not set
// keep their NewConfig defaults.
func DecodeConfig(data []byte, loader Loader) (*Config, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if raw == nil {
		raw = map[string]any{}
	}

	// yaml.v3 decodes mappings as map[string]any, so the document can be
	// re-encoded as JSON for schema validation.
	jsonData, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize config: %w", err)
	}
	if err := validateConfigSchema(jsonData); err != nil {
		return nil, err
	}

	var file ConfigFile
	if err := json.Unmarshal(jsonData, &file); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return file.Config(loader), nil
}

// Config builds a Config from the file contents.
func (f *ConfigFile) Config(loader Loader) *Config {
	cfg := NewConfig(loader)
	if f.Name != "" {
		cfg.WithName(f.Name)
	}
	if f.StartRow > 0 {
		cfg.WithStartRow(f.StartRow)
	}
	if f.StartColumn > 0 {
		cfg.WithStartColumn(f.StartColumn)
	}
	if f.VariableTypes != nil {
		cfg.WithVariableTypes(f.VariableTypes)
	}
	return cfg
}

func validateConfigSchema(data []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(configSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return fmt.Errorf("config schema validation failed: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}
	if len(msgs) == 1 {
		return fmt.Errorf("%w: config schema validation failed: %s", ErrInvalidArgument, msgs[0])
	}
	var b strings.Builder
	fmt.Fprintf(&b, "config schema validation failed with %d errors:\n", len(msgs))
	for i, msg := range msgs {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, msg)
	}
	return fmt.Errorf("%w: %w", ErrInvalidArgument, errors.New(strings.TrimSuffix(b.String(), "\n")))
}
