// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package identifier provides validation functions for variable names.
package identifier

import (
	"fmt"
	"regexp"
	"strings"
)

// MaxLength is the longest accepted variable name.
const MaxLength = 256

var validNameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// reserved names are literals or keywords in both backends.
var reserved = map[string]bool{
	"true":  true,
	"false": true,
	"null":  true,
	"nil":   true,
	"in":    true,
}

// ValidateName validates that name can be bound as an expression variable:
// an ASCII letter or underscore followed by letters, digits or underscores,
// and not a reserved literal or keyword.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("variable name cannot be empty or consist only of whitespace")
	}

	if strings.Contains(name, "\x00") {
		return fmt.Errorf("variable name cannot contain null bytes")
	}

	if len(name) > MaxLength {
		return fmt.Errorf("variable name exceeds maximum length of %d bytes", MaxLength)
	}

	if !validNameRegex.MatchString(name) {
		return fmt.Errorf("variable name must start with a letter or underscore and contain only letters, digits and underscores: %q", name)
	}

	if reserved[name] {
		return fmt.Errorf("variable name is reserved: %q", name)
	}

	return nil
}

// ValidateNames validates every key of vars.
func ValidateNames[V any](vars map[string]V) error {
	for name := range vars {
		if err := ValidateName(name); err != nil {
			return err
		}
	}
	return nil
}
