// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

/*
Package identifier provides validation functions for variable names.

Variables bound at evaluation time and variables named in a config's variable
types must be valid identifiers in every backend.

# Name Validation

	if err := identifier.ValidateName("user_id"); err != nil {
		// Handle invalid variable name
	}

Valid names must:
  - Be non-empty (not just whitespace)
  - Start with an ASCII letter or underscore
  - Contain only ASCII letters, digits and underscores
  - Not contain null bytes
  - Not be a reserved literal such as true, null or nil

# Examples

Valid names:

	"user"
	"_tmp"
	"item2"

Invalid names:

	""          // empty
	"2fast"     // leading digit
	"user-id"   // dash
	"null"      // reserved
*/
package identifier
