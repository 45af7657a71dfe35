// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package expression

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// Position is a 1-based line and column within a document.
type Position struct {
	Line   int `json:"line" yaml:"line"`
	Column int `json:"column" yaml:"column"`
}

// String renders the position as line:column.
func (p Position) String() string {
	return strconv.Itoa(p.Line) + ":" + strconv.Itoa(p.Column)
}

// Locate returns the absolute position of a byte cursor into text, where text
// starts at the position described by cfg. Columns count runes.
func Locate(cfg *Config, text string, cursor int) Position {
	cursor = max(0, min(cursor, len(text)))
	return cfg.Advance(text[:cursor]).position()
}

func (c *Config) position() Position {
	return Position{Line: c.startRow, Column: c.startColumn}
}

// OffsetOf converts a 1-based line and a 0-based rune column within text into a
// byte offset. Out of range values are clamped to the text.
func OffsetOf(text string, line, column int) int {
	offset := 0
	for l := 1; l < line; l++ {
		nl := strings.IndexByte(text[offset:], '\n')
		if nl < 0 {
			return len(text)
		}
		offset += nl + 1
	}
	for ; column > 0 && offset < len(text); column-- {
		if text[offset] == '\n' {
			break
		}
		_, size := utf8.DecodeRuneInString(text[offset:])
		offset += size
	}
	return offset
}
