// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package expression_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/toolhive-expression/expression"
	"github.com/stacklok/toolhive-expression/loader"
)

func TestNewConfig_Defaults(t *testing.T) {
	t.Parallel()

	reg := loader.New()
	cfg := expression.NewConfig(reg)

	assert.Equal(t, 1, cfg.StartRow())
	assert.Equal(t, 1, cfg.StartColumn())
	assert.Same(t, reg, cfg.Loader())

	_, ok := cfg.Name()
	assert.False(t, ok)
	_, ok = cfg.VariableTypes()
	assert.False(t, ok)
	assert.NoError(t, cfg.Validate())
}

func TestCopyConfig(t *testing.T) {
	t.Parallel()

	t.Run("copy is independent", func(t *testing.T) {
		t.Parallel()

		types := map[string]string{"a": "int"}
		orig := expression.NewConfig(loader.New()).
			WithStartRow(4).
			WithStartColumn(9).
			WithName("page.tmpl").
			WithVariableTypes(types)

		cp, err := expression.CopyConfig(orig)
		require.NoError(t, err)

		assert.Equal(t, orig.StartRow(), cp.StartRow())
		assert.Equal(t, orig.StartColumn(), cp.StartColumn())
		assert.Same(t, orig.Loader(), cp.Loader())
		name, ok := cp.Name()
		assert.True(t, ok)
		assert.Equal(t, "page.tmpl", name)

		cp.WithStartRow(20).WithStartColumn(30)
		assert.Equal(t, 4, orig.StartRow())
		assert.Equal(t, 9, orig.StartColumn())
	})

	t.Run("variable types are shared by reference", func(t *testing.T) {
		t.Parallel()

		types := map[string]string{"a": "int"}
		orig := expression.NewConfig(loader.New()).WithVariableTypes(types)
		cp, err := expression.CopyConfig(orig)
		require.NoError(t, err)

		types["b"] = "string"
		got, ok := cp.VariableTypes()
		require.True(t, ok)
		assert.Equal(t, "string", got["b"])
	})

	t.Run("nil config", func(t *testing.T) {
		t.Parallel()

		cp, err := expression.CopyConfig(nil)
		require.ErrorIs(t, err, expression.ErrInvalidArgument)
		assert.Nil(t, cp)
	})
}

func TestConfig_Advance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		row, col   int
		text       string
		wantRow    int
		wantColumn int
	}{
		{name: "empty text", row: 1, col: 1, text: "", wantRow: 1, wantColumn: 1},
		{name: "same line", row: 3, col: 5, text: "abc", wantRow: 3, wantColumn: 8},
		{name: "runes not bytes", row: 1, col: 1, text: "héllo ", wantRow: 1, wantColumn: 7},
		{name: "next line", row: 2, col: 7, text: "x\nab", wantRow: 3, wantColumn: 3},
		{name: "trailing newline", row: 1, col: 4, text: "one\ntwo\n", wantRow: 3, wantColumn: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := expression.NewConfig(loader.New()).WithStartRow(tt.row).WithStartColumn(tt.col)
			advanced := cfg.Advance(tt.text)

			assert.Equal(t, tt.wantRow, advanced.StartRow())
			assert.Equal(t, tt.wantColumn, advanced.StartColumn())
			assert.Equal(t, tt.row, cfg.StartRow(), "original must not change")
			assert.Equal(t, tt.col, cfg.StartColumn(), "original must not change")
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	var nilCfg *expression.Config
	tests := []struct {
		name string
		cfg  *expression.Config
	}{
		{name: "nil config", cfg: nilCfg},
		{name: "nil loader", cfg: expression.NewConfig(nil)},
		{name: "zero row", cfg: expression.NewConfig(loader.New()).WithStartRow(0)},
		{name: "negative column", cfg: expression.NewConfig(loader.New()).WithStartColumn(-2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.ErrorIs(t, tt.cfg.Validate(), expression.ErrInvalidArgument)
		})
	}
}

func TestConfig_ResolveVariableTypes(t *testing.T) {
	t.Parallel()

	t.Run("no variable types", func(t *testing.T) {
		t.Parallel()

		resolved, err := expression.NewConfig(loader.New()).ResolveVariableTypes()
		require.NoError(t, err)
		assert.Nil(t, resolved)
	})

	t.Run("resolves through the loader", func(t *testing.T) {
		t.Parallel()

		cfg := expression.NewConfig(loader.New()).
			WithVariableTypes(map[string]string{"n": "int", "tags": "list<string>"})
		resolved, err := cfg.ResolveVariableTypes()
		require.NoError(t, err)
		assert.Equal(t, "int64", resolved["n"].String())
		assert.Equal(t, "[]string", resolved["tags"].String())
	})

	t.Run("unknown type name", func(t *testing.T) {
		t.Parallel()

		cfg := expression.NewConfig(loader.New()).
			WithVariableTypes(map[string]string{"n": "bogus"})
		_, err := cfg.ResolveVariableTypes()
		require.ErrorIs(t, err, expression.ErrInvalidArgument)
		assert.ErrorIs(t, err, loader.ErrUnknownType)
	})
}

func TestWindow(t *testing.T) {
	t.Parallel()

	doc := "hello ${name}!"

	text, err := expression.Window(doc, 8, 4)
	require.NoError(t, err)
	assert.Equal(t, "name", text)

	text, err = expression.Window(doc, len(doc), 0)
	require.NoError(t, err)
	assert.Empty(t, text)

	for _, w := range []struct{ start, length int }{{-1, 1}, {0, -1}, {10, 5}, {len(doc) + 1, 0}} {
		_, err := expression.Window(doc, w.start, w.length)
		assert.True(t, errors.Is(err, expression.ErrOutOfBounds), "window %d+%d", w.start, w.length)
	}
}
