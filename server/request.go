// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/stacklok/toolhive-expression/expression"
)

// Request is the body of every API call.
type Request struct {
	// Backend selects the compiler; empty selects the server default.
	Backend    string                 `json:"backend,omitempty"`
	Expression string                 `json:"expression,omitempty"`
	Template   string                 `json:"template,omitempty"`
	Config     *expression.ConfigFile `json:"config,omitempty"`
	Vars       map[string]any         `json:"vars,omitempty"`
}

// Response is the body of every API answer.
type Response struct {
	Valid       bool         `json:"valid"`
	Kind        string       `json:"kind,omitempty"`
	Result      any          `json:"result,omitempty"`
	Output      *string      `json:"output,omitempty"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
	Error       string       `json:"error,omitempty"`
}

// Diagnostic is one compile failure.
type Diagnostic struct {
	Name    string `json:"name,omitempty"`
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Cursor  int    `json:"cursor"`
	Message string `json:"message"`
	Source  string `json:"source"`
}

// decodeRequest decodes a Request. Numbers in vars become int64 when they are
// integral and float64 otherwise.
func decodeRequest(r io.Reader) (*Request, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	dec.DisallowUnknownFields()

	var req Request
	if err := dec.Decode(&req); err != nil {
		return nil, fmt.Errorf("invalid request body: %w", err)
	}
	for name, v := range req.Vars {
		req.Vars[name] = normalizeNumbers(v)
	}
	return &req, nil
}

func normalizeNumbers(v any) any {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i
		}
		f, _ := n.Float64()
		return f
	case []any:
		for i, item := range n {
			n[i] = normalizeNumbers(item)
		}
		return n
	case map[string]any:
		for k, item := range n {
			n[k] = normalizeNumbers(item)
		}
		return n
	default:
		return v
	}
}
