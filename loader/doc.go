// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

/*
Package loader provides Registry, the resource context that expressions are
compiled against.

A Registry plays two roles. It resolves the type names used in
expression.Config variable types to Go types:

	reg := loader.New()
	_ = reg.Register("user", reflect.TypeFor[map[string]any]())

	t, err := reg.ResolveType("list<int>") // []int64

It also owns the runtime artifacts that backends generate while compiling, such
as extended CEL environments. Artifacts are shared by every expression compiled
against the same Registry and are released together with it. A long-lived
Registry therefore keeps its artifacts alive, and a compiled expression keeps
its Registry's artifacts alive.
*/
package loader
