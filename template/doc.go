// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

/*
Package template renders documents with embedded expressions.

An expression is written as ${...} anywhere in the document; $${ produces a
literal ${. Every expression is compiled at its position in the document, so a
compile failure reports the line and column where the problem is in the
document and not within the expression alone:

	tmpl, err := template.Parse(cel.NewEngine(), doc, expression.NewConfig(loader.New()).WithName("motd.txt"))
	if err != nil {
	    for _, ce := range template.CompileErrors(err) {
	        fmt.Println(ce) // motd.txt:4:17: Syntax error: ...
	    }
	}
	out, err := tmpl.Render(map[string]any{"user": "ann"})
*/
package template
