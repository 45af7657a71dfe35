// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

/*
Package exprlang provides an expr-lang/expr implementation of
expression.Compiler.

	compiler := exprlang.New()
	compiled, err := compiler.Compile(`price * qty`, expression.NewConfig(loader.New()))
	if err != nil {
	    // *expression.CompileError with an absolute position
	}
	result, err := compiled.Eval(map[string]any{"price": 3, "qty": 4})

Variables named in the config's variable types are checked against the
resolved Go types. Other identifiers are accepted and evaluate to nil when
missing, unless WithStrictVariables is set.

# Language Differences

The two backends compile different languages, so the same text can succeed on
one and fail on the other. expr-lang has a unary plus, so "1 + + 2" compiles
here and evaluates to 3, while the CEL backend reports a parse error at the
second "+". Operator sequences such as "1 + * 2" fail on both.
*/
package exprlang
