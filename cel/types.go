// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package cel

import (
	"reflect"
	"sort"
	"time"

	"github.com/google/cel-go/cel"
	celast "github.com/google/cel-go/common/ast"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"

	"github.com/stacklok/toolhive-expression/expression"
)

var (
	timeType     = reflect.TypeFor[time.Time]()
	durationType = reflect.TypeFor[time.Duration]()
)

// celType maps a Go type to the CEL type used to declare a variable of that type.
func celType(t reflect.Type) *cel.Type {
	switch t {
	case timeType:
		return cel.TimestampType
	case durationType:
		return cel.DurationType
	}

	switch t.Kind() {
	case reflect.Bool:
		return cel.BoolType
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return cel.IntType
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return cel.UintType
	case reflect.Float32, reflect.Float64:
		return cel.DoubleType
	case reflect.String:
		return cel.StringType
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return cel.BytesType
		}
		return cel.ListType(celType(t.Elem()))
	case reflect.Array:
		return cel.ListType(celType(t.Elem()))
	case reflect.Map:
		return cel.MapType(celType(t.Key()), celType(t.Elem()))
	default:
		return cel.DynType
	}
}

// freeIdentifiers returns the sorted identifiers referenced by the parsed
// expression, excluding the variables bound by comprehensions.
func freeIdentifiers(parsed *cel.Ast) []string {
	idents := make(map[string]bool)
	bound := make(map[string]bool)

	celast.PostOrderVisit(parsed.NativeRep().Expr(), celast.NewExprVisitor(func(e celast.Expr) {
		switch e.Kind() {
		case celast.IdentKind:
			idents[e.AsIdent()] = true
		case celast.ComprehensionKind:
			comp := e.AsComprehension()
			bound[comp.IterVar()] = true
			bound[comp.AccuVar()] = true
		}
	}))

	names := make([]string, 0, len(idents))
	for name := range idents {
		if !bound[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// toValue converts a CEL result into an expression.Value.
func toValue(val ref.Val) expression.Value {
	switch v := val.(type) {
	case types.Null:
		return expression.NullValue()
	case types.Bool:
		return expression.BoolValue(bool(v))
	case types.Int:
		return expression.IntValue(int64(v))
	case types.Uint:
		return expression.UintValue(uint64(v))
	case types.Double:
		return expression.DoubleValue(float64(v))
	case types.String:
		return expression.StringValue(string(v))
	case types.Bytes:
		return expression.BytesValue([]byte(v))
	case traits.Mapper:
		entries := make(map[any]expression.Value)
		for it := v.Iterator(); it.HasNext() == types.True; {
			key := it.Next()
			entries[key.Value()] = toValue(v.Get(key))
		}
		return expression.MapValue(entries)
	case traits.Lister:
		var items []expression.Value
		for it := v.Iterator(); it.HasNext() == types.True; {
			items = append(items, toValue(it.Next()))
		}
		return expression.ListValue(items...)
	default:
		return expression.ValueOf(val.Value())
	}
}
