// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package expression

import (
	"encoding/base64"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies the type of a Value.
type Kind int

// Value kinds.
const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindUint
	KindDouble
	KindString
	KindBytes
	KindList
	KindMap
	KindObject
)

var kindNames = [...]string{
	KindNull:   "null",
	KindBool:   "bool",
	KindInt:    "int",
	KindUint:   "uint",
	KindDouble: "double",
	KindString: "string",
	KindBytes:  "bytes",
	KindList:   "list",
	KindMap:    "map",
	KindObject: "object",
}

// String returns the name of the kind.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
	return kindNames[k]
}

// Value is the result of evaluating an expression. It holds exactly one of the
// kinds listed above; the zero Value is null.
type Value struct {
	kind Kind
	v    any
}

// NullValue returns the null value.
func NullValue() Value { return Value{} }

// BoolValue wraps a bool.
func BoolValue(b bool) Value { return Value{kind: KindBool, v: b} }

// IntValue wraps a signed integer.
func IntValue(i int64) Value { return Value{kind: KindInt, v: i} }

// UintValue wraps an unsigned integer.
func UintValue(u uint64) Value { return Value{kind: KindUint, v: u} }

// DoubleValue wraps a floating point number.
func DoubleValue(f float64) Value { return Value{kind: KindDouble, v: f} }

// StringValue wraps a string.
func StringValue(s string) Value { return Value{kind: KindString, v: s} }

// BytesValue wraps a byte slice.
func BytesValue(b []byte) Value { return Value{kind: KindBytes, v: b} }

// ListValue wraps a list of values.
func ListValue(items ...Value) Value { return Value{kind: KindList, v: items} }

// MapValue wraps a map. Keys are native comparable Go values such as string,
// int64, uint64 or bool.
func MapValue(entries map[any]Value) Value { return Value{kind: KindMap, v: entries} }

// ObjectValue wraps any value that has no dedicated kind, such as a timestamp.
func ObjectValue(o any) Value { return Value{kind: KindObject, v: o} }

// ValueOf classifies a native Go value.
func ValueOf(native any) Value {
	switch n := native.(type) {
	case nil:
		return NullValue()
	case Value:
		return n
	case bool:
		return BoolValue(n)
	case int:
		return IntValue(int64(n))
	case int8:
		return IntValue(int64(n))
	case int16:
		return IntValue(int64(n))
	case int32:
		return IntValue(int64(n))
	case int64:
		return IntValue(n)
	case uint:
		return UintValue(uint64(n))
	case uint8:
		return UintValue(uint64(n))
	case uint16:
		return UintValue(uint64(n))
	case uint32:
		return UintValue(uint64(n))
	case uint64:
		return UintValue(n)
	case float32:
		return DoubleValue(float64(n))
	case float64:
		return DoubleValue(n)
	case string:
		return StringValue(n)
	case []byte:
		return BytesValue(n)
	}

	rv := reflect.ValueOf(native)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		items := make([]Value, rv.Len())
		for i := range items {
			items[i] = ValueOf(rv.Index(i).Interface())
		}
		return ListValue(items...)
	case reflect.Map:
		entries := make(map[any]Value, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			entries[iter.Key().Interface()] = ValueOf(iter.Value().Interface())
		}
		return MapValue(entries)
	case reflect.Pointer:
		if rv.IsNil() {
			return NullValue()
		}
	}
	return ObjectValue(native)
}

// Kind returns the kind of the value.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) mismatch(want Kind) error {
	return fmt.Errorf("%w: expected %s, got %s", ErrInvalidResult, want, v.kind)
}

// AsBool returns the value as a bool.
func (v Value) AsBool() (bool, error) {
	if v.kind != KindBool {
		return false, v.mismatch(KindBool)
	}
	return v.v.(bool), nil
}

// AsInt returns the value as a signed integer.
func (v Value) AsInt() (int64, error) {
	if v.kind != KindInt {
		return 0, v.mismatch(KindInt)
	}
	return v.v.(int64), nil
}

// AsUint returns the value as an unsigned integer.
func (v Value) AsUint() (uint64, error) {
	if v.kind != KindUint {
		return 0, v.mismatch(KindUint)
	}
	return v.v.(uint64), nil
}

// AsDouble returns the value as a float64.
func (v Value) AsDouble() (float64, error) {
	if v.kind != KindDouble {
		return 0, v.mismatch(KindDouble)
	}
	return v.v.(float64), nil
}

// AsString returns the value as a string.
func (v Value) AsString() (string, error) {
	if v.kind != KindString {
		return "", v.mismatch(KindString)
	}
	return v.v.(string), nil
}

// AsBytes returns the value as a byte slice.
func (v Value) AsBytes() ([]byte, error) {
	if v.kind != KindBytes {
		return nil, v.mismatch(KindBytes)
	}
	return v.v.([]byte), nil
}

// AsList returns the elements of a list value.
func (v Value) AsList() ([]Value, error) {
	if v.kind != KindList {
		return nil, v.mismatch(KindList)
	}
	return v.v.([]Value), nil
}

// AsMap returns the entries of a map value.
func (v Value) AsMap() (map[any]Value, error) {
	if v.kind != KindMap {
		return nil, v.mismatch(KindMap)
	}
	return v.v.(map[any]Value), nil
}

// Native converts the value to plain Go data: lists become []any and maps
// become map[any]any.
func (v Value) Native() any {
	switch v.kind {
	case KindList:
		items := v.v.([]Value)
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = item.Native()
		}
		return out
	case KindMap:
		entries := v.v.(map[any]Value)
		out := make(map[any]any, len(entries))
		for k, item := range entries {
			out[k] = item.Native()
		}
		return out
	default:
		return v.v
	}
}

// String renders the value for display. Strings are rendered without quotes at
// the top level.
func (v Value) String() string {
	if v.kind == KindString {
		return v.v.(string)
	}
	var b strings.Builder
	v.write(&b)
	return b.String()
}

func (v Value) write(b *strings.Builder) {
	switch v.kind {
	case KindNull:
		b.WriteString("null")
	case KindString:
		b.WriteString(strconv.Quote(v.v.(string)))
	case KindBytes:
		b.WriteString(base64.StdEncoding.EncodeToString(v.v.([]byte)))
	case KindDouble:
		b.WriteString(strconv.FormatFloat(v.v.(float64), 'g', -1, 64))
	case KindList:
		b.WriteByte('[')
		for i, item := range v.v.([]Value) {
			if i > 0 {
				b.WriteString(", ")
			}
			item.write(b)
		}
		b.WriteByte(']')
	case KindMap:
		entries := v.v.(map[any]Value)
		keys := make([]string, 0, len(entries))
		byKey := make(map[string]Value, len(entries))
		for k, item := range entries {
			ks := fmt.Sprint(k)
			if s, ok := k.(string); ok {
				ks = strconv.Quote(s)
			}
			keys = append(keys, ks)
			byKey[ks] = item
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(k)
			b.WriteString(": ")
			byKey[k].write(b)
		}
		b.WriteByte('}')
	default:
		fmt.Fprint(b, v.v)
	}
}
