// Package typeddata is an immutable, order-preserving JSON value model for
// EIP-712 payloads.
//
// Object fields keep the order they were received in and number literals keep
// their exact text, so a payload can be stripped of bookkeeping fields and
// handed to a signer without reordering or coercing anything.
package typeddata

import (
	"encoding/json"
)

// Kind is the variant tag of a Value
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Field is a named member of an object
type Field struct {
	Name  string
	Value Value
}

// F is shorthand for a Field
func F(name string, v Value) Field {
	return Field{Name: name, Value: v}
}

// Value is a JSON value. The zero Value is null.
type Value struct {
	kind   Kind
	b      bool
	text   string // string contents or number literal
	items  []Value
	fields []Field
}

// Null returns the null value
func Null() Value { return Value{} }

// Bool returns a boolean value
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// String returns a string value
func String(s string) Value { return Value{kind: KindString, text: s} }

// Number returns a number value carrying literal exactly as given
func Number(literal string) Value { return Value{kind: KindNumber, text: literal} }

// Array returns an array value
func Array(items ...Value) Value {
	return Value{kind: KindArray, items: append([]Value{}, items...)}
}

// Object returns an object value with fields in the given order
func Object(fields ...Field) Value {
	return Value{kind: KindObject, fields: append([]Field{}, fields...)}
}

// Kind returns the variant of v
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null
func (v Value) IsNull() bool { return v.kind == KindNull }

// Get returns the field name of an object
func (v Value) Get(name string) (Value, bool) {
	for _, f := range v.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Fields returns a copy of the fields of an object
func (v Value) Fields() []Field {
	return append([]Field{}, v.fields...)
}

// Keys returns the field names of an object in order
func (v Value) Keys() []string {
	keys := make([]string, len(v.fields))
	for i, f := range v.fields {
		keys[i] = f.Name
	}
	return keys
}

// Items returns a copy of the items of an array
func (v Value) Items() []Value {
	return append([]Value{}, v.items...)
}

// Len is the number of fields of an object or items of an array
func (v Value) Len() int {
	switch v.kind {
	case KindObject:
		return len(v.fields)
	case KindArray:
		return len(v.items)
	default:
		return 0
	}
}

// Str returns the contents of a string value
func (v Value) Str() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.text, true
}

// Literal returns the text of a number value exactly as received
func (v Value) Literal() (string, bool) {
	if v.kind != KindNumber {
		return "", false
	}
	return v.text, true
}

// Text returns the string contents or number literal of a scalar
func (v Value) Text() (string, bool) {
	if v.kind != KindString && v.kind != KindNumber {
		return "", false
	}
	return v.text, true
}

// BoolValue returns the contents of a boolean value
func (v Value) BoolValue() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// Equal reports deep equality, including field order and number literals
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindNumber, KindString:
		return v.text == o.text
	case KindArray:
		if len(v.items) != len(o.items) {
			return false
		}
		for i := range v.items {
			if !v.items[i].Equal(o.items[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(v.fields) != len(o.fields) {
			return false
		}
		for i := range v.fields {
			if v.fields[i].Name != o.fields[i].Name || !v.fields[i].Value.Equal(o.fields[i].Value) {
				return false
			}
		}
		return true
	}
	return false
}

// Interface converts v to the generic Go representation. Numbers become
// json.Number so their literal survives.
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return json.Number(v.text)
	case KindString:
		return v.text
	case KindArray:
		out := make([]interface{}, len(v.items))
		for i, item := range v.items {
			out[i] = item.Interface()
		}
		return out
	case KindObject:
		out := make(map[string]interface{}, len(v.fields))
		for _, f := range v.fields {
			out[f.Name] = f.Value.Interface()
		}
		return out
	default:
		return nil
	}
}
