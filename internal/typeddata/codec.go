package typeddata

import (
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
)

const maxDepth = 64

var api = jsoniter.ConfigCompatibleWithStandardLibrary

// Parse decodes a JSON document keeping object field order and number
// literals. Duplicate object keys are rejected.
func Parse(data []byte) (Value, error) {
	iter := api.BorrowIterator(data)
	defer api.ReturnIterator(iter)

	v, err := readValue(iter, 0)
	if err != nil {
		return Value{}, err
	}
	if next := iter.WhatIsNext(); next != jsoniter.InvalidValue || iter.Error != io.EOF {
		return Value{}, fmt.Errorf("unexpected data after JSON value")
	}
	return v, nil
}

func readValue(iter *jsoniter.Iterator, depth int) (Value, error) {
	if depth > maxDepth {
		return Value{}, fmt.Errorf("JSON nesting deeper than %d", maxDepth)
	}

	var (
		v   Value
		err error
	)
	switch iter.WhatIsNext() {
	case jsoniter.NilValue:
		iter.ReadNil()
	case jsoniter.BoolValue:
		v = Bool(iter.ReadBool())
	case jsoniter.NumberValue:
		v = Number(string(iter.ReadNumber()))
	case jsoniter.StringValue:
		v = String(iter.ReadString())
	case jsoniter.ArrayValue:
		v = Value{kind: KindArray, items: []Value{}}
		iter.ReadArrayCB(func(it *jsoniter.Iterator) bool {
			item, itemErr := readValue(it, depth+1)
			if itemErr != nil {
				err = itemErr
				return false
			}
			v.items = append(v.items, item)
			return true
		})
	case jsoniter.ObjectValue:
		v = Value{kind: KindObject, fields: []Field{}}
		seen := make(map[string]struct{})
		iter.ReadObjectCB(func(it *jsoniter.Iterator, name string) bool {
			if _, dup := seen[name]; dup {
				err = fmt.Errorf("duplicate key %q", name)
				return false
			}
			seen[name] = struct{}{}
			field, fieldErr := readValue(it, depth+1)
			if fieldErr != nil {
				err = fieldErr
				return false
			}
			v.fields = append(v.fields, Field{Name: name, Value: field})
			return true
		})
	default:
		return Value{}, fmt.Errorf("invalid JSON value")
	}

	if err != nil {
		return Value{}, err
	}
	if iter.Error != nil && iter.Error != io.EOF {
		return Value{}, fmt.Errorf("failed to parse JSON: %w", iter.Error)
	}
	return v, nil
}

// MarshalJSON encodes v with object fields in order and number literals as
// received
func (v Value) MarshalJSON() ([]byte, error) {
	stream := api.BorrowStream(nil)
	defer api.ReturnStream(stream)

	v.write(stream)
	if stream.Error != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", stream.Error)
	}
	return append([]byte{}, stream.Buffer()...), nil
}

// UnmarshalJSON implements json.Unmarshaler on top of Parse
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (v Value) write(stream *jsoniter.Stream) {
	switch v.kind {
	case KindNull:
		stream.WriteNil()
	case KindBool:
		stream.WriteBool(v.b)
	case KindNumber:
		stream.WriteRaw(v.text)
	case KindString:
		stream.WriteString(v.text)
	case KindArray:
		stream.WriteArrayStart()
		for i, item := range v.items {
			if i > 0 {
				stream.WriteMore()
			}
			item.write(stream)
		}
		stream.WriteArrayEnd()
	case KindObject:
		stream.WriteObjectStart()
		for i, f := range v.fields {
			if i > 0 {
				stream.WriteMore()
			}
			stream.WriteObjectField(f.Name)
			f.Value.write(stream)
		}
		stream.WriteObjectEnd()
	}
}
