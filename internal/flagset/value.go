package flagset

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind identifies the payload type of a Value.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindBool
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Value is a flag payload: a string, a number, a bool, or a list of values.
// JSON objects and nulls are not valid payloads anywhere inside a value.
// Numbers keep their literal text, so 1 and 1.0 are distinct values.
type Value struct {
	kind Kind
	str  string
	num  json.Number
	b    bool
	list []Value
}

// String returns a Value holding a string.
func String(s string) Value {
	return Value{kind: KindString, str: s}
}

// Number returns a Value holding a number literal. The literal must be a
// valid JSON number.
func Number(n json.Number) Value {
	return Value{kind: KindNumber, num: n}
}

// Bool returns a Value holding a bool.
func Bool(b bool) Value {
	return Value{kind: KindBool, b: b}
}

// List returns a Value holding a list of values.
func List(vs ...Value) Value {
	return Value{kind: KindList, list: vs}
}

// Kind reports the payload type.
func (v Value) Kind() Kind {
	return v.kind
}

// Equal reports whether two values have the same kind and payload. Numbers
// compare by literal text; lists compare element-wise in order.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// String renders the value as compact JSON.
func (v Value) String() string {
	data, err := json.Marshal(v)
	if err != nil {
		return "<invalid>"
	}
	return string(data)
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		if v.num == "" {
			return []byte("0"), nil
		}
		return []byte(v.num), nil
	case KindBool:
		return json.Marshal(v.b)
	case KindList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	}
	return nil, fmt.Errorf("unknown value kind %d", int(v.kind))
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	head := firstByte(data)
	switch {
	case head == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = String(s)
		return nil
	case head == 't' || head == 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = Bool(b)
		return nil
	case head == '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		list := make([]Value, len(items))
		for i, item := range items {
			if err := list[i].UnmarshalJSON(item); err != nil {
				return err
			}
		}
		*v = Value{kind: KindList, list: list}
		return nil
	case head == 'n':
		return errors.New("null is not a valid flag value")
	case head == '{':
		return errors.New("objects are not valid flag values")
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*v = Number(n)
		return nil
	}
}

func firstByte(data []byte) byte {
	for _, b := range data {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		}
		return b
	}
	return 0
}
