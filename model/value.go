package model

import (
	"encoding/json"
	"fmt"
)

type ValueKind uint8

const (
	KindInvalid ValueKind = iota
	KindString
	KindNumber
	KindBool
	KindObject
	KindList
)

// Value is the closed union of types a parameter may carry:
// string | number | bool | object | list. Anything else is rejected at
// construction so that every stored value round-trips through JSON.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	b    bool
	obj  map[string]Value
	list []Value
}

func StringValue(s string) Value {
	return Value{kind: KindString, str: s}
}

func NumberValue(n float64) Value {
	return Value{kind: KindNumber, num: n}
}

func IntValue(n int) Value {
	return Value{kind: KindNumber, num: float64(n)}
}

func BoolValue(b bool) Value {
	return Value{kind: KindBool, b: b}
}

func ObjectValue(obj map[string]Value) Value {
	if obj == nil {
		obj = map[string]Value{}
	}
	return Value{kind: KindObject, obj: obj}
}

func ListValue(items ...Value) Value {
	return Value{kind: KindList, list: items}
}

// ValueOf converts arbitrary decoded JSON data into a Value. Values outside
// the union (functions, channels, nil, ...) yield an error.
func ValueOf(v any) (Value, error) {
	switch t := v.(type) {
	case Value:
		return t, nil
	case string:
		return StringValue(t), nil
	case bool:
		return BoolValue(t), nil
	case float64:
		return NumberValue(t), nil
	case float32:
		return NumberValue(float64(t)), nil
	case int:
		return IntValue(t), nil
	case int32:
		return NumberValue(float64(t)), nil
	case int64:
		return NumberValue(float64(t)), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, err
		}
		return NumberValue(f), nil
	case map[string]Value:
		return ObjectValue(t), nil
	case map[string]any:
		obj := make(map[string]Value, len(t))
		for k, item := range t {
			converted, err := ValueOf(item)
			if err != nil {
				return Value{}, err
			}
			obj[k] = converted
		}
		return ObjectValue(obj), nil
	case []Value:
		return ListValue(t...), nil
	case []any:
		list := make([]Value, 0, len(t))
		for _, item := range t {
			converted, err := ValueOf(item)
			if err != nil {
				return Value{}, err
			}
			list = append(list, converted)
		}
		return ListValue(list...), nil
	case []string:
		list := make([]Value, 0, len(t))
		for _, item := range t {
			list = append(list, StringValue(item))
		}
		return ListValue(list...), nil
	default:
		return Value{}, fmt.Errorf("value of type %T is not representable as a parameter", v)
	}
}

func (v Value) Kind() ValueKind {
	return v.kind
}

func (v Value) IsZero() bool {
	return v.kind == KindInvalid
}

func (v Value) AsString() (string, bool) {
	return v.str, v.kind == KindString
}

func (v Value) AsNumber() (float64, bool) {
	return v.num, v.kind == KindNumber
}

func (v Value) AsInt() (int, bool) {
	return int(v.num), v.kind == KindNumber
}

func (v Value) AsBool() (bool, bool) {
	return v.b, v.kind == KindBool
}

func (v Value) AsObject() (map[string]Value, bool) {
	return v.obj, v.kind == KindObject
}

func (v Value) AsList() ([]Value, bool) {
	return v.list, v.kind == KindList
}

// Interface returns the plain Go representation used for JSON encoding.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	case KindObject:
		obj := make(map[string]any, len(v.obj))
		for k, item := range v.obj {
			obj[k] = item.Interface()
		}
		return obj
	case KindList:
		list := make([]any, 0, len(v.list))
		for _, item := range v.list {
			list = append(list, item.Interface())
		}
		return list
	default:
		return nil
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == KindInvalid {
		return []byte("null"), nil
	}
	return json.Marshal(v.Interface())
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*v = Value{}
		return nil
	}
	value, err := ValueOf(raw)
	if err != nil {
		return err
	}
	*v = value
	return nil
}

// Parameter is one typed key/value entry of the generic parameter bag
// carried by assistance records and assistance objects.
type Parameter struct {
	Key   string `json:"key"`
	Value Value  `json:"value"`
}

func NewParameter(key string, value Value) Parameter {
	return Parameter{Key: key, Value: value}
}

// FirstParameter returns the value of the first parameter with the given key.
func FirstParameter(params []Parameter, key string) (Value, bool) {
	for _, p := range params {
		if p.Key == key {
			return p.Value, true
		}
	}
	return Value{}, false
}

// ReplaceOrAddParameter replaces the value of an existing parameter or
// appends a new one.
func ReplaceOrAddParameter(params []Parameter, param Parameter) []Parameter {
	for i, p := range params {
		if p.Key == param.Key {
			params[i] = param
			return params
		}
	}
	return append(params, param)
}
