package pathrecord

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies the JSON type held by a Value.
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
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is a JSON value. Numbers keep their literal text so that a parsed
// document serializes back without reformatting.
type Value struct {
	kind Kind
	b    bool
	s    string // number literal or string contents
	arr  []Value
	obj  *object
}

func Null() Value { return Value{kind: KindNull} }

func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

func String(s string) Value { return Value{kind: KindString, s: s} }

func Int(n int64) Value { return Value{kind: KindNumber, s: strconv.FormatInt(n, 10)} }

// Float returns a number value. NaN and infinities have no JSON form and
// become null.
func Float(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Null()
	}
	b, _ := json.Marshal(f)
	return Value{kind: KindNumber, s: string(b)}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

// Float converts a number, or a string holding a number, to float64.
// Booleans convert to 1 and 0.
func (v Value) Float() (float64, error) {
	switch v.kind {
	case KindBool:
		if v.b {
			return 1, nil
		}
		return 0, nil
	case KindNumber:
		f, err := strconv.ParseFloat(v.s, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: number %q: %v", ErrCast, v.s, err)
		}
		return f, nil
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: string %q is not numeric", ErrCast, v.s)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%w: %s is not numeric", ErrCast, v.kind)
	}
}

// Str returns the contents of a string value.
func (v Value) Str() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

// Interface converts v to the plain Go representation used by encoding/json
// with UseNumber: nil, bool, json.Number, string, []any or map[string]any.
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return json.Number(v.s)
	case KindString:
		return v.s
	case KindArray:
		out := make([]any, len(v.arr))
		for i, e := range v.arr {
			out[i] = e.Interface()
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.obj.keys))
		for _, k := range v.obj.keys {
			out[k] = v.obj.fields[k].Interface()
		}
		return out
	default:
		return nil
	}
}

func (v Value) String() string {
	var buf bytes.Buffer
	v.appendJSON(&buf)
	return buf.String()
}

func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	v.appendJSON(&buf)
	return buf.Bytes(), nil
}

func (v Value) clone() Value {
	switch v.kind {
	case KindArray:
		arr := make([]Value, len(v.arr))
		for i, e := range v.arr {
			arr[i] = e.clone()
		}
		return Value{kind: KindArray, arr: arr}
	case KindObject:
		return Value{kind: KindObject, obj: v.obj.clone()}
	default:
		return v
	}
}

func (v Value) appendJSON(buf *bytes.Buffer) {
	switch v.kind {
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindNumber:
		buf.WriteString(v.s)
	case KindString:
		quote(buf, v.s)
	case KindArray:
		buf.WriteByte('[')
		for i, e := range v.arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			e.appendJSON(buf)
		}
		buf.WriteByte(']')
	case KindObject:
		v.obj.appendJSON(buf)
	default:
		buf.WriteString("null")
	}
}

func quote(buf *bytes.Buffer, s string) {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	// Encoding a string cannot fail.
	_ = enc.Encode(s)
	buf.Truncate(buf.Len() - 1) // Encode appends '\n'
}

// object is an insertion-ordered JSON object.
type object struct {
	keys   []string
	fields map[string]Value
}

func newObject() *object {
	return &object{fields: make(map[string]Value)}
}

func (o *object) get(key string) (Value, bool) {
	v, ok := o.fields[key]
	return v, ok
}

// set overwrites in place when key exists, otherwise appends it.
func (o *object) set(key string, v Value) {
	if _, ok := o.fields[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.fields[key] = v
}

func (o *object) clone() *object {
	out := &object{
		keys:   append([]string(nil), o.keys...),
		fields: make(map[string]Value, len(o.fields)),
	}
	for k, v := range o.fields {
		out.fields[k] = v.clone()
	}
	return out
}

func (o *object) appendJSON(buf *bytes.Buffer) {
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		quote(buf, k)
		buf.WriteByte(':')
		o.fields[k].appendJSON(buf)
	}
	buf.WriteByte('}')
}
