package pathrecord

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Parse decodes one line of JSON text. The top level must be an object.
// A blank line yields ErrEmpty; anything else that is not a JSON object
// yields ErrParse.
func Parse(line string) (*Record, error) {
	if strings.TrimSpace(line) == "" {
		return nil, ErrEmpty
	}

	dec := json.NewDecoder(strings.NewReader(line))
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if v.kind != KindObject {
		return nil, fmt.Errorf("%w: top level is %s, want object", ErrParse, v.kind)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after object", ErrParse)
	}

	return &Record{root: v.obj}, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Value{}, io.ErrUnexpectedEOF
		}
		return Value{}, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return decodeObject(dec)
		case '[':
			return decodeArray(dec)
		default:
			return Value{}, fmt.Errorf("unexpected delimiter %q", t)
		}
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		return Value{kind: KindNumber, s: t.String()}, nil
	case string:
		return String(t), nil
	default:
		return Value{}, fmt.Errorf("unexpected token %v", tok)
	}
}

func decodeObject(dec *json.Decoder) (Value, error) {
	o := newObject()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return Value{}, err
		}
		key, ok := tok.(string)
		if !ok {
			return Value{}, fmt.Errorf("object key %v is not a string", tok)
		}
		v, err := decodeValue(dec)
		if err != nil {
			return Value{}, err
		}
		o.set(key, v)
	}
	if _, err := dec.Token(); err != nil { // '}'
		return Value{}, err
	}
	return Value{kind: KindObject, obj: o}, nil
}

func decodeArray(dec *json.Decoder) (Value, error) {
	arr := []Value{}
	for dec.More() {
		v, err := decodeValue(dec)
		if err != nil {
			return Value{}, err
		}
		arr = append(arr, v)
	}
	if _, err := dec.Token(); err != nil { // ']'
		return Value{}, err
	}
	return Value{kind: KindArray, arr: arr}, nil
}
