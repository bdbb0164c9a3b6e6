// Package pathrecord models a JSON document as an ordered tree addressed by
// dotted paths such as "val.sht.hmd".
//
// Nested objects are flattened into paths; arrays are opaque leaf values.
// Insertion order is preserved at every nesting level, so a record parsed from
// a line serializes back with its keys in input order.
package pathrecord

import (
	"bytes"
	"fmt"
	"strings"
)

// Separator joins path segments.
const Separator = "."

// Record is a JSON object addressed by dotted paths. The zero value is not
// usable; create records with New or Parse.
type Record struct {
	root *object
}

func New() *Record {
	return &Record{root: newObject()}
}

// Paths returns every leaf path in insertion order. Empty objects count as
// leaves; arrays are never expanded.
func (r *Record) Paths() []string {
	var out []string
	collectPaths(r.root, "", &out)
	return out
}

func collectPaths(o *object, prefix string, out *[]string) {
	for _, k := range o.keys {
		path := k
		if prefix != "" {
			path = prefix + Separator + k
		}
		v := o.fields[k]
		if v.kind == KindObject && len(v.obj.keys) > 0 {
			collectPaths(v.obj, path, out)
			continue
		}
		*out = append(*out, path)
	}
}

// HasPath reports whether path addresses a node, leaf or interior.
func (r *Record) HasPath(path string) bool {
	_, ok := r.lookup(path)
	return ok
}

// Node returns the value at path. The empty path addresses the whole record.
func (r *Record) Node(path string) (Value, error) {
	v, ok := r.lookup(path)
	if !ok {
		return Value{}, fmt.Errorf("%w: %q", ErrNotFound, path)
	}
	return v, nil
}

// Append stores a copy of v at path, creating intermediate objects as needed
// and overwriting any existing value. The record is left untouched when an
// intermediate segment holds a non-object value.
func (r *Record) Append(path string, v Value) error {
	if path == "" {
		if v.kind != KindObject {
			return fmt.Errorf("%w: root must be an object, got %s", ErrPathConflict, v.kind)
		}
		r.root = v.obj.clone()
		return nil
	}

	segments := splitPath(path)
	parents := segments[:len(segments)-1]

	o := r.root
	for i, seg := range parents {
		child, ok := o.get(seg)
		if !ok {
			break
		}
		if child.kind != KindObject {
			return fmt.Errorf("%w: %q", ErrPathConflict, strings.Join(segments[:i+1], Separator))
		}
		o = child.obj
	}

	o = r.root
	for _, seg := range parents {
		child, ok := o.get(seg)
		if !ok {
			child = Value{kind: KindObject, obj: newObject()}
			o.set(seg, child)
		}
		o = child.obj
	}
	o.set(segments[len(segments)-1], v.clone())
	return nil
}

// Copy copies the subtree at path from src into r, preserving its nesting.
func (r *Record) Copy(src *Record, path string) error {
	v, ok := src.lookup(path)
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, path)
	}
	return r.Append(path, v)
}

// String returns the record as a single line of compact JSON.
func (r *Record) String() string {
	var buf bytes.Buffer
	r.root.appendJSON(&buf)
	return buf.String()
}

func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	r.root.appendJSON(&buf)
	return buf.Bytes(), nil
}

func (r *Record) lookup(path string) (Value, bool) {
	cur := Value{kind: KindObject, obj: r.root}
	if path == "" {
		return cur, true
	}
	for _, seg := range splitPath(path) {
		if cur.kind != KindObject {
			return Value{}, false
		}
		next, ok := cur.obj.get(seg)
		if !ok {
			return Value{}, false
		}
		cur = next
	}
	return cur, true
}

func splitPath(path string) []string {
	return strings.Split(path, Separator)
}
