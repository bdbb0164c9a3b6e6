// Package bounds selects documents whose value at a path lies inside, or
// outside, a half-open interval.
package bounds

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cloudpico-analysis/internal/pathrecord"
)

var (
	ErrBound = errors.New("invalid bound")
	ErrCast  = errors.New("invalid value")
)

// Type is the declared type of the filtered field.
type Type int

const (
	Numeric Type = iota
	ISO8601
)

func (t Type) String() string {
	switch t {
	case Numeric:
		return "numeric"
	case ISO8601:
		return "ISO 8601"
	default:
		return fmt.Sprintf("type(%d)", int(t))
	}
}

// Point is a position on a numeric or time axis.
type Point struct {
	typ Type
	num float64
	at  time.Time
}

// Less reports whether p sorts before q. Both must share a type.
func (p Point) Less(q Point) bool {
	if p.typ == ISO8601 {
		return p.at.Before(q.at)
	}
	return p.num < q.num
}

// Time is the instant of an ISO8601 point.
func (p Point) Time() time.Time {
	return p.at
}

// Float is the value of a Numeric point.
func (p Point) Float() float64 {
	return p.num
}

func (p Point) String() string {
	if p.typ == ISO8601 {
		return p.at.Format(time.RFC3339Nano)
	}
	return strconv.FormatFloat(p.num, 'g', -1, 64)
}

// ParseBound parses a bound given on the command line.
func ParseBound(typ Type, s string) (Point, error) {
	p, err := parse(typ, strings.TrimSpace(s))
	if err != nil {
		return Point{}, fmt.Errorf("%w: %q is not a valid %s value", ErrBound, s, typ)
	}
	return p, nil
}

// Cast converts a document value to a Point of the given type. Numbers,
// numeric strings and booleans are accepted for Numeric; ISO8601 accepts
// strings only.
func Cast(typ Type, v pathrecord.Value) (Point, error) {
	if typ == Numeric {
		f, err := v.Float()
		if err != nil {
			return Point{}, fmt.Errorf("%w: %s", ErrCast, v)
		}
		return Point{typ: Numeric, num: f}, nil
	}

	s, ok := v.Str()
	if !ok {
		return Point{}, fmt.Errorf("%w: %s", ErrCast, v)
	}
	p, err := parse(ISO8601, strings.TrimSpace(s))
	if err != nil {
		return Point{}, fmt.Errorf("%w: %s", ErrCast, v)
	}
	return p, nil
}

func parse(typ Type, s string) (Point, error) {
	switch typ {
	case Numeric:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Point{}, err
		}
		return Point{typ: Numeric, num: f}, nil
	case ISO8601:
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return Point{}, err
		}
		return Point{typ: ISO8601, at: t}, nil
	default:
		return Point{}, fmt.Errorf("unknown type %d", int(typ))
	}
}

// Result classifies one document.
type Result int

const (
	// Missing means the path is absent, null, or an empty string.
	Missing Result = iota
	Inside
	Outside
)

// Filter applies lower <= value < upper to the value at Path. Either bound
// may be omitted.
type Filter struct {
	path       string
	typ        Type
	lower      *Point
	upper      *Point
	exclusions bool
}

// New builds a filter. An empty lower or upper string leaves that side
// unbounded. When both are given lower must sort before upper.
func New(path string, typ Type, lower, upper string, exclusions bool) (*Filter, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: path is required", ErrBound)
	}
	f := &Filter{path: path, typ: typ, exclusions: exclusions}

	if lower != "" {
		p, err := ParseBound(typ, lower)
		if err != nil {
			return nil, fmt.Errorf("lower bound: %w", err)
		}
		f.lower = &p
	}
	if upper != "" {
		p, err := ParseBound(typ, upper)
		if err != nil {
			return nil, fmt.Errorf("upper bound: %w", err)
		}
		f.upper = &p
	}
	if f.lower != nil && f.upper != nil && !f.lower.Less(*f.upper) {
		return nil, fmt.Errorf("%w: lower bound %s must be less than upper bound %s", ErrBound, f.lower, f.upper)
	}
	return f, nil
}

// Classify locates the filtered value in rec. Values that are present but
// cannot be cast return ErrCast.
func (f *Filter) Classify(rec *pathrecord.Record) (Result, error) {
	v, err := rec.Node(f.path)
	if err != nil {
		return Missing, nil
	}
	switch v.Kind() {
	case pathrecord.KindNull:
		return Missing, nil
	case pathrecord.KindString:
		if s, _ := v.Str(); s == "" {
			return Missing, nil
		}
	}

	p, err := Cast(f.typ, v)
	if err != nil {
		return Missing, err
	}
	if f.InBounds(p) {
		return Inside, nil
	}
	return Outside, nil
}

// InBounds applies the interval rule to p.
func (f *Filter) InBounds(p Point) bool {
	if f.lower != nil && p.Less(*f.lower) {
		return false
	}
	if f.upper != nil && !p.Less(*f.upper) {
		return false
	}
	return true
}

// Emit reports whether a document classified as r is written out.
func (f *Filter) Emit(r Result) bool {
	switch r {
	case Inside:
		return !f.exclusions
	case Outside:
		return f.exclusions
	default:
		return false
	}
}
