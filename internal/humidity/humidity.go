// Package humidity derives absolute humidity from relative humidity and
// temperature readings.
package humidity

import (
	"errors"
	"fmt"
	"math"

	"cloudpico-analysis/internal/pathrecord"
)

var (
	ErrMissingField = errors.New("missing field")
	ErrCast         = errors.New("invalid value")
)

// DefaultPath is the climate sensor node in a sample document.
const DefaultPath = "val.sht"

// Absolute returns absolute humidity in g/m³ for rh in %RH and t in °C,
// using the Magnus saturation vapour pressure approximation.
func Absolute(rh, t float64) float64 {
	es := 6.112 * math.Exp(17.67*t/(t+243.5))
	return es * rh * 2.1674 / (273.15 + t)
}

// Round rounds x to the given number of decimal places, halves away from
// zero.
func Round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}

// Deriver builds the output document for one climate sample.
type Deriver struct {
	// Path to the node holding hmd and tmp.
	Path string
}

// Derive copies rec (when present) and the climate node into a new document
// and appends {Path}.ah rounded to one decimal place.
func (d Deriver) Derive(src *pathrecord.Record) (*pathrecord.Record, error) {
	path := d.Path
	if path == "" {
		path = DefaultPath
	}

	rh, err := number(src, path+".hmd")
	if err != nil {
		return nil, err
	}
	t, err := number(src, path+".tmp")
	if err != nil {
		return nil, err
	}

	out := pathrecord.New()
	if src.HasPath("rec") {
		if err := out.Copy(src, "rec"); err != nil {
			return nil, err
		}
	}
	if err := out.Copy(src, path); err != nil {
		return nil, err
	}
	if err := out.Append(path+".ah", pathrecord.Float(Round(Absolute(rh, t), 1))); err != nil {
		return nil, err
	}
	return out, nil
}

func number(rec *pathrecord.Record, path string) (float64, error) {
	v, err := rec.Node(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrMissingField, path)
	}
	f, err := v.Float()
	if err != nil {
		return 0, fmt.Errorf("%w: %s is %s", ErrCast, path, v)
	}
	return f, nil
}
