package datetime

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"cloudpico-analysis/internal/pathrecord"
)

// ErrMissingField is returned when a configured date or time path is absent.
var ErrMissingField = errors.New("missing field")

// Localizer replaces the date and time fields of a document with a single
// ISO 8601 field.
type Localizer struct {
	Parser *DateParser
	// Location the input fields are expressed in. Nil means UTC.
	Location *time.Location
	// ShiftUTC converts the result to UTC before formatting.
	ShiftUTC bool
	// ISOPath receives the ISO 8601 datetime.
	ISOPath string

	// Either DatetimePath, holding "DATE TIME", or DatePath and TimePath.
	DatetimePath string
	DatePath     string
	TimePath     string
}

// SourcePaths returns the paths consumed by Localize.
func (l *Localizer) SourcePaths() []string {
	if l.DatetimePath != "" {
		return []string{l.DatetimePath}
	}
	return []string{l.DatePath, l.TimePath}
}

// Localize builds the output document: the ISO field first, then every leaf
// of rec in order, except the consumed source paths and anything at or below
// the ISO path.
func (l *Localizer) Localize(rec *pathrecord.Record) (*pathrecord.Record, error) {
	date, clock, err := l.fields(rec)
	if err != nil {
		return nil, err
	}

	t, err := l.Parser.Datetime(date, clock, l.Location)
	if err != nil {
		return nil, err
	}
	if l.ShiftUTC {
		t = t.UTC()
	}

	out := pathrecord.New()
	if err := out.Append(l.ISOPath, pathrecord.String(t.Format(ISOLayout))); err != nil {
		return nil, err
	}

	skip := make(map[string]bool)
	for _, p := range l.SourcePaths() {
		skip[p] = true
	}
	for _, p := range rec.Paths() {
		if skip[p] || p == l.ISOPath || strings.HasPrefix(p, l.ISOPath+pathrecord.Separator) {
			continue
		}
		v, err := rec.Node(p)
		if err != nil {
			return nil, err
		}
		if err := out.Append(p, v); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (l *Localizer) fields(rec *pathrecord.Record) (date, clock string, err error) {
	if l.DatetimePath != "" {
		s, err := stringAt(rec, "datetime", l.DatetimePath)
		if err != nil {
			return "", "", err
		}
		pieces := strings.Split(strings.TrimSpace(s), " ")
		if len(pieces) != 2 {
			return "", "", fmt.Errorf("%w: '%s'", ErrMalformed, l.DatetimePath)
		}
		return strings.TrimSpace(pieces[0]), strings.TrimSpace(pieces[1]), nil
	}

	date, err = stringAt(rec, "date", l.DatePath)
	if err != nil {
		return "", "", err
	}
	clock, err = stringAt(rec, "time", l.TimePath)
	if err != nil {
		return "", "", err
	}
	return date, clock, nil
}

func stringAt(rec *pathrecord.Record, what, path string) (string, error) {
	v, err := rec.Node(path)
	if err != nil || v.Kind() == pathrecord.KindObject {
		return "", fmt.Errorf("%w: %s path '%s'", ErrMissingField, what, path)
	}
	s, ok := v.Str()
	if !ok {
		return "", fmt.Errorf("%w: %s '%s' is not a string", ErrMalformed, what, path)
	}
	return s, nil
}
