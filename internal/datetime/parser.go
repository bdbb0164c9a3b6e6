// Package datetime turns non-localised date and time fields into ISO 8601
// datetimes.
package datetime

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrFormat    = errors.New("unsupported date format")
	ErrMalformed = errors.New("malformed datetime")
	ErrTimezone  = errors.New("unrecognised timezone")
)

// ISOLayout renders UTC as Z and other zones as a numeric offset.
const ISOLayout = "2006-01-02T15:04:05Z07:00"

const separators = "/-."

type field int

const (
	fieldYear field = iota
	fieldShortYear
	fieldMonth
	fieldDay
)

// DateParser reads dates laid out by a format such as DD/MM/YYYY or
// YYYY-MM-DD. A format holds one year token (YYYY or YY), one MM and one DD,
// joined by a single separator: '/', '-' or '.'.
type DateParser struct {
	format string
	sep    string
	fields [3]field
}

// IsValidFormat reports whether format is accepted by NewDateParser.
func IsValidFormat(format string) bool {
	_, err := NewDateParser(format)
	return err == nil
}

func NewDateParser(format string) (*DateParser, error) {
	i := strings.IndexAny(format, separators)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrFormat, format)
	}
	sep := format[i : i+1]

	tokens := strings.Split(format, sep)
	if len(tokens) != 3 {
		return nil, fmt.Errorf("%w: %s", ErrFormat, format)
	}

	p := &DateParser{format: format, sep: sep}
	var year, month, day int
	for i, tok := range tokens {
		switch tok {
		case "YYYY":
			p.fields[i] = fieldYear
			year++
		case "YY":
			p.fields[i] = fieldShortYear
			year++
		case "MM":
			p.fields[i] = fieldMonth
			month++
		case "DD":
			p.fields[i] = fieldDay
			day++
		default:
			return nil, fmt.Errorf("%w: %s", ErrFormat, format)
		}
	}
	if year != 1 || month != 1 || day != 1 {
		return nil, fmt.Errorf("%w: %s", ErrFormat, format)
	}
	return p, nil
}

func (p *DateParser) String() string {
	return fmt.Sprintf("DateParser:{format:%s}", p.format)
}

// Date parses s into its year, month and day.
func (p *DateParser) Date(s string) (year int, month time.Month, day int, err error) {
	parts := strings.Split(strings.TrimSpace(s), p.sep)
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("%w: date %q does not match %s", ErrMalformed, s, p.format)
	}

	for i, f := range p.fields {
		part := parts[i]
		want := 2
		if f == fieldYear {
			want = 4
		}
		if len(part) < 1 || len(part) > want {
			return 0, 0, 0, fmt.Errorf("%w: date %q does not match %s", ErrMalformed, s, p.format)
		}
		n, convErr := strconv.Atoi(part)
		if convErr != nil || n < 0 {
			return 0, 0, 0, fmt.Errorf("%w: date %q does not match %s", ErrMalformed, s, p.format)
		}
		switch f {
		case fieldYear:
			year = n
		case fieldShortYear:
			year = expandYear(n)
		case fieldMonth:
			month = time.Month(n)
		case fieldDay:
			day = n
		}
	}

	if month < time.January || month > time.December {
		return 0, 0, 0, fmt.Errorf("%w: month %d in %q", ErrMalformed, month, s)
	}
	if day < 1 || day > daysIn(year, month) {
		return 0, 0, 0, fmt.Errorf("%w: day %d in %q", ErrMalformed, day, s)
	}
	return year, month, day, nil
}

// Datetime combines a date and an HH:MM[:SS] clock in loc. Hours beyond 23
// roll over into the following days.
func (p *DateParser) Datetime(date, clock string, loc *time.Location) (time.Time, error) {
	year, month, day, err := p.Date(date)
	if err != nil {
		return time.Time{}, err
	}
	hour, minute, second, err := Clock(clock)
	if err != nil {
		return time.Time{}, err
	}
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(year, month, day, hour, minute, second, 0, loc), nil
}

// Clock parses HH:MM or HH:MM:SS. The hour is unbounded above.
func Clock(s string) (hour, minute, second int, err error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("%w: time %q", ErrMalformed, s)
	}

	var nums [3]int
	for i, part := range parts {
		if part == "" || (i > 0 && len(part) != 2) {
			return 0, 0, 0, fmt.Errorf("%w: time %q", ErrMalformed, s)
		}
		n, convErr := strconv.Atoi(part)
		if convErr != nil || n < 0 {
			return 0, 0, 0, fmt.Errorf("%w: time %q", ErrMalformed, s)
		}
		nums[i] = n
	}
	if nums[1] > 59 || nums[2] > 59 {
		return 0, 0, 0, fmt.Errorf("%w: time %q", ErrMalformed, s)
	}
	return nums[0], nums[1], nums[2], nil
}

// expandYear follows the POSIX %y pivot: 69-99 are 1900s, 00-68 are 2000s.
func expandYear(yy int) int {
	if yy >= 69 {
		return 1900 + yy
	}
	return 2000 + yy
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
