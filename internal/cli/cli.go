// Package cli holds the option-parsing and exit-code conventions shared by
// every command.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// ExitError is an error that carries the process exit code.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

// Failf returns an ExitError with a formatted message.
func Failf(code int, format string, args ...any) *ExitError {
	return &ExitError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// NewFlagSet returns a flag set that reports to w and never exits the
// process. synopsis is printed ahead of the option defaults.
func NewFlagSet(name, synopsis string, w io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(w)
	fs.Usage = func() {
		fmt.Fprintf(w, "Usage: %s %s\n\nOptions:\n", name, synopsis)
		fs.PrintDefaults()
	}
	return fs
}

// Parse parses args with fs. -h yields an ExitError with code 0; any other
// parse failure yields code 2.
func Parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return &ExitError{Code: ExitOK}
		}
		return &ExitError{Code: ExitUsage}
	}
	return nil
}

// ParseInterspersed parses args with fs, allowing options after positional
// arguments, and returns the positionals in order.
func ParseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := Parse(fs, args); err != nil {
			return nil, err
		}
		rest := fs.Args()
		if len(rest) == 0 {
			return positional, nil
		}
		if len(args) > len(rest) && args[len(args)-len(rest)-1] == "--" {
			return append(positional, rest...), nil
		}
		positional = append(positional, rest[0])
		args = rest[1:]
	}
}

// UsageError prints usage and returns an ExitError with code 2.
func UsageError(fs *flag.FlagSet, format string, args ...any) *ExitError {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(fs.Output(), "%s: %s\n", fs.Name(), msg)
	fs.Usage()
	return &ExitError{Code: ExitUsage}
}

// Code maps the error returned by a command's run function to an exit code,
// printing its message to w prefixed with the command name.
func Code(name string, err error, w io.Writer) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Message != "" {
			fmt.Fprintf(w, "%s: %s\n", name, exitErr.Message)
		}
		return exitErr.Code
	}
	fmt.Fprintf(w, "%s: %v\n", name, err)
	return ExitFailure
}

// OptionalFloat is a flag.Value for a float option that may be absent.
type OptionalFloat struct {
	Value float64
	IsSet bool
}

func (f *OptionalFloat) String() string {
	if f == nil || !f.IsSet {
		return ""
	}
	return strconv.FormatFloat(f.Value, 'g', -1, 64)
}

func (f *OptionalFloat) Set(s string) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fmt.Errorf("invalid number %q", s)
	}
	f.Value, f.IsSet = v, true
	return nil
}
