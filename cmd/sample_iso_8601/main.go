// Command sample_iso_8601 replaces non-localised date and time fields with a
// single ISO 8601 datetime field. Every other field is kept. A missing or
// malformed datetime terminates the run.
//
//	sample_iso_8601 { -z | -f DATE_FORMAT [-t TIMEZONE_NAME [-u]] [-i ISO_PATH]
//	    { DATETIME_PATH | DATE_PATH TIME_PATH } } [-v]
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"cloudpico-analysis/internal/cli"
	"cloudpico-analysis/internal/datetime"
	"cloudpico-analysis/internal/pathrecord"
	"cloudpico-analysis/internal/stream"
)

const appName = "sample_iso_8601"

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(cli.Code(appName, err, os.Stderr))
}

type options struct {
	zones    bool
	format   string
	timezone string
	utc      bool
	iso      string
	paths    []string
	verbose  bool
}

func parseArgs(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := cli.NewFlagSet(appName,
		"{ -z | -f DATE_FORMAT [-t TIMEZONE_NAME [-u]] [-i ISO_PATH] { DATETIME_PATH | DATE_PATH TIME_PATH } } [-v]", stderr)
	fs.BoolVar(&o.zones, "z", false, "list the available timezone names to stderr")
	fs.StringVar(&o.format, "f", "", "date format, e.g. DD/MM/YYYY or YYYY-MM-DD")
	fs.StringVar(&o.timezone, "t", "", "timezone of the input datetimes (default UTC)")
	fs.BoolVar(&o.utc, "u", false, "shift the output to UTC")
	fs.StringVar(&o.iso, "i", "rec", "path of the ISO 8601 output field")
	fs.BoolVar(&o.verbose, "v", false, "report narrative to stderr")

	positional, err := cli.ParseInterspersed(fs, args)
	if err != nil {
		return o, err
	}
	if o.zones {
		return o, nil
	}
	switch {
	case o.format == "":
		return o, cli.UsageError(fs, "-f is required")
	case o.utc && o.timezone == "":
		return o, cli.UsageError(fs, "-u requires -t")
	case len(positional) != 1 && len(positional) != 2:
		return o, cli.UsageError(fs, "DATETIME_PATH or DATE_PATH TIME_PATH is required")
	case o.iso == "":
		return o, cli.UsageError(fs, "-i must not be empty")
	}
	o.paths = positional
	return o, nil
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	o, err := parseArgs(args, stderr)
	if err != nil {
		return err
	}

	env, err := cli.Setup(appName, version, stderr, o.verbose)
	if err != nil {
		return err
	}

	if o.zones {
		zones, err := datetime.Zones()
		if err != nil {
			return err
		}
		for _, z := range zones {
			fmt.Fprintln(stderr, z)
		}
		return nil
	}

	parser, err := datetime.NewDateParser(o.format)
	if err != nil {
		return cli.Failf(cli.ExitUsage, "unsupported format: %s", o.format)
	}
	if o.verbose {
		cli.Reportf(stderr, appName, "%s", parser)
	}

	l := &datetime.Localizer{Parser: parser, ShiftUTC: o.utc, ISOPath: o.iso}
	if o.timezone != "" {
		loc, err := datetime.LoadZone(o.timezone)
		if err != nil {
			return cli.Failf(cli.ExitUsage, "unrecognised timezone: %s", o.timezone)
		}
		l.Location = loc
		if o.verbose {
			cli.Reportf(stderr, appName, "timezone: %s", loc)
		}
	}
	if len(o.paths) == 1 {
		l.DatetimePath = o.paths[0]
	} else {
		l.DatePath, l.TimePath = o.paths[0], o.paths[1]
	}
	env.Logger.Debug("localizing", "sources", l.SourcePaths(), "iso", o.iso, "utc", o.utc)

	var documents, processed int
	if o.verbose {
		defer func() {
			cli.Reportf(stderr, appName, "documents: %d processed: %d", documents, processed)
		}()
	}

	err = stream.Lines(ctx, stdin, func(line string) error {
		rec, err := pathrecord.Parse(line)
		if errors.Is(err, pathrecord.ErrEmpty) {
			return nil
		}
		if err != nil {
			return cli.Failf(cli.ExitFailure, "malformed document %s", line)
		}
		documents++

		out, err := l.Localize(rec)
		if err != nil {
			return cli.Failf(cli.ExitFailure, "%v in %s", err, line)
		}
		if _, err := fmt.Fprintln(stdout, out); err != nil {
			return err
		}
		processed++
		return nil
	})

	if cli.Interrupted(err) {
		if o.verbose {
			cli.Reportf(stderr, appName, "interrupted")
		}
		return nil
	}
	return err
}
