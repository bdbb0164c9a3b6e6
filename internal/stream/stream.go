// Package stream drives line-oriented filters over standard input.
package stream

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
)

// MaxLineSize bounds a single input line.
const MaxLineSize = 4 * 1024 * 1024

// ErrStop ends Lines early without reporting an error.
var ErrStop = errors.New("stop reading")

// Lines calls fn for every line read from r, with surrounding whitespace
// removed. Reads happen on a separate goroutine so that a blocked read does
// not delay cancellation: Lines returns ctx.Err() as soon as ctx is done.
// It returns nil at end of input or when fn returns ErrStop.
func Lines(ctx context.Context, r io.Reader, fn func(line string) error) error {
	lines := make(chan string)
	errc := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)

	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-done:
				return
			}
		}
		errc <- sc.Err()
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return <-errc
			}
			if err := fn(strings.TrimSpace(line)); err != nil {
				if errors.Is(err, ErrStop) {
					return nil
				}
				return err
			}
		}
	}
}
