// Package collator partitions a numeric domain into equal-width half-open bins
// and routes raw document lines to one output file per bin.
package collator

import (
	"bufio"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

var (
	// ErrConfig is returned by New for an unusable domain or step.
	ErrConfig = errors.New("invalid collator configuration")

	// ErrClosed is returned by Collate after Close.
	ErrClosed = errors.New("collator closed")
)

// MaxBins caps the bin count; every bin may hold an open file.
const MaxBins = 4096

// Bin is a read-only view of one interval [Lower, Upper).
type Bin struct {
	Lower float64
	Upper float64
	Count int
	Path  string
}

type bin struct {
	Bin
	f *os.File
	w *bufio.Writer
}

// Collator assigns values to bins. It is not safe for concurrent use.
type Collator struct {
	lower  float64
	upper  float64
	step   float64
	bins   []*bin
	closed bool
}

// New builds the bins covering [lower, upper) with the given step. The number
// of bins is ceil((upper-lower)/step), at most MaxBins; every bin is exactly
// step wide, so the last one may extend past upper. Output files are named
// {prefix}_bin_{index}.csv and are created on first write.
func New(lower, upper, step float64, prefix string) (*Collator, error) {
	for _, arg := range []struct {
		name string
		v    float64
	}{{"lower", lower}, {"upper", upper}, {"step", step}} {
		if math.IsNaN(arg.v) || math.IsInf(arg.v, 0) {
			return nil, fmt.Errorf("%w: %s bound %v is not finite", ErrConfig, arg.name, arg.v)
		}
	}
	if lower >= upper {
		return nil, fmt.Errorf("%w: lower %g must be less than upper %g", ErrConfig, lower, upper)
	}
	if step <= 0 {
		return nil, fmt.Errorf("%w: step %g must be positive", ErrConfig, step)
	}
	if lower+step == lower {
		return nil, fmt.Errorf("%w: step %g vanishes against lower %g", ErrConfig, step, lower)
	}
	if prefix == "" {
		return nil, fmt.Errorf("%w: file prefix is required", ErrConfig)
	}

	ratio := (upper - lower) / step
	if math.IsInf(ratio, 0) || ratio > MaxBins {
		return nil, fmt.Errorf("%w: step %g gives more than %d bins over [%g, %g)", ErrConfig, step, MaxBins, lower, upper)
	}

	c := &Collator{lower: lower, upper: upper, step: step}

	n := int(math.Ceil(ratio))
	// Rounding in the division can add a bin starting at upper, or leave
	// the last edge just short of it.
	if n > 1 && c.edge(n-1) >= upper {
		n--
	}
	if c.edge(n) < upper {
		n++
	}
	if n > MaxBins {
		return nil, fmt.Errorf("%w: step %g gives more than %d bins over [%g, %g)", ErrConfig, step, MaxBins, lower, upper)
	}

	c.bins = make([]*bin, n)
	for i := range c.bins {
		c.bins[i] = &bin{Bin: Bin{
			Lower: c.edge(i),
			Upper: c.edge(i + 1),
			Path:  fmt.Sprintf("%s_bin_%d.csv", prefix, i),
		}}
	}
	return c, nil
}

// edge computes bin boundaries by multiplication, never by accumulation, so
// adjacent bins share the exact same float64 edge.
func (c *Collator) edge(i int) float64 {
	// The explicit conversion rules out a fused multiply-add.
	return c.lower + float64(float64(i)*c.step)
}

// Collate writes raw as a line to the bin holding value and reports whether a
// bin was found. Values outside [lower, upper) are not collated.
func (c *Collator) Collate(value float64, raw string) (bool, error) {
	if c.closed {
		return false, ErrClosed
	}

	i, ok := c.index(value)
	if !ok {
		return false, nil
	}

	b := c.bins[i]
	if b.w == nil {
		if err := b.open(); err != nil {
			return false, err
		}
	}
	if _, err := b.w.WriteString(raw); err != nil {
		return false, fmt.Errorf("write %s: %w", b.Path, err)
	}
	if err := b.w.WriteByte('\n'); err != nil {
		return false, fmt.Errorf("write %s: %w", b.Path, err)
	}
	b.Count++
	return true, nil
}

func (c *Collator) index(value float64) (int, bool) {
	if math.IsNaN(value) || value < c.lower || value >= c.upper {
		return 0, false
	}

	i := int(math.Floor((value - c.lower) / c.step))
	if i >= len(c.bins) {
		i = len(c.bins) - 1
	}
	// The division may land one bin off near an edge; the stored edges decide.
	for i > 0 && value < c.bins[i].Lower {
		i--
	}
	for i < len(c.bins)-1 && value >= c.bins[i].Upper {
		i++
	}
	return i, true
}

// Bins returns a snapshot of every bin, lowest first.
func (c *Collator) Bins() []Bin {
	out := make([]Bin, len(c.bins))
	for i, b := range c.bins {
		out[i] = b.Bin
	}
	return out
}

// Close flushes and closes every opened bin file. Calling Close again is a
// no-op.
func (c *Collator) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true

	var errs []error
	for _, b := range c.bins {
		if err := b.close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *bin) open() error {
	if dir := filepath.Dir(b.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	f, err := os.Create(b.Path)
	if err != nil {
		return fmt.Errorf("create %s: %w", b.Path, err)
	}
	b.f = f
	b.w = bufio.NewWriter(f)
	return nil
}

func (b *bin) close() error {
	if b.f == nil {
		return nil
	}
	flushErr := b.w.Flush()
	closeErr := b.f.Close()
	b.f, b.w = nil, nil
	if flushErr != nil {
		return fmt.Errorf("flush %s: %w", b.Path, flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close %s: %w", b.Path, closeErr)
	}
	return nil
}
