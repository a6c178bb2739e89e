// Package sensor reads the append-only CSV feeds produced by the
// ambient-light and colour sensor loggers.
//
// Consumers only ever look at a trailing window of the most recent rows.
// The feed is written by an independent process, so a missing file, a
// half-written last line or a non-numeric cell is normal operation: such
// rows are skipped, never fatal.
package sensor

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/asecurityteam/rolling"
)

// Sentinel errors for feed conditions the caller treats as "no data".
var (
	// ErrNoData is returned when the window contains no usable samples.
	ErrNoData = errors.New("sensor: no data")

	// ErrColumnMissing is returned when a named column is not in the header.
	ErrColumnMissing = errors.New("sensor: column not found")
)

// Feed reads trailing windows from one CSV file with a header row.
type Feed struct {
	path string
}

// NewFeed creates a reader for the CSV feed at path.
func NewFeed(path string) *Feed {
	return &Feed{path: path}
}

// readAll parses the whole feed, tolerating ragged rows.
func (f *Feed) readAll() (header []string, rows [][]string, err error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, nil, fmt.Errorf("sensor: open %s: %w", f.path, err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1 // logger may add columns over time
	all, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("sensor: read %s: %w", f.path, err)
	}
	if len(all) < 2 {
		return nil, nil, ErrNoData
	}
	return all[0], all[1:], nil
}

// columnIndex resolves a named column against the header row.
func columnIndex(header []string, name string) (int, error) {
	for i, h := range header {
		if h == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q (header %v)", ErrColumnMissing, name, header)
}

// Window maintains a persistent trailing window over one numeric column.
// Rows already consumed stay in the rolling policy across calls; only rows
// appended to the feed since the previous call are parsed. A feed that
// shrank (log rotation) resets the window.
type Window struct {
	feed   *Feed
	column string
	n      int

	policy *rolling.PointPolicy
	filled int // samples in the policy, capped at n
	seen   int // data rows already consumed from the feed
}

// Window creates a trailing window of n samples over the named column.
func (f *Feed) Window(column string, n int) *Window {
	if n < 1 {
		n = 1
	}
	return &Window{
		feed:   f,
		column: column,
		n:      n,
		policy: rolling.NewPointPolicy(rolling.NewWindow(n)),
	}
}

// Average returns the mean of the last n numeric values in the column.
// Non-numeric and missing cells never enter the window.
func (w *Window) Average() (float64, error) {
	header, rows, err := w.feed.readAll()
	if err != nil {
		return 0, err
	}
	idx, err := columnIndex(header, w.column)
	if err != nil {
		return 0, err
	}

	if len(rows) < w.seen {
		w.policy = rolling.NewPointPolicy(rolling.NewWindow(w.n))
		w.filled = 0
		w.seen = 0
	}
	for _, row := range rows[w.seen:] {
		if idx >= len(row) {
			continue
		}
		v, err := strconv.ParseFloat(row[idx], 64)
		if err != nil {
			continue
		}
		w.policy.Append(v)
		if w.filled < w.n {
			w.filled++
		}
	}
	w.seen = len(rows)

	if w.filled == 0 {
		return 0, ErrNoData
	}
	if w.filled < w.n {
		// Unwritten buckets hold zero and would skew a full-window mean.
		return w.policy.Reduce(rolling.Sum) / float64(w.filled), nil
	}
	return w.policy.Reduce(rolling.Avg), nil
}

// Color is one raw colour sample.
type Color struct {
	R, G, B float64
}

// LastColor returns the most recent colour sample from the named columns.
// All three channels must parse and be strictly positive; otherwise the
// sample is unusable and ErrNoData is returned.
func (f *Feed) LastColor(rCol, gCol, bCol string) (Color, error) {
	header, rows, err := f.readAll()
	if err != nil {
		return Color{}, err
	}
	ri, err := columnIndex(header, rCol)
	if err != nil {
		return Color{}, err
	}
	gi, err := columnIndex(header, gCol)
	if err != nil {
		return Color{}, err
	}
	bi, err := columnIndex(header, bCol)
	if err != nil {
		return Color{}, err
	}

	last := rows[len(rows)-1]
	if ri >= len(last) || gi >= len(last) || bi >= len(last) {
		return Color{}, ErrNoData
	}
	r, err1 := strconv.ParseFloat(last[ri], 64)
	g, err2 := strconv.ParseFloat(last[gi], 64)
	b, err3 := strconv.ParseFloat(last[bi], 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return Color{}, ErrNoData
	}
	if r <= 0 || g <= 0 || b <= 0 {
		return Color{}, ErrNoData
	}
	return Color{R: r, G: g, B: b}, nil
}
