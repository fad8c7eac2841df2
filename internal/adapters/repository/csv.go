package repository

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/okian/scholardash/internal/domain/model"
	"github.com/volatiletech/null/v8"
)

// nullTokens are cell values read as missing.
var nullTokens = map[string]struct{}{ //nolint:gochecknoglobals // lookup table
	"":     {},
	"nan":  {},
	"n/a":  {},
	"na":   {},
	"none": {},
	"null": {},
	"nat":  {},
}

// Frame is a parsed CSV table addressed by header name.
type Frame struct {
	header map[string]int
	rows   [][]string
}

// ReadFrame parses a CSV stream with a header row. Short rows are padded so
// every row can be addressed by any header.
func ReadFrame(r io.Reader) (*Frame, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = false

	head, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyTable
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	f := &Frame{header: make(map[string]int, len(head))}
	for i, h := range head {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF"))
		if _, dup := f.header[h]; !dup {
			f.header[h] = i
		}
	}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(f.rows)+1, err)
		}
		if len(rec) < len(head) {
			padded := make([]string, len(head))
			copy(padded, rec)
			rec = padded
		}
		f.rows = append(f.rows, rec)
	}
	return f, nil
}

// Len returns the number of data rows.
func (f *Frame) Len() int { return len(f.rows) }

// Has reports whether the table has the column.
func (f *Frame) Has(col string) bool {
	_, ok := f.header[col]
	return ok
}

// Require fails with ErrMissingColumn naming the first absent column.
func (f *Frame) Require(cols ...string) error {
	for _, c := range cols {
		if !f.Has(c) {
			return fmt.Errorf("%w: %q", ErrMissingColumn, c)
		}
	}
	return nil
}

// Row returns a cursor over row i.
func (f *Frame) Row(i int) Row {
	return Row{frame: f, cells: f.rows[i]}
}

// Row reads typed cells of one record. Unparseable cells are null and mark
// the row as dirty.
type Row struct {
	frame *Frame
	cells []string
	dirty bool
}

// Dirty reports whether any cell failed to parse.
func (r *Row) Dirty() bool { return r.dirty }

func (r *Row) cell(col string) (string, bool) {
	i, ok := r.frame.header[col]
	if !ok || i >= len(r.cells) {
		return "", false
	}
	v := strings.TrimSpace(r.cells[i])
	if _, isNull := nullTokens[strings.ToLower(v)]; isNull {
		return "", false
	}
	return v, true
}

// Float reads a numeric cell.
func (r *Row) Float(col string) null.Float64 {
	v, ok := r.cell(col)
	if !ok {
		return null.Float64{}
	}
	f, err := strconv.ParseFloat(strings.TrimSuffix(v, "%"), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		r.dirty = true
		return null.Float64{}
	}
	return null.Float64From(f)
}

// Int reads an integral cell. Values written as floats, like "12.0", are
// accepted when they carry no fraction.
func (r *Row) Int(col string) null.Int64 {
	v, ok := r.cell(col)
	if !ok {
		return null.Int64{}
	}
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return null.Int64From(n)
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		r.dirty = true
		return null.Int64{}
	}
	return null.Int64From(int64(f))
}

// String reads a text cell.
func (r *Row) String(col string) null.String {
	v, ok := r.cell(col)
	if !ok {
		return null.String{}
	}
	return null.StringFrom(v)
}

// Time reads a date cell in any of the accepted layouts.
func (r *Row) Time(col string) null.Time {
	v, ok := r.cell(col)
	if !ok {
		return null.Time{}
	}
	for _, layout := range model.DateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return null.TimeFrom(t)
		}
	}
	r.dirty = true
	return null.Time{}
}

// StudentID reads the student identifier. ok is false when the id is absent
// or unparseable, which makes the whole row malformed.
func (r *Row) StudentID(col string) (model.StudentID, bool) {
	id := r.Int(col)
	if !id.Valid {
		return 0, false
	}
	return model.StudentID(id.Int64), true
}
