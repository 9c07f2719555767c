package core

import (
	"fmt"
	"math"
)

// Frame is the materialized form of a FrameStream: named columns over rows of
// mixed-type values. It is what the underlying codec or driver produced,
// passed through unmodified except for missing-value normalization on
// backends that need it.
type Frame struct {
	header Header
	rows   []Row
}

func NewFrame(header Header, rows []Row) *Frame {
	return &Frame{header: header, rows: rows}
}

// Drain consumes the whole stream into a Frame and closes it.
func Drain(stream FrameStream) (*Frame, error) {
	defer stream.Close()

	frame := &Frame{
		header: stream.Header(),
		rows:   make([]Row, 0),
	}

	for stream.HasNext() {
		row, err := stream.Next()
		if err != nil {
			return nil, fmt.Errorf("stream.Next: %w", err)
		}
		frame.rows = append(frame.rows, row)
	}

	return frame, nil
}

func (f *Frame) Header() Header { return f.header }

func (f *Frame) Rows() []Row { return f.rows }

func (f *Frame) Len() int { return len(f.rows) }

// At returns the value at rowIdx in the named column.
func (f *Frame) At(column string, rowIdx int) (any, error) {
	col := -1
	for i, name := range f.header {
		if name == column {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("no column %q in frame", column)
	}
	if rowIdx < 0 || rowIdx >= len(f.rows) {
		return nil, fmt.Errorf("row index %d out of range (%d rows)", rowIdx, len(f.rows))
	}
	return f.rows[rowIdx][col], nil
}

// Column returns all values of the named column.
func (f *Frame) Column(column string) ([]any, error) {
	for i, name := range f.header {
		if name != column {
			continue
		}
		values := make([]any, len(f.rows))
		for r, row := range f.rows {
			values[r] = row[i]
		}
		return values, nil
	}
	return nil, fmt.Errorf("no column %q in frame", column)
}

// FillMissing replaces nil cells with NaN. database/sql drivers scan SQL NULL
// as nil, but downstream numeric code expects the usual missing-value marker.
func (f *Frame) FillMissing() {
	for _, row := range f.rows {
		FillMissingRow(row)
	}
}

// FillMissingRow is the single-row form of FillMissing, applied in-place.
func FillMissingRow(row Row) Row {
	for i, val := range row {
		if val == nil {
			row[i] = math.NaN()
		}
	}
	return row
}

// Chunks splits a stream into frames of at most size rows each.
// The returned iterator owns the stream.
func Chunks(stream FrameStream, size int) (*FrameIter, error) {
	if size < 1 {
		stream.Close()
		return nil, fmt.Errorf("invalid chunk size: %d", size)
	}
	return &FrameIter{stream: stream, size: size}, nil
}

// FrameIter yields consecutive fixed-size chunks of a stream as frames.
type FrameIter struct {
	stream FrameStream
	size   int
}

func (it *FrameIter) HasNext() bool {
	return it.stream.HasNext()
}

func (it *FrameIter) Next() (*Frame, error) {
	if !it.stream.HasNext() {
		return nil, fmt.Errorf("no next chunk")
	}

	frame := &Frame{
		header: it.stream.Header(),
		rows:   make([]Row, 0, it.size),
	}
	for len(frame.rows) < it.size && it.stream.HasNext() {
		row, err := it.stream.Next()
		if err != nil {
			return nil, fmt.Errorf("stream.Next: %w", err)
		}
		frame.rows = append(frame.rows, row)
	}

	return frame, nil
}

func (it *FrameIter) Close() {
	it.stream.Close()
}
