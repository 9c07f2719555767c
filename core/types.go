package core

import "context"

type (
	// Row and Header are attributes of a FrameStream iterator
	Row    []any
	Header []string

	// FrameStream is a cursor over tabular results. It is the chunked
	// counterpart of Frame: callers either drain it completely or pull
	// fixed-size chunks with Chunks.
	FrameStream interface {
		Header() Header
		Next() (Row, error)
		HasNext() bool
		Close()
	}
)

// DataSource is the read side of the data-access contract. Pipeline code gets
// its data through this interface without knowing the backing storage.
//
// Tabular backends implement ReadFrame/StreamFrame and reject ReadRaw with an
// error naming the method to use instead; raw backends do the opposite.
type DataSource interface {
	// ReadFrame reads the full result as a Frame. params are backend
	// specific (bind parameters for DBMS sources, unsupported for files).
	ReadFrame(ctx context.Context, params map[string]any) (*Frame, error)

	// StreamFrame returns a cursor over the result instead of materializing
	// it. The caller owns the stream and must Close it.
	StreamFrame(ctx context.Context, params map[string]any) (FrameStream, error)

	// ReadRaw reads the full unstructured content of the source.
	ReadRaw(ctx context.Context) ([]byte, error)

	Close() error
}

// DataSink is the write side of the data-access contract.
type DataSink interface {
	WriteFrame(ctx context.Context, frame *Frame) error
	WriteRaw(ctx context.Context, raw []byte) error
	Close() error
}
