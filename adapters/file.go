package adapters

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/modelpad/modelpad/config"
	"github.com/modelpad/modelpad/core"
	"github.com/modelpad/modelpad/core/builders"
)

// Register file-backed sources and sinks. The text_file and binary_file
// aliases behave identically at this level; keeping both makes config files
// say what the content is.
func init() {
	_ = register(&File{}, "csv", "euro_csv", "text_file", "binary_file")
}

var _ Adapter = (*File)(nil)

// File serves flat files: two CSV dialects as frames, text and binary files
// as raw bytes.
type File struct{}

func (f *File) NewSource(id string, src *config.Source, _ *config.DBMS, logger *zap.Logger) (core.DataSource, error) {
	if src.Path == "" {
		return nil, fmt.Errorf("file datasource needs a path")
	}
	return &fileSource{
		id:      id,
		typ:     src.Type,
		path:    src.Path,
		options: src.Options,
		log:     logger,
	}, nil
}

func (f *File) NewSink(id string, sink *config.Source, _ *config.DBMS, logger *zap.Logger) (core.DataSink, error) {
	if sink.Path == "" {
		return nil, fmt.Errorf("file datasink needs a path")
	}
	return &fileSink{
		id:      id,
		typ:     sink.Type,
		path:    sink.Path,
		options: sink.Options,
		log:     logger,
	}, nil
}

func isTabularFileType(typ string) bool {
	_, ok := csvDialects[typ]
	return ok
}

type fileSource struct {
	id      string
	typ     string
	path    string
	options map[string]any
	log     *zap.Logger
}

var _ core.DataSource = (*fileSource)(nil)

func (s *fileSource) ReadFrame(ctx context.Context, params map[string]any) (*core.Frame, error) {
	stream, err := s.StreamFrame(ctx, params)
	if err != nil {
		return nil, err
	}
	return core.Drain(stream)
}

func (s *fileSource) StreamFrame(_ context.Context, params map[string]any) (core.FrameStream, error) {
	if !isTabularFileType(s.typ) {
		return nil, fmt.Errorf("datasource %q of type %q holds raw data; use ReadRaw instead of ReadFrame", s.id, s.typ)
	}
	if len(params) > 0 {
		return nil, fmt.Errorf("query parameters are not supported for file datasources")
	}

	s.log.Debug("loading file as frame",
		zap.String("id", s.id), zap.String("type", s.typ), zap.String("path", s.path))

	file, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	defer file.Close()

	frame, err := readCSVFrame(file, csvDialects[s.typ].applyOptions(s.options))
	if err != nil {
		return nil, err
	}

	next, hasNext := builders.NextRows(frame.Rows(), nil)
	return builders.NewStreamBuilder().
		WithNextFunc(next, hasNext).
		WithHeader(frame.Header()).
		Build(), nil
}

func (s *fileSource) ReadRaw(_ context.Context) ([]byte, error) {
	if isTabularFileType(s.typ) {
		return nil, fmt.Errorf("datasource %q of type %q holds tabular data; use ReadFrame instead of ReadRaw", s.id, s.typ)
	}

	s.log.Debug("loading raw file",
		zap.String("id", s.id), zap.String("type", s.typ), zap.String("path", s.path))

	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	return raw, nil
}

func (s *fileSource) Close() error { return nil }

type fileSink struct {
	id      string
	typ     string
	path    string
	options map[string]any
	log     *zap.Logger
}

var _ core.DataSink = (*fileSink)(nil)

func (s *fileSink) WriteFrame(_ context.Context, frame *core.Frame) error {
	if !isTabularFileType(s.typ) {
		return fmt.Errorf("datasink %q of type %q holds raw data; use WriteRaw instead of WriteFrame", s.id, s.typ)
	}

	s.log.Debug("writing frame to file",
		zap.String("id", s.id), zap.String("type", s.typ),
		zap.String("path", s.path), zap.Int("rows", frame.Len()))

	file, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("create %s: %w", s.path, err)
	}

	if err := writeCSVFrame(file, frame, csvDialects[s.typ].applyOptions(s.options)); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

func (s *fileSink) WriteRaw(_ context.Context, raw []byte) error {
	if isTabularFileType(s.typ) {
		return fmt.Errorf("datasink %q of type %q holds tabular data; use WriteFrame instead of WriteRaw", s.id, s.typ)
	}

	s.log.Debug("writing raw file",
		zap.String("id", s.id), zap.String("type", s.typ),
		zap.String("path", s.path), zap.Int("bytes", len(raw)))

	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}

func (s *fileSink) Close() error { return nil }
