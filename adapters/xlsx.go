package adapters

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/modelpad/modelpad/config"
	"github.com/modelpad/modelpad/core"
	"github.com/modelpad/modelpad/core/builders"
)

// Register client
func init() {
	_ = register(&XLSX{}, "xlsx")
}

var _ Adapter = (*XLSX)(nil)

// XLSX serves Excel workbooks as frames. The sheet defaults to the first one
// in the workbook and can be overridden with options: {sheet: <name>}.
type XLSX struct{}

func (x *XLSX) NewSource(id string, src *config.Source, _ *config.DBMS, logger *zap.Logger) (core.DataSource, error) {
	if src.Path == "" {
		return nil, fmt.Errorf("xlsx datasource needs a path")
	}
	return &xlsxSource{id: id, path: src.Path, sheet: sheetOption(src.Options), log: logger}, nil
}

func (x *XLSX) NewSink(id string, sink *config.Source, _ *config.DBMS, logger *zap.Logger) (core.DataSink, error) {
	if sink.Path == "" {
		return nil, fmt.Errorf("xlsx datasink needs a path")
	}
	return &xlsxSink{id: id, path: sink.Path, sheet: sheetOption(sink.Options), log: logger}, nil
}

func sheetOption(options map[string]any) string {
	if sheet, ok := options["sheet"].(string); ok {
		return sheet
	}
	return ""
}

type xlsxSource struct {
	id    string
	path  string
	sheet string
	log   *zap.Logger
}

var _ core.DataSource = (*xlsxSource)(nil)

func (s *xlsxSource) ReadFrame(ctx context.Context, params map[string]any) (*core.Frame, error) {
	stream, err := s.StreamFrame(ctx, params)
	if err != nil {
		return nil, err
	}
	return core.Drain(stream)
}

func (s *xlsxSource) StreamFrame(_ context.Context, params map[string]any) (core.FrameStream, error) {
	if len(params) > 0 {
		return nil, fmt.Errorf("query parameters are not supported for file datasources")
	}

	s.log.Debug("loading xlsx file",
		zap.String("id", s.id), zap.String("path", s.path))

	book, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	defer book.Close()

	sheet := s.sheet
	if sheet == "" {
		sheet = book.GetSheetName(0)
	}

	records, err := book.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(records) == 0 {
		return builders.NewStreamBuilder().Build(), nil
	}

	header := core.Header(records[0])
	raw := records[1:]

	// Excel cells come back as strings; reuse the CSV column inference.
	rows := make([]core.Row, len(raw))
	for i := range rows {
		rows[i] = make(core.Row, len(header))
	}
	for col := range header {
		values := make([]string, len(raw))
		for i, record := range raw {
			if col < len(record) {
				values[i] = record[col]
			}
		}
		typed := inferColumn(values, csvDialects["csv"])
		for i := range rows {
			rows[i][col] = typed[i]
		}
	}

	next, hasNext := builders.NextRows(rows, nil)
	return builders.NewStreamBuilder().
		WithNextFunc(next, hasNext).
		WithHeader(header).
		Build(), nil
}

func (s *xlsxSource) ReadRaw(_ context.Context) ([]byte, error) {
	return nil, fmt.Errorf("datasource %q of type \"xlsx\" holds tabular data; use ReadFrame instead of ReadRaw", s.id)
}

func (s *xlsxSource) Close() error { return nil }

type xlsxSink struct {
	id    string
	path  string
	sheet string
	log   *zap.Logger
}

var _ core.DataSink = (*xlsxSink)(nil)

func (s *xlsxSink) WriteFrame(_ context.Context, frame *core.Frame) error {
	s.log.Debug("writing frame to xlsx file",
		zap.String("id", s.id), zap.String("path", s.path), zap.Int("rows", frame.Len()))

	book := excelize.NewFile()
	defer book.Close()

	sheet := s.sheet
	if sheet == "" {
		sheet = book.GetSheetName(0)
	} else if err := book.SetSheetName(book.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headerRow := make([]any, len(frame.Header()))
	for i, name := range frame.Header() {
		headerRow[i] = name
	}
	if err := book.SetSheetRow(sheet, "A1", &headerRow); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, row := range frame.Rows() {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := make([]any, len(row))
		copy(values, row)
		if err := book.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}

	if err := book.SaveAs(s.path); err != nil {
		return fmt.Errorf("save %s: %w", s.path, err)
	}
	return nil
}

func (s *xlsxSink) WriteRaw(_ context.Context, _ []byte) error {
	return fmt.Errorf("datasink %q of type \"xlsx\" holds tabular data; use WriteFrame instead of WriteRaw", s.id)
}

func (s *xlsxSink) Close() error { return nil }
