package adapters

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/modelpad/modelpad/core"
)

// dialect describes a CSV flavor. The "euro" flavor uses semicolons between
// fields and commas as the decimal mark.
type dialect struct {
	comma   rune
	decimal rune
}

var csvDialects = map[string]dialect{
	"csv":      {comma: ',', decimal: '.'},
	"euro_csv": {comma: ';', decimal: ','},
}

// applyOptions lets a config entry override parts of the dialect, e.g.
// options: {separator: "|"}.
func (d dialect) applyOptions(options map[string]any) dialect {
	if options == nil {
		return d
	}
	if sep, ok := options["separator"].(string); ok && sep != "" {
		d.comma = []rune(sep)[0]
	}
	return d
}

// readCSVFrame parses CSV content into a frame. The first record is the
// header. Column types are inferred over the whole column: int64 if every
// value parses as an integer, float64 if every value parses as a float
// (honoring the dialect's decimal mark), string otherwise. Empty cells count
// as missing and never block numeric inference.
func readCSVFrame(r io.Reader, d dialect) (*core.Frame, error) {
	reader := csv.NewReader(r)
	reader.Comma = d.comma
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv.ReadAll: %w", err)
	}
	if len(records) == 0 {
		return core.NewFrame(core.Header{}, nil), nil
	}

	header := core.Header(records[0])
	raw := records[1:]

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
		typed := inferColumn(values, d)
		for i := range rows {
			rows[i][col] = typed[i]
		}
	}

	return core.NewFrame(header, rows), nil
}

func inferColumn(values []string, d dialect) []any {
	isInt := true
	isFloat := true

	for _, v := range values {
		if v == "" {
			continue
		}
		if isInt {
			if _, err := strconv.ParseInt(v, 10, 64); err != nil {
				isInt = false
			}
		}
		if !isInt && isFloat {
			if _, err := strconv.ParseFloat(normalizeDecimal(v, d), 64); err != nil {
				isFloat = false
			}
		}
		if !isInt && !isFloat {
			break
		}
	}

	out := make([]any, len(values))
	for i, v := range values {
		switch {
		case v == "" && (isInt || isFloat):
			out[i] = math.NaN()
		case isInt:
			n, _ := strconv.ParseInt(v, 10, 64)
			out[i] = n
		case isFloat:
			f, _ := strconv.ParseFloat(normalizeDecimal(v, d), 64)
			out[i] = f
		default:
			out[i] = v
		}
	}
	return out
}

func normalizeDecimal(v string, d dialect) string {
	if d.decimal == '.' {
		return v
	}
	return strings.ReplaceAll(v, string(d.decimal), ".")
}

// writeCSVFrame serializes a frame in the given dialect.
func writeCSVFrame(w io.Writer, frame *core.Frame, d dialect) error {
	writer := csv.NewWriter(w)
	writer.Comma = d.comma

	if err := writer.Write(frame.Header()); err != nil {
		return fmt.Errorf("csv.Write header: %w", err)
	}

	for _, row := range frame.Rows() {
		record := make([]string, len(row))
		for i, val := range row {
			record[i] = formatCSVValue(val, d)
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("csv.Write row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func formatCSVValue(val any, d dialect) string {
	switch v := val.(type) {
	case nil:
		return ""
	case float64:
		if math.IsNaN(v) {
			return ""
		}
		s := strconv.FormatFloat(v, 'f', -1, 64)
		if d.decimal != '.' {
			s = strings.ReplaceAll(s, ".", string(d.decimal))
		}
		return s
	case float32:
		return formatCSVValue(float64(v), d)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
