package format

import (
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/modelpad/modelpad/core"
)

var _ Formatter = (*JSON)(nil)

type JSON struct{}

func NewJSON() *JSON {
	return &JSON{}
}

func (jf *JSON) Name() string {
	return "json"
}

func (jf *JSON) Format(frame *core.Frame, writer io.Writer) error {
	header := frame.Header()

	var data []map[string]any
	for _, row := range frame.Rows() {
		record := make(map[string]any, len(row))
		for i, val := range row {
			// NaN marks missing values but is not valid JSON
			if f, ok := val.(float64); ok && math.IsNaN(f) {
				val = nil
			}
			var h string
			if i < len(header) {
				h = header[i]
			} else {
				h = fmt.Sprintf("<unknown-field-%d>", i)
			}
			record[h] = val
		}
		data = append(data, record)
	}

	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("json.MarshalIndent: %w", err)
	}

	_, err = writer.Write(out)
	return err
}
