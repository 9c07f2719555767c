package adapters

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/modelpad/modelpad/config"
	"github.com/modelpad/modelpad/core"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newFileSource(t *testing.T, typ, path string) core.DataSource {
	t.Helper()
	source, err := (&File{}).NewSource("test_source", &config.Source{
		Type: typ,
		Path: path,
	}, nil, zap.NewNop())
	require.NoError(t, err)
	return source
}

func newFileSink(t *testing.T, typ, path string) core.DataSink {
	t.Helper()
	sink, err := (&File{}).NewSink("test_sink", &config.Source{
		Type: typ,
		Path: path,
	}, nil, zap.NewNop())
	require.NoError(t, err)
	return sink
}

const csvContent = `"a","b","c"
1.1,"ad","f;afd"
2.3,"df","2,3"
`

const euroCSVContent = `"a";"b";"c"
1,1;"ad";"f,afd"
2,3;"df";"2.3"
`

func TestFileSource_ReadFrame_CSV(t *testing.T) {
	path := writeTempFile(t, "data.csv", csvContent)
	source := newFileSource(t, "csv", path)

	frame, err := source.ReadFrame(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, core.Header{"a", "b", "c"}, frame.Header())
	assert.Equal(t, 2, frame.Len())

	a, err := frame.Column("a")
	require.NoError(t, err)
	assert.Equal(t, []any{1.1, 2.3}, a)

	b, err := frame.At("b", 0)
	require.NoError(t, err)
	assert.Equal(t, "ad", b)

	c, err := frame.Column("c")
	require.NoError(t, err)
	assert.Equal(t, []any{"f;afd", "2,3"}, c)
}

func TestFileSource_ReadFrame_EuroCSV(t *testing.T) {
	path := writeTempFile(t, "data.csv", euroCSVContent)
	source := newFileSource(t, "euro_csv", path)

	frame, err := source.ReadFrame(context.Background(), nil)
	require.NoError(t, err)

	a, err := frame.Column("a")
	require.NoError(t, err)
	assert.Equal(t, []any{1.1, 2.3}, a)

	c, err := frame.Column("c")
	require.NoError(t, err)
	assert.Equal(t, []any{"f,afd", "2.3"}, c)
}

func TestFileSource_StreamFrame_Chunked(t *testing.T) {
	path := writeTempFile(t, "data.csv", csvContent)
	source := newFileSource(t, "csv", path)

	stream, err := source.StreamFrame(context.Background(), nil)
	require.NoError(t, err)

	chunks, err := core.Chunks(stream, 1)
	require.NoError(t, err)
	defer chunks.Close()

	var frames []*core.Frame
	for chunks.HasNext() {
		frame, err := chunks.Next()
		require.NoError(t, err)
		frames = append(frames, frame)
	}

	require.Len(t, frames, 2)
	assert.Equal(t, 1, frames[0].Len())
	assert.Equal(t, 1, frames[1].Len())
	assert.Equal(t, core.Header{"a", "b", "c"}, frames[1].Header())
}

func TestFileSource_ReadRaw(t *testing.T) {
	tests := []struct {
		name string
		typ  string
	}{
		{name: "text file", typ: "text_file"},
		{name: "binary file", typ: "binary_file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTempFile(t, "data.raw", "Hello world!")
			source := newFileSource(t, tt.typ, path)

			raw, err := source.ReadRaw(context.Background())
			require.NoError(t, err)
			assert.Equal(t, []byte("Hello world!"), raw)
		})
	}
}

func TestFileSource_WrongMethod(t *testing.T) {
	rawPath := writeTempFile(t, "data.txt", "Hello world!")
	rawSource := newFileSource(t, "text_file", rawPath)

	_, err := rawSource.ReadFrame(context.Background(), nil)
	assert.ErrorContains(t, err, "use ReadRaw instead of ReadFrame")

	csvPath := writeTempFile(t, "data.csv", csvContent)
	csvSource := newFileSource(t, "csv", csvPath)

	_, err = csvSource.ReadRaw(context.Background())
	assert.ErrorContains(t, err, "use ReadFrame instead of ReadRaw")
}

func TestFileSource_ParamsRejected(t *testing.T) {
	path := writeTempFile(t, "data.csv", csvContent)
	source := newFileSource(t, "csv", path)

	_, err := source.ReadFrame(context.Background(), map[string]any{"id": 1})
	assert.ErrorContains(t, err, "query parameters are not supported")
}

func TestFileSource_MissingPath(t *testing.T) {
	_, err := (&File{}).NewSource("s", &config.Source{Type: "csv"}, nil, zap.NewNop())
	assert.ErrorContains(t, err, "needs a path")

	_, err = (&File{}).NewSink("s", &config.Source{Type: "csv"}, nil, zap.NewNop())
	assert.ErrorContains(t, err, "needs a path")
}

func TestFileSource_MissingFile(t *testing.T) {
	source := newFileSource(t, "csv", filepath.Join(t.TempDir(), "nope.csv"))

	_, err := source.ReadFrame(context.Background(), nil)
	assert.Error(t, err)
}

func TestFileSink_WriteFrame_Roundtrip(t *testing.T) {
	for _, typ := range []string{"csv", "euro_csv"} {
		t.Run(typ, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out.csv")

			frame := core.NewFrame(core.Header{"a", "b"}, []core.Row{
				{1.1, "ad"},
				{2.3, "df"},
			})

			sink := newFileSink(t, typ, path)
			require.NoError(t, sink.WriteFrame(context.Background(), frame))

			source := newFileSource(t, typ, path)
			got, err := source.ReadFrame(context.Background(), nil)
			require.NoError(t, err)

			assert.Equal(t, frame.Header(), got.Header())
			assert.Equal(t, frame.Rows(), got.Rows())
		})
	}
}

func TestFileSink_WriteRaw(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.bin")

	sink := newFileSink(t, "binary_file", path)
	require.NoError(t, sink.WriteRaw(context.Background(), []byte{0x1, 0x2, 0x3}))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x1, 0x2, 0x3}, got)
}

func TestFileSink_WrongMethod(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out")

	rawSink := newFileSink(t, "text_file", path)
	err := rawSink.WriteFrame(context.Background(), core.NewFrame(core.Header{"a"}, nil))
	assert.ErrorContains(t, err, "use WriteRaw instead of WriteFrame")

	csvSink := newFileSink(t, "csv", path)
	err = csvSink.WriteRaw(context.Background(), []byte("x"))
	assert.ErrorContains(t, err, "use WriteFrame instead of WriteRaw")
}

func TestFileSource_SeparatorOption(t *testing.T) {
	path := writeTempFile(t, "data.psv", "a|b\n1|x\n")

	source, err := (&File{}).NewSource("s", &config.Source{
		Type:    "csv",
		Path:    path,
		Options: map[string]any{"separator": "|"},
	}, nil, zap.NewNop())
	require.NoError(t, err)

	frame, err := source.ReadFrame(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, core.Header{"a", "b"}, frame.Header())
	assert.Equal(t, []core.Row{{int64(1), "x"}}, frame.Rows())
}
