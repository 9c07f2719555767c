package builders_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelpad/modelpad/core"
	"github.com/modelpad/modelpad/core/builders"
)

func TestNextSingle(t *testing.T) {
	next, hasNext := builders.NextSingle(int64(42))

	require.True(t, hasNext())
	row, err := next()
	require.NoError(t, err)
	assert.Equal(t, core.Row{int64(42)}, row)

	assert.False(t, hasNext())
	_, err = next()
	assert.Error(t, err)
}

func TestNextRows(t *testing.T) {
	rows := []core.Row{{int64(1), "a"}, {int64(2), "b"}}
	next, hasNext := builders.NextRows(rows, nil)

	var got []core.Row
	for hasNext() {
		row, err := next()
		require.NoError(t, err)
		got = append(got, row)
	}

	assert.Equal(t, rows, got)
	_, err := next()
	assert.Error(t, err)
}

func TestNextRows_Preprocess(t *testing.T) {
	rows := []core.Row{{nil, "a"}}
	next, hasNext := builders.NextRows(rows, core.FillMissingRow)

	require.True(t, hasNext())
	row, err := next()
	require.NoError(t, err)
	assert.NotNil(t, row[0])
	assert.Equal(t, "a", row[1])
}

func TestNextNil(t *testing.T) {
	next, hasNext := builders.NextNil()

	assert.False(t, hasNext())
	_, err := next()
	assert.Error(t, err)
}

func TestStreamBuilder(t *testing.T) {
	closed := false
	stream := builders.NewStreamBuilder().
		WithNextFunc(builders.NextSingle("only")).
		WithHeader(core.Header{"col"}).
		WithCloseFunc(func() { closed = true }).
		Build()

	assert.Equal(t, core.Header{"col"}, stream.Header())

	require.True(t, stream.HasNext())
	row, err := stream.Next()
	require.NoError(t, err)
	assert.Equal(t, core.Row{"only"}, row)

	stream.Close()
	assert.True(t, closed)
	assert.False(t, stream.HasNext())
}

func TestStream_CallbackRunsOnce(t *testing.T) {
	calls := 0
	stream := builders.NewStreamBuilder().
		WithNextFunc(builders.NextNil()).
		Build()
	stream.SetCallback(func() { calls++ })

	stream.Close()
	stream.Close()

	assert.Equal(t, 1, calls)
}

func TestStream_CustomHeader(t *testing.T) {
	stream := builders.NewStreamBuilder().
		WithNextFunc(builders.NextNil()).
		WithHeader(core.Header{"original"}).
		Build()

	stream.SetCustomHeader(core.Header{"renamed"})
	assert.Equal(t, core.Header{"renamed"}, stream.Header())
}
