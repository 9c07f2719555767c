package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingSource records how often the backend is actually hit.
type countingSource struct {
	frameReads int
	rawReads   int
	closed     bool
}

func (s *countingSource) ReadFrame(_ context.Context, _ map[string]any) (*Frame, error) {
	s.frameReads++
	return NewFrame(Header{"n"}, []Row{{int64(s.frameReads)}}), nil
}

func (s *countingSource) StreamFrame(_ context.Context, _ map[string]any) (FrameStream, error) {
	s.frameReads++
	return &sliceStream{header: Header{"n"}}, nil
}

func (s *countingSource) ReadRaw(_ context.Context) ([]byte, error) {
	s.rawReads++
	return []byte("raw"), nil
}

func (s *countingSource) Close() error {
	s.closed = true
	return nil
}

func TestWithCache_ExpireAlways(t *testing.T) {
	src := &countingSource{}

	cached := WithCache(src, ExpireAlways)
	assert.Same(t, DataSource(src), cached)
}

func TestWithCache_ExpireNever(t *testing.T) {
	src := &countingSource{}
	cached := WithCache(src, ExpireNever)

	first, err := cached.ReadFrame(context.Background(), nil)
	require.NoError(t, err)
	second, err := cached.ReadFrame(context.Background(), nil)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, src.frameReads)
}

func TestWithCache_Expiry(t *testing.T) {
	src := &countingSource{}
	cached := WithCache(src, 10).(*cachedSource)

	clock := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	cached.now = func() time.Time { return clock }

	_, err := cached.ReadFrame(context.Background(), nil)
	require.NoError(t, err)

	clock = clock.Add(5 * time.Second)
	_, err = cached.ReadFrame(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, src.frameReads, "read within lifetime should be served from cache")

	clock = clock.Add(6 * time.Second)
	_, err = cached.ReadFrame(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, src.frameReads, "read after lifetime should hit the backend")
}

func TestWithCache_FrameAndRawIndependent(t *testing.T) {
	src := &countingSource{}
	cached := WithCache(src, ExpireNever)

	_, err := cached.ReadFrame(context.Background(), nil)
	require.NoError(t, err)

	raw, err := cached.ReadRaw(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("raw"), raw)

	_, err = cached.ReadRaw(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, src.frameReads)
	assert.Equal(t, 1, src.rawReads)
}

func TestWithCache_StreamBypassesCache(t *testing.T) {
	src := &countingSource{}
	cached := WithCache(src, ExpireNever)

	for i := 0; i < 2; i++ {
		stream, err := cached.StreamFrame(context.Background(), nil)
		require.NoError(t, err)
		stream.Close()
	}

	assert.Equal(t, 2, src.frameReads)
}

func TestWithCache_Close(t *testing.T) {
	src := &countingSource{}
	cached := WithCache(src, ExpireNever)

	require.NoError(t, cached.Close())
	assert.True(t, src.closed)
}
