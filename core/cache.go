package core

import (
	"context"
	"sync"
	"time"
)

// ExpireNever and ExpireAlways are the special values of a datasource's
// "expires" setting. Any positive value is a lifetime in seconds.
const (
	ExpireAlways = 0
	ExpireNever  = -1
)

// WithCache wraps a DataSource with a read-through cache. expires follows the
// config convention: 0 disables caching, -1 caches indefinitely, N>0 caches
// for N seconds. Frame and raw reads are cached independently.
//
// Parameterized reads share the single cache slot, so sources queried with
// varying bind parameters should not enable caching. Streamed reads always
// go to the backend.
func WithCache(src DataSource, expires int) DataSource {
	if expires == ExpireAlways {
		return src
	}
	return &cachedSource{src: src, expires: expires, now: time.Now}
}

type cachedSource struct {
	src     DataSource
	expires int
	now     func() time.Time

	mu        sync.Mutex
	frame     *Frame
	frameTime time.Time
	raw       []byte
	rawTime   time.Time
}

func (c *cachedSource) fresh(at time.Time) bool {
	if at.IsZero() {
		return false
	}
	if c.expires == ExpireNever {
		return true
	}
	return c.now().Before(at.Add(time.Duration(c.expires) * time.Second))
}

func (c *cachedSource) ReadFrame(ctx context.Context, params map[string]any) (*Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.frame != nil && c.fresh(c.frameTime) {
		return c.frame, nil
	}

	frame, err := c.src.ReadFrame(ctx, params)
	if err != nil {
		return nil, err
	}

	c.frame = frame
	c.frameTime = c.now()
	return frame, nil
}

func (c *cachedSource) StreamFrame(ctx context.Context, params map[string]any) (FrameStream, error) {
	return c.src.StreamFrame(ctx, params)
}

func (c *cachedSource) ReadRaw(ctx context.Context) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.raw != nil && c.fresh(c.rawTime) {
		return c.raw, nil
	}

	raw, err := c.src.ReadRaw(ctx)
	if err != nil {
		return nil, err
	}

	c.raw = raw
	c.rawTime = c.now()
	return raw, nil
}

func (c *cachedSource) Close() error {
	return c.src.Close()
}
