package builders

import (
	"strings"

	"github.com/modelpad/modelpad/core"
)

type clientConfig struct {
	typeProcessors map[string]func(any) any
	rowProcessor   func(core.Row) core.Row
}

type ClientOption func(*clientConfig)

func WithCustomTypeProcessor(typ string, fn func(any) any) ClientOption {
	return func(cc *clientConfig) {
		t := strings.ToLower(typ)
		_, ok := cc.typeProcessors[t]
		if ok {
			// processor already registered for this type
			return
		}

		cc.typeProcessors[t] = fn
	}
}

// WithRowProcessor registers a hook applied to every scanned row after the
// per-type processors ran.
func WithRowProcessor(fn func(core.Row) core.Row) ClientOption {
	return func(cc *clientConfig) {
		cc.rowProcessor = fn
	}
}
