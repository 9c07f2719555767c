// Package adapters implements the configured backends of the data-access
// layer. Each backend registers itself under its type aliases in an init
// function; construction dispatches on the "type" field of a config entry.
package adapters

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/modelpad/modelpad/config"
	"github.com/modelpad/modelpad/core"
)

var (
	errNoValidTypeAliases = errors.New("no valid type aliases provided")

	// ErrUnknownType is returned when no adapter is registered for the
	// requested type alias.
	ErrUnknownType = errors.New("no adapter registered for provided type")
)

// Adapter builds sources and sinks for the type aliases it is registered
// under. DBMS-backed adapters additionally receive the resolved dbms config.
type Adapter interface {
	NewSource(id string, src *config.Source, dbms *config.DBMS, logger *zap.Logger) (core.DataSource, error)
	NewSink(id string, sink *config.Source, dbms *config.DBMS, logger *zap.Logger) (core.DataSink, error)
}

// registeredAdapters holds implemented adapters - specific adapters register
// themselves in their init functions.
var registeredAdapters = make(map[string]Adapter)

func register(adapter Adapter, aliases ...string) error {
	if len(aliases) < 1 {
		return errNoValidTypeAliases
	}

	invalidCount := 0
	for _, alias := range aliases {
		if alias == "" {
			invalidCount++
			continue
		}
		registeredAdapters[alias] = adapter
	}

	if invalidCount == len(aliases) {
		return errNoValidTypeAliases
	}

	return nil
}

func registeredTypes() []string {
	types := make([]string, 0, len(registeredAdapters))
	for typ := range registeredAdapters {
		types = append(types, typ)
	}
	sort.Strings(types)
	return types
}

// resolve maps a config entry's type to the adapter implementing it. Types of
// the form "dbms.<name>" are indirected through the dbms section and
// dispatched on the connection's own type.
func resolve(cfg *config.File, typ string) (Adapter, *config.DBMS, error) {
	if name, ok := strings.CutPrefix(typ, "dbms."); ok {
		dbms, ok := cfg.DBMS[name]
		if !ok {
			return nil, nil, fmt.Errorf("no dbms connection named %q in configuration", name)
		}
		adapter, ok := registeredAdapters[dbms.Type]
		if !ok {
			return nil, nil, fmt.Errorf("%w: dbms type %q (registered: %v)",
				ErrUnknownType, dbms.Type, registeredTypes())
		}
		return adapter, dbms, nil
	}

	adapter, ok := registeredAdapters[typ]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q (registered: %v)",
			ErrUnknownType, typ, registeredTypes())
	}
	return adapter, nil, nil
}

// NewSource builds the datasource configured under id.
func NewSource(cfg *config.File, id string, logger *zap.Logger) (core.DataSource, error) {
	src, ok := cfg.DataSources[id]
	if !ok {
		return nil, fmt.Errorf("no datasource named %q in configuration", id)
	}

	adapter, dbms, err := resolve(cfg, src.Type)
	if err != nil {
		return nil, fmt.Errorf("datasource %q: %w", id, err)
	}

	source, err := adapter.NewSource(id, src, dbms, logger)
	if err != nil {
		return nil, fmt.Errorf("datasource %q: %w", id, err)
	}

	return core.WithCache(source, src.Expires), nil
}

// NewSink builds the datasink configured under id.
func NewSink(cfg *config.File, id string, logger *zap.Logger) (core.DataSink, error) {
	sink, ok := cfg.DataSinks[id]
	if !ok {
		return nil, fmt.Errorf("no datasink named %q in configuration", id)
	}

	adapter, dbms, err := resolve(cfg, sink.Type)
	if err != nil {
		return nil, fmt.Errorf("datasink %q: %w", id, err)
	}

	s, err := adapter.NewSink(id, sink, dbms, logger)
	if err != nil {
		return nil, fmt.Errorf("datasink %q: %w", id, err)
	}

	return s, nil
}

// SourcesAndSinks instantiates every configured datasource and datasink whose
// tags overlap the wanted tags. No wanted tags means all entries.
func SourcesAndSinks(cfg *config.File, logger *zap.Logger, tags ...string) (map[string]core.DataSource, map[string]core.DataSink, error) {
	sources := make(map[string]core.DataSource)
	sinks := make(map[string]core.DataSink)

	closeAll := func() {
		for _, s := range sources {
			_ = s.Close()
		}
		for _, s := range sinks {
			_ = s.Close()
		}
	}

	for id, src := range cfg.DataSources {
		if !src.Tags.Matches(tags) {
			continue
		}
		logger.Debug("initializing datasource",
			zap.String("id", id), zap.String("type", src.Type))

		source, err := NewSource(cfg, id, logger)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		sources[id] = source
	}

	for id, sink := range cfg.DataSinks {
		if !sink.Tags.Matches(tags) {
			continue
		}
		logger.Debug("initializing datasink",
			zap.String("id", id), zap.String("type", sink.Type))

		s, err := NewSink(cfg, id, logger)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		sinks[id] = s
	}

	return sources, sinks, nil
}
