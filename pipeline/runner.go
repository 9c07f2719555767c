package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/modelpad/modelpad/adapters"
	"github.com/modelpad/modelpad/config"
	"github.com/modelpad/modelpad/core"
	"github.com/modelpad/modelpad/store"
)

// Runner executes the pipeline actions for one configuration. Helper objects
// (model store, sources/sinks, loaded model) are memoized per model
// name+version so repeated actions don't reconnect to backends.
type Runner struct {
	cfg   *config.File
	maker ModelMaker
	log   *zap.Logger

	memoize bool
	mu      sync.Mutex
	stores  map[string]*store.Store
	ports   map[string]*sourcesAndSinks
	models  map[string]*loadedModel
}

type sourcesAndSinks struct {
	sources map[string]core.DataSource
	sinks   map[string]core.DataSink
}

type loadedModel struct {
	model Model
	meta  *store.Metadata
}

type RunnerOption func(*Runner)

// WithLogger sets the logger used by the runner and everything it builds.
func WithLogger(logger *zap.Logger) RunnerOption {
	return func(r *Runner) { r.log = logger }
}

// WithoutMemoization disables caching of helper objects. If in doubt, leave
// memoization on.
func WithoutMemoization() RunnerOption {
	return func(r *Runner) { r.memoize = false }
}

func New(cfg *config.File, maker ModelMaker, opts ...RunnerOption) (*Runner, error) {
	if err := cfg.ValidatePipeline(); err != nil {
		return nil, err
	}

	r := &Runner{
		cfg:     cfg,
		maker:   maker,
		log:     zap.NewNop(),
		memoize: true,
		stores:  make(map[string]*store.Store),
		ports:   make(map[string]*sourcesAndSinks),
		models:  make(map[string]*loadedModel),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// ClearMemoized drops all memoized helper objects and closes the sources and
// sinks they hold.
func (r *Runner) ClearMemoized() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.ports {
		for _, s := range p.sources {
			_ = s.Close()
		}
		for _, s := range p.sinks {
			_ = s.Close()
		}
	}

	r.stores = make(map[string]*store.Store)
	r.ports = make(map[string]*sourcesAndSinks)
	r.models = make(map[string]*loadedModel)
}

// Train trains and tests a model as specified in the configuration and
// persists it, together with its metrics, in the model store.
func (r *Runner) Train(ctx context.Context) (Model, Metrics, error) {
	if r.maker == nil {
		return nil, nil, errors.New("no model maker provided")
	}

	runID := uuid.NewString()
	r.log.Debug("creating trained model", zap.String("run_id", runID))

	ports, err := r.getPorts("train", "test")
	if err != nil {
		return nil, nil, err
	}

	old, _, err := r.getModel()
	switch {
	case err == nil:
		r.log.Info("loaded old model for incremental training")
	case errors.Is(err, fs.ErrNotExist):
		r.log.Info("no old model to load")
		old = nil
	default:
		return nil, nil, err
	}

	model, err := r.maker.Create(ctx, r.cfg.Model, ports.sources, ports.sinks, old)
	if err != nil {
		return nil, nil, fmt.Errorf("maker.Create: %w", err)
	}

	r.log.Debug("testing trained model")
	metrics, err := r.maker.Test(ctx, r.cfg.Model, ports.sources, ports.sinks, model)
	if err != nil {
		return nil, nil, fmt.Errorf("maker.Test: %w", err)
	}

	st, err := r.getStore()
	if err != nil {
		return nil, nil, err
	}
	if err := st.Save(r.cfg, model, metrics, runID); err != nil {
		return nil, nil, fmt.Errorf("store.Save: %w", err)
	}

	// the stored model replaced whatever was memoized
	r.forgetModel()

	r.log.Info("created and stored trained model",
		zap.String("name", r.cfg.Model.Name),
		zap.String("version", r.cfg.Model.Version),
		zap.Any("metrics", metrics))

	return model, metrics, nil
}

// Retest re-tests the stored model and persists the fresh metrics.
func (r *Runner) Retest(ctx context.Context) (Metrics, error) {
	if r.maker == nil {
		return nil, errors.New("no model maker provided")
	}

	r.log.Debug("retesting existing trained model")

	ports, err := r.getPorts("test")
	if err != nil {
		return nil, err
	}

	model, _, err := r.getModel()
	if err != nil {
		return nil, err
	}

	metrics, err := r.maker.Test(ctx, r.cfg.Model, ports.sources, ports.sinks, model)
	if err != nil {
		return nil, fmt.Errorf("maker.Test: %w", err)
	}

	st, err := r.getStore()
	if err != nil {
		return nil, err
	}
	if err := st.UpdateMetrics(r.cfg.Model, metrics); err != nil {
		return nil, fmt.Errorf("store.UpdateMetrics: %w", err)
	}

	r.log.Info("retested existing model",
		zap.String("name", r.cfg.Model.Name),
		zap.String("version", r.cfg.Model.Version),
		zap.Any("metrics", metrics))

	return metrics, nil
}

// Predict applies the stored model to the given arguments.
func (r *Runner) Predict(ctx context.Context, args map[string]any) (any, error) {
	r.log.Debug("applying model for prediction")

	ports, err := r.getPorts("predict")
	if err != nil {
		return nil, err
	}

	model, _, err := r.getModel()
	if err != nil {
		return nil, err
	}

	return model.Predict(ctx, r.cfg.Model, ports.sources, args)
}

func (r *Runner) modelKey() string {
	return r.cfg.Model.Name + "_" + r.cfg.Model.Version
}

func (r *Runner) getStore() (*store.Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := r.modelKey()
	if st, ok := r.stores[key]; ok {
		return st, nil
	}

	st, err := store.New(r.cfg, r.log)
	if err != nil {
		return nil, err
	}
	if r.memoize {
		r.stores[key] = st
	}
	return st, nil
}

func (r *Runner) getPorts(tags ...string) (*sourcesAndSinks, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := r.modelKey()
	if p, ok := r.ports[key]; ok {
		return p, nil
	}

	r.log.Info("initializing datasources and datasinks", zap.Strings("tags", tags))
	sources, sinks, err := adapters.SourcesAndSinks(r.cfg, r.log, tags...)
	if err != nil {
		return nil, err
	}
	r.log.Info("data ports initialized",
		zap.Int("sources", len(sources)), zap.Int("sinks", len(sinks)))

	p := &sourcesAndSinks{sources: sources, sinks: sinks}
	if r.memoize {
		r.ports[key] = p
	}
	return p, nil
}

func (r *Runner) getModel() (Model, *store.Metadata, error) {
	r.mu.Lock()
	memoized, ok := r.models[r.modelKey()]
	r.mu.Unlock()
	if ok {
		return memoized.model, memoized.meta, nil
	}

	st, err := r.getStore()
	if err != nil {
		return nil, nil, err
	}

	var holder any
	meta, err := st.Load(r.cfg.Model, &holder)
	if err != nil {
		return nil, nil, err
	}

	model, ok := holder.(Model)
	if !ok {
		return nil, nil, fmt.Errorf("stored model %T does not implement pipeline.Model", holder)
	}

	r.log.Info("model loaded",
		zap.String("name", meta.Name),
		zap.String("version", meta.Version),
		zap.String("created", meta.Created))

	if r.memoize {
		r.mu.Lock()
		r.models[r.modelKey()] = &loadedModel{model: model, meta: meta}
		r.mu.Unlock()
	}
	return model, meta, nil
}

func (r *Runner) forgetModel() {
	r.mu.Lock()
	delete(r.models, r.modelKey())
	r.mu.Unlock()
}
