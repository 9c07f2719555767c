// Package pipeline orchestrates the model lifecycle: training, re-testing
// and prediction over the configured data sources and sinks.
package pipeline

import (
	"context"

	"github.com/modelpad/modelpad/config"
	"github.com/modelpad/modelpad/core"
	"github.com/modelpad/modelpad/store"
)

// Metrics is the test-metrics mapping produced by ModelMaker.Test.
type Metrics = store.Metrics

// Model is a trained model, ready for prediction. Implementations are
// supplied by the pipeline's user; the concrete type must be registered with
// encoding/gob so stored models can be loaded back.
type Model interface {
	// Predict carries out a prediction for the given arguments, fetching
	// whatever it needs from the datasources tagged "predict".
	Predict(ctx context.Context, model *config.Model, sources map[string]core.DataSource, args map[string]any) (any, error)
}

// ModelMaker is the user-supplied model factory. Create is called whenever
// the model needs to be (re)trained, Test whenever fresh metrics are needed.
type ModelMaker interface {
	// Create trains a model from the datasources tagged "train". oldModel is
	// the previously stored model if one exists and can be used for
	// incremental training.
	Create(ctx context.Context, model *config.Model, sources map[string]core.DataSource, sinks map[string]core.DataSink, oldModel Model) (Model, error)

	// Test evaluates a trained model against the datasources tagged "test".
	Test(ctx context.Context, model *config.Model, sources map[string]core.DataSource, sinks map[string]core.DataSink, trained Model) (Metrics, error)
}
