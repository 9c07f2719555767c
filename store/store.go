// Package store persists trained models and their metadata. It abstracts
// away how and where a model artifact is kept: a gob-encoded model file plus
// a JSON metadata file per name/version, with replaced artifacts backed up
// into a previous/ subdirectory.
package store

import (
	"encoding/gob"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/modelpad/modelpad/config"
)

const (
	timeFormat     = "2006-01-02 15:04:05"
	fileTimeFormat = "2006-01-02_15-04-05"

	modelExt    = ".gob"
	metadataExt = ".json"

	backupDirName = "previous"
)

// Metrics is the free-form test-metrics mapping produced by model testing
// (accuracy, f1, confusion matrix, ...).
type Metrics map[string]any

// Metadata is stored alongside every model artifact.
type Metadata struct {
	Name           string             `json:"name"`
	Version        string             `json:"version"`
	Created        string             `json:"created"`
	CreatedBy      string             `json:"created_by"`
	RunID          string             `json:"run_id,omitempty"`
	Metrics        Metrics            `json:"metrics"`
	MetricsHistory map[string]Metrics `json:"metrics_history"`
	ConfigSnapshot *config.Model      `json:"config_snapshot"`
}

type Store struct {
	location string
	now      func() time.Time
	log      *zap.Logger
}

// New opens (and if needed creates) the model store configured under
// model_store.location.
func New(cfg *config.File, logger *zap.Logger) (*Store, error) {
	if cfg.ModelStore == nil || cfg.ModelStore.Location == "" {
		return nil, fmt.Errorf("configuration does not contain a model_store section with a location")
	}

	location := cfg.ModelStore.Location
	if err := os.MkdirAll(location, 0o755); err != nil {
		return nil, fmt.Errorf("create model store location %s: %w", location, err)
	}

	return &Store{
		location: location,
		now:      time.Now,
		log:      logger,
	}, nil
}

func (s *Store) baseName(model *config.Model) string {
	return filepath.Join(s.location, fmt.Sprintf("%s_%s", model.Name, model.Version))
}

// Save persists a model object together with fresh metadata. A previously
// stored artifact of the same name/version is first copied into the backup
// directory with a timestamp infix.
//
// The model is gob-encoded: callers loading it back through an interface
// need to gob.Register their concrete model type.
func (s *Store) Save(cfg *config.File, model any, metrics Metrics, runID string) error {
	base := s.baseName(cfg.Model)

	if err := s.backupOld(base); err != nil {
		return err
	}

	modelFile, err := os.Create(base + modelExt)
	if err != nil {
		return fmt.Errorf("create model file: %w", err)
	}
	if err := gob.NewEncoder(modelFile).Encode(&model); err != nil {
		_ = modelFile.Close()
		return fmt.Errorf("encode model: %w", err)
	}
	if err := modelFile.Close(); err != nil {
		return fmt.Errorf("close model file: %w", err)
	}

	now := s.now().Format(timeFormat)
	meta := &Metadata{
		Name:           cfg.Model.Name,
		Version:        cfg.Model.Version,
		Created:        now,
		CreatedBy:      currentUser(),
		RunID:          runID,
		Metrics:        metrics,
		MetricsHistory: map[string]Metrics{now: metrics},
		ConfigSnapshot: cfg.Model,
	}
	if err := s.writeMetadata(base, meta); err != nil {
		return err
	}

	s.log.Info("stored trained model",
		zap.String("name", meta.Name),
		zap.String("version", meta.Version),
		zap.String("run_id", runID))

	return nil
}

// Load reads a stored model into the given pointer and returns its metadata.
func (s *Store) Load(model *config.Model, into any) (*Metadata, error) {
	base := s.baseName(model)

	modelFile, err := os.Open(base + modelExt)
	if err != nil {
		return nil, fmt.Errorf("open model file: %w", err)
	}
	defer modelFile.Close()

	if err := gob.NewDecoder(modelFile).Decode(into); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}

	return s.readMetadata(base)
}

// LoadMetadata reads only the metadata of a stored model.
func (s *Store) LoadMetadata(model *config.Model) (*Metadata, error) {
	return s.readMetadata(s.baseName(model))
}

// UpdateMetrics replaces the current test metrics of a previously stored
// model and appends them to the metrics history.
func (s *Store) UpdateMetrics(model *config.Model, metrics Metrics) error {
	base := s.baseName(model)

	meta, err := s.readMetadata(base)
	if err != nil {
		return err
	}

	meta.Metrics = metrics
	if meta.MetricsHistory == nil {
		meta.MetricsHistory = make(map[string]Metrics)
	}
	meta.MetricsHistory[s.now().Format(timeFormat)] = metrics

	return s.writeMetadata(base, meta)
}

func (s *Store) readMetadata(base string) (*Metadata, error) {
	raw, err := os.ReadFile(base + metadataExt)
	if err != nil {
		return nil, fmt.Errorf("read model metadata: %w", err)
	}

	var meta Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("parse model metadata: %w", err)
	}
	return &meta, nil
}

func (s *Store) writeMetadata(base string, meta *Metadata) error {
	raw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encode model metadata: %w", err)
	}
	if err := os.WriteFile(base+metadataExt, raw, 0o644); err != nil {
		return fmt.Errorf("write model metadata: %w", err)
	}
	return nil
}

// backupOld copies any existing artifact files of this model into the backup
// directory, with a timestamp infix in the file name.
func (s *Store) backupOld(base string) error {
	matches, err := filepath.Glob(base + "*")
	if err != nil {
		return fmt.Errorf("glob model files: %w", err)
	}
	if len(matches) == 0 {
		return nil
	}

	backupDir := filepath.Join(s.location, backupDirName)
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return fmt.Errorf("create backup dir: %w", err)
	}

	infix := s.now().Format(fileTimeFormat)
	for _, file := range matches {
		name := filepath.Base(file)
		ext := filepath.Ext(name)
		stem := name[:len(name)-len(ext)]
		backupName := fmt.Sprintf("%s_%s%s", stem, infix, ext)

		s.log.Debug("backing up previous model file",
			zap.String("file", name), zap.String("backup", backupName))

		if err := copyFile(file, filepath.Join(backupDir, backupName)); err != nil {
			return fmt.Errorf("backup %s: %w", name, err)
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func currentUser() string {
	u, err := user.Current()
	if err != nil || u.Username == "" {
		return "unknown"
	}
	return u.Username
}
