// Package config holds the YAML configuration model. A single file describes
// the model under management, where trained artifacts are stored, and every
// datasource, datasink and DBMS connection the pipeline may use.
package config

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/modelpad/modelpad/core"
)

const (
	// EnvConfigFile names the environment variable holding the config path.
	EnvConfigFile = "MODELPAD_CFG"

	// DefaultConfigFile is used when neither a flag nor the environment
	// variable points at a config file.
	DefaultConfigFile = "./modelpad.yml"
)

// File is the root of the configuration file.
type File struct {
	Model       *Model             `yaml:"model"`
	ModelStore  *ModelStore        `yaml:"model_store"`
	DataSources map[string]*Source `yaml:"datasources"`
	DataSinks   map[string]*Source `yaml:"datasinks"`
	DBMS        map[string]*DBMS   `yaml:"dbms"`
}

// Model identifies the model a pipeline trains or serves.
type Model struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// ModelStore configures where trained model artifacts are persisted.
type ModelStore struct {
	Location string `yaml:"location"`
}

// Source configures a single datasource or datasink entry. Which fields are
// meaningful depends on Type: file types use Path, DBMS sources use Query,
// DBMS sinks use Table.
type Source struct {
	Type    string         `yaml:"type"`
	Path    string         `yaml:"path"`
	Query   string         `yaml:"query"`
	Table   string         `yaml:"table"`
	Tags    Tags           `yaml:"tags"`
	Expires int            `yaml:"expires"`
	Options map[string]any `yaml:"options"`
}

// DBMS configures a database connection, referenced from Source entries via
// the "dbms.<name>" type. Credentials are not stored here: UserVar and
// PasswordVar name the environment variables to read them from.
type DBMS struct {
	Type        string         `yaml:"type"`
	Host        string         `yaml:"host"`
	Port        int            `yaml:"port"`
	ServiceName string         `yaml:"service_name"`
	DSN         string         `yaml:"dsn"`
	UserVar     string         `yaml:"user_var"`
	PasswordVar string         `yaml:"password_var"`
	Options     map[string]any `yaml:"options"`
}

// Expand returns a copy with template directives resolved in the fields that
// commonly carry them ({{ env "..." }} and {{ exec "..." }}).
func (d *DBMS) Expand() *DBMS {
	out := *d
	out.Host = core.ExpandOrDefault(d.Host)
	out.ServiceName = core.ExpandOrDefault(d.ServiceName)
	out.DSN = core.ExpandOrDefault(d.DSN)
	return &out
}

// Tags unmarshals from either a single scalar or a sequence, so both
// "tags: train" and "tags: [train, test]" work.
type Tags []string

func (t *Tags) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var single string
		if err := node.Decode(&single); err != nil {
			return err
		}
		*t = Tags{single}
		return nil
	case yaml.SequenceNode:
		var many []string
		if err := node.Decode(&many); err != nil {
			return err
		}
		*t = Tags(many)
		return nil
	default:
		return fmt.Errorf("tags must be a string or a list of strings")
	}
}

// Matches reports whether the entry carries at least one of the wanted tags.
// An empty want list matches everything.
func (t Tags) Matches(want []string) bool {
	if len(want) == 0 {
		return true
	}
	for _, w := range want {
		for _, have := range t {
			if w == have {
				return true
			}
		}
	}
	return false
}

// Path resolves the config file location: explicit path, then the
// environment variable, then the default.
func Path(explicit string, logger *zap.Logger) string {
	if explicit != "" {
		return explicit
	}
	if fromEnv := os.Getenv(EnvConfigFile); fromEnv != "" {
		return fromEnv
	}
	logger.Warn("config file environment variable not set, using default",
		zap.String("env_var", EnvConfigFile),
		zap.String("default", DefaultConfigFile))
	return DefaultConfigFile
}

// Load reads and parses a config file.
func Load(filename string, logger *zap.Logger) (*File, error) {
	logger.Info("loading configuration file", zap.String("file", filename))

	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", filename, err)
	}

	return Parse(raw)
}

// Parse parses raw YAML config content.
func Parse(raw []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &f, nil
}

// ValidatePipeline checks the sections the pipeline actions require. The data
// layer alone can run on a config with only datasources/datasinks/dbms.
func (f *File) ValidatePipeline() error {
	if f.Model == nil || f.Model.Name == "" || f.Model.Version == "" {
		return fmt.Errorf("configuration does not contain a model section with name and version")
	}
	if f.ModelStore == nil || f.ModelStore.Location == "" {
		return fmt.Errorf("configuration does not contain a model_store section with a location")
	}
	return nil
}
