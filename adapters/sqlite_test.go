package adapters

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/modelpad/modelpad/config"
	"github.com/modelpad/modelpad/core"
)

func sqliteTestConfig(t *testing.T) (*config.File, string) {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db")

	cfg := &config.File{
		DBMS: map[string]*config.DBMS{
			"local": {Type: "sqlite", DSN: dsn},
		},
		DataSources: map[string]*config.Source{
			"scores": {
				Type:  "dbms.local",
				Query: "SELECT id, score FROM scores ORDER BY id",
			},
		},
		DataSinks: map[string]*config.Source{
			"scores_out": {
				Type:  "dbms.local",
				Table: "scores",
			},
		},
	}
	return cfg, dsn
}

// Exercises the whole DBMS path against a real database file: sink inserts a
// frame, source reads it back through the dbms.<name> indirection.
func TestSQLite_WriteThenRead(t *testing.T) {
	cfg, dsn := sqliteTestConfig(t)
	ctx := context.Background()

	setup, err := sqliteConnect("setup", &config.DBMS{DSN: dsn}, zap.NewNop())
	require.NoError(t, err)
	_, err = setup.DB().ExecContext(ctx, "CREATE TABLE scores (id INTEGER, score REAL)")
	require.NoError(t, err)
	setup.Close()

	sink, err := NewSink(cfg, "scores_out", zap.NewNop())
	require.NoError(t, err)
	defer sink.Close()

	frame := core.NewFrame(core.Header{"id", "score"}, []core.Row{
		{int64(1), 0.5},
		{int64(2), 0.75},
	})
	require.NoError(t, sink.WriteFrame(ctx, frame))

	source, err := NewSource(cfg, "scores", zap.NewNop())
	require.NoError(t, err)
	defer source.Close()

	got, err := source.ReadFrame(ctx, nil)
	require.NoError(t, err)

	assert.Equal(t, core.Header{"id", "score"}, got.Header())
	assert.Equal(t, frame.Rows(), got.Rows())
}

func TestSQLite_NewSource_Validation(t *testing.T) {
	_, err := (&SQLite{}).NewSource("s", &config.Source{}, &config.DBMS{DSN: ":memory:"}, zap.NewNop())
	assert.ErrorContains(t, err, "needs a query")

	_, err = (&SQLite{}).NewSink("s", &config.Source{}, &config.DBMS{DSN: ":memory:"}, zap.NewNop())
	assert.ErrorContains(t, err, "needs a table")
}

func TestSQLiteConnect_NeedsDSN(t *testing.T) {
	_, err := sqliteConnect("s", &config.DBMS{}, zap.NewNop())
	assert.ErrorContains(t, err, "needs a dsn")
}

func TestSQLiteConnect_ExpandsDSN(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "expanded.db")
	t.Setenv("MODELPAD_TEST_SQLITE_DSN", dsn)

	client, err := sqliteConnect("s", &config.DBMS{
		DSN: `{{ env "MODELPAD_TEST_SQLITE_DSN" }}`,
	}, zap.NewNop())
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.DB().Ping())
}
