package adapters

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/modelpad/modelpad/config"
	"github.com/modelpad/modelpad/core"
	"github.com/modelpad/modelpad/core/builders"
)

// Register client
func init() {
	_ = register(&SQLite{}, "sqlite", "sqlite3")
}

var _ Adapter = (*SQLite)(nil)

// SQLite serves the same DBMS contract as Oracle over a local database file.
// Mostly used for development runs and tests; the dbms config only needs a
// dsn (e.g. "file:train.db" or ":memory:").
type SQLite struct{}

func (s *SQLite) NewSource(id string, src *config.Source, dbms *config.DBMS, logger *zap.Logger) (core.DataSource, error) {
	if src.Query == "" {
		return nil, fmt.Errorf("sqlite datasource needs a query")
	}

	client, err := sqliteConnect(id, dbms, logger)
	if err != nil {
		return nil, err
	}

	return &sqliteSource{
		id:     id,
		query:  src.Query,
		client: client,
		log:    logger,
	}, nil
}

func (s *SQLite) NewSink(id string, sink *config.Source, dbms *config.DBMS, logger *zap.Logger) (core.DataSink, error) {
	if sink.Table == "" {
		return nil, fmt.Errorf("sqlite datasink needs a table")
	}

	client, err := sqliteConnect(id, dbms, logger)
	if err != nil {
		return nil, err
	}

	return &sqliteSink{
		id:     id,
		table:  sink.Table,
		client: client,
		log:    logger,
	}, nil
}

func sqliteConnect(id string, dbms *config.DBMS, logger *zap.Logger) (*builders.Client, error) {
	dbms = dbms.Expand()
	if dbms.DSN == "" {
		return nil, fmt.Errorf("sqlite dbms config needs a dsn")
	}

	logger.Info("opening sqlite database",
		zap.String("id", id), zap.String("dsn", dbms.DSN))

	db, err := sql.Open("sqlite", dbms.DSN)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to sqlite database: %w", err)
	}

	return builders.NewClient(db), nil
}

type sqliteSource struct {
	id     string
	query  string
	client *builders.Client
	log    *zap.Logger
}

var _ core.DataSource = (*sqliteSource)(nil)

func (s *sqliteSource) ReadFrame(ctx context.Context, params map[string]any) (*core.Frame, error) {
	stream, err := s.StreamFrame(ctx, params)
	if err != nil {
		return nil, err
	}
	return core.Drain(stream)
}

func (s *sqliteSource) StreamFrame(ctx context.Context, params map[string]any) (core.FrameStream, error) {
	s.log.Debug("fetching sqlite query",
		zap.String("id", s.id), zap.Int("params", len(params)))

	stream, err := s.client.Query(ctx, s.query, namedArgs(params)...)
	if err != nil {
		return nil, fmt.Errorf("sqlite query: %w", err)
	}
	return stream, nil
}

func (s *sqliteSource) ReadRaw(_ context.Context) ([]byte, error) {
	return nil, fmt.Errorf("datasource %q is a dbms source; use ReadFrame instead of ReadRaw", s.id)
}

func (s *sqliteSource) Close() error {
	s.client.Close()
	return nil
}

type sqliteSink struct {
	id     string
	table  string
	client *builders.Client
	log    *zap.Logger
}

var _ core.DataSink = (*sqliteSink)(nil)

func (s *sqliteSink) WriteFrame(ctx context.Context, frame *core.Frame) error {
	s.log.Debug("inserting frame into sqlite table",
		zap.String("id", s.id), zap.String("table", s.table), zap.Int("rows", frame.Len()))

	err := s.client.InsertFrame(ctx, s.table, frame, func(int) string {
		return "?"
	})
	if err != nil {
		return fmt.Errorf("sqlite insert into %s: %w", s.table, err)
	}
	return nil
}

func (s *sqliteSink) WriteRaw(_ context.Context, _ []byte) error {
	return fmt.Errorf("datasink %q is a dbms sink; use WriteFrame instead of WriteRaw", s.id)
}

func (s *sqliteSink) Close() error {
	s.client.Close()
	return nil
}
