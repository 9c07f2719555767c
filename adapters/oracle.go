package adapters

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"

	go_ora "github.com/sijms/go-ora/v2"
	"go.uber.org/zap"

	"github.com/modelpad/modelpad/config"
	"github.com/modelpad/modelpad/core"
	"github.com/modelpad/modelpad/core/builders"
)

// Register client
func init() {
	_ = register(&Oracle{}, "oracle")
}

var _ Adapter = (*Oracle)(nil)

// Oracle serves query results from and inserts frames into an Oracle
// database. Connectivity is delegated to the go-ora driver; credentials are
// resolved from the environment variables named in the dbms config.
type Oracle struct{}

func (o *Oracle) NewSource(id string, src *config.Source, dbms *config.DBMS, logger *zap.Logger) (core.DataSource, error) {
	if src.Query == "" {
		return nil, fmt.Errorf("oracle datasource needs a query")
	}

	client, err := oracleConnect(id, dbms, logger)
	if err != nil {
		return nil, err
	}

	return &oracleSource{
		id:     id,
		query:  src.Query,
		client: client,
		log:    logger,
	}, nil
}

func (o *Oracle) NewSink(id string, sink *config.Source, dbms *config.DBMS, logger *zap.Logger) (core.DataSink, error) {
	if sink.Table == "" {
		return nil, fmt.Errorf("oracle datasink needs a table")
	}

	client, err := oracleConnect(id, dbms, logger)
	if err != nil {
		return nil, err
	}

	return &oracleSink{
		id:     id,
		table:  sink.Table,
		client: client,
		log:    logger,
	}, nil
}

func oracleConnect(id string, dbms *config.DBMS, logger *zap.Logger) (*builders.Client, error) {
	dbms = dbms.Expand()

	user, password, err := credentialsFromEnv(dbms)
	if err != nil {
		return nil, err
	}

	urlOptions := make(map[string]string, len(dbms.Options))
	for k, v := range dbms.Options {
		urlOptions[k] = fmt.Sprint(v)
	}

	logger.Info("establishing oracle connection",
		zap.String("id", id),
		zap.String("host", dbms.Host),
		zap.Int("port", dbms.Port),
		zap.String("service_name", dbms.ServiceName))

	url := go_ora.BuildUrl(dbms.Host, dbms.Port, dbms.ServiceName, user, password, urlOptions)

	db, err := sql.Open("oracle", url)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to oracle database: %w", err)
	}

	// go-ora returns SQL NULL as nil; downstream frame consumers expect NaN
	// as the missing-value marker.
	return builders.NewClient(db, builders.WithRowProcessor(core.FillMissingRow)), nil
}

func credentialsFromEnv(dbms *config.DBMS) (user, password string, err error) {
	if dbms.UserVar == "" || dbms.PasswordVar == "" {
		return "", "", fmt.Errorf("dbms config needs user_var and password_var")
	}

	user, password = os.Getenv(dbms.UserVar), os.Getenv(dbms.PasswordVar)
	if user == "" {
		return "", "", fmt.Errorf("credential environment variable %s is not set", dbms.UserVar)
	}
	if password == "" {
		return "", "", fmt.Errorf("credential environment variable %s is not set", dbms.PasswordVar)
	}

	return user, password, nil
}

// namedArgs converts a params map to driver-level named bind parameters.
func namedArgs(params map[string]any) []any {
	args := make([]any, 0, len(params))
	for name, value := range params {
		args = append(args, sql.Named(name, value))
	}
	return args
}

type oracleSource struct {
	id     string
	query  string
	client *builders.Client
	log    *zap.Logger
}

var _ core.DataSource = (*oracleSource)(nil)

func (s *oracleSource) ReadFrame(ctx context.Context, params map[string]any) (*core.Frame, error) {
	stream, err := s.StreamFrame(ctx, params)
	if err != nil {
		return nil, err
	}
	return core.Drain(stream)
}

func (s *oracleSource) StreamFrame(ctx context.Context, params map[string]any) (core.FrameStream, error) {
	s.log.Debug("fetching oracle query",
		zap.String("id", s.id), zap.Int("params", len(params)))

	stream, err := s.client.Query(ctx, s.query, namedArgs(params)...)
	if err != nil {
		return nil, fmt.Errorf("oracle query: %w", err)
	}
	return stream, nil
}

func (s *oracleSource) ReadRaw(_ context.Context) ([]byte, error) {
	return nil, fmt.Errorf("datasource %q is a dbms source; use ReadFrame instead of ReadRaw", s.id)
}

func (s *oracleSource) Close() error {
	s.client.Close()
	return nil
}

type oracleSink struct {
	id     string
	table  string
	client *builders.Client
	log    *zap.Logger
}

var _ core.DataSink = (*oracleSink)(nil)

func (s *oracleSink) WriteFrame(ctx context.Context, frame *core.Frame) error {
	s.log.Debug("inserting frame into oracle table",
		zap.String("id", s.id), zap.String("table", s.table), zap.Int("rows", frame.Len()))

	err := s.client.InsertFrame(ctx, s.table, frame, func(i int) string {
		return ":" + strconv.Itoa(i)
	})
	if err != nil {
		return fmt.Errorf("oracle insert into %s: %w", s.table, err)
	}
	return nil
}

func (s *oracleSink) WriteRaw(_ context.Context, _ []byte) error {
	return fmt.Errorf("datasink %q is a dbms sink; use WriteFrame instead of WriteRaw", s.id)
}

func (s *oracleSink) Close() error {
	s.client.Close()
	return nil
}
