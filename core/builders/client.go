package builders

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/modelpad/modelpad/core"
)

// Client is the default database/sql bridge used by the DBMS adapters.
type Client struct {
	db             *sql.DB
	typeProcessors map[string]func(any) any
	rowProcessor   func(core.Row) core.Row
}

func NewClient(db *sql.DB, opts ...ClientOption) *Client {
	config := clientConfig{
		typeProcessors: make(map[string]func(any) any),
	}
	for _, opt := range opts {
		opt(&config)
	}

	return &Client{
		db:             db,
		typeProcessors: config.typeProcessors,
		rowProcessor:   config.rowProcessor,
	}
}

func (c *Client) DB() *sql.DB {
	return c.db
}

func (c *Client) Close() {
	c.db.Close()
}

func (c *Client) getTypeProcessor(typ string) func(any) any {
	proc, ok := c.typeProcessors[strings.ToLower(typ)]
	if ok {
		return proc
	}

	return func(val any) any {
		valb, ok := val.([]byte)
		if ok {
			return string(valb)
		}
		return val
	}
}

// Query executes a query and returns a cursor over its rows. Named bind
// parameters are passed through to the driver via args.
func (c *Client) Query(ctx context.Context, query string, args ...any) (*Stream, error) {
	dbRows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	header, err := dbRows.Columns()
	if err != nil {
		_ = dbRows.Close()
		return nil, err
	}

	hasNextFunc := func() bool {
		if !dbRows.Next() {
			if !dbRows.NextResultSet() {
				return false
			}
			return dbRows.Next()
		}
		return true
	}

	nextFunc := func() (core.Row, error) {
		dbCols, err := dbRows.ColumnTypes()
		if err != nil {
			return nil, err
		}

		columns := make([]any, len(dbCols))
		columnPointers := make([]any, len(dbCols))
		for i := range columns {
			columnPointers[i] = &columns[i]
		}

		if err := dbRows.Scan(columnPointers...); err != nil {
			return nil, err
		}

		row := make(core.Row, len(dbCols))
		for i := range dbCols {
			val := *columnPointers[i].(*any)

			proc := c.getTypeProcessor(dbCols[i].DatabaseTypeName())

			row[i] = proc(val)
		}

		if c.rowProcessor != nil {
			row = c.rowProcessor(row)
		}

		return row, nil
	}

	stream := NewStreamBuilder().
		WithNextFunc(nextFunc, hasNextFunc).
		WithHeader(header).
		WithCloseFunc(func() {
			_ = dbRows.Close()
		}).
		Build()

	return stream, nil
}

// Exec executes a statement and returns a stream with a single row (number of
// affected rows).
func (c *Client) Exec(ctx context.Context, query string, args ...any) (*Stream, error) {
	res, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}

	stream := NewStreamBuilder().
		WithNextFunc(NextSingle(affected)).
		WithHeader(core.Header{"Rows Affected"}).
		Build()

	return stream, nil
}

// Placeholder renders a bind placeholder for the i-th (1-based) column of an
// INSERT statement. Drivers disagree on the syntax, so each adapter provides
// its own.
type Placeholder func(i int) string

// InsertFrame writes all rows of a frame into table within one transaction.
func (c *Client) InsertFrame(ctx context.Context, table string, frame *core.Frame, placeholder Placeholder) error {
	header := frame.Header()
	if len(header) == 0 {
		return fmt.Errorf("refusing to insert frame without columns")
	}

	placeholders := make([]string, len(header))
	for i := range header {
		placeholders[i] = placeholder(i + 1)
	}
	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		table,
		strings.Join(header, ", "),
		strings.Join(placeholders, ", "),
	)

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("db.BeginTx: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("tx.Prepare: %w", err)
	}
	defer stmt.Close()

	for _, row := range frame.Rows() {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("stmt.Exec: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("tx.Commit: %w", err)
	}

	return nil
}
