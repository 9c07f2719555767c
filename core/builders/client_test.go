package builders_test

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelpad/modelpad/core"
	"github.com/modelpad/modelpad/core/builders"
)

func TestClient_Query(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	client := builders.NewClient(db)
	defer client.Close()

	mock.ExpectQuery("SELECT a, b FROM t").
		WillReturnRows(sqlmock.NewRows([]string{"a", "b"}).
			AddRow(int64(1), "x").
			AddRow(int64(2), "y"))

	stream, err := client.Query(context.Background(), "SELECT a, b FROM t")
	require.NoError(t, err)

	frame, err := core.Drain(stream)
	require.NoError(t, err)

	assert.Equal(t, core.Header{"a", "b"}, frame.Header())
	assert.Equal(t, []core.Row{{int64(1), "x"}, {int64(2), "y"}}, frame.Rows())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClient_Query_ByteSlicesBecomeStrings(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	client := builders.NewClient(db)
	defer client.Close()

	mock.ExpectQuery("SELECT name FROM t").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow([]byte("bytes")))

	stream, err := client.Query(context.Background(), "SELECT name FROM t")
	require.NoError(t, err)

	frame, err := core.Drain(stream)
	require.NoError(t, err)
	assert.Equal(t, []core.Row{{"bytes"}}, frame.Rows())
}

func TestClient_Query_RowProcessor(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	client := builders.NewClient(db, builders.WithRowProcessor(core.FillMissingRow))
	defer client.Close()

	mock.ExpectQuery("SELECT a, b FROM t").
		WillReturnRows(sqlmock.NewRows([]string{"a", "b"}).AddRow(nil, int64(7)))

	stream, err := client.Query(context.Background(), "SELECT a, b FROM t")
	require.NoError(t, err)

	frame, err := core.Drain(stream)
	require.NoError(t, err)

	val, err := frame.At("a", 0)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(val.(float64)))

	kept, err := frame.At("b", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(7), kept)
}

func TestClient_Exec(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	client := builders.NewClient(db)
	defer client.Close()

	mock.ExpectExec("DELETE FROM t").
		WillReturnResult(sqlmock.NewResult(0, 3))

	stream, err := client.Exec(context.Background(), "DELETE FROM t")
	require.NoError(t, err)

	frame, err := core.Drain(stream)
	require.NoError(t, err)

	assert.Equal(t, core.Header{"Rows Affected"}, frame.Header())
	assert.Equal(t, []core.Row{{int64(3)}}, frame.Rows())
}

func TestClient_InsertFrame(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	client := builders.NewClient(db)
	defer client.Close()

	frame := core.NewFrame(core.Header{"a", "b"}, []core.Row{
		{int64(1), "x"},
		{int64(2), "y"},
	})

	mock.ExpectBegin()
	prepared := mock.ExpectPrepare(`INSERT INTO scores \(a, b\) VALUES \(:1, :2\)`)
	prepared.ExpectExec().WithArgs(int64(1), "x").WillReturnResult(sqlmock.NewResult(0, 1))
	prepared.ExpectExec().WithArgs(int64(2), "y").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	placeholder := func(i int) string { return fmt.Sprintf(":%d", i) }
	err = client.InsertFrame(context.Background(), "scores", frame, placeholder)
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClient_InsertFrame_NoColumns(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	client := builders.NewClient(db)
	defer client.Close()

	frame := core.NewFrame(core.Header{}, nil)

	err = client.InsertFrame(context.Background(), "scores", frame, func(i int) string { return "?" })
	assert.ErrorContains(t, err, "without columns")
}

func TestClient_InsertFrame_RollbackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	client := builders.NewClient(db)
	defer client.Close()

	frame := core.NewFrame(core.Header{"a"}, []core.Row{{int64(1)}})

	mock.ExpectBegin()
	prepared := mock.ExpectPrepare(`INSERT INTO scores \(a\) VALUES \(\?\)`)
	prepared.ExpectExec().WithArgs(int64(1)).WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err = client.InsertFrame(context.Background(), "scores", frame, func(i int) string { return "?" })
	assert.ErrorContains(t, err, "stmt.Exec")

	assert.NoError(t, mock.ExpectationsWereMet())
}
