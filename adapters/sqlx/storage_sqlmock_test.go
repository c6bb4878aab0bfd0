package sqlx_test

import (
	"context"
	"database/sql"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	libsqlx "github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/ViniciusResende/PerguntaUFMG/adapters/memory"
	storage "github.com/ViniciusResende/PerguntaUFMG/adapters/sqlx"
	"github.com/ViniciusResende/PerguntaUFMG/backend"
)

func newMockStore(t *testing.T, opts ...storage.Option) (*storage.Client, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	xdb := storage.NewWithDB(libsqlx.NewDb(db, "postgres"), storage.DriverPostgres, opts...)
	cleanup := func() {
		_ = db.Close()
	}
	return xdb, mock, cleanup
}

func TestSQLMock_WriteData_Insert(t *testing.T) {
	store, mock, cleanup := newMockStore(t, storage.WithIDGenerator(memory.SequentialIDs("room")))
	defer cleanup()

	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT value FROM realtime_records WHERE path = \$1`).
		WithArgs("rooms/room1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(`INSERT INTO realtime_records .* ON CONFLICT \(path\) DO UPDATE`).
		WithArgs("rooms/room1", `{"authorId":"u1","title":"Aula"}`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	id, err := store.WriteData(ctx, "rooms/", map[string]any{"title": "Aula", "authorId": "u1"})
	require.NoError(t, err)
	require.Equal(t, "room1", id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_UpdateData_MergesRecord(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT value FROM realtime_records`).
		WithArgs("rooms/r1").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).
			AddRow(`{"title":"Aula","questions":{"q1":{"content":"why?"}}}`))
	mock.ExpectExec(`INSERT INTO realtime_records`).
		WithArgs("rooms/r1", `{"questions":{"q1":{"content":"why?","isAnswered":true}},"title":"Aula"}`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.UpdateData(context.Background(), "rooms/r1/questions/q1", map[string]any{"isAnswered": true})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_DeleteData_RemovesEmptyRecord(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT value FROM realtime_records`).
		WithArgs("rooms/r1").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(`{"title":"Aula"}`))
	mock.ExpectExec(`DELETE FROM realtime_records WHERE path = \$1`).
		WithArgs("rooms/r1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, store.DeleteData(context.Background(), "rooms/r1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_FetchData(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	ctx := context.Background()

	mock.ExpectQuery(`SELECT value FROM realtime_records`).
		WithArgs("rooms/r1").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(`{"title":"Aula"}`))
	v, err := store.FetchData(ctx, "rooms/r1/title")
	require.NoError(t, err)
	require.Equal(t, "Aula", v)

	mock.ExpectQuery(`SELECT path, value FROM realtime_records WHERE path LIKE`).
		WithArgs("rooms/%").
		WillReturnRows(sqlmock.NewRows([]string{"path", "value"}).
			AddRow("rooms/r1", `{"title":"Aula"}`).
			AddRow("rooms/r2", `{"title":"Lab"}`))
	v, err = store.FetchData(ctx, "rooms")
	require.NoError(t, err)
	require.Len(t, v, 2)

	mock.ExpectQuery(`SELECT value FROM realtime_records`).
		WithArgs("rooms/missing").
		WillReturnError(sql.ErrNoRows)
	_, err = store.FetchData(ctx, "rooms/missing")
	require.ErrorIs(t, err, backend.ErrNoData)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_WriteNotifiesSharedFeed(t *testing.T) {
	feed := backend.NewFeed()
	store, mock, cleanup := newMockStore(t, storage.WithFeed(feed), storage.WithIDGenerator(memory.SequentialIDs("q")))
	defer cleanup()

	ctx := context.Background()

	mock.ExpectQuery(`SELECT value FROM realtime_records`).
		WithArgs("rooms/r1").
		WillReturnError(sql.ErrNoRows)
	var got []any
	cancel, err := store.OnDataChange(ctx, "rooms/r1", func(v any) { got = append(got, v) })
	require.NoError(t, err)
	defer cancel()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT value FROM realtime_records`).
		WithArgs("rooms/r1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(`INSERT INTO realtime_records`).
		WithArgs("rooms/r1", `{"questions":{"q1":{"content":"why?"}}}`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(`SELECT value FROM realtime_records`).
		WithArgs("rooms/r1").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(`{"questions":{"q1":{"content":"why?"}}}`))

	_, err = store.WriteData(ctx, "rooms/r1/questions/", map[string]any{"content": "why?"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Nil(t, got[0])
	require.Equal(t, map[string]any{"questions": map[string]any{"q1": map[string]any{"content": "why?"}}}, got[1])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_Migrate(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS realtime_records`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, store.Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_WriteNeedsRecordPath(t *testing.T) {
	store, _, cleanup := newMockStore(t)
	defer cleanup()

	err := store.DeleteData(context.Background(), "rooms")
	require.ErrorIs(t, err, backend.ErrInvalidPath)
}

func TestNew_RejectsBadConfig(t *testing.T) {
	_, err := storage.New(context.Background(), storage.Config{Driver: "oracle", DSN: "x"})
	require.Error(t, err)
	_, err = storage.New(context.Background(), storage.Config{Driver: storage.DriverPostgres})
	require.Error(t, err)
}

func TestNew_SQLiteRoundTrip(t *testing.T) {
	cfg := storage.DefaultConfig(storage.DriverSQLite)
	cfg.DSN = "file:" + t.TempDir() + "/pergunta.db"
	ctx := context.Background()

	c, err := storage.New(ctx, cfg)
	require.NoError(t, err)
	defer c.Close()

	id, err := c.WriteData(ctx, "rooms/", map[string]any{"title": "Aula"})
	require.NoError(t, err)
	v, err := c.FetchData(ctx, "rooms/"+id+"/title")
	require.NoError(t, err)
	require.Equal(t, "Aula", v)
}
