package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aevon-lab/waypoint/internal/core/storage"
	"github.com/stretchr/testify/require"
)

func TestAdapter_Get(t *testing.T) {
	tests := []struct {
		name       string
		mockResult func(mock sqlmock.Sqlmock)
		assertions func(t *testing.T, content []byte, err error)
	}{
		{
			name: "existing shard",
			mockResult: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(queryGetObject)).
					WithArgs("rec/alice/phone/2023-11.rec").
					WillReturnRows(sqlmock.NewRows([]string{"content"}).AddRow([]byte("line\n")))
			},
			assertions: func(t *testing.T, content []byte, err error) {
				require.NoError(t, err)
				require.Equal(t, "line\n", string(content))
			},
		},
		{
			name: "missing shard maps to ErrNotFound",
			mockResult: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(queryGetObject)).
					WithArgs("rec/alice/phone/2023-11.rec").
					WillReturnRows(sqlmock.NewRows([]string{"content"}))
			},
			assertions: func(t *testing.T, content []byte, err error) {
				require.ErrorIs(t, err, storage.ErrNotFound)
				require.Nil(t, content)
			},
		},
		{
			name: "driver error is wrapped",
			mockResult: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(queryGetObject)).
					WithArgs("rec/alice/phone/2023-11.rec").
					WillReturnError(errors.New("connection reset"))
			},
			assertions: func(t *testing.T, content []byte, err error) {
				require.Error(t, err)
				require.NotErrorIs(t, err, storage.ErrNotFound)
				require.ErrorContains(t, err, "connection reset")
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			adapter, mock, db := newMockAdapter(t)
			defer db.Close()

			tc.mockResult(mock)

			content, err := adapter.Get(context.Background(), "rec/alice/phone/2023-11.rec")
			tc.assertions(t, content, err)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestAdapter_Put(t *testing.T) {
	adapter, mock, db := newMockAdapter(t)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(queryPutObject)).
		WithArgs("rec/alice/phone/2023-11.rec", []byte("a\nb\n")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, adapter.Put(context.Background(), "rec/alice/phone/2023-11.rec", []byte("a\nb\n")))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_List(t *testing.T) {
	adapter, mock, db := newMockAdapter(t)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(queryListObjects)).
		WithArgs(`rec/al\_ice/%`).
		WillReturnRows(sqlmock.NewRows([]string{"key"}).
			AddRow("rec/al_ice/phone/2023-10.rec").
			AddRow("rec/al_ice/phone/2023-11.rec"),
		).RowsWillBeClosed()

	keys, err := adapter.List(context.Background(), "rec/al_ice/")
	require.NoError(t, err)
	require.Equal(t, []string{"rec/al_ice/phone/2023-10.rec", "rec/al_ice/phone/2023-11.rec"}, keys)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLikePrefix(t *testing.T) {
	require.Equal(t, `rec/%`, likePrefix("rec/"))
	require.Equal(t, `rec/50\%\_off\\/%`, likePrefix(`rec/50%_off\/`))
}

func TestNewAdapter_MissingTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("objects").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	_, err = NewAdapter(db)
	require.ErrorContains(t, err, "did you run migrations?")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_CloseReturnsDBCloseError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	dbCloseErr := errors.New("db close failed")

	mock.ExpectPrepare(regexp.QuoteMeta(queryGetObject)).WillBeClosed()
	stmtGet, err := db.Prepare(queryGetObject)
	require.NoError(t, err)

	mock.ExpectPrepare(regexp.QuoteMeta(queryPutObject)).WillBeClosed()
	stmtPut, err := db.Prepare(queryPutObject)
	require.NoError(t, err)

	mock.ExpectPrepare(regexp.QuoteMeta(queryListObjects)).WillBeClosed()
	stmtList, err := db.Prepare(queryListObjects)
	require.NoError(t, err)

	mock.ExpectClose().WillReturnError(dbCloseErr)

	adapter := &Adapter{
		db:       db,
		stmtGet:  stmtGet,
		stmtPut:  stmtPut,
		stmtList: stmtList,
	}

	err = adapter.Close()
	require.Error(t, err)
	require.ErrorContains(t, err, "failed to close database")
	require.ErrorIs(t, err, dbCloseErr)
	require.NoError(t, mock.ExpectationsWereMet())
}

func newMockAdapter(t *testing.T) (*Adapter, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	adapter := &Adapter{
		db:       db,
		stmtGet:  mustPrepareStmt(t, db, mock, queryGetObject),
		stmtPut:  mustPrepareStmt(t, db, mock, queryPutObject),
		stmtList: mustPrepareStmt(t, db, mock, queryListObjects),
	}

	return adapter, mock, db
}

func mustPrepareStmt(t *testing.T, db *sql.DB, mock sqlmock.Sqlmock, query string) *sql.Stmt {
	t.Helper()

	mock.ExpectPrepare(regexp.QuoteMeta(query))
	stmt, err := db.Prepare(query)
	require.NoError(t, err)

	return stmt
}
