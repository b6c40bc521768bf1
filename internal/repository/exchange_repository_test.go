package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"gopherai-docqa/internal/model"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	return db, mock
}

func TestExchangeRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewExchangeRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `rag_exchanges`")).
		WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectCommit()

	e := &model.Exchange{SessionID: "s1", Question: "q", Answer: "a", Model: "Hugging Face"}
	e.SetSources([]string{"src"})
	require.NoError(t, repo.Create(context.Background(), e))
	assert.Equal(t, uint(42), e.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExchangeRepository_ListBySessionIDReturnsOldestFirst(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewExchangeRepository(db)
	now := time.Now()

	rows := sqlmock.NewRows([]string{"id", "session_id", "question", "answer", "sources", "model", "created_at"}).
		AddRow(3, "s1", "q3", "a3", `["c"]`, "m", now).
		AddRow(2, "s1", "q2", "a2", `["b"]`, "m", now).
		AddRow(1, "s1", "q1", "a1", `["a"]`, "m", now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `rag_exchanges` WHERE session_id = ? ORDER BY id DESC LIMIT")).
		WillReturnRows(rows)

	got, err := repo.ListBySessionID(context.Background(), "s1", 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []uint{1, 2, 3}, []uint{got[0].ID, got[1].ID, got[2].ID})
	assert.Equal(t, []string{"a"}, got[0].SourceList())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExchangeRepository_DeleteBySessionID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewExchangeRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM `rag_exchanges` WHERE session_id = ?")).
		WithArgs("s1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	require.NoError(t, repo.DeleteBySessionID(context.Background(), "s1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExchangeRepository_CreateError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewExchangeRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `rag_exchanges`")).WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &model.Exchange{SessionID: "s1"})
	assert.ErrorIs(t, err, assert.AnError)
	assert.NoError(t, mock.ExpectationsWereMet())
}
