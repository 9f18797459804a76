package messagelog_test

import (
	"context"
	"testing"

	"github.com/bitiz/tirebot-go/internal/domain"
	"github.com/bitiz/tirebot-go/internal/infra/messagelog"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

func newLog(t *testing.T) (*messagelog.Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return messagelog.NewPostgres(sqlx.NewDb(db, "sqlmock")), mock
}

func TestEnsureSessionUpsert(t *testing.T) {
	log, mock := newLog(t)
	mock.ExpectExec("INSERT INTO chat_sessions").
		WithArgs("s1", "bitiz.example").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := log.EnsureSession(context.Background(), "s1", "bitiz.example"); err != nil {
		t.Fatalf("EnsureSession: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestAppendUser(t *testing.T) {
	log, mock := newLog(t)
	mock.ExpectExec("INSERT INTO chat_messages").
		WithArgs("s1", "merhaba").
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := log.AppendUser(context.Background(), "s1", "merhaba"); err != nil {
		t.Fatalf("AppendUser: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestAppendBotWithDealerPayload(t *testing.T) {
	log, mock := newLog(t)
	mock.ExpectExec("INSERT INTO chat_messages").
		WithArgs("s1", "2 bayi buldum", sqlmock.AnyArg(), "").
		WillReturnResult(sqlmock.NewResult(2, 1))

	resp := &domain.ChatResponse{
		SessionID: "s1",
		Message:   "2 bayi buldum",
		Dealers:   []domain.Dealer{{Name1: "Lastik Dünyası"}, {Name1: "Oto Servis"}},
	}
	if err := log.AppendBot(context.Background(), "s1", resp, ""); err != nil {
		t.Fatalf("AppendBot: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestAppendBotWithoutPayload(t *testing.T) {
	log, mock := newLog(t)
	mock.ExpectExec("INSERT INTO chat_messages").
		WithArgs("s1", "Görüşmek üzere!", nil, "").
		WillReturnResult(sqlmock.NewResult(3, 1))

	resp := &domain.ChatResponse{SessionID: "s1", Message: "Görüşmek üzere!"}
	if err := log.AppendBot(context.Background(), "s1", resp, ""); err != nil {
		t.Fatalf("AppendBot: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
