package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestAuditRepoRecord(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	repo := NewAuditRepo(db)

	mock.ExpectExec("INSERT INTO token_audit").
		WithArgs(uint64(9), ActionLogin, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	if !repo.Record(context.Background(), 9, ActionLogin, "", "127.0.0.1", "agent") {
		t.Fatalf("Record should report success")
	}

	// Store failure is swallowed: false, never an error the caller must
	// handle.
	mock.ExpectExec("INSERT INTO token_audit").
		WillReturnError(errors.New("connection refused"))
	if repo.Record(context.Background(), 9, ActionLogout, "jti", "", "") {
		t.Fatalf("Record should report failure on store error")
	}
}

func TestAuditRepoGetForUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	repo := NewAuditRepo(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"user_id", "action", "token_jti", "ip_address", "user_agent", "created_at"}).
		AddRow(9, ActionLogout, "jti-1", "127.0.0.1", "agent", now).
		AddRow(9, ActionLogin, nil, nil, nil, now.Add(-time.Minute))
	mock.ExpectQuery("SELECT (.+) FROM token_audit WHERE user_id=(.+) ORDER BY created_at DESC LIMIT").
		WithArgs(uint64(9), 50).
		WillReturnRows(rows)

	got := repo.GetForUser(context.Background(), 9, 50)
	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2", len(got))
	}
	if got[0].Action != ActionLogout || got[0].TokenJTI != "jti-1" {
		t.Fatalf("unexpected first entry: %+v", got[0])
	}
	if got[1].TokenJTI != "" {
		t.Fatalf("NULL jti should scan as empty string")
	}

	// A failing query reads as "no entries".
	mock.ExpectQuery("SELECT (.+) FROM token_audit").
		WillReturnError(errors.New("connection refused"))
	if got := repo.GetForUser(context.Background(), 9, 50); got != nil {
		t.Fatalf("store error should yield no entries, got %v", got)
	}
}

func TestAuditRepoGetAllJoinsUsername(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	repo := NewAuditRepo(db)

	rows := sqlmock.NewRows([]string{"user_id", "action", "token_jti", "ip_address", "user_agent", "created_at", "username"}).
		AddRow(9, ActionLogin, nil, nil, nil, time.Now(), "alice")
	mock.ExpectQuery("SELECT (.+) FROM token_audit ta JOIN users u ON").
		WithArgs(100).
		WillReturnRows(rows)

	got := repo.GetAll(context.Background(), 100)
	if len(got) != 1 || got[0].Username != "alice" {
		t.Fatalf("unexpected entries: %+v", got)
	}
}
