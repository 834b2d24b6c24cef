package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
)

func TestIncrement_AppendsEventAndBumpsCounter(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUsageRepo(db)
	id, owner := uuid.New(), uuid.New()
	origin := "203.0.113.9"

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT.+FROM buttons WHERE id=.+FOR UPDATE").
		WithArgs(id).
		WillReturnRows(buttonRow(id, owner, 41, nil))
	mock.ExpectExec("INSERT INTO button_uses").
		WillReturnResult(sqlmock.NewResult(0, 1))
	// The counter write must carry the value read under the lock plus
	// one, not a blind increment expression.
	mock.ExpectExec("UPDATE buttons SET usage_count=").
		WithArgs(int64(42), id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT.+FROM buttons WHERE id=").
		WithArgs(id).
		WillReturnRows(buttonRow(id, owner, 42, nil))
	mock.ExpectCommit()

	b, err := repo.Increment(context.Background(), id, &origin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.UsageCount != 42 {
		t.Errorf("UsageCount = %d, want 42", b.UsageCount)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestIncrement_RetiredWritesNothing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUsageRepo(db)
	id, owner := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT.+FROM buttons WHERE id=.+FOR UPDATE").
		WithArgs(id).
		WillReturnRows(buttonRow(id, owner, 10, time.Now().UTC()))
	mock.ExpectRollback()

	if _, err := repo.Increment(context.Background(), id, nil); !errors.Is(err, ErrRetired) {
		t.Errorf("err = %v, want ErrRetired", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestIncrement_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUsageRepo(db)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT.+FROM buttons WHERE id=.+FOR UPDATE").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(buttonTestCols))
	mock.ExpectRollback()

	if _, err := repo.Increment(context.Background(), id, nil); err != sql.ErrNoRows {
		t.Errorf("err = %v, want sql.ErrNoRows", err)
	}
}

func TestIncrement_InsertFailureRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUsageRepo(db)
	id, owner := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT.+FROM buttons WHERE id=.+FOR UPDATE").
		WithArgs(id).
		WillReturnRows(buttonRow(id, owner, 0, nil))
	mock.ExpectExec("INSERT INTO button_uses").
		WillReturnError(errDB)
	mock.ExpectRollback()

	if _, err := repo.Increment(context.Background(), id, nil); err == nil {
		t.Error("expected error, got nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestCountUses(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUsageRepo(db)
	id := uuid.New()

	mock.ExpectQuery("SELECT COUNT.+FROM button_uses WHERE button_id=").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(17))

	count, err := repo.CountUses(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 17 {
		t.Errorf("count = %d, want 17", count)
	}
}

func TestRecentUses_NewestFirst(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUsageRepo(db)
	id := uuid.New()
	newer := time.Now().UTC()
	older := newer.Add(-time.Minute)

	mock.ExpectQuery("SELECT.+FROM button_uses WHERE button_id=.+ORDER BY timestamp DESC").
		WithArgs(id, 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "button_id", "timestamp", "origin"}).
			AddRow(uuid.NewString(), id.String(), newer, "198.51.100.1").
			AddRow(uuid.NewString(), id.String(), older, nil))

	uses, err := repo.RecentUses(context.Background(), id, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(uses) != 2 {
		t.Fatalf("len = %d, want 2", len(uses))
	}
	if !uses[0].Timestamp.After(uses[1].Timestamp) {
		t.Error("events not ordered newest-first")
	}
	if uses[0].Origin == nil || *uses[0].Origin != "198.51.100.1" {
		t.Errorf("origin = %v, want 198.51.100.1", uses[0].Origin)
	}
	if uses[1].Origin != nil {
		t.Errorf("origin = %v, want nil", uses[1].Origin)
	}
}
