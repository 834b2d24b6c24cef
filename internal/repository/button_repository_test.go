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

var errDB = errors.New("db error")

var buttonTestCols = []string{
	"id", "type", "title", "description", "duration", "source",
	"created_by", "usage_count", "retired_at", "created_at", "updated_at",
}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func buttonRow(id, owner uuid.UUID, usageCount int64, retiredAt interface{}) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(buttonTestCols).
		AddRow(id.String(), "PSA", "Foo", nil, nil, nil, owner.String(), usageCount, retiredAt, now, now)
}

// ---------------------------------------------------------------------------
// GetByID
// ---------------------------------------------------------------------------

func TestButtonGetByID_Found(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewButtonRepo(db)
	id, owner := uuid.New(), uuid.New()

	mock.ExpectQuery("SELECT.+FROM buttons WHERE id=").
		WithArgs(id).
		WillReturnRows(buttonRow(id, owner, 3, nil))

	b, err := repo.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.ID != id {
		t.Errorf("ID = %s, want %s", b.ID, id)
	}
	if b.UsageCount != 3 {
		t.Errorf("UsageCount = %d, want 3", b.UsageCount)
	}
	if b.RetiredAt != nil {
		t.Errorf("RetiredAt = %v, want nil", b.RetiredAt)
	}
}

func TestButtonGetByID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewButtonRepo(db)
	id := uuid.New()

	mock.ExpectQuery("SELECT.+FROM buttons WHERE id=").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(buttonTestCols))

	if _, err := repo.GetByID(context.Background(), id); err != sql.ErrNoRows {
		t.Errorf("err = %v, want sql.ErrNoRows", err)
	}
}

// ---------------------------------------------------------------------------
// List
// ---------------------------------------------------------------------------

func TestButtonList_ScopedToOwner(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewButtonRepo(db)
	owner := uuid.New()
	id := uuid.New()

	mock.ExpectQuery("SELECT COUNT.+FROM buttons WHERE created_by=").
		WithArgs(owner).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT.+FROM buttons WHERE created_by=.+ORDER BY created_at, id").
		WithArgs(owner, 100, 0).
		WillReturnRows(buttonRow(id, owner, 0, nil))

	buttons, count, err := repo.List(context.Background(), &owner, 0, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 1 || len(buttons) != 1 {
		t.Fatalf("count = %d, len = %d, want 1/1", count, len(buttons))
	}
	if buttons[0].CreatedBy != owner {
		t.Errorf("CreatedBy = %s, want %s", buttons[0].CreatedBy, owner)
	}
}

func TestButtonList_Unscoped(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewButtonRepo(db)

	mock.ExpectQuery("SELECT COUNT.+FROM buttons").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery("SELECT.+FROM buttons ORDER BY created_at, id").
		WithArgs(50, 10).
		WillReturnRows(buttonRow(uuid.New(), uuid.New(), 0, nil).
			AddRow(uuid.NewString(), "SFX", "Bar", nil, nil, nil, uuid.NewString(), 7, nil, time.Now(), time.Now()))

	buttons, count, err := repo.List(context.Background(), nil, 10, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 2 || len(buttons) != 2 {
		t.Errorf("count = %d, len = %d, want 2/2", count, len(buttons))
	}
}

// ---------------------------------------------------------------------------
// Create / Update
// ---------------------------------------------------------------------------

func TestButtonCreate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewButtonRepo(db)
	owner := uuid.New()

	mock.ExpectExec("INSERT INTO buttons").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT.+FROM buttons WHERE id=").
		WillReturnRows(buttonRow(uuid.New(), owner, 0, nil))

	b, err := repo.Create(context.Background(), "PSA", "Foo", nil, nil, nil, owner)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.UsageCount != 0 {
		t.Errorf("UsageCount = %d, want 0", b.UsageCount)
	}
	if b.RetiredAt != nil {
		t.Errorf("RetiredAt = %v, want nil", b.RetiredAt)
	}
}

func TestButtonUpdate_PartialOnlyWritesPresentFields(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewButtonRepo(db)
	id, owner := uuid.New(), uuid.New()
	title := "Renamed"

	mock.ExpectExec("UPDATE buttons SET title=").
		WithArgs(title, id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT.+FROM buttons WHERE id=").
		WithArgs(id).
		WillReturnRows(buttonRow(id, owner, 0, nil))

	if _, err := repo.Update(context.Background(), id, ButtonUpdate{Title: &title}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestButtonUpdate_NoFieldsIsRead(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewButtonRepo(db)
	id, owner := uuid.New(), uuid.New()

	// No UPDATE expected at all.
	mock.ExpectQuery("SELECT.+FROM buttons WHERE id=").
		WithArgs(id).
		WillReturnRows(buttonRow(id, owner, 0, nil))

	if _, err := repo.Update(context.Background(), id, ButtonUpdate{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Delete
// ---------------------------------------------------------------------------

func TestButtonDelete_HistoryBlocksPlainDelete(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewButtonRepo(db)
	id := uuid.New()

	mock.ExpectExec("DELETE FROM buttons WHERE id=").
		WithArgs(id).
		WillReturnError(errors.New("Error 1451: Cannot delete or update a parent row"))

	if err := repo.Delete(context.Background(), id, false); !errors.Is(err, ErrHasHistory) {
		t.Errorf("err = %v, want ErrHasHistory", err)
	}
}

func TestButtonDelete_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewButtonRepo(db)
	id := uuid.New()

	mock.ExpectExec("DELETE FROM buttons WHERE id=").
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(context.Background(), id, false); err != sql.ErrNoRows {
		t.Errorf("err = %v, want sql.ErrNoRows", err)
	}
}

func TestButtonDelete_ForceCascadesInOneTx(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewButtonRepo(db)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM button_uses WHERE button_id=").
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectExec("DELETE FROM button_retirements WHERE button_id=").
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM buttons WHERE id=").
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.Delete(context.Background(), id, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestButtonDelete_ForceRollsBackOnFailure(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewButtonRepo(db)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM button_uses WHERE button_id=").
		WithArgs(id).
		WillReturnError(errDB)
	mock.ExpectRollback()

	if err := repo.Delete(context.Background(), id, true); err == nil {
		t.Error("expected error, got nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}
