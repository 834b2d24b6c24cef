package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"github.com/buttonboard/buttonboard/internal/model"
)

var userTestCols = []string{
	"id", "email", "full_name", "hashed_password",
	"is_active", "is_superuser", "created_at", "updated_at",
}

func userRow(id uuid.UUID, email string, active, super bool) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(userTestCols).
		AddRow(id.String(), email, nil, "$2a$04$hash", active, super, now, now)
}

func TestUserGetByEmail_Normalizes(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)
	id := uuid.New()

	mock.ExpectQuery("SELECT.+FROM users WHERE email=").
		WithArgs("alice@example.com").
		WillReturnRows(userRow(id, "alice@example.com", true, false))

	u, err := repo.GetByEmail(context.Background(), "  Alice@Example.COM ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.ID != id {
		t.Errorf("ID = %s, want %s", u.ID, id)
	}
}

func TestUserGetByID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)
	id := uuid.New()

	mock.ExpectQuery("SELECT.+FROM users WHERE id=").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(userTestCols))

	if _, err := repo.GetByID(context.Background(), id); err != sql.ErrNoRows {
		t.Errorf("err = %v, want sql.ErrNoRows", err)
	}
}

func TestUserCreate_DuplicateEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(errors.New("Error 1062: Duplicate entry 'alice@example.com' for key 'users.email'"))

	_, err := repo.Create(context.Background(), "alice@example.com", "password123", nil, false, 4)
	if !errors.Is(err, ErrEmailExists) {
		t.Errorf("err = %v, want ErrEmailExists", err)
	}
}

func TestUserDelete_ReparentsButtonsToSentinel(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE buttons SET created_by=").
		WithArgs(model.DeletedUserID, id).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("DELETE FROM users WHERE id=").
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.Delete(context.Background(), id); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestUserDelete_MissingUserRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE buttons SET created_by=").
		WithArgs(model.DeletedUserID, id).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM users WHERE id=").
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	if err := repo.Delete(context.Background(), id); err != sql.ErrNoRows {
		t.Errorf("err = %v, want sql.ErrNoRows", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestUserUpdate_PartialEmailOnly(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)
	id := uuid.New()
	email := "New@Example.com"

	mock.ExpectExec("UPDATE users SET email=").
		WithArgs("new@example.com", id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT.+FROM users WHERE id=").
		WithArgs(id).
		WillReturnRows(userRow(id, "new@example.com", true, false))

	u, err := repo.Update(context.Background(), id, UserUpdate{Email: &email}, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Email != "new@example.com" {
		t.Errorf("Email = %s, want new@example.com", u.Email)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}
