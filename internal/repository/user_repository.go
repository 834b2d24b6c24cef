package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"

	"github.com/buttonboard/buttonboard/internal/model"
	"github.com/buttonboard/buttonboard/internal/utils"
)

const userCols = "id,email,full_name,hashed_password,is_active,is_superuser,created_at,updated_at"

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// UserUpdate carries a partial user update. Nil fields are left
// untouched; Password, when present, is hashed before storage.
type UserUpdate struct {
	Email       *string
	FullName    *string
	Password    *string
	IsActive    *bool
	IsSuperuser *bool
}

func scanUser(row *sql.Row) (model.User, error) {
	var u model.User
	var fullName sql.NullString
	err := row.Scan(&u.ID, &u.Email, &fullName, &u.HashedPassword,
		&u.IsActive, &u.IsSuperuser, &u.CreatedAt, &u.UpdatedAt)
	if fullName.Valid {
		v := fullName.String
		u.FullName = &v
	}
	return u, err
}

// Create inserts a user and returns the stored row. The email is
// normalized and the password hashed with the given bcrypt cost.
func (r *UserRepo) Create(ctx context.Context, email, password string, fullName *string, isSuperuser bool, cost int) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return model.User{}, err
	}
	id := uuid.New()
	_, err = r.DB.ExecContext(ctx,
		"INSERT INTO users (id, email, full_name, hashed_password, is_active, is_superuser) VALUES (?,?,?,?,?,?)",
		id, email, fullName, hash, true, isSuperuser)
	if err != nil {
		// MySQL 1062 = duplicate entry on the unique email index
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return model.User{}, ErrEmailExists
		}
		return model.User{}, err
	}
	return r.GetByID(ctx, id)
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE id=? LIMIT 1", id))
}

// List returns users in creation order plus the total row count.
func (r *UserRepo) List(ctx context.Context, skip, limit int) ([]model.User, int64, error) {
	var count int64
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return nil, 0, err
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userCols+" FROM users ORDER BY created_at, id LIMIT ? OFFSET ?", limit, skip)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		var u model.User
		var fullName sql.NullString
		if err := rows.Scan(&u.ID, &u.Email, &fullName, &u.HashedPassword,
			&u.IsActive, &u.IsSuperuser, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, 0, err
		}
		if fullName.Valid {
			v := fullName.String
			u.FullName = &v
		}
		users = append(users, u)
	}
	return users, count, rows.Err()
}

// Update applies a partial update and returns the stored row. Only
// fields present on upd are written; everything else keeps its value.
func (r *UserRepo) Update(ctx context.Context, id uuid.UUID, upd UserUpdate, cost int) (model.User, error) {
	set := []string{}
	args := []interface{}{}
	if upd.Email != nil {
		set = append(set, "email=?")
		args = append(args, strings.ToLower(strings.TrimSpace(*upd.Email)))
	}
	if upd.FullName != nil {
		set = append(set, "full_name=?")
		args = append(args, *upd.FullName)
	}
	if upd.Password != nil {
		hash, err := utils.HashPassword(*upd.Password, cost)
		if err != nil {
			return model.User{}, err
		}
		set = append(set, "hashed_password=?")
		args = append(args, hash)
	}
	if upd.IsActive != nil {
		set = append(set, "is_active=?")
		args = append(args, *upd.IsActive)
	}
	if upd.IsSuperuser != nil {
		set = append(set, "is_superuser=?")
		args = append(args, *upd.IsSuperuser)
	}
	if len(set) > 0 {
		args = append(args, id)
		if _, err := r.DB.ExecContext(ctx,
			"UPDATE users SET "+strings.Join(set, ", ")+" WHERE id=?", args...); err != nil {
			if strings.Contains(strings.ToLower(err.Error()), "1062") {
				return model.User{}, ErrEmailExists
			}
			return model.User{}, err
		}
	}
	// The follow-up select reports sql.ErrNoRows for missing users.
	return r.GetByID(ctx, id)
}

// UpdatePassword stores a new bcrypt hash for the user.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uuid.UUID, password string, cost int) error {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, "UPDATE users SET hashed_password=? WHERE id=?", hash, id)
	return err
}

// Delete removes a user. Buttons the user created are re-parented to
// the sentinel deleted-user identity in the same transaction so their
// usage and retirement history survives. Returns sql.ErrNoRows when the
// user does not exist.
func (r *UserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"UPDATE buttons SET created_by=? WHERE created_by=?", model.DeletedUserID, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return tx.Commit()
}
