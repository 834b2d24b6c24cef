package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"

	"github.com/buttonboard/buttonboard/internal/model"
)

const buttonCols = "id,type,title,description,duration,source,created_by,usage_count,retired_at,created_at,updated_at"

// ButtonRepo provides CRUD access to the buttons table. Listing is
// ownership-scoped: superusers see every row, everyone else only the
// rows they created. The scoping decision is made by the caller through
// the optional owner filter.
type ButtonRepo struct{ DB *sql.DB }

func NewButtonRepo(db *sql.DB) *ButtonRepo { return &ButtonRepo{DB: db} }

// ButtonUpdate carries a partial button update. Nil fields are left
// untouched so a PUT body may name only the columns it wants changed.
type ButtonUpdate struct {
	Type        *string
	Title       *string
	Description *string
	Duration    *float64
	Source      *string
}

func scanButtonRow(scan func(...interface{}) error) (model.Button, error) {
	var b model.Button
	var desc, source sql.NullString
	var duration sql.NullFloat64
	var retiredAt sql.NullTime
	err := scan(&b.ID, &b.Type, &b.Title, &desc, &duration, &source,
		&b.CreatedBy, &b.UsageCount, &retiredAt, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return model.Button{}, err
	}
	if desc.Valid {
		v := desc.String
		b.Description = &v
	}
	if duration.Valid {
		v := duration.Float64
		b.Duration = &v
	}
	if source.Valid {
		v := source.String
		b.Source = &v
	}
	if retiredAt.Valid {
		v := retiredAt.Time
		b.RetiredAt = &v
	}
	return b, nil
}

// Create inserts a new button owned by createdBy and returns the stored
// row. usage_count starts at zero and retired_at null regardless of any
// client-supplied value.
func (r *ButtonRepo) Create(ctx context.Context, typ, title string, description *string, duration *float64, source *string, createdBy uuid.UUID) (model.Button, error) {
	id := uuid.New()
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO buttons (id, type, title, description, duration, source, created_by, usage_count) VALUES (?,?,?,?,?,?,?,0)",
		id, typ, title, description, duration, source, createdBy)
	if err != nil {
		return model.Button{}, err
	}
	return r.GetByID(ctx, id)
}

// GetByID fetches a button by id. Returns sql.ErrNoRows when absent.
func (r *ButtonRepo) GetByID(ctx context.Context, id uuid.UUID) (model.Button, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+buttonCols+" FROM buttons WHERE id=? LIMIT 1", id)
	return scanButtonRow(row.Scan)
}

// List returns buttons plus the total matching count. When owner is
// non-nil only that user's buttons are returned. Rows come back in
// creation order (created_at, id) so offset pagination is stable.
func (r *ButtonRepo) List(ctx context.Context, owner *uuid.UUID, skip, limit int) ([]model.Button, int64, error) {
	countQ := "SELECT COUNT(*) FROM buttons"
	listQ := "SELECT " + buttonCols + " FROM buttons"
	countArgs := []interface{}{}
	listArgs := []interface{}{}
	if owner != nil {
		countQ += " WHERE created_by=?"
		listQ += " WHERE created_by=?"
		countArgs = append(countArgs, *owner)
		listArgs = append(listArgs, *owner)
	}
	listQ += " ORDER BY created_at, id LIMIT ? OFFSET ?"
	listArgs = append(listArgs, limit, skip)

	var count int64
	if err := r.DB.QueryRowContext(ctx, countQ, countArgs...).Scan(&count); err != nil {
		return nil, 0, err
	}
	rows, err := r.DB.QueryContext(ctx, listQ, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	buttons := []model.Button{}
	for rows.Next() {
		b, err := scanButtonRow(rows.Scan)
		if err != nil {
			return nil, 0, err
		}
		buttons = append(buttons, b)
	}
	return buttons, count, rows.Err()
}

// Update applies a partial update and returns the stored row. Only
// fields present on upd overwrite existing values.
func (r *ButtonRepo) Update(ctx context.Context, id uuid.UUID, upd ButtonUpdate) (model.Button, error) {
	set := []string{}
	args := []interface{}{}
	if upd.Type != nil {
		set = append(set, "type=?")
		args = append(args, *upd.Type)
	}
	if upd.Title != nil {
		set = append(set, "title=?")
		args = append(args, *upd.Title)
	}
	if upd.Description != nil {
		set = append(set, "description=?")
		args = append(args, *upd.Description)
	}
	if upd.Duration != nil {
		set = append(set, "duration=?")
		args = append(args, *upd.Duration)
	}
	if upd.Source != nil {
		set = append(set, "source=?")
		args = append(args, *upd.Source)
	}
	if len(set) > 0 {
		args = append(args, id)
		if _, err := r.DB.ExecContext(ctx,
			"UPDATE buttons SET "+strings.Join(set, ", ")+" WHERE id=?", args...); err != nil {
			return model.Button{}, err
		}
	}
	return r.GetByID(ctx, id)
}

// Delete removes a button. Without force, a delete blocked by dependent
// usage or retirement rows (MySQL 1451, foreign key restriction) fails
// with ErrHasHistory. With force, the history rows and the button are
// removed together in one transaction; a partial failure rolls back
// everything. Returns sql.ErrNoRows when the button does not exist.
func (r *ButtonRepo) Delete(ctx context.Context, id uuid.UUID, force bool) error {
	if !force {
		res, err := r.DB.ExecContext(ctx, "DELETE FROM buttons WHERE id=?", id)
		if err != nil {
			if strings.Contains(strings.ToLower(err.Error()), "1451") {
				return ErrHasHistory
			}
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return sql.ErrNoRows
		}
		return nil
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM button_uses WHERE button_id=?", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM button_retirements WHERE button_id=?", id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM buttons WHERE id=?", id)
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
