package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/buttonboard/buttonboard/internal/model"
)

// UsageRepo records button usage events and maintains the denormalized
// usage_count column on the owning button. Increment is the one path in
// the system that must serialize concurrent writers on the same row.
type UsageRepo struct{ DB *sql.DB }

func NewUsageRepo(db *sql.DB) *UsageRepo { return &UsageRepo{DB: db} }

// Increment appends a usage event and bumps usage_count by exactly one,
// both inside a single transaction. The button row is read under an
// exclusive row lock (SELECT ... FOR UPDATE) so concurrent increments on
// the same id serialize while different ids proceed independently. The
// counter is written from the value read under the lock, never as a
// blind "+1". Fails with sql.ErrNoRows when the button does not exist
// and ErrRetired when it is retired; in both cases nothing is written.
func (r *UsageRepo) Increment(ctx context.Context, id uuid.UUID, origin *string) (model.Button, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.Button{}, err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx,
		"SELECT "+buttonCols+" FROM buttons WHERE id=? FOR UPDATE", id)
	b, err := scanButtonRow(row.Scan)
	if err != nil {
		return model.Button{}, err
	}
	if b.RetiredAt != nil {
		return model.Button{}, ErrRetired
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO button_uses (id, button_id, timestamp, origin) VALUES (?,?,UTC_TIMESTAMP(),?)",
		uuid.New(), id, origin); err != nil {
		return model.Button{}, err
	}
	next := b.UsageCount + 1
	if _, err := tx.ExecContext(ctx,
		"UPDATE buttons SET usage_count=? WHERE id=?", next, id); err != nil {
		return model.Button{}, err
	}

	// Read the row back inside the transaction so the response carries
	// the store-maintained updated_at.
	row = tx.QueryRowContext(ctx,
		"SELECT "+buttonCols+" FROM buttons WHERE id=? LIMIT 1", id)
	b, err = scanButtonRow(row.Scan)
	if err != nil {
		return model.Button{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Button{}, err
	}
	return b, nil
}

// CountUses returns the live number of usage events for a button.
func (r *UsageRepo) CountUses(ctx context.Context, buttonID uuid.UUID) (int64, error) {
	var count int64
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM button_uses WHERE button_id=?", buttonID).Scan(&count)
	return count, err
}

// RecentUses returns the most recent usage events for a button, newest
// first.
func (r *UsageRepo) RecentUses(ctx context.Context, buttonID uuid.UUID, limit int) ([]model.ButtonUse, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,button_id,timestamp,origin FROM button_uses WHERE button_id=? ORDER BY timestamp DESC LIMIT ?",
		buttonID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	uses := []model.ButtonUse{}
	for rows.Next() {
		var u model.ButtonUse
		var origin sql.NullString
		if err := rows.Scan(&u.ID, &u.ButtonID, &u.Timestamp, &origin); err != nil {
			return nil, err
		}
		if origin.Valid {
			v := origin.String
			u.Origin = &v
		}
		uses = append(uses, u)
	}
	return uses, rows.Err()
}
