package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/buttonboard/buttonboard/internal/model"
)

const retirementCols = "id,button_id,created_by,retired_at,unretired_at"

// RetirementRepo drives the button retirement state machine and its
// append-only history. A button is Active when buttons.retired_at is
// null and Retired otherwise; the flag and the open history row (the one
// with a null unretired_at) are always written together in one
// transaction so they cannot drift apart.
type RetirementRepo struct{ DB *sql.DB }

func NewRetirementRepo(db *sql.DB) *RetirementRepo { return &RetirementRepo{DB: db} }

func scanRetirement(scan func(...interface{}) error) (model.ButtonRetirement, error) {
	var rec model.ButtonRetirement
	var unretired sql.NullTime
	if err := scan(&rec.ID, &rec.ButtonID, &rec.CreatedBy, &rec.RetiredAt, &unretired); err != nil {
		return model.ButtonRetirement{}, err
	}
	if unretired.Valid {
		v := unretired.Time
		rec.UnretiredAt = &v
	}
	return rec, nil
}

// Retire moves a button from Active to Retired: it inserts an open
// retirement row attributed to actor and stamps buttons.retired_at with
// the same instant, committing both together. Fails with sql.ErrNoRows
// when the button does not exist and ErrAlreadyRetired when retired_at
// is already set.
func (r *RetirementRepo) Retire(ctx context.Context, buttonID, actor uuid.UUID) (model.Button, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.Button{}, err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx,
		"SELECT "+buttonCols+" FROM buttons WHERE id=? LIMIT 1", buttonID)
	b, err := scanButtonRow(row.Scan)
	if err != nil {
		return model.Button{}, err
	}
	if b.RetiredAt != nil {
		return model.Button{}, ErrAlreadyRetired
	}

	// One instant for both writes keeps the marker and the history row
	// in agreement. MySQL DATETIME carries second precision.
	now := time.Now().UTC().Truncate(time.Second)
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO button_retirements (id, button_id, created_by, retired_at, unretired_at) VALUES (?,?,?,?,NULL)",
		uuid.New(), buttonID, actor, now); err != nil {
		return model.Button{}, err
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE buttons SET retired_at=? WHERE id=?", now, buttonID); err != nil {
		return model.Button{}, err
	}

	row = tx.QueryRowContext(ctx,
		"SELECT "+buttonCols+" FROM buttons WHERE id=? LIMIT 1", buttonID)
	b, err = scanButtonRow(row.Scan)
	if err != nil {
		return model.Button{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Button{}, err
	}
	return b, nil
}

// Unretire moves a button from Retired back to Active: it closes the
// open retirement row and clears buttons.retired_at in one transaction.
// When more than one open row somehow exists, the most recent by
// retired_at is closed. Fails with sql.ErrNoRows when the button does
// not exist, ErrNotRetired when it is not retired, and
// ErrNoRetirementRecord when the marker is set but no open row exists.
func (r *RetirementRepo) Unretire(ctx context.Context, buttonID uuid.UUID) (model.Button, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.Button{}, err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx,
		"SELECT "+buttonCols+" FROM buttons WHERE id=? LIMIT 1", buttonID)
	b, err := scanButtonRow(row.Scan)
	if err != nil {
		return model.Button{}, err
	}
	if b.RetiredAt == nil {
		return model.Button{}, ErrNotRetired
	}

	row = tx.QueryRowContext(ctx,
		"SELECT "+retirementCols+" FROM button_retirements WHERE button_id=? AND unretired_at IS NULL ORDER BY retired_at DESC LIMIT 1",
		buttonID)
	rec, err := scanRetirement(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.Button{}, ErrNoRetirementRecord
		}
		return model.Button{}, err
	}

	now := time.Now().UTC().Truncate(time.Second)
	if _, err := tx.ExecContext(ctx,
		"UPDATE button_retirements SET unretired_at=? WHERE id=?", now, rec.ID); err != nil {
		return model.Button{}, err
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE buttons SET retired_at=NULL WHERE id=?", buttonID); err != nil {
		return model.Button{}, err
	}

	row = tx.QueryRowContext(ctx,
		"SELECT "+buttonCols+" FROM buttons WHERE id=? LIMIT 1", buttonID)
	b, err = scanButtonRow(row.Scan)
	if err != nil {
		return model.Button{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Button{}, err
	}
	return b, nil
}

// ListForButton returns every retirement record for a button in
// retirement order.
func (r *RetirementRepo) ListForButton(ctx context.Context, buttonID uuid.UUID) ([]model.ButtonRetirement, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+retirementCols+" FROM button_retirements WHERE button_id=? ORDER BY retired_at, id", buttonID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRetirements(rows)
}

// ListAll returns retirement records plus the total matching count. When
// creator is non-nil only records that user personally created are
// returned, mirroring the ownership scoping of button listing.
func (r *RetirementRepo) ListAll(ctx context.Context, creator *uuid.UUID, skip, limit int) ([]model.ButtonRetirement, int64, error) {
	countQ := "SELECT COUNT(*) FROM button_retirements"
	listQ := "SELECT " + retirementCols + " FROM button_retirements"
	countArgs := []interface{}{}
	listArgs := []interface{}{}
	if creator != nil {
		countQ += " WHERE created_by=?"
		listQ += " WHERE created_by=?"
		countArgs = append(countArgs, *creator)
		listArgs = append(listArgs, *creator)
	}
	listQ += " ORDER BY retired_at, id LIMIT ? OFFSET ?"
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
	recs, err := collectRetirements(rows)
	if err != nil {
		return nil, 0, err
	}
	return recs, count, nil
}

func collectRetirements(rows *sql.Rows) ([]model.ButtonRetirement, error) {
	recs := []model.ButtonRetirement{}
	for rows.Next() {
		rec, err := scanRetirement(rows.Scan)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
