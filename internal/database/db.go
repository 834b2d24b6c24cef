package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/buttonboard/buttonboard/internal/model"
)

// Open connects to MySQL and verifies the connection. parseTime turns
// DATETIME columns into time.Time, and loc=UTC keeps every timestamp in
// the same zone as the ones the repositories write.
func Open(user, pass, host, port, name string) (*sql.DB, error) {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, host, port, name)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

// schema holds the DDL in dependency order. button_uses and
// button_retirements reference buttons with ON DELETE RESTRICT so a
// plain delete of a button with history fails (MySQL error 1451), which
// the button repository turns into a domain error.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id CHAR(36) NOT NULL,
		email VARCHAR(255) NOT NULL,
		full_name VARCHAR(255) NULL,
		hashed_password VARCHAR(255) NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		is_superuser BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uq_users_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS buttons (
		id CHAR(36) NOT NULL,
		type VARCHAR(64) NOT NULL,
		title VARCHAR(255) NOT NULL,
		description TEXT NULL,
		duration DOUBLE NULL,
		source VARCHAR(512) NULL,
		created_by CHAR(36) NOT NULL,
		usage_count BIGINT NOT NULL DEFAULT 0,
		retired_at DATETIME NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		KEY idx_buttons_created_by (created_by),
		CONSTRAINT fk_buttons_creator FOREIGN KEY (created_by) REFERENCES users (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS button_uses (
		id CHAR(36) NOT NULL,
		button_id CHAR(36) NOT NULL,
		timestamp DATETIME NOT NULL,
		origin VARCHAR(64) NULL,
		PRIMARY KEY (id),
		KEY idx_button_uses_button (button_id, timestamp),
		CONSTRAINT fk_uses_button FOREIGN KEY (button_id) REFERENCES buttons (id)
			ON DELETE RESTRICT
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS button_retirements (
		id CHAR(36) NOT NULL,
		button_id CHAR(36) NOT NULL,
		created_by CHAR(36) NOT NULL,
		retired_at DATETIME NOT NULL,
		unretired_at DATETIME NULL,
		PRIMARY KEY (id),
		KEY idx_retirements_button (button_id, retired_at),
		KEY idx_retirements_creator (created_by),
		CONSTRAINT fk_retirements_button FOREIGN KEY (button_id) REFERENCES buttons (id)
			ON DELETE RESTRICT
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// EnsureSchema creates the tables when they do not exist and seeds the
// sentinel deleted-user row that orphaned buttons are re-parented to.
// The sentinel account is inactive so its credentials can never be used
// to log in.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	_, err := db.ExecContext(ctx,
		`INSERT IGNORE INTO users (id, email, full_name, hashed_password, is_active, is_superuser)
		 VALUES (?, 'deleted@system.local', 'Deleted User', '!', FALSE, FALSE)`,
		model.DeletedUserID)
	if err != nil {
		return fmt.Errorf("seed sentinel user: %w", err)
	}
	return nil
}
