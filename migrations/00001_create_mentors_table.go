package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateMentorsTable, downCreateMentorsTable)
}

func upCreateMentorsTable(ctx context.Context, tx *sql.Tx) error {
	query := `
	CREATE TABLE mentors (
	  id CHAR(36) NOT NULL PRIMARY KEY,
	  user_id VARCHAR(64) NOT NULL,
	  display_name VARCHAR(255) NOT NULL,
	  rate_minor BIGINT NOT NULL,
	  currency CHAR(3) NOT NULL DEFAULT 'inr',
	  is_active BOOLEAN NOT NULL DEFAULT TRUE,
	  created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
	  updated_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
	  UNIQUE KEY uq_mentors_user (user_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;
	`
	_, err := tx.ExecContext(ctx, query)
	return err
}

func downCreateMentorsTable(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS mentors;`)
	return err
}
