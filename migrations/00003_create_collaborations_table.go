package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateCollaborationsTable, downCreateCollaborationsTable)
}

func upCreateCollaborationsTable(ctx context.Context, tx *sql.Tx) error {
	query := `
	CREATE TABLE collaborations (
	  id CHAR(36) NOT NULL PRIMARY KEY,
	  mentor_id CHAR(36) NOT NULL,
	  user_id VARCHAR(64) NOT NULL,
	  day VARCHAR(9) NOT NULL,
	  time_slot VARCHAR(8) NOT NULL,
	  price_minor BIGINT NOT NULL,
	  currency CHAR(3) NOT NULL,
	  start_date DATETIME(6) NOT NULL,
	  end_date DATETIME(6) NOT NULL,
	  payment BOOLEAN NOT NULL DEFAULT FALSE,
	  payment_ref VARCHAR(255) NULL,
	  is_cancelled BOOLEAN NOT NULL DEFAULT FALSE,
	  is_completed BOOLEAN NOT NULL DEFAULT FALSE,
	  created_at DATETIME(6) NOT NULL,
	  KEY idx_collaborations_mentor_slot (mentor_id, day, time_slot),
	  KEY idx_collaborations_user_slot (user_id, day, time_slot),
	  CONSTRAINT fk_collaborations_mentor FOREIGN KEY (mentor_id) REFERENCES mentors (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;
	`
	_, err := tx.ExecContext(ctx, query)
	return err
}

func downCreateCollaborationsTable(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS collaborations;`)
	return err
}
