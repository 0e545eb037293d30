package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateMentorshipRequestsTable, downCreateMentorshipRequestsTable)
}

func upCreateMentorshipRequestsTable(ctx context.Context, tx *sql.Tx) error {
	query := `
	CREATE TABLE mentorship_requests (
	  id CHAR(36) NOT NULL PRIMARY KEY,
	  mentor_id CHAR(36) NOT NULL,
	  user_id VARCHAR(64) NOT NULL,
	  day VARCHAR(9) NOT NULL,
	  time_slot VARCHAR(8) NOT NULL,
	  price_minor BIGINT NOT NULL,
	  currency CHAR(3) NOT NULL,
	  is_accepted ENUM('PENDING','ACCEPTED','REJECTED') NOT NULL DEFAULT 'PENDING',
	  payment_status ENUM('PENDING','PAID','FAILED') NOT NULL DEFAULT 'PENDING',
	  accepted_at DATETIME(6) NULL,
	  created_at DATETIME(6) NOT NULL,
	  updated_at DATETIME(6) NOT NULL,
	  KEY idx_requests_user_slot (user_id, day, time_slot),
	  KEY idx_requests_mentor_slot (mentor_id, day, time_slot),
	  KEY idx_requests_accepted_at (is_accepted, accepted_at),
	  CONSTRAINT fk_requests_mentor FOREIGN KEY (mentor_id) REFERENCES mentors (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;
	`
	_, err := tx.ExecContext(ctx, query)
	return err
}

func downCreateMentorshipRequestsTable(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS mentorship_requests;`)
	return err
}
