package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateGroupRequestsTable, downCreateGroupRequestsTable)
}

func upCreateGroupRequestsTable(ctx context.Context, tx *sql.Tx) error {
	query := `
	CREATE TABLE group_requests (
	  id CHAR(36) NOT NULL PRIMARY KEY,
	  group_id CHAR(36) NOT NULL,
	  user_id VARCHAR(64) NOT NULL,
	  status ENUM('PENDING','ACCEPTED','REJECTED') NOT NULL DEFAULT 'PENDING',
	  payment_status ENUM('PENDING','PAID','FAILED') NOT NULL DEFAULT 'PENDING',
	  amount_paid_minor BIGINT NOT NULL DEFAULT 0,
	  created_at DATETIME(6) NOT NULL,
	  updated_at DATETIME(6) NOT NULL,
	  KEY idx_group_requests_group_user (group_id, user_id),
	  CONSTRAINT fk_group_requests_group FOREIGN KEY (group_id) REFERENCES mentor_groups (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;
	`
	_, err := tx.ExecContext(ctx, query)
	return err
}

func downCreateGroupRequestsTable(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS group_requests;`)
	return err
}
