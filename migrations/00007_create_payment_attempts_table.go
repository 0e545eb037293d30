package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreatePaymentAttemptsTable, downCreatePaymentAttemptsTable)
}

func upCreatePaymentAttemptsTable(ctx context.Context, tx *sql.Tx) error {
	query := `
	CREATE TABLE payment_attempts (
	  id CHAR(36) NOT NULL PRIMARY KEY,
	  kind ENUM('mentorship','group') NOT NULL,
	  request_id CHAR(36) NOT NULL,
	  user_id VARCHAR(64) NOT NULL,
	  idempotency_key VARCHAR(255) NOT NULL,
	  amount_minor BIGINT NOT NULL,
	  currency CHAR(3) NOT NULL,
	  status ENUM('PENDING','REQUIRES_ACTION','FAILED','CAPTURED','SETTLED','ORPHANED') NOT NULL,
	  gateway_intent_id VARCHAR(255) NULL,
	  failure_reason VARCHAR(512) NULL,
	  collaboration_id CHAR(36) NULL,
	  created_at DATETIME(6) NOT NULL,
	  updated_at DATETIME(6) NOT NULL,
	  UNIQUE KEY uq_attempts_idempotency_key (idempotency_key),
	  KEY idx_attempts_request (kind, request_id, status),
	  KEY idx_attempts_status_updated (status, updated_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;
	`
	_, err := tx.ExecContext(ctx, query)
	return err
}

func downCreatePaymentAttemptsTable(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS payment_attempts;`)
	return err
}
