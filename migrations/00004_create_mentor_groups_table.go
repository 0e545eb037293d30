package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateMentorGroupsTable, downCreateMentorGroupsTable)
}

func upCreateMentorGroupsTable(ctx context.Context, tx *sql.Tx) error {
	query := `
	CREATE TABLE mentor_groups (
	  id CHAR(36) NOT NULL PRIMARY KEY,
	  mentor_id CHAR(36) NOT NULL,
	  name VARCHAR(255) NOT NULL,
	  max_members INT NOT NULL,
	  price_minor BIGINT NOT NULL,
	  currency CHAR(3) NOT NULL,
	  created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
	  CONSTRAINT fk_groups_mentor FOREIGN KEY (mentor_id) REFERENCES mentors (id),
	  CONSTRAINT chk_groups_max_members CHECK (max_members > 0)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;
	`
	_, err := tx.ExecContext(ctx, query)
	return err
}

func downCreateMentorGroupsTable(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS mentor_groups;`)
	return err
}
