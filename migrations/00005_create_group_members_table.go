package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateGroupMembersTable, downCreateGroupMembersTable)
}

func upCreateGroupMembersTable(ctx context.Context, tx *sql.Tx) error {
	query := `
	CREATE TABLE group_members (
	  group_id CHAR(36) NOT NULL,
	  user_id VARCHAR(64) NOT NULL,
	  joined_at DATETIME(6) NOT NULL,
	  PRIMARY KEY (group_id, user_id),
	  CONSTRAINT fk_members_group FOREIGN KEY (group_id) REFERENCES mentor_groups (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;
	`
	_, err := tx.ExecContext(ctx, query)
	return err
}

func downCreateGroupMembersTable(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS group_members;`)
	return err
}
