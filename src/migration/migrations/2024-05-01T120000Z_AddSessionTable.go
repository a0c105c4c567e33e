package migrations

import (
	"context"
	"time"

	"git.carhub.se/carhub/carhub/src/migration/types"
	"github.com/jackc/pgx/v5"
)

func init() {
	registerMigration(AddSessionTable{})
}

type AddSessionTable struct{}

func (m AddSessionTable) Version() types.MigrationVersion {
	return types.MigrationVersion(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
}

func (m AddSessionTable) Name() string {
	return "AddSessionTable"
}

func (m AddSessionTable) Description() string {
	return "Adds the session table; a null username is an anonymous session"
}

func (m AddSessionTable) Up(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, `
		CREATE TABLE sessions (
			id VARCHAR(64) PRIMARY KEY,
			username VARCHAR(150),
			is_admin BOOLEAN NOT NULL DEFAULT FALSE,
			expires_at TIMESTAMP WITH TIME ZONE NOT NULL
		);
	`)
	return err
}

func (m AddSessionTable) Down(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, `
		DROP TABLE sessions;
	`)
	return err
}
