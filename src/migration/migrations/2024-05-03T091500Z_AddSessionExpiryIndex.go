package migrations

import (
	"context"
	"time"

	"git.carhub.se/carhub/carhub/src/migration/types"
	"github.com/jackc/pgx/v5"
)

func init() {
	registerMigration(AddSessionExpiryIndex{})
}

type AddSessionExpiryIndex struct{}

func (m AddSessionExpiryIndex) Version() types.MigrationVersion {
	return types.MigrationVersion(time.Date(2024, 5, 3, 9, 15, 0, 0, time.UTC))
}

func (m AddSessionExpiryIndex) Name() string {
	return "AddSessionExpiryIndex"
}

func (m AddSessionExpiryIndex) Description() string {
	return "Index session expiry so the expired session sweep doesn't scan the table"
}

func (m AddSessionExpiryIndex) Up(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, `
		CREATE INDEX sessions_expires_at ON sessions (expires_at);
	`)
	return err
}

func (m AddSessionExpiryIndex) Down(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, `
		DROP INDEX sessions_expires_at;
	`)
	return err
}
