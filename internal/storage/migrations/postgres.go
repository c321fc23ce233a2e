package migrations

import (
	"context"
	"fmt"

	"washtrade-lab/internal/storage/postgres"
)

// RunPostgresMigrations applies all embedded SQL files in lexical order.
// Migrations are idempotent, so this runs on every start.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) error {
	migrations, err := load(PostgresFS, "postgres")
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if _, err := pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("apply migration %s: %w", m.name, err)
		}
	}
	return nil
}
