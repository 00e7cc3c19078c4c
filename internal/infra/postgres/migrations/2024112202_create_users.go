package migrations

import (
	"context"

	"github.com/uptrace/bun"
)

func init() {
	createUsers := mustSQL("create_users.sql")
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, createUsers)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS meta, certificates, progress, users`)
			return err
		},
	)
}
