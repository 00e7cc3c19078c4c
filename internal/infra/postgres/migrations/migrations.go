package migrations

import (
	"embed"

	"github.com/uptrace/bun/migrate"
)

//go:embed sql/*.sql
var sqlFS embed.FS

var Migrations = migrate.NewMigrations()

func mustSQL(name string) string {
	data, err := sqlFS.ReadFile("sql/" + name)
	if err != nil {
		panic(err)
	}
	return string(data)
}
