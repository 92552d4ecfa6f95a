// Package migrations embeds SQL schema files into the binary so the hub can
// migrate its database without the files being present on the filesystem.
package migrations

import (
	"embed"

	"github.com/aerolab/tunnelcore/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
