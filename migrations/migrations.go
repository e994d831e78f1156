// Package migrations embeds the SQL schema for every supported database.
package migrations

import "embed"

// FS holds the sqlite and postgres migration directories
//
//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS

// Dir returns the directory inside FS for a driver name
func Dir(driver string) string {
	if driver == "postgres" {
		return "postgres"
	}
	return "sqlite"
}
