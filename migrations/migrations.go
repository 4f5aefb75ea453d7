// Package migrations embeds the SQL schema migration files so the binary
// carries its own schema and needs no files on disk at deploy time.
package migrations

import "embed"

//go:embed sqlite/*.sql
var Sqlite embed.FS

//go:embed postgres/*.sql
var Postgres embed.FS
