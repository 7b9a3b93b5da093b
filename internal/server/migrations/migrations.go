// Package migrations embeds the PostgreSQL schema applied by goose at
// server start-up.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
