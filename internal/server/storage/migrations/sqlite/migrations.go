// Package sqlite embeds the sqlite schema migrations.
package sqlite

import "embed"

//go:embed *.sql
var Migrations embed.FS
