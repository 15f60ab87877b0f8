// Package universys holds assets embedded into the binary.
package universys

import "embed"

// Migrations contains the SQL schema migrations.
//
//go:embed migrations/*.sql
var Migrations embed.FS
