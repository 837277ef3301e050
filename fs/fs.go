// Package appfs embeds the files the binaries need at runtime.
package appfs

import "embed"

const (
	MigrationsDir     = "migrations"
	EmailTemplatesDir = "assets/templates/email"
	CommonPasswords   = "assets/common-passwords.txt.gz"
)

// Directory patterns skip files starting with "_", the email layouts are listed on their own.
//go:embed migrations/*.sql assets assets/templates/email/_*
var FS embed.FS
