// Package assets embeds the files shipped with the binaries: SQL migrations, email templates
// and the common passwords list used by the password policy.
package assets

import "embed"

//go:embed all:templates migrations common-passwords.txt.gz
var FS embed.FS

const (
	MigrationsDir       = "migrations"
	CommonPasswordsFile = "common-passwords.txt.gz"
)
