// Package migrations contains the SQL migrations for the app.
package migrations

import (
	"embed"
)

//go:embed *.sql
var FS embed.FS
