// Package migrations menyimpan file SQL skema MariaDB.
package migrations

import "embed"

//go:embed mariadb/*.sql
var MariaDB embed.FS
