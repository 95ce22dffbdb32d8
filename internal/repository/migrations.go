package repository

import "embed"

// MigrationsFS holds the SQL migrations for the postgres KV backend.
//
//go:embed migrations/*.sql
var MigrationsFS embed.FS

// MigrationsPath is the directory inside MigrationsFS.
const MigrationsPath = "migrations"
