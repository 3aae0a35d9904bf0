// Package db embeds the database migrations and the default seed catalog.
package db

import "embed"

// Migrations holds the goose migration files under migrations/.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations that goose reads.
const MigrationsDir = "migrations"

// Catalog is the default seed catalog used by cmd/seed-db.
//
//go:embed seed/catalog.json
var Catalog []byte
