// Package db carries the embedded schema applied at startup.
package db

import _ "embed"

// Schema holds the full DDL. RunMigrations executes it verbatim on every
// start, so each statement must be idempotent (IF NOT EXISTS).
//
//go:embed migrations/001_schema.sql
var Schema string
