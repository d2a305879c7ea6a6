// Package db embeds the Postgres schema.
package db

import _ "embed"

// Schema creates the kv_entries and orders tables. It is idempotent.
//
//go:embed migrations/001_schema.sql
var Schema string
