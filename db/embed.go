// Package db embeds the PostgreSQL schema for promotions, golfers and
// per-golfer redemption counters.
package db

import _ "embed"

// Schema is idempotent DDL; it is executed on every startup.
//
//go:embed migrations/001_schema.sql
var Schema string
