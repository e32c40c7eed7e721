//go:build !wasm
// +build !wasm

// Package gorm provides a GORM-based KeyValueStore for vaultx sessions.
// It supports any database that GORM supports (PostgreSQL, MySQL, SQLite, etc.)
// and suits server-side deployments where the handshake runs on behalf of
// many users.
//
// # Database Schema
//
// The package auto-migrates one table:
//   - vaultx_session_entries: (namespace, entry_key) → value
//
// Each namespace holds one session; use the user's or device's id.
//
// # Usage
//
//	db, _ := gorm.Open(postgres.Open(dsn), &gorm.Config{})
//	gormstore.AutoMigrate(db)
//	sessions := vaultx.NewSessionStore(gormstore.NewStore(db, deviceID))
package gorm
