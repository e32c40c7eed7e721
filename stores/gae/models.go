//go:build !wasm
// +build !wasm

package gae

import (
	"time"

	"cloud.google.com/go/datastore"
)

// Kind constants for Datastore entities
const (
	KindSession      = "VaultXSession"
	KindSessionEntry = "VaultXSessionEntry"
)

// EntryEntity is the Datastore entity for a session entry
type EntryEntity struct {
	Key       *datastore.Key `datastore:"__key__"`
	Value     string         `datastore:"value,noindex"`
	UpdatedAt time.Time      `datastore:"updated_at"`
}
