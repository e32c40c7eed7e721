//go:build !wasm
// +build !wasm

// Package gae provides a Google Cloud Datastore KeyValueStore for vaultx
// sessions. It is designed for deployment on Google Cloud Platform and supports
// multi-tenancy through Datastore namespaces.
//
// # Datastore Kinds
//
// The package uses the following Datastore kinds:
//   - VaultXSession: one entity per session, the ancestor of its entries
//   - VaultXSessionEntry: one key/value pair of a session
//
// # Usage
//
//	client, _ := datastore.NewClient(ctx, projectID)
//	kv := gae.NewStore(client, "", deviceID) // default namespace
//	sessions := vaultx.NewSessionStore(kv.WithContext(ctx))
package gae
