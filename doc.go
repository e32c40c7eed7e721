// Package vaultx drives the VaultX authentication handshake from the client side.
//
// Signing up or logging in to VaultX is a multi-request exchange: credentials are
// submitted, the server mails a one-time passcode (OTP), and only a successful
// OTP verification yields a bearer token. This package owns that exchange.
//
// # Architecture
//
// Controller: the handshake state machine. It validates input locally, calls the
// remote API through the AuthAPI interface and writes the resulting Session to an
// injected SessionStore.
//
// PendingVerification: the short-lived record produced by BeginSignup or
// BeginLogin that identifies which account and action an OTP belongs to. It is
// threaded explicitly from initiation to verification (see Controller.Resume).
//
// OTPEntry: the six-position digit entry widget state (per-position edits,
// backspace, atomic paste, focus tracking).
//
// SessionStore: the only durable state. KVSessionStore keeps the token and the
// cached user profile in any KeyValueStore; implementations live in the stores
// package tree (memory, file, GORM, Cloud Datastore, scs).
//
// # Basic Usage
//
//	import (
//	    "github.com/Anish-ai/vaultx"
//	    "github.com/Anish-ai/vaultx/client"
//	    "github.com/Anish-ai/vaultx/stores"
//	)
//
//	sessions := vaultx.NewSessionStore(stores.NewMemoryStore())
//	api := client.NewClient(client.DefaultBaseURL, sessions)
//	ctrl := vaultx.NewController(api, sessions)
//
//	if err := ctrl.BeginLogin(ctx, "a@b.com", "Secret1"); err != nil {
//	    // *HandshakeError: show err.Title and err.Message
//	}
//	ctrl.Paste("123456")
//	if err := ctrl.SubmitOTP(ctx); err == nil && ctrl.Next() == vaultx.NextDashboard {
//	    // authenticated
//	}
//
// # Errors
//
// Every operation resolves to nil or a *HandshakeError whose Kind separates
// local validation failures (no request was sent) from server rejections and
// transport failures. After any failure the controller is back in an
// interactive state (Idle or AwaitingOTP) and the operation can be retried.
package vaultx
