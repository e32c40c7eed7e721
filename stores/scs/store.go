// Package scs keeps a vaultx session inside an scs web session, for
// controllers that run behind a web frontend. The bearer token then never
// leaves the server; the browser only holds the scs session cookie.
package scs

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/alexedwards/scs/v2"
)

// DefaultPrefix namespaces vaultx keys within the web session
const DefaultPrefix = "vaultx."

// ErrNoWebSession is returned by a store that is not bound to a context
// carrying a loaded scs session
var ErrNoWebSession = errors.New("scs: no web session loaded")

// Store implements vaultx.KeyValueStore on an scs.SessionManager.
// A store from New is unbound; use WithContext or FromRequest with a context
// that carries a loaded session (see scs.SessionManager.LoadAndSave).
type Store struct {
	sm     *scs.SessionManager
	prefix string
	ctx    context.Context
}

// New creates an unbound store on sm. An empty prefix uses DefaultPrefix.
func New(sm *scs.SessionManager, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{sm: sm, prefix: prefix}
}

// WithContext returns a copy of the store bound to the session in ctx
func (s *Store) WithContext(ctx context.Context) *Store {
	return &Store{sm: s.sm, prefix: s.prefix, ctx: ctx}
}

// FromRequest returns a copy of the store bound to the request's session
func (s *Store) FromRequest(r *http.Request) *Store {
	return s.WithContext(r.Context())
}

// loaded reports ErrNoWebSession instead of letting scs panic on a context
// without session data
func (s *Store) loaded() (err error) {
	if s.ctx == nil {
		return ErrNoWebSession
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrNoWebSession, r)
		}
	}()
	s.sm.Status(s.ctx)
	return nil
}

func (s *Store) Get(key string) (string, bool, error) {
	if err := s.loaded(); err != nil {
		return "", false, err
	}
	k := s.prefix + key
	if !s.sm.Exists(s.ctx, k) {
		return "", false, nil
	}
	return s.sm.GetString(s.ctx, k), true, nil
}

func (s *Store) Set(key, value string) error {
	if err := s.loaded(); err != nil {
		return err
	}
	s.sm.Put(s.ctx, s.prefix+key, value)
	return nil
}

func (s *Store) Delete(key string) error {
	if err := s.loaded(); err != nil {
		return err
	}
	s.sm.Remove(s.ctx, s.prefix+key)
	return nil
}

// RenewToken rotates the session cookie. Call it after login verification to
// prevent session fixation.
func (s *Store) RenewToken() error {
	if err := s.loaded(); err != nil {
		return err
	}
	return s.sm.RenewToken(s.ctx)
}
