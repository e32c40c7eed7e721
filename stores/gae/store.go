//go:build !wasm
// +build !wasm

package gae

import (
	"context"
	"time"

	"cloud.google.com/go/datastore"
	"google.golang.org/api/iterator"
)

// Store implements vaultx.KeyValueStore using Google Cloud Datastore.
// Entries are children of a per-session ancestor key, so reads are strongly
// consistent.
type Store struct {
	client    *datastore.Client
	namespace string
	sessionID string
	ctx       context.Context
}

// NewStore creates a new Datastore-backed store for one session
func NewStore(client *datastore.Client, namespace, sessionID string) *Store {
	return &Store{
		client:    client,
		namespace: namespace,
		sessionID: sessionID,
		ctx:       context.Background(),
	}
}

// WithContext returns a copy of the store with the given context
func (s *Store) WithContext(ctx context.Context) *Store {
	return &Store{
		client:    s.client,
		namespace: s.namespace,
		sessionID: s.sessionID,
		ctx:       ctx,
	}
}

func (s *Store) sessionKey() *datastore.Key {
	key := datastore.NameKey(KindSession, s.sessionID, nil)
	key.Namespace = s.namespace
	return key
}

func (s *Store) entryKey(name string) *datastore.Key {
	key := datastore.NameKey(KindSessionEntry, name, s.sessionKey())
	key.Namespace = s.namespace
	return key
}

func (s *Store) Get(key string) (string, bool, error) {
	var entity EntryEntity
	if err := s.client.Get(s.ctx, s.entryKey(key), &entity); err != nil {
		if err == datastore.ErrNoSuchEntity {
			return "", false, nil
		}
		return "", false, err
	}
	return entity.Value, true, nil
}

func (s *Store) Set(key, value string) error {
	k := s.entryKey(key)
	entity := &EntryEntity{
		Key:       k,
		Value:     value,
		UpdatedAt: time.Now(),
	}
	_, err := s.client.Put(s.ctx, k, entity)
	return err
}

func (s *Store) Delete(key string) error {
	err := s.client.Delete(s.ctx, s.entryKey(key))
	if err != nil && err != datastore.ErrNoSuchEntity {
		return err
	}
	return nil
}

// Keys returns the names of all entries in the session
func (s *Store) Keys() ([]string, error) {
	query := datastore.NewQuery(KindSessionEntry).
		Namespace(s.namespace).
		Ancestor(s.sessionKey()).
		KeysOnly()

	var names []string
	it := s.client.Run(s.ctx, query)
	for {
		key, err := it.Next(nil)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		names = append(names, key.Name)
	}
	return names, nil
}

// Clear removes every entry in the session
func (s *Store) Clear() error {
	names, err := s.Keys()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return nil
	}
	keys := make([]*datastore.Key, len(names))
	for i, name := range names {
		keys[i] = s.entryKey(name)
	}
	return s.client.DeleteMulti(s.ctx, keys)
}
