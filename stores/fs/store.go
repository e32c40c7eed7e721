// Package fs provides a file system-based session store for the vaultx CLI.
// Sessions for different API servers live side by side in one JSON file,
// keyed by the server's origin.
package fs

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// FSStore stores per-server key/value entries as a JSON file on the filesystem
type FSStore struct {
	mu      sync.RWMutex
	path    string
	origins map[string]map[string]string
}

// sessionFile is the JSON structure stored on disk
type sessionFile struct {
	Servers map[string]map[string]string `json:"servers"`
}

// NewFSStore creates a new FS-based store.
// If path is empty, defaults to ~/.config/<appName>/session.json
func NewFSStore(path string, appName string) (*FSStore, error) {
	if path == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("could not determine config directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
		if appName == "" {
			appName = "vaultx"
		}
		path = filepath.Join(configDir, appName, "session.json")
	}

	store := &FSStore{
		path:    path,
		origins: make(map[string]map[string]string),
	}

	if err := store.load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	return store, nil
}

// load reads entries from disk
func (s *FSStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}

	var file sessionFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse session file: %w", err)
	}

	s.origins = file.Servers
	if s.origins == nil {
		s.origins = make(map[string]map[string]string)
	}
	return nil
}

// save persists entries to disk. Caller must hold s.mu.
func (s *FSStore) save() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(sessionFile{Servers: s.origins}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize session: %w", err)
	}
	return writeAtomicFile(s.path, data, 0600)
}

// normalizeURL reduces a server URL to scheme://host for use as a key
func normalizeURL(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}

	if u.Scheme == "" {
		u.Scheme = "https"
	}

	return fmt.Sprintf("%s://%s", u.Scheme, u.Host), nil
}

// Origin returns the entries belonging to serverURL as a KeyValueStore.
// URLs on the same scheme and host share entries.
func (s *FSStore) Origin(serverURL string) (*OriginStore, error) {
	key, err := normalizeURL(serverURL)
	if err != nil {
		return nil, err
	}
	return &OriginStore{store: s, origin: key}, nil
}

// Origins returns all origins with stored entries, sorted
func (s *FSStore) Origins() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	origins := make([]string, 0, len(s.origins))
	for k := range s.origins {
		origins = append(origins, k)
	}
	sort.Strings(origins)
	return origins
}

// Path returns the path to the session file
func (s *FSStore) Path() string {
	return s.path
}

// OriginStore is the KeyValueStore for a single server. Every write is
// flushed to disk before returning.
type OriginStore struct {
	store  *FSStore
	origin string
}

func (o *OriginStore) Get(key string) (string, bool, error) {
	o.store.mu.RLock()
	defer o.store.mu.RUnlock()

	v, ok := o.store.origins[o.origin][key]
	return v, ok, nil
}

func (o *OriginStore) Set(key, value string) error {
	o.store.mu.Lock()
	defer o.store.mu.Unlock()

	entries, ok := o.store.origins[o.origin]
	if !ok {
		entries = make(map[string]string)
		o.store.origins[o.origin] = entries
	}
	entries[key] = value
	return o.store.save()
}

func (o *OriginStore) Delete(key string) error {
	o.store.mu.Lock()
	defer o.store.mu.Unlock()

	entries, ok := o.store.origins[o.origin]
	if !ok {
		return nil
	}
	if _, ok := entries[key]; !ok {
		return nil
	}
	delete(entries, key)
	if len(entries) == 0 {
		delete(o.store.origins, o.origin)
	}
	return o.store.save()
}

// Origin returns the normalized server origin
func (o *OriginStore) Origin() string {
	return o.origin
}
