//go:build !wasm
// +build !wasm

package gorm

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AutoMigrate runs database migrations for the vaultx tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&EntryModel{})
}

// Store implements vaultx.KeyValueStore using GORM
type Store struct {
	db        *gorm.DB
	namespace string
}

// NewStore creates a store for the entries of one namespace
func NewStore(db *gorm.DB, namespace string) *Store {
	return &Store{db: db, namespace: namespace}
}

// WithContext returns a copy of the store whose queries use ctx
func (s *Store) WithContext(ctx context.Context) *Store {
	return &Store{db: s.db.WithContext(ctx), namespace: s.namespace}
}

func (s *Store) where(key string) *gorm.DB {
	return s.db.Where(map[string]any{"namespace": s.namespace, "entry_key": key})
}

func (s *Store) Get(key string) (string, bool, error) {
	var model EntryModel
	err := s.where(key).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return model.Value, true, nil
}

func (s *Store) Set(key, value string) error {
	model := &EntryModel{
		Namespace: s.namespace,
		Key:       key,
		Value:     value,
	}
	return s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(model).Error
}

func (s *Store) Delete(key string) error {
	return s.where(key).Delete(&EntryModel{}).Error
}

// Clear removes every entry in the namespace
func (s *Store) Clear() error {
	return s.db.Where("namespace = ?", s.namespace).Delete(&EntryModel{}).Error
}
