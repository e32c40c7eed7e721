//go:build !wasm
// +build !wasm

package gorm

import (
	"time"
)

// EntryModel is the GORM model for session entries
type EntryModel struct {
	Namespace string    `gorm:"primaryKey;size:128"`
	Key       string    `gorm:"primaryKey;size:64;column:entry_key"`
	Value     string    `gorm:"type:text"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (EntryModel) TableName() string {
	return "vaultx_session_entries"
}
