package models

import "time"

// LocalStorageEntry is one key/value document in the shopper's local store.
type LocalStorageEntry struct {
	Key       string    `gorm:"column:storage_key;primaryKey;size:191"`
	Value     string    `gorm:"column:value;type:text;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName pins the table name used by every backend.
func (LocalStorageEntry) TableName() string {
	return "local_storage"
}
