package localstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/storefront/pkg/db"
	"github.com/angelmondragon/storefront/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQLStore keeps entries in the local_storage table.
type SQLStore struct {
	db *db.Client
}

// NewSQLStore migrates the local_storage table and returns a store over it.
func NewSQLStore(ctx context.Context, client *db.Client) (*SQLStore, error) {
	if client == nil {
		return nil, errors.New("localstore: db client is required")
	}
	if err := client.AutoMigrate(ctx, &models.LocalStorageEntry{}); err != nil {
		return nil, fmt.Errorf("migrate local_storage: %w", err)
	}
	return &SQLStore{db: client}, nil
}

func (s *SQLStore) GetItem(ctx context.Context, key string) (string, error) {
	var entry models.LocalStorageEntry
	err := s.db.DB().WithContext(ctx).Where("storage_key = ?", key).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("load %s: %w", key, err)
	}
	return entry.Value, nil
}

func (s *SQLStore) SetItem(ctx context.Context, key, value string) error {
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		entry := models.LocalStorageEntry{Key: key, Value: value}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "storage_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&entry).Error
	})
}

func (s *SQLStore) RemoveItem(ctx context.Context, key string) error {
	return s.db.DB().WithContext(ctx).Where("storage_key = ?", key).Delete(&models.LocalStorageEntry{}).Error
}
