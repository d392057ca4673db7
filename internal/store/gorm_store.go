package store

import (
	"errors"
	"fmt"

	"github.com/simoncinid/hostgpt-sub000/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore persists state entries in a GORM-backed database (SQLite file by
// default, MySQL for shared deployments).
type GormStore struct {
	db         *gorm.DB
	propertyID string
}

// NewGormStore creates a GormStore scoped to the given property id.
func NewGormStore(db *gorm.DB, propertyID string) (*GormStore, error) {
	if db == nil {
		return nil, fmt.Errorf("store: db is required")
	}
	if propertyID == "" {
		return nil, fmt.Errorf("store: property id is required")
	}
	return &GormStore{db: db, propertyID: propertyID}, nil
}

// Get returns the value for key, or "" if unset.
func (s *GormStore) Get(key string) (string, error) {
	var entry models.StateEntry
	err := s.db.Where("property_id = ? AND key = ?", s.propertyID, key).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("store: get %s: %w", key, err)
	}
	return entry.Value, nil
}

// Set upserts the value for key.
func (s *GormStore) Set(key, value string) error {
	entry := models.StateEntry{
		PropertyID: s.propertyID,
		Key:        key,
		Value:      value,
	}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "property_id"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("store: set %s: %w", key, err)
	}
	return nil
}

// Remove deletes key. Absent keys are a no-op.
func (s *GormStore) Remove(key string) error {
	err := s.db.Where("property_id = ? AND key = ?", s.propertyID, key).
		Delete(&models.StateEntry{}).Error
	if err != nil {
		return fmt.Errorf("store: remove %s: %w", key, err)
	}
	return nil
}

// Clear removes all the given keys.
func (s *GormStore) Clear(keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	err := s.db.Where("property_id = ? AND key IN ?", s.propertyID, keys).
		Delete(&models.StateEntry{}).Error
	if err != nil {
		return fmt.Errorf("store: clear: %w", err)
	}
	return nil
}
