package db

import (
	"path/filepath"
	"testing"

	"github.com/simoncinid/hostgpt-sub000/internal/models"
)

func TestOpenSQLiteAndMigrate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	gormDB, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := AutoMigrate(gormDB); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	if !gormDB.Migrator().HasTable(&models.StateEntry{}) {
		t.Error("expected state_entries table after migration")
	}
}

func TestOpenSQLiteInMemory(t *testing.T) {
	gormDB, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open in-memory sqlite: %v", err)
	}
	if err := AutoMigrate(gormDB); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}

	entry := models.StateEntry{PropertyID: "prop-1", Key: "guest_id", Value: "42"}
	if err := gormDB.Create(&entry).Error; err != nil {
		t.Fatalf("create entry: %v", err)
	}

	var got models.StateEntry
	if err := gormDB.Where("property_id = ? AND key = ?", "prop-1", "guest_id").First(&got).Error; err != nil {
		t.Fatalf("read entry back: %v", err)
	}
	if got.Value != "42" {
		t.Errorf("value = %q, want %q", got.Value, "42")
	}
}
