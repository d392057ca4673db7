package models

import "time"

// StateEntry is one persisted key-value pair of widget state, namespaced by
// the property (chatbot) identifier. The durable analog of the browser's
// localStorage entries the widget survives page reloads with.
type StateEntry struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	PropertyID string `gorm:"size:64;not null;uniqueIndex:idx_property_key"`
	Key        string `gorm:"size:64;not null;uniqueIndex:idx_property_key"`
	Value      string `gorm:"type:text;not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
