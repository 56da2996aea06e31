package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base carries the identity and timestamp columns shared by stored records.
// IDs are UUID strings so the JSON index and the SQL backends agree on the
// key format. A record is created exactly once, at upload time, so the
// creation timestamp serializes as uploaded_at.
type Base struct {
	ID        string         `json:"id"          gorm:"type:char(36);primaryKey"`
	CreatedAt time.Time      `json:"uploaded_at"`
	UpdatedAt time.Time      `json:"modified"`
	DeletedAt gorm.DeletedAt `json:"-"           gorm:"index"`
}

func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	return nil
}
