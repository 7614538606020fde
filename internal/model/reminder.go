package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Reminder represents a pending reminder for a WhatsApp user.
type Reminder struct {
	ID        string    `gorm:"primaryKey;size:36"`
	Recipient string    `gorm:"index;not null"`
	Task      string    `gorm:"type:text;not null"`
	Summary   string    `gorm:"type:text"`
	DueAt     time.Time `gorm:"index;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// BeforeCreate assigns a uuid when the caller did not provide an id.
func (r *Reminder) BeforeCreate(_ *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// Body returns the text delivered to the recipient.
func (r Reminder) Body() string {
	if r.Summary != "" {
		return "Reminder: " + r.Summary
	}
	return "Reminder: " + r.Task
}
