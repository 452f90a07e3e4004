package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notification types emitted by the SOS lifecycle.
const (
	NotificationSOSStarted   = "sos_started"
	NotificationSOSCancelled = "sos_cancelled"
	NotificationSOSResolved  = "sos_resolved"
)

// Notification is a message delivered to a single user.
// Read only ever moves from false to true.
type Notification struct {
	ID        string     `json:"id" gorm:"type:varchar(36);primaryKey"`
	UserID    string     `json:"userId" gorm:"type:varchar(36);not null;index"`
	Type      string     `json:"type" gorm:"size:50;not null"`
	Message   string     `json:"message" gorm:"type:text;not null"`
	Read      bool       `json:"read" gorm:"column:is_read;not null;index"`
	CreatedAt time.Time  `json:"createdAt" gorm:"index"`
	ReadAt    *time.Time `json:"readAt"`
}

// BeforeCreate sets UUID before creating the record.
func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}
