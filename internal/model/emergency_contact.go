package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EmergencyContact is a person to reach when an SOS is raised.
// Contacts with a nil OwnerID are global and managed by administrators.
type EmergencyContact struct {
	ID           string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	OwnerID      *string   `json:"ownerId" gorm:"type:varchar(36);index"`
	Name         string    `json:"name" gorm:"size:255;not null"`
	Email        *string   `json:"email" gorm:"size:255"`
	Phone        *string   `json:"phone" gorm:"size:32"`
	Relationship string    `json:"relationship,omitempty" gorm:"size:100"`
	Role         string    `json:"role,omitempty" gorm:"size:100"`
	IsPrimary    bool      `json:"isPrimary" gorm:"not null"`
	IsActive     bool      `json:"isActive" gorm:"not null"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// BeforeCreate sets UUID before creating the record.
func (c *EmergencyContact) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// OwnedBy reports whether the contact belongs to ownerID. An empty ownerID matches global contacts.
func (c *EmergencyContact) OwnedBy(ownerID string) bool {
	if c.OwnerID == nil {
		return ownerID == ""
	}
	return *c.OwnerID == ownerID
}
