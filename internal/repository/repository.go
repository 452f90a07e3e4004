package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"safetysos/internal/model"
)

var (
	// ErrNotFound is returned when a record does not exist, or does not match the expected state.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique field is already taken.
	ErrDuplicate = errors.New("duplicate record")
	// ErrActiveAlertExists is returned by CreateIfNoActive when the user already has an active alert.
	ErrActiveAlertExists = errors.New("active alert already exists")
)

// AlertFilter narrows SOS alert queries. Zero values mean "any".
type AlertFilter struct {
	UserID string
	Status model.AlertStatus
	Since  time.Time
	Limit  int
	Offset int
}

// ContactFilter narrows emergency contact queries.
// Global selects owner-less contacts; otherwise OwnerID selects a user's personal contacts.
// Both zero selects every contact.
type ContactFilter struct {
	OwnerID string
	Global  bool
}

// Repositories bundles every store the services depend on.
type Repositories struct {
	Users         UserRepository
	Alerts        SOSRepository
	Notifications NotificationRepository
	Contacts      ContactRepository
}

// NewGormRepositories builds GORM-backed repositories sharing one connection.
func NewGormRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Users:         NewUserRepository(db),
		Alerts:        NewSOSRepository(db),
		Notifications: NewNotificationRepository(db),
		Contacts:      NewContactRepository(db),
	}
}

// translate maps GORM errors onto the store sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case isUniqueViolation(err):
		return ErrDuplicate
	default:
		return err
	}
}
