package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleEmployee = "employee"
	RoleAdmin    = "admin"
)

// User represents an employee or administrator account.
// At least one of Email and EmployeeID is set; both are unique when present.
type User struct {
	ID                      string     `json:"id" gorm:"type:varchar(36);primaryKey"`
	Email                   *string    `json:"email" gorm:"size:255;uniqueIndex"`
	EmployeeID              *string    `json:"employeeId" gorm:"size:64;uniqueIndex"`
	Name                    string     `json:"name" gorm:"size:255"`
	PasswordHash            string     `json:"-" gorm:"size:255;not null"` // Never expose in JSON
	EmailVerified           bool       `json:"emailVerified" gorm:"not null"`
	VerificationToken       *string    `json:"-" gorm:"size:64;index"`
	VerificationTokenExpiry *time.Time `json:"-"`
	VerifiedAt              *time.Time `json:"verifiedAt,omitempty"`
	Role                    string     `json:"role" gorm:"size:20;not null;index"`
	CreatedAt               time.Time  `json:"createdAt"`
	UpdatedAt               time.Time  `json:"updatedAt"`
}

// BeforeCreate sets the ID and default role before inserting the record.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = RoleEmployee
	}
	return nil
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// RequiresVerification reports whether the account has an email that has not been verified yet.
func (u *User) RequiresVerification() bool {
	return u.Email != nil && *u.Email != "" && !u.EmailVerified
}

// Summary returns the public identity fields embedded in admin alert listings.
func (u *User) Summary() *UserSummary {
	return &UserSummary{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		EmployeeID: u.EmployeeID,
	}
}

// UserSummary is the owner information attached to SOS alerts in admin views.
type UserSummary struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Email      *string `json:"email"`
	EmployeeID *string `json:"employeeId"`
}

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	return role == RoleEmployee || role == RoleAdmin
}
