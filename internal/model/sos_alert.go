package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AlertStatus represents the lifecycle state of an SOS alert.
type AlertStatus string

const (
	AlertStatusActive    AlertStatus = "active"
	AlertStatusCancelled AlertStatus = "cancelled"
	AlertStatusResolved  AlertStatus = "resolved"
)

// Valid reports whether s is a known status.
func (s AlertStatus) Valid() bool {
	switch s {
	case AlertStatusActive, AlertStatusCancelled, AlertStatusResolved:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are allowed from s.
func (s AlertStatus) Terminal() bool {
	return s == AlertStatusCancelled || s == AlertStatusResolved
}

// Location is a GPS coordinate pair.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether the coordinates are within WGS84 bounds.
func (l Location) Valid() bool {
	return l.Latitude >= -90 && l.Latitude <= 90 && l.Longitude >= -180 && l.Longitude <= 180
}

// SOSAlert represents an emergency signal raised by a user.
// Coordinates are stored as two nullable columns and exposed as a single "location" object.
type SOSAlert struct {
	ID          string       `json:"id" gorm:"type:varchar(36);primaryKey"`
	UserID      string       `json:"userId" gorm:"type:varchar(36);not null;index"`
	Status      AlertStatus  `json:"status" gorm:"type:varchar(20);not null;index"`
	Latitude    *float64     `json:"-"`
	Longitude   *float64     `json:"-"`
	Address     *string      `json:"address" gorm:"size:512"`
	StartedAt   time.Time    `json:"startedAt" gorm:"not null;index"`
	CancelledAt *time.Time   `json:"cancelledAt"`
	ResolvedAt  *time.Time   `json:"resolvedAt"`
	ResolvedBy  *string      `json:"resolvedBy,omitempty" gorm:"type:varchar(36)"`
	User        *UserSummary `json:"user,omitempty" gorm:"-"`
}

// TableName pins the table name used by raw index statements.
func (SOSAlert) TableName() string {
	return "sos_alerts"
}

// BeforeCreate sets UUID before creating the record.
func (a *SOSAlert) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// Location returns the alert coordinates, or nil when none were recorded.
func (a *SOSAlert) Location() *Location {
	if a.Latitude == nil || a.Longitude == nil {
		return nil
	}
	return &Location{Latitude: *a.Latitude, Longitude: *a.Longitude}
}

// SetLocation records loc, clearing the coordinates when loc is nil.
func (a *SOSAlert) SetLocation(loc *Location) {
	if loc == nil {
		a.Latitude, a.Longitude = nil, nil
		return
	}
	lat, lng := loc.Latitude, loc.Longitude
	a.Latitude, a.Longitude = &lat, &lng
}

type alertAlias SOSAlert

type alertJSON struct {
	alertAlias
	Location *Location `json:"location"`
}

// MarshalJSON renders the coordinate columns as a nested location object.
func (a SOSAlert) MarshalJSON() ([]byte, error) {
	return json.Marshal(alertJSON{
		alertAlias: alertAlias(a),
		Location:   a.Location(),
	})
}

// UnmarshalJSON accepts the nested location object produced by MarshalJSON.
func (a *SOSAlert) UnmarshalJSON(data []byte) error {
	var aux alertJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*a = SOSAlert(aux.alertAlias)
	a.SetLocation(aux.Location)
	return nil
}
