package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"safetysos/internal/model"
)

// File names used inside the data directory, one JSON array per entity type.
const (
	UsersFile         = "users.json"
	AlertsFile        = "sos.json"
	NotificationsFile = "notifications.json"
	ContactsFile      = "emergency_contacts.json"
)

// collection is a whole-file JSON array. Every call re-reads the backing file and every
// mutation rewrites it via a temp file and rename. An empty path keeps the array in memory.
type collection[T any] struct {
	mu   sync.Mutex
	path string
	mem  []T
}

func newCollection[T any](path string) *collection[T] {
	return &collection[T]{path: path}
}

// view runs fn over a snapshot of the collection.
func (c *collection[T]) view(fn func(items []T) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	items, err := c.load()
	if err != nil {
		return err
	}
	return fn(items)
}

// update runs a read-modify-write cycle; the result of fn is persisted unless it returns an error.
func (c *collection[T]) update(fn func(items []T) ([]T, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	items, err := c.load()
	if err != nil {
		return err
	}
	next, err := fn(items)
	if err != nil {
		return err
	}
	return c.save(next)
}

// ensure creates the backing file when it is missing.
func (c *collection[T]) ensure() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.load()
	return err
}

func (c *collection[T]) load() ([]T, error) {
	if c.path == "" {
		out := make([]T, len(c.mem))
		copy(out, c.mem)
		return out, nil
	}

	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := c.save([]T{}); err != nil {
			return nil, err
		}
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(c.path), err)
	}

	items := make([]T, 0)
	if len(data) == 0 {
		return items, nil
	}
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(c.path), err)
	}
	return items, nil
}

func (c *collection[T]) save(items []T) error {
	if items == nil {
		items = []T{}
	}
	if c.path == "" {
		c.mem = items
		return nil
	}

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(c.path), err)
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(tmp), err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("replace %s: %w", filepath.Base(c.path), err)
	}
	return nil
}

// storedUser keeps the credential fields that are hidden from API JSON.
type storedUser struct {
	model.User
	PasswordHash            string     `json:"passwordHash"`
	VerificationToken       *string    `json:"verificationToken"`
	VerificationTokenExpiry *time.Time `json:"verificationTokenExpiry"`
}

func toStoredUser(u *model.User) storedUser {
	return storedUser{
		User:                    *u,
		PasswordHash:            u.PasswordHash,
		VerificationToken:       u.VerificationToken,
		VerificationTokenExpiry: u.VerificationTokenExpiry,
	}
}

func (s storedUser) toModel() *model.User {
	u := s.User
	u.PasswordHash = s.PasswordHash
	u.VerificationToken = s.VerificationToken
	u.VerificationTokenExpiry = s.VerificationTokenExpiry
	return &u
}

// FileStore holds the JSON-file (or in-memory) collections.
type FileStore struct {
	users         *collection[storedUser]
	alerts        *collection[model.SOSAlert]
	notifications *collection[model.Notification]
	contacts      *collection[model.EmergencyContact]
}

// NewFileStore opens the JSON collections under dir, creating missing files as empty arrays.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	s := &FileStore{
		users:         newCollection[storedUser](filepath.Join(dir, UsersFile)),
		alerts:        newCollection[model.SOSAlert](filepath.Join(dir, AlertsFile)),
		notifications: newCollection[model.Notification](filepath.Join(dir, NotificationsFile)),
		contacts:      newCollection[model.EmergencyContact](filepath.Join(dir, ContactsFile)),
	}

	if err := s.users.ensure(); err != nil {
		return nil, err
	}
	if err := s.alerts.ensure(); err != nil {
		return nil, err
	}
	if err := s.notifications.ensure(); err != nil {
		return nil, err
	}
	if err := s.contacts.ensure(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewMemoryStore returns a store that keeps every collection in process memory.
func NewMemoryStore() *FileStore {
	return &FileStore{
		users:         newCollection[storedUser](""),
		alerts:        newCollection[model.SOSAlert](""),
		notifications: newCollection[model.Notification](""),
		contacts:      newCollection[model.EmergencyContact](""),
	}
}

// Repositories exposes the store through the repository interfaces.
func (s *FileStore) Repositories() *Repositories {
	return &Repositories{
		Users:         &fileUserRepository{c: s.users},
		Alerts:        &fileSOSRepository{c: s.alerts},
		Notifications: &fileNotificationRepository{c: s.notifications},
		Contacts:      &fileContactRepository{c: s.contacts},
	}
}

type fileUserRepository struct {
	c *collection[storedUser]
}

func (r *fileUserRepository) Create(_ context.Context, user *model.User) error {
	normalizeEmail(user)
	return r.c.update(func(items []storedUser) ([]storedUser, error) {
		if err := checkUserUnique(items, user); err != nil {
			return nil, err
		}
		now := time.Now().UTC()
		if user.ID == "" {
			user.ID = uuid.NewString()
		}
		if user.Role == "" {
			user.Role = model.RoleEmployee
		}
		if user.CreatedAt.IsZero() {
			user.CreatedAt = now
		}
		user.UpdatedAt = now
		return append(items, toStoredUser(user)), nil
	})
}

func (r *fileUserRepository) Update(_ context.Context, user *model.User) error {
	normalizeEmail(user)
	return r.c.update(func(items []storedUser) ([]storedUser, error) {
		for i := range items {
			if items[i].ID != user.ID {
				continue
			}
			if err := checkUserUnique(items, user); err != nil {
				return nil, err
			}
			user.CreatedAt = items[i].CreatedAt
			user.UpdatedAt = time.Now().UTC()
			items[i] = toStoredUser(user)
			return items, nil
		}
		return nil, ErrNotFound
	})
}

func (r *fileUserRepository) Delete(_ context.Context, id string) error {
	return r.c.update(func(items []storedUser) ([]storedUser, error) {
		for i := range items {
			if items[i].ID == id {
				return append(items[:i], items[i+1:]...), nil
			}
		}
		return nil, ErrNotFound
	})
}

func (r *fileUserRepository) FindByID(_ context.Context, id string) (*model.User, error) {
	return r.find(func(u *storedUser) bool { return u.ID == id })
}

func (r *fileUserRepository) FindByEmail(_ context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, ErrNotFound
	}
	return r.find(func(u *storedUser) bool {
		return u.Email != nil && strings.ToLower(*u.Email) == email
	})
}

func (r *fileUserRepository) FindByEmployeeID(_ context.Context, employeeID string) (*model.User, error) {
	if employeeID == "" {
		return nil, ErrNotFound
	}
	return r.find(func(u *storedUser) bool {
		return u.EmployeeID != nil && *u.EmployeeID == employeeID
	})
}

func (r *fileUserRepository) FindByVerificationToken(_ context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	return r.find(func(u *storedUser) bool {
		return u.VerificationToken != nil && *u.VerificationToken == token
	})
}

func (r *fileUserRepository) List(_ context.Context) ([]model.User, error) {
	users := make([]model.User, 0)
	err := r.c.view(func(items []storedUser) error {
		for i := range items {
			users = append(users, *items[i].toModel())
		}
		return nil
	})
	return users, err
}

func (r *fileUserRepository) Count(_ context.Context) (int64, error) {
	var n int64
	err := r.c.view(func(items []storedUser) error {
		n = int64(len(items))
		return nil
	})
	return n, err
}

func (r *fileUserRepository) find(match func(*storedUser) bool) (*model.User, error) {
	var found *model.User
	err := r.c.view(func(items []storedUser) error {
		for i := range items {
			if match(&items[i]) {
				found = items[i].toModel()
				return nil
			}
		}
		return ErrNotFound
	})
	return found, err
}

func checkUserUnique(items []storedUser, user *model.User) error {
	for i := range items {
		if items[i].ID == user.ID {
			continue
		}
		if user.Email != nil && items[i].Email != nil && strings.EqualFold(*items[i].Email, *user.Email) {
			return ErrDuplicate
		}
		if user.EmployeeID != nil && items[i].EmployeeID != nil && *items[i].EmployeeID == *user.EmployeeID {
			return ErrDuplicate
		}
	}
	return nil
}

type fileSOSRepository struct {
	c *collection[model.SOSAlert]
}

func (r *fileSOSRepository) CreateIfNoActive(_ context.Context, alert *model.SOSAlert) error {
	return r.c.update(func(items []model.SOSAlert) ([]model.SOSAlert, error) {
		for i := range items {
			if items[i].UserID == alert.UserID && items[i].Status == model.AlertStatusActive {
				return nil, ErrActiveAlertExists
			}
		}
		if alert.ID == "" {
			alert.ID = uuid.NewString()
		}
		if alert.StartedAt.IsZero() {
			alert.StartedAt = time.Now().UTC()
		}
		stored := *alert
		stored.User = nil
		return append(items, stored), nil
	})
}

func (r *fileSOSRepository) FindByID(_ context.Context, id string) (*model.SOSAlert, error) {
	return r.find(func(a *model.SOSAlert) bool { return a.ID == id })
}

func (r *fileSOSRepository) FindActiveByUser(_ context.Context, userID string) (*model.SOSAlert, error) {
	return r.find(func(a *model.SOSAlert) bool {
		return a.UserID == userID && a.Status == model.AlertStatusActive
	})
}

func (r *fileSOSRepository) Transition(_ context.Context, id string, from, to model.AlertStatus, at time.Time, by string) (*model.SOSAlert, error) {
	var out model.SOSAlert
	err := r.c.update(func(items []model.SOSAlert) ([]model.SOSAlert, error) {
		for i := range items {
			if items[i].ID != id {
				continue
			}
			if items[i].Status != from {
				return nil, ErrNotFound
			}
			items[i].Status = to
			switch to {
			case model.AlertStatusCancelled:
				items[i].CancelledAt = &at
			case model.AlertStatusResolved:
				items[i].ResolvedAt = &at
				if by != "" {
					resolvedBy := by
					items[i].ResolvedBy = &resolvedBy
				}
			}
			out = items[i]
			return items, nil
		}
		return nil, ErrNotFound
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *fileSOSRepository) List(_ context.Context, filter AlertFilter) ([]model.SOSAlert, error) {
	alerts := make([]model.SOSAlert, 0)
	err := r.c.view(func(items []model.SOSAlert) error {
		for i := range items {
			if matchAlert(&items[i], filter) {
				alerts = append(alerts, items[i])
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].StartedAt.After(alerts[j].StartedAt)
	})
	if filter.Offset > 0 {
		if filter.Offset >= len(alerts) {
			return []model.SOSAlert{}, nil
		}
		alerts = alerts[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(alerts) {
		alerts = alerts[:filter.Limit]
	}
	return alerts, nil
}

func (r *fileSOSRepository) Count(_ context.Context, filter AlertFilter) (int64, error) {
	var n int64
	err := r.c.view(func(items []model.SOSAlert) error {
		for i := range items {
			if matchAlert(&items[i], filter) {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *fileSOSRepository) find(match func(*model.SOSAlert) bool) (*model.SOSAlert, error) {
	var found *model.SOSAlert
	err := r.c.view(func(items []model.SOSAlert) error {
		for i := range items {
			if match(&items[i]) {
				a := items[i]
				found = &a
				return nil
			}
		}
		return ErrNotFound
	})
	return found, err
}

func matchAlert(a *model.SOSAlert, filter AlertFilter) bool {
	if filter.UserID != "" && a.UserID != filter.UserID {
		return false
	}
	if filter.Status != "" && a.Status != filter.Status {
		return false
	}
	if !filter.Since.IsZero() && a.StartedAt.Before(filter.Since) {
		return false
	}
	return true
}

type fileNotificationRepository struct {
	c *collection[model.Notification]
}

func (r *fileNotificationRepository) Create(_ context.Context, n *model.Notification) error {
	return r.c.update(func(items []model.Notification) ([]model.Notification, error) {
		if n.ID == "" {
			n.ID = uuid.NewString()
		}
		if n.CreatedAt.IsZero() {
			n.CreatedAt = time.Now().UTC()
		}
		return append(items, *n), nil
	})
}

func (r *fileNotificationRepository) ListByUser(_ context.Context, userID string) ([]model.Notification, error) {
	out := make([]model.Notification, 0)
	err := r.c.view(func(items []model.Notification) error {
		for i := range items {
			if items[i].UserID == userID {
				out = append(out, items[i])
			}
		}
		return nil
	})
	return out, err
}

func (r *fileNotificationRepository) MarkRead(_ context.Context, userID, id string, at time.Time) (*model.Notification, error) {
	var out model.Notification
	err := r.c.update(func(items []model.Notification) ([]model.Notification, error) {
		for i := range items {
			if items[i].ID == id && items[i].UserID == userID {
				items[i].Read = true
				items[i].ReadAt = &at
				out = items[i]
				return items, nil
			}
		}
		return nil, ErrNotFound
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *fileNotificationRepository) MarkAllRead(_ context.Context, userID string, at time.Time) (int64, error) {
	var n int64
	err := r.c.update(func(items []model.Notification) ([]model.Notification, error) {
		for i := range items {
			if items[i].UserID == userID && !items[i].Read {
				items[i].Read = true
				items[i].ReadAt = &at
				n++
			}
		}
		return items, nil
	})
	return n, err
}

func (r *fileNotificationRepository) CountUnread(_ context.Context, userID string) (int64, error) {
	var n int64
	err := r.c.view(func(items []model.Notification) error {
		for i := range items {
			if items[i].UserID == userID && !items[i].Read {
				n++
			}
		}
		return nil
	})
	return n, err
}

type fileContactRepository struct {
	c *collection[model.EmergencyContact]
}

func (r *fileContactRepository) Create(_ context.Context, contact *model.EmergencyContact) error {
	return r.c.update(func(items []model.EmergencyContact) ([]model.EmergencyContact, error) {
		now := time.Now().UTC()
		if contact.ID == "" {
			contact.ID = uuid.NewString()
		}
		if contact.CreatedAt.IsZero() {
			contact.CreatedAt = now
		}
		contact.UpdatedAt = now
		return append(items, *contact), nil
	})
}

func (r *fileContactRepository) Update(_ context.Context, contact *model.EmergencyContact) error {
	return r.c.update(func(items []model.EmergencyContact) ([]model.EmergencyContact, error) {
		for i := range items {
			if items[i].ID == contact.ID {
				contact.CreatedAt = items[i].CreatedAt
				contact.UpdatedAt = time.Now().UTC()
				items[i] = *contact
				return items, nil
			}
		}
		return nil, ErrNotFound
	})
}

func (r *fileContactRepository) Delete(_ context.Context, id string) error {
	return r.c.update(func(items []model.EmergencyContact) ([]model.EmergencyContact, error) {
		for i := range items {
			if items[i].ID == id {
				return append(items[:i], items[i+1:]...), nil
			}
		}
		return nil, ErrNotFound
	})
}

func (r *fileContactRepository) FindByID(_ context.Context, id string) (*model.EmergencyContact, error) {
	var found *model.EmergencyContact
	err := r.c.view(func(items []model.EmergencyContact) error {
		for i := range items {
			if items[i].ID == id {
				c := items[i]
				found = &c
				return nil
			}
		}
		return ErrNotFound
	})
	return found, err
}

func (r *fileContactRepository) List(_ context.Context, filter ContactFilter) ([]model.EmergencyContact, error) {
	out := make([]model.EmergencyContact, 0)
	err := r.c.view(func(items []model.EmergencyContact) error {
		for i := range items {
			if matchContact(&items[i], filter) {
				out = append(out, items[i])
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].IsPrimary && !out[j].IsPrimary
	})
	return out, nil
}

func (r *fileContactRepository) Count(_ context.Context, filter ContactFilter) (int64, error) {
	var n int64
	err := r.c.view(func(items []model.EmergencyContact) error {
		for i := range items {
			if matchContact(&items[i], filter) {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *fileContactRepository) ClearPrimary(_ context.Context, filter ContactFilter, keepID string) error {
	return r.c.update(func(items []model.EmergencyContact) ([]model.EmergencyContact, error) {
		for i := range items {
			if items[i].ID != keepID && items[i].IsPrimary && matchContact(&items[i], filter) {
				items[i].IsPrimary = false
			}
		}
		return items, nil
	})
}

func matchContact(c *model.EmergencyContact, filter ContactFilter) bool {
	switch {
	case filter.Global:
		return c.OwnerID == nil
	case filter.OwnerID != "":
		return c.OwnerID != nil && *c.OwnerID == filter.OwnerID
	default:
		return true
	}
}
