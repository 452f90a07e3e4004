package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"safetysos/internal/model"
)

// SOSRepository defines SOS alert persistence operations.
type SOSRepository interface {
	// CreateIfNoActive inserts alert unless its user already has an active alert,
	// in which case ErrActiveAlertExists is returned and nothing is written.
	CreateIfNoActive(ctx context.Context, alert *model.SOSAlert) error
	FindByID(ctx context.Context, id string) (*model.SOSAlert, error)
	FindActiveByUser(ctx context.Context, userID string) (*model.SOSAlert, error)
	// Transition moves the alert from one status to another and stamps the matching timestamp.
	// ErrNotFound is returned when the alert does not exist or is not in status from.
	Transition(ctx context.Context, id string, from, to model.AlertStatus, at time.Time, by string) (*model.SOSAlert, error)
	List(ctx context.Context, filter AlertFilter) ([]model.SOSAlert, error)
	Count(ctx context.Context, filter AlertFilter) (int64, error)
}

type sosRepository struct {
	db *gorm.DB
}

// NewSOSRepository creates a new SOS alert repository.
func NewSOSRepository(db *gorm.DB) SOSRepository {
	return &sosRepository{db: db}
}

// CreateIfNoActive locks the owning user row where the dialect supports it, checks for an
// active alert and inserts. The partial unique index on sqlite and postgres backs this up.
func (r *sosRepository) CreateIfNoActive(ctx context.Context, alert *model.SOSAlert) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if supportsRowLocks(tx) {
			var owner model.User
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Select("id").
				Where("id = ?", alert.UserID).
				Take(&owner).Error; err != nil {
				return translate(err)
			}
		}

		var active int64
		if err := tx.Model(&model.SOSAlert{}).
			Where("user_id = ? AND status = ?", alert.UserID, model.AlertStatusActive).
			Count(&active).Error; err != nil {
			return err
		}
		if active > 0 {
			return ErrActiveAlertExists
		}

		return tx.Create(alert).Error
	})
	if err != nil && !errors.Is(err, ErrActiveAlertExists) && isUniqueViolation(err) {
		return ErrActiveAlertExists
	}
	return err
}

func (r *sosRepository) FindByID(ctx context.Context, id string) (*model.SOSAlert, error) {
	var alert model.SOSAlert
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&alert).Error; err != nil {
		return nil, translate(err)
	}
	return &alert, nil
}

func (r *sosRepository) FindActiveByUser(ctx context.Context, userID string) (*model.SOSAlert, error) {
	var alert model.SOSAlert
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, model.AlertStatusActive).
		Take(&alert).Error; err != nil {
		return nil, translate(err)
	}
	return &alert, nil
}

func (r *sosRepository) Transition(ctx context.Context, id string, from, to model.AlertStatus, at time.Time, by string) (*model.SOSAlert, error) {
	updates := map[string]interface{}{"status": to}
	switch to {
	case model.AlertStatusCancelled:
		updates["cancelled_at"] = at
	case model.AlertStatusResolved:
		updates["resolved_at"] = at
		if by != "" {
			updates["resolved_by"] = by
		}
	}

	res := r.db.WithContext(ctx).
		Model(&model.SOSAlert{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.FindByID(ctx, id)
}

func (r *sosRepository) List(ctx context.Context, filter AlertFilter) ([]model.SOSAlert, error) {
	q := applyAlertFilter(r.db.WithContext(ctx).Model(&model.SOSAlert{}), filter).
		Order("started_at DESC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	alerts := make([]model.SOSAlert, 0)
	if err := q.Find(&alerts).Error; err != nil {
		return nil, err
	}
	return alerts, nil
}

func (r *sosRepository) Count(ctx context.Context, filter AlertFilter) (int64, error) {
	var n int64
	err := applyAlertFilter(r.db.WithContext(ctx).Model(&model.SOSAlert{}), filter).Count(&n).Error
	return n, err
}

func applyAlertFilter(q *gorm.DB, filter AlertFilter) *gorm.DB {
	if filter.UserID != "" {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if !filter.Since.IsZero() {
		q = q.Where("started_at >= ?", filter.Since)
	}
	return q
}

func supportsRowLocks(db *gorm.DB) bool {
	switch db.Dialector.Name() {
	case "mysql", "postgres":
		return true
	}
	return false
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key") || strings.Contains(msg, "duplicate entry")
}
