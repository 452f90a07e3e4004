package repository

import (
	"context"

	"gorm.io/gorm"

	"safetysos/internal/model"
)

// ContactRepository defines emergency contact persistence operations.
type ContactRepository interface {
	Create(ctx context.Context, contact *model.EmergencyContact) error
	Update(ctx context.Context, contact *model.EmergencyContact) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*model.EmergencyContact, error)
	List(ctx context.Context, filter ContactFilter) ([]model.EmergencyContact, error)
	Count(ctx context.Context, filter ContactFilter) (int64, error)
	// ClearPrimary unsets IsPrimary on every contact in the filter scope except keepID.
	ClearPrimary(ctx context.Context, filter ContactFilter, keepID string) error
}

type contactRepository struct {
	db *gorm.DB
}

// NewContactRepository creates a new emergency contact repository.
func NewContactRepository(db *gorm.DB) ContactRepository {
	return &contactRepository{db: db}
}

func (r *contactRepository) Create(ctx context.Context, contact *model.EmergencyContact) error {
	return r.db.WithContext(ctx).Create(contact).Error
}

func (r *contactRepository) Update(ctx context.Context, contact *model.EmergencyContact) error {
	return r.db.WithContext(ctx).Model(contact).Select("*").Omit("created_at").Updates(contact).Error
}

func (r *contactRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.EmergencyContact{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *contactRepository) FindByID(ctx context.Context, id string) (*model.EmergencyContact, error) {
	var contact model.EmergencyContact
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&contact).Error; err != nil {
		return nil, translate(err)
	}
	return &contact, nil
}

func (r *contactRepository) List(ctx context.Context, filter ContactFilter) ([]model.EmergencyContact, error) {
	contacts := make([]model.EmergencyContact, 0)
	if err := applyContactFilter(r.db.WithContext(ctx).Model(&model.EmergencyContact{}), filter).
		Order("is_primary DESC, created_at ASC").
		Find(&contacts).Error; err != nil {
		return nil, err
	}
	return contacts, nil
}

func (r *contactRepository) Count(ctx context.Context, filter ContactFilter) (int64, error) {
	var n int64
	err := applyContactFilter(r.db.WithContext(ctx).Model(&model.EmergencyContact{}), filter).Count(&n).Error
	return n, err
}

func (r *contactRepository) ClearPrimary(ctx context.Context, filter ContactFilter, keepID string) error {
	return applyContactFilter(r.db.WithContext(ctx).Model(&model.EmergencyContact{}), filter).
		Where("id <> ? AND is_primary = ?", keepID, true).
		Update("is_primary", false).Error
}

func applyContactFilter(q *gorm.DB, filter ContactFilter) *gorm.DB {
	switch {
	case filter.Global:
		return q.Where("owner_id IS NULL")
	case filter.OwnerID != "":
		return q.Where("owner_id = ?", filter.OwnerID)
	default:
		return q
	}
}
