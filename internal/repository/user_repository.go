package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"safetysos/internal/model"
)

// UserRepository defines user persistence operations.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*model.User, error)
	// FindByEmail matches case-insensitively.
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByEmployeeID(ctx context.Context, employeeID string) (*model.User, error)
	FindByVerificationToken(ctx context.Context, token string) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	Count(ctx context.Context) (int64, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository builds a GORM-backed repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	normalizeEmail(user)
	return translate(r.db.WithContext(ctx).Create(user).Error)
}

func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	normalizeEmail(user)
	return translate(r.db.WithContext(ctx).Model(user).Select("*").Omit("created_at").Updates(user).Error)
}

func (r *userRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.User{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.first(ctx, "LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email)))
}

func (r *userRepository) FindByEmployeeID(ctx context.Context, employeeID string) (*model.User, error) {
	return r.first(ctx, "employee_id = ?", employeeID)
}

func (r *userRepository) FindByVerificationToken(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	return r.first(ctx, "verification_token = ?", token)
}

func (r *userRepository) List(ctx context.Context) ([]model.User, error) {
	users := make([]model.User, 0)
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.User{}).Count(&n).Error
	return n, err
}

func (r *userRepository) first(ctx context.Context, query string, args ...interface{}) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where(query, args...).Take(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// normalizeEmail lowercases the stored email so lookups and the unique index agree.
func normalizeEmail(user *model.User) {
	if user.Email == nil {
		return
	}
	e := strings.ToLower(strings.TrimSpace(*user.Email))
	if e == "" {
		user.Email = nil
		return
	}
	user.Email = &e
}
