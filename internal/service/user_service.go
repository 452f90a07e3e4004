package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"safetysos/internal/cache"
	apperrors "safetysos/internal/errors"
	"safetysos/internal/model"
	"safetysos/internal/repository"
)

const userCacheTTL = 5 * time.Minute

// ProfileUpdate lists the profile fields a user may change. Nil means "leave unchanged".
type ProfileUpdate struct {
	Name *string
}

// UserService exposes profile and user administration operations.
type UserService interface {
	GetProfile(ctx context.Context, id string) (*model.User, error)
	UpdateProfile(ctx context.Context, id string, in ProfileUpdate) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	SetRole(ctx context.Context, id, role string) (*model.User, error)
	// DeleteUser removes the user and their personal emergency contacts.
	DeleteUser(ctx context.Context, actorID, id string) error
	// RequireAdmin loads the user from the store and fails unless they hold the admin role.
	RequireAdmin(ctx context.Context, id string) (*model.User, error)
}

type userService struct {
	repo     repository.UserRepository
	contacts repository.ContactRepository
	cache    *cache.Client
	log      *zap.Logger
}

// NewUserService builds a UserService with repository and cache.
func NewUserService(repo repository.UserRepository, contacts repository.ContactRepository, cache *cache.Client, log *zap.Logger) UserService {
	if log == nil {
		log = zap.NewNop()
	}
	return &userService{repo: repo, contacts: contacts, cache: cache, log: log}
}

func (s *userService) cacheKey(id string) string {
	return fmt.Sprintf("user:%s", id)
}

func (s *userService) GetProfile(ctx context.Context, id string) (*model.User, error) {
	var cached model.User
	if s.cache.GetJSON(ctx, s.cacheKey(id), &cached) {
		return &cached, nil
	}

	user, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.SetJSON(ctx, s.cacheKey(id), user, userCacheTTL)
	return user, nil
}

func (s *userService) UpdateProfile(ctx context.Context, id string, in ProfileUpdate) (*model.User, error) {
	if in.Name == nil {
		return nil, apperrors.ErrNoFieldsToUpdate
	}

	user, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	user.Name = strings.TrimSpace(*in.Name)
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	_ = s.cache.Delete(ctx, s.cacheKey(id))
	return user, nil
}

func (s *userService) ListUsers(ctx context.Context) ([]model.User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *userService) SetRole(ctx context.Context, id, role string) (*model.User, error) {
	if !model.ValidRole(role) {
		return nil, apperrors.ErrInvalidRole
	}
	user, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Role == role {
		return user, nil
	}
	user.Role = role
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	_ = s.cache.Delete(ctx, s.cacheKey(id))
	s.log.Info("user role changed", zap.String("user_id", id), zap.String("role", role))
	return user, nil
}

func (s *userService) DeleteUser(ctx context.Context, actorID, id string) error {
	if actorID == id {
		return apperrors.ErrCannotDeleteSelf
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.ErrUserNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}
	_ = s.cache.Delete(ctx, s.cacheKey(id))

	contacts, err := s.contacts.List(ctx, repository.ContactFilter{OwnerID: id})
	if err != nil {
		s.log.Warn("failed to list contacts of deleted user", zap.String("user_id", id), zap.Error(err))
		return nil
	}
	for _, c := range contacts {
		if err := s.contacts.Delete(ctx, c.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			s.log.Warn("failed to delete contact of deleted user", zap.String("contact_id", c.ID), zap.Error(err))
		}
	}
	s.log.Info("user deleted", zap.String("user_id", id), zap.String("deleted_by", actorID))
	return nil
}

func (s *userService) RequireAdmin(ctx context.Context, id string) (*model.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.ErrInvalidToken
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !user.IsAdmin() {
		return nil, apperrors.ErrAdminRequired
	}
	return user, nil
}

func (s *userService) find(ctx context.Context, id string) (*model.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}
