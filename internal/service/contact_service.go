package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	apperrors "safetysos/internal/errors"
	"safetysos/internal/model"
	"safetysos/internal/repository"
)

// ContactInput carries contact fields. Nil pointers leave a field unchanged on update.
type ContactInput struct {
	Name         *string
	Email        *string
	Phone        *string
	Relationship *string
	Role         *string
	IsPrimary    *bool
	IsActive     *bool
}

// ContactService manages emergency contacts. An empty owner addresses the global,
// administrator-managed list; any other owner addresses that user's personal list.
type ContactService interface {
	List(ctx context.Context, owner string) ([]model.EmergencyContact, error)
	Create(ctx context.Context, owner string, in ContactInput) (*model.EmergencyContact, error)
	Update(ctx context.Context, owner, id string, in ContactInput) (*model.EmergencyContact, error)
	Delete(ctx context.Context, owner, id string) error
}

type contactService struct {
	repo repository.ContactRepository
}

// NewContactService creates a new emergency contact service.
func NewContactService(repo repository.ContactRepository) ContactService {
	return &contactService{repo: repo}
}

func scope(owner string) repository.ContactFilter {
	if owner == "" {
		return repository.ContactFilter{Global: true}
	}
	return repository.ContactFilter{OwnerID: owner}
}

func (s *contactService) List(ctx context.Context, owner string) ([]model.EmergencyContact, error) {
	contacts, err := s.repo.List(ctx, scope(owner))
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	return contacts, nil
}

func (s *contactService) Create(ctx context.Context, owner string, in ContactInput) (*model.EmergencyContact, error) {
	contact := &model.EmergencyContact{IsActive: true}
	if owner != "" {
		o := owner
		contact.OwnerID = &o
	}
	apply(contact, in)
	if err := validateContact(contact); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, contact); err != nil {
		return nil, fmt.Errorf("create contact: %w", err)
	}
	if contact.IsPrimary {
		if err := s.repo.ClearPrimary(ctx, scope(owner), contact.ID); err != nil {
			return nil, fmt.Errorf("clear primary contact: %w", err)
		}
	}
	return contact, nil
}

func (s *contactService) Update(ctx context.Context, owner, id string, in ContactInput) (*model.EmergencyContact, error) {
	contact, err := s.find(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	apply(contact, in)
	if err := validateContact(contact); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, contact); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.ErrContactNotFound
		}
		return nil, fmt.Errorf("update contact: %w", err)
	}
	if contact.IsPrimary {
		if err := s.repo.ClearPrimary(ctx, scope(owner), contact.ID); err != nil {
			return nil, fmt.Errorf("clear primary contact: %w", err)
		}
	}
	return contact, nil
}

func (s *contactService) Delete(ctx context.Context, owner, id string) error {
	if _, err := s.find(ctx, owner, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.ErrContactNotFound
		}
		return fmt.Errorf("delete contact: %w", err)
	}
	return nil
}

// find loads a contact and hides contacts outside the owner's scope.
func (s *contactService) find(ctx context.Context, owner, id string) (*model.EmergencyContact, error) {
	contact, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.ErrContactNotFound
		}
		return nil, fmt.Errorf("find contact: %w", err)
	}
	if !contact.OwnedBy(owner) {
		return nil, apperrors.ErrContactNotFound
	}
	return contact, nil
}

func apply(c *model.EmergencyContact, in ContactInput) {
	if in.Name != nil {
		c.Name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		c.Email = optional(strings.ToLower(*in.Email))
	}
	if in.Phone != nil {
		c.Phone = optional(*in.Phone)
	}
	if in.Relationship != nil {
		c.Relationship = strings.TrimSpace(*in.Relationship)
	}
	if in.Role != nil {
		c.Role = strings.TrimSpace(*in.Role)
	}
	if in.IsPrimary != nil {
		c.IsPrimary = *in.IsPrimary
	}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
}

func validateContact(c *model.EmergencyContact) error {
	if c.Name == "" {
		return apperrors.ErrContactNameRequired
	}
	if c.OwnerID == nil {
		if c.Role == "" {
			return apperrors.ErrContactRoleRequired
		}
		return nil
	}
	if c.Email == nil && c.Phone == nil {
		return apperrors.ErrContactChannelRequired
	}
	return nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
