package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"go.uber.org/zap"

	"safetysos/internal/auth"
	"safetysos/internal/config"
	"safetysos/internal/db"
	"safetysos/internal/logger"
	"safetysos/internal/model"
	"safetysos/internal/repository"
)

// SeedUser describes an account created by the seed script.
type SeedUser struct {
	Email      string
	EmployeeID string
	Name       string
	Password   string
	Role       string
}

var seedUsers = []SeedUser{
	{Email: "demo@example.com", EmployeeID: "EMP001", Name: "Demo User", Password: "Demo@123", Role: model.RoleEmployee},
	{Email: "admin@example.com", EmployeeID: "ADM001", Name: "Admin User", Password: "Admin@123", Role: model.RoleAdmin},
}

func main() {
	cfg := config.Load()

	zl, err := logger.Init(logger.Options{Level: cfg.LogLevel, Environment: cfg.Env, ServiceName: "safetysos-seed"})
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if cfg.StoreDriver == config.StoreMemory {
		zl.Fatal("seeding the memory store has no effect; set STORE_DRIVER")
	}

	repos, closeStore, err := db.OpenStore(cfg, zl)
	if err != nil {
		zl.Fatal("store init", zap.Error(err))
	}
	defer func() { _ = closeStore() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	created, skipped, err := seed(ctx, repos.Users, seedUsers, time.Now().UTC())
	if err != nil {
		zl.Fatal("seed failed", zap.Error(err))
	}
	zl.Info("seed completed",
		zap.Int("created", created),
		zap.Int("skipped", skipped),
	)
}

// seed creates each missing user as verified. Users that already exist by email are left untouched.
func seed(ctx context.Context, repo repository.UserRepository, users []SeedUser, now time.Time) (created int, skipped int, err error) {
	for _, su := range users {
		existing, err := repo.FindByEmail(ctx, su.Email)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return created, skipped, fmt.Errorf("look up %s: %w", su.Email, err)
		}
		if existing != nil {
			skipped++
			continue
		}

		hash, err := auth.HashPassword(su.Password)
		if err != nil {
			return created, skipped, fmt.Errorf("hash password for %s: %w", su.Email, err)
		}
		email := strings.ToLower(su.Email)
		employeeID := su.EmployeeID
		user := &model.User{
			Email:         &email,
			EmployeeID:    &employeeID,
			Name:          su.Name,
			PasswordHash:  hash,
			EmailVerified: true,
			VerifiedAt:    &now,
			Role:          su.Role,
		}
		if err := repo.Create(ctx, user); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				// Employee ID held by another account.
				skipped++
				continue
			}
			return created, skipped, fmt.Errorf("create %s: %w", su.Email, err)
		}
		created++
	}
	return created, skipped, nil
}
