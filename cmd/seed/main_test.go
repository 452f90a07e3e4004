package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safetysos/internal/auth"
	"safetysos/internal/model"
	"safetysos/internal/repository"
)

func TestSeed_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryStore().Repositories().Users
	now := time.Now().UTC()

	created, skipped, err := seed(ctx, repo, seedUsers, now)
	require.NoError(t, err)
	assert.Equal(t, len(seedUsers), created)
	assert.Zero(t, skipped)

	created, skipped, err = seed(ctx, repo, seedUsers, now)
	require.NoError(t, err)
	assert.Zero(t, created)
	assert.Equal(t, len(seedUsers), skipped)

	admin, err := repo.FindByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, admin.Role)
	assert.True(t, admin.EmailVerified)
	assert.True(t, auth.CheckPassword(admin.PasswordHash, "Admin@123"))
}

func TestSeed_EmployeeIDTakenIsSkipped(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryStore().Repositories().Users
	taken := "EMP001"
	require.NoError(t, repo.Create(ctx, &model.User{EmployeeID: &taken, PasswordHash: "x", Role: model.RoleEmployee}))

	created, skipped, err := seed(ctx, repo, seedUsers, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, skipped)
}
