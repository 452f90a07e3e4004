package repository_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"

	"safetysos/internal/db"
	"safetysos/internal/repository"
)

// TestPostgresStore runs the repository contract against a throwaway Postgres container.
func TestPostgresStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "sos",
				"POSTGRES_PASSWORD": "sos",
				"POSTGRES_DB":       "sos",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate postgres: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dsn := fmt.Sprintf("host=%s port=%s user=sos password=sos dbname=sos sslmode=disable", host, port.Port())
	gormDB, err := db.Open(db.DriverPostgres, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(gormDB) })

	suite.Run(t, &RepositorySuite{open: func(t *testing.T) *repository.Repositories {
		resetSchema(t, gormDB)
		return repository.NewGormRepositories(gormDB)
	}})
}

func resetSchema(t *testing.T, gormDB *gorm.DB) {
	t.Helper()
	require.NoError(t, db.Migrate(gormDB, true))
}
