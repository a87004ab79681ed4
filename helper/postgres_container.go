package helper

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// MustStartPostgresContainer boots an ephemeral Postgres 16 container for
// package-level TestMain setup. It returns a teardown func and the
// container's published port.
func MustStartPostgresContainer() (func(ctx context.Context, opts ...testcontainers.TerminateOption) error, string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("database"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, "", NewKindError("start postgres container", KindStorageUnavailable, err)
	}

	mappedPort, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		return nil, "", NewError("resolve mapped port", err)
	}

	return container.Terminate, mappedPort.Port(), nil
}

// SetTestDatabaseConfigEnvs sets the GRAPHER_DB_* environment variables a
// test process needs so NewDatabaseConfiguration() resolves to the
// container started by MustStartPostgresContainer. Uses t.Setenv so the
// values are automatically restored between tests.
func SetTestDatabaseConfigEnvs(t *testing.T, dbPort string) {
	t.Helper()
	t.Setenv("GRAPHER_DB_HOST", "localhost")
	t.Setenv("GRAPHER_DB_PORT", dbPort)
	t.Setenv("GRAPHER_DB_NAME", "database")
	t.Setenv("GRAPHER_DB_USER", "user")
	t.Setenv("GRAPHER_DB_PASSWORD", "password")
	t.Setenv("GRAPHER_DB_SCHEMA", "public")
	t.Setenv("GRAPHER_DB_SSLMODE", "disable")
}
