// Package testutil starts the backing services integration tests run
// against: Postgres with pgvector and an S3-compatible object store.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	pgvectorImage = "pgvector/pgvector:0.8.1-pg18"
	rustfsImage   = "rustfs/rustfs:latest"

	pgCredential = "askdocs"

	// RustFSAccessKey and RustFSSecretKey are the static credentials the
	// object store container accepts.
	RustFSAccessKey = "rustfsadmin"
	RustFSSecretKey = "rustfsadmin"
)

// startContainer runs req and returns the container with the host and
// mapped port of exposed.
func startContainer(ctx context.Context, t *testing.T, req testcontainers.ContainerRequest, exposed nat.Port) (testcontainers.Container, string, string) {
	t.Helper()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("failed to start %s: %v", req.Image, err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get %s host: %v", req.Image, err)
	}

	port, err := container.MappedPort(ctx, exposed)
	if err != nil {
		t.Fatalf("failed to get %s port: %v", req.Image, err)
	}

	return container, host, port.Port()
}

// PostgresContainer is a pgvector-enabled Postgres instance.
type PostgresContainer struct {
	Container testcontainers.Container
	Host      string
	Port      string
}

// NewPostgresContainer starts Postgres with the vector extension available.
func NewPostgresContainer(ctx context.Context, t *testing.T) *PostgresContainer {
	container, host, port := startContainer(ctx, t, testcontainers.ContainerRequest{
		Image:        pgvectorImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     pgCredential,
			"POSTGRES_PASSWORD": pgCredential,
			"POSTGRES_DB":       pgCredential,
		},
		// the server restarts once after initdb, hence two ready lines
		WaitingFor: wait.ForAll(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort("5432/tcp"),
		).WithStartupTimeout(time.Minute),
	}, "5432/tcp")

	return &PostgresContainer{Container: container, Host: host, Port: port}
}

// ConnectionString returns a URL usable as ASKDOCS_DATABASE_URL.
func (pc *PostgresContainer) ConnectionString() string {
	return fmt.Sprintf("postgres://%[1]s:%[1]s@%s:%s/%[1]s?sslmode=disable", pgCredential, pc.Host, pc.Port)
}

func (pc *PostgresContainer) Terminate(ctx context.Context) error {
	return testcontainers.TerminateContainer(pc.Container)
}

// RustFSContainer is an S3-compatible object store.
type RustFSContainer struct {
	Container testcontainers.Container
	Host      string
	Port      string
}

// NewRustFSContainer starts RustFS with RustFSAccessKey / RustFSSecretKey.
func NewRustFSContainer(ctx context.Context, t *testing.T) *RustFSContainer {
	container, host, port := startContainer(ctx, t, testcontainers.ContainerRequest{
		Image:        rustfsImage,
		ExposedPorts: []string{"9000/tcp"},
		Env: map[string]string{
			"RUSTFS_ACCESS_KEY": RustFSAccessKey,
			"RUSTFS_SECRET_KEY": RustFSSecretKey,
		},
		WaitingFor: wait.ForListeningPort("9000/tcp").WithStartupTimeout(30 * time.Second),
	}, "9000/tcp")

	return &RustFSContainer{Container: container, Host: host, Port: port}
}

// Endpoint returns the S3 endpoint URL.
func (rc *RustFSContainer) Endpoint() string {
	return fmt.Sprintf("http://%s:%s", rc.Host, rc.Port)
}

func (rc *RustFSContainer) Terminate(ctx context.Context) error {
	return testcontainers.TerminateContainer(rc.Container)
}

// NewTestPool connects to pc, retrying while the server finishes starting,
// and applies the up migrations found in migrationsDir.
func NewTestPool(ctx context.Context, t *testing.T, pc *PostgresContainer, migrationsDir string) *pgxpool.Pool {
	t.Helper()

	pool, err := pgxpool.New(ctx, pc.ConnectionString())
	if err != nil {
		t.Fatalf("failed to create pool: %v", err)
	}

	var pingErr error
	for attempt := 1; attempt <= 5; attempt++ {
		if pingErr = pool.Ping(ctx); pingErr == nil {
			break
		}
		time.Sleep(time.Duration(attempt) * 500 * time.Millisecond)
	}
	if pingErr != nil {
		pool.Close()
		t.Fatalf("postgres not reachable: %v", pingErr)
	}

	if err := applyUpMigrations(ctx, pool, migrationsDir); err != nil {
		pool.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return pool
}

// applyUpMigrations executes every *.up.sql file in lexical order. It skips
// golang-migrate's version bookkeeping, which repository tests do not need.
func applyUpMigrations(ctx context.Context, pool *pgxpool.Pool, dir string) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.up.sql"))
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no up migrations in %s", dir)
	}

	for _, file := range files {
		sql, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", filepath.Base(file), err)
		}
		if _, err := pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("failed to apply %s: %w", filepath.Base(file), err)
		}
	}
	return nil
}

// TruncatePassages empties the passages table and resets its id sequence.
func TruncatePassages(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, "TRUNCATE TABLE passages RESTART IDENTITY"); err != nil {
		return fmt.Errorf("failed to truncate passages: %w", err)
	}
	return nil
}
