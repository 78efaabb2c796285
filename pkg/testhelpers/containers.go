// Package testhelpers provides a shared PostgreSQL container for
// integration tests.
package testhelpers

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// testImage is the stock PostgreSQL image integration tests run against.
const testImage = "postgres:16-alpine"

// seedSchema creates and fills the tables integration tests query: a users
// table with subscription plans and an orders table referencing it. Amounts
// are chosen so the paid orders split into two clean plan segments.
const seedSchema = `
CREATE TABLE users (
    id         SERIAL PRIMARY KEY,
    email      TEXT NOT NULL,
    plan       TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE orders (
    id             SERIAL PRIMARY KEY,
    user_id        INTEGER NOT NULL REFERENCES users (id),
    invoice_number TEXT NOT NULL,
    amount         NUMERIC(10, 2) NOT NULL,
    status         TEXT NOT NULL,
    created_at     TIMESTAMPTZ NOT NULL,
    paid_at        TIMESTAMPTZ
);

INSERT INTO users (email, plan, created_at) VALUES
    ('ada@example.com',     'free', now() - interval '40 days'),
    ('grace@example.com',   'free', now() - interval '35 days'),
    ('alan@example.com',    'free', now() - interval '30 days'),
    ('edsger@example.com',  'pro',  now() - interval '25 days'),
    ('barbara@example.com', 'pro',  now() - interval '20 days'),
    ('donald@example.com',  'pro',  now() - interval '15 days'),
    ('tony@example.com',    NULL,   now() - interval '10 days');

INSERT INTO orders (user_id, invoice_number, amount, status, created_at, paid_at) VALUES
    (1, 'INV-0001', 10.00, 'paid',    now() - interval '30 days', now() - interval '29 days'),
    (2, 'INV-0002', 12.00, 'paid',    now() - interval '28 days', now() - interval '27 days'),
    (3, 'INV-0003', 14.00, 'paid',    now() - interval '26 days', now() - interval '25 days'),
    (4, 'INV-0004', 20.00, 'paid',    now() - interval '20 days', now() - interval '19 days'),
    (5, 'INV-0005', 22.00, 'paid',    now() - interval '18 days', now() - interval '17 days'),
    (6, 'INV-0006', 24.00, 'paid',    now() - interval '16 days', now() - interval '15 days'),
    (6, 'INV-0007', 30.00, 'pending', now() - interval '2 days',  NULL);
`

// TestDB holds a shared test database container and connection pool.
type TestDB struct {
	Container testcontainers.Container
	Pool      *pgxpool.Pool
	ConnStr   string
}

var (
	sharedTestDB     *TestDB
	sharedTestDBOnce sync.Once
	sharedTestDBErr  error
)

// GetTestDB returns a shared seeded PostgreSQL container for integration
// tests. The container is created once and reused across all tests in the
// run. Tests must treat the seeded data as read-only.
func GetTestDB(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedTestDBOnce.Do(func() {
		sharedTestDB, sharedTestDBErr = setupTestDB()
	})

	if sharedTestDBErr != nil {
		t.Fatalf("Failed to setup test database: %v", sharedTestDBErr)
	}

	return sharedTestDB
}

func setupTestDB() (*TestDB, error) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        testImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "insight_test",
			"POSTGRES_USER":     "insight",
			"POSTGRES_PASSWORD": "test_password",
		},
		// The entrypoint starts postgres twice (init, then serve), so the
		// readiness line must appear a second time.
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start test container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	connStr := fmt.Sprintf("postgres://insight:test_password@%s:%s/insight_test?sslmode=disable",
		host, port.Port())

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection with retry
	var pingErr error
	for i := 0; i < 10; i++ {
		if pingErr = pool.Ping(ctx); pingErr == nil {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}
	if pingErr != nil {
		return nil, fmt.Errorf("failed to ping test database: %w", pingErr)
	}

	if _, err := pool.Exec(ctx, seedSchema); err != nil {
		return nil, fmt.Errorf("failed to seed test schema: %w", err)
	}

	return &TestDB{
		Container: container,
		Pool:      pool,
		ConnStr:   connStr,
	}, nil
}
