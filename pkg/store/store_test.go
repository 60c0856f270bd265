package store

import (
	"context"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ibdm-project/ibdm/pkg/istate"
)

// newTestStore starts a disposable PostgreSQL container, runs migrations
// against it, and returns a ready Store. Skipped under -short, mirroring
// the teacher's testcontainers-backed pkg/database tests.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping testcontainers-backed store test in -short mode")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	cfg := parseConnString(t, connStr)
	s, err := Open(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(s.Close)

	return s
}

func parseConnString(t *testing.T, dsn string) Config {
	t.Helper()
	u, err := url.Parse(dsn)
	require.NoError(t, err)

	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	password, _ := u.User.Password()
	return Config{
		Host:            u.Hostname(),
		Port:            port,
		User:            u.User.Username(),
		Password:        password,
		Database:        "test",
		SSLMode:         "disable",
		MaxConns:        5,
		MinConns:        1,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 15 * time.Minute,
	}
}

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	state := istate.Initialize("session-1")
	require.NoError(t, s.Save(ctx, "session-1", state))

	got, err := s.Load(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, "session-1", got.AgentID)
}

func TestStoreLoadMissingReturnsErrNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Load(ctx, "does-not-exist")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreSaveOverwritesExistingSnapshot(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	state := istate.Initialize("session-2")
	require.NoError(t, s.Save(ctx, "session-2", state))
	require.NoError(t, s.Save(ctx, "session-2", state))

	got, err := s.Load(ctx, "session-2")
	require.NoError(t, err)
	assert.Equal(t, "session-2", got.AgentID)
}

func TestStoreDeleteRemovesSnapshot(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	state := istate.Initialize("session-3")
	require.NoError(t, s.Save(ctx, "session-3", state))
	require.NoError(t, s.Delete(ctx, "session-3"))

	_, err := s.Load(ctx, "session-3")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreHealthReportsHealthy(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	h, err := s.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "healthy", h.Status)
}
