// Package store provides the optional persistence layer of spec §6: a
// snapshot store keyed by session id, backed by PostgreSQL via pgx and
// golang-migrate embedded migrations (grounded on the teacher's
// pkg/database, with ent's code-generated client dropped in favor of
// hand-written SQL over pgxpool — see DESIGN.md).
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ibdm-project/ibdm/pkg/istate"
)

// ErrNotFound is returned by Load when no snapshot exists for a session id.
var ErrNotFound = errors.New("store: snapshot not found")

// Store persists InformationState snapshots keyed by session (agent) id.
type Store struct {
	pool *pgxpool.Pool
}

// Open runs pending migrations and connects a pool against cfg.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := runMigrations(cfg); err != nil {
		return nil, err
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("store: parse pool config: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	poolCfg.MaxConnIdleTime = cfg.ConnMaxIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("store: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Save upserts the serialized form of state under sessionID.
func (s *Store) Save(ctx context.Context, sessionID string, state istate.InformationState) error {
	data, err := istate.Serialize(state)
	if err != nil {
		return fmt.Errorf("store: serialize: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO dialogue_sessions (id, state, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (id) DO UPDATE
		SET state = EXCLUDED.state, updated_at = now()
	`, sessionID, data)
	if err != nil {
		return fmt.Errorf("store: save %s: %w", sessionID, err)
	}
	return nil
}

// Load retrieves and deserializes the snapshot for sessionID.
func (s *Store) Load(ctx context.Context, sessionID string) (istate.InformationState, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT state FROM dialogue_sessions WHERE id = $1`, sessionID,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return istate.InformationState{}, ErrNotFound
		}
		return istate.InformationState{}, fmt.Errorf("store: load %s: %w", sessionID, err)
	}

	state, err := istate.Deserialize(data)
	if err != nil {
		return istate.InformationState{}, fmt.Errorf("store: deserialize %s: %w", sessionID, err)
	}
	return state, nil
}

// Delete removes the snapshot for sessionID, if present. It is not an error
// to delete an id that was never saved.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM dialogue_sessions WHERE id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("store: delete %s: %w", sessionID, err)
	}
	return nil
}

// HealthStatus reports pool connectivity and stats for a host's health
// endpoint (mirrors the teacher's pkg/database.HealthStatus).
type HealthStatus struct {
	Status          string `json:"status"`
	ResponseTime    int64  `json:"response_time_ms"`
	AcquiredConns   int32  `json:"acquired_conns"`
	IdleConns       int32  `json:"idle_conns"`
	TotalConns      int32  `json:"total_conns"`
	MaxConns        int32  `json:"max_conns"`
	NewConnsCount   int64  `json:"new_conns_count"`
	EmptyAcquireCnt int64  `json:"empty_acquire_count"`
}

// Health pings the pool and reports its current connection stats.
func (s *Store) Health(ctx context.Context) (*HealthStatus, error) {
	start := time.Now()
	if err := s.pool.Ping(ctx); err != nil {
		return &HealthStatus{Status: "unhealthy", ResponseTime: time.Since(start).Milliseconds()}, err
	}

	stat := s.pool.Stat()
	return &HealthStatus{
		Status:          "healthy",
		ResponseTime:    time.Since(start).Milliseconds(),
		AcquiredConns:   stat.AcquiredConns(),
		IdleConns:       stat.IdleConns(),
		TotalConns:      stat.TotalConns(),
		MaxConns:        stat.MaxConns(),
		NewConnsCount:   stat.NewConnsCount(),
		EmptyAcquireCnt: stat.EmptyAcquireCount(),
	}, nil
}
