package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/moonvale/nachtrat/server/internal/models"
)

// PostgresStore persists aggregates in Postgres. One transaction per
// command; the session row is locked FOR UPDATE for the duration of an
// Update, which serializes commands within a session while sessions stay
// independent.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	cfg.MaxConns = 25
	cfg.MinConns = 5
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 30 * time.Minute
	cfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Schema is the DDL for the aggregate tables. The round state is a JSONB
// document on the session row: it is owned one-to-one by the session and
// always read and written with it.
const Schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id            UUID PRIMARY KEY,
	join_code     CHAR(6) NOT NULL UNIQUE,
	phase         TEXT NOT NULL,
	day_count     INT NOT NULL DEFAULT 0,
	win_state     TEXT NOT NULL DEFAULT 'none',
	host_client_id TEXT NOT NULL,
	round_state   JSONB NOT NULL DEFAULT '{}',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	host_seen_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS participants (
	id           UUID PRIMARY KEY,
	session_id   UUID NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	client_id    TEXT NOT NULL,
	display_name TEXT NOT NULL,
	role         TEXT NOT NULL DEFAULT 'none',
	alive        BOOLEAN NOT NULL DEFAULT TRUE,
	is_host      BOOLEAN NOT NULL DEFAULT FALSE,
	joined_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	last_seen_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (session_id, client_id)
);

CREATE TABLE IF NOT EXISTS votes (
	session_id UUID NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	voter_id   UUID NOT NULL,
	target_id  UUID NOT NULL,
	round      INT NOT NULL,
	phase      TEXT NOT NULL,
	cast_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (session_id, voter_id, round, phase)
);

CREATE TABLE IF NOT EXISTS leave_requests (
	id             UUID PRIMARY KEY,
	session_id     UUID NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	participant_id UUID NOT NULL,
	status         TEXT NOT NULL DEFAULT 'pending',
	processed_by   UUID,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	processed_at   TIMESTAMPTZ
);
`

// EnsureSchema creates the aggregate tables if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, Schema)
	return err
}

func (s *PostgresStore) Create(ctx context.Context, g *models.Game) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.insertAggregate(ctx, tx, g); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) FindIDByCode(ctx context.Context, code string) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.pool.QueryRow(ctx, `SELECT id FROM sessions WHERE join_code = $1`, code).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, ErrCodeNotFound
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to resolve join code: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) View(ctx context.Context, id uuid.UUID, fn Viewer) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	g, err := s.loadAggregate(ctx, tx, id, false)
	if err != nil {
		return err
	}
	if err := fn(g); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) Update(ctx context.Context, id uuid.UUID, fn Mutator) (bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	g, err := s.loadAggregate(ctx, tx, id, true)
	if err != nil {
		return false, err
	}

	changed, err := fn(g)
	if err != nil {
		return false, err
	}

	if err := s.writeAggregate(ctx, tx, g); err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return changed, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM sessions`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Health pings the underlying pool.
func (s *PostgresStore) Health(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgresql unhealthy: %w", err)
	}
	return nil
}

// ============================================================================
// Aggregate codec
// ============================================================================

func (s *PostgresStore) loadAggregate(ctx context.Context, tx pgx.Tx, id uuid.UUID, forUpdate bool) (*models.Game, error) {
	lock := ""
	if forUpdate {
		lock = " FOR UPDATE"
	}

	var g models.Game
	var roundJSON []byte
	err := tx.QueryRow(ctx, `
		SELECT id, join_code, phase, day_count, win_state, host_client_id,
		       round_state, created_at, updated_at, host_seen_at
		FROM sessions WHERE id = $1`+lock, id,
	).Scan(&g.ID, &g.JoinCode, &g.Phase, &g.DayCount, &g.WinState,
		&g.HostClientID, &roundJSON, &g.CreatedAt, &g.UpdatedAt, &g.HostSeenAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if err := json.Unmarshal(roundJSON, &g.Round); err != nil {
		return nil, fmt.Errorf("failed to parse round state: %w", err)
	}
	if g.Round.WolfTargets == nil {
		g.Round.WolfTargets = make(map[uuid.UUID]uuid.UUID)
	}

	rows, err := tx.Query(ctx, `
		SELECT id, client_id, display_name, role, alive, is_host, joined_at, last_seen_at
		FROM participants WHERE session_id = $1 ORDER BY joined_at`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load participants: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		p := &models.Participant{GameID: id}
		if err := rows.Scan(&p.ID, &p.ClientID, &p.DisplayName, &p.Role,
			&p.Alive, &p.IsHost, &p.JoinedAt, &p.LastSeenAt); err != nil {
			return nil, err
		}
		g.Participants = append(g.Participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	vrows, err := tx.Query(ctx, `
		SELECT voter_id, target_id, round, phase, cast_at
		FROM votes WHERE session_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load votes: %w", err)
	}
	defer vrows.Close()
	for vrows.Next() {
		v := models.Vote{GameID: id}
		if err := vrows.Scan(&v.VoterID, &v.TargetID, &v.Round, &v.Phase, &v.CastAt); err != nil {
			return nil, err
		}
		g.Votes = append(g.Votes, v)
	}
	if err := vrows.Err(); err != nil {
		return nil, err
	}

	lrows, err := tx.Query(ctx, `
		SELECT id, participant_id, status, processed_by, created_at, processed_at
		FROM leave_requests WHERE session_id = $1 ORDER BY created_at`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load leave requests: %w", err)
	}
	defer lrows.Close()
	for lrows.Next() {
		lr := models.LeaveRequest{GameID: id}
		if err := lrows.Scan(&lr.ID, &lr.ParticipantID, &lr.Status,
			&lr.ProcessedBy, &lr.CreatedAt, &lr.ProcessedAt); err != nil {
			return nil, err
		}
		g.LeaveRequests = append(g.LeaveRequests, lr)
	}
	return &g, lrows.Err()
}

// writeAggregate replaces the child rows wholesale. Aggregates are small
// (at most 21 participants) so the rewrite is cheaper than diffing and
// keeps the codec obviously correct.
func (s *PostgresStore) writeAggregate(ctx context.Context, tx pgx.Tx, g *models.Game) error {
	roundJSON, err := json.Marshal(g.Round)
	if err != nil {
		return fmt.Errorf("failed to encode round state: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE sessions
		SET phase = $1, day_count = $2, win_state = $3, round_state = $4,
		    updated_at = $5, host_seen_at = $6
		WHERE id = $7`,
		g.Phase, g.DayCount, g.WinState, roundJSON, g.UpdatedAt, g.HostSeenAt, g.ID)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	for _, table := range []string{"participants", "votes", "leave_requests"} {
		if _, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE session_id = $1`, g.ID); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return s.insertChildren(ctx, tx, g)
}

func (s *PostgresStore) insertAggregate(ctx context.Context, tx pgx.Tx, g *models.Game) error {
	roundJSON, err := json.Marshal(g.Round)
	if err != nil {
		return fmt.Errorf("failed to encode round state: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO sessions (id, join_code, phase, day_count, win_state,
			host_client_id, round_state, created_at, updated_at, host_seen_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		g.ID, g.JoinCode, g.Phase, g.DayCount, g.WinState,
		g.HostClientID, roundJSON, g.CreatedAt, g.UpdatedAt, g.HostSeenAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrCodeConflict
		}
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return s.insertChildren(ctx, tx, g)
}

func (s *PostgresStore) insertChildren(ctx context.Context, tx pgx.Tx, g *models.Game) error {
	for _, p := range g.Participants {
		_, err := tx.Exec(ctx, `
			INSERT INTO participants (id, session_id, client_id, display_name,
				role, alive, is_host, joined_at, last_seen_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			p.ID, g.ID, p.ClientID, p.DisplayName, p.Role, p.Alive, p.IsHost,
			p.JoinedAt, p.LastSeenAt)
		if err != nil {
			return fmt.Errorf("failed to insert participant: %w", err)
		}
	}
	for _, v := range g.Votes {
		_, err := tx.Exec(ctx, `
			INSERT INTO votes (session_id, voter_id, target_id, round, phase, cast_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			g.ID, v.VoterID, v.TargetID, v.Round, v.Phase, v.CastAt)
		if err != nil {
			return fmt.Errorf("failed to insert vote: %w", err)
		}
	}
	for _, lr := range g.LeaveRequests {
		_, err := tx.Exec(ctx, `
			INSERT INTO leave_requests (id, session_id, participant_id, status,
				processed_by, created_at, processed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			lr.ID, g.ID, lr.ParticipantID, lr.Status, lr.ProcessedBy,
			lr.CreatedAt, lr.ProcessedAt)
		if err != nil {
			return fmt.Errorf("failed to insert leave request: %w", err)
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	// 23505 is unique_violation; pgconn.PgError carries the code.
	type coder interface{ SQLState() string }
	var c coder
	return errors.As(err, &c) && c.SQLState() == "23505"
}
