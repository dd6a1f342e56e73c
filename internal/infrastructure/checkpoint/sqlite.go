package checkpoint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/vishalbelsare/cherry-go/internal/domain/rl"
)

// SQLiteStore records runs, checkpoints and per-episode progress.
type SQLiteStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	closed bool
}

// OpenSQLite opens or creates the run store at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		path = ".data/runs.db"
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			algorithm TEXT NOT NULL,
			env TEXT NOT NULL,
			started_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS checkpoints (
			id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			algorithm TEXT NOT NULL,
			step INTEGER NOT NULL,
			digest TEXT NOT NULL,
			params BLOB NOT NULL,
			created_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS episodes (
			run_id TEXT NOT NULL,
			episode INTEGER NOT NULL,
			step INTEGER NOT NULL,
			length INTEGER NOT NULL,
			score REAL NOT NULL,
			mean_loss REAL NOT NULL,
			epsilon REAL NOT NULL,
			ended_at INTEGER NOT NULL,
			PRIMARY KEY (run_id, episode)
		);

		CREATE INDEX IF NOT EXISTS idx_checkpoints_run ON checkpoints(run_id, step);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// StartRun registers a new run and returns its id.
func (s *SQLiteStore) StartRun(ctx context.Context, algorithm rl.Algorithm, envName string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", rl.ErrStoreClosed
	}

	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, algorithm, env, started_at) VALUES (?, ?, ?, ?)`,
		id, string(algorithm), envName, time.Now().UnixNano())
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}
	return id, nil
}

// SaveCheckpoint stores a parameter set for a run.
func (s *SQLiteStore) SaveCheckpoint(ctx context.Context, runID string, set Set) (rl.Checkpoint, error) {
	data, digest, err := Encode(set)
	if err != nil {
		return rl.Checkpoint{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return rl.Checkpoint{}, rl.ErrStoreClosed
	}

	cp := rl.Checkpoint{
		ID:        uuid.New().String(),
		RunID:     runID,
		Algorithm: set.Algorithm,
		Step:      set.Step,
		Digest:    digest,
		CreatedAt: time.Now().UTC(),
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO checkpoints (id, run_id, algorithm, step, digest, params, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, cp.ID, cp.RunID, string(cp.Algorithm), cp.Step, cp.Digest, data, cp.CreatedAt.UnixNano())
	if err != nil {
		return rl.Checkpoint{}, fmt.Errorf("failed to insert checkpoint: %w", err)
	}
	return cp, nil
}

// LatestCheckpoint returns the highest-step checkpoint of a run.
func (s *SQLiteStore) LatestCheckpoint(ctx context.Context, runID string) (rl.Checkpoint, Set, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return rl.Checkpoint{}, Set{}, rl.ErrStoreClosed
	}

	var (
		cp        rl.Checkpoint
		algorithm string
		data      []byte
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, run_id, algorithm, step, digest, params, created_at
		FROM checkpoints WHERE run_id = ?
		ORDER BY step DESC, created_at DESC LIMIT 1
	`, runID).Scan(&cp.ID, &cp.RunID, &algorithm, &cp.Step, &cp.Digest, &data, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return rl.Checkpoint{}, Set{}, fmt.Errorf("%w: run %s", rl.ErrCheckpointNotFound, runID)
	}
	if err != nil {
		return rl.Checkpoint{}, Set{}, fmt.Errorf("failed to query checkpoint: %w", err)
	}
	cp.Algorithm = rl.Algorithm(algorithm)
	cp.CreatedAt = time.Unix(0, createdAt).UTC()

	set, digest, err := Decode(data)
	if err != nil {
		return rl.Checkpoint{}, Set{}, err
	}
	if digest != cp.Digest {
		return rl.Checkpoint{}, Set{}, fmt.Errorf("%w: stored digest mismatch", rl.ErrCheckpointCorrupt)
	}
	return cp, set, nil
}

// RecordEpisode stores one episode's progress.
func (s *SQLiteStore) RecordEpisode(ctx context.Context, rec rl.EpisodeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return rl.ErrStoreClosed
	}

	endedAt := rec.EndedAt
	if endedAt.IsZero() {
		endedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO episodes (run_id, episode, step, length, score, mean_loss, epsilon, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.RunID, rec.Episode, rec.Step, rec.Length, rec.Score, rec.MeanLoss, rec.Epsilon, endedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert episode: %w", err)
	}
	return nil
}

// Episodes returns a run's episodes in order.
func (s *SQLiteStore) Episodes(ctx context.Context, runID string) ([]rl.EpisodeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, rl.ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, episode, step, length, score, mean_loss, epsilon, ended_at
		FROM episodes WHERE run_id = ? ORDER BY episode ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query episodes: %w", err)
	}
	defer rows.Close()

	var out []rl.EpisodeRecord
	for rows.Next() {
		var rec rl.EpisodeRecord
		var endedAt int64
		if err := rows.Scan(&rec.RunID, &rec.Episode, &rec.Step, &rec.Length, &rec.Score, &rec.MeanLoss, &rec.Epsilon, &endedAt); err != nil {
			return nil, fmt.Errorf("failed to scan episode: %w", err)
		}
		rec.EndedAt = time.Unix(0, endedAt).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Runs lists every run, newest first, with its episode count and best
// score.
func (s *SQLiteStore) Runs(ctx context.Context) ([]rl.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, rl.ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.algorithm, r.env, r.started_at,
			COUNT(e.episode), COALESCE(MAX(e.score), 0)
		FROM runs r LEFT JOIN episodes e ON e.run_id = r.id
		GROUP BY r.id
		ORDER BY r.started_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []rl.Run
	for rows.Next() {
		var run rl.Run
		var algorithm string
		var startedAt int64
		if err := rows.Scan(&run.ID, &algorithm, &run.Env, &startedAt, &run.Episodes, &run.BestScore); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.Algorithm = rl.Algorithm(algorithm)
		run.StartedAt = time.Unix(0, startedAt).UTC()
		out = append(out, run)
	}
	return out, rows.Err()
}

// Close closes the store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
