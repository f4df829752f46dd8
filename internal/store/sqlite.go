package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"trackrequestd/internal/model"
)

// sqliteStore is the alternate, single-binary Store backend: a durable
// on-disk table instead of a Redis deployment. Useful for running the
// worker without standing up a separate Redis instance.
type sqliteStore struct {
	db        *sql.DB
	retention time.Duration
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS track_requests (
	user_id INTEGER NOT NULL,
	request_id TEXT NOT NULL,
	state TEXT,
	context TEXT,
	status TEXT NOT NULL,
	status_expires_at INTEGER,
	PRIMARY KEY (user_id, request_id)
);
`

// NewSQLiteStore opens (creating if necessary) a sqlite database at path.
func NewSQLiteStore(path string, retention time.Duration) (Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: open %s: %w", path, err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite store: create schema: %w", err)
	}
	return &sqliteStore{db: db, retention: retention}, nil
}

func (s *sqliteStore) CreatePair(ctx context.Context, user model.UserId, req model.RequestId, tctx model.TrackRequestContext, state model.TrackRequestState) error {
	var count int
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM track_requests WHERE user_id = ? AND request_id = ?`, int64(user), string(req))
	if err := row.Scan(&count); err != nil {
		return fmt.Errorf("sqlite store: check existing pair: %w", err)
	}
	if count > 0 {
		return ErrObjectExists
	}

	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("sqlite store: marshal state: %w", err)
	}
	ctxJSON, err := json.Marshal(tctx)
	if err != nil {
		return fmt.Errorf("sqlite store: marshal context: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO track_requests (user_id, request_id, state, context, status, status_expires_at) VALUES (?, ?, ?, ?, ?, NULL)`,
		int64(user), string(req), string(stateJSON), string(ctxJSON), string(model.StatusPending))
	if err != nil {
		return fmt.Errorf("sqlite store: insert pair: %w", err)
	}
	return nil
}

func (s *sqliteStore) UpdateState(ctx context.Context, user model.UserId, req model.RequestId, state model.TrackRequestState) error {
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("sqlite store: marshal state: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE track_requests SET state = ? WHERE user_id = ? AND request_id = ? AND state IS NOT NULL`,
		string(stateJSON), int64(user), string(req))
	if err != nil {
		return fmt.Errorf("sqlite store: update state: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite store: rows affected: %w", err)
	}
	if n == 0 {
		return ErrObjectNotFound
	}
	return nil
}

func (s *sqliteStore) UpdateStatus(ctx context.Context, user model.UserId, req model.RequestId, status model.Status) error {
	_, err := s.db.ExecContext(ctx, `UPDATE track_requests SET status = ? WHERE user_id = ? AND request_id = ?`,
		string(status), int64(user), string(req))
	if err != nil {
		return fmt.Errorf("sqlite store: update status: %w", err)
	}
	return nil
}

func (s *sqliteStore) LoadState(ctx context.Context, user model.UserId, req model.RequestId) (*model.TrackRequestState, error) {
	var raw sql.NullString
	row := s.db.QueryRowContext(ctx, `SELECT state FROM track_requests WHERE user_id = ? AND request_id = ?`, int64(user), string(req))
	if err := row.Scan(&raw); err == sql.ErrNoRows || (err == nil && !raw.Valid) {
		return nil, ErrObjectNotFound
	} else if err != nil {
		return nil, fmt.Errorf("sqlite store: load state: %w", err)
	}
	var state model.TrackRequestState
	if err := json.Unmarshal([]byte(raw.String), &state); err != nil {
		return nil, fmt.Errorf("sqlite store: unmarshal state: %w", err)
	}
	return &state, nil
}

func (s *sqliteStore) LoadContext(ctx context.Context, user model.UserId, req model.RequestId) (*model.TrackRequestContext, error) {
	var raw sql.NullString
	row := s.db.QueryRowContext(ctx, `SELECT context FROM track_requests WHERE user_id = ? AND request_id = ?`, int64(user), string(req))
	if err := row.Scan(&raw); err == sql.ErrNoRows || (err == nil && !raw.Valid) {
		return nil, ErrObjectNotFound
	} else if err != nil {
		return nil, fmt.Errorf("sqlite store: load context: %w", err)
	}
	var tctx model.TrackRequestContext
	if err := json.Unmarshal([]byte(raw.String), &tctx); err != nil {
		return nil, fmt.Errorf("sqlite store: unmarshal context: %w", err)
	}
	return &tctx, nil
}

func (s *sqliteStore) DeletePair(ctx context.Context, user model.UserId, req model.RequestId) error {
	expiresAt := time.Now().Add(s.retention).Unix()
	_, err := s.db.ExecContext(ctx,
		`UPDATE track_requests SET state = NULL, context = NULL, status_expires_at = ? WHERE user_id = ? AND request_id = ?`,
		expiresAt, int64(user), string(req))
	if err != nil {
		return fmt.Errorf("sqlite store: delete pair: %w", err)
	}
	return nil
}

func (s *sqliteStore) GetAllStatuses(ctx context.Context, user model.UserId) (map[model.RequestId]model.Status, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT request_id, status FROM track_requests WHERE user_id = ?`, int64(user))
	if err != nil {
		return nil, fmt.Errorf("sqlite store: get all statuses: %w", err)
	}
	defer rows.Close()

	out := make(map[model.RequestId]model.Status)
	for rows.Next() {
		var req, status string
		if err := rows.Scan(&req, &status); err != nil {
			return nil, fmt.Errorf("sqlite store: scan status row: %w", err)
		}
		out[model.RequestId(req)] = model.Status(status)
	}
	return out, rows.Err()
}

func (s *sqliteStore) GetAllTasks(ctx context.Context) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id, request_id FROM track_requests WHERE state IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: get all tasks: %w", err)
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		var userID int64
		var req string
		if err := rows.Scan(&userID, &req); err != nil {
			return nil, fmt.Errorf("sqlite store: scan task row: %w", err)
		}
		out = append(out, Task{UserId: model.UserId(userID), RequestId: model.RequestId(req)})
	}
	return out, rows.Err()
}

func (s *sqliteStore) SweepExpiredStatuses(ctx context.Context) error {
	now := time.Now().Unix()
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM track_requests WHERE state IS NULL AND context IS NULL AND status_expires_at IS NOT NULL AND status_expires_at <= ?`,
		now)
	if err != nil {
		return fmt.Errorf("sqlite store: sweep: %w", err)
	}
	return nil
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}
