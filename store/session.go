package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SessionInfo describes a stored session without its payload.
type SessionInfo struct {
	Key       string `json:"key"`
	Size      int64  `json:"size"`
	UpdatedAt int64  `json:"updated_at"`
}

// SaveSession upserts the serialized record of session key.
func (s *Store) SaveSession(ctx context.Context, key string, data []byte) error {
	if key == "" {
		return fmt.Errorf("store: save session: empty key")
	}
	_, err := s.exec(ctx, `
		INSERT INTO canvas_sessions (session_key, data, size, updated_at)
		VALUES (?,?,?,?)
		ON CONFLICT(session_key) DO UPDATE SET
			data=excluded.data, size=excluded.size, updated_at=excluded.updated_at`,
		key, data, len(data), time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("store: save session %s: %w", key, err)
	}
	return nil
}

// LoadSession returns the record stored under key, or (nil, nil) when there
// is none.
func (s *Store) LoadSession(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.DB.QueryRowContext(ctx,
		`SELECT data FROM canvas_sessions WHERE session_key = ?`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: load session %s: %w", key, err)
	}
	return data, nil
}

// DeleteSession removes the record stored under key.
func (s *Store) DeleteSession(ctx context.Context, key string) error {
	_, err := s.exec(ctx, `DELETE FROM canvas_sessions WHERE session_key = ?`, key)
	return err
}

// ListSessions returns every stored session, most recently updated first.
func (s *Store) ListSessions(ctx context.Context) ([]SessionInfo, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT session_key, size, updated_at FROM canvas_sessions
		ORDER BY updated_at DESC, session_key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionInfo
	for rows.Next() {
		var si SessionInfo
		if err := rows.Scan(&si.Key, &si.Size, &si.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, si)
	}
	return out, rows.Err()
}
