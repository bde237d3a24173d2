package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/abhisek/tutord/internal/session"
)

// sessionRepo stores each session as a JSON document with a few
// indexed columns alongside. Writes replace the whole document, which
// is what the single-writer-per-session step flow needs.
type sessionRepo struct {
	db *sql.DB
}

func (r *sessionRepo) Create(ctx context.Context, s *session.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, learner_id, item_id, finished, created_at, data)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		s.ID, s.LearnerID, s.ItemID, boolToInt(s.Finished),
		s.CreatedAt.Format(time.RFC3339Nano), string(data))
	if err != nil {
		return fmt.Errorf("insert session %s: %w", s.ID, err)
	}
	return nil
}

func (r *sessionRepo) Get(ctx context.Context, id string) (*session.Session, error) {
	var data string
	err := r.db.QueryRowContext(ctx,
		`SELECT data FROM sessions WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}

	var s session.Session
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &s, nil
}

func (r *sessionRepo) Update(ctx context.Context, s *session.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET finished = ?, data = ? WHERE id = ?`,
		boolToInt(s.Finished), string(data), s.ID)
	if err != nil {
		return fmt.Errorf("update session %s: %w", s.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return session.ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
