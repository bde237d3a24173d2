package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/abhisek/tutord/internal/profile"
)

type profileRepo struct {
	db *sql.DB
}

func (r *profileRepo) Get(ctx context.Context, learnerID string) (*profile.Profile, error) {
	p := &profile.Profile{LearnerID: learnerID}

	err := r.db.QueryRowContext(ctx,
		`SELECT name, grade_level, xp, current_session_id
		 FROM profiles WHERE learner_id = ?`, learnerID).
		Scan(&p.Name, &p.GradeLevel, &p.XP, &p.CurrentSessionID)
	if errors.Is(err, sql.ErrNoRows) {
		if err := r.ensure(ctx, learnerID); err != nil {
			return nil, err
		}
		return p, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load profile %s: %w", learnerID, err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT item_id FROM completed_items WHERE learner_id = ? ORDER BY rowid`, learnerID)
	if err != nil {
		return nil, fmt.Errorf("load completed items for %s: %w", learnerID, err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		p.CompletedItems = append(p.CompletedItems, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	mrows, err := r.db.QueryContext(ctx,
		`SELECT topic, score FROM mastery WHERE learner_id = ?`, learnerID)
	if err != nil {
		return nil, fmt.Errorf("load mastery for %s: %w", learnerID, err)
	}
	defer mrows.Close()
	for mrows.Next() {
		var topic string
		var score float64
		if err := mrows.Scan(&topic, &score); err != nil {
			return nil, err
		}
		if p.Mastery == nil {
			p.Mastery = map[string]float64{}
		}
		p.Mastery[topic] = score
	}
	return p, mrows.Err()
}

// ensure inserts an empty profile row if the learner is new.
func (r *profileRepo) ensure(ctx context.Context, learnerID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO profiles (learner_id) VALUES (?)
		 ON CONFLICT (learner_id) DO NOTHING`, learnerID)
	if err != nil {
		return fmt.Errorf("ensure profile %s: %w", learnerID, err)
	}
	return nil
}

func (r *profileRepo) MarkItemCompleted(ctx context.Context, learnerID, itemID string) error {
	if err := r.ensure(ctx, learnerID); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO completed_items (learner_id, item_id) VALUES (?, ?)
		 ON CONFLICT (learner_id, item_id) DO NOTHING`, learnerID, itemID)
	if err != nil {
		return fmt.Errorf("mark %s completed for %s: %w", itemID, learnerID, err)
	}
	return nil
}

func (r *profileRepo) AddXP(ctx context.Context, learnerID string, amount int) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO profiles (learner_id, xp) VALUES (?, ?)
		 ON CONFLICT (learner_id) DO UPDATE SET xp = xp + excluded.xp`,
		learnerID, amount)
	if err != nil {
		return fmt.Errorf("add xp for %s: %w", learnerID, err)
	}
	return nil
}

func (r *profileRepo) SetMastery(ctx context.Context, learnerID, topic string, score float64) error {
	if err := r.ensure(ctx, learnerID); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO mastery (learner_id, topic, score) VALUES (?, ?, ?)
		 ON CONFLICT (learner_id, topic) DO UPDATE SET score = excluded.score`,
		learnerID, topic, score)
	if err != nil {
		return fmt.Errorf("set mastery for %s: %w", learnerID, err)
	}
	return nil
}

func (r *profileRepo) SetCurrentSession(ctx context.Context, learnerID, sessionID string) error {
	if err := r.ensure(ctx, learnerID); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET current_session_id = ? WHERE learner_id = ?`,
		sessionID, learnerID)
	if err != nil {
		return fmt.Errorf("set current session for %s: %w", learnerID, err)
	}
	return nil
}
