// Package profile models the learner profile: XP, level, completed
// items and per-topic mastery.
package profile

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a learner id is unknown and the caller
// asked for strict lookup semantics.
var ErrNotFound = errors.New("learner profile not found")

// XPPerLevel is the XP span of one level.
const XPPerLevel = 100

// Profile is a learner's persistent record.
type Profile struct {
	LearnerID  string `json:"learner_id"`
	Name       string `json:"name"`
	GradeLevel string `json:"grade_level"`
	XP         int    `json:"xp"`
	// CompletedItems is the completion history, oldest first. The
	// progression engine positions on the most recent entry, so order
	// must survive persistence.
	CompletedItems   []string           `json:"completed_items"`
	CurrentSessionID string             `json:"current_session_id,omitempty"`
	Mastery          map[string]float64 `json:"mastery,omitempty"` // topic → score in [0,1]
}

// Level derives the learner level from XP.
func (p *Profile) Level() int {
	return p.XP/XPPerLevel + 1
}

// HasCompleted reports whether the learner finished the given item.
func (p *Profile) HasCompleted(itemID string) bool {
	for _, id := range p.CompletedItems {
		if id == itemID {
			return true
		}
	}
	return false
}

// CompletedSet returns the completed items as a set.
func (p *Profile) CompletedSet() map[string]bool {
	set := make(map[string]bool, len(p.CompletedItems))
	for _, id := range p.CompletedItems {
		set[id] = true
	}
	return set
}

// Repo is the learner-profile persistence contract. Mutations must be
// safe under a retried step: AddXP is an atomic increment and
// MarkItemCompleted is an idempotent set-insert, so a replayed
// "correct" step never double-credits.
type Repo interface {
	// Get returns the profile, creating a default one for unknown
	// learners (a learner exists once they start practicing).
	Get(ctx context.Context, learnerID string) (*Profile, error)

	MarkItemCompleted(ctx context.Context, learnerID, itemID string) error
	AddXP(ctx context.Context, learnerID string, amount int) error
	SetMastery(ctx context.Context, learnerID, topic string, score float64) error

	// SetCurrentSession binds the learner's active session pointer;
	// an empty sessionID clears it.
	SetCurrentSession(ctx context.Context, learnerID, sessionID string) error
}
