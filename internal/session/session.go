// Package session defines the tutoring session record: the conversation
// log, attempt counters, learning insights and misconception history
// accumulated while a learner works through one catalog item.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by repositories when a session id is unknown.
var ErrNotFound = errors.New("session not found")

// Role identifies who produced a conversation entry.
type Role string

const (
	RoleStudent Role = "student"
	RoleTutor   Role = "tutor"
	RoleSystem  Role = "system"
)

// ConversationEntry is one turn of the session transcript.
type ConversationEntry struct {
	Timestamp time.Time         `json:"timestamp"`
	Role      Role              `json:"role"`
	Message   string            `json:"message"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// StepRecord logs one evaluated submission.
type StepRecord struct {
	StepID   string `json:"step_id"`
	Response string `json:"response"`
	Correct  *bool  `json:"correct"` // nil when the verdict was unknown
}

// Insight is an observation about how the learner is thinking,
// surfaced by the judge and fed back into later judge requests.
type Insight struct {
	Timestamp  time.Time `json:"timestamp"`
	Text       string    `json:"text"`
	Confidence float64   `json:"confidence"`
}

// Session is the per-item tutoring session state. It is created on
// session start, mutated only by the owning learner's step calls, and
// frozen once Finished is set.
type Session struct {
	ID        string    `json:"id"`
	LearnerID string    `json:"learner_id"`
	ItemID    string    `json:"item_id"`
	CreatedAt time.Time `json:"created_at"`

	CurrentStep     int  `json:"current_step"`
	AttemptsCurrent int  `json:"attempts_current"`
	HintsUsed       int  `json:"hints_used"`
	Finished        bool `json:"finished"`
	Success         bool `json:"success"`

	Conversation   []ConversationEntry       `json:"conversation"`
	Steps          []StepRecord              `json:"steps"`
	Insights       []Insight                 `json:"insights"`
	Misconceptions map[string]*Misconception `json:"misconceptions"`
}

// New creates a fresh session bound to a learner and an item.
func New(learnerID, itemID string) *Session {
	return &Session{
		ID:             uuid.NewString(),
		LearnerID:      learnerID,
		ItemID:         itemID,
		CreatedAt:      time.Now().UTC(),
		Misconceptions: map[string]*Misconception{},
	}
}

// AddConversation appends a transcript entry.
func (s *Session) AddConversation(role Role, message string, metadata map[string]string) {
	s.Conversation = append(s.Conversation, ConversationEntry{
		Timestamp: time.Now().UTC(),
		Role:      role,
		Message:   message,
		Metadata:  metadata,
	})
}

// RecentConversation returns the last n transcript entries.
func (s *Session) RecentConversation(n int) []ConversationEntry {
	if n <= 0 || n >= len(s.Conversation) {
		return s.Conversation
	}
	return s.Conversation[len(s.Conversation)-n:]
}

// AddInsight records a judge-observed learning pattern.
func (s *Session) AddInsight(text string, confidence float64) {
	s.Insights = append(s.Insights, Insight{
		Timestamp:  time.Now().UTC(),
		Text:       text,
		Confidence: confidence,
	})
}

// RecentInsights returns the text of the last n insights.
func (s *Session) RecentInsights(n int) []string {
	start := 0
	if n > 0 && len(s.Insights) > n {
		start = len(s.Insights) - n
	}
	out := make([]string, 0, len(s.Insights)-start)
	for _, in := range s.Insights[start:] {
		out = append(out, in.Text)
	}
	return out
}

// Repo is the session persistence contract. Implementations must be
// read-after-write consistent: a step call must observe the effect of
// the previous step call for the same session.
type Repo interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Update(ctx context.Context, s *Session) error
}
