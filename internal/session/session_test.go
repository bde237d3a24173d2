package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordMisconceptions(t *testing.T) {
	s := New("learner-1", "ALGEBRA-Q1")

	s.RecordMisconceptions([]string{"sign-error", "drops-variable"}, 0.8)
	s.RecordMisconceptions([]string{"sign-error"}, 0.4)

	require.Len(t, s.Misconceptions, 2)

	m := s.Misconceptions["sign-error"]
	require.NotNil(t, m)
	assert.Equal(t, 2, m.Count)
	assert.Equal(t, []float64{0.8, 0.4}, m.ConfidenceScores)
	assert.False(t, m.LastSeen.Before(m.FirstSeen))

	summaries := s.MisconceptionSummaries()
	assert.InDelta(t, 0.6, summaries["sign-error"].AvgConfidence, 1e-9)
	assert.Equal(t, 1, summaries["drops-variable"].Count)
}

func TestRecordMisconceptions_ClampsConfidence(t *testing.T) {
	s := New("learner-1", "ALGEBRA-Q1")

	s.RecordMisconceptions([]string{"sign-error"}, 1.7)
	s.RecordMisconceptions([]string{"sign-error"}, -0.3)

	m := s.Misconceptions["sign-error"]
	require.NotNil(t, m)
	for _, c := range m.ConfidenceScores {
		assert.GreaterOrEqual(t, c, 0.0)
		assert.LessOrEqual(t, c, 1.0)
	}
}

func TestRecordMisconceptions_IgnoresEmptyTags(t *testing.T) {
	s := New("learner-1", "ALGEBRA-Q1")
	s.RecordMisconceptions([]string{""}, 0.9)
	assert.Empty(t, s.Misconceptions)
}

func TestRecentConversation(t *testing.T) {
	s := New("learner-1", "ALGEBRA-Q1")
	s.AddConversation(RoleStudent, "first", nil)
	s.AddConversation(RoleTutor, "second", nil)
	s.AddConversation(RoleStudent, "third", nil)

	recent := s.RecentConversation(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "second", recent[0].Message)
	assert.Equal(t, "third", recent[1].Message)

	assert.Len(t, s.RecentConversation(0), 3)
	assert.Len(t, s.RecentConversation(10), 3)
}

func TestRecentInsights(t *testing.T) {
	s := New("learner-1", "ALGEBRA-Q1")
	s.AddInsight("confuses terms with factors", 0.7)
	s.AddInsight("checks work when prompted", 0.9)

	assert.Equal(t, []string{"checks work when prompted"}, s.RecentInsights(1))
	assert.Len(t, s.RecentInsights(0), 2)
}
