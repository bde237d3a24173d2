package orchestrator

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/tutord/internal/catalog"
	"github.com/abhisek/tutord/internal/evaluator"
	"github.com/abhisek/tutord/internal/judge"
	"github.com/abhisek/tutord/internal/llm"
	"github.com/abhisek/tutord/internal/profile"
	"github.com/abhisek/tutord/internal/session"
)

type memSessions struct {
	mu   sync.Mutex
	data map[string]*session.Session
}

func newMemSessions() *memSessions {
	return &memSessions{data: map[string]*session.Session{}}
}

func (m *memSessions) clone(s *session.Session) *session.Session {
	b, _ := json.Marshal(s)
	var out session.Session
	_ = json.Unmarshal(b, &out)
	return &out
}

func (m *memSessions) Create(_ context.Context, s *session.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[s.ID] = m.clone(s)
	return nil
}

func (m *memSessions) Get(_ context.Context, id string) (*session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.data[id]
	if !ok {
		return nil, session.ErrNotFound
	}
	return m.clone(s), nil
}

func (m *memSessions) Update(_ context.Context, s *session.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[s.ID]; !ok {
		return session.ErrNotFound
	}
	m.data[s.ID] = m.clone(s)
	return nil
}

type memProfiles struct {
	mu   sync.Mutex
	data map[string]*profile.Profile
}

func newMemProfiles() *memProfiles {
	return &memProfiles{data: map[string]*profile.Profile{}}
}

func (m *memProfiles) get(learnerID string) *profile.Profile {
	p, ok := m.data[learnerID]
	if !ok {
		p = &profile.Profile{LearnerID: learnerID}
		m.data[learnerID] = p
	}
	return p
}

func (m *memProfiles) Get(_ context.Context, learnerID string) (*profile.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.get(learnerID)
	cp := *p
	cp.CompletedItems = append([]string(nil), p.CompletedItems...)
	return &cp, nil
}

func (m *memProfiles) MarkItemCompleted(_ context.Context, learnerID, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.get(learnerID)
	if !p.HasCompleted(itemID) {
		p.CompletedItems = append(p.CompletedItems, itemID)
	}
	return nil
}

func (m *memProfiles) AddXP(_ context.Context, learnerID string, amount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.get(learnerID).XP += amount
	return nil
}

func (m *memProfiles) SetMastery(_ context.Context, learnerID, topic string, score float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.get(learnerID)
	if p.Mastery == nil {
		p.Mastery = map[string]float64{}
	}
	p.Mastery[topic] = score
	return nil
}

func (m *memProfiles) SetCurrentSession(_ context.Context, learnerID, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.get(learnerID).CurrentSessionID = sessionID
	return nil
}

func q1Item() *catalog.Item {
	return &catalog.Item{
		ID:          "ALGEBRA-INTRODUCTION-TO-ALGEBRA-Q1",
		Topic:       "algebra",
		Subtopic:    "1.1 Introduction to Algebra",
		Title:       "Marbles",
		Complexity:  catalog.ComplexityMedium,
		Marks:       2,
		ProblemText: "Sam has b marbles and buys 4 more. How many now?",
		AnswerDetails: &catalog.AnswerDetails{
			CorrectAnswer: "b+4",
		},
		Guidance: &catalog.Guidance{
			Hints: []catalog.Hint{
				{Level: 1, Text: "What does 'buys more' suggest?"},
				{Level: 2, Text: "Start from b and add."},
			},
		},
		Evaluation: catalog.EvaluationRules{LLMFallback: true},
	}
}

func q2Item() *catalog.Item {
	return &catalog.Item{
		ID:          "ALGEBRA-INTRODUCTION-TO-ALGEBRA-Q2",
		Topic:       "algebra",
		Subtopic:    "1.1 Introduction to Algebra",
		Title:       "Stickers",
		Complexity:  catalog.ComplexityEasy,
		Marks:       1,
		ProblemText: "p",
		AnswerDetails: &catalog.AnswerDetails{
			CorrectAnswer: "s-3",
		},
		Evaluation: catalog.EvaluationRules{LLMFallback: true},
	}
}

type fixture struct {
	orch     *Orchestrator
	sessions *memSessions
	profiles *memProfiles
	mock     *llm.MockProvider
}

func newFixture(t *testing.T, items ...*catalog.Item) *fixture {
	t.Helper()
	src := catalog.StaticSource{}
	for _, it := range items {
		src[it.ID] = it
	}
	c, err := catalog.New(context.Background(), src)
	require.NoError(t, err)

	mock := llm.NewMockProvider()
	f := &fixture{
		sessions: newMemSessions(),
		profiles: newMemProfiles(),
		mock:     mock,
	}
	eval := evaluator.DefaultCascade(judge.New(mock, judge.DefaultConfig()))
	f.orch = New(c, f.sessions, f.profiles, eval, nil)
	return f
}

func TestStart_UnknownItem(t *testing.T) {
	f := newFixture(t, q1Item())

	_, err := f.orch.Start(context.Background(), "learner-1", "NO-SUCH-ITEM")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "item", nf.Kind)
	assert.Equal(t, "NO-SUCH-ITEM", nf.ID)
}

func TestStart_CreatesSessionAndBindsProfile(t *testing.T) {
	f := newFixture(t, q1Item())
	ctx := context.Background()

	res, err := f.orch.Start(ctx, "learner-1", "ALGEBRA-INTRODUCTION-TO-ALGEBRA-Q1")
	require.NoError(t, err)
	assert.Contains(t, res.Greeting, "Sam has b marbles")

	got, err := f.orch.Get(ctx, res.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, "learner-1", got.LearnerID)
	require.Len(t, got.Conversation, 2)
	assert.Equal(t, session.RoleSystem, got.Conversation[0].Role)
	assert.Equal(t, session.RoleTutor, got.Conversation[1].Role)

	p, _ := f.profiles.Get(ctx, "learner-1")
	assert.Equal(t, res.Session.ID, p.CurrentSessionID)
}

func TestStartAdaptive_ResolvesSlugAndSkipsCompleted(t *testing.T) {
	f := newFixture(t, q1Item(), q2Item())
	ctx := context.Background()
	require.NoError(t, f.profiles.MarkItemCompleted(ctx, "learner-1", "ALGEBRA-INTRODUCTION-TO-ALGEBRA-Q1"))

	res, err := f.orch.StartAdaptive(ctx, "learner-1", "introduction-to-algebra")
	require.NoError(t, err)
	assert.Equal(t, "ALGEBRA-INTRODUCTION-TO-ALGEBRA-Q2", res.Session.ItemID)
	assert.NotEqual(t, "", string(res.ResolvedBy))
}

func TestStartAdaptive_UnresolvedListsTopics(t *testing.T) {
	f := newFixture(t, q1Item())

	_, err := f.orch.StartAdaptive(context.Background(), "learner-1", "calculus")
	var ut *UnresolvedTopicError
	require.ErrorAs(t, err, &ut)
	assert.Equal(t, []string{"algebra"}, ut.AvailableTopics)
}

func TestStep_CorrectFinishesAndAwardsXP(t *testing.T) {
	f := newFixture(t, q1Item(), q2Item())
	ctx := context.Background()

	start, err := f.orch.Start(ctx, "learner-1", "ALGEBRA-INTRODUCTION-TO-ALGEBRA-Q1")
	require.NoError(t, err)

	res, err := f.orch.Step(ctx, start.Session.ID, "b+4")
	require.NoError(t, err)
	require.NotNil(t, res.Correct)
	assert.True(t, *res.Correct)
	assert.True(t, res.Finished)
	assert.True(t, res.Success)
	// Medium (15) times 2 marks.
	assert.Equal(t, 30, res.XPAwarded)
	assert.Equal(t, "ALGEBRA-INTRODUCTION-TO-ALGEBRA-Q2", res.NextItemID)
	assert.Contains(t, res.CompletionMessage, "Stickers")

	p, _ := f.profiles.Get(ctx, "learner-1")
	assert.Equal(t, 30, p.XP)
	assert.True(t, p.HasCompleted("ALGEBRA-INTRODUCTION-TO-ALGEBRA-Q1"))
	assert.Empty(t, p.CurrentSessionID)
}

func TestStep_CorrectUpdatesMastery(t *testing.T) {
	f := newFixture(t, q1Item(), q2Item())
	ctx := context.Background()

	start, err := f.orch.Start(ctx, "learner-1", "ALGEBRA-INTRODUCTION-TO-ALGEBRA-Q1")
	require.NoError(t, err)
	_, err = f.orch.Step(ctx, start.Session.ID, "b+4")
	require.NoError(t, err)

	p, _ := f.profiles.Get(ctx, "learner-1")
	// Medium (0.6) completed out of Medium+Easy (0.9) total weight.
	assert.InDelta(t, 0.6/0.9, p.Mastery["algebra"], 1e-9)
}

func TestStep_IncorrectIncrementsAttemptsAndHints(t *testing.T) {
	f := newFixture(t, q1Item())
	ctx := context.Background()

	f.mock.AddResponse(llm.MockResponse{Content: json.RawMessage(`{
		"is_correct": false, "feedback": "Think about addition.", "should_advance": false,
		"misconception_tags": ["treats-variable-as-label"], "confidence_level": 0.8
	}`)})

	start, err := f.orch.Start(ctx, "learner-1", "ALGEBRA-INTRODUCTION-TO-ALGEBRA-Q1")
	require.NoError(t, err)

	res, err := f.orch.Step(ctx, start.Session.ID, "b minus 4")
	require.NoError(t, err)
	require.NotNil(t, res.Correct)
	assert.False(t, *res.Correct)
	assert.False(t, res.Finished)
	assert.Contains(t, res.Feedback, "Think about addition.")

	s, err := f.orch.Get(ctx, start.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, s.AttemptsCurrent)
	assert.Equal(t, 1, s.HintsUsed)
	require.Contains(t, s.Misconceptions, "treats-variable-as-label")
	assert.Equal(t, 1, s.Misconceptions["treats-variable-as-label"].Count)
}

func TestStep_UnknownVerdictDoesNotChargeAttempt(t *testing.T) {
	f := newFixture(t, q1Item())
	ctx := context.Background()

	f.mock.AddResponse(llm.MockResponse{Content: json.RawMessage(`garbled`)})

	start, err := f.orch.Start(ctx, "learner-1", "ALGEBRA-INTRODUCTION-TO-ALGEBRA-Q1")
	require.NoError(t, err)

	res, err := f.orch.Step(ctx, start.Session.ID, "something odd")
	require.NoError(t, err)
	assert.Nil(t, res.Correct)
	assert.Equal(t, evaluator.RetryMessage, res.Feedback)

	s, err := f.orch.Get(ctx, start.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, s.AttemptsCurrent)
	assert.False(t, s.Finished)
	require.Len(t, s.Steps, 1)
	assert.Nil(t, s.Steps[0].Correct)
}

func TestStep_FinishedSessionIsIdempotent(t *testing.T) {
	f := newFixture(t, q1Item())
	ctx := context.Background()

	start, err := f.orch.Start(ctx, "learner-1", "ALGEBRA-INTRODUCTION-TO-ALGEBRA-Q1")
	require.NoError(t, err)
	_, err = f.orch.Step(ctx, start.Session.ID, "b+4")
	require.NoError(t, err)

	replay, err := f.orch.Step(ctx, start.Session.ID, "b+4")
	require.NoError(t, err)
	assert.True(t, replay.Finished)
	assert.True(t, replay.Success)
	assert.Equal(t, 0, replay.XPAwarded)

	p, _ := f.profiles.Get(ctx, "learner-1")
	assert.Equal(t, 30, p.XP)
	assert.Equal(t, []string{"ALGEBRA-INTRODUCTION-TO-ALGEBRA-Q1"}, p.CompletedItems)
}

func TestStep_RecompletingItemAwardsNoXP(t *testing.T) {
	f := newFixture(t, q1Item())
	ctx := context.Background()

	first, err := f.orch.Start(ctx, "learner-1", "ALGEBRA-INTRODUCTION-TO-ALGEBRA-Q1")
	require.NoError(t, err)
	_, err = f.orch.Step(ctx, first.Session.ID, "b+4")
	require.NoError(t, err)

	second, err := f.orch.Start(ctx, "learner-1", "ALGEBRA-INTRODUCTION-TO-ALGEBRA-Q1")
	require.NoError(t, err)
	res, err := f.orch.Step(ctx, second.Session.ID, "b+4")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 0, res.XPAwarded)

	p, _ := f.profiles.Get(ctx, "learner-1")
	assert.Equal(t, 30, p.XP)
}

func TestStep_MultiStepAdvances(t *testing.T) {
	it := &catalog.Item{
		ID:          "ALGEBRA-SOLVING-LINEAR-EQUATIONS-Q1",
		Topic:       "algebra",
		Subtopic:    "1.5 Solving Linear Equations",
		Complexity:  catalog.ComplexityHard,
		Marks:       1,
		ProblemText: "Solve 2x + 3 = 11.",
		Steps: []catalog.Step{
			{ID: "isolate", Prompt: "First, what is 2x equal to?"},
			{ID: "solve", Prompt: "Now, what is x?"},
		},
		Evaluation: catalog.EvaluationRules{
			Patterns: []catalog.AnswerPattern{{EquivalentTo: "8"}, {EquivalentTo: "4"}},
		},
	}
	f := newFixture(t, it)
	ctx := context.Background()

	start, err := f.orch.Start(ctx, "learner-1", it.ID)
	require.NoError(t, err)
	assert.Contains(t, start.Greeting, "First, what is 2x equal to?")

	res, err := f.orch.Step(ctx, start.Session.ID, "8")
	require.NoError(t, err)
	assert.False(t, res.Finished)
	assert.Equal(t, 1, res.StepIndex)
	assert.Contains(t, res.Feedback, "Now, what is x?")

	res, err = f.orch.Step(ctx, start.Session.ID, "4")
	require.NoError(t, err)
	assert.True(t, res.Finished)
	assert.True(t, res.Success)
	// Hard (20) times 1 mark.
	assert.Equal(t, 20, res.XPAwarded)
}

func TestEnd_Idempotent(t *testing.T) {
	f := newFixture(t, q1Item())
	ctx := context.Background()

	start, err := f.orch.Start(ctx, "learner-1", "ALGEBRA-INTRODUCTION-TO-ALGEBRA-Q1")
	require.NoError(t, err)

	s, err := f.orch.End(ctx, start.Session.ID)
	require.NoError(t, err)
	assert.True(t, s.Finished)
	assert.False(t, s.Success)

	again, err := f.orch.End(ctx, start.Session.ID)
	require.NoError(t, err)
	assert.True(t, again.Finished)

	p, _ := f.profiles.Get(ctx, "learner-1")
	assert.Empty(t, p.CurrentSessionID)
}

func TestFinishedSessionsReleaseTheirLocks(t *testing.T) {
	f := newFixture(t, q1Item())
	ctx := context.Background()

	lockCount := func() int {
		f.orch.mu.Lock()
		defer f.orch.mu.Unlock()
		return len(f.orch.locks)
	}

	solved, err := f.orch.Start(ctx, "learner-1", "ALGEBRA-INTRODUCTION-TO-ALGEBRA-Q1")
	require.NoError(t, err)
	_, err = f.orch.Step(ctx, solved.Session.ID, "b+4")
	require.NoError(t, err)
	assert.Equal(t, 0, lockCount())

	abandoned, err := f.orch.Start(ctx, "learner-1", "ALGEBRA-INTRODUCTION-TO-ALGEBRA-Q1")
	require.NoError(t, err)
	_, err = f.orch.End(ctx, abandoned.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, lockCount())

	// Replaying a finished session must not leave a fresh entry behind.
	_, err = f.orch.Step(ctx, solved.Session.ID, "b+4")
	require.NoError(t, err)
	assert.Equal(t, 0, lockCount())
}

func TestEnd_UnknownSession(t *testing.T) {
	f := newFixture(t, q1Item())

	_, err := f.orch.End(context.Background(), "ghost")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "session", nf.Kind)
}

func TestProgressionStatus(t *testing.T) {
	f := newFixture(t, q1Item(), q2Item())
	ctx := context.Background()
	require.NoError(t, f.profiles.MarkItemCompleted(ctx, "learner-1", "ALGEBRA-INTRODUCTION-TO-ALGEBRA-Q1"))

	st, p, err := f.orch.ProgressionStatus(ctx, "learner-1", "algebra")
	require.NoError(t, err)
	assert.Equal(t, 2, st.TotalItems)
	assert.Equal(t, 1, st.CompletedItems)
	assert.Equal(t, "ALGEBRA-INTRODUCTION-TO-ALGEBRA-Q2", st.NextItemID)
	assert.Equal(t, "learner-1", p.LearnerID)
}
