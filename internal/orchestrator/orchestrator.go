// Package orchestrator drives the tutoring session state machine:
// starting sessions, evaluating step submissions, awarding XP and
// recommending the next item when one is finished.
package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/abhisek/tutord/internal/catalog"
	"github.com/abhisek/tutord/internal/evaluator"
	"github.com/abhisek/tutord/internal/mastery"
	"github.com/abhisek/tutord/internal/profile"
	"github.com/abhisek/tutord/internal/progression"
	"github.com/abhisek/tutord/internal/session"
)

// Orchestrator coordinates the catalog, the evaluator cascade and the
// persistence layer. Step calls for the same session are serialized by
// a per-session lock; different sessions proceed concurrently.
type Orchestrator struct {
	catalog  *catalog.Catalog
	sessions session.Repo
	profiles profile.Repo
	eval     *evaluator.Evaluator
	prog     *progression.Engine
	logger   *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New wires an Orchestrator. A nil logger is replaced with a no-op one.
func New(c *catalog.Catalog, sessions session.Repo, profiles profile.Repo, eval *evaluator.Evaluator, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		catalog:  c,
		sessions: sessions,
		profiles: profiles,
		eval:     eval,
		prog:     progression.New(c),
		logger:   logger,
		locks:    map[string]*sync.Mutex{},
	}
}

func (o *Orchestrator) sessionLock(id string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	l, ok := o.locks[id]
	if !ok {
		l = &sync.Mutex{}
		o.locks[id] = l
	}
	return l
}

// releaseLock drops a session's lock entry once the session is
// finished. A goroutine still waiting on the old mutex only ever
// observes the finished session read-only, so losing the entry is safe.
func (o *Orchestrator) releaseLock(id string) {
	o.mu.Lock()
	delete(o.locks, id)
	o.mu.Unlock()
}

// StartResult is what a learner sees when a session opens.
type StartResult struct {
	Session    *session.Session
	Item       *catalog.Item
	Greeting   string
	ResolvedBy progression.Method
}

// Start opens a session on a specific catalog item.
func (o *Orchestrator) Start(ctx context.Context, learnerID, itemID string) (*StartResult, error) {
	it, ok := o.catalog.GetItem(itemID)
	if !ok {
		return nil, &NotFoundError{Kind: "item", ID: itemID}
	}
	return o.start(ctx, learnerID, it, progression.ResolvedByCatalog)
}

// StartAdaptive opens a session on the next item a learner should do
// for a topic reference: an exact item id, a legacy topic slug or a
// subtopic name.
func (o *Orchestrator) StartAdaptive(ctx context.Context, learnerID, topicRef string) (*StartResult, error) {
	p, err := o.profiles.Get(ctx, learnerID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	res := o.prog.Resolve(topicRef, p.CompletedItems)
	if res.Method == progression.Unresolved {
		return nil, &UnresolvedTopicError{Ref: topicRef, AvailableTopics: res.AvailableTopics}
	}
	return o.start(ctx, learnerID, res.Item, res.Method)
}

func (o *Orchestrator) start(ctx context.Context, learnerID string, it *catalog.Item, method progression.Method) (*StartResult, error) {
	s := session.New(learnerID, it.ID)

	greeting := it.Prompt()
	if step, ok := it.StepAt(0); ok && len(it.Steps) > 0 {
		greeting += "\n\n" + step.Prompt
	}
	s.AddConversation(session.RoleSystem, "session started", map[string]string{
		"item_id":     it.ID,
		"resolved_by": string(method),
	})
	s.AddConversation(session.RoleTutor, greeting, nil)

	if err := o.sessions.Create(ctx, s); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	if err := o.profiles.SetCurrentSession(ctx, learnerID, s.ID); err != nil {
		return nil, fmt.Errorf("bind current session: %w", err)
	}

	o.logger.Info("session started",
		zap.String("session_id", s.ID),
		zap.String("learner_id", learnerID),
		zap.String("item_id", it.ID),
		zap.String("resolved_by", string(method)))

	return &StartResult{Session: s, Item: it, Greeting: greeting, ResolvedBy: method}, nil
}

// Get returns a session by id, for resuming or inspection.
func (o *Orchestrator) Get(ctx context.Context, sessionID string) (*session.Session, error) {
	s, err := o.sessions.Get(ctx, sessionID)
	if err == session.ErrNotFound {
		return nil, &NotFoundError{Kind: "session", ID: sessionID}
	}
	return s, err
}

// StepResult is the outcome of one submitted answer.
type StepResult struct {
	SessionID string
	// Correct is nil when the evaluation could not reach a verdict.
	Correct  *bool
	Feedback string
	Hint     string

	StepIndex int
	Finished  bool
	Success   bool

	XPAwarded         int
	NextItemID        string
	CompletionMessage string
}

// Step evaluates one learner submission. Steps on a finished session
// are idempotent and return the recorded outcome without re-evaluating
// or re-crediting. An evaluation that cannot reach a verdict leaves the
// attempt counter untouched and asks the learner to retry.
func (o *Orchestrator) Step(ctx context.Context, sessionID, response string) (*StepResult, error) {
	lock := o.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	s, err := o.sessions.Get(ctx, sessionID)
	if err == session.ErrNotFound {
		return nil, &NotFoundError{Kind: "session", ID: sessionID}
	}
	if err != nil {
		return nil, err
	}

	if s.Finished {
		o.releaseLock(sessionID)
		return o.finishedResult(s), nil
	}

	it, ok := o.catalog.GetItem(s.ItemID)
	if !ok {
		return nil, &NotFoundError{Kind: "item", ID: s.ItemID}
	}
	step, _ := it.StepAt(s.CurrentStep)

	res, err := o.eval.Evaluate(ctx, evaluator.Input{
		Response: response,
		Item:     it,
		Step:     step,
		Attempts: s.AttemptsCurrent,
		Session:  s,
	})
	if err != nil {
		return nil, err
	}

	s.AddConversation(session.RoleStudent, response, nil)

	switch res.Correctness {
	case evaluator.Unknown:
		return o.stepUnknown(ctx, s, step, response, res)
	case evaluator.Incorrect:
		return o.stepIncorrect(ctx, s, step, response, res)
	default:
		return o.stepCorrect(ctx, s, it, step, response, res)
	}
}

// finishedResult replays the terminal state of a finished session.
func (o *Orchestrator) finishedResult(s *session.Session) *StepResult {
	r := &StepResult{
		SessionID: s.ID,
		StepIndex: s.CurrentStep,
		Finished:  true,
		Success:   s.Success,
		Feedback:  "This session is already finished.",
	}
	if len(s.Steps) > 0 {
		r.Correct = s.Steps[len(s.Steps)-1].Correct
	}
	return r
}

// stepUnknown surfaces an evaluation failure without charging an
// attempt; the learner just resubmits.
func (o *Orchestrator) stepUnknown(ctx context.Context, s *session.Session, step catalog.Step, response string, res evaluator.Result) (*StepResult, error) {
	o.logger.Warn("evaluation unavailable",
		zap.String("session_id", s.ID),
		zap.Error(res.Metadata.Err))

	s.Steps = append(s.Steps, session.StepRecord{StepID: step.ID, Response: response, Correct: nil})
	s.AddConversation(session.RoleTutor, res.Feedback, map[string]string{"verdict": "unknown"})
	if err := o.sessions.Update(ctx, s); err != nil {
		return nil, fmt.Errorf("persist step: %w", err)
	}

	return &StepResult{
		SessionID: s.ID,
		StepIndex: s.CurrentStep,
		Feedback:  res.Feedback,
	}, nil
}

func (o *Orchestrator) stepIncorrect(ctx context.Context, s *session.Session, step catalog.Step, response string, res evaluator.Result) (*StepResult, error) {
	incorrect := false
	s.AttemptsCurrent++
	s.Steps = append(s.Steps, session.StepRecord{StepID: step.ID, Response: response, Correct: &incorrect})
	o.absorbMetadata(s, res)

	msg := res.Feedback
	if res.Hint != "" {
		if msg != "" && msg != res.Hint {
			msg += "\n\n" + res.Hint
		} else {
			msg = res.Hint
		}
		s.HintsUsed++
	}
	if msg == "" {
		msg = "Not quite. Have another look and try again."
	}
	s.AddConversation(session.RoleTutor, msg, map[string]string{"verdict": "incorrect"})

	if err := o.sessions.Update(ctx, s); err != nil {
		return nil, fmt.Errorf("persist step: %w", err)
	}

	correct := false
	return &StepResult{
		SessionID: s.ID,
		Correct:   &correct,
		Feedback:  msg,
		Hint:      res.Hint,
		StepIndex: s.CurrentStep,
	}, nil
}

func (o *Orchestrator) stepCorrect(ctx context.Context, s *session.Session, it *catalog.Item, step catalog.Step, response string, res evaluator.Result) (*StepResult, error) {
	right := true
	s.Steps = append(s.Steps, session.StepRecord{StepID: step.ID, Response: response, Correct: &right})
	o.absorbMetadata(s, res)

	result := &StepResult{
		SessionID: s.ID,
		Correct:   &right,
		Feedback:  res.Feedback,
		StepIndex: s.CurrentStep,
	}

	// Advance within a multi-step item; finish on the last step.
	if s.CurrentStep+1 < len(it.Steps) {
		s.CurrentStep++
		s.AttemptsCurrent = 0
		next, _ := it.StepAt(s.CurrentStep)
		msg := res.Feedback + "\n\n" + next.Prompt
		s.AddConversation(session.RoleTutor, msg, map[string]string{"verdict": "correct"})
		result.Feedback = msg
		result.StepIndex = s.CurrentStep
		if err := o.sessions.Update(ctx, s); err != nil {
			return nil, fmt.Errorf("persist step: %w", err)
		}
		return result, nil
	}

	s.Finished = true
	s.Success = true
	result.Finished = true
	result.Success = true

	xp := it.Complexity.BaseXP() * it.Marks
	result.XPAwarded = xp

	alreadyDone := false
	p, err := o.profiles.Get(ctx, s.LearnerID)
	if err == nil {
		alreadyDone = p.HasCompleted(it.ID)
	}
	if err := o.profiles.MarkItemCompleted(ctx, s.LearnerID, it.ID); err != nil {
		return nil, fmt.Errorf("mark completed: %w", err)
	}
	if alreadyDone {
		result.XPAwarded = 0
	} else if err := o.profiles.AddXP(ctx, s.LearnerID, xp); err != nil {
		return nil, fmt.Errorf("award xp: %w", err)
	}
	if err := o.profiles.SetCurrentSession(ctx, s.LearnerID, ""); err != nil {
		return nil, fmt.Errorf("clear current session: %w", err)
	}
	o.updateMastery(ctx, s.LearnerID, it.Topic)

	result.NextItemID, result.CompletionMessage = o.recommendAfter(ctx, s.LearnerID, it)
	msg := res.Feedback
	if msg == "" {
		msg = "That's correct. Well done!"
	}
	msg += "\n\n" + result.CompletionMessage
	result.Feedback = msg
	s.AddConversation(session.RoleTutor, msg, map[string]string{"verdict": "correct"})

	if err := o.sessions.Update(ctx, s); err != nil {
		return nil, fmt.Errorf("persist step: %w", err)
	}

	o.logger.Info("session finished",
		zap.String("session_id", s.ID),
		zap.String("item_id", it.ID),
		zap.Int("xp_awarded", result.XPAwarded),
		zap.String("next_item_id", result.NextItemID))

	o.releaseLock(s.ID)
	return result, nil
}

// absorbMetadata folds judge observations into the session record.
func (o *Orchestrator) absorbMetadata(s *session.Session, res evaluator.Result) {
	if res.Metadata.LearningInsight != "" {
		s.AddInsight(res.Metadata.LearningInsight, res.Metadata.ConfidenceLevel)
	}
	if len(res.Metadata.Misconceptions) > 0 {
		s.RecordMisconceptions(res.Metadata.Misconceptions, res.Metadata.ConfidenceLevel)
	}
}

// updateMastery recomputes the difficulty-weighted topic mastery after
// a completion. Mastery is derived data; a failure here is logged, not
// surfaced.
func (o *Orchestrator) updateMastery(ctx context.Context, learnerID, topic string) {
	if topic == "" {
		return
	}
	p, err := o.profiles.Get(ctx, learnerID)
	if err != nil {
		o.logger.Warn("mastery update skipped", zap.Error(err))
		return
	}
	done := p.CompletedSet()

	var completedWeight, totalWeight float64
	for _, it := range o.prog.DiscoverItems(topic) {
		w := it.Difficulty()
		totalWeight += w
		if done[it.ID] {
			completedWeight += w
		}
	}
	score := mastery.Score(completedWeight, totalWeight)
	if err := o.profiles.SetMastery(ctx, learnerID, topic, score); err != nil {
		o.logger.Warn("mastery update failed", zap.Error(err))
	}
}

// recommendAfter picks the next item in the same topic scope as the
// one just completed.
func (o *Orchestrator) recommendAfter(ctx context.Context, learnerID string, it *catalog.Item) (nextID, message string) {
	p, err := o.profiles.Get(ctx, learnerID)
	if err != nil {
		return "", "Great work on this one!"
	}

	scope := o.prog.DiscoverItems(it.Topic)
	if it.Subtopic != "" {
		if sub := progression.FilterBySubtopic(scope, it.Subtopic); len(sub) > 0 {
			scope = sub
		}
	}
	next := progression.RecommendNext(scope, p.CompletedItems)
	if next == nil {
		return "", "You've completed every question here. Amazing work!"
	}
	label := next.Title
	if label == "" {
		label = next.ID
	}
	return next.ID, fmt.Sprintf("Ready for the next one? Up next: %s.", label)
}

// End finishes a session without success. Ending an already finished
// session is a no-op.
func (o *Orchestrator) End(ctx context.Context, sessionID string) (*session.Session, error) {
	lock := o.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	s, err := o.sessions.Get(ctx, sessionID)
	if err == session.ErrNotFound {
		return nil, &NotFoundError{Kind: "session", ID: sessionID}
	}
	if err != nil {
		return nil, err
	}
	if s.Finished {
		o.releaseLock(sessionID)
		return s, nil
	}

	s.Finished = true
	s.AddConversation(session.RoleSystem, "session ended", nil)
	if err := o.sessions.Update(ctx, s); err != nil {
		return nil, fmt.Errorf("persist end: %w", err)
	}
	if err := o.profiles.SetCurrentSession(ctx, s.LearnerID, ""); err != nil {
		return nil, fmt.Errorf("clear current session: %w", err)
	}
	o.releaseLock(sessionID)
	return s, nil
}

// ProgressionStatus reports a learner's standing in a topic.
func (o *Orchestrator) ProgressionStatus(ctx context.Context, learnerID, topic string) (progression.Status, *profile.Profile, error) {
	p, err := o.profiles.Get(ctx, learnerID)
	if err != nil {
		return progression.Status{}, nil, fmt.Errorf("load profile: %w", err)
	}
	return o.prog.StatusFor(topic, p.CompletedItems), p, nil
}

// AvailableTopics lists what the catalog offers.
func (o *Orchestrator) AvailableTopics() []string {
	return o.prog.AvailableTopics()
}
