// Package evaluator decides whether a learner's free-form answer is
// correct. It runs an ordered cascade of strategies — deterministic
// pattern match, symbolic equivalence, natural-language judge — and
// stops at the first one that produces a verdict.
package evaluator

import (
	"context"

	"github.com/abhisek/tutord/internal/catalog"
	"github.com/abhisek/tutord/internal/session"
)

// Correctness is the tri-state evaluation verdict.
type Correctness int

const (
	// Unknown means no strategy could produce a verdict; the caller
	// must not count the attempt.
	Unknown Correctness = iota
	Incorrect
	Correct
)

func (c Correctness) String() string {
	switch c {
	case Correct:
		return "correct"
	case Incorrect:
		return "incorrect"
	default:
		return "unknown"
	}
}

// Status is a single strategy's outcome.
type Status int

const (
	// Inapplicable: the strategy does not apply to this item.
	Inapplicable Status = iota
	// NotMatched: the strategy ran but produced no verdict.
	NotMatched
	// Matched: the strategy produced a verdict; the cascade stops.
	Matched
)

// Input is everything a strategy may consult. Evaluation is pure: the
// session is read, never written.
type Input struct {
	Response string
	Item     *catalog.Item
	Step     catalog.Step
	Attempts int
	Session  *session.Session
}

// Metadata carries evaluation side-channel data for the caller to
// persist.
type Metadata struct {
	Strategy        string
	LearningInsight string
	Misconceptions  []string
	ConfidenceLevel float64
	// Err is set when the verdict is Unknown: the judge failed or
	// violated its response contract.
	Err error
}

// Result is the evaluator's caller-facing outcome.
type Result struct {
	Correctness Correctness
	Feedback    string
	Hint        string
	Metadata    Metadata
}

// Outcome is what one strategy reports back to the cascade.
type Outcome struct {
	Status Status
	Result Result
	// Err aborts the cascade with an Unknown verdict. Only the judge
	// sets it; deterministic strategies degrade to NotMatched instead.
	Err error
}

// Strategy is one rung of the evaluation cascade.
type Strategy interface {
	Name() string
	Evaluate(ctx context.Context, in Input) Outcome
}

// RetryMessage is shown when evaluation is temporarily unavailable.
const RetryMessage = "I'm taking a moment to process your answer. Please try submitting it again!"

// Evaluator runs the strategy cascade.
type Evaluator struct {
	strategies []Strategy
}

// New builds an Evaluator over an explicit strategy order.
func New(strategies ...Strategy) *Evaluator {
	return &Evaluator{strategies: strategies}
}

// Evaluate runs the cascade. It returns an error only for a malformed
// item — an item that declares no way to be answered. Judge failures
// are not errors: they yield a Result with Correctness=Unknown and
// Metadata.Err set, and the session must stay open.
func (e *Evaluator) Evaluate(ctx context.Context, in Input) (Result, error) {
	if err := checkItem(in.Item); err != nil {
		return Result{}, err
	}

	for _, s := range e.strategies {
		out := s.Evaluate(ctx, in)
		switch {
		case out.Err != nil:
			return Result{
				Correctness: Unknown,
				Feedback:    RetryMessage,
				Hint:        PickHint(in.Step.Hints, in.Attempts),
				Metadata:    Metadata{Strategy: s.Name(), Err: out.Err},
			}, nil
		case out.Status == Matched:
			res := out.Result
			res.Metadata.Strategy = s.Name()
			return res, nil
		}
	}

	// No strategy produced a verdict: fall back to the hint ladder.
	return Result{
		Correctness: Incorrect,
		Hint:        PickHint(in.Step.Hints, in.Attempts),
		Metadata:    Metadata{Strategy: "hint-ladder"},
	}, nil
}

// checkItem guards against items that slipped past ingestion with no
// answerable content. Such an item must fail loudly, never be treated
// as "no answer accepted".
func checkItem(it *catalog.Item) error {
	if it == nil {
		return &catalog.ErrMalformedItem{ItemID: "(nil)", Reason: "no item supplied"}
	}
	if len(it.Steps) == 0 && len(it.AcceptedAnswers()) == 0 && !it.Evaluation.LLMFallback {
		return &catalog.ErrMalformedItem{
			ItemID: it.ID,
			Reason: "item declares no accepted answers, no steps and no judge fallback",
		}
	}
	return nil
}
