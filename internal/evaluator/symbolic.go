package evaluator

import (
	"context"

	"github.com/abhisek/tutord/internal/algebra"
)

// SymbolicStrategy tests algebraic equivalence between the response and
// each accepted target. It only applies to items that declare
// algebraic_equivalence; a parse failure is "no match", never an error.
type SymbolicStrategy struct {
	Checker *algebra.Checker
}

// NewSymbolicStrategy builds the strategy with a default checker.
func NewSymbolicStrategy() SymbolicStrategy {
	return SymbolicStrategy{Checker: algebra.NewChecker()}
}

func (SymbolicStrategy) Name() string { return "symbolic" }

func (s SymbolicStrategy) Evaluate(_ context.Context, in Input) Outcome {
	if !in.Item.Evaluation.AlgebraicEquivalence {
		return Outcome{Status: Inapplicable}
	}

	for _, target := range in.Item.AcceptedAnswers() {
		if s.Checker.AreEquivalent(in.Response, target) {
			return Outcome{
				Status: Matched,
				Result: Result{
					Correctness: Correct,
					Feedback:    "Nice work. Next step coming up.",
				},
			}
		}
	}
	return Outcome{Status: NotMatched}
}
