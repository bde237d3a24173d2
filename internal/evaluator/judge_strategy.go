package evaluator

import (
	"context"

	"github.com/abhisek/tutord/internal/judge"
)

// conversationExcerpt is how many transcript turns accompany a judge
// request.
const conversationExcerpt = 6

// insightExcerpt is how many prior learning insights accompany a judge
// request.
const insightExcerpt = 5

// JudgeStrategy hands the evaluation to the natural-language judge.
// Unlike the deterministic strategies it produces a verdict either way
// — correct or incorrect with tutoring feedback. A failed or malformed
// judge response aborts the cascade with an Unknown verdict.
type JudgeStrategy struct {
	Judge *judge.Judge
}

func (JudgeStrategy) Name() string { return "judge" }

func (j JudgeStrategy) Evaluate(ctx context.Context, in Input) Outcome {
	if j.Judge == nil || !in.Item.Evaluation.LLMFallback {
		return Outcome{Status: Inapplicable}
	}

	req := judge.Request{
		ProblemText:     in.Item.ProblemText,
		AcceptedAnswers: in.Item.AcceptedAnswers(),
		LearnerResponse: in.Response,
		AttemptNumber:   in.Attempts,
	}
	if len(in.Item.Steps) > 0 {
		req.StepPrompt = in.Step.Prompt
	}
	if g := in.Item.Guidance; g != nil {
		req.Guidance = judge.Guidance{
			Keywords:       g.Keywords,
			Misconceptions: g.Misconceptions,
			FullSolution:   g.FullSolution,
		}
		for _, h := range g.Hints {
			req.Guidance.Hints = append(req.Guidance.Hints, h.Text)
		}
	}
	if in.Session != nil {
		for _, turn := range in.Session.RecentConversation(conversationExcerpt) {
			req.Conversation = append(req.Conversation, judge.Turn{
				Role:    string(turn.Role),
				Message: turn.Message,
			})
		}
		req.PriorInsights = in.Session.RecentInsights(insightExcerpt)
	}

	verdict, err := j.Judge.Evaluate(ctx, req)
	if err != nil {
		return Outcome{Err: err}
	}

	res := Result{
		Feedback: verdict.Feedback,
		Metadata: Metadata{
			LearningInsight: verdict.LearningInsight,
			Misconceptions:  verdict.Misconceptions,
			ConfidenceLevel: verdict.ConfidenceLevel,
		},
	}
	// Advancing takes both: a partially right answer can be judged
	// correct-so-far while the learner still has work to do on the step.
	if verdict.IsCorrect && verdict.ShouldAdvance {
		res.Correctness = Correct
	} else {
		res.Correctness = Incorrect
		res.Hint = verdict.Feedback
	}
	return Outcome{Status: Matched, Result: res}
}

// DefaultCascade assembles the standard strategy order: deterministic
// pattern match, then symbolic equivalence, then the judge. A nil
// judge simply drops the last rung.
func DefaultCascade(j *judge.Judge) *Evaluator {
	return New(
		PatternStrategy{},
		NewSymbolicStrategy(),
		JudgeStrategy{Judge: j},
	)
}
