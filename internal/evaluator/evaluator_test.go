package evaluator

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/tutord/internal/catalog"
	"github.com/abhisek/tutord/internal/judge"
	"github.com/abhisek/tutord/internal/llm"
	"github.com/abhisek/tutord/internal/session"
)

func algebraItem() *catalog.Item {
	return &catalog.Item{
		ID:          "ALGEBRA-INTRODUCTION-TO-ALGEBRA-Q1",
		Topic:       "algebra",
		Subtopic:    "1.1 Introduction to Algebra",
		Complexity:  catalog.ComplexityEasy,
		Marks:       1,
		ProblemText: "Sam has b marbles and buys 4 more. How many does he have now?",
		AnswerDetails: &catalog.AnswerDetails{
			CorrectAnswer:      "b+4",
			AlternativeAnswers: []string{"4+b"},
		},
		Guidance: &catalog.Guidance{
			Hints: []catalog.Hint{
				{Level: 1, Text: "What operation does 'buys more' suggest?"},
				{Level: 2, Text: "Start from b and add something."},
				{Level: 3, Text: "Write b plus 4 as an expression."},
			},
		},
		Evaluation: catalog.EvaluationRules{
			Patterns:             []catalog.AnswerPattern{{EquivalentTo: "b+4"}},
			AlgebraicEquivalence: true,
			LLMFallback:          true,
		},
	}
}

func inputFor(it *catalog.Item, response string, attempts int) Input {
	step, _ := it.StepAt(0)
	return Input{
		Response: response,
		Item:     it,
		Step:     step,
		Attempts: attempts,
		Session:  session.New("learner-1", it.ID),
	}
}

func TestEvaluate_PatternVariants(t *testing.T) {
	ev := DefaultCascade(nil)
	it := algebraItem()

	for _, resp := range []string{"b+4", "B + 4", " b +4 ", "4+b", "4 + B"} {
		res, err := ev.Evaluate(context.Background(), inputFor(it, resp, 0))
		require.NoError(t, err, resp)
		assert.Equal(t, Correct, res.Correctness, resp)
		assert.Equal(t, "pattern", res.Metadata.Strategy, resp)
	}
}

func TestEvaluate_RegexPattern(t *testing.T) {
	it := algebraItem()
	it.Evaluation.Patterns = []catalog.AnswerPattern{{EquivalentTo: `b\+4|4\+b`}}
	it.AnswerDetails = nil

	ev := DefaultCascade(nil)
	res, err := ev.Evaluate(context.Background(), inputFor(it, "4+b", 0))
	require.NoError(t, err)
	assert.Equal(t, Correct, res.Correctness)
}

func TestEvaluate_SymbolicEquivalence(t *testing.T) {
	ev := DefaultCascade(nil)
	it := algebraItem()

	// "(b)+(4)" is no pattern match but is algebraically equivalent.
	res, err := ev.Evaluate(context.Background(), inputFor(it, "(b)+(4)", 0))
	require.NoError(t, err)
	assert.Equal(t, Correct, res.Correctness)
	assert.Equal(t, "symbolic", res.Metadata.Strategy)

	res, err = ev.Evaluate(context.Background(), inputFor(it, "b+5", 0))
	require.NoError(t, err)
	assert.Equal(t, Incorrect, res.Correctness)
}

func TestEvaluate_SymbolicSkippedWhenNotDeclared(t *testing.T) {
	it := algebraItem()
	it.Evaluation.AlgebraicEquivalence = false

	ev := DefaultCascade(nil)
	res, err := ev.Evaluate(context.Background(), inputFor(it, "(b)+(4)", 0))
	require.NoError(t, err)
	assert.Equal(t, Incorrect, res.Correctness)
}

func TestEvaluate_JudgeVerdict(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(`{
		"is_correct": false,
		"feedback": "Think about what 'buys more' means.",
		"should_advance": false,
		"misconception_tags": ["treats-variable-as-label"],
		"confidence_level": 0.7
	}`)})
	ev := DefaultCascade(judge.New(mock, judge.DefaultConfig()))

	res, err := ev.Evaluate(context.Background(), inputFor(algebraItem(), "b times 4", 1))
	require.NoError(t, err)
	assert.Equal(t, Incorrect, res.Correctness)
	assert.Equal(t, "judge", res.Metadata.Strategy)
	assert.Equal(t, "Think about what 'buys more' means.", res.Hint)
	assert.Equal(t, []string{"treats-variable-as-label"}, res.Metadata.Misconceptions)
}

func TestEvaluate_JudgeCorrectWithoutAdvanceStaysOpen(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(`{
		"is_correct": true,
		"feedback": "Right idea. Now write it as a single expression.",
		"should_advance": false
	}`)})
	ev := DefaultCascade(judge.New(mock, judge.DefaultConfig()))

	res, err := ev.Evaluate(context.Background(), inputFor(algebraItem(), "b plus four", 0))
	require.NoError(t, err)
	assert.Equal(t, Incorrect, res.Correctness)
	assert.Equal(t, "Right idea. Now write it as a single expression.", res.Hint)
}

func TestEvaluate_JudgeFailureIsUnknown(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(`not even json`)})
	ev := DefaultCascade(judge.New(mock, judge.DefaultConfig()))

	res, err := ev.Evaluate(context.Background(), inputFor(algebraItem(), "b times 4", 2))
	require.NoError(t, err)
	assert.Equal(t, Unknown, res.Correctness)
	assert.Error(t, res.Metadata.Err)
	assert.Equal(t, RetryMessage, res.Feedback)
}

func TestEvaluate_NoJudgeFallsBackToHintLadder(t *testing.T) {
	ev := DefaultCascade(nil)
	it := algebraItem()

	res, err := ev.Evaluate(context.Background(), inputFor(it, "b-4", 0))
	require.NoError(t, err)
	assert.Equal(t, Incorrect, res.Correctness)
	assert.Equal(t, "What operation does 'buys more' suggest?", res.Hint)
	assert.Equal(t, "hint-ladder", res.Metadata.Strategy)
}

func TestEvaluate_MalformedItem(t *testing.T) {
	it := &catalog.Item{ID: "BROKEN-Q1", ProblemText: "?"}
	ev := DefaultCascade(nil)

	_, err := ev.Evaluate(context.Background(), inputFor(it, "anything", 0))
	require.Error(t, err)

	var malformed *catalog.ErrMalformedItem
	assert.ErrorAs(t, err, &malformed)
}
