package evaluator

import (
	"context"
	"regexp"
	"strings"
)

// PatternStrategy matches the normalized response against each
// accepted-answer pattern, first as an exact string, then as a full
// regular expression. A match is terminal and correct.
type PatternStrategy struct{}

func (PatternStrategy) Name() string { return "pattern" }

func (PatternStrategy) Evaluate(_ context.Context, in Input) Outcome {
	accepted := in.Item.AcceptedAnswers()
	if len(accepted) == 0 {
		return Outcome{Status: Inapplicable}
	}

	got := normalizeResponse(in.Response)
	if got == "" {
		return Outcome{Status: NotMatched}
	}

	for _, want := range accepted {
		if got == normalizeResponse(want) {
			return matchedCorrect()
		}
		// Patterns may be regular expressions over the normalized
		// response. An invalid pattern is just not a regex match.
		re, err := regexp.Compile("^(?:" + want + ")$")
		if err == nil && re.MatchString(got) {
			return matchedCorrect()
		}
	}
	return Outcome{Status: NotMatched}
}

func matchedCorrect() Outcome {
	return Outcome{
		Status: Matched,
		Result: Result{
			Correctness: Correct,
			Feedback:    "Great! Let's go to the next step.",
		},
	}
}

// normalizeResponse strips all whitespace and lower-cases, so "B + 4"
// and "b+4" compare equal.
func normalizeResponse(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), ""))
}
