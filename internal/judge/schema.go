package judge

import "github.com/abhisek/tutord/internal/llm"

// VerdictSchema defines the JSON schema for judge verdicts.
// is_correct, feedback and should_advance are the contract; a response
// missing any of them is rejected.
var VerdictSchema = &llm.Schema{
	Name:        "answer-verdict",
	Description: "Assessment of a learner's free-form answer to a practice problem",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"is_correct": map[string]any{
				"type":        "boolean",
				"description": "Whether the learner's answer is correct",
			},
			"feedback": map[string]any{
				"type":        "string",
				"description": "Short tutoring message shown to the learner",
			},
			"should_advance": map[string]any{
				"type":        "boolean",
				"description": "Whether the learner should move past the current step",
			},
			"learning_insight": map[string]any{
				"type":        "string",
				"description": "One-sentence observation about how the learner is thinking, or empty",
			},
			"misconception_tags": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Tags of known misconceptions the answer reveals",
			},
			"confidence_level": map[string]any{
				"type":        "number",
				"minimum":     0.0,
				"maximum":     1.0,
				"description": "Judge confidence in this verdict",
			},
		},
		"required":             []any{"is_correct", "feedback", "should_advance"},
		"additionalProperties": false,
	},
}
