// Package judge implements the natural-language answer judge: it sends
// the problem, the accepted answers, the tutoring guidance and the
// recent conversation to an LLM and expects a structured verdict back.
// A malformed verdict is a contract violation surfaced as an error —
// the judge never guesses.
package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"text/template"
	"time"

	"github.com/abhisek/tutord/internal/llm"
)

// Config holds judge tuning knobs.
type Config struct {
	MaxTokens   int
	Temperature float64
	// Timeout bounds one evaluation. The learner is waiting.
	Timeout time.Duration
}

// DefaultConfig returns defaults suited to short tutoring verdicts.
func DefaultConfig() Config {
	return Config{
		MaxTokens:   512,
		Temperature: 0.3,
		Timeout:     15 * time.Second,
	}
}

// Judge evaluates free-form learner answers via an LLM provider.
type Judge struct {
	provider llm.Provider
	cfg      Config
}

// New creates a Judge over the given provider.
func New(provider llm.Provider, cfg Config) *Judge {
	return &Judge{provider: provider, cfg: cfg}
}

// Guidance is the tutoring context for one item.
type Guidance struct {
	Keywords       []string
	Misconceptions map[string]string
	Hints          []string
	FullSolution   string
}

// Turn is one conversation excerpt entry.
type Turn struct {
	Role    string
	Message string
}

// Request carries everything the judge needs for one evaluation.
type Request struct {
	ProblemText     string
	StepPrompt      string
	AcceptedAnswers []string
	Guidance        Guidance
	Conversation    []Turn
	PriorInsights   []string
	LearnerResponse string
	AttemptNumber   int
}

// Verdict is the judge's structured assessment.
type Verdict struct {
	IsCorrect       bool
	Feedback        string
	ShouldAdvance   bool
	LearningInsight string
	Misconceptions  []string
	ConfidenceLevel float64
}

// verdictOutput mirrors the wire shape. Required fields are pointers so
// a missing field is distinguishable from a zero value.
type verdictOutput struct {
	IsCorrect       *bool    `json:"is_correct"`
	Feedback        *string  `json:"feedback"`
	ShouldAdvance   *bool    `json:"should_advance"`
	LearningInsight string   `json:"learning_insight"`
	Misconceptions  []string `json:"misconception_tags"`
	ConfidenceLevel float64  `json:"confidence_level"`
}

// Evaluate runs one judged evaluation under the configured timeout.
func (j *Judge) Evaluate(ctx context.Context, req Request) (*Verdict, error) {
	ctx = llm.WithPurpose(ctx, "answer-judgment")
	if j.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.cfg.Timeout)
		defer cancel()
	}

	userMsg, err := buildJudgeMessage(req)
	if err != nil {
		return nil, fmt.Errorf("build judge prompt: %w", err)
	}

	resp, err := j.provider.Generate(ctx, llm.Request{
		System: judgeSystemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: userMsg},
		},
		Schema:      VerdictSchema,
		MaxTokens:   j.cfg.MaxTokens,
		Temperature: j.cfg.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("judge call failed: %w", err)
	}

	var raw verdictOutput
	if err := json.Unmarshal(resp.Content, &raw); err != nil {
		return nil, fmt.Errorf("judge returned unparsable verdict: %w", err)
	}
	if raw.IsCorrect == nil || raw.Feedback == nil || raw.ShouldAdvance == nil {
		return nil, fmt.Errorf("judge verdict missing required fields (is_correct/feedback/should_advance)")
	}

	return &Verdict{
		IsCorrect:       *raw.IsCorrect,
		Feedback:        *raw.Feedback,
		ShouldAdvance:   *raw.ShouldAdvance,
		LearningInsight: raw.LearningInsight,
		Misconceptions:  raw.Misconceptions,
		ConfidenceLevel: raw.ConfidenceLevel,
	}, nil
}

const judgeSystemPrompt = `You are a patient, encouraging Socratic math tutor for primary school learners. You assess whether a learner's free-form answer to a practice problem is correct, and you write the short tutoring message they see next.

Rules:
- Judge correctness against the accepted answers and the full solution, allowing mathematically equivalent forms.
- Speak in short, friendly sentences. Ask one question at a time.
- Never reveal the final answer in feedback for an incorrect attempt.
- If the answer reveals one of the known misconceptions, include its tag.
- learning_insight is one sentence about how this learner is thinking, or empty.`

var judgeUserTemplate = template.Must(template.New("judge").Parse(`Problem: {{.ProblemText}}
{{if .StepPrompt}}Current step: {{.StepPrompt}}
{{end}}Accepted answers: {{range $i, $a := .AcceptedAnswers}}{{if $i}}, {{end}}{{$a}}{{end}}
{{if .Guidance.FullSolution}}Full solution (never reveal): {{.Guidance.FullSolution}}
{{end}}{{if .Guidance.Keywords}}Keywords to look for: {{range $i, $k := .Guidance.Keywords}}{{if $i}}, {{end}}{{$k}}{{end}}
{{end}}{{if .Guidance.Misconceptions}}Known misconceptions:
{{range $tag, $desc := .Guidance.Misconceptions}}- {{$tag}}: {{$desc}}
{{end}}{{end}}{{if .PriorInsights}}Prior observations about this learner:
{{range .PriorInsights}}- {{.}}
{{end}}{{end}}{{if .Conversation}}Recent conversation:
{{range .Conversation}}[{{.Role}}] {{.Message}}
{{end}}{{end}}Learner's answer: {{.LearnerResponse}}
Attempts on this step so far: {{.AttemptNumber}}`))

func buildJudgeMessage(req Request) (string, error) {
	var buf bytes.Buffer
	if err := judgeUserTemplate.Execute(&buf, req); err != nil {
		return "", err
	}
	return buf.String(), nil
}
