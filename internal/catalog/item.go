package catalog

import "encoding/json"

// Complexity is the coarse difficulty band of an item.
type Complexity string

const (
	ComplexityEasy   Complexity = "Easy"
	ComplexityMedium Complexity = "Medium"
	ComplexityHard   Complexity = "Hard"
)

// Difficulty returns the numeric difficulty in [0,1] for this band.
// The mapping is fixed: Easy→0.3, Medium→0.6, Hard→0.9. Unknown bands
// land in the middle so a malformed record doesn't distort ordering.
func (c Complexity) Difficulty() float64 {
	switch c {
	case ComplexityEasy:
		return 0.3
	case ComplexityMedium:
		return 0.6
	case ComplexityHard:
		return 0.9
	default:
		return 0.5
	}
}

// BaseXP returns the XP credited per mark for completing an item of
// this band. Easy=10, Medium=15, Hard=20.
func (c Complexity) BaseXP() int {
	switch c {
	case ComplexityMedium:
		return 15
	case ComplexityHard:
		return 20
	default:
		return 10
	}
}

// Hint is one rung of an item's hint ladder. Level 1 is the gentlest
// nudge; higher levels are progressively more explicit.
type Hint struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// Step is one prompt of a multi-step item.
type Step struct {
	ID     string `json:"id"`
	Prompt string `json:"prompt"`
	Hints  []Hint `json:"hints,omitempty"`
}

// AnswerPattern is one accepted-answer rule for deterministic matching.
// EquivalentTo is matched first as a normalized string and then as a
// full regular expression.
type AnswerPattern struct {
	EquivalentTo string `json:"equivalent_to"`
}

// EvaluationRules declares which evaluation strategies apply to an item.
// LLMFallback defaults to true: an authoring file opts out of the judge
// explicitly, it never loses it by omission.
type EvaluationRules struct {
	Patterns             []AnswerPattern `json:"regex,omitempty"`
	AlgebraicEquivalence bool            `json:"algebraic_equivalence,omitempty"`
	LLMFallback          bool            `json:"llm_fallback"`
}

// UnmarshalJSON applies the LLMFallback default when the key is absent
// from an evaluation object.
func (r *EvaluationRules) UnmarshalJSON(data []byte) error {
	type plain EvaluationRules
	tmp := plain{LLMFallback: true}
	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}
	*r = EvaluationRules(tmp)
	return nil
}

// Guidance carries the tutoring context handed to the natural-language
// judge: what to look for, which misconceptions the answer may reveal,
// and the full worked solution (never shown to the learner directly).
type Guidance struct {
	Keywords       []string          `json:"keywords,omitempty"`
	Misconceptions map[string]string `json:"misconceptions,omitempty"`
	Hints          []Hint            `json:"hints,omitempty"`
	FullSolution   string            `json:"full_solution,omitempty"`
}

// AnswerDetails is the single-step answer shape.
type AnswerDetails struct {
	CorrectAnswer      string   `json:"correct_answer"`
	AlternativeAnswers []string `json:"alternative_answers,omitempty"`
	AnswerFormat       string   `json:"answer_format,omitempty"`
}

// Item is a single practice problem. An item carries either an ordered
// list of Steps or the single-step AnswerDetails shape; ingestion
// rejects records with neither.
type Item struct {
	ID          string     `json:"id"`
	Topic       string     `json:"topic"`
	Subtopic    string     `json:"sub_topic"`
	Title       string     `json:"title"`
	Complexity  Complexity `json:"complexity"`
	Marks       int        `json:"marks"`
	ProblemText string     `json:"problem_text"`

	Steps         []Step          `json:"steps,omitempty"`
	AnswerDetails *AnswerDetails  `json:"answer_details,omitempty"`
	Guidance      *Guidance       `json:"ai_guidance,omitempty"`
	Evaluation    EvaluationRules `json:"evaluation"`

	// Version is the record schema version the item was ingested under.
	Version string `json:"version"`
}

// UnmarshalJSON applies the LLMFallback default when the item carries no
// evaluation object at all.
func (it *Item) UnmarshalJSON(data []byte) error {
	type plain Item
	tmp := plain{Evaluation: EvaluationRules{LLMFallback: true}}
	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}
	*it = Item(tmp)
	return nil
}

// Difficulty returns the derived numeric difficulty of the item.
func (it *Item) Difficulty() float64 {
	return it.Complexity.Difficulty()
}

// StepAt returns the step at index idx. Single-step items synthesize a
// step from the problem text and guidance hints so callers never branch
// on the item shape.
func (it *Item) StepAt(idx int) (Step, bool) {
	if len(it.Steps) > 0 {
		if idx < 0 || idx >= len(it.Steps) {
			return Step{}, false
		}
		return it.Steps[idx], true
	}
	if idx != 0 {
		return Step{}, false
	}
	s := Step{ID: "main", Prompt: it.ProblemText}
	if it.Guidance != nil {
		s.Hints = it.Guidance.Hints
	}
	return s, true
}

// AcceptedAnswers returns every accepted-answer string for the item:
// declared patterns first, then the canonical answer and alternatives.
func (it *Item) AcceptedAnswers() []string {
	var out []string
	for _, p := range it.Evaluation.Patterns {
		if p.EquivalentTo != "" {
			out = append(out, p.EquivalentTo)
		}
	}
	if it.AnswerDetails != nil {
		if it.AnswerDetails.CorrectAnswer != "" {
			out = append(out, it.AnswerDetails.CorrectAnswer)
		}
		out = append(out, it.AnswerDetails.AlternativeAnswers...)
	}
	return out
}

// Prompt returns the text shown to the learner when a session starts.
func (it *Item) Prompt() string {
	if it.Title == "" {
		return it.ProblemText
	}
	return it.Title + "\n\n" + it.ProblemText
}
