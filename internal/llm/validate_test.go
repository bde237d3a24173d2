package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// verdictSchema mirrors the shape of the judge's verdict, under a test
// name so it gets its own slot in the compile cache.
func verdictSchema() *Schema {
	return &Schema{
		Name:        "verdict-check",
		Description: "Assessment of a learner response",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"is_correct":     map[string]any{"type": "boolean"},
				"feedback":       map[string]any{"type": "string"},
				"should_advance": map[string]any{"type": "boolean"},
				"misconception_tags": map[string]any{
					"type":  "array",
					"items": map[string]any{"type": "string"},
				},
				"confidence_level": map[string]any{
					"type":    "number",
					"minimum": 0,
					"maximum": 1,
				},
			},
			"required": []any{"is_correct", "feedback", "should_advance"},
		},
	}
}

func TestValidateResponse_AcceptsFullVerdict(t *testing.T) {
	raw := json.RawMessage(`{
		"is_correct": false,
		"feedback": "Reread the question: Sam gains marbles, he does not lose them.",
		"should_advance": false,
		"misconception_tags": ["inverted-operation"],
		"confidence_level": 0.85
	}`)
	assert.NoError(t, validateResponse(verdictSchema(), raw))
}

func TestValidateResponse_AcceptsVerdictWithoutOptionalFields(t *testing.T) {
	raw := json.RawMessage(`{"is_correct":true,"feedback":"Exactly right.","should_advance":true}`)
	assert.NoError(t, validateResponse(verdictSchema(), raw))
}

func TestValidateResponse_RejectsMissingRequiredField(t *testing.T) {
	// No should_advance.
	raw := json.RawMessage(`{"is_correct":true,"feedback":"Good."}`)
	err := validateResponse(verdictSchema(), raw)
	require.Error(t, err)

	var invalid *ErrInvalidResponse
	require.ErrorAs(t, err, &invalid)
	assert.JSONEq(t, string(raw), string(invalid.Content))
}

func TestValidateResponse_RejectsWrongType(t *testing.T) {
	raw := json.RawMessage(`{"is_correct":"yes","feedback":"Good.","should_advance":true}`)
	var invalid *ErrInvalidResponse
	assert.ErrorAs(t, validateResponse(verdictSchema(), raw), &invalid)
}

func TestValidateResponse_RejectsOutOfRangeConfidence(t *testing.T) {
	raw := json.RawMessage(`{"is_correct":true,"feedback":"Good.","should_advance":true,"confidence_level":1.4}`)
	var invalid *ErrInvalidResponse
	assert.ErrorAs(t, validateResponse(verdictSchema(), raw), &invalid)
}

func TestValidateResponse_RejectsNonJSON(t *testing.T) {
	for _, raw := range []string{`I think the answer is wrong`, ``, `{"is_correct": tru`} {
		var invalid *ErrInvalidResponse
		assert.ErrorAs(t, validateResponse(verdictSchema(), json.RawMessage(raw)), &invalid, raw)
	}
}

func TestValidateResponse_NilSchemaAcceptsAnything(t *testing.T) {
	assert.NoError(t, validateResponse(nil, json.RawMessage(`"free text"`)))
}

func TestValidateResponse_CompiledSchemaIsReused(t *testing.T) {
	s := verdictSchema()
	raw := json.RawMessage(`{"is_correct":true,"feedback":"Yes.","should_advance":true}`)
	require.NoError(t, validateResponse(s, raw))

	cached, ok := compiledSchemas.Load(s.Name)
	require.True(t, ok)

	require.NoError(t, validateResponse(s, raw))
	again, _ := compiledSchemas.Load(s.Name)
	assert.Same(t, cached, again)
}
