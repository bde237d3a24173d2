package catalog

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/mod/semver"
)

// SupportedMajor is the curriculum-file schema major version this build
// understands. Files with any other major are rejected at ingestion
// rather than partially accepted at runtime.
const SupportedMajor = "v1"

// File is the on-disk shape of a curriculum file: one topic, one schema
// version, many items.
type File struct {
	Topic   string `json:"topic"`
	Version string `json:"version"`
	Items   []Item `json:"items"`
}

// ErrMalformedItem reports an item that fails ingestion validation.
// Evaluation must never silently treat such an item as "no answer
// accepted", so the offending field is named.
type ErrMalformedItem struct {
	ItemID string
	Reason string
}

func (e *ErrMalformedItem) Error() string {
	return fmt.Sprintf("malformed catalog item %q: %s", e.ItemID, e.Reason)
}

var (
	fileSchemaOnce sync.Once
	fileSchema     *jsonschema.Schema
	fileSchemaErr  error
)

// fileSchemaDef is the JSON Schema every curriculum file must satisfy
// before any item-level validation runs.
var fileSchemaDef = map[string]any{
	"type":     "object",
	"required": []any{"topic", "version", "items"},
	"properties": map[string]any{
		"topic":   map[string]any{"type": "string", "minLength": 1},
		"version": map[string]any{"type": "string", "minLength": 1},
		"items": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []any{"id", "problem_text"},
				"properties": map[string]any{
					"id":           map[string]any{"type": "string", "minLength": 1},
					"problem_text": map[string]any{"type": "string", "minLength": 1},
					"complexity":   map[string]any{"enum": []any{"Easy", "Medium", "Hard"}},
					"marks":        map[string]any{"type": "integer", "minimum": 1},
				},
			},
		},
	},
}

func compiledFileSchema() (*jsonschema.Schema, error) {
	fileSchemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource("schema://curriculum-file.json", fileSchemaDef); err != nil {
			fileSchemaErr = err
			return
		}
		fileSchema, fileSchemaErr = c.Compile("schema://curriculum-file.json")
	})
	return fileSchema, fileSchemaErr
}

// ParseFile validates and decodes one curriculum file. Items are
// normalized (topic inherited from the file, marks defaulted, version
// stamped) and individually checked; the first malformed item aborts
// the whole file so partial topics never reach the catalog.
func ParseFile(data []byte) (*File, error) {
	schema, err := compiledFileSchema()
	if err != nil {
		return nil, fmt.Errorf("compile curriculum schema: %w", err)
	}

	var parsed any
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("curriculum file is not valid JSON: %w", err)
	}
	if err := schema.Validate(parsed); err != nil {
		return nil, fmt.Errorf("curriculum file rejected by schema: %w", err)
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode curriculum file: %w", err)
	}

	if err := checkVersion(f.Version); err != nil {
		return nil, err
	}

	for i := range f.Items {
		it := &f.Items[i]
		if it.Topic == "" {
			it.Topic = f.Topic
		}
		if it.Marks <= 0 {
			it.Marks = 1
		}
		if it.Complexity == "" {
			it.Complexity = ComplexityEasy
		}
		it.Version = canonicalVersion(f.Version)
		if err := validateItem(it); err != nil {
			return nil, err
		}
	}

	return &f, nil
}

// checkVersion gates the file on its declared schema version. Versions
// are compared as semver; a bare "1.0" is upgraded to "v1.0" so legacy
// authoring files keep loading.
func checkVersion(v string) error {
	cv := canonicalVersion(v)
	if !semver.IsValid(cv) {
		return fmt.Errorf("curriculum file version %q is not a valid version", v)
	}
	if semver.Major(cv) != SupportedMajor {
		return fmt.Errorf("curriculum file version %q: major %s unsupported (want %s)",
			v, semver.Major(cv), SupportedMajor)
	}
	return nil
}

func canonicalVersion(v string) string {
	if v == "" {
		return v
	}
	if !strings.HasPrefix(v, "v") {
		return "v" + v
	}
	return v
}

// validateItem enforces the tagged-record rules: an item carries either
// ordered steps or a single-step answer shape, never neither.
func validateItem(it *Item) error {
	if it.ID == "" {
		return &ErrMalformedItem{ItemID: "(missing id)", Reason: "id is required"}
	}
	if it.ProblemText == "" {
		return &ErrMalformedItem{ItemID: it.ID, Reason: "problem_text is required"}
	}
	switch it.Complexity {
	case ComplexityEasy, ComplexityMedium, ComplexityHard:
	default:
		return &ErrMalformedItem{ItemID: it.ID, Reason: fmt.Sprintf("unknown complexity %q", it.Complexity)}
	}

	hasSteps := len(it.Steps) > 0
	hasAnswer := it.AnswerDetails != nil && it.AnswerDetails.CorrectAnswer != ""
	hasPatterns := len(it.Evaluation.Patterns) > 0
	if !hasSteps && !hasAnswer && !hasPatterns {
		return &ErrMalformedItem{ItemID: it.ID, Reason: "item has neither steps nor an accepted answer"}
	}

	for i, s := range it.Steps {
		if s.Prompt == "" {
			return &ErrMalformedItem{ItemID: it.ID, Reason: fmt.Sprintf("step %d has no prompt", i)}
		}
	}
	return nil
}
