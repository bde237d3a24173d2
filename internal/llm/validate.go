package llm

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// compiledSchemas caches compiled schemas by Schema.Name. The service
// carries a handful of schemas at most (the judge's verdict being the
// main one), so the cache never needs eviction.
var compiledSchemas sync.Map

// validateResponse checks raw model output against the request's
// schema. A nil schema accepts anything.
func validateResponse(s *Schema, raw json.RawMessage) error {
	if s == nil {
		return nil
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return &ErrInvalidResponse{Content: raw, Err: fmt.Errorf("response is not JSON: %w", err)}
	}

	compiled, err := compileSchema(s)
	if err != nil {
		return &ErrInvalidResponse{Content: raw, Err: err}
	}
	if err := compiled.Validate(doc); err != nil {
		return &ErrInvalidResponse{Content: raw, Err: fmt.Errorf("schema %q: %w", s.Name, err)}
	}
	return nil
}

func compileSchema(s *Schema) (*jsonschema.Schema, error) {
	if hit, ok := compiledSchemas.Load(s.Name); ok {
		return hit.(*jsonschema.Schema), nil
	}

	// The compiler wants a decoded JSON document rather than a Go map
	// with typed values, so round-trip the definition.
	b, err := json.Marshal(s.Definition)
	if err != nil {
		return nil, fmt.Errorf("marshal schema %q: %w", s.Name, err)
	}
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("decode schema %q: %w", s.Name, err)
	}

	c := jsonschema.NewCompiler()
	url := fmt.Sprintf("schema://%s.json", s.Name)
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("register schema %q: %w", s.Name, err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema %q: %w", s.Name, err)
	}

	compiledSchemas.Store(s.Name, compiled)
	return compiled, nil
}
