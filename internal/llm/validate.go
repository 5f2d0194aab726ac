package llm

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Schema names a JSON Schema that model output must satisfy.
type Schema struct {
	Name       string
	Definition map[string]any
}

// ErrInvalidResponse is returned when model output is not the expected JSON.
type ErrInvalidResponse struct {
	Content string
	Err     error
}

func (e *ErrInvalidResponse) Error() string {
	return fmt.Sprintf("invalid model response: %v", e.Err)
}

func (e *ErrInvalidResponse) Unwrap() error {
	return e.Err
}

// schemaCache caches compiled schemas by name.
var schemaCache sync.Map // map[string]*jsonschema.Schema

// DecodeJSON strips code fences from content, validates it against schema
// and decodes it into out. Any failure is an *ErrInvalidResponse.
func DecodeJSON(content string, schema *Schema, out any) error {
	raw := []byte(StripCodeFences(content))

	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return &ErrInvalidResponse{Content: content, Err: fmt.Errorf("invalid JSON: %w", err)}
	}

	if schema != nil {
		compiled, err := compileSchema(schema)
		if err != nil {
			return &ErrInvalidResponse{Content: content, Err: fmt.Errorf("compile schema %q: %w", schema.Name, err)}
		}
		if err := compiled.Validate(parsed); err != nil {
			return &ErrInvalidResponse{Content: content, Err: fmt.Errorf("schema validation failed: %w", err)}
		}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return &ErrInvalidResponse{Content: content, Err: fmt.Errorf("decode: %w", err)}
	}
	return nil
}

func compileSchema(schema *Schema) (*jsonschema.Schema, error) {
	if cached, ok := schemaCache.Load(schema.Name); ok {
		return cached.(*jsonschema.Schema), nil
	}

	// The compiler wants a plain decoded JSON value.
	defBytes, err := json.Marshal(schema.Definition)
	if err != nil {
		return nil, fmt.Errorf("marshal schema definition: %w", err)
	}
	var defParsed any
	if err := json.Unmarshal(defBytes, &defParsed); err != nil {
		return nil, fmt.Errorf("parse schema definition: %w", err)
	}

	c := jsonschema.NewCompiler()
	schemaURL := fmt.Sprintf("schema://%s.json", schema.Name)
	if err := c.AddResource(schemaURL, defParsed); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}
	compiled, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}

	schemaCache.Store(schema.Name, compiled)
	return compiled, nil
}

// NonEmptyString is the schema fragment for a string with at least one
// non-space character.
func NonEmptyString() map[string]any {
	return map[string]any{"type": "string", "minLength": 1, "pattern": `\S`}
}
