package roadmap

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed roadmap.schema.json
var schemaJSON []byte

var (
	// ErrMalformed marks a generated payload that is not a roadmap document.
	ErrMalformed = errors.New("malformed roadmap payload")
	// ErrSchema marks a payload that decodes but violates the roadmap schema.
	ErrSchema = errors.New("roadmap payload violates schema")
)

var loadSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
})

// stripFences removes markdown code fences around model output.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// validateDocument checks a decoded JSON document against the roadmap schema.
func validateDocument(doc any) error {
	schema, err := loadSchema()
	if err != nil {
		return fmt.Errorf("loading roadmap schema: %w", err)
	}
	result, err := schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}
	return fmt.Errorf("%w: %s", ErrSchema, strings.Join(msgs, "; "))
}

// Parse decodes model output into a roadmap. Code fences are stripped first.
// With validate set the document must satisfy the roadmap schema; otherwise
// only the stage count and distinct stage ids are checked. A missing id is set to careerID.
func Parse(text, careerID string, validate bool) (Roadmap, error) {
	body := []byte(stripFences(text))

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return Roadmap{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if validate {
		if err := validateDocument(doc); err != nil {
			return Roadmap{}, err
		}
	}

	var r Roadmap
	if err := json.Unmarshal(body, &r); err != nil {
		return Roadmap{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(r.Stages) != StageCount {
		return Roadmap{}, fmt.Errorf("%w: has %d stages, want %d", ErrSchema, len(r.Stages), StageCount)
	}
	seen := make(map[string]bool, StageCount)
	for _, s := range r.Stages {
		if s.ID == "" || seen[s.ID] {
			return Roadmap{}, fmt.Errorf("%w: stage id %q is empty or repeated", ErrSchema, s.ID)
		}
		seen[s.ID] = true
	}
	if r.ID == "" {
		r.ID = careerID
	}
	return r, nil
}
