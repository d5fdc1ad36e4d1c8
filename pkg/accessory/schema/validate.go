package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/sync/singleflight"
)

// resourceURL names every document inside its own compiler.
const resourceURL = "payload.json"

// Validator checks client payloads against the documents in this package.
// Each document is compiled once, on first use.
type Validator struct {
	compiled sync.Map // document text -> *jsonschema.Schema
	group    singleflight.Group
}

// NewValidator creates a Validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks payload, a value produced by decoding JSON, against doc.
// Numbers may be float64 or json.Number. An empty document accepts
// everything.
func (v *Validator) Validate(doc json.RawMessage, payload any) error {
	if acceptsAll(doc) {
		return nil
	}

	sch, err := v.schema(doc)
	if err != nil {
		return err
	}
	return sch.Validate(payload)
}

// ValidateJSON decodes data with exact numbers and validates it against doc.
func (v *Validator) ValidateJSON(doc json.RawMessage, data []byte) error {
	payload, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return v.Validate(doc, payload)
}

func (v *Validator) schema(doc json.RawMessage) (*jsonschema.Schema, error) {
	key := string(doc)
	if sch, ok := v.compiled.Load(key); ok {
		return sch.(*jsonschema.Schema), nil
	}

	sch, err, _ := v.group.Do(key, func() (any, error) {
		if sch, ok := v.compiled.Load(key); ok {
			return sch, nil
		}
		sch, err := compile(doc)
		if err != nil {
			return nil, err
		}
		v.compiled.Store(key, sch)
		return sch, nil
	})
	if err != nil {
		return nil, err
	}
	return sch.(*jsonschema.Schema), nil
}

// cached reports how many documents have been compiled.
func (v *Validator) cached() int {
	n := 0
	v.compiled.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func compile(doc json.RawMessage) (*jsonschema.Schema, error) {
	parsed, err := jsonschema.UnmarshalJSON(bytes.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("failed to parse schema document: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource(resourceURL, parsed); err != nil {
		return nil, fmt.Errorf("failed to load schema document: %w", err)
	}
	sch, err := c.Compile(resourceURL)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema document: %w", err)
	}
	return sch, nil
}

func acceptsAll(doc json.RawMessage) bool {
	trimmed := string(bytes.TrimSpace(doc))
	return trimmed == "" || trimmed == "{}" || trimmed == "null"
}
