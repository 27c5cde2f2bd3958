package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/renderlab/rendergate/internal/model"
)

// Document is a decoded plan. Raw is the generic form the schema validator
// checks; Bind produces the typed form the policy engine consumes once the
// structure is known to be valid.
type Document struct {
	Path string
	Raw  map[string]any

	data []byte
	json bool
}

// DecodeFile reads and decodes a plan document. YAML and JSON are selected
// by file extension.
func DecodeFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}
	doc, err := DecodeBytes(data, strings.EqualFold(filepath.Ext(path), ".json"))
	if err != nil {
		return nil, err
	}
	doc.Path = path
	return doc, nil
}

// DecodeBytes decodes a plan document from raw bytes.
func DecodeBytes(data []byte, isJSON bool) (*Document, error) {
	doc := &Document{data: data, json: isJSON}

	if isJSON {
		if err := json.Unmarshal(data, &doc.Raw); err != nil {
			return nil, fmt.Errorf("parse plan json: %w", err)
		}
		return doc, nil
	}

	if err := yaml.Unmarshal(data, &doc.Raw); err != nil {
		return nil, fmt.Errorf("parse plan yaml: %w", err)
	}
	return doc, nil
}

// Bind decodes the document into the typed plan. Unknown fields are
// rejected so typos surface instead of silently passing the gate. Call
// only after Validate has passed; a structurally valid document binds
// cleanly.
func (d *Document) Bind() (model.RenderPlan, error) {
	var plan model.RenderPlan

	if d.json {
		dec := json.NewDecoder(bytes.NewReader(d.data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&plan); err != nil {
			return plan, fmt.Errorf("decode plan json: %w", err)
		}
		return plan, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(d.data))
	dec.KnownFields(true)
	if err := dec.Decode(&plan); err != nil {
		return plan, fmt.Errorf("decode plan yaml: %w", err)
	}
	return plan, nil
}
