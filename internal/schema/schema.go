// Package schema validates the structure of a render plan document against
// a declarative field-rule table. Validation is a pure function of the
// decoded document and the rule table; every structural defect found is
// reported, not just the first.
package schema

import (
	"fmt"
	"strings"

	"github.com/renderlab/rendergate/internal/model"
)

// Stage label attached to every diagnostic this package produces.
const Stage = "schema"

// Kind is the expected type of a document field.
type Kind string

const (
	KindString Kind = "string"
	KindNumber Kind = "number"
	KindBool   Kind = "bool"
	KindList   Kind = "list"
	KindMap    Kind = "map"
)

// FieldRule is one entry of the declarative schema: a dotted path into the
// document plus the constraints the field must satisfy. Rules are evaluated
// uniformly by Validate; adding a field means adding a row, not a branch.
type FieldRule struct {
	Path     string
	Required bool
	Kind     Kind
	Enum     []string
	Eq       *float64
	Min      *float64
	Max      *float64
	MinLen   int
	Elem     Kind
	Hint     string
}

func f64(v float64) *float64 { return &v }

// Rules returns the field-rule table for schema version 1.
func Rules() []FieldRule {
	return []FieldRule{
		{Path: "schema_version", Required: true, Kind: KindNumber, Eq: f64(1)},
		{Path: "id", Required: true, Kind: KindString, MinLen: 1},
		{Path: "project", Required: true, Kind: KindString, MinLen: 1},
		{Path: "tier", Required: true, Kind: KindString, Enum: []string{"free", "premium"}},
		{Path: "goal", Required: true, Kind: KindString, MinLen: 1},
		{Path: "premium_trial", Kind: KindBool},
		{Path: "inputs", Required: true, Kind: KindMap},
		{Path: "inputs.source_files", Required: true, Kind: KindList, Elem: KindString},
		{Path: "inputs.entry_point", Required: true, Kind: KindString, MinLen: 1},
		{Path: "inputs.scene", Required: true, Kind: KindString, MinLen: 1},
		{Path: "constraints", Required: true, Kind: KindMap},
		{Path: "constraints.duration_s", Required: true, Kind: KindNumber, Min: f64(0.1), Max: f64(3600),
			Hint: "duration_s must be a positive number of seconds"},
		{Path: "constraints.fps", Required: true, Kind: KindNumber, Eq: f64(24),
			Hint: "fps is fixed at 24 for every plan"},
		{Path: "constraints.resolution", Required: true, Kind: KindString, Enum: []string{"480p", "720p", "1080p"}},
		{Path: "constraints.compute_budget", Required: true, Kind: KindNumber, Min: f64(0.01), Max: f64(100)},
		{Path: "constraints.sandbox_phase", Kind: KindString, Enum: []string{"phase1", "phase2"}},
		{Path: "constraints.watermark_required", Required: true, Kind: KindBool},
		{Path: "constraints.network_disabled", Required: true, Kind: KindBool},
		{Path: "constraints.wall_time_limit_s", Required: true, Kind: KindNumber, Min: f64(1), Max: f64(86400)},
		{Path: "steps", Required: true, Kind: KindList},
		{Path: "acceptance_tests", Kind: KindList},
		{Path: "artifacts", Kind: KindList},
		{Path: "memory", Kind: KindList, Elem: KindString},
	}
}

// Validate checks a decoded plan document against the field-rule table.
func Validate(doc map[string]any) model.ValidationResult {
	var res model.ValidationResult
	for _, rule := range Rules() {
		for _, d := range checkRule(doc, rule) {
			res.Add(d)
		}
	}
	res.Resolve()
	return res
}

func checkRule(doc map[string]any, rule FieldRule) []model.Diagnostic {
	value, ok := getPath(doc, rule.Path)
	if !ok {
		if rule.Required {
			return []model.Diagnostic{diag("SCH001", fmt.Sprintf("missing required field %q", rule.Path), rule.Hint)}
		}
		return nil
	}

	if !kindMatches(value, rule.Kind) {
		return []model.Diagnostic{diag("SCH002",
			fmt.Sprintf("field %q: expected %s, got %T", rule.Path, rule.Kind, value), rule.Hint)}
	}

	var out []model.Diagnostic
	switch rule.Kind {
	case KindString:
		s := value.(string)
		if rule.MinLen > 0 && len(strings.TrimSpace(s)) < rule.MinLen {
			out = append(out, diag("SCH002", fmt.Sprintf("field %q must not be empty", rule.Path), rule.Hint))
		}
		if len(rule.Enum) > 0 && !inEnum(s, rule.Enum) {
			out = append(out, diag("SCH003",
				fmt.Sprintf("field %q: invalid value %q (allowed: %s)", rule.Path, s, strings.Join(rule.Enum, ", ")), rule.Hint))
		}
	case KindNumber:
		n := asNumber(value)
		if rule.Eq != nil && n != *rule.Eq {
			out = append(out, diag("SCH004",
				fmt.Sprintf("field %q must equal %v, got %v", rule.Path, *rule.Eq, n), rule.Hint))
		}
		if rule.Min != nil && n < *rule.Min {
			out = append(out, diag("SCH004",
				fmt.Sprintf("field %q: %v is below minimum %v", rule.Path, n, *rule.Min), rule.Hint))
		}
		if rule.Max != nil && n > *rule.Max {
			out = append(out, diag("SCH004",
				fmt.Sprintf("field %q: %v exceeds maximum %v", rule.Path, n, *rule.Max), rule.Hint))
		}
	case KindList:
		if rule.Elem != "" {
			for i, el := range value.([]any) {
				if !kindMatches(el, rule.Elem) {
					out = append(out, diag("SCH002",
						fmt.Sprintf("field %q[%d]: expected %s, got %T", rule.Path, i, rule.Elem, el), rule.Hint))
				}
			}
		}
	}
	return out
}

func diag(ruleID, msg, hint string) model.Diagnostic {
	return model.Diagnostic{
		Stage:    Stage,
		RuleID:   ruleID,
		Severity: model.SeverityError,
		Message:  msg,
		Hint:     hint,
	}
}

// getPath navigates a decoded document by dotted path.
func getPath(doc map[string]any, path string) (any, bool) {
	parts := strings.Split(path, ".")
	current := doc
	for i, part := range parts {
		value, ok := current[part]
		if !ok {
			return nil, false
		}
		if i == len(parts)-1 {
			return value, true
		}
		next, ok := value.(map[string]any)
		if !ok {
			// Parent exists but is not a map; the parent's own rule
			// reports the type mismatch.
			return nil, false
		}
		current = next
	}
	return nil, false
}

func kindMatches(v any, kind Kind) bool {
	switch kind {
	case KindString:
		_, ok := v.(string)
		return ok
	case KindNumber:
		switch v.(type) {
		case int, int64, float64:
			return true
		}
		return false
	case KindBool:
		_, ok := v.(bool)
		return ok
	case KindList:
		_, ok := v.([]any)
		return ok
	case KindMap:
		_, ok := v.(map[string]any)
		return ok
	}
	return false
}

func asNumber(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case float64:
		return n
	}
	return 0
}

func inEnum(s string, enum []string) bool {
	for _, e := range enum {
		if s == e {
			return true
		}
	}
	return false
}
