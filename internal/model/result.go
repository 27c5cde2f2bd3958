package model

import "fmt"

// Status is the outcome of a validation stage or of the whole gate.
type Status string

const (
	StatusPass Status = "PASS"
	StatusFail Status = "FAIL"
	StatusWarn Status = "WARN"
)

// Severity of a single diagnostic.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Diagnostic is one finding produced by a validation stage. Diagnostics
// are ephemeral: produced fresh per call, never persisted by the gate.
type Diagnostic struct {
	Stage    string   `json:"stage"`
	RuleID   string   `json:"rule_id"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	File     string   `json:"file,omitempty"`
	Line     int      `json:"line,omitempty"`
	Col      int      `json:"col,omitempty"`
	Hint     string   `json:"hint,omitempty"`
}

// String renders a diagnostic in the linter's one-line format.
func (d Diagnostic) String() string {
	loc := ""
	if d.File != "" {
		loc = fmt.Sprintf(" %s:%d:%d", d.File, d.Line, d.Col)
	}
	s := fmt.Sprintf("%s [%s]%s %s", d.Severity, d.RuleID, loc, d.Message)
	if d.Hint != "" {
		s += fmt.Sprintf(" (hint: %s)", d.Hint)
	}
	return s
}

// ValidationResult is the outcome of one stage: a status plus the ordered
// list of diagnostics that produced it.
type ValidationResult struct {
	Status      Status       `json:"status"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// Add appends a diagnostic without resolving the status.
func (r *ValidationResult) Add(d Diagnostic) {
	r.Diagnostics = append(r.Diagnostics, d)
}

// Resolve derives the status from the recorded diagnostics: any error
// means FAIL, any warning without errors means WARN, otherwise PASS.
func (r *ValidationResult) Resolve() {
	r.Status = StatusPass
	for _, d := range r.Diagnostics {
		switch d.Severity {
		case SeverityError:
			r.Status = StatusFail
			return
		case SeverityWarning:
			r.Status = StatusWarn
		}
	}
}

// Combine folds stage statuses into an overall status: FAIL dominates,
// then WARN, then PASS.
func Combine(statuses ...Status) Status {
	overall := StatusPass
	for _, s := range statuses {
		switch s {
		case StatusFail:
			return StatusFail
		case StatusWarn:
			overall = StatusWarn
		}
	}
	return overall
}
