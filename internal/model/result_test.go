package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationResult_Resolve(t *testing.T) {
	testCases := []struct {
		name       string
		severities []Severity
		want       Status
	}{
		{name: "no diagnostics", severities: nil, want: StatusPass},
		{name: "info only", severities: []Severity{SeverityInfo}, want: StatusPass},
		{name: "warning", severities: []Severity{SeverityInfo, SeverityWarning}, want: StatusWarn},
		{name: "error dominates warning", severities: []Severity{SeverityWarning, SeverityError}, want: StatusFail},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var res ValidationResult
			for _, s := range tc.severities {
				res.Add(Diagnostic{Severity: s})
			}
			res.Resolve()
			assert.Equal(t, tc.want, res.Status)
		})
	}
}

func TestCombine(t *testing.T) {
	assert.Equal(t, StatusPass, Combine())
	assert.Equal(t, StatusPass, Combine(StatusPass, StatusPass))
	assert.Equal(t, StatusWarn, Combine(StatusPass, StatusWarn))
	assert.Equal(t, StatusFail, Combine(StatusWarn, StatusFail, StatusPass))
}

func TestDiagnostic_String(t *testing.T) {
	d := Diagnostic{
		RuleID:   "CAL001",
		Severity: SeverityError,
		Message:  "dangerous call",
		File:     "scene.go",
		Line:     4,
		Col:      2,
	}
	assert.Equal(t, "error [CAL001] scene.go:4:2 dangerous call", d.String())

	d = Diagnostic{RuleID: "POL001", Severity: SeverityError, Message: "over cap", Hint: "reduce duration_s"}
	assert.Equal(t, "error [POL001] over cap (hint: reduce duration_s)", d.String())
}

func TestTierRule_AllowsResolution(t *testing.T) {
	rule := TierRule{AllowedResolutions: []string{"480p", "720p"}}
	assert.True(t, rule.AllowsResolution("480p"))
	assert.False(t, rule.AllowsResolution("1080p"))
}
