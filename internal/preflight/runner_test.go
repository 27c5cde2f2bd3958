package preflight

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renderlab/rendergate/internal/config"
	"github.com/renderlab/rendergate/internal/model"
)

const cleanScene = `package scene

import "fmt"

func Intro() {
	fmt.Println("fade in")
}
`

const shellOutScene = `package scene

import "os/exec"

func Intro() {
	exec.Command("ffmpeg", "-i", "in.mov")
}
`

func planYAML(duration float64, extra string) string {
	return fmt.Sprintf(`schema_version: 1
id: trp-0001
project: demo
tier: free
goal: render the intro scene
%sinputs:
  source_files: [scene.go]
  entry_point: scene.go
  scene: Intro
constraints:
  duration_s: %g
  fps: 24
  resolution: 480p
  compute_budget: 1.0
  watermark_required: true
  network_disabled: true
  wall_time_limit_s: 120
steps:
  - tool: run_render
`, extra, duration)
}

func writePlan(t *testing.T, planBody, sceneBody string) string {
	t.Helper()
	dir := t.TempDir()
	planPath := filepath.Join(dir, "plan.yaml")
	require.NoError(t, os.WriteFile(planPath, []byte(planBody), 0644))
	if sceneBody != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "scene.go"), []byte(sceneBody), 0644))
	}
	return planPath
}

func stage(t *testing.T, res *Result, name string) StageResult {
	t.Helper()
	for _, s := range res.Stages {
		if s.Stage == name {
			return s
		}
	}
	t.Fatalf("stage %q not in result", name)
	return StageResult{}
}

func TestRun_ValidFreePlanPasses(t *testing.T) {
	planPath := writePlan(t, planYAML(8, ""), cleanScene)

	res := Run(config.Default(), planPath, Options{})
	assert.Equal(t, model.StatusPass, res.Status)
	assert.Equal(t, "trp-0001", res.PlanID)
	assert.Equal(t, model.TierFree, res.Tier)
	require.Len(t, res.Stages, 3)
	for _, s := range res.Stages {
		assert.Equal(t, model.StatusPass, s.Status)
		assert.False(t, s.Skipped)
	}
}

func TestRun_TierViolationFails(t *testing.T) {
	planPath := writePlan(t, planYAML(12, ""), cleanScene)

	res := Run(config.Default(), planPath, Options{})
	assert.Equal(t, model.StatusFail, res.Status)

	tier := stage(t, res, "tier")
	require.Equal(t, model.StatusFail, tier.Status)
	assert.Equal(t, "POL001", tier.Diagnostics[0].RuleID)

	// Schema and lint still ran; one failing stage does not hide the rest.
	assert.Equal(t, model.StatusPass, stage(t, res, "schema").Status)
	assert.Equal(t, model.StatusPass, stage(t, res, "lint").Status)
}

func TestRun_DangerousSourceFails(t *testing.T) {
	planPath := writePlan(t, planYAML(8, ""), shellOutScene)

	res := Run(config.Default(), planPath, Options{})
	assert.Equal(t, model.StatusFail, res.Status)

	lint := stage(t, res, "lint")
	require.Equal(t, model.StatusFail, lint.Status)
	ids := make([]string, 0, len(lint.Diagnostics))
	for _, d := range lint.Diagnostics {
		ids = append(ids, d.RuleID)
	}
	assert.Contains(t, ids, "IMP001")
	assert.Contains(t, ids, "CAL001")
}

func TestRun_SchemaFailureShortCircuits(t *testing.T) {
	body := `schema_version: 1
id: trp-0001
project: demo
tier: enterprise
goal: render
`
	planPath := writePlan(t, body, "")

	res := Run(config.Default(), planPath, Options{})
	assert.Equal(t, model.StatusFail, res.Status)
	require.Len(t, res.Stages, 3)

	assert.Equal(t, model.StatusFail, stage(t, res, "schema").Status)
	assert.True(t, stage(t, res, "tier").Skipped)
	assert.True(t, stage(t, res, "lint").Skipped)
}

func TestRun_MalformedDocument(t *testing.T) {
	planPath := writePlan(t, "id: [unclosed", "")

	res := Run(config.Default(), planPath, Options{})
	assert.Equal(t, model.StatusFail, res.Status)

	sch := stage(t, res, "schema")
	require.Len(t, sch.Diagnostics, 1)
	assert.Equal(t, "SCH005", sch.Diagnostics[0].RuleID)
	assert.True(t, stage(t, res, "tier").Skipped)
}

func TestRun_MissingPlanFile(t *testing.T) {
	res := Run(config.Default(), filepath.Join(t.TempDir(), "absent.yaml"), Options{})
	assert.Equal(t, model.StatusFail, res.Status)
	assert.Equal(t, "SCH005", stage(t, res, "schema").Diagnostics[0].RuleID)
}

func TestRun_LintSkippedWhenSourcesAbsent(t *testing.T) {
	planPath := writePlan(t, planYAML(8, ""), "")

	res := Run(config.Default(), planPath, Options{})
	assert.Equal(t, model.StatusPass, res.Status, "absent sources are not a gate failure")

	lint := stage(t, res, "lint")
	assert.True(t, lint.Skipped)
	assert.Contains(t, lint.SkipReason, "not present yet")
}

func TestRun_PremiumTrial(t *testing.T) {
	trial := `schema_version: 1
id: trp-0002
project: demo
tier: free
goal: trial render at premium bounds
premium_trial: true
inputs:
  source_files: [scene.go]
  entry_point: scene.go
  scene: Intro
constraints:
  duration_s: 25
  fps: 24
  resolution: 1080p
  compute_budget: 3.5
  watermark_required: %t
  network_disabled: true
  wall_time_limit_s: 600
steps:
  - tool: run_render
`

	t.Run("watermarked", func(t *testing.T) {
		planPath := writePlan(t, fmt.Sprintf(trial, true), cleanScene)
		res := Run(config.Default(), planPath, Options{})
		assert.Equal(t, model.StatusPass, res.Status)
	})

	t.Run("unwatermarked", func(t *testing.T) {
		planPath := writePlan(t, fmt.Sprintf(trial, false), cleanScene)
		res := Run(config.Default(), planPath, Options{})
		require.Equal(t, model.StatusFail, res.Status)
		assert.Equal(t, "POL007", stage(t, res, "tier").Diagnostics[0].RuleID)
	})
}

func TestRun_Idempotent(t *testing.T) {
	planPath := writePlan(t, planYAML(12, ""), shellOutScene)

	first := Run(config.Default(), planPath, Options{})
	for i := 0; i < 3; i++ {
		assert.Equal(t, first, Run(config.Default(), planPath, Options{}))
	}
}

func TestResult_Failed(t *testing.T) {
	assert.True(t, (&Result{Status: model.StatusFail}).Failed(false))
	assert.False(t, (&Result{Status: model.StatusWarn}).Failed(false))
	assert.True(t, (&Result{Status: model.StatusWarn}).Failed(true))
	assert.False(t, (&Result{Status: model.StatusPass}).Failed(true))
}

func TestWriteReport(t *testing.T) {
	planPath := writePlan(t, planYAML(12, ""), cleanScene)
	res := Run(config.Default(), planPath, Options{})

	var buf bytes.Buffer
	WriteReport(&buf, res)

	out := buf.String()
	assert.Contains(t, out, "PREFLIGHT FAIL")
	assert.Contains(t, out, "plan=trp-0001")
	assert.Contains(t, out, "POL001")
}

func TestWriteJSON(t *testing.T) {
	planPath := writePlan(t, planYAML(8, ""), cleanScene)
	res := Run(config.Default(), planPath, Options{})

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, res))

	var decoded Result
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, res.PlanID, decoded.PlanID)
	assert.Equal(t, res.Status, decoded.Status)
	assert.Len(t, decoded.Stages, 3)
}
