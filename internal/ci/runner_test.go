package ci

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renderlab/rendergate/internal/config"
	"github.com/renderlab/rendergate/internal/model"
	"github.com/renderlab/rendergate/internal/preflight"
)

func planBody(id string, duration float64) string {
	return fmt.Sprintf(`schema_version: 1
id: %s
project: demo
tier: free
goal: render the intro scene
inputs:
  source_files: []
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
`, id, duration)
}

func TestRunDirs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "good.yaml"), []byte(planBody("trp-0001", 8)), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "bad.yml"), []byte(planBody("trp-0002", 99)), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not a plan"), 0644))

	var out bytes.Buffer
	runner := NewRunner(config.Default(), preflight.Options{}, &out)

	sum, err := runner.RunDirs([]string{dir})
	require.NoError(t, err)

	assert.Equal(t, 2, sum.Total, "non-plan files are ignored")
	assert.Equal(t, 1, sum.Passed)
	assert.Equal(t, 1, sum.Failed)
	assert.Contains(t, out.String(), "validated 2 plan(s): 1 passed, 0 warned, 1 failed")
	assert.Contains(t, out.String(), "POL001")
}

func TestRunDirs_MissingDirectory(t *testing.T) {
	var out bytes.Buffer
	runner := NewRunner(config.Default(), preflight.Options{}, &out)

	_, err := runner.RunDirs([]string{filepath.Join(t.TempDir(), "absent")})
	assert.Error(t, err)
}

func TestRunOne(t *testing.T) {
	planPath := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(planPath, []byte(planBody("trp-0003", 8)), 0644))

	var out bytes.Buffer
	runner := NewRunner(config.Default(), preflight.Options{}, &out)

	res := runner.RunOne(planPath)
	assert.Equal(t, model.StatusPass, res.Status)
	assert.Contains(t, out.String(), "PREFLIGHT PASS")
}

func TestSummary_Failing(t *testing.T) {
	assert.True(t, Summary{Failed: 1}.Failing(false))
	assert.False(t, Summary{Warned: 1}.Failing(false))
	assert.True(t, Summary{Warned: 1}.Failing(true))
	assert.False(t, Summary{Passed: 3}.Failing(true))
}

func TestIsPlanFile(t *testing.T) {
	assert.True(t, isPlanFile("a.yaml"))
	assert.True(t, isPlanFile("a.YML"))
	assert.True(t, isPlanFile("a.json"))
	assert.False(t, isPlanFile("a.go"))
	assert.False(t, isPlanFile("a.yaml.bak"))
}
