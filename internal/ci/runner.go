// Package ci validates every plan document under designated directories,
// non-interactively, for build pipelines. A watch mode re-validates plans
// as they change.
package ci

import (
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/renderlab/rendergate/internal/config"
	"github.com/renderlab/rendergate/internal/model"
	"github.com/renderlab/rendergate/internal/preflight"
)

// Runner drives preflight over directories of plan documents.
type Runner struct {
	cfg  *config.Config
	opts preflight.Options
	out  io.Writer
}

// NewRunner creates a batch runner writing reports to out.
func NewRunner(cfg *config.Config, opts preflight.Options, out io.Writer) *Runner {
	return &Runner{cfg: cfg, opts: opts, out: out}
}

// Summary aggregates the outcomes of one batch run.
type Summary struct {
	Total  int
	Passed int
	Warned int
	Failed int
}

// Failing reports whether the batch should produce a failing exit status.
func (s Summary) Failing(failOnWarn bool) bool {
	if s.Failed > 0 {
		return true
	}
	return failOnWarn && s.Warned > 0
}

// RunDirs validates every plan document found under the given directories.
// Documents are processed in path order so output is stable across runs.
func (r *Runner) RunDirs(dirs []string) (Summary, error) {
	var plans []string
	for _, dir := range dirs {
		found, err := collectPlans(dir)
		if err != nil {
			return Summary{}, err
		}
		plans = append(plans, found...)
	}
	sort.Strings(plans)

	var sum Summary
	for _, plan := range plans {
		res := r.RunOne(plan)
		sum.Total++
		switch res.Status {
		case model.StatusPass:
			sum.Passed++
		case model.StatusWarn:
			sum.Warned++
		case model.StatusFail:
			sum.Failed++
		}
	}

	fmt.Fprintf(r.out, "validated %d plan(s): %d passed, %d warned, %d failed\n",
		sum.Total, sum.Passed, sum.Warned, sum.Failed)
	return sum, nil
}

// RunOne validates a single plan document and writes its report.
func (r *Runner) RunOne(planPath string) *preflight.Result {
	res := preflight.Run(r.cfg, planPath, r.opts)
	preflight.WriteReport(r.out, res)
	return res
}

// collectPlans finds plan documents under dir by extension.
func collectPlans(dir string) ([]string, error) {
	var plans []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if isPlanFile(path) {
			plans = append(plans, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	return plans, nil
}

func isPlanFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}
