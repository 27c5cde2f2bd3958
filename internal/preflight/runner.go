// Package preflight sequences the gate stages over one plan document:
// schema validation, tier policy, then the source linter. It aggregates the
// per-stage outcomes into a single go/no-go result. The gate never mutates
// the plan and never triggers execution; the sandbox is a separate
// collaborator that only proceeds after PASS.
package preflight

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/renderlab/rendergate/internal/config"
	"github.com/renderlab/rendergate/internal/lint"
	"github.com/renderlab/rendergate/internal/model"
	"github.com/renderlab/rendergate/internal/policy"
	"github.com/renderlab/rendergate/internal/schema"
)

// Options controls one preflight run.
type Options struct {
	// FailOnWarn promotes an overall WARN to a failing exit status. The
	// diagnostics themselves are unchanged.
	FailOnWarn bool
	// ProjectRoot and ArtifactsRoot override the configured permitted
	// write roots when non-empty.
	ProjectRoot   string
	ArtifactsRoot string
}

// StageResult is the outcome of one gate stage.
type StageResult struct {
	Stage       string             `json:"stage"`
	Status      model.Status       `json:"status"`
	Skipped     bool               `json:"skipped,omitempty"`
	SkipReason  string             `json:"skip_reason,omitempty"`
	Diagnostics []model.Diagnostic `json:"diagnostics,omitempty"`
}

// Result is the aggregate outcome of a preflight run.
type Result struct {
	PlanPath string        `json:"plan_path"`
	PlanID   string        `json:"plan_id,omitempty"`
	Tier     model.Tier    `json:"tier,omitempty"`
	Status   model.Status  `json:"status"`
	Stages   []StageResult `json:"stages"`
}

// Failed reports whether the run should produce a failing exit status.
func (r *Result) Failed(failOnWarn bool) bool {
	if r.Status == model.StatusFail {
		return true
	}
	return failOnWarn && r.Status == model.StatusWarn
}

// Run validates the plan document at planPath. Runs are deterministic and
// side-effect free: everything a run reads is the document, the referenced
// source text, and the immutable configuration, so concurrent runs over
// independent plans are safe without locking. Problems with the plan or
// its sources become diagnostics, never errors; Run always returns a
// result.
func Run(cfg *config.Config, planPath string, opts Options) *Result {
	res := &Result{PlanPath: planPath, Status: model.StatusFail}

	doc, err := schema.DecodeFile(planPath)
	if err != nil {
		res.Stages = append(res.Stages, malformedStage(err))
		skipRemaining(res, "schema validation failed")
		return res
	}

	// Stage 1: schema. A structurally invalid document short-circuits the
	// run; tier and lint checks are meaningless against it.
	schemaRes := schema.Validate(doc.Raw)
	res.Stages = append(res.Stages, StageResult{
		Stage:       schema.Stage,
		Status:      schemaRes.Status,
		Diagnostics: schemaRes.Diagnostics,
	})
	if schemaRes.Status == model.StatusFail {
		skipRemaining(res, "schema validation failed")
		return res
	}

	plan, err := doc.Bind()
	if err != nil {
		res.Stages[len(res.Stages)-1] = malformedStage(err)
		skipRemaining(res, "schema validation failed")
		return res
	}
	res.PlanID = plan.ID
	res.Tier = plan.Tier

	// Stage 2: tier policy.
	policyRes := policy.Check(cfg, plan)
	res.Stages = append(res.Stages, StageResult{
		Stage:       policy.Stage,
		Status:      policyRes.Status,
		Diagnostics: policyRes.Diagnostics,
	})

	// Stage 3: lint, only when every referenced source file exists.
	// An absent file means there is nothing to lint yet, not a failure.
	res.Stages = append(res.Stages, lintStage(cfg, planPath, plan, opts))

	res.Status = overall(res.Stages)
	return res
}

func lintStage(cfg *config.Config, planPath string, plan model.RenderPlan, opts Options) StageResult {
	paths := resolveSources(planPath, plan.Inputs.SourceFiles)
	if len(paths) == 0 {
		return StageResult{
			Stage:      lint.Stage,
			Status:     model.StatusPass,
			Skipped:    true,
			SkipReason: "plan references no source files",
		}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			return StageResult{
				Stage:      lint.Stage,
				Status:     model.StatusPass,
				Skipped:    true,
				SkipReason: fmt.Sprintf("referenced source file %s not present yet", p),
			}
		}
	}

	projectRoot := opts.ProjectRoot
	if projectRoot == "" {
		projectRoot = cfg.Roots.Project
	}
	artifactsRoot := opts.ArtifactsRoot
	if artifactsRoot == "" {
		artifactsRoot = cfg.Roots.Artifacts
	}

	lintRes := lint.Lint(cfg, paths, projectRoot, artifactsRoot)
	return StageResult{
		Stage:       lint.Stage,
		Status:      lintRes.Status,
		Diagnostics: lintRes.Diagnostics,
	}
}

// resolveSources resolves plan-relative source paths against the plan
// file's directory.
func resolveSources(planPath string, sources []string) []string {
	base := filepath.Dir(planPath)
	out := make([]string, 0, len(sources))
	for _, s := range sources {
		if filepath.IsAbs(s) {
			out = append(out, filepath.Clean(s))
			continue
		}
		out = append(out, filepath.Join(base, s))
	}
	return out
}

func malformedStage(err error) StageResult {
	return StageResult{
		Stage:  schema.Stage,
		Status: model.StatusFail,
		Diagnostics: []model.Diagnostic{{
			Stage:    schema.Stage,
			RuleID:   "SCH005",
			Severity: model.SeverityError,
			Message:  fmt.Sprintf("malformed plan document: %v", err),
		}},
	}
}

func skipRemaining(res *Result, reason string) {
	for _, stage := range []string{policy.Stage, lint.Stage} {
		res.Stages = append(res.Stages, StageResult{
			Stage:      stage,
			Status:     model.StatusPass,
			Skipped:    true,
			SkipReason: reason,
		})
	}
	res.Status = model.StatusFail
}

func overall(stages []StageResult) model.Status {
	statuses := make([]model.Status, 0, len(stages))
	for _, s := range stages {
		if s.Skipped {
			continue
		}
		statuses = append(statuses, s.Status)
	}
	return model.Combine(statuses...)
}
