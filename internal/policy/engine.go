// Package policy cross-checks a structurally valid render plan against the
// tier rule table: duration, fps, resolution profile, compute budget and
// sandbox wall time, plus the one-off premium trial exception. Every
// violation found is reported together so a caller can surface all
// corrective actions at once.
package policy

import (
	"fmt"
	"strings"

	"github.com/renderlab/rendergate/internal/config"
	"github.com/renderlab/rendergate/internal/model"
)

// Stage label attached to every diagnostic this package produces.
const Stage = "tier"

// Check enforces the tier bounds for the plan. The plan must already have
// passed schema validation; Check is a pure function of (config, plan).
func Check(cfg *config.Config, plan model.RenderPlan) model.ValidationResult {
	var res model.ValidationResult

	rule, ok := cfg.TierRule(plan.Tier)
	if !ok {
		res.Add(diag("POL000", fmt.Sprintf("no tier rule for tier %q", plan.Tier), ""))
		res.Resolve()
		return res
	}

	// An empty step sequence fails independent of every other check: a
	// plan with nothing to execute must never reach the sandbox.
	if len(plan.Steps) == 0 {
		res.Add(diag("POL006", "plan has no steps", "a plan must contain at least one step to be executable"))
	}

	trial := plan.Tier == model.TierFree && plan.PremiumTrial
	bounds := rule
	if trial {
		// The one-off trial borrows the premium bounds, but keeps the
		// free tier's watermark mandate.
		premium, ok := cfg.TierRule(model.TierPremium)
		if !ok {
			res.Add(diag("POL000", "premium tier rule missing for trial plan", ""))
			res.Resolve()
			return res
		}
		bounds = premium
		if rule.WatermarkRequired && !plan.Constraints.WatermarkRequired {
			res.Add(diag("POL007", "premium trial requires watermark_required to be true",
				"the trial is only valid when the output carries the visible watermark"))
		}
	}

	c := plan.Constraints
	if c.DurationSec > bounds.MaxDurationSec {
		res.Add(diag("POL001",
			fmt.Sprintf("duration %gs exceeds %s cap of %gs", c.DurationSec, boundsName(plan.Tier, trial), bounds.MaxDurationSec),
			fmt.Sprintf("reduce duration_s to at most %g", bounds.MaxDurationSec)))
	}
	if c.FPS != bounds.RequiredFPS {
		res.Add(diag("POL002",
			fmt.Sprintf("fps %d does not match required fps %d", c.FPS, bounds.RequiredFPS),
			fmt.Sprintf("set fps to %d", bounds.RequiredFPS)))
	}
	if !bounds.AllowsResolution(c.Resolution) {
		res.Add(diag("POL003",
			fmt.Sprintf("resolution %q not allowed for %s (allowed: %s)",
				c.Resolution, boundsName(plan.Tier, trial), strings.Join(bounds.AllowedResolutions, ", ")),
			""))
	}
	if c.ComputeBudget > bounds.MaxComputeBudget {
		res.Add(diag("POL004",
			fmt.Sprintf("compute budget %g exceeds %s cap of %g", c.ComputeBudget, boundsName(plan.Tier, trial), bounds.MaxComputeBudget),
			fmt.Sprintf("reduce compute_budget to at most %g", bounds.MaxComputeBudget)))
	}
	if c.WallTimeLimitSec > bounds.MaxWallTimeSec {
		res.Add(diag("POL005",
			fmt.Sprintf("sandbox wall time %gs exceeds %s cap of %gs", c.WallTimeLimitSec, boundsName(plan.Tier, trial), bounds.MaxWallTimeSec),
			fmt.Sprintf("reduce wall_time_limit_s to at most %g", bounds.MaxWallTimeSec)))
	}

	res.Resolve()
	return res
}

func boundsName(tier model.Tier, trial bool) string {
	if trial {
		return "premium-trial"
	}
	return fmt.Sprintf("%s tier", tier)
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
