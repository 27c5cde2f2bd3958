// Package model defines the data structures for render plans, tier rules,
// and validation results.
package model

// Tier is a service level with distinct resource and quality bounds.
type Tier string

const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
)

// RenderPlan is the execution-plan document submitted to the gate before
// any render runs. It is immutable once submitted; the gate never mutates it.
type RenderPlan struct {
	SchemaVersion int          `yaml:"schema_version" json:"schema_version"`
	ID            string       `yaml:"id" json:"id"`
	Project       string       `yaml:"project" json:"project"`
	Tier          Tier         `yaml:"tier" json:"tier"`
	Goal          string       `yaml:"goal" json:"goal"`
	PremiumTrial  bool         `yaml:"premium_trial,omitempty" json:"premium_trial,omitempty"`
	Inputs        Inputs       `yaml:"inputs" json:"inputs"`
	Constraints   Constraints  `yaml:"constraints" json:"constraints"`
	Steps         []PlanStep   `yaml:"steps" json:"steps"`
	Acceptance    []Acceptance `yaml:"acceptance_tests,omitempty" json:"acceptance_tests,omitempty"`
	Artifacts     []Artifact   `yaml:"artifacts,omitempty" json:"artifacts,omitempty"`
	Memory        []string     `yaml:"memory,omitempty" json:"memory,omitempty"`
}

// Inputs references the source the plan intends to render.
type Inputs struct {
	SourceFiles []string `yaml:"source_files" json:"source_files"`
	EntryPoint  string   `yaml:"entry_point" json:"entry_point"`
	Scene       string   `yaml:"scene" json:"scene"`
}

// Constraints carries the resource and quality bounds the plan commits to.
type Constraints struct {
	DurationSec       float64 `yaml:"duration_s" json:"duration_s"`
	FPS               int     `yaml:"fps" json:"fps"`
	Resolution        string  `yaml:"resolution" json:"resolution"`
	ComputeBudget     float64 `yaml:"compute_budget" json:"compute_budget"`
	SandboxPhase      string  `yaml:"sandbox_phase" json:"sandbox_phase"`
	WatermarkRequired bool    `yaml:"watermark_required" json:"watermark_required"`
	NetworkDisabled   bool    `yaml:"network_disabled" json:"network_disabled"`
	WallTimeLimitSec  float64 `yaml:"wall_time_limit_s" json:"wall_time_limit_s"`
}

// PlanStep is one entry in the ordered tool sequence.
type PlanStep struct {
	Tool      string         `yaml:"tool" json:"tool"`
	Params    map[string]any `yaml:"params,omitempty" json:"params,omitempty"`
	Rationale string         `yaml:"rationale,omitempty" json:"rationale,omitempty"`
}

// Acceptance describes one acceptance test the render must satisfy.
type Acceptance struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Artifact describes an output path the render is expected to produce.
type Artifact struct {
	Path string `yaml:"path" json:"path"`
	Kind string `yaml:"kind,omitempty" json:"kind,omitempty"`
}

// TierRule is the per-tier bound table the policy engine enforces.
type TierRule struct {
	MaxDurationSec     float64  `yaml:"max_duration_s"`
	AllowedResolutions []string `yaml:"allowed_resolutions"`
	RequiredFPS        int      `yaml:"required_fps"`
	MaxComputeBudget   float64  `yaml:"max_compute_budget"`
	MaxWallTimeSec     float64  `yaml:"max_wall_time_s"`
	WatermarkRequired  bool     `yaml:"watermark_required"`
}

// AllowsResolution reports whether the tier permits the given profile.
func (r TierRule) AllowsResolution(profile string) bool {
	for _, p := range r.AllowedResolutions {
		if p == profile {
			return true
		}
	}
	return false
}
