// Package config builds the immutable gate configuration: the tier rule
// table, the lint rule tables, and the permitted write roots. The
// configuration is constructed once at process start and passed explicitly
// into every validation call, so concurrent validations share no mutable
// state.
package config

import "github.com/renderlab/rendergate/internal/model"

// Category classifies a denied namespace.
type Category string

const (
	CategoryProcess Category = "process"
	CategoryNetwork Category = "network"
	CategoryDynCode Category = "dyncode"
)

// ImportRule denylists a module namespace. Importing it is flagged at the
// import site; every subsequent use of a name bound to it is flagged too.
type ImportRule struct {
	Path     string   `yaml:"path"`
	Category Category `yaml:"category"`
	Reason   string   `yaml:"reason"`
}

// CallRule denylists a single package-level call target. Matching is
// syntactic by name and alias, not semantic resolution.
type CallRule struct {
	Pkg    string `yaml:"pkg"`
	Func   string `yaml:"func"`
	Reason string `yaml:"reason"`
}

// WriteRule marks a call as a file-opening write operation. PathArg is the
// index of the destination argument. FlagArg is the index of the open-flag
// argument, or -1 when the call always writes.
type WriteRule struct {
	Pkg     string `yaml:"pkg"`
	Func    string `yaml:"func"`
	PathArg int    `yaml:"path_arg"`
	FlagArg int    `yaml:"flag_arg"`
}

// LintConfig carries the linter's rule tables.
type LintConfig struct {
	DenyImports []ImportRule `yaml:"deny_imports"`
	DangerCalls []CallRule   `yaml:"danger_calls"`
	WriteCalls  []WriteRule  `yaml:"write_calls"`
}

// Roots are the only directories linted source may write into.
type Roots struct {
	Project   string `yaml:"project"`
	Artifacts string `yaml:"artifacts"`
}

// Config is the full gate configuration.
type Config struct {
	SchemaVersion int                           `yaml:"schema_version"`
	Tiers         map[model.Tier]model.TierRule `yaml:"tiers"`
	Lint          LintConfig                    `yaml:"lint"`
	Roots         Roots                         `yaml:"roots"`
}

// RequiredFPS is fixed for every plan regardless of tier.
const RequiredFPS = 24

// Default returns the built-in gate configuration.
func Default() *Config {
	return &Config{
		SchemaVersion: 1,
		Tiers: map[model.Tier]model.TierRule{
			model.TierFree: {
				MaxDurationSec:     8,
				AllowedResolutions: []string{"480p"},
				RequiredFPS:        RequiredFPS,
				MaxComputeBudget:   1.0,
				MaxWallTimeSec:     120,
				WatermarkRequired:  true,
			},
			model.TierPremium: {
				MaxDurationSec:     30,
				AllowedResolutions: []string{"480p", "720p", "1080p"},
				RequiredFPS:        RequiredFPS,
				MaxComputeBudget:   4.0,
				MaxWallTimeSec:     600,
				WatermarkRequired:  false,
			},
		},
		Lint: LintConfig{
			DenyImports: []ImportRule{
				{Path: "os/exec", Category: CategoryProcess, Reason: "process spawning"},
				{Path: "syscall", Category: CategoryProcess, Reason: "raw syscalls and process control"},
				{Path: "plugin", Category: CategoryDynCode, Reason: "dynamic code loading"},
				{Path: "net", Category: CategoryNetwork, Reason: "raw networking"},
				{Path: "net/http", Category: CategoryNetwork, Reason: "HTTP client access"},
			},
			DangerCalls: []CallRule{
				{Pkg: "os/exec", Func: "Command", Reason: "OS command execution"},
				{Pkg: "os/exec", Func: "CommandContext", Reason: "OS command execution"},
				{Pkg: "os", Func: "StartProcess", Reason: "process spawning"},
				{Pkg: "syscall", Func: "Exec", Reason: "process image replacement"},
				{Pkg: "syscall", Func: "ForkExec", Reason: "process spawning"},
				{Pkg: "plugin", Func: "Open", Reason: "dynamic code loading"},
			},
			WriteCalls: []WriteRule{
				{Pkg: "os", Func: "Create", PathArg: 0, FlagArg: -1},
				{Pkg: "os", Func: "WriteFile", PathArg: 0, FlagArg: -1},
				{Pkg: "os", Func: "OpenFile", PathArg: 0, FlagArg: 1},
				{Pkg: "os", Func: "Mkdir", PathArg: 0, FlagArg: -1},
				{Pkg: "os", Func: "MkdirAll", PathArg: 0, FlagArg: -1},
			},
		},
		Roots: Roots{
			Project:   "/project",
			Artifacts: "/artifacts",
		},
	}
}

// TierRule returns the rule table for the given tier.
func (c *Config) TierRule(tier model.Tier) (model.TierRule, bool) {
	r, ok := c.Tiers[tier]
	return r, ok
}

// UseRuleID maps a namespace category to the rule id reported when a name
// bound to that namespace is used.
func (cat Category) UseRuleID() string {
	switch cat {
	case CategoryNetwork:
		return "CAL003"
	default:
		return "CAL002"
	}
}
