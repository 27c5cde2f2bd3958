package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/renderlab/rendergate/internal/model"
)

// Load reads a gate configuration from a YAML file. Fields left unset in
// the file keep their built-in defaults. A configuration that cannot be
// read or validated is fatal to the run: the gate refuses to operate on a
// guessed rule table.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return LoadBytes(data)
}

// LoadBytes parses a gate configuration from YAML bytes.
func LoadBytes(data []byte) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(cfg)
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.SchemaVersion == 0 {
		cfg.SchemaVersion = 1
	}
	if cfg.Roots.Project == "" {
		cfg.Roots.Project = "/project"
	}
	if cfg.Roots.Artifacts == "" {
		cfg.Roots.Artifacts = "/artifacts"
	}
	for tier, rule := range cfg.Tiers {
		if rule.RequiredFPS == 0 {
			rule.RequiredFPS = RequiredFPS
			cfg.Tiers[tier] = rule
		}
	}
}

func validate(cfg *Config) error {
	if cfg.SchemaVersion != 1 {
		return fmt.Errorf("unsupported schema_version %d (max supported: 1)", cfg.SchemaVersion)
	}

	for _, tier := range []model.Tier{model.TierFree, model.TierPremium} {
		rule, ok := cfg.Tiers[tier]
		if !ok {
			return fmt.Errorf("missing tier rule for %q", tier)
		}
		if rule.MaxDurationSec <= 0 {
			return fmt.Errorf("tier %s: max_duration_s must be positive", tier)
		}
		if len(rule.AllowedResolutions) == 0 {
			return fmt.Errorf("tier %s: allowed_resolutions must not be empty", tier)
		}
		if rule.MaxComputeBudget <= 0 {
			return fmt.Errorf("tier %s: max_compute_budget must be positive", tier)
		}
		if rule.MaxWallTimeSec <= 0 {
			return fmt.Errorf("tier %s: max_wall_time_s must be positive", tier)
		}
	}

	for _, imp := range cfg.Lint.DenyImports {
		if imp.Path == "" {
			return fmt.Errorf("deny_imports: missing path")
		}
		switch imp.Category {
		case CategoryProcess, CategoryNetwork, CategoryDynCode:
		default:
			return fmt.Errorf("deny_imports %s: unknown category %q", imp.Path, imp.Category)
		}
	}
	for _, call := range cfg.Lint.DangerCalls {
		if call.Pkg == "" || call.Func == "" {
			return fmt.Errorf("danger_calls: pkg and func are required")
		}
	}
	for _, w := range cfg.Lint.WriteCalls {
		if w.Pkg == "" || w.Func == "" {
			return fmt.Errorf("write_calls: pkg and func are required")
		}
		if w.PathArg < 0 {
			return fmt.Errorf("write_calls %s.%s: path_arg must be >= 0", w.Pkg, w.Func)
		}
		if w.FlagArg != -1 && w.FlagArg == w.PathArg {
			return fmt.Errorf("write_calls %s.%s: flag_arg must be -1 or distinct from path_arg", w.Pkg, w.Func)
		}
	}

	return nil
}
