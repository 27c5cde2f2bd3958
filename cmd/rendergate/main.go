package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/renderlab/rendergate/internal/ci"
	"github.com/renderlab/rendergate/internal/config"
	"github.com/renderlab/rendergate/internal/lint"
	"github.com/renderlab/rendergate/internal/model"
	"github.com/renderlab/rendergate/internal/preflight"
	"github.com/renderlab/rendergate/internal/report"
	"github.com/renderlab/rendergate/internal/schema"
)

const version = "1.0.0"

// Exit codes: 0 = PASS, 1 = usage or configuration error, 2 = gate FAIL.
const (
	exitOK    = 0
	exitUsage = 1
	exitGate  = 2
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(exitUsage)
	}

	switch os.Args[1] {
	case "preflight":
		runPreflight(os.Args[2:])
	case "lint":
		runLint(os.Args[2:])
	case "validate":
		runValidate(os.Args[2:])
	case "ci":
		runCI(os.Args[2:])
	case "tiers":
		runTiers(os.Args[2:])
	case "version":
		fmt.Printf("rendergate %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(exitUsage)
	}
}

func loadConfig(path string) *config.Config {
	if path == "" {
		return config.Default()
	}
	cfg, err := config.Load(path)
	if err != nil {
		// A configuration the gate cannot read is the one fatal error:
		// validating against a guessed rule table is worse than refusing.
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(exitUsage)
	}
	return cfg
}

func runPreflight(args []string) {
	var planPath, configPath, outPath string
	var opts preflight.Options
	jsonOutput := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--fail-on-warn":
			opts.FailOnWarn = true
		case "--json":
			jsonOutput = true
		case "--out":
			outPath = nextArg(args, &i, "--out")
		case "--config":
			configPath = nextArg(args, &i, "--config")
		case "--project-root":
			opts.ProjectRoot = nextArg(args, &i, "--project-root")
		case "--artifacts-root":
			opts.ArtifactsRoot = nextArg(args, &i, "--artifacts-root")
		default:
			if strings.HasPrefix(args[i], "-") {
				fmt.Fprintf(os.Stderr, "unknown flag: %s\nusage: rendergate preflight <plan> [--fail-on-warn] [--json] [--out <path>] [--config <path>] [--project-root <dir>] [--artifacts-root <dir>]\n", args[i])
				os.Exit(exitUsage)
			}
			if planPath != "" {
				fmt.Fprintln(os.Stderr, "usage: rendergate preflight <plan> [options]")
				os.Exit(exitUsage)
			}
			planPath = args[i]
		}
	}

	if planPath == "" {
		fmt.Fprintln(os.Stderr, "usage: rendergate preflight <plan> [--fail-on-warn] [--json] [--out <path>] [--config <path>] [--project-root <dir>] [--artifacts-root <dir>]")
		os.Exit(exitUsage)
	}

	cfg := loadConfig(configPath)
	res := preflight.Run(cfg, planPath, opts)

	if jsonOutput {
		if err := preflight.WriteJSON(os.Stdout, res); err != nil {
			fmt.Fprintf(os.Stderr, "encode result: %v\n", err)
			os.Exit(exitUsage)
		}
	} else {
		preflight.WriteReport(os.Stdout, res)
	}

	if outPath != "" {
		if err := report.WriteFile(outPath, res); err != nil {
			fmt.Fprintf(os.Stderr, "write report: %v\n", err)
			os.Exit(exitUsage)
		}
	}

	if res.Failed(opts.FailOnWarn) {
		os.Exit(exitGate)
	}
}

func runLint(args []string) {
	var paths []string
	var configPath string
	projectRoot := ""
	artifactsRoot := ""
	jsonOutput := false
	failOnWarn := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--paths":
			// Consume every following value up to the next flag.
			for i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				i++
				paths = append(paths, args[i])
			}
		case "--project-root":
			projectRoot = nextArg(args, &i, "--project-root")
		case "--artifacts-root":
			artifactsRoot = nextArg(args, &i, "--artifacts-root")
		case "--config":
			configPath = nextArg(args, &i, "--config")
		case "--json":
			jsonOutput = true
		case "--fail-on-warn":
			failOnWarn = true
		default:
			fmt.Fprintf(os.Stderr, "unknown flag: %s\nusage: rendergate lint --paths <file.go>... [--project-root <dir>] [--artifacts-root <dir>] [--json] [--fail-on-warn]\n", args[i])
			os.Exit(exitUsage)
		}
	}

	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "usage: rendergate lint --paths <file.go>... [--project-root <dir>] [--artifacts-root <dir>] [--json] [--fail-on-warn]")
		os.Exit(exitUsage)
	}

	cfg := loadConfig(configPath)
	if projectRoot == "" {
		projectRoot = cfg.Roots.Project
	}
	if artifactsRoot == "" {
		artifactsRoot = cfg.Roots.Artifacts
	}

	res := lint.Lint(cfg, paths, projectRoot, artifactsRoot)

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res.Diagnostics); err != nil {
			fmt.Fprintf(os.Stderr, "encode findings: %v\n", err)
			os.Exit(exitUsage)
		}
	} else {
		for _, d := range res.Diagnostics {
			fmt.Println(d)
		}
	}

	if res.Status == model.StatusFail || (failOnWarn && res.Status == model.StatusWarn) {
		os.Exit(exitGate)
	}
}

func runValidate(args []string) {
	var planPath, configPath string

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--config":
			configPath = nextArg(args, &i, "--config")
		default:
			if strings.HasPrefix(args[i], "-") || planPath != "" {
				fmt.Fprintln(os.Stderr, "usage: rendergate validate <plan> [--config <path>]")
				os.Exit(exitUsage)
			}
			planPath = args[i]
		}
	}

	if planPath == "" {
		fmt.Fprintln(os.Stderr, "usage: rendergate validate <plan> [--config <path>]")
		os.Exit(exitUsage)
	}

	loadConfig(configPath) // surfaces config errors even though schema needs no tiers

	doc, err := schema.DecodeFile(planPath)
	if err != nil {
		fmt.Printf("schema validation: FAIL\n  %v\n", err)
		os.Exit(exitGate)
	}
	res := schema.Validate(doc.Raw)
	if res.Status == model.StatusFail {
		fmt.Println("schema validation: FAIL")
		for _, d := range res.Diagnostics {
			fmt.Printf("  %s\n", d)
		}
		os.Exit(exitGate)
	}
	fmt.Println("schema validation: PASS")
}

func runCI(args []string) {
	var dirs []string
	var configPath, logLevel string
	var opts preflight.Options
	watch := false
	debounceMs := 0

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--dir":
			dirs = append(dirs, nextArg(args, &i, "--dir"))
		case "--fail-on-warn":
			opts.FailOnWarn = true
		case "--watch":
			watch = true
		case "--config":
			configPath = nextArg(args, &i, "--config")
		case "--log-level":
			logLevel = nextArg(args, &i, "--log-level")
		case "--debounce-ms":
			v := nextArg(args, &i, "--debounce-ms")
			if _, err := fmt.Sscanf(v, "%d", &debounceMs); err != nil {
				fmt.Fprintf(os.Stderr, "invalid --debounce-ms value: %s\n", v)
				os.Exit(exitUsage)
			}
		default:
			fmt.Fprintf(os.Stderr, "unknown flag: %s\nusage: rendergate ci --dir <plans-dir>... [--watch] [--fail-on-warn] [--config <path>]\n", args[i])
			os.Exit(exitUsage)
		}
	}

	if len(dirs) == 0 {
		fmt.Fprintln(os.Stderr, "usage: rendergate ci --dir <plans-dir>... [--watch] [--fail-on-warn] [--config <path>]")
		os.Exit(exitUsage)
	}

	cfg := loadConfig(configPath)
	runner := ci.NewRunner(cfg, opts, os.Stdout)

	if watch {
		logger := log.New(os.Stderr, "", 0)
		watcher := ci.NewWatcher(runner, dirs, time.Duration(debounceMs)*time.Millisecond, logger, ci.ParseLogLevel(logLevel))
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := watcher.Run(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "ci watch: %v\n", err)
			os.Exit(exitUsage)
		}
		return
	}

	sum, err := runner.RunDirs(dirs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ci: %v\n", err)
		os.Exit(exitUsage)
	}
	if sum.Failing(opts.FailOnWarn) {
		os.Exit(exitGate)
	}
}

func runTiers(args []string) {
	var configPath string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--config":
			configPath = nextArg(args, &i, "--config")
		default:
			fmt.Fprintln(os.Stderr, "usage: rendergate tiers [--config <path>]")
			os.Exit(exitUsage)
		}
	}

	cfg := loadConfig(configPath)

	tiers := make([]model.Tier, 0, len(cfg.Tiers))
	for tier := range cfg.Tiers {
		tiers = append(tiers, tier)
	}
	sort.Slice(tiers, func(i, j int) bool { return tiers[i] < tiers[j] })

	for _, tier := range tiers {
		rule := cfg.Tiers[tier]
		fmt.Printf("%s:\n", tier)
		fmt.Printf("  max duration:   %gs\n", rule.MaxDurationSec)
		fmt.Printf("  resolutions:    %s\n", strings.Join(rule.AllowedResolutions, ", "))
		fmt.Printf("  required fps:   %d\n", rule.RequiredFPS)
		fmt.Printf("  compute budget: %g\n", rule.MaxComputeBudget)
		fmt.Printf("  wall time:      %gs\n", rule.MaxWallTimeSec)
		fmt.Printf("  watermark:      %s\n", watermarkPolicy(rule.WatermarkRequired))
	}
}

func watermarkPolicy(required bool) string {
	if required {
		return "required"
	}
	return "optional"
}

func nextArg(args []string, i *int, flag string) string {
	if *i+1 >= len(args) {
		fmt.Fprintf(os.Stderr, "%s requires a value\n", flag)
		os.Exit(exitUsage)
	}
	*i++
	return args[*i]
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `rendergate %s - preflight safety gate for tiered render plans

Usage: rendergate <command> [options]

Gate:
  preflight <plan>   Validate a plan and lint its referenced sources
  validate <plan>    Schema validation only
  lint --paths ...   Lint Go source files against the safety rules

Automation:
  ci --dir <dir>     Validate every plan under a directory (add --watch to stay running)

Utilities:
  tiers              Show the tier rule table
  version            Show version
  help               Show this help

Common flags:
  --fail-on-warn     Treat warnings as failures (exit status only)
  --json             Structured output for automated consumption
  --out <path>       Also write the structured result to a file (atomic)
  --config <path>    Gate configuration file (built-in defaults otherwise)
  --project-root     Permitted project write root (default /project)
  --artifacts-root   Permitted artifacts write root (default /artifacts)

Exit codes: 0 = PASS, 1 = usage or config error, 2 = gate FAIL.

`, version)
}
