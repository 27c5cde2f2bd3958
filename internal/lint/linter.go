// Package lint statically analyzes Go scene sources before the sandbox may
// run them. It parses each file, tracks which local names are bound to
// denylisted namespaces, and evaluates the configured detection rules over
// the syntax tree: direct danger calls, denied-namespace usage, and
// literal-path writes outside the permitted roots.
//
// Matching is syntactic. Aliases are resolved per file from import
// statements only; there is no cross-file or semantic resolution, and
// write destinations computed at runtime are not evaluated. Dynamic
// destinations are the execution sandbox's responsibility.
package lint

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/scanner"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/renderlab/rendergate/internal/config"
	"github.com/renderlab/rendergate/internal/model"
)

// Stage label attached to every diagnostic this package produces.
const Stage = "lint"

// Lint analyzes the given source files. Files are processed independently
// and concurrently; a failure reading or parsing one file becomes a
// diagnostic for that file and never aborts the others. The result FAILs
// if any violation exists across all files, and is deterministic for
// unchanged inputs.
func Lint(cfg *config.Config, paths []string, projectRoot, artifactsRoot string) model.ValidationResult {
	rules := compile(cfg, projectRoot, artifactsRoot)

	perFile := make([][]model.Diagnostic, len(paths))
	var g errgroup.Group
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			perFile[i] = lintFile(rules, path)
			return nil
		})
	}
	// File problems surface as diagnostics, never as errors.
	_ = g.Wait()

	var res model.ValidationResult
	for _, ds := range perFile {
		res.Diagnostics = append(res.Diagnostics, ds...)
	}
	sortDiagnostics(res.Diagnostics)
	res.Resolve()
	return res
}

// ruleSet is the compiled, immutable form of the lint configuration.
type ruleSet struct {
	denyImports   []config.ImportRule
	dangerCalls   map[string]map[string]config.CallRule
	writeCalls    map[string]map[string]config.WriteRule
	projectRoot   string
	artifactsRoot string
}

func compile(cfg *config.Config, projectRoot, artifactsRoot string) *ruleSet {
	rs := &ruleSet{
		denyImports:   cfg.Lint.DenyImports,
		dangerCalls:   make(map[string]map[string]config.CallRule),
		writeCalls:    make(map[string]map[string]config.WriteRule),
		projectRoot:   filepath.Clean(projectRoot),
		artifactsRoot: filepath.Clean(artifactsRoot),
	}
	for _, c := range cfg.Lint.DangerCalls {
		if rs.dangerCalls[c.Pkg] == nil {
			rs.dangerCalls[c.Pkg] = make(map[string]config.CallRule)
		}
		rs.dangerCalls[c.Pkg][c.Func] = c
	}
	for _, w := range cfg.Lint.WriteCalls {
		if rs.writeCalls[w.Pkg] == nil {
			rs.writeCalls[w.Pkg] = make(map[string]config.WriteRule)
		}
		rs.writeCalls[w.Pkg][w.Func] = w
	}
	return rs
}

// matchImport returns the most specific deny rule covering the import path.
func (rs *ruleSet) matchImport(path string) (config.ImportRule, bool) {
	var best config.ImportRule
	found := false
	for _, rule := range rs.denyImports {
		if path == rule.Path || strings.HasPrefix(path, rule.Path+"/") {
			if !found || len(rule.Path) > len(best.Path) {
				best = rule
				found = true
			}
		}
	}
	return best, found
}

func lintFile(rules *ruleSet, path string) []model.Diagnostic {
	src, err := os.ReadFile(path)
	if err != nil {
		return []model.Diagnostic{{
			Stage:    Stage,
			RuleID:   "IO001",
			Severity: model.SeverityError,
			Message:  fmt.Sprintf("cannot read source file: %v", err),
			File:     path,
		}}
	}

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, src, 0)
	if err != nil {
		return []model.Diagnostic{parseDiagnostic(path, err)}
	}

	fl := &fileLinter{rules: rules, fset: fset, path: path}
	fl.collectImports(file)
	ast.Inspect(file, fl.inspect)
	return fl.findings
}

func parseDiagnostic(path string, err error) model.Diagnostic {
	d := model.Diagnostic{
		Stage:    Stage,
		RuleID:   "SYN001",
		Severity: model.SeverityError,
		Message:  fmt.Sprintf("parse failure: %v", err),
		File:     path,
	}
	if list, ok := err.(scanner.ErrorList); ok && len(list) > 0 {
		d.Line = list[0].Pos.Line
		d.Col = list[0].Pos.Column
		d.Message = fmt.Sprintf("parse failure: %s", list[0].Msg)
	}
	return d
}

// fileLinter walks one file's syntax tree and collects violations.
type fileLinter struct {
	rules    *ruleSet
	fset     *token.FileSet
	path     string
	aliases  map[string]string // local name -> import path
	findings []model.Diagnostic
}

func (fl *fileLinter) collectImports(file *ast.File) {
	fl.aliases = make(map[string]string)
	for _, imp := range file.Imports {
		path, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			continue
		}

		local := ""
		switch {
		case imp.Name == nil:
			local = path[strings.LastIndex(path, "/")+1:]
		case imp.Name.Name == "_" || imp.Name.Name == ".":
			// Blank and dot imports bind no selector-usable name; the
			// import itself is still checked below.
		default:
			local = imp.Name.Name
		}
		if local != "" {
			fl.aliases[local] = path
		}

		if rule, ok := fl.rules.matchImport(path); ok {
			fl.report("IMP001", imp.Pos(), fmt.Sprintf("disallowed import %q: %s", path, rule.Reason))
		}
	}
}

func (fl *fileLinter) inspect(n ast.Node) bool {
	switch node := n.(type) {
	case *ast.SelectorExpr:
		fl.checkNamespaceUse(node)
	case *ast.CallExpr:
		fl.checkCall(node)
	}
	return true
}

// checkNamespaceUse flags any reference through a name bound to a denied
// namespace, whether or not the reference is a call.
func (fl *fileLinter) checkNamespaceUse(sel *ast.SelectorExpr) {
	ident, ok := sel.X.(*ast.Ident)
	if !ok {
		return
	}
	path, bound := fl.aliases[ident.Name]
	if !bound {
		return
	}
	if rule, ok := fl.rules.matchImport(path); ok {
		fl.report(rule.Category.UseRuleID(), sel.Pos(),
			fmt.Sprintf("use of denied namespace %q (%s) via %s.%s", path, rule.Reason, ident.Name, sel.Sel.Name))
	}
}

func (fl *fileLinter) checkCall(call *ast.CallExpr) {
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok {
		return
	}
	ident, ok := sel.X.(*ast.Ident)
	if !ok {
		return
	}
	path, bound := fl.aliases[ident.Name]
	if !bound {
		return
	}

	if byFunc, ok := fl.rules.dangerCalls[path]; ok {
		if rule, ok := byFunc[sel.Sel.Name]; ok {
			fl.report("CAL001", call.Pos(),
				fmt.Sprintf("dangerous call %s.%s: %s", path, sel.Sel.Name, rule.Reason))
		}
	}

	if byFunc, ok := fl.rules.writeCalls[path]; ok {
		if rule, ok := byFunc[sel.Sel.Name]; ok {
			fl.checkWrite(call, rule)
		}
	}
}

// checkWrite evaluates the out-of-root write rule for a recognized
// file-opening call. Only literal destinations are evaluated; a computed
// destination is an intentional gap left to the sandbox's runtime guard.
func (fl *fileLinter) checkWrite(call *ast.CallExpr, rule config.WriteRule) {
	if rule.PathArg >= len(call.Args) {
		return
	}
	lit, ok := call.Args[rule.PathArg].(*ast.BasicLit)
	if !ok || lit.Kind != token.STRING {
		return
	}
	dest, err := strconv.Unquote(lit.Value)
	if err != nil {
		return
	}

	if rule.FlagArg >= 0 {
		if rule.FlagArg >= len(call.Args) || !isWriteFlag(call.Args[rule.FlagArg]) {
			return
		}
	}

	norm := dest
	if !filepath.IsAbs(norm) {
		norm = filepath.Join(fl.rules.projectRoot, norm)
	}
	norm = filepath.Clean(norm)

	if !underRoot(norm, fl.rules.projectRoot) && !underRoot(norm, fl.rules.artifactsRoot) {
		fl.report("FS001", call.Pos(),
			fmt.Sprintf("write to %q resolves outside permitted roots %s and %s",
				dest, fl.rules.projectRoot, fl.rules.artifactsRoot))
	}
}

// isWriteFlag reports whether the open-flag expression mentions a
// write-mode flag. The expression is scanned syntactically, so composed
// flags like os.O_WRONLY|os.O_CREATE are recognized.
func isWriteFlag(expr ast.Expr) bool {
	write := false
	ast.Inspect(expr, func(n ast.Node) bool {
		name := ""
		switch v := n.(type) {
		case *ast.SelectorExpr:
			name = v.Sel.Name
		case *ast.Ident:
			name = v.Name
		}
		switch name {
		case "O_WRONLY", "O_RDWR", "O_APPEND", "O_CREATE", "O_TRUNC":
			write = true
		}
		return !write
	})
	return write
}

func underRoot(path, root string) bool {
	if path == root {
		return true
	}
	return strings.HasPrefix(path, root+string(filepath.Separator))
}

func (fl *fileLinter) report(ruleID string, pos token.Pos, msg string) {
	position := fl.fset.Position(pos)
	fl.findings = append(fl.findings, model.Diagnostic{
		Stage:    Stage,
		RuleID:   ruleID,
		Severity: model.SeverityError,
		Message:  msg,
		File:     fl.path,
		Line:     position.Line,
		Col:      position.Column,
	})
}

func sortDiagnostics(ds []model.Diagnostic) {
	sort.SliceStable(ds, func(i, j int) bool {
		a, b := ds[i], ds[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Col != b.Col {
			return a.Col < b.Col
		}
		return a.RuleID < b.RuleID
	})
}
