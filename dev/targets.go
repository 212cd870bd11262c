//go:build targ

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"go/token"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/akedrou/textdiff"
	"github.com/dave/dst"
	"github.com/dave/dst/decorator"
	"github.com/toejough/go-reorder"
	"github.com/toejough/targ"
	"github.com/toejough/targ/file"
	"github.com/toejough/targ/sh"
)

// Build builds the local calc binary.
func Build() error {
	fmt.Println("Building calc...")

	if err := os.MkdirAll("bin", 0o755); err != nil {
		return fmt.Errorf("failed to create bin directory: %w", err)
	}

	return sh.Run("go", "build", "-o", "bin/calc", "./calc")
}

// Check runs all checks & fixes on the code, in order of correctness.
func Check() error {
	fmt.Println("Checking...")

	return targ.Deps(
		Tidy,           // clean up the module dependencies
		DeleteDeadcode, // no use doing anything else to dead code
		FixImports,     // after dead code removal, fix imports to remove unused ones
		CheckCoverage,  // does our code work?
		ReorderDecls,   // linter will yell about declaration order if not correct
		Lint,
	)
}

// CheckCoverage checks that function coverage meets the minimum threshold.
func CheckCoverage() error {
	fmt.Println("Checking coverage...")

	if err := targ.Deps(Test); err != nil {
		return err
	}

	out, err := output("go", "tool", "cover", "-func=coverage.out")
	if err != nil {
		return err
	}

	funcs, err := parseFuncCoverage(out)
	if err != nil {
		return err
	}

	if len(funcs) == 0 {
		return errors.New("no functions found in coverage.out")
	}

	slices.SortStableFunc(funcs, func(a, b funcCoverage) int {
		switch {
		case a.percent < b.percent:
			return -1
		case a.percent > b.percent:
			return 1
		default:
			return 0
		}
	})

	for _, f := range funcs {
		fmt.Println(f.line)
	}

	lowest := funcs[0]
	if lowest.percent < minFunctionCoverage {
		return fmt.Errorf("function coverage was less than the limit of %.1f:\n  %s", minFunctionCoverage, lowest.line)
	}

	return nil
}

// CheckForFail runs all checks on the code for determining whether any fail.
func CheckForFail() error {
	fmt.Println("Checking...")

	// Checks from fastest to slowest
	return targ.Deps(
		ReorderDeclsCheck,
		LintForFail,
		Deadcode,
		TestForFail,
		CheckCoverage,
	)
}

// Clean cleans up the dev env.
func Clean() {
	fmt.Println("Cleaning...")
	os.Remove("coverage.out")
	os.RemoveAll("bin")
}

// Deadcode checks that there's no dead code in codebase.
func Deadcode() error {
	fmt.Println("Checking for dead code...")

	out, err := output("deadcode", "-test", "./...")
	if err != nil {
		return err
	}

	found := []string{}

	for line := range strings.SplitSeq(out, "\n") {
		if _, ok := parseDeadcodeLine(line); ok {
			found = append(found, line)
		}
	}

	if len(found) > 0 {
		fmt.Println(strings.Join(found, "\n"))

		return errors.New("found dead code")
	}

	return nil
}

// DeleteDeadcode removes unreachable functions from the codebase.
func DeleteDeadcode() error {
	fmt.Println("Deleting dead code...")

	out, err := output("deadcode", "-test", "./...")
	if err != nil {
		return err
	}

	fileToFuncs := make(map[string][]string)

	for line := range strings.SplitSeq(out, "\n") {
		dead, ok := parseDeadcodeLine(line)
		if !ok {
			continue
		}

		fileToFuncs[dead.file] = append(fileToFuncs[dead.file], dead.name)
	}

	totalDeleted := 0

	for path, funcs := range fileToFuncs {
		deleted, err := deleteDeadDecls(path, funcs)
		if err != nil {
			fmt.Printf("Warning: failed to process %s: %v\n", path, err)

			continue
		}

		totalDeleted += deleted
	}

	fmt.Printf("Deleted %d unreachable functions from %d files\n", totalDeleted, len(fileToFuncs))

	return nil
}

// FixImports fixes all imports in the codebase.
func FixImports() error {
	fmt.Println("Fixing imports...")
	return sh.Run("goimports", "-w", ".")
}

// Fuzz runs every fuzz target in the module for a short, fixed time each.
func Fuzz() error {
	fmt.Println("Running fuzz tests...")

	out, err := output("go", "test", "-list", "^Fuzz", "./...")
	if err != nil {
		return err
	}

	for _, target := range parseFuzzTargets(out) {
		fmt.Printf("  %s %s\n", target.pkg, target.name)

		err := sh.Run("go", "test", "-run=^$", "-fuzz=^"+target.name+"$", "-fuzztime="+fuzzTime, target.pkg)
		if err != nil {
			return fmt.Errorf("fuzz target %s in %s failed: %w", target.name, target.pkg, err)
		}
	}

	return nil
}

// Generate regenerates the mocks.
func Generate() error {
	fmt.Println("Generating...")
	return sh.Run("go", "generate", "./...")
}

// Lint lints the codebase.
func Lint() error {
	fmt.Println("Linting...")
	return sh.Run("golangci-lint", "run", "-c", "dev/golangci.toml")
}

// LintForFail lints the codebase purely to find out whether anything fails.
func LintForFail() error {
	fmt.Println("Linting to check for overall pass/fail...")

	return sh.Run(
		"golangci-lint", "run",
		"-c", "dev/golangci.toml",
		"--fix=false",
		"--max-issues-per-linter=1",
		"--max-same-issues=1",
		"--allow-parallel-runners",
	)
}

// Mutate runs the mutation tests.
func Mutate() error {
	fmt.Println("Running mutation tests...")

	if err := targ.Deps(TestForFail); err != nil {
		return err
	}

	return sh.Run(
		"go",
		"test",
		"-timeout=6000s",
		"-tags=mutation",
		"-ooze.v",
		"./dev/...",
		"-run=TestMutation",
	)
}

// ReorderDecls reorders declarations in Go files per conventions.
func ReorderDecls() error {
	fmt.Println("Reordering declarations...")

	files, err := sourceFiles(".")
	if err != nil {
		return err
	}

	reorderedCount := 0

	for _, path := range files {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		reordered, err := reorder.Source(string(content))
		if err != nil {
			fmt.Printf("Warning: failed to reorder %s: %v\n", path, err)

			continue
		}

		if string(content) == reordered {
			continue
		}

		err = os.WriteFile(path, []byte(reordered), 0o600)
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}

		fmt.Printf("  Reordered: %s\n", path)
		reorderedCount++
	}

	fmt.Printf("Reordered %d file(s).\n", reorderedCount)

	return nil
}

// ReorderDeclsCheck reports which files need reordering, with a diff, without modifying them.
func ReorderDeclsCheck() error {
	fmt.Println("Checking declaration order...")

	files, err := sourceFiles(".")
	if err != nil {
		return err
	}

	outOfOrder := 0

	for _, path := range files {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		sectionOrder, err := reorder.AnalyzeSectionOrder(string(content))
		if err != nil {
			fmt.Printf("Warning: failed to analyze %s: %v\n", path, err)

			continue
		}

		reordered, err := reorder.Source(string(content))
		if err != nil {
			fmt.Printf("Warning: failed to reorder %s: %v\n", path, err)

			continue
		}

		if string(content) == reordered {
			continue
		}

		outOfOrder++

		fmt.Printf("\n%s:\n", path)

		for i, section := range sectionOrder.Sections {
			note := ""
			if section.Expected != i+1 {
				note = fmt.Sprintf(" <- should be #%d", section.Expected)
			}

			fmt.Printf("    %d. %-24s%s\n", i+1, section.Name, note)
		}

		if diff := textdiff.Unified(path+" (current)", path+" (reordered)", string(content), reordered); diff != "" {
			fmt.Printf("\n%s\n", diff)
		}
	}

	if outOfOrder > 0 {
		fmt.Printf("\n%d file(s) need reordering (out of %d). Run 'targ reorder-decls' to fix.\n", outOfOrder, len(files))

		return fmt.Errorf("%d file(s) need reordering", outOfOrder)
	}

	fmt.Printf("All files are correctly ordered (%d files processed).\n", len(files))

	return nil
}

// Test runs the unit tests with coverage.
func Test() error {
	fmt.Println("Running unit tests...")

	// Use -count=1 to disable caching so coverage is regenerated
	err := sh.Run(
		"go",
		"test",
		"-timeout=2m",
		"-race",
		"-count=1",
		"-coverprofile=coverage.out",
		"-coverpkg=./...",
		"./...",
	)
	if err != nil {
		return err
	}

	return filterCoverage("coverage.out")
}

// TestForFail runs the unit tests purely to find out whether any fail.
func TestForFail() error {
	fmt.Println("Running unit tests for overall pass/fail...")

	return sh.Run(
		"go",
		"test",
		"-timeout=30s",
		"./...",
		"-failfast",
	)
}

// Tidy tidies up go.mod.
func Tidy() error {
	fmt.Println("Tidying go.mod...")
	return sh.Run("go", "mod", "tidy")
}

// Watch re-runs Check whenever files change.
func Watch(ctx context.Context) error {
	fmt.Println("Watching...")

	return file.Watch(ctx, []string{"**/*.go", "**/*.toml"}, file.WatchOptions{}, func(changes file.ChangeSet) error {
		if !hasRelevantChanges(changes) {
			return nil
		}

		fmt.Println("Change detected...")

		targ.ResetDeps() // Clear execution cache so targets run again

		err := Check()
		if err != nil {
			fmt.Println("continuing to watch after check failure (see errors above)")
		} else {
			fmt.Println("continuing to watch after all checks passed!")
		}

		return nil // Don't stop watching on error
	})
}

type deadDecl struct {
	file string
	name string
}

type funcCoverage struct {
	line    string
	percent float64
}

type fuzzTarget struct {
	pkg  string
	name string
}

// Helper Functions

// coverageExcluded reports whether a coverage or deadcode path belongs to code we don't hold to the bar:
// entry points and generated mocks.
func coverageExcluded(path string) bool {
	return strings.HasSuffix(path, "/main.go") || strings.Contains(path, "/mocks/") || strings.HasSuffix(path, "_test.go")
}

// deleteDeadDecls removes the named functions, methods, and types from a file. The file is rewritten through dst
// so the doc comments attached to surviving declarations stay put.
func deleteDeadDecls(path string, names []string) (int, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read file: %w", err)
	}

	parsed, err := decorator.Parse(content)
	if err != nil {
		return 0, fmt.Errorf("failed to parse file: %w", err)
	}

	toDelete := make(map[string]bool, len(names))
	for _, name := range names {
		toDelete[name] = true
	}

	kept := make([]dst.Decl, 0, len(parsed.Decls))
	deleted := 0

	for _, decl := range parsed.Decls {
		if declIsDead(decl, toDelete) {
			deleted++

			continue
		}

		kept = append(kept, decl)
	}

	if deleted == 0 {
		return 0, nil
	}

	parsed.Decls = kept

	var buf bytes.Buffer

	err = decorator.Fprint(&buf, parsed)
	if err != nil {
		return 0, fmt.Errorf("failed to print file: %w", err)
	}

	err = os.WriteFile(path, buf.Bytes(), 0o600)
	if err != nil {
		return 0, fmt.Errorf("failed to write file: %w", err)
	}

	fmt.Printf("  %s: deleted %d declarations\n", path, deleted)

	return deleted, nil
}

// declIsDead matches a declaration against deadcode's names, which are either Func or Type.Method.
func declIsDead(decl dst.Decl, toDelete map[string]bool) bool {
	switch d := decl.(type) {
	case *dst.FuncDecl:
		if d.Recv == nil || len(d.Recv.List) == 0 {
			return toDelete[d.Name.Name]
		}

		recvType := d.Recv.List[0].Type
		if star, ok := recvType.(*dst.StarExpr); ok {
			recvType = star.X
		}

		if ident, ok := recvType.(*dst.Ident); ok {
			return toDelete[ident.Name+"."+d.Name.Name]
		}

		return toDelete[d.Name.Name]
	case *dst.GenDecl:
		if d.Tok != token.TYPE {
			return false
		}

		for _, spec := range d.Specs {
			if typeSpec, ok := spec.(*dst.TypeSpec); ok && toDelete[typeSpec.Name.Name] {
				return true
			}
		}
	}

	return false
}

// filterCoverage strips excluded files from a coverage profile in place.
func filterCoverage(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	var filtered []string

	for line := range strings.SplitSeq(string(data), "\n") {
		blockFile, _, _ := strings.Cut(line, ":")
		if line != "" && !strings.HasPrefix(line, "mode:") && coverageExcluded(blockFile) {
			continue
		}

		filtered = append(filtered, line)
	}

	err = os.WriteFile(path, []byte(strings.Join(filtered, "\n")), 0o600)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return nil
}

// hasRelevantChanges returns true if the changeset contains files we care about.
// Filters out build artifacts that Check() itself creates.
func hasRelevantChanges(changes file.ChangeSet) bool {
	allFiles := append(append(changes.Added, changes.Removed...), changes.Modified...)

	for _, f := range allFiles {
		if strings.HasSuffix(f, "coverage.out") || strings.HasPrefix(f, "bin/") {
			continue
		}

		return true
	}

	return false
}

func isGeneratedFile(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	buf := make([]byte, 200)

	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}

	content := string(buf[:n])

	return strings.Contains(content, "Code generated") || strings.Contains(content, "DO NOT EDIT"), nil
}

// output runs a command and captures stdout only (stderr goes to os.Stderr).
func output(command string, args ...string) (string, error) {
	buf := &bytes.Buffer{}
	cmd := exec.Command(command, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = buf
	cmd.Stderr = os.Stderr
	err := cmd.Run()

	return strings.TrimSuffix(buf.String(), "\n"), err
}

// parseDeadcodeLine parses "file.go:123:4: unreachable func: Name", skipping excluded files.
func parseDeadcodeLine(line string) (deadDecl, bool) {
	location, name, found := strings.Cut(line, ": unreachable func: ")
	if !found {
		return deadDecl{}, false
	}

	path, _, found := strings.Cut(location, ":")
	if !found || coverageExcluded("/"+path) {
		return deadDecl{}, false
	}

	return deadDecl{file: path, name: strings.TrimSpace(name)}, true
}

// parseFuncCoverage reads `go tool cover -func` output, skipping the total line.
func parseFuncCoverage(out string) ([]funcCoverage, error) {
	funcs := []funcCoverage{}

	for line := range strings.SplitSeq(out, "\n") {
		if line == "" || strings.HasPrefix(line, "total:") {
			continue
		}

		percentString := percentPattern.FindString(line)

		percent, err := strconv.ParseFloat(percentString, 64)
		if err != nil {
			return nil, fmt.Errorf("unexpected coverage line %q: %w", line, err)
		}

		funcs = append(funcs, funcCoverage{line: line, percent: percent})
	}

	return funcs, nil
}

// parseFuzzTargets reads `go test -list` output: target names followed by an "ok <pkg>" line per package.
func parseFuzzTargets(out string) []fuzzTarget {
	targets := []fuzzTarget{}
	pending := []string{}

	for line := range strings.SplitSeq(out, "\n") {
		fields := strings.Fields(line)

		switch {
		case len(fields) == 1 && strings.HasPrefix(fields[0], "Fuzz"):
			pending = append(pending, fields[0])
		case len(fields) >= 2 && fields[0] == "ok":
			for _, name := range pending {
				targets = append(targets, fuzzTarget{pkg: fields[1], name: name})
			}

			pending = pending[:0]
		}
	}

	return targets
}

// sourceFiles lists the hand-written Go files under dir.
func sourceFiles(dir string) ([]string, error) {
	files := []string{}

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("unable to walk %s: %w", path, err)
		}

		if info.IsDir() {
			name := info.Name()
			if path != dir && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || name == "vendor") {
				return filepath.SkipDir
			}

			return nil
		}

		if filepath.Ext(path) != ".go" {
			return nil
		}

		generated, err := isGeneratedFile(path)
		if err != nil {
			return err
		}

		if !generated {
			files = append(files, path)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find Go files: %w", err)
	}

	return files, nil
}

// unexported constants.
const (
	fuzzTime            = "30s"
	minFunctionCoverage = 80.0
)

// unexported variables.
var (
	percentPattern = regexp.MustCompile(`\d+\.\d`)
)
