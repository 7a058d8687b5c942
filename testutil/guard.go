// Package testutil holds the import-boundary assertions that package tests use
// to keep the layering of the registry intact.
package testutil

import (
	"fmt"
	"go/parser"
	"go/token"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/tools/go/packages"
)

// ImportRule reports whether an import path is forbidden.
type ImportRule func(path string) bool

// TB is the subset of testing.TB the assertions need.
type TB interface {
	Helper()
	Fatalf(format string, args ...any)
}

// ImportsDomain matches the domain package under any module path or version.
func ImportsDomain(path string) bool {
	return strings.HasSuffix(path, "/pkg/domain") || strings.Contains(path, "/pkg/domain@")
}

// ImportsInternal matches any path with an internal/ element.
func ImportsInternal(path string) bool {
	return strings.Contains(path, "/internal/") || strings.HasPrefix(path, "internal/")
}

// ModuleImportsExcept matches paths inside module other than the allowed ones.
func ModuleImportsExcept(module string, allowed ...string) ImportRule {
	return func(path string) bool {
		if path != module && !strings.HasPrefix(path, module+"/") {
			return false
		}
		return !slices.Contains(allowed, path)
	}
}

// RequireNoImports fails t when a non-test Go file directly in dir imports a
// path matched by rule. Build tags are not evaluated.
func RequireNoImports(t TB, dir string, rule ImportRule, reason string) {
	t.Helper()
	viols, err := importViolations(dir, rule)
	if err != nil {
		t.Fatalf("scan imports of %s: %v", dir, err)
		return
	}
	if len(viols) > 0 {
		t.Fatalf("forbidden imports (%s):\n%s", reason, strings.Join(viols, "\n"))
	}
}

// RequireNoDeps fails t when any package matched by pattern depends, directly
// or transitively, on a path matched by rule.
func RequireNoDeps(t TB, pattern string, rule ImportRule, reason string) {
	t.Helper()
	viols, err := depViolations(pattern, rule)
	if err != nil {
		t.Fatalf("load %s: %v", pattern, err)
		return
	}
	if len(viols) > 0 {
		t.Fatalf("forbidden dependencies (%s):\n%s", reason, strings.Join(viols, "\n"))
	}
}

func importViolations(dir string, rule ImportRule) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.go"))
	if err != nil {
		return nil, err
	}
	fset := token.NewFileSet()
	var viols []string
	for _, file := range files {
		name := filepath.Base(file)
		if strings.HasSuffix(name, "_test.go") {
			continue
		}
		f, err := parser.ParseFile(fset, file, nil, parser.ImportsOnly)
		if err != nil {
			return nil, err
		}
		for _, imp := range f.Imports {
			path := strings.Trim(imp.Path.Value, `"`)
			if rule(path) {
				viols = append(viols, fmt.Sprintf("%s (in %s)", path, name))
			}
		}
	}
	return viols, nil
}

var loadPackages = func(pattern string) ([]*packages.Package, error) {
	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedImports | packages.NeedDeps}
	return packages.Load(cfg, pattern)
}

func depViolations(pattern string, rule ImportRule) ([]string, error) {
	roots, err := loadPackages(pattern)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	packages.Visit(roots, func(p *packages.Package) bool {
		if rule(p.PkgPath) {
			seen[p.PkgPath] = struct{}{}
		}
		return true
	}, nil)
	viols := make([]string, 0, len(seen))
	for path := range seen {
		viols = append(viols, path)
	}
	slices.Sort(viols)
	return viols, nil
}
