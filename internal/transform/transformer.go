// Package transform rewrites bundler output so it can run against the shim
// layer. It removes import/require statements that reference externalized
// dependencies and strips local re-destructuring of UI hooks, then aliases
// the numbered duplicate bindings the bundler mints when several inlined
// submodules import the same external dependency.
//
// The rewriting is deliberately textual and narrow: the input shapes come
// from one known upstream bundler. A dependency name occurring inside an
// unrelated string literal is an accepted, unguarded sharp edge.
package transform

import (
	"fmt"
	"regexp"
	"strings"

	"xpbuild/internal/deps"
)

// hookNamespace is the namespace object users destructure hooks from.
// The shim layer declares the hook names at artifact scope, so leaving a
// `const { useState } = React` in place would be a duplicate declaration at
// evaluation time.
const hookNamespace = "React"

// Transformer removes externalized-dependency imports from one source text.
// It never fails: substitution always succeeds syntactically.
type Transformer struct {
	set      *deps.ExternalDependencySet
	importRe []*regexp.Regexp
	hookRe   *regexp.Regexp
}

// New compiles the per-dependency statement patterns for set.
func New(set *deps.ExternalDependencySet) *Transformer {
	t := &Transformer{set: set}

	for _, module := range set.Modules() {
		q := regexp.QuoteMeta(module)
		// ESM value import, ESM type-only import, and bare side-effect
		// import. The clause may span lines (brace lists), `type` marks the
		// type-only form.
		t.importRe = append(t.importRe, regexp.MustCompile(
			`(?m)^[ \t]*import\s+(?:type\s+)?(?:[\w$*{},:\s]+?\s+from\s+)?["']`+q+`["']\s*;?[ \t]*$`))
		// CJS require-assignment, optionally wrapped in an interop helper
		// with trailing call arguments: `var R = __toESM(require("react"), 1);`
		t.importRe = append(t.importRe, regexp.MustCompile(
			`(?m)^[ \t]*(?:const|var|let)\s+[^=\n]+=\s*(?:[A-Za-z_$][\w$]*\(\s*)*require\(\s*["']`+q+`["']\s*\)[^\n;]*;?[ \t]*$`))
	}

	hooks := strings.Join(set.HookNames(), "|")
	t.hookRe = regexp.MustCompile(
		`(?m)^[ \t]*(?:const|var|let)\s*\{\s*(?:(?:` + hooks + `)\s*,?\s*)+\}\s*=\s*` + hookNamespace + `\s*;?[ \t]*$`)

	return t
}

// Apply runs both rewrites. Idempotent: a second pass over its own output
// finds nothing left to remove.
func (t *Transformer) Apply(src string) string {
	return t.StripHookDestructuring(t.StripExternalImports(src))
}

// StripExternalImports reduces every import/require statement referencing an
// externalized dependency to an empty statement.
func (t *Transformer) StripExternalImports(src string) string {
	for _, re := range t.importRe {
		src = re.ReplaceAllString(src, "")
	}
	return src
}

// StripHookDestructuring removes local destructuring of hook names from the
// React namespace object.
func (t *Transformer) StripHookDestructuring(src string) string {
	return t.hookRe.ReplaceAllString(src, "")
}

// CollisionResolver aliases the numbered duplicates of canonical shim names.
// When two inlined submodules both imported an external dependency, the
// bundler keeps one binding per submodule by numbering them (React2, React3).
// After import stripping those numbered names would be dangling references;
// one alias declaration per distinct numbered form repairs them.
type CollisionResolver struct {
	names []string
	res   []*regexp.Regexp
}

// NewResolver builds a resolver over the canonical name list. The list must
// match the shim environment the artifact will run against; both targets
// expose the same names, so one resolver serves both.
func NewResolver(names []string) *CollisionResolver {
	r := &CollisionResolver{names: names}
	for _, name := range names {
		r.res = append(r.res, regexp.MustCompile(`\b`+regexp.QuoteMeta(name)+`\d+\b`))
	}
	return r
}

// Resolve prepends one alias declaration per distinct numbered form found in
// code. Emitted ordering is alias declarations then user code; the caller
// guarantees shim declarations (or the evaluator's parameter scope) precede
// both. Re-running on its own output is a no-op: every numbered form the
// scan would find again is already declared, and declared forms are skipped.
func (r *CollisionResolver) Resolve(code string) string {
	var aliases []string
	seen := make(map[string]bool)

	for i, name := range r.names {
		for _, form := range r.res[i].FindAllString(code, -1) {
			if seen[form] {
				continue
			}
			seen[form] = true
			if isDeclared(code, form) {
				continue
			}
			aliases = append(aliases, fmt.Sprintf("const %s = %s;", form, name))
		}
	}

	if len(aliases) == 0 {
		return code
	}
	return strings.Join(aliases, "\n") + "\n" + code
}

// isDeclared reports whether code already carries a declaration for name.
func isDeclared(code, name string) bool {
	re := regexp.MustCompile(`(?m)^\s*(?:const|var|let)\s+` + regexp.QuoteMeta(name) + `\b`)
	return re.MatchString(code)
}
