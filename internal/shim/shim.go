// Package shim builds the stand-in bindings for dependencies the bundler
// leaves external. Both build targets declare the same canonical names; only
// the backing values differ. The server set is literal and synchronous so
// tool factories can run without a live UI runtime. The client set reads the
// real implementations from a page-global registry that the host document
// populates before the artifact loads.
package shim

import (
	"fmt"
	"strings"

	"xpbuild/internal/deps"
)

// Target selects which runtime an environment backs.
type Target string

const (
	TargetServer Target = "server"
	TargetClient Target = "client"
)

// RegistryGlobal is the page-global object the client bindings read from.
const RegistryGlobal = "__XP_RUNTIME__"

// Binding pairs one canonical name with the JS expression that constructs
// its value. Alias names discovered by the collision resolver are tracked
// per build, not here.
type Binding struct {
	Name string
	Expr string
}

// Environment is one ordered binding set for one target.
type Environment struct {
	Target   Target
	Bindings []Binding
}

// serverExprs maps canonical names to literal server-side constructions.
// Capabilities with no server-side meaning (rendering, live scene/rule
// ticking) degrade to no-ops rather than throwing, so files that mix UI and
// tool code still evaluate for their tool exports.
var serverExprs = map[string]string{
	"useState":    `(v) => [typeof v === "function" ? v() : v, () => {}]`,
	"useEffect":   `() => {}`,
	"useMemo":     `(f) => f()`,
	"useCallback": `(f) => f`,
	"useRef":      `(v) => ({ current: v })`,
	"React": `({
		createElement: () => null,
		Fragment: "react.fragment",
		useState: (v) => [typeof v === "function" ? v() : v, () => {}],
		useEffect: () => {},
		useMemo: (f) => f(),
		useCallback: (f) => f,
		useRef: (v) => ({ current: v }),
	})`,
	"ReactDOM": `({
		render: () => {},
		createRoot: () => ({ render: () => {}, unmount: () => {} }),
	})`,
	"jsx":      `() => null`,
	"jsxs":     `() => null`,
	"Fragment": `"react.fragment"`,
	// zustand's create works for real on the server: tool factories may keep
	// module-level stores, and those must hold actual state.
	"create": `(init) => {
		let state = {};
		const set = (p) => { state = Object.assign({}, state, typeof p === "function" ? p(state) : p); };
		const get = () => state;
		if (typeof init === "function") { state = init(set, get); }
		const hook = () => state;
		hook.getState = get;
		hook.setState = set;
		return hook;
	}`,
	"useSharedState": `(key, v) => [v, () => {}]`,
	"useRoom":        `() => ({ id: "server", players: [], send: () => {} })`,
	"useScene":       `() => ({ add: () => {}, remove: () => {}, query: () => [] })`,
	"registerRules":  `() => {}`,
	"defineAgents":   `(agents) => agents`,
}

// ServerEnvironment returns the literal server binding set for the
// dependency set, in canonical declaration order.
func ServerEnvironment(set *deps.ExternalDependencySet) *Environment {
	env := &Environment{Target: TargetServer}
	for _, name := range set.CanonicalNames() {
		expr, ok := serverExprs[name]
		if !ok {
			// Unknown capability: a harmless no-op keeps evaluation alive.
			expr = `() => {}`
		}
		env.Bindings = append(env.Bindings, Binding{Name: name, Expr: expr})
	}
	return env
}

// ClientEnvironment returns the accessor binding set reading each canonical
// name from the page-global registry. The registry must exist before the
// artifact loads; the client artifact never stubs these.
func ClientEnvironment(set *deps.ExternalDependencySet, registry string) *Environment {
	if registry == "" {
		registry = RegistryGlobal
	}
	env := &Environment{Target: TargetClient}
	for _, name := range set.CanonicalNames() {
		env.Bindings = append(env.Bindings, Binding{
			Name: name,
			Expr: fmt.Sprintf("globalThis.%s[%q]", registry, name),
		})
	}
	return env
}

// Names returns the canonical names in declaration order. The collision
// resolver scans against exactly this list for both targets.
func (e *Environment) Names() []string {
	out := make([]string, 0, len(e.Bindings))
	for _, b := range e.Bindings {
		out = append(out, b.Name)
	}
	return out
}

// Declarations renders the binding set as JS const declarations, one per
// line. For the client artifact these are emitted ahead of alias
// declarations and user code; the server evaluator binds the same names as
// function parameters instead.
func (e *Environment) Declarations() string {
	var sb strings.Builder
	for _, b := range e.Bindings {
		sb.WriteString("const ")
		sb.WriteString(b.Name)
		sb.WriteString(" = ")
		sb.WriteString(b.Expr)
		sb.WriteString(";\n")
	}
	return sb.String()
}
