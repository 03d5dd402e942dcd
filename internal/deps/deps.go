// Package deps declares the set of dependencies that are never bundled into
// an experience artifact. The upstream bundler marks these external; the
// transform and shim layers are responsible for making the resulting code
// loadable anyway.
package deps

// Dependency is one externalized module and the canonical identifiers the
// shim layer declares on its behalf.
type Dependency struct {
	// Module is the import specifier as it appears in source
	// (e.g. "react", "@xp/sdk").
	Module string

	// CanonicalNames are the shim identifiers this dependency contributes.
	// Order is declaration order.
	CanonicalNames []string
}

// ExternalDependencySet is the fixed, ordered list of externalized
// dependencies for one build. It is read-only configuration: builds share
// it, never mutate it.
type ExternalDependencySet struct {
	deps []Dependency
}

// NewSet builds a set from an explicit dependency list, preserving order.
func NewSet(deps []Dependency) *ExternalDependencySet {
	out := make([]Dependency, len(deps))
	copy(out, deps)
	return &ExternalDependencySet{deps: out}
}

// DefaultSet returns the standard experience dependency set: the React
// runtime, its JSX entry points, the zustand store factory, and the
// experience SDK surface.
func DefaultSet() *ExternalDependencySet {
	return NewSet([]Dependency{
		{
			Module:         "react",
			CanonicalNames: []string{"React", "useState", "useEffect", "useMemo", "useCallback", "useRef"},
		},
		{
			Module:         "react-dom",
			CanonicalNames: []string{"ReactDOM"},
		},
		{
			Module:         "react/jsx-runtime",
			CanonicalNames: []string{"jsx", "jsxs", "Fragment"},
		},
		{
			Module:         "zustand",
			CanonicalNames: []string{"create"},
		},
		{
			Module:         "@xp/sdk",
			CanonicalNames: []string{"useSharedState", "useRoom", "useScene", "registerRules", "defineAgents"},
		},
	})
}

// Modules returns the module specifiers in declaration order.
func (s *ExternalDependencySet) Modules() []string {
	out := make([]string, 0, len(s.deps))
	for _, d := range s.deps {
		out = append(out, d.Module)
	}
	return out
}

// CanonicalNames returns every shim identifier in declaration order.
func (s *ExternalDependencySet) CanonicalNames() []string {
	var out []string
	for _, d := range s.deps {
		out = append(out, d.CanonicalNames...)
	}
	return out
}

// Contains reports whether module is part of the set.
func (s *ExternalDependencySet) Contains(module string) bool {
	for _, d := range s.deps {
		if d.Module == module {
			return true
		}
	}
	return false
}

// Len returns the number of externalized dependencies.
func (s *ExternalDependencySet) Len() int {
	return len(s.deps)
}

// HookNames returns the React hook identifiers that user code commonly
// re-destructures from the React namespace object. The transformer strips
// those destructurings because the shim layer already declares the same
// names at artifact scope.
func (s *ExternalDependencySet) HookNames() []string {
	return []string{"useState", "useEffect", "useMemo", "useCallback", "useRef"}
}
