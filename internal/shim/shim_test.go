package shim

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"xpbuild/internal/deps"
)

func TestEnvironmentsShareCanonicalNames(t *testing.T) {
	set := deps.DefaultSet()
	server := ServerEnvironment(set)
	client := ClientEnvironment(set, "")

	// The collision resolver treats both sets as interchangeable: same
	// names, different backing values.
	assert.Equal(t, server.Names(), client.Names())
	assert.Equal(t, set.CanonicalNames(), server.Names())
}

func TestServerEnvironment(t *testing.T) {
	env := ServerEnvironment(deps.DefaultSet())

	t.Run("every binding has a construction expression", func(t *testing.T) {
		for _, b := range env.Bindings {
			assert.NotEmpty(t, b.Expr, "binding %s", b.Name)
		}
	})

	t.Run("unknown capability degrades to a no-op", func(t *testing.T) {
		custom := deps.NewSet([]deps.Dependency{
			{Module: "@xp/extras", CanonicalNames: []string{"useTelemetry"}},
		})
		got := ServerEnvironment(custom)
		assert.Equal(t, "() => {}", got.Bindings[0].Expr)
	})
}

func TestClientEnvironment(t *testing.T) {
	t.Run("reads from the default registry", func(t *testing.T) {
		env := ClientEnvironment(deps.DefaultSet(), "")
		decls := env.Declarations()
		assert.Contains(t, decls, `const React = globalThis.`+RegistryGlobal+`["React"];`)
	})

	t.Run("registry override", func(t *testing.T) {
		env := ClientEnvironment(deps.DefaultSet(), "__CUSTOM__")
		assert.Contains(t, env.Declarations(), "globalThis.__CUSTOM__[")
		assert.NotContains(t, env.Declarations(), RegistryGlobal)
	})
}

func TestDeclarationsOnePerLine(t *testing.T) {
	env := ClientEnvironment(deps.DefaultSet(), "")
	lines := strings.Split(strings.TrimSpace(env.Declarations()), "\n")
	assert.Len(t, lines, len(env.Bindings))
	for _, line := range lines {
		assert.True(t, strings.HasPrefix(line, "const "), "line %q", line)
		assert.True(t, strings.HasSuffix(line, ";"), "line %q", line)
	}
}
