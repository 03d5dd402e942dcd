package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckSyntax(t *testing.T) {
	t.Run("clean artifact", func(t *testing.T) {
		v := New()
		assert.Empty(t, v.CheckSyntax("const a = 1;\nfunction f() { return a; }\n"))
	})

	t.Run("export default is rewritten before parsing", func(t *testing.T) {
		v := New()
		assert.Empty(t, v.CheckSyntax("export default { tools: [] };\n"))
	})

	t.Run("export declarations are rewritten", func(t *testing.T) {
		v := New()
		assert.Empty(t, v.CheckSyntax("export const tools = [];\nexport function f() {}\nexport { f };\n"))
	})

	t.Run("broken syntax reports the parser message", func(t *testing.T) {
		v := New()
		finding := v.CheckSyntax("const = broken(\n")
		assert.NotEmpty(t, finding)
		assert.Contains(t, finding, "syntax:")
	})
}

func TestCheckAliases(t *testing.T) {
	t.Run("undeclared numbered reference is reported", func(t *testing.T) {
		v := New()
		finding := v.CheckAliases("const React = globalThis.R[\"React\"];\nReact2.render();\n")
		assert.Contains(t, finding, "React2")
	})

	t.Run("declared alias is clean", func(t *testing.T) {
		v := New()
		code := "const React = globalThis.R[\"React\"];\nconst React2 = React;\nReact2.render();\n"
		assert.Empty(t, v.CheckAliases(code))
	})

	t.Run("all offenders reported in one finding", func(t *testing.T) {
		v := New()
		finding := v.CheckAliases("const React = 1;\nReact2.x();\nReact3.y();\n")
		assert.Contains(t, finding, "React2")
		assert.Contains(t, finding, "React3")
	})

	t.Run("numbered reference with no declared base is ignored", func(t *testing.T) {
		v := New()
		// utf8 is nobody's alias: no declared "utf" base exists.
		assert.Empty(t, v.CheckAliases("const x = utf8.encode;\n"))
	})

	t.Run("destructuring declarations count", func(t *testing.T) {
		v := New()
		code := "const { React2 } = bundle;\nconst React = 1;\nReact2.x();\n"
		assert.Empty(t, v.CheckAliases(code))
	})

	t.Run("function and assignment declarations count", func(t *testing.T) {
		v := New()
		code := "const util = 1;\nfunction util2() {}\nutil3 = () => {};\nutil2();\nutil3();\n"
		assert.Empty(t, v.CheckAliases(code))
	})
}

func TestCheckNeverThrows(t *testing.T) {
	v := New()
	// Check returns findings, never panics, even on garbage.
	findings := v.Check("}{ not even close ((")
	assert.NotEmpty(t, findings)
}
