package sandbox

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xpbuild/internal/deps"
	"xpbuild/internal/shim"
)

func serverEnv() *shim.Environment {
	return shim.ServerEnvironment(deps.DefaultSet())
}

func TestEvaluateExportPrecedence(t *testing.T) {
	e := NewEvaluator()

	t.Run("synthetic export default", func(t *testing.T) {
		res, err := e.Evaluate("exports.default = { answer: 42, list: [1, 2, 3] };", serverEnv())
		require.NoError(t, err)

		want := map[string]interface{}{
			"answer": int64(42),
			"list":   []interface{}{int64(1), int64(2), int64(3)},
		}
		if diff := cmp.Diff(want, res.Value.Export()); diff != "" {
			t.Errorf("exported module mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("assignment to exports normalizes to the synthetic default", func(t *testing.T) {
		res, err := e.Evaluate("exports = { a: 1 };", serverEnv())
		require.NoError(t, err)
		assert.Equal(t, map[string]interface{}{"a": int64(1)}, res.Value.Export())
	})

	t.Run("raw return value", func(t *testing.T) {
		res, err := e.Evaluate("return { b: 2 };", serverEnv())
		require.NoError(t, err)
		assert.Equal(t, map[string]interface{}{"b": int64(2)}, res.Value.Export())
	})

	t.Run("synthetic default beats raw return", func(t *testing.T) {
		res, err := e.Evaluate("exports.default = { c: 3 };\nreturn { d: 4 };", serverEnv())
		require.NoError(t, err)
		assert.Equal(t, map[string]interface{}{"c": int64(3)}, res.Value.Export())
	})

	t.Run("module.exports.default fallback", func(t *testing.T) {
		res, err := e.Evaluate("module.exports.default = { e: 5 };", serverEnv())
		require.NoError(t, err)
		assert.Equal(t, map[string]interface{}{"e": int64(5)}, res.Value.Export())
	})

	t.Run("module.exports fallback", func(t *testing.T) {
		res, err := e.Evaluate("module.exports = { f: 6 };", serverEnv())
		require.NoError(t, err)
		assert.Equal(t, map[string]interface{}{"f": int64(6)}, res.Value.Export())
	})
}

func TestEvaluateShimSurface(t *testing.T) {
	e := NewEvaluator()

	t.Run("hooks run without a UI runtime", func(t *testing.T) {
		code := `
const [value] = useState(5);
useEffect(() => { throw new Error("never runs"); });
const memo = useMemo(() => value * 2);
return { value: value, memo: memo, el: React.createElement("div") };`
		res, err := e.Evaluate(code, serverEnv())
		require.NoError(t, err)
		assert.Equal(t, map[string]interface{}{
			"value": int64(5),
			"memo":  int64(10),
			"el":    nil,
		}, res.Value.Export())
	})

	t.Run("zustand store holds real state", func(t *testing.T) {
		code := `
const useStore = create((set, get) => ({ count: 0 }));
useStore.setState({ count: 7 });
return { count: useStore.getState().count };`
		res, err := e.Evaluate(code, serverEnv())
		require.NoError(t, err)
		assert.Equal(t, map[string]interface{}{"count": int64(7)}, res.Value.Export())
	})
}

func TestEvaluateErrorPropagation(t *testing.T) {
	e := NewEvaluator()

	t.Run("runtime error propagates unchanged", func(t *testing.T) {
		_, err := e.Evaluate(`throw new Error("boom");`, serverEnv())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "boom")
	})

	t.Run("syntax error propagates", func(t *testing.T) {
		_, err := e.Evaluate("const = broken(", serverEnv())
		require.Error(t, err)
	})

	t.Run("require is blocked", func(t *testing.T) {
		_, err := e.Evaluate(`require("fs");`, serverEnv())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "external")
	})
}

func TestEvaluateIsolation(t *testing.T) {
	e := NewEvaluator()

	// Two evaluations of the same source never share state: each call gets
	// a fresh runtime and fresh shim values.
	code := `
const store = create(() => ({ n: 0 }));
store.setState({ n: store.getState().n + 1 });
return { n: store.getState().n };`

	first, err := e.Evaluate(code, serverEnv())
	require.NoError(t, err)
	second, err := e.Evaluate(code, serverEnv())
	require.NoError(t, err)

	assert.Equal(t, map[string]interface{}{"n": int64(1)}, first.Value.Export())
	assert.Equal(t, map[string]interface{}{"n": int64(1)}, second.Value.Export())
}

func TestNormalizeExports(t *testing.T) {
	t.Run("exports.default", func(t *testing.T) {
		out := NormalizeExports("exports.default = x;")
		assert.Equal(t, "__xpExport.default = x;", out)
	})

	t.Run("bare exports assignment", func(t *testing.T) {
		out := NormalizeExports("exports = x;")
		assert.Equal(t, "__xpExport.default = x;", out)
	})

	t.Run("module.exports untouched", func(t *testing.T) {
		src := "module.exports = x;\nmodule.exports.default = y;"
		assert.Equal(t, src, NormalizeExports(src))
	})
}
