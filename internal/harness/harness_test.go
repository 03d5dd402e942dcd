package harness

import (
	"bytes"
	"testing"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"xpbuild/internal/experience"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// buildModule evaluates a module literal and extracts it, mirroring what the
// pipeline hands the runner after a real build.
func buildModule(t *testing.T, js string) *experience.ExtractedModule {
	t.Helper()
	rt := goja.New()
	v, err := rt.RunString("(" + js + ")")
	require.NoError(t, err)
	mod, err := experience.Extract(rt, v)
	require.NoError(t, err)
	return mod
}

func TestRunPassingTests(t *testing.T) {
	mod := buildModule(t, `{
		tools: [
			{ name: "add", handler: (input) => input.a + input.b },
		],
		tests: [
			{ name: "adds numbers", run: (t) => {
				const sum = t.tool("add")({ a: 2, b: 3 });
				t.expect(sum).toBe(5);
			}},
			{ name: "chains fluently", run: (t) => {
				t.expect([1, 2, 3]).toContain(2).toHaveProperty("length", 3);
			}},
		],
	}`)

	s := NewRunner(mod).Run()
	assert.Equal(t, 2, s.Passed)
	assert.Equal(t, 0, s.Failed)
	assert.True(t, s.Ok())
}

func TestFailureIsolation(t *testing.T) {
	mod := buildModule(t, `{
		tools: [
			{ name: "explode", handler: () => { throw new Error("kaboom"); } },
		],
		tests: [
			{ name: "blows up", run: (t) => { t.tool("explode")({}); } },
			{ name: "still runs", run: (t) => { t.expect(true).toBeTruthy(); } },
		],
	}`)

	s := NewRunner(mod).Run()
	require.Len(t, s.Results, 2)
	assert.False(t, s.Results[0].Passed)
	assert.Contains(t, s.Results[0].Message, "kaboom")
	assert.True(t, s.Results[1].Passed)
	assert.Equal(t, 2, s.Total())
}

func TestMockContext(t *testing.T) {
	mod := buildModule(t, `{
		tools: [
			{ name: "bump", handler: (input, ctx) => {
				const s = ctx.getState();
				ctx.setState({ count: (s.count || 0) + 1 });
				return ctx.getState().count;
			}},
		],
		tests: [
			{ name: "defaults", run: (t) => {
				const ctx = t.ctx();
				t.expect(ctx.actorId).toBe("test-actor");
				t.expect(ctx.roomId).toBe("test-room");
				t.expect(ctx.owner).toBe("test-owner");
				t.expect(ctx.timestamp).toBeTruthy();
			}},
			{ name: "fixture state and wholesale replacement", run: (t) => {
				const ctx = t.ctx({ state: { count: 5 }, actorId: "alice" });
				t.expect(ctx.actorId).toBe("alice");
				t.expect(t.tool("bump")({}, ctx)).toBe(6);
				t.expect(ctx.getState()).toEqual({ count: 6 });
			}},
			{ name: "contexts never share state", run: (t) => {
				const a = t.ctx();
				const b = t.ctx();
				a.setState({ poisoned: true });
				t.expect(b.getState()).toEqual({});
			}},
		],
	}`)

	s := NewRunner(mod).Run()
	for _, res := range s.Results {
		assert.True(t, res.Passed, "%s: %s", res.Name, res.Message)
	}
}

func TestNegatedAssertions(t *testing.T) {
	mod := buildModule(t, `{
		tools: [{ name: "noop", handler: () => null }],
		tests: [
			{ name: "not passes", run: (t) => { t.expect(5).not.toBe(6); } },
			{ name: "not fails", run: (t) => { t.expect(5).not.toBe(5); } },
			{ name: "double negation", run: (t) => { t.expect(5).not.not.toBe(5); } },
		],
	}`)

	s := NewRunner(mod).Run()
	require.Len(t, s.Results, 3)
	assert.True(t, s.Results[0].Passed)
	assert.False(t, s.Results[1].Passed)
	assert.Contains(t, s.Results[1].Message, "expected 5 not to be 5")
	assert.True(t, s.Results[2].Passed)
}

func TestAssertionMessages(t *testing.T) {
	mod := buildModule(t, `{
		tools: [{ name: "noop", handler: () => null }],
		tests: [
			{ name: "toBe", run: (t) => { t.expect(1).toBe(2); } },
			{ name: "toEqual", run: (t) => { t.expect({ a: 1 }).toEqual({ a: 2 }); } },
			{ name: "toHaveProperty", run: (t) => { t.expect({ a: 1 }).toHaveProperty("b"); } },
		],
	}`)

	s := NewRunner(mod).Run()
	require.Len(t, s.Results, 3)
	assert.Contains(t, s.Results[0].Message, "expected 1 to be 2")
	assert.Contains(t, s.Results[1].Message, `{"a":1}`)
	assert.Contains(t, s.Results[1].Message, `{"a":2}`)
	assert.Contains(t, s.Results[2].Message, `"b"`)
}

func TestSnapshots(t *testing.T) {
	mod := buildModule(t, `{
		tools: [{ name: "noop", handler: () => null }],
		tests: [
			{ name: "stable snapshot", run: (t) => {
				t.snapshot("state", { a: 1 });
				t.snapshot("state", { a: 1 });
			}},
			{ name: "drifting snapshot", run: (t) => {
				t.snapshot("state", { a: 1 });
				t.snapshot("state", { a: 2 });
			}},
			{ name: "labels reset per test", run: (t) => {
				t.snapshot("state", { a: 3 });
			}},
		],
	}`)

	s := NewRunner(mod).Run()
	require.Len(t, s.Results, 3)
	assert.True(t, s.Results[0].Passed)
	assert.False(t, s.Results[1].Passed)
	assert.Contains(t, s.Results[1].Message, `{"a":1}`)
	assert.Contains(t, s.Results[1].Message, `{"a":2}`)
	assert.True(t, s.Results[2].Passed, s.Results[2].Message)
}

func TestToolLookupMiss(t *testing.T) {
	mod := buildModule(t, `{
		tools: [
			{ name: "add", handler: () => 0 },
			{ name: "sub", handler: () => 0 },
		],
		tests: [
			{ name: "missing tool", run: (t) => { t.tool("mul")({}); } },
		],
	}`)

	s := NewRunner(mod).Run()
	require.Len(t, s.Results, 1)
	assert.False(t, s.Results[0].Passed)
	assert.Contains(t, s.Results[0].Message, `"mul"`)
	assert.Contains(t, s.Results[0].Message, "add, sub")
}

func TestAsyncTestBodies(t *testing.T) {
	mod := buildModule(t, `{
		tools: [
			{ name: "fetch", handler: async () => 7 },
		],
		tests: [
			{ name: "awaits a handler", run: async (t) => {
				const v = await t.tool("fetch")({});
				t.expect(v).toBe(7);
			}},
			{ name: "async failure", run: async (t) => {
				t.expect(1).toBe(2);
			}},
			{ name: "never settles", run: () => new Promise(() => {}) },
		],
	}`)

	s := NewRunner(mod).Run()
	require.Len(t, s.Results, 3)
	assert.True(t, s.Results[0].Passed, s.Results[0].Message)
	assert.False(t, s.Results[1].Passed)
	assert.Contains(t, s.Results[1].Message, "expected 1 to be 2")
	assert.False(t, s.Results[2].Passed)
	assert.Contains(t, s.Results[2].Message, "never settled")
}

func TestNoDeclaredTests(t *testing.T) {
	mod := buildModule(t, `{ tools: [{ name: "noop", handler: () => null }] }`)
	s := NewRunner(mod).Run()
	assert.True(t, s.Ok())
	assert.Equal(t, 0, s.Total())
}

func TestWriteReport(t *testing.T) {
	s := RunSummary{
		Passed: 1,
		Failed: 1,
		Results: []TestResult{
			{Name: "good", Passed: true},
			{Name: "bad", Message: "expected 1 to be 2"},
		},
	}

	var buf bytes.Buffer
	WriteReport(&buf, s)

	out := buf.String()
	assert.Contains(t, out, "PASS good\n")
	assert.Contains(t, out, "FAIL bad: expected 1 to be 2\n")
	assert.Contains(t, out, "1 passed, 1 failed, 2 total\n")
}
