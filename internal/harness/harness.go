// Package harness runs an experience's declared tests against its extracted
// tool handlers. Tests execute strictly sequentially in declaration order,
// each with a fresh mock context; a thrown assertion or handler error fails
// only the current test and never aborts the run.
package harness

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dop251/goja"

	"xpbuild/internal/experience"
)

// TestResult is the outcome of one declared test.
type TestResult struct {
	Name    string
	Passed  bool
	Message string
}

// RunSummary tallies a whole run.
type RunSummary struct {
	Passed  int
	Failed  int
	Results []TestResult
}

// Total returns the number of executed tests.
func (s RunSummary) Total() int {
	return s.Passed + s.Failed
}

// Ok reports whether the run is clean. A run with no declared tests is ok.
func (s RunSummary) Ok() bool {
	return s.Failed == 0
}

// Runner executes the declared tests of one extracted module. One runner per
// build/test cycle; it is bound to the module's runtime and is not safe for
// concurrent use.
type Runner struct {
	mod *experience.ExtractedModule
	rt  *goja.Runtime

	stringify goja.Callable
	jsonObj   goja.Value
}

// NewRunner binds a runner to mod.
func NewRunner(mod *experience.ExtractedModule) *Runner {
	r := &Runner{mod: mod, rt: mod.Runtime}
	r.jsonObj = r.rt.Get("JSON")
	fn, _ := goja.AssertFunction(r.jsonObj.ToObject(r.rt).Get("stringify"))
	r.stringify = fn
	return r
}

// Run executes every declared test in order and tallies the outcome.
func (r *Runner) Run() RunSummary {
	var summary RunSummary
	for _, test := range r.mod.Tests {
		res := r.runOne(test)
		if res.Passed {
			summary.Passed++
		} else {
			summary.Failed++
		}
		summary.Results = append(summary.Results, res)
	}
	return summary
}

// runOne executes a single test with a fresh surface and snapshot store.
func (r *Runner) runOne(test experience.TestDefinition) TestResult {
	surface := r.newSurface()

	ret, err := test.Run(goja.Undefined(), surface)
	if err != nil {
		return TestResult{Name: test.Name, Message: thrownMessage(err)}
	}

	// Async test bodies return a promise. The microtask queue has drained by
	// the time the call returns, so a still-pending promise means the body
	// awaited something the harness never exposed.
	if p, ok := promiseOf(ret); ok {
		switch p.State() {
		case goja.PromiseStateRejected:
			return TestResult{Name: test.Name, Message: valueMessage(p.Result())}
		case goja.PromiseStatePending:
			return TestResult{Name: test.Name, Message: "test body returned a promise that never settled"}
		}
	}

	return TestResult{Name: test.Name, Passed: true}
}

// newSurface builds the object handed to each test body: tool lookup,
// context factory, assertion entry point, and snapshot recorder.
func (r *Runner) newSurface() *goja.Object {
	obj := r.rt.NewObject()
	snapshots := make(map[string]string)

	_ = obj.Set("tool", r.toolLookup())
	_ = obj.Set("ctx", r.contextFactory())
	_ = obj.Set("expect", func(call goja.FunctionCall) goja.Value {
		return r.newChain(call.Argument(0), false)
	})
	_ = obj.Set("snapshot", r.snapshotFn(snapshots))
	return obj
}

// toolLookup returns the exact-match tool accessor. A miss throws listing
// every available name; that surfaces as an ordinary failure of the one test
// that performed the lookup.
func (r *Runner) toolLookup() func(call goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		name := call.Argument(0).String()
		tool, ok := r.mod.Tool(name)
		if !ok {
			r.throwf("tool %q not found (available: %s)", name, strings.Join(r.mod.ToolNames(), ", "))
		}
		handler := tool.Handler
		return r.rt.ToValue(func(hc goja.FunctionCall) goja.Value {
			res, err := handler(goja.Undefined(), hc.Arguments...)
			if err != nil {
				panic(thrownValue(r.rt, err))
			}
			return res
		})
	}
}

// snapshotFn records a baseline per label on first use; later calls for the
// same label must structurally equal it.
func (r *Runner) snapshotFn(snapshots map[string]string) func(call goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		label := call.Argument(0).String()
		current := r.serialize(call.Argument(1))
		baseline, ok := snapshots[label]
		if !ok {
			snapshots[label] = current
			return goja.Undefined()
		}
		if baseline != current {
			r.throwf("snapshot %q mismatch: before %s, after %s", label, baseline, current)
		}
		return goja.Undefined()
	}
}

// serialize renders a value through JSON.stringify for structural
// comparison.
func (r *Runner) serialize(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) {
		return "undefined"
	}
	out, err := r.stringify(r.jsonObj, v)
	if err != nil || out == nil || goja.IsUndefined(out) {
		return v.String()
	}
	return out.String()
}

// throwf raises a JS Error inside the runtime.
func (r *Runner) throwf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	ctor, ok := goja.AssertConstructor(r.rt.Get("Error"))
	if !ok {
		panic(r.rt.NewGoError(errors.New(msg)))
	}
	errObj, err := ctor(nil, r.rt.ToValue(msg))
	if err != nil {
		panic(r.rt.NewGoError(errors.New(msg)))
	}
	panic(errObj)
}

// WriteReport writes the per-test lines and the final tally in the process
// contract format: one PASS/FAIL line per test, then
// "{passed} passed, {failed} failed, {total} total".
func WriteReport(w io.Writer, s RunSummary) {
	for _, res := range s.Results {
		if res.Passed {
			fmt.Fprintf(w, "PASS %s\n", res.Name)
		} else {
			fmt.Fprintf(w, "FAIL %s: %s\n", res.Name, res.Message)
		}
	}
	fmt.Fprintf(w, "%d passed, %d failed, %d total\n", s.Passed, s.Failed, s.Total())
}

// promiseOf unwraps v when it is a promise.
func promiseOf(v goja.Value) (*goja.Promise, bool) {
	if v == nil {
		return nil, false
	}
	p, ok := v.Export().(*goja.Promise)
	return p, ok
}

// thrownMessage extracts the thrown value's message from a call error.
func thrownMessage(err error) string {
	var ex *goja.Exception
	if errors.As(err, &ex) {
		return valueMessage(ex.Value())
	}
	return err.Error()
}

// thrownValue converts a handler call error back into the value to rethrow,
// so exceptions cross the Go wrapper unchanged.
func thrownValue(rt *goja.Runtime, err error) goja.Value {
	var ex *goja.Exception
	if errors.As(err, &ex) {
		return ex.Value()
	}
	return rt.NewGoError(err)
}

// valueMessage renders a thrown JS value for a failure line. Error objects
// contribute their bare message; anything else is stringified.
func valueMessage(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) {
		return "unknown failure"
	}
	if obj, ok := v.(*goja.Object); ok {
		if msg := obj.Get("message"); msg != nil && !goja.IsUndefined(msg) {
			return msg.String()
		}
	}
	return v.String()
}
