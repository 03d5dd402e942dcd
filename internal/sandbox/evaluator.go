// Package sandbox executes a rewritten server artifact and hands back the
// module object it exports. The artifact runs as a closed function body: its
// only free variables are the enumerated parameter list (canonical shim
// values plus a minimal host surface), so evaluated code cannot reach
// anything in the evaluator's enclosing scope that was not explicitly
// passed. One evaluation either fully succeeds or the whole build/test cycle
// aborts; there is no retry and no partial recovery.
package sandbox

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/console"
	"github.com/dop251/goja_nodejs/require"
	lru "github.com/hashicorp/golang-lru/v2"

	"xpbuild/internal/shim"
)

// exportVar is the synthetic export variable both accepted module-export
// conventions are normalized into.
const exportVar = "__xpExport"

// programCacheSize bounds the compiled-program cache. Watch-mode rebuilds of
// an unchanged artifact hit the cache and skip recompilation.
const programCacheSize = 64

var (
	reExportsDefault = regexp.MustCompile(`(?m)^([ \t]*)exports\.default\s*=`)
	reExportsAssign  = regexp.MustCompile(`(?m)^([ \t]*)exports\s*=`)
)

// Evaluator executes server artifacts. Safe to reuse across builds; each
// Evaluate call allocates a fresh runtime.
type Evaluator struct {
	programs *lru.Cache[string, *goja.Program]
}

// NewEvaluator returns an evaluator with an empty program cache.
func NewEvaluator() *Evaluator {
	cache, _ := lru.New[string, *goja.Program](programCacheSize)
	return &Evaluator{programs: cache}
}

// Result is the resolved module value plus the runtime it lives in. Callers
// that invoke extracted callables must do so on this runtime.
type Result struct {
	Value   goja.Value
	Runtime *goja.Runtime
}

// NormalizeExports rewrites the two accepted export conventions,
// assignment-to-exports and assignment-to-exports.default, into assignments
// to the synthetic export variable. module.exports assignments are left
// alone; they are the documented fallback in the resolution order.
func NormalizeExports(code string) string {
	code = reExportsDefault.ReplaceAllString(code, "${1}"+exportVar+".default =")
	code = reExportsAssign.ReplaceAllString(code, "${1}"+exportVar+".default =")
	return code
}

// Evaluate runs the fully rewritten server artifact against the server shim
// environment and resolves the exported module value.
//
// Resolution precedence, preserved exactly: the synthetic export's `default`
// field, else the function body's raw return value, else
// `module.exports.default`, else `module.exports`. Any exception raised by
// the artifact propagates unchanged.
func (e *Evaluator) Evaluate(code string, env *shim.Environment) (*Result, error) {
	rt := goja.New()

	registry := new(require.Registry)
	registry.Enable(rt)
	console.Enable(rt)

	params := append([]string{}, env.Names()...)
	params = append(params, "require", "module", "exports", "console", exportVar)

	prog, err := e.compile(params, NormalizeExports(code))
	if err != nil {
		return nil, err
	}

	fnVal, err := rt.RunProgram(prog)
	if err != nil {
		return nil, err
	}
	fn, ok := goja.AssertFunction(fnVal)
	if !ok {
		return nil, fmt.Errorf("sandbox: wrapped artifact did not produce a function")
	}

	args, err := e.bindArgs(rt, env)
	if err != nil {
		return nil, err
	}

	moduleObj := rt.NewObject()
	exportsObj := rt.NewObject()
	_ = moduleObj.Set("exports", exportsObj)
	synthetic := rt.NewObject()

	args = append(args,
		rt.ToValue(blockedRequire(rt)),
		moduleObj,
		exportsObj,
		rt.Get("console"),
		synthetic,
	)

	ret, err := fn(goja.Undefined(), args...)
	if err != nil {
		// Syntax or runtime errors in user code abort the cycle unchanged.
		return nil, err
	}

	return &Result{Value: resolve(rt, synthetic, ret, moduleObj), Runtime: rt}, nil
}

// compile wraps the body into a function expression and compiles it, served
// from the program cache when the same artifact was seen before.
func (e *Evaluator) compile(params []string, body string) (*goja.Program, error) {
	src := "(function(" + strings.Join(params, ", ") + ") {\n" + body + "\n})"

	sum := sha256.Sum256([]byte(src))
	key := hex.EncodeToString(sum[:])
	if prog, ok := e.programs.Get(key); ok {
		return prog, nil
	}

	prog, err := goja.Compile("server-artifact.js", src, false)
	if err != nil {
		return nil, err
	}
	e.programs.Add(key, prog)
	return prog, nil
}

// bindArgs evaluates each server shim construction expression to an engine
// value, in declaration order.
func (e *Evaluator) bindArgs(rt *goja.Runtime, env *shim.Environment) ([]goja.Value, error) {
	args := make([]goja.Value, 0, len(env.Bindings))
	for _, b := range env.Bindings {
		v, err := rt.RunString("(" + b.Expr + ")")
		if err != nil {
			return nil, fmt.Errorf("sandbox: shim %q: %w", b.Name, err)
		}
		args = append(args, v)
	}
	return args, nil
}

// blockedRequire is the host require: every externalized dependency is
// already shimmed, so any require that survives transformation is a bug in
// the artifact and fails loudly.
func blockedRequire(rt *goja.Runtime) func(call goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		id := call.Argument(0).String()
		panic(rt.NewGoError(fmt.Errorf("sandbox: module %q is external and cannot be required", id)))
	}
}

// resolve applies the export resolution precedence.
func resolve(rt *goja.Runtime, synthetic *goja.Object, ret goja.Value, moduleObj *goja.Object) goja.Value {
	if d := synthetic.Get("default"); defined(d) {
		return d
	}
	if defined(ret) {
		return ret
	}
	exp := moduleObj.Get("exports")
	if defined(exp) {
		eobj := exp.ToObject(rt)
		if d := eobj.Get("default"); defined(d) {
			return d
		}
	}
	return exp
}

func defined(v goja.Value) bool {
	return v != nil && !goja.IsUndefined(v) && !goja.IsNull(v)
}
