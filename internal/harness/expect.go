package harness

import (
	"fmt"
	"strings"

	"github.com/dop251/goja"
)

// newChain builds the assertion chain for one expected value. Every
// assertion returns the chain itself for fluency. The `not` accessor
// returns an equivalent chain with every pass condition inverted; it is a
// lazy getter so chains never build their own inverse eagerly.
func (r *Runner) newChain(actual goja.Value, negated bool) *goja.Object {
	chain := r.rt.NewObject()

	// to reads "to" on a plain chain and "not to" on an inverted one, so
	// failure messages state the actual expectation.
	to := "to"
	if negated {
		to = "not to"
	}

	assert := func(pass bool, format string, args ...interface{}) goja.Value {
		if pass == negated {
			r.throwf(format, args...)
		}
		return chain
	}

	_ = chain.Set("toBe", func(call goja.FunctionCall) goja.Value {
		expected := call.Argument(0)
		return assert(actual.StrictEquals(expected),
			"expected %s %s be %s", actual.String(), to, expected.String())
	})

	_ = chain.Set("toEqual", func(call goja.FunctionCall) goja.Value {
		expected := call.Argument(0)
		return assert(r.serialize(actual) == r.serialize(expected),
			"expected %s %s equal %s", r.serialize(actual), to, r.serialize(expected))
	})

	_ = chain.Set("toBeTruthy", func(goja.FunctionCall) goja.Value {
		return assert(actual.ToBoolean(), "expected %s %s be truthy", actual.String(), to)
	})

	_ = chain.Set("toBeFalsy", func(goja.FunctionCall) goja.Value {
		return assert(!actual.ToBoolean(), "expected %s %s be falsy", actual.String(), to)
	})

	_ = chain.Set("toContain", func(call goja.FunctionCall) goja.Value {
		item := call.Argument(0)
		return assert(r.contains(actual, item),
			"expected %s %s contain %s", r.serialize(actual), to, r.serialize(item))
	})

	_ = chain.Set("toHaveProperty", func(call goja.FunctionCall) goja.Value {
		name := call.Argument(0).String()
		if actual == nil || goja.IsUndefined(actual) || goja.IsNull(actual) {
			return assert(false, "expected %s %s have property %q", valueMessage(actual), to, name)
		}
		prop := actual.ToObject(r.rt).Get(name)
		present := prop != nil && !goja.IsUndefined(prop)
		if len(call.Arguments) < 2 {
			return assert(present, "expected %s %s have property %q", r.serialize(actual), to, name)
		}
		want := call.Argument(1)
		return assert(present && r.serialize(prop) == r.serialize(want),
			"expected property %q %s equal %s, got %s", name, to, r.serialize(want), r.serialize(prop))
	})

	getter := r.rt.ToValue(func(goja.FunctionCall) goja.Value {
		return r.newChain(actual, !negated)
	})
	_ = chain.DefineAccessorProperty("not", getter, nil, goja.FLAG_FALSE, goja.FLAG_TRUE)

	return chain
}

// contains implements the containment assertion: element-of for array-likes,
// substring for strings.
func (r *Runner) contains(actual, item goja.Value) bool {
	if actual == nil || goja.IsUndefined(actual) || goja.IsNull(actual) {
		return false
	}
	if _, ok := actual.Export().(string); ok {
		return strings.Contains(actual.String(), item.String())
	}
	obj := actual.ToObject(r.rt)
	length := int(obj.Get("length").ToInteger())
	for i := 0; i < length; i++ {
		el := obj.Get(fmt.Sprintf("%d", i))
		if el != nil && el.StrictEquals(item) {
			return true
		}
	}
	return false
}
