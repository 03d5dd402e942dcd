// Package experience defines the structured module object extracted from an
// evaluated server artifact, and the extraction itself. An experience module
// exposes at least an ordered tools list; state schema, initial state,
// manifest, declared tests and agents are optional.
package experience

import (
	"errors"
	"fmt"

	"github.com/dop251/goja"
)

// ErrNoTools is the hard extraction failure: the evaluated module did not
// expose a tools list. Never silently tolerated.
var ErrNoTools = errors.New("extracted module exposes no tools list")

// ToolDefinition is one named, schema-carrying operation with a handler.
type ToolDefinition struct {
	Name                 string
	Description          string
	InputSchema          goja.Value
	Handler              goja.Callable
	Risk                 string
	RequiredCapabilities []string
}

// TestDefinition is one declared test: a name and a body that receives the
// harness surface.
type TestDefinition struct {
	Name string
	Run  goja.Callable
}

// ExtractedModule is the caller-owned result of one server-artifact
// evaluation. It is valid for exactly one build/test cycle and holds a
// reference to the runtime its callables live in.
type ExtractedModule struct {
	Tools        []ToolDefinition
	Tests        []TestDefinition
	StateSchema  goja.Value
	InitialState goja.Value
	Manifest     goja.Value
	Agents       goja.Value

	// Runtime is the evaluation runtime. Handlers and test bodies must be
	// invoked on it; goja runtimes are single-threaded.
	Runtime *goja.Runtime
}

// Extract builds an ExtractedModule from the evaluator's result value.
// A missing or malformed tools list is a hard failure.
func Extract(rt *goja.Runtime, v goja.Value) (*ExtractedModule, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, ErrNoTools
	}
	obj := v.ToObject(rt)

	mod := &ExtractedModule{
		StateSchema:  obj.Get("stateSchema"),
		InitialState: obj.Get("initialState"),
		Manifest:     obj.Get("manifest"),
		Agents:       obj.Get("agents"),
		Runtime:      rt,
	}

	tools, err := extractTools(rt, obj.Get("tools"))
	if err != nil {
		return nil, err
	}
	mod.Tools = tools

	tests, err := extractTests(rt, obj.Get("tests"))
	if err != nil {
		return nil, err
	}
	mod.Tests = tests

	return mod, nil
}

// Tool returns the tool named name, or false when absent.
func (m *ExtractedModule) Tool(name string) (ToolDefinition, bool) {
	for _, t := range m.Tools {
		if t.Name == name {
			return t, true
		}
	}
	return ToolDefinition{}, false
}

// ToolNames returns tool names in declaration order.
func (m *ExtractedModule) ToolNames() []string {
	out := make([]string, 0, len(m.Tools))
	for _, t := range m.Tools {
		out = append(out, t.Name)
	}
	return out
}

func extractTools(rt *goja.Runtime, v goja.Value) ([]ToolDefinition, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, ErrNoTools
	}
	arr := v.ToObject(rt)
	if arr.ClassName() != "Array" {
		return nil, fmt.Errorf("%w: tools is %s, want array", ErrNoTools, arr.ClassName())
	}
	length := int(arr.Get("length").ToInteger())

	tools := make([]ToolDefinition, 0, length)
	seen := make(map[string]bool)
	for i := 0; i < length; i++ {
		entry := arr.Get(fmt.Sprintf("%d", i))
		if entry == nil || goja.IsUndefined(entry) {
			continue
		}
		eobj := entry.ToObject(rt)

		name := stringField(eobj, "name")
		if name == "" {
			return nil, fmt.Errorf("tool %d has no name", i)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate tool name %q", name)
		}
		seen[name] = true

		handler, ok := goja.AssertFunction(eobj.Get("handler"))
		if !ok {
			return nil, fmt.Errorf("tool %q has no callable handler", name)
		}

		tools = append(tools, ToolDefinition{
			Name:                 name,
			Description:          stringField(eobj, "description"),
			InputSchema:          eobj.Get("inputSchema"),
			Handler:              handler,
			Risk:                 stringField(eobj, "risk"),
			RequiredCapabilities: stringSliceField(rt, eobj, "requiredCapabilities"),
		})
	}
	return tools, nil
}

func extractTests(rt *goja.Runtime, v goja.Value) ([]TestDefinition, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, nil
	}
	arr := v.ToObject(rt)
	length := int(arr.Get("length").ToInteger())

	tests := make([]TestDefinition, 0, length)
	for i := 0; i < length; i++ {
		entry := arr.Get(fmt.Sprintf("%d", i))
		if entry == nil || goja.IsUndefined(entry) {
			continue
		}
		eobj := entry.ToObject(rt)

		name := stringField(eobj, "name")
		if name == "" {
			name = fmt.Sprintf("test %d", i)
		}

		body := eobj.Get("run")
		if body == nil || goja.IsUndefined(body) {
			body = eobj.Get("fn")
		}
		run, ok := goja.AssertFunction(body)
		if !ok {
			return nil, fmt.Errorf("test %q has no callable body", name)
		}

		tests = append(tests, TestDefinition{Name: name, Run: run})
	}
	return tests, nil
}

func stringField(obj *goja.Object, key string) string {
	v := obj.Get(key)
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return ""
	}
	return v.String()
}

func stringSliceField(rt *goja.Runtime, obj *goja.Object, key string) []string {
	v := obj.Get(key)
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	arr := v.ToObject(rt)
	length := int(arr.Get("length").ToInteger())
	out := make([]string, 0, length)
	for i := 0; i < length; i++ {
		el := arr.Get(fmt.Sprintf("%d", i))
		if el != nil && !goja.IsUndefined(el) {
			out = append(out, el.String())
		}
	}
	return out
}
