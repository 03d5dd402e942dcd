package harness

import (
	"time"

	"github.com/dop251/goja"
)

// Mock context defaults, applied when the test's options omit them.
const (
	defaultActorID = "test-actor"
	defaultRoomID  = "test-room"
	defaultOwner   = "test-owner"
)

// contextFactory builds the `ctx(options)` surface function. Every call
// allocates a fresh mock context: held state is the provided fixture (or an
// empty object), setState replaces the held state wholesale, getState reads
// it, and the timestamp is the wall clock at construction. Contexts are
// never shared across tests, so one test can never observe another's
// mutation.
func (r *Runner) contextFactory() func(call goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		opts := call.Argument(0)

		ctx := r.rt.NewObject()
		_ = ctx.Set("state", r.optField(opts, "state", r.rt.NewObject()))
		_ = ctx.Set("actorId", r.optField(opts, "actorId", r.rt.ToValue(defaultActorID)))
		_ = ctx.Set("roomId", r.optField(opts, "roomId", r.rt.ToValue(defaultRoomID)))
		_ = ctx.Set("owner", r.optField(opts, "owner", r.rt.ToValue(defaultOwner)))
		_ = ctx.Set("timestamp", r.rt.ToValue(time.Now().UnixMilli()))

		_ = ctx.Set("setState", func(sc goja.FunctionCall) goja.Value {
			_ = ctx.Set("state", sc.Argument(0))
			return goja.Undefined()
		})
		_ = ctx.Set("getState", func(goja.FunctionCall) goja.Value {
			return ctx.Get("state")
		})
		return ctx
	}
}

// optField reads key from an options value, falling back when the options or
// the field are absent.
func (r *Runner) optField(opts goja.Value, key string, fallback goja.Value) goja.Value {
	if opts == nil || goja.IsUndefined(opts) || goja.IsNull(opts) {
		return fallback
	}
	v := opts.ToObject(r.rt).Get(key)
	if v == nil || goja.IsUndefined(v) {
		return fallback
	}
	return v
}
