// Package dispatch runs callbacks at the boundary between a change source and
// application code.
//
// The Executor invokes a handler synchronously, recovers from panics and
// reports the outcome as a Result. Watch handlers and actions both run
// through it, so a handler that fails or panics never unwinds into the model
// that announced the change:
//
//	exec := dispatch.NewExecutor(
//	    dispatch.WithPanicHandler(func(inv dispatch.Invocation, v any, stack []byte) {
//	        logger.Error(nil, "handler panicked", "invocation", inv.String(), "value", v)
//	    }),
//	)
//	inv := dispatch.Invocation{Kind: dispatch.KindWatch, Name: "onName", Target: "name"}
//	if result := exec.Execute(inv, handle); !result.OK() {
//	    metrics.IncFailure(result.Reason())
//	}
package dispatch
