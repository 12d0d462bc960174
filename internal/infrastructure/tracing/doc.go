/*
Package tracing correlates inspector requests with the RPC calls they cause.

A trace ID travels in a context.Context. The gin middleware adopts an
incoming X-Trace-ID or starts a new trace; the RPC transport copies the
current trace onto outgoing envelope posts with Headers, so one desktop
action can be followed through the remote service's logs.

	tracer := tracing.New("inspector", logger)
	defer tracer.Close()
	router.Use(tracing.HTTPMiddleware(tracer))

	span, ctx := tracer.StartSpan(ctx, "kernel.launch")
	defer tracer.Finish(span)

Completed spans are logged by a single collector goroutine. Submission never
blocks; spans are dropped when the buffer is full.
*/
package tracing
