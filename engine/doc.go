// Package engine executes remote operations with retry, admission control,
// response caching and batch fan-out.
//
// Every operation follows one path: cache lookup for idempotent reads, then
// a concurrency slot held for the whole retry sequence, then attempts
// through httpclient until one succeeds or a failure is terminal, then the
// slot is released and a successful idempotent result is cached.
//
//	e, err := engine.New(client, cfg, engine.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	defer e.Close()
//
//	res, err := e.Execute(ctx, engine.Descriptor{
//	    Operation: "get-health",
//	    Path:      "/health",
//	})
//
// Submit runs the same path without blocking:
//
//	f := e.Submit(ctx, d)
//	res, err := f.Await(ctx)
//
// ExecuteBatch fans a slice of descriptors out through the shared limiter
// and returns one Outcome per input, in input order:
//
//	br := e.ExecuteBatch(ctx, ds)
//	for _, i := range br.Failed() {
//	    log.Printf("item %d: %v", i, br[i].Err)
//	}
//
// # Errors
//
// A permanent failure returns *PermanentRemoteError after one attempt. When
// every attempt fails transiently the result is *RetryExhaustedError, which
// unwraps to the last *TransientRemoteError. Cancelling the caller's context
// returns the context error. Work submitted after Close fails with ErrClosed.
package engine
