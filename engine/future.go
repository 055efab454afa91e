package engine

import "context"

// Future is the pending outcome of a submitted operation.
type Future struct {
	done chan struct{}
	res  *Result
	err  error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) complete(res *Result, err error) {
	f.res, f.err = res, err
	close(f.done)
}

// Done is closed once the operation is terminal.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Await waits for the outcome or for ctx to end. Ending ctx does not cancel
// the operation; cancel the context passed to Submit for that.
func (f *Future) Await(ctx context.Context) (*Result, error) {
	select {
	case <-f.done:
		return f.res, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Result blocks until the operation is terminal and returns its outcome.
func (f *Future) Result() (*Result, error) {
	<-f.done
	return f.res, f.err
}
