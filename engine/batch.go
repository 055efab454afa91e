package engine

import "context"

// Outcome is the terminal state of one batch item.
type Outcome struct {
	Index  int
	Result *Result
	Err    error
}

// BatchResult holds one Outcome per input descriptor, in input order.
type BatchResult []Outcome

// Results returns the result at each index, nil where the item failed.
func (b BatchResult) Results() []*Result {
	out := make([]*Result, len(b))
	for i, o := range b {
		out[i] = o.Result
	}
	return out
}

// Errors returns the error at each index, nil where the item succeeded.
func (b BatchResult) Errors() []error {
	out := make([]error, len(b))
	for i, o := range b {
		out[i] = o.Err
	}
	return out
}

// Failed returns the indices of failed items in ascending order.
func (b BatchResult) Failed() []int {
	var idx []int
	for i, o := range b {
		if o.Err != nil {
			idx = append(idx, i)
		}
	}
	return idx
}

// ExecuteBatch submits every descriptor independently and waits for all of
// them. A failure at one index never affects another.
func (e *Engine) ExecuteBatch(ctx context.Context, ds []Descriptor) BatchResult {
	futures := make([]*Future, len(ds))
	for i, d := range ds {
		futures[i] = e.Submit(ctx, d)
	}

	out := make(BatchResult, len(ds))
	for i, f := range futures {
		res, err := f.Result()
		out[i] = Outcome{Index: i, Result: res, Err: err}
	}
	return out
}

// BatchFuture is the pending outcome of SubmitBatch.
type BatchFuture struct {
	done chan struct{}
	res  BatchResult
}

// SubmitBatch runs ExecuteBatch on its own goroutine.
func (e *Engine) SubmitBatch(ctx context.Context, ds []Descriptor) *BatchFuture {
	bf := &BatchFuture{done: make(chan struct{})}
	go func() {
		bf.res = e.ExecuteBatch(ctx, ds)
		close(bf.done)
	}()
	return bf
}

// Done is closed once every item is terminal.
func (bf *BatchFuture) Done() <-chan struct{} {
	return bf.done
}

// Await waits for the batch or for ctx to end.
func (bf *BatchFuture) Await(ctx context.Context) (BatchResult, error) {
	select {
	case <-bf.done:
		return bf.res, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Result blocks until every item is terminal.
func (bf *BatchFuture) Result() BatchResult {
	<-bf.done
	return bf.res
}
