package bench

import (
	"context"
	"fmt"
	"sync"
)

// Launch builds threads operations with factory and runs them concurrently,
// one goroutine each. All operations are built before any of them starts:
// workers wait behind a shared gate that opens once the last one is spawned.
// Launch returns when every worker has finished. Result i belongs to the
// operation built by factory(i), regardless of completion order.
//
// observe, if not nil, is called from the worker goroutine for every measured
// result as soon as it is available: once for a plain operation, once per
// child for a composite.
func Launch(ctx context.Context, threads int, factory Factory, observe func(i int, r *Result)) []*Result {
	results := make([]*Result, threads)
	launchInto(ctx, results, factory, observe)
	return results
}

// launchInto runs len(dst) workers; worker i writes dst[i] and nothing else.
func launchInto(ctx context.Context, dst []*Result, factory Factory, observe func(i int, r *Result)) {
	gate := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(len(dst))

	for i := range dst {
		op := factory(i)
		go func(i int, op Operation) {
			defer wg.Done()
			<-gate

			wctx := ctx
			if observe != nil {
				wctx = WithLeafObserver(ctx, func(r *Result) { observe(i, r) })
			}

			r := runOperation(wctx, op)
			dst[i] = r
			// children of a composite were observed as they finished
			if observe != nil && r.Kind != KindComposite {
				observe(i, r)
			}
		}(i, op)
	}

	close(gate)
	wg.Wait()
}

// runOperation runs op and converts a panic into a failed result so that a
// broken operation cannot take the launcher down.
func runOperation(ctx context.Context, op Operation) (res *Result) {
	defer func() {
		if r := recover(); r != nil {
			res = &Result{
				Name: op.Name(),
				Err:  &OperationError{Operation: op.Name(), Err: fmt.Errorf("panic: %v", r)},
			}
		}
	}()
	return op.Run(ctx)
}
