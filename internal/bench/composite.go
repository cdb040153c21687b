package bench

import (
	"context"
	"time"
)

type leafObserverKey struct{}

// WithLeafObserver returns a context under which a composite hands every child
// result to fn as soon as that child finishes.
func WithLeafObserver(ctx context.Context, fn func(r *Result)) context.Context {
	return context.WithValue(ctx, leafObserverKey{}, fn)
}

func leafObserver(ctx context.Context) func(r *Result) {
	fn, _ := ctx.Value(leafObserverKey{}).(func(r *Result))
	return fn
}

// Composite runs an ordered list of operations one after another. Each child
// is timed on its own; the composite's duration spans all of them.
type Composite struct {
	name     string
	children []Operation
}

// NewComposite returns a composite running children in the given order.
func NewComposite(name string, children ...Operation) *Composite {
	return &Composite{name: name, children: children}
}

// NewCompositeQueries returns the query mix of one benchmark thread: a point
// query, a filter query, a tag aggregation and a comment author aggregation.
// The prefix labels the composite and every child.
func NewCompositeQueries(t Target, prefix string, timeout time.Duration) *Composite {
	children := make([]Operation, 0, len(compositeKinds))
	for _, kind := range compositeKinds {
		children = append(children, NewQuery(t, kind, prefix, timeout))
	}
	return NewComposite(prefix+string(KindComposite), children...)
}

func (c *Composite) Name() string {
	return c.name
}

// Run executes every child even when an earlier one failed. The composite
// itself does not fail; failures stay on the child results.
func (c *Composite) Run(ctx context.Context) *Result {
	res := &Result{
		Name: c.name,
		Kind: KindComposite,
		Sub:  make([]*Result, 0, len(c.children)),
	}

	notify := leafObserver(ctx)

	sw := NewStopwatch()
	sw.Start()
	for _, child := range c.children {
		sub := child.Run(ctx)
		res.Sub = append(res.Sub, sub)
		if notify != nil {
			notify(sub)
		}
	}
	res.Duration = sw.Stop()

	return res
}
