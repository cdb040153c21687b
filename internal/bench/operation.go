package bench

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Target is the data-access layer a server run drives. Implementations must be
// safe for concurrent use; every worker of a launch calls into the same Target.
type Target interface {
	// Ping checks that the server is reachable.
	Ping(ctx context.Context) error
	// Clear removes all benchmark data, including indexes. It is idempotent.
	Clear(ctx context.Context) error
	Insert(ctx context.Context, docs []interface{}) error
	PointQuery(ctx context.Context) error
	FilterQuery(ctx context.Context) error
	TagAggregation(ctx context.Context) error
	CommentAggregation(ctx context.Context) error
	CreateIndexes(ctx context.Context, fields []string) error
	Close(ctx context.Context) error
}

// DocumentSource supplies the documents an insert operation writes.
type DocumentSource interface {
	Documents(worker, n int) []interface{}
}

// Operation is one independently timed unit of work.
type Operation interface {
	Name() string
	// Run performs the work once and returns its result. Run never panics.
	Run(ctx context.Context) *Result
}

// Factory builds the operation for worker i of a launch.
type Factory func(i int) Operation

// Work is the untimed body of an operation.
type Work func(ctx context.Context) error

type timedOperation struct {
	name    string
	kind    Kind
	records int
	timeout time.Duration
	work    Work
}

// NewOperation wraps work into an Operation that times one invocation of it.
// A positive timeout bounds the invocation; the operation then fails with
// ErrTimeout even if work ignores its context.
func NewOperation(kind Kind, name string, timeout time.Duration, work Work) Operation {
	return &timedOperation{
		name:    name,
		kind:    kind,
		timeout: timeout,
		work:    work,
	}
}

func (o *timedOperation) Name() string {
	return o.name
}

func (o *timedOperation) Run(ctx context.Context) *Result {
	res := &Result{Name: o.name, Kind: o.kind, Records: o.records}

	sw := NewStopwatch()
	sw.Start()
	err := o.invoke(ctx)
	elapsed := sw.Stop()

	if err != nil {
		res.Err = &OperationError{Operation: o.name, Err: err}
		return res
	}
	res.Duration = elapsed
	return res
}

func (o *timedOperation) invoke(ctx context.Context) error {
	if o.timeout <= 0 {
		return guard(ctx, o.work)
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	// buffered so a late finisher does not block after we gave up on it
	done := make(chan error, 1)
	go func() { done <- guard(ctx, o.work) }()

	select {
	case err := <-done:
		if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w after %s: %v", ErrTimeout, o.timeout, err)
		}
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w after %s", ErrTimeout, o.timeout)
		}
		return ctx.Err()
	}
}

// guard runs work and turns a panic into an error.
func guard(ctx context.Context, work Work) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return work(ctx)
}

// NewInsert returns an operation writing docs to the target in one pass.
func NewInsert(t Target, docs []interface{}, timeout time.Duration) Operation {
	return &timedOperation{
		name:    string(KindInsert),
		kind:    KindInsert,
		records: len(docs),
		timeout: timeout,
		work: func(ctx context.Context) error {
			return t.Insert(ctx, docs)
		},
	}
}

// NewCreateIndex returns an operation building one index per field.
func NewCreateIndex(t Target, fields []string, timeout time.Duration) Operation {
	return NewOperation(KindCreateIndex, string(KindCreateIndex), timeout, func(ctx context.Context) error {
		return t.CreateIndexes(ctx, fields)
	})
}

// NewQuery returns the query operation of the given kind, labelled with prefix.
func NewQuery(t Target, kind Kind, prefix string, timeout time.Duration) Operation {
	var work Work
	switch kind {
	case KindPointQuery:
		work = t.PointQuery
	case KindFilterQuery:
		work = t.FilterQuery
	case KindTagAggregation:
		work = t.TagAggregation
	case KindCommentAggregation:
		work = t.CommentAggregation
	default:
		work = func(context.Context) error {
			return fmt.Errorf("unknown query kind %q", kind)
		}
	}
	return NewOperation(kind, prefix+string(kind), timeout, work)
}

// InsertFactory builds insert operations of records documents each. Documents
// are generated while the operation is built, outside the timed region.
func InsertFactory(t Target, src DocumentSource, records int, timeout time.Duration) Factory {
	return func(i int) Operation {
		return NewInsert(t, src.Documents(i, records), timeout)
	}
}

// CompositeFactory builds composite queries labelled with prefix.
func CompositeFactory(t Target, prefix string, timeout time.Duration) Factory {
	return func(int) Operation {
		return NewCompositeQueries(t, prefix, timeout)
	}
}
