package bench

import (
	"errors"
	"strings"
	"time"
)

// Kind identifies what an operation does.
type Kind string

const (
	KindInsert             Kind = "Insert"
	KindPointQuery         Kind = "Simple Query"
	KindFilterQuery        Kind = "Filter Query"
	KindTagAggregation     Kind = "Tag Count Aggregation"
	KindCommentAggregation Kind = "Comment Author Aggregation"
	KindCreateIndex        Kind = "Created Indexes"
	KindComposite          Kind = "Composite Queries"
)

// IndexedPrefix is prepended to the names of composite queries, and of their
// sub-operations, that run after the indexes were built.
const IndexedPrefix = "Indexed "

// compositeKinds is the fixed order in which a composite runs its children.
var compositeKinds = []Kind{
	KindPointQuery,
	KindFilterQuery,
	KindTagAggregation,
	KindCommentAggregation,
}

// CompositeKinds returns the sub-operation kinds of a composite query, in
// execution order.
func CompositeKinds() []Kind {
	return append([]Kind(nil), compositeKinds...)
}

// Result is the outcome of one operation. Duration is only meaningful when
// Err is nil. A result is not modified after the operation that produced it
// returns.
type Result struct {
	Name     string
	Kind     Kind
	Duration time.Duration
	// Records is the number of documents an insert wrote.
	Records int
	Err     error
	// Sub holds the children of a composite, in execution order.
	Sub []*Result
}

// Failed reports whether the operation did not complete.
func (r *Result) Failed() bool {
	return r.Err != nil
}

// TimedOut reports whether the operation hit the operation timeout.
func (r *Result) TimedOut() bool {
	return errors.Is(r.Err, ErrTimeout)
}

// Indexed reports whether the result was taken after index creation.
func (r *Result) Indexed() bool {
	return strings.HasPrefix(r.Name, IndexedPrefix)
}

// Leaves returns the results that carry a single measured operation: the
// children of a composite, or the result itself.
func (r *Result) Leaves() []*Result {
	if r.Kind == KindComposite {
		return r.Sub
	}
	return []*Result{r}
}

// Child returns the sub-result of the given kind, or nil.
func (r *Result) Child(kind Kind) *Result {
	for _, s := range r.Sub {
		if s.Kind == kind {
			return s
		}
	}
	return nil
}
