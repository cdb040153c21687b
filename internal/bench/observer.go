package bench

// Observer is notified of every measured result as soon as it is available.
// Children of a composite arrive one by one, the composite itself is not
// passed. Observe is called concurrently from worker goroutines.
type Observer interface {
	Observe(server string, run, thread int, r *Result)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(server string, run, thread int, r *Result)

func (f ObserverFunc) Observe(server string, run, thread int, r *Result) {
	f(server, run, thread, r)
}

// Observers fans a result out to several observers in order.
type Observers []Observer

func (o Observers) Observe(server string, run, thread int, r *Result) {
	for _, obs := range o {
		obs.Observe(server, run, thread, r)
	}
}

type nopObserver struct{}

func (nopObserver) Observe(string, int, int, *Result) {}
