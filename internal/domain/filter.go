package domain

// FilterDecision says which parts of the pipeline to suppress for an intent.
// The three axes are independent.
type FilterDecision struct {
	IgnoreRender bool
	IgnoreStore  bool
	IgnoreRoute  bool
}

// Merge combines two decisions with a logical OR per axis. Filters can only add
// suppression, never lift it.
func (d FilterDecision) Merge(o FilterDecision) FilterDecision {
	return FilterDecision{
		IgnoreRender: d.IgnoreRender || o.IgnoreRender,
		IgnoreStore:  d.IgnoreStore || o.IgnoreStore,
		IgnoreRoute:  d.IgnoreRoute || o.IgnoreRoute,
	}
}

// Any reports whether at least one axis is asserted.
func (d FilterDecision) Any() bool {
	return d.IgnoreRender || d.IgnoreStore || d.IgnoreRoute
}

// IgnoreAll suppresses rendering, storage and routing.
var IgnoreAll = FilterDecision{IgnoreRender: true, IgnoreStore: true, IgnoreRoute: true}

// RouteResult is the outcome of routing a consumed notification.
type RouteResult string

const (
	RouteSuccess   RouteResult = "Success"
	RouteNoHandler RouteResult = "NoHandler"
	RouteFailed    RouteResult = "Failed"
	RouteDeferred  RouteResult = "Deferred"
	RouteIgnored   RouteResult = "Ignored"
)
