// Package registry implements the (event, locality) dispatch table the
// Aggregator uses to treat local and remote legs symmetrically (spec.md
// §4.3, §9 "polymorphic dispatch over {operation, locality}"). It is
// deliberately a flat table of function values rather than an interface
// hierarchy per leg kind, the same shape as the device package's
// tableParsers dispatch by table name.
package registry

import (
	"context"
	"sync"
	"time"

	"github.com/aggnsa/aggnsa/pkg/topology"
)

// Event names one of the five inbound/outbound provider operations, or QUERY.
type Event string

const (
	EventReserve       Event = "RESERVE"
	EventReserveCommit Event = "RESERVE_COMMIT"
	EventProvision     Event = "PROVISION"
	EventRelease       Event = "RELEASE"
	EventTerminate     Event = "TERMINATE"
	EventQuery         Event = "QUERY"
)

// Locality names which side of the dispatch a handler serves: AGGREGATOR is
// the inbound endpoint the broker itself registers; LOCAL and REMOTE are the
// two per-leg backends the Aggregator fans out to.
type Locality string

const (
	LocalityAggregator Locality = "AGGREGATOR"
	LocalityLocal      Locality = "LOCAL"
	LocalityRemote     Locality = "REMOTE"
)

// Key identifies one entry in the dispatch table.
type Key struct {
	Event    Event
	Locality Locality
}

// Request carries a handler invocation's arguments, uniform across every
// (event, locality) pair so the Aggregator builds one Request shape
// regardless of which leg it is dispatching to (spec.md §4.3 "handlers share
// the signature").
type Request struct {
	RequesterIdentity   string
	ProviderIdentity    string
	SecurityAttrs       map[string]string
	ConnectionID        string
	GlobalReservationID string
	Description         string

	// OrderID identifies which leg of a multi-hop path this request
	// concerns. Requests addressed at the parent connection itself (the
	// AGGREGATOR locality) leave it at zero, and those handlers ignore it.
	OrderID int

	Source         topology.STP
	Dest           topology.STP
	StartTime      time.Time
	EndTime        time.Time
	Bandwidth      int64
	Directionality string
}

// Response is a handler's result. ConnectionID is the id assigned or echoed
// by the handler's provider — for a REMOTE leg this may differ from the
// Request's ConnectionID, which is why SubConnection keeps its own
// ConnectionID field distinct from ParentID.
type Response struct {
	ConnectionID        string
	GlobalReservationID string
	Description         string
}

// Handler implements one (event, locality) pair. Per spec.md §9, the
// function is total over its Request: it must not panic, and every failure
// path returns a non-nil error rather than a zero Response.
type Handler func(ctx context.Context, req Request) (Response, error)

// Registry is a (Event, Locality) -> Handler dispatch table. The zero value
// is not usable; construct with New.
type Registry struct {
	mu       sync.RWMutex
	handlers map[Key]Handler
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{handlers: make(map[Key]Handler)}
}

// Register installs h for the given (event, locality) pair, replacing any
// previously registered handler. pkg/local registers LOCAL handlers at
// startup; pkg/peer's Pool registers one REMOTE handler per event, serving
// every configured peer;
// cmd/aggnsad registers the Aggregator's own operations as the AGGREGATOR
// locality's inbound handlers.
func (r *Registry) Register(event Event, locality Locality, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[Key{Event: event, Locality: locality}] = h
}

// Lookup returns the handler registered for (event, locality), if any.
func (r *Registry) Lookup(event Event, locality Locality) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[Key{Event: event, Locality: locality}]
	return h, ok
}

// Dispatch looks up and invokes the handler for (event, locality). It
// returns *NotRegisteredError if nothing is registered for that pair —
// a topology misconfiguration (a leg's network locality with no backend)
// rather than a request-shape problem, so it is surfaced distinctly from
// whatever error the handler itself might return.
func (r *Registry) Dispatch(ctx context.Context, event Event, locality Locality, req Request) (Response, error) {
	h, ok := r.Lookup(event, locality)
	if !ok {
		return Response{}, newNotRegisteredError(event, locality)
	}
	return h(ctx, req)
}
