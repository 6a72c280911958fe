// Package aggregator implements the broker's own state machine driver: it
// turns the five inbound operations (spec.md §4) into a path lookup, a
// fan-out of (event, locality) dispatches over pkg/registry, and the
// Store writes that make each step durable. It never talks to a provider
// directly — that is pkg/local's and pkg/peer's job. It does not consult
// pkg/statemachine's transition tables: each step names its from and to
// states and relies on the Store's per-axis compare-and-set.
package aggregator

import (
	"context"
	"sync"

	"github.com/aggnsa/aggnsa/pkg/auth"
	"github.com/aggnsa/aggnsa/pkg/registry"
	"github.com/aggnsa/aggnsa/pkg/store"
	"github.com/aggnsa/aggnsa/pkg/topology"
)

// idAttempts bounds the connection-id minting retry loop (spec.md §4.4 step
// 2's collision check): a collision on a random 12-hex-char id is astronomically
// unlikely, so this only guards against a broken random source looping forever.
const idAttempts = 8

// Aggregator is the broker. It holds no reservation state itself — every
// field below is either read-only after construction (topo, selfNSA) or
// itself safe for concurrent use (store, registry, authChecker) — so a
// single Aggregator instance serves every inbound request concurrently.
type Aggregator struct {
	store       store.Store
	topo        *topology.Topology
	reg         *registry.Registry
	authChecker *auth.Checker
	selfNSA     string

	// legConcurrency is not read: fanout always starts one goroutine per
	// leg (fine, since a path's hop count is small in practice).
	legConcurrency int

	scheduler *Scheduler
}

// New constructs an Aggregator. selfNSA is this broker's own NSA identity,
// compared against each path leg's managing network to decide LOCAL vs
// REMOTE dispatch (spec.md §4.1 "locality of a leg"). It also arms the
// connection scheduler (spec.md §4.4 "Scheduled transitions"); the callbacks
// close over this same *Aggregator, constructed in full by the time any
// timer actually fires.
func New(st store.Store, topo *topology.Topology, reg *registry.Registry, authChecker *auth.Checker, selfNSA string) *Aggregator {
	a := &Aggregator{
		store:       st,
		topo:        topo,
		reg:         reg,
		authChecker: authChecker,
		selfNSA:     selfNSA,
	}
	a.scheduler = newScheduler(a.activateAtStartTime, a.terminateAtEndTime)
	return a
}

// localityFor reports whether the network hosting an STP is this broker's
// own (LOCAL, fulfilled by pkg/local) or a peer's (REMOTE, fulfilled over
// pkg/peer). An unknown network is treated as REMOTE so dispatch fails with
// registry's *NotRegisteredError / peer's *NoPeerError rather than silently
// routing into the local backend.
func (a *Aggregator) localityFor(networkName string) registry.Locality {
	n, err := a.topo.GetNetwork(networkName)
	if err != nil {
		return registry.LocalityRemote
	}
	if n.ManagingNSA == a.selfNSA {
		return registry.LocalityLocal
	}
	return registry.LocalityRemote
}

// legOutcome is one fan-out participant's result.
type legOutcome struct {
	OrderID int
	Sub     *store.SubConnection
	Resp    registry.Response
	Err     error
}

// fanout dispatches event concurrently to every sub, one goroutine each,
// and waits for all of them — the hand-rolled equivalent of the gevent
// pool the original's NML topology walker used, generalized to any one of
// the five events (spec.md §5 "fan-out and wait for all; never short-circuit
// on the first failure, so every leg gets a chance to settle").
func (a *Aggregator) fanout(ctx context.Context, event registry.Event, subs []*store.SubConnection, buildReq func(*store.SubConnection) registry.Request) []legOutcome {
	outcomes := make([]legOutcome, len(subs))
	var wg sync.WaitGroup
	wg.Add(len(subs))
	for i, sub := range subs {
		i, sub := i, sub
		go func() {
			defer wg.Done()
			locality := registry.LocalityLocal
			if !sub.LocalLink {
				locality = registry.LocalityRemote
			}
			req := buildReq(sub)
			resp, err := a.reg.Dispatch(ctx, event, locality, req)
			outcomes[i] = legOutcome{OrderID: sub.OrderID, Sub: sub, Resp: resp, Err: err}
		}()
	}
	wg.Wait()
	return outcomes
}

// failuresOf collects the legFailure entries from a fanout's outcomes, in
// OrderID order (fanout already preserves index order, so this is a
// straight filter).
func failuresOf(outcomes []legOutcome) []legFailure {
	var failures []legFailure
	for _, o := range outcomes {
		if o.Err != nil {
			failures = append(failures, legFailure{OrderID: o.OrderID, ProviderNSA: o.Sub.ProviderNSA, Err: o.Err})
		}
	}
	return failures
}

