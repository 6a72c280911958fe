// Package local implements the LOCAL locality's in-process backend: a leg
// whose network this process itself manages is fulfilled directly against
// the topology's port capacity rather than by dialing a peer (spec.md §4.3,
// SPEC_FULL.md §2 item 6). It registers one Handler per event on a
// *registry.Registry at construction time, the same "a concrete backend
// owns its slice of the dispatch table" shape the device package's
// tableParsers map uses per ConfigDB table.
package local

import (
	"context"
	"sync"

	"github.com/aggnsa/aggnsa/pkg/registry"
	"github.com/aggnsa/aggnsa/pkg/topology"
	"github.com/aggnsa/aggnsa/pkg/util"
)

// legKey identifies one reserved leg for bookkeeping capacity credit/debit.
type legKey struct {
	connectionID string
	orderID      int
}

// Backend applies each leg operation directly against topo's port capacity.
// It tracks which legs currently hold reserved bandwidth so Terminate can
// credit it back exactly once, idempotently.
type Backend struct {
	topo *topology.Topology

	mu       sync.Mutex
	reserved map[legKey]int64
}

// New creates a Backend over topo. topo is shared with the rest of the
// process (path-finding reads it too); Backend only ever mutates port
// AvailableCapacity fields, never the graph shape.
func New(topo *topology.Topology) *Backend {
	return &Backend{
		topo:     topo,
		reserved: make(map[legKey]int64),
	}
}

// RegisterOn installs this Backend's handlers for every event at
// registry.LocalityLocal.
func (b *Backend) RegisterOn(reg *registry.Registry) {
	reg.Register(registry.EventReserve, registry.LocalityLocal, b.handleReserve)
	reg.Register(registry.EventReserveCommit, registry.LocalityLocal, b.handleReserveCommit)
	reg.Register(registry.EventProvision, registry.LocalityLocal, b.handleProvision)
	reg.Register(registry.EventRelease, registry.LocalityLocal, b.handleRelease)
	reg.Register(registry.EventTerminate, registry.LocalityLocal, b.handleTerminate)
}

func (b *Backend) handleReserve(ctx context.Context, req registry.Request) (registry.Response, error) {
	key := legKey{connectionID: req.ConnectionID, orderID: req.OrderID}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, held := b.reserved[key]; held {
		// Retried Reserve on a leg we already hold: succeed without double-debiting.
		return registry.Response{ConnectionID: req.ConnectionID}, nil
	}

	if err := b.debit(req.Source, req.Bandwidth); err != nil {
		return registry.Response{}, err
	}
	if err := b.debit(req.Dest, req.Bandwidth); err != nil {
		b.credit(req.Source, req.Bandwidth)
		return registry.Response{}, err
	}

	b.reserved[key] = req.Bandwidth
	util.WithConnection(req.ConnectionID).WithField("leg", req.OrderID).Debug("local: leg reserved")
	return registry.Response{ConnectionID: req.ConnectionID}, nil
}

func (b *Backend) handleReserveCommit(ctx context.Context, req registry.Request) (registry.Response, error) {
	// Commit is a pure state-axis advance at this layer: the capacity debit
	// already happened at Reserve time, so there is nothing further to touch.
	return registry.Response{ConnectionID: req.ConnectionID}, nil
}

func (b *Backend) handleProvision(ctx context.Context, req registry.Request) (registry.Response, error) {
	// No distinct physical provisioning step is modeled for a local port;
	// the reservation already holds the capacity a provisioned leg needs.
	util.WithConnection(req.ConnectionID).WithField("leg", req.OrderID).Debug("local: leg provisioned")
	return registry.Response{ConnectionID: req.ConnectionID}, nil
}

func (b *Backend) handleRelease(ctx context.Context, req registry.Request) (registry.Response, error) {
	// Release unwinds provisioning, not the reservation itself (spec.md
	// §4.4 Release is "symmetric to Provision"); capacity stays debited
	// until Terminate.
	util.WithConnection(req.ConnectionID).WithField("leg", req.OrderID).Debug("local: leg released")
	return registry.Response{ConnectionID: req.ConnectionID}, nil
}

func (b *Backend) handleTerminate(ctx context.Context, req registry.Request) (registry.Response, error) {
	key := legKey{connectionID: req.ConnectionID, orderID: req.OrderID}

	b.mu.Lock()
	defer b.mu.Unlock()

	bw, held := b.reserved[key]
	if !held {
		// Idempotent: a retried or never-reserved Terminate is still success.
		return registry.Response{ConnectionID: req.ConnectionID}, nil
	}

	b.credit(req.Source, bw)
	b.credit(req.Dest, bw)
	delete(b.reserved, key)
	util.WithConnection(req.ConnectionID).WithField("leg", req.OrderID).Debug("local: leg terminated")
	return registry.Response{ConnectionID: req.ConnectionID}, nil
}

// debit subtracts bandwidth from stp's port capacity, if that port tracks
// capacity at all. It fails with *CapacityError rather than going negative.
func (b *Backend) debit(stp topology.STP, bandwidth int64) error {
	_, port, err := b.topo.GetPort(stp.Network, stp.Port)
	if err != nil {
		return err
	}
	if port.AvailableCapacity == nil {
		return nil
	}
	if *port.AvailableCapacity < bandwidth {
		return newCapacityError(stp, bandwidth, *port.AvailableCapacity)
	}
	remaining := *port.AvailableCapacity - bandwidth
	port.AvailableCapacity = &remaining
	return nil
}

// credit adds bandwidth back to stp's port capacity, if tracked.
func (b *Backend) credit(stp topology.STP, bandwidth int64) {
	_, port, err := b.topo.GetPort(stp.Network, stp.Port)
	if err != nil {
		return
	}
	if port.AvailableCapacity == nil {
		return
	}
	restored := *port.AvailableCapacity + bandwidth
	port.AvailableCapacity = &restored
}
