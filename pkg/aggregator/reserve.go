package aggregator

import (
	"context"
	"fmt"
	"time"

	"github.com/aggnsa/aggnsa/pkg/auth"
	"github.com/aggnsa/aggnsa/pkg/registry"
	"github.com/aggnsa/aggnsa/pkg/statemachine"
	"github.com/aggnsa/aggnsa/pkg/store"
	"github.com/aggnsa/aggnsa/pkg/topology"
	"github.com/aggnsa/aggnsa/pkg/util"
)

// ReserveParams is the caller-supplied half of a Reserve request: everything
// the inbound adapter (out of scope) would have parsed off the wire.
type ReserveParams struct {
	// ConnectionID is optional. Supplied, it must not already exist
	// (*util.ConnectionExistsError); omitted, the Aggregator mints one.
	ConnectionID        string
	RequesterIdentity   string
	GlobalReservationID string
	Description         string
	RequesterReference  string

	Source topology.STP
	Dest   topology.STP

	StartTime time.Time
	EndTime   time.Time
	Bandwidth int64
}

// Reserve resolves a path between Source and Dest, holds capacity on every
// leg concurrently, and persists the result (spec.md §4.4). On any leg
// failure it compensates by terminating the legs that did succeed and
// quarantines the parent connection at RESERVE_FAILED / TERMINATED_FAILED
// rather than leaving it retryable — only Query and Terminate (which finds
// it already terminal and returns success) still succeed against it.
func (a *Aggregator) Reserve(ctx context.Context, p ReserveParams) (*store.ServiceConnection, error) {
	if err := a.authChecker.CheckIdentity(p.RequesterIdentity, auth.PermReserve,
		auth.NewContext().WithNetwork(p.Source.Network)); err != nil {
		return nil, err
	}

	if p.Source.Equal(p.Dest) && p.Source.IsSingleValued() && p.Dest.IsSingleValued() {
		return nil, util.NewValidationError(fmt.Sprintf("source and dest STP are identical: %s", p.Source))
	}

	connID, err := a.resolveConnectionID(ctx, p.ConnectionID)
	if err != nil {
		return nil, err
	}

	paths, err := a.topo.FindPaths(p.Source, p.Dest, &topology.Bandwidth{Minimum: p.Bandwidth})
	if err != nil {
		return nil, &ConnectionCreateError{ConnectionID: connID, Message: fmt.Sprintf("no viable path from %s to %s: %v", p.Source, p.Dest, err)}
	}
	path := paths[0]

	conn := &store.ServiceConnection{
		ConnectionID:         connID,
		Revision:             0,
		GlobalReservationID:  p.GlobalReservationID,
		Description:          p.Description,
		RequesterIdentity:    p.RequesterIdentity,
		RequesterReference:   p.RequesterReference,
		ReserveTime:          time.Now(),
		ReservationState:     statemachine.ReservationInitial,
		ProvisionState:       statemachine.ProvisionScheduled,
		ActivationState:      statemachine.ActivationInactive,
		LifecycleState:       statemachine.LifecycleInitial,
		Source:               p.Source,
		Dest:                 p.Dest,
		StartTime:            p.StartTime,
		EndTime:              p.EndTime,
		Bandwidth:            p.Bandwidth,
	}
	if err := a.store.CreateConnection(ctx, conn); err != nil {
		return nil, newInternalServerError("persisting connection %s: %v", connID, err)
	}

	if err := a.store.CASConnectionState(ctx, connID, statemachine.AxisReservation,
		statemachine.ReservationInitial, statemachine.ReservationChecking); err != nil {
		return nil, newInternalServerError("advancing connection %s to RESERVE_CHECKING: %v", connID, err)
	}
	conn.ReservationState = statemachine.ReservationChecking

	candidates := make([]*store.SubConnection, len(path))
	for i, link := range path {
		network, err := a.topo.GetNetwork(link.Source.Network)
		if err != nil {
			return nil, newInternalServerError("resolving network %s for leg %d: %v", link.Source.Network, i, err)
		}
		candidates[i] = &store.SubConnection{
			ParentID:         connID,
			OrderID:          i,
			ProviderNSA:      network.ManagingNSA,
			LocalLink:        network.ManagingNSA == a.selfNSA,
			ConnectionID:     connID,
			ReservationState: statemachine.ReservationInitial,
			ProvisionState:   statemachine.ProvisionScheduled,
			ActivationState:  statemachine.ActivationInactive,
			LifecycleState:   statemachine.LifecycleInitial,
			Source:           link.Source,
			Dest:             link.Dest,
			StartTime:        p.StartTime,
			EndTime:          p.EndTime,
			Bandwidth:        p.Bandwidth,
		}
	}

	outcomes := a.fanout(ctx, registry.EventReserve, candidates, func(sub *store.SubConnection) registry.Request {
		return registry.Request{
			RequesterIdentity:   p.RequesterIdentity,
			ProviderIdentity:    sub.ProviderNSA,
			ConnectionID:        sub.ConnectionID,
			GlobalReservationID: p.GlobalReservationID,
			Description:         p.Description,
			OrderID:             sub.OrderID,
			Source:              sub.Source,
			Dest:                sub.Dest,
			StartTime:            p.StartTime,
			EndTime:              p.EndTime,
			Bandwidth:            p.Bandwidth,
		}
	})

	for _, o := range outcomes {
		if o.Err == nil && o.Resp.ConnectionID != "" {
			o.Sub.ConnectionID = o.Resp.ConnectionID
		}
	}

	failures := failuresOf(outcomes)
	if len(failures) == 0 {
		for _, o := range outcomes {
			o.Sub.ReservationState = statemachine.ReservationHeld
			o.Sub.LifecycleState = statemachine.LifecycleCreated
			if err := a.store.CreateSubConnection(ctx, o.Sub); err != nil {
				return nil, newInternalServerError("persisting leg %d of connection %s: %v", o.OrderID, connID, err)
			}
		}
		if err := a.store.CASConnectionState(ctx, connID, statemachine.AxisReservation,
			statemachine.ReservationChecking, statemachine.ReservationHeld); err != nil {
			return nil, newInternalServerError("advancing connection %s to RESERVE_HELD: %v", connID, err)
		}
		if err := a.store.CASConnectionState(ctx, connID, statemachine.AxisLifecycle,
			statemachine.LifecycleInitial, statemachine.LifecycleCreated); err != nil {
			return nil, newInternalServerError("advancing connection %s to CREATED: %v", connID, err)
		}
		conn.ReservationState = statemachine.ReservationHeld
		conn.LifecycleState = statemachine.LifecycleCreated
		a.scheduler.Schedule(conn)
		util.WithConnection(connID).WithField("legs", len(path)).Info("aggregator: reservation held")
		return conn, nil
	}

	a.compensateReserve(ctx, connID, outcomes)

	if err := a.store.CASConnectionState(ctx, connID, statemachine.AxisReservation,
		statemachine.ReservationChecking, statemachine.ReservationFailed); err != nil {
		util.WithConnection(connID).WithError(err).Warn("aggregator: could not mark RESERVE_FAILED")
	}
	if err := a.store.CASConnectionState(ctx, connID, statemachine.AxisLifecycle,
		statemachine.LifecycleInitial, statemachine.LifecycleTerminatedFailed); err != nil {
		util.WithConnection(connID).WithError(err).Warn("aggregator: could not mark TERMINATED_FAILED")
	}

	return nil, newConnectionCreateError(connID, "reserve", len(path), failures)
}

// compensateReserve tears down every leg that did successfully hold
// capacity, persisting it as a RESERVE_FAILED leg rather than leaving it
// HELD with nothing upstream to ever commit it (spec.md Testable Property 6
// — no sub-connection is left at RESERVE_HELD once its parent has failed).
func (a *Aggregator) compensateReserve(ctx context.Context, connID string, outcomes []legOutcome) {
	for _, o := range outcomes {
		if o.Err != nil {
			continue
		}
		sub := o.Sub
		locality := registry.LocalityLocal
		if !sub.LocalLink {
			locality = registry.LocalityRemote
		}
		_, err := a.reg.Dispatch(ctx, registry.EventTerminate, locality, registry.Request{
			ProviderIdentity: sub.ProviderNSA,
			ConnectionID:     sub.ConnectionID,
			OrderID:          sub.OrderID,
			Source:           sub.Source,
			Dest:             sub.Dest,
		})
		if err != nil {
			util.WithConnection(connID).WithField("leg", sub.OrderID).WithError(err).
				Warn("aggregator: compensating terminate failed, leg left as provider's own orphan")
		}
		sub.ReservationState = statemachine.ReservationFailed
		sub.LifecycleState = statemachine.LifecycleTerminatedFailed
		if err := a.store.CreateSubConnection(ctx, sub); err != nil {
			util.WithConnection(connID).WithField("leg", sub.OrderID).WithError(err).
				Warn("aggregator: could not persist compensated leg")
		}
	}
}

// resolveConnectionID validates a caller-supplied id or mints a fresh one.
func (a *Aggregator) resolveConnectionID(ctx context.Context, requested string) (string, error) {
	if requested != "" {
		exists, err := a.store.ConnectionIDExists(ctx, requested)
		if err != nil {
			return "", newInternalServerError("checking connection id %s: %v", requested, err)
		}
		if exists {
			return "", util.NewConnectionExistsError(requested)
		}
		return requested, nil
	}

	for i := 0; i < idAttempts; i++ {
		id, err := util.GenerateConnectionID()
		if err != nil {
			return "", newInternalServerError("generating connection id: %v", err)
		}
		exists, err := a.store.ConnectionIDExists(ctx, id)
		if err != nil {
			return "", newInternalServerError("checking connection id %s: %v", id, err)
		}
		if !exists {
			return id, nil
		}
	}
	return "", newInternalServerError("could not mint a unique connection id after %d attempts", idAttempts)
}
