package aggregator

import (
	"context"

	"github.com/aggnsa/aggnsa/pkg/auth"
	"github.com/aggnsa/aggnsa/pkg/registry"
	"github.com/aggnsa/aggnsa/pkg/statemachine"
	"github.com/aggnsa/aggnsa/pkg/store"
	"github.com/aggnsa/aggnsa/pkg/util"
)

// Terminate tears a connection down unconditionally (spec.md §4.4
// Terminate, Testable Property 5: idempotent, and the only operation
// callable against a connection already quarantined at RESERVE_FAILED or
// TERMINATED_FAILED). A connection already at TERMINATED or
// TERMINATED_FAILED is treated as done: both are absorbing states on the
// lifecycle axis, so there is nothing further to attempt and Terminate
// returns success without mutation.
func (a *Aggregator) Terminate(ctx context.Context, connectionID, requesterIdentity string) (*store.ServiceConnection, error) {
	conn, err := a.store.GetConnection(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if err := a.authChecker.CheckIdentity(requesterIdentity, auth.PermTerminate,
		auth.NewContext().WithNetwork(conn.Source.Network).WithConnectionID(connectionID)); err != nil {
		return nil, err
	}

	if conn.LifecycleState == statemachine.LifecycleTerminated || conn.LifecycleState == statemachine.LifecycleTerminatedFailed {
		a.scheduler.Cancel(connectionID)
		return conn, nil
	}
	a.scheduler.Cancel(connectionID)

	subs, err := a.store.ListSubConnections(ctx, connectionID)
	if err != nil {
		return nil, newInternalServerError("loading legs of connection %s: %v", connectionID, err)
	}

	fromLifecycle := conn.LifecycleState
	if err := a.store.CASConnectionState(ctx, connectionID, statemachine.AxisLifecycle,
		fromLifecycle, statemachine.LifecycleTerminating); err != nil {
		return nil, newInternalServerError("advancing connection %s to TERMINATING: %v", connectionID, err)
	}

	outcomes := a.fanout(ctx, registry.EventTerminate, subs, func(sub *store.SubConnection) registry.Request {
		return registry.Request{
			RequesterIdentity: requesterIdentity,
			ProviderIdentity:  sub.ProviderNSA,
			ConnectionID:      sub.ConnectionID,
			OrderID:           sub.OrderID,
			Source:            sub.Source,
			Dest:              sub.Dest,
		}
	})

	failures := failuresOf(outcomes)
	for _, o := range outcomes {
		if o.Err != nil {
			continue
		}
		a.advanceSubToTerminal(ctx, connectionID, o.Sub, statemachine.LifecycleTerminated)
	}

	if len(failures) == 0 {
		if err := a.store.CASConnectionState(ctx, connectionID, statemachine.AxisLifecycle,
			statemachine.LifecycleTerminating, statemachine.LifecycleTerminated); err != nil {
			return nil, newInternalServerError("advancing connection %s to TERMINATED: %v", connectionID, err)
		}
		conn.LifecycleState = statemachine.LifecycleTerminated
		util.WithConnection(connectionID).Info("aggregator: connection terminated")
		return conn, nil
	}

	// Per spec.md Testable Property 5, Terminate is still the last word
	// even when some legs refuse: the parent lands at TERMINATED_FAILED so
	// no caller can mistake this connection for one still retryable through
	// Provision/Release, and a repeat Terminate call will hit the
	// already-terminal branch above instead of re-attempting the legs that
	// already tore down cleanly.
	if err := a.store.CASConnectionState(ctx, connectionID, statemachine.AxisLifecycle,
		statemachine.LifecycleTerminating, statemachine.LifecycleTerminatedFailed); err != nil {
		util.WithConnection(connectionID).WithError(err).Warn("aggregator: could not mark TERMINATED_FAILED")
	}
	return nil, newTerminateError(connectionID, len(subs), failures)
}

// advanceSubToTerminal walks a leg's lifecycle axis from wherever it
// currently sits to target (LifecycleTerminated or LifecycleTerminatedFailed),
// taking the two-step LifecycleCreated->LifecycleTerminating->target hop
// when the leg was ever actually held, or a direct single-step
// current->target CAS otherwise (the lifecycle table allows that single
// step only toward TERMINATED_FAILED; the store's CAS checks just the
// current value). A CAS failure here is logged, not fatal: the leg's own
// reservation/provision axes already carry the authoritative record of what
// happened to it.
func (a *Aggregator) advanceSubToTerminal(ctx context.Context, connectionID string, sub *store.SubConnection, target statemachine.State) {
	from := sub.LifecycleState
	if from == statemachine.LifecycleCreated {
		if err := a.store.CASSubConnectionState(ctx, connectionID, sub.OrderID, statemachine.AxisLifecycle,
			statemachine.LifecycleCreated, statemachine.LifecycleTerminating); err != nil {
			util.WithConnection(connectionID).WithField("leg", sub.OrderID).WithError(err).
				Warn("aggregator: could not advance leg to TERMINATING")
			return
		}
		from = statemachine.LifecycleTerminating
	}
	if err := a.store.CASSubConnectionState(ctx, connectionID, sub.OrderID, statemachine.AxisLifecycle,
		from, target); err != nil {
		util.WithConnection(connectionID).WithField("leg", sub.OrderID).WithError(err).
			Warn("aggregator: could not mark leg terminal")
	}
}
