package aggregator

import (
	"context"

	"github.com/aggnsa/aggnsa/pkg/auth"
	"github.com/aggnsa/aggnsa/pkg/registry"
	"github.com/aggnsa/aggnsa/pkg/statemachine"
	"github.com/aggnsa/aggnsa/pkg/store"
	"github.com/aggnsa/aggnsa/pkg/util"
)

// Provision moves a committed reservation's data plane up (spec.md §4.4
// Provision). Unlike Reserve/ReserveCommit, a partial failure here is fully
// reversible: nothing has been torn down irrevocably, so a failed leg's
// successful siblings are released back to SCHEDULED and the whole
// operation is safe to retry.
func (a *Aggregator) Provision(ctx context.Context, connectionID, requesterIdentity string) (*store.ServiceConnection, error) {
	conn, err := a.store.GetConnection(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if err := a.authChecker.CheckIdentity(requesterIdentity, auth.PermProvision,
		auth.NewContext().WithNetwork(conn.Source.Network).WithConnectionID(connectionID)); err != nil {
		return nil, err
	}
	if conn.LifecycleState == statemachine.LifecycleTerminated || conn.LifecycleState == statemachine.LifecycleTerminatedFailed {
		return nil, util.NewConnectionGoneError(connectionID)
	}
	if conn.ReservationState != statemachine.ReservationReserved {
		return nil, newInternalServerError("connection %s is not RESERVED (is %s)", connectionID, conn.ReservationState)
	}

	subs, err := a.store.ListSubConnections(ctx, connectionID)
	if err != nil {
		return nil, newInternalServerError("loading legs of connection %s: %v", connectionID, err)
	}

	if err := a.store.CASConnectionState(ctx, connectionID, statemachine.AxisProvision,
		statemachine.ProvisionScheduled, statemachine.ProvisionProvisioning); err != nil {
		return nil, newInternalServerError("advancing connection %s to PROVISIONING: %v", connectionID, err)
	}
	for _, sub := range subs {
		if err := a.store.CASSubConnectionState(ctx, connectionID, sub.OrderID, statemachine.AxisProvision,
			statemachine.ProvisionScheduled, statemachine.ProvisionProvisioning); err != nil {
			return nil, newInternalServerError("advancing leg %d to PROVISIONING: %v", sub.OrderID, err)
		}
		sub.ProvisionState = statemachine.ProvisionProvisioning
	}

	outcomes := a.fanout(ctx, registry.EventProvision, subs, func(sub *store.SubConnection) registry.Request {
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
	if len(failures) == 0 {
		for _, sub := range subs {
			if err := a.store.CASSubConnectionState(ctx, connectionID, sub.OrderID, statemachine.AxisProvision,
				statemachine.ProvisionProvisioning, statemachine.ProvisionProvisioned); err != nil {
				util.WithConnection(connectionID).WithField("leg", sub.OrderID).WithError(err).
					Warn("aggregator: could not mark leg PROVISIONED")
			}
		}
		if err := a.store.CASConnectionState(ctx, connectionID, statemachine.AxisProvision,
			statemachine.ProvisionProvisioning, statemachine.ProvisionProvisioned); err != nil {
			return nil, newInternalServerError("advancing connection %s to PROVISIONED: %v", connectionID, err)
		}
		conn.ProvisionState = statemachine.ProvisionProvisioned
		util.WithConnection(connectionID).Info("aggregator: connection provisioned")
		return conn, nil
	}

	a.unwindProvision(ctx, connectionID, outcomes, subs)

	if err := a.store.CASConnectionState(ctx, connectionID, statemachine.AxisProvision,
		statemachine.ProvisionProvisioning, statemachine.ProvisionScheduled); err != nil {
		util.WithConnection(connectionID).WithError(err).Warn("aggregator: could not revert connection to SCHEDULED")
	}
	return nil, newProvisionError(connectionID, len(subs), failures)
}

// unwindProvision releases every leg that did provision successfully, since
// a half-provisioned path is not a state Provision promises to leave behind
// on failure (spec.md §4.4's Provision/Release symmetry).
func (a *Aggregator) unwindProvision(ctx context.Context, connectionID string, outcomes []legOutcome, subs []*store.SubConnection) {
	var toRelease []*store.SubConnection
	for _, o := range outcomes {
		if o.Err == nil {
			toRelease = append(toRelease, o.Sub)
		}
	}

	a.fanout(ctx, registry.EventRelease, toRelease, func(sub *store.SubConnection) registry.Request {
		return registry.Request{ProviderIdentity: sub.ProviderNSA, ConnectionID: sub.ConnectionID, OrderID: sub.OrderID}
	})
	for _, sub := range subs {
		if err := a.store.CASSubConnectionState(ctx, connectionID, sub.OrderID, statemachine.AxisProvision,
			statemachine.ProvisionProvisioning, statemachine.ProvisionScheduled); err != nil {
			util.WithConnection(connectionID).WithField("leg", sub.OrderID).WithError(err).
				Warn("aggregator: could not revert leg to SCHEDULED after unwind")
		}
	}
}
