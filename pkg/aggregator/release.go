package aggregator

import (
	"context"

	"github.com/aggnsa/aggnsa/pkg/auth"
	"github.com/aggnsa/aggnsa/pkg/registry"
	"github.com/aggnsa/aggnsa/pkg/statemachine"
	"github.com/aggnsa/aggnsa/pkg/store"
	"github.com/aggnsa/aggnsa/pkg/util"
)

// Release tears the data plane back down, the mirror image of Provision
// (spec.md §4.4 Release). A leg that fails to release is left PROVISIONED;
// the caller gets a *ReleaseError and can retry, and a retry skips the legs
// an earlier attempt already moved to SCHEDULED.
func (a *Aggregator) Release(ctx context.Context, connectionID, requesterIdentity string) (*store.ServiceConnection, error) {
	conn, err := a.store.GetConnection(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if err := a.authChecker.CheckIdentity(requesterIdentity, auth.PermRelease,
		auth.NewContext().WithNetwork(conn.Source.Network).WithConnectionID(connectionID)); err != nil {
		return nil, err
	}
	if conn.ProvisionState != statemachine.ProvisionProvisioned {
		return nil, newInternalServerError("connection %s is not PROVISIONED (is %s)", connectionID, conn.ProvisionState)
	}

	subs, err := a.store.ListSubConnections(ctx, connectionID)
	if err != nil {
		return nil, newInternalServerError("loading legs of connection %s: %v", connectionID, err)
	}

	if err := a.store.CASConnectionState(ctx, connectionID, statemachine.AxisProvision,
		statemachine.ProvisionProvisioned, statemachine.ProvisionReleasing); err != nil {
		return nil, newInternalServerError("advancing connection %s to RELEASING: %v", connectionID, err)
	}
	var pending []*store.SubConnection
	for _, sub := range subs {
		if sub.ProvisionState == statemachine.ProvisionScheduled {
			continue // already released by an earlier, partly failed Release
		}
		if err := a.store.CASSubConnectionState(ctx, connectionID, sub.OrderID, statemachine.AxisProvision,
			statemachine.ProvisionProvisioned, statemachine.ProvisionReleasing); err != nil {
			return nil, newInternalServerError("advancing leg %d to RELEASING: %v", sub.OrderID, err)
		}
		pending = append(pending, sub)
	}

	outcomes := a.fanout(ctx, registry.EventRelease, pending, func(sub *store.SubConnection) registry.Request {
		return registry.Request{
			RequesterIdentity: requesterIdentity,
			ProviderIdentity:  sub.ProviderNSA,
			ConnectionID:      sub.ConnectionID,
			OrderID:           sub.OrderID,
		}
	})

	failures := failuresOf(outcomes)
	for _, o := range outcomes {
		if o.Err != nil {
			continue
		}
		if err := a.store.CASSubConnectionState(ctx, connectionID, o.Sub.OrderID, statemachine.AxisProvision,
			statemachine.ProvisionReleasing, statemachine.ProvisionScheduled); err != nil {
			util.WithConnection(connectionID).WithField("leg", o.Sub.OrderID).WithError(err).
				Warn("aggregator: could not mark leg SCHEDULED after release")
		}
	}

	if len(failures) == 0 {
		if err := a.store.CASConnectionState(ctx, connectionID, statemachine.AxisProvision,
			statemachine.ProvisionReleasing, statemachine.ProvisionScheduled); err != nil {
			return nil, newInternalServerError("advancing connection %s to SCHEDULED: %v", connectionID, err)
		}
		conn.ProvisionState = statemachine.ProvisionScheduled
		a.scheduler.CancelEnd(connectionID)
		util.WithConnection(connectionID).Info("aggregator: connection released")
		return conn, nil
	}

	if err := a.store.CASConnectionState(ctx, connectionID, statemachine.AxisProvision,
		statemachine.ProvisionReleasing, statemachine.ProvisionProvisioned); err != nil {
		util.WithConnection(connectionID).WithError(err).Warn("aggregator: could not revert connection to PROVISIONED")
	}
	for _, o := range outcomes {
		if o.Err == nil {
			continue
		}
		if err := a.store.CASSubConnectionState(ctx, connectionID, o.Sub.OrderID, statemachine.AxisProvision,
			statemachine.ProvisionReleasing, statemachine.ProvisionProvisioned); err != nil {
			util.WithConnection(connectionID).WithField("leg", o.Sub.OrderID).WithError(err).
				Warn("aggregator: could not revert leg to PROVISIONED")
		}
	}
	return nil, newReleaseError(connectionID, len(pending), failures)
}
