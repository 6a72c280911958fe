package aggregator

import (
	"context"

	"github.com/aggnsa/aggnsa/pkg/auth"
	"github.com/aggnsa/aggnsa/pkg/registry"
	"github.com/aggnsa/aggnsa/pkg/statemachine"
	"github.com/aggnsa/aggnsa/pkg/store"
	"github.com/aggnsa/aggnsa/pkg/util"
)

// ReserveCommit finalizes a held reservation (spec.md §4.4's second phase).
// Unlike Reserve, a partial failure here does not unwind the successful
// legs: they already hold capacity and rolling them back would contradict
// RESERVE_HELD's meaning for a leg whose provider did in fact commit. The
// parent's reservation axis instead moves straight to RESERVE_FAILED, and
// the caller's only way forward is Terminate. ReserveCommit does not update
// the leg records, so every leg stays at RESERVE_HELD whether or not its
// provider committed.
func (a *Aggregator) ReserveCommit(ctx context.Context, connectionID, requesterIdentity string) (*store.ServiceConnection, error) {
	conn, err := a.store.GetConnection(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if err := a.authChecker.CheckIdentity(requesterIdentity, auth.PermReserveCommit,
		auth.NewContext().WithNetwork(conn.Source.Network).WithConnectionID(connectionID)); err != nil {
		return nil, err
	}
	if conn.LifecycleState == statemachine.LifecycleTerminated {
		return nil, util.NewConnectionGoneError(connectionID)
	}
	if conn.ReservationState != statemachine.ReservationHeld {
		return nil, newInternalServerError("connection %s is not RESERVE_HELD (is %s)", connectionID, conn.ReservationState)
	}

	subs, err := a.store.ListSubConnections(ctx, connectionID)
	if err != nil {
		return nil, newInternalServerError("loading legs of connection %s: %v", connectionID, err)
	}

	if err := a.store.CASConnectionState(ctx, connectionID, statemachine.AxisReservation,
		statemachine.ReservationHeld, statemachine.ReservationCommitting); err != nil {
		return nil, newInternalServerError("advancing connection %s to RESERVE_COMMITTING: %v", connectionID, err)
	}

	outcomes := a.fanout(ctx, registry.EventReserveCommit, subs, func(sub *store.SubConnection) registry.Request {
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
		if err := a.store.CASConnectionState(ctx, connectionID, statemachine.AxisReservation,
			statemachine.ReservationCommitting, statemachine.ReservationReserved); err != nil {
			return nil, newInternalServerError("advancing connection %s to RESERVED: %v", connectionID, err)
		}
		if _, err := a.store.BumpRevision(ctx, connectionID); err != nil {
			util.WithConnection(connectionID).WithError(err).Warn("aggregator: revision bump failed after commit")
		}
		conn.ReservationState = statemachine.ReservationReserved
		util.WithConnection(connectionID).Info("aggregator: reservation committed")
		return conn, nil
	}

	if err := a.store.CASConnectionState(ctx, connectionID, statemachine.AxisReservation,
		statemachine.ReservationCommitting, statemachine.ReservationFailed); err != nil {
		util.WithConnection(connectionID).WithError(err).Warn("aggregator: could not mark RESERVE_FAILED after commit failure")
	}
	return nil, newInternalServerError("%s", formatAggregateError("reserve_commit", len(subs), failures))
}
