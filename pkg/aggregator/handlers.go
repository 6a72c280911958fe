package aggregator

import (
	"context"

	"github.com/aggnsa/aggnsa/pkg/registry"
	"github.com/aggnsa/aggnsa/pkg/store"
)

// RegisterOn installs the Aggregator's six operations as the
// registry.LocalityAggregator handlers: the inbound endpoint both
// cmd/aggnsad's peer.Server (calls arriving from a peer's own aggregator,
// for the legs this domain provides) and cmd/aggnsa's peer.Client (an
// operator's own CLI talking to its local daemon) dispatch into. Request's
// OrderID is not meaningful at this locality — every field it carries maps
// onto the connection as a whole — so it is simply ignored here.
func (a *Aggregator) RegisterOn(reg *registry.Registry) {
	reg.Register(registry.EventReserve, registry.LocalityAggregator, a.handleReserve)
	reg.Register(registry.EventReserveCommit, registry.LocalityAggregator, a.handleReserveCommit)
	reg.Register(registry.EventProvision, registry.LocalityAggregator, a.handleProvision)
	reg.Register(registry.EventRelease, registry.LocalityAggregator, a.handleRelease)
	reg.Register(registry.EventTerminate, registry.LocalityAggregator, a.handleTerminate)
	reg.Register(registry.EventQuery, registry.LocalityAggregator, a.handleQuery)
}

func (a *Aggregator) handleReserve(ctx context.Context, req registry.Request) (registry.Response, error) {
	conn, err := a.Reserve(ctx, ReserveParams{
		ConnectionID:        req.ConnectionID,
		RequesterIdentity:   req.RequesterIdentity,
		GlobalReservationID: req.GlobalReservationID,
		Description:         req.Description,
		Source:              req.Source,
		Dest:                req.Dest,
		StartTime:           req.StartTime,
		EndTime:             req.EndTime,
		Bandwidth:           req.Bandwidth,
	})
	if err != nil {
		return registry.Response{}, err
	}
	return connResponse(conn), nil
}

func (a *Aggregator) handleReserveCommit(ctx context.Context, req registry.Request) (registry.Response, error) {
	conn, err := a.ReserveCommit(ctx, req.ConnectionID, req.RequesterIdentity)
	if err != nil {
		return registry.Response{}, err
	}
	return connResponse(conn), nil
}

func (a *Aggregator) handleProvision(ctx context.Context, req registry.Request) (registry.Response, error) {
	conn, err := a.Provision(ctx, req.ConnectionID, req.RequesterIdentity)
	if err != nil {
		return registry.Response{}, err
	}
	return connResponse(conn), nil
}

func (a *Aggregator) handleRelease(ctx context.Context, req registry.Request) (registry.Response, error) {
	conn, err := a.Release(ctx, req.ConnectionID, req.RequesterIdentity)
	if err != nil {
		return registry.Response{}, err
	}
	return connResponse(conn), nil
}

func (a *Aggregator) handleTerminate(ctx context.Context, req registry.Request) (registry.Response, error) {
	conn, err := a.Terminate(ctx, req.ConnectionID, req.RequesterIdentity)
	if err != nil {
		return registry.Response{}, err
	}
	return connResponse(conn), nil
}

func (a *Aggregator) handleQuery(ctx context.Context, req registry.Request) (registry.Response, error) {
	conn, _, err := a.Query(ctx, req.ConnectionID, req.RequesterIdentity)
	if err != nil {
		return registry.Response{}, err
	}
	return connResponse(conn), nil
}

func connResponse(conn *store.ServiceConnection) registry.Response {
	return registry.Response{
		ConnectionID:        conn.ConnectionID,
		GlobalReservationID: conn.GlobalReservationID,
		Description:         conn.Description,
	}
}
