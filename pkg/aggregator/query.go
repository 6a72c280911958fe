package aggregator

import (
	"context"

	"github.com/aggnsa/aggnsa/pkg/auth"
	"github.com/aggnsa/aggnsa/pkg/store"
)

// Query is the read-only inspection path (spec.md §4.4 Query): no state
// transition, no fan-out, just the persisted record and its legs.
func (a *Aggregator) Query(ctx context.Context, connectionID, requesterIdentity string) (*store.ServiceConnection, []*store.SubConnection, error) {
	conn, err := a.store.GetConnection(ctx, connectionID)
	if err != nil {
		return nil, nil, err
	}
	if err := a.authChecker.CheckIdentity(requesterIdentity, auth.PermQuery,
		auth.NewContext().WithNetwork(conn.Source.Network).WithConnectionID(connectionID)); err != nil {
		return nil, nil, err
	}
	subs, err := a.store.ListSubConnections(ctx, connectionID)
	if err != nil {
		return nil, nil, newInternalServerError("loading legs of connection %s: %v", connectionID, err)
	}
	return conn, subs, nil
}
