package store

import (
	"context"

	"github.com/aggnsa/aggnsa/pkg/statemachine"
)

// Store is the connection persistence layer the Aggregator is the
// exclusive mutator of (spec §3 "Ownership"). Implementations must make
// CASConnectionState/CASSubConnectionState behave as a per-record,
// per-axis lock: of two concurrent callers racing the same (id, axis,
// from, to), exactly one succeeds and the other gets *CASConflictError.
type Store interface {
	// CreateConnection inserts a new ServiceConnection. It fails with
	// *ConnectionExistsError (github.com/aggnsa/aggnsa/pkg/util) if the
	// connection id is already present.
	CreateConnection(ctx context.Context, conn *ServiceConnection) error

	// GetConnection loads a ServiceConnection by id, or *NotFoundError.
	GetConnection(ctx context.Context, connectionID string) (*ServiceConnection, error)

	// ConnectionIDExists reports whether a connection id is already taken,
	// for the collision check on a freshly minted id (spec §4.4 Reserve
	// step 2).
	ConnectionIDExists(ctx context.Context, connectionID string) (bool, error)

	// BumpRevision atomically increments and returns a connection's
	// revision counter (used by ReserveCommit).
	BumpRevision(ctx context.Context, connectionID string) (int, error)

	// CASConnectionState advances one axis of a ServiceConnection from
	// "from" to "to" iff the stored value still equals "from".
	CASConnectionState(ctx context.Context, connectionID string, axis statemachine.Axis, from, to statemachine.State) error

	// CreateSubConnection inserts a leg record, appending its OrderID to
	// the parent's order list.
	CreateSubConnection(ctx context.Context, sub *SubConnection) error

	// GetSubConnection loads one leg by (parentID, orderID).
	GetSubConnection(ctx context.Context, parentID string, orderID int) (*SubConnection, error)

	// ListSubConnections returns every leg of a parent connection, ordered
	// by OrderID ascending.
	ListSubConnections(ctx context.Context, parentID string) ([]*SubConnection, error)

	// CASSubConnectionState advances one axis of a SubConnection, with the
	// same compare-and-set semantics as CASConnectionState.
	CASSubConnectionState(ctx context.Context, parentID string, orderID int, axis statemachine.Axis, from, to statemachine.State) error
}
