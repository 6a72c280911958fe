package store

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/aggnsa/aggnsa/pkg/statemachine"
	"github.com/aggnsa/aggnsa/pkg/util"
)

// MemStore is an in-memory Store for unit and end-to-end tests. Not for
// production use: nothing here survives a process restart.
type MemStore struct {
	mu    sync.Mutex
	conns map[string]*ServiceConnection
	subs  map[string]map[int]*SubConnection // parentID -> orderID -> leg
	order map[string][]int                  // parentID -> orderIDs, append order
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		conns: make(map[string]*ServiceConnection),
		subs:  make(map[string]map[int]*SubConnection),
		order: make(map[string][]int),
	}
}

func (s *MemStore) CreateConnection(ctx context.Context, conn *ServiceConnection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.conns[conn.ConnectionID]; exists {
		return util.NewConnectionExistsError(conn.ConnectionID)
	}
	cp := *conn
	s.conns[conn.ConnectionID] = &cp
	return nil
}

func (s *MemStore) GetConnection(ctx context.Context, connectionID string) (*ServiceConnection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conn, ok := s.conns[connectionID]
	if !ok {
		return nil, newNotFoundError("connection", connectionID)
	}
	cp := *conn
	return &cp, nil
}

func (s *MemStore) ConnectionIDExists(ctx context.Context, connectionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.conns[connectionID]
	return ok, nil
}

func (s *MemStore) BumpRevision(ctx context.Context, connectionID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conn, ok := s.conns[connectionID]
	if !ok {
		return 0, newNotFoundError("connection", connectionID)
	}
	conn.Revision++
	return conn.Revision, nil
}

func (s *MemStore) CASConnectionState(ctx context.Context, connectionID string, axis statemachine.Axis, from, to statemachine.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conn, ok := s.conns[connectionID]
	if !ok {
		return newNotFoundError("connection", connectionID)
	}

	current := conn.StateFor(axis)
	if current != from {
		return newCASConflictError(string(axis), string(from), string(current))
	}

	setConnectionAxis(conn, axis, to)
	return nil
}

func (s *MemStore) CreateSubConnection(ctx context.Context, sub *SubConnection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	legs, ok := s.subs[sub.ParentID]
	if !ok {
		legs = make(map[int]*SubConnection)
		s.subs[sub.ParentID] = legs
	}
	cp := *sub
	legs[sub.OrderID] = &cp
	s.order[sub.ParentID] = append(s.order[sub.ParentID], sub.OrderID)
	return nil
}

func (s *MemStore) GetSubConnection(ctx context.Context, parentID string, orderID int) (*SubConnection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	legs, ok := s.subs[parentID]
	if !ok {
		return nil, newNotFoundError("subconnection", subKey(parentID, orderID))
	}
	sub, ok := legs[orderID]
	if !ok {
		return nil, newNotFoundError("subconnection", subKey(parentID, orderID))
	}
	cp := *sub
	return &cp, nil
}

func (s *MemStore) ListSubConnections(ctx context.Context, parentID string) ([]*SubConnection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	legs, ok := s.subs[parentID]
	if !ok {
		return nil, nil
	}
	orderIDs := make([]int, 0, len(legs))
	for id := range legs {
		orderIDs = append(orderIDs, id)
	}
	sort.Ints(orderIDs)

	out := make([]*SubConnection, 0, len(orderIDs))
	for _, id := range orderIDs {
		cp := *legs[id]
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemStore) CASSubConnectionState(ctx context.Context, parentID string, orderID int, axis statemachine.Axis, from, to statemachine.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	legs, ok := s.subs[parentID]
	if !ok {
		return newNotFoundError("subconnection", subKey(parentID, orderID))
	}
	sub, ok := legs[orderID]
	if !ok {
		return newNotFoundError("subconnection", subKey(parentID, orderID))
	}

	current := sub.StateFor(axis)
	if current != from {
		return newCASConflictError(string(axis), string(from), string(current))
	}

	setSubConnectionAxis(sub, axis, to)
	return nil
}

func setConnectionAxis(conn *ServiceConnection, axis statemachine.Axis, to statemachine.State) {
	switch axis {
	case statemachine.AxisReservation:
		conn.ReservationState = to
	case statemachine.AxisProvision:
		conn.ProvisionState = to
	case statemachine.AxisActivation:
		conn.ActivationState = to
	case statemachine.AxisLifecycle:
		conn.LifecycleState = to
	}
}

func setSubConnectionAxis(sub *SubConnection, axis statemachine.Axis, to statemachine.State) {
	switch axis {
	case statemachine.AxisReservation:
		sub.ReservationState = to
	case statemachine.AxisProvision:
		sub.ProvisionState = to
	case statemachine.AxisActivation:
		sub.ActivationState = to
	case statemachine.AxisLifecycle:
		sub.LifecycleState = to
	}
}

func subKey(parentID string, orderID int) string {
	return parentID + ":" + strconv.Itoa(orderID)
}
