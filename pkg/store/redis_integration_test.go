//go:build integration

package store

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aggnsa/aggnsa/internal/testutil"
	"github.com/aggnsa/aggnsa/pkg/statemachine"
	"github.com/aggnsa/aggnsa/pkg/topology"
)

func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	testutil.RequireRedis(t)
	testutil.FlushAll(t)
	client := testutil.RedisClient(t, 0)
	return NewRedisStore(client)
}

func TestRedisStore_CreateAndGetConnection(t *testing.T) {
	s := newTestRedisStore(t)
	ctx := testutil.Context(t)

	conn := &ServiceConnection{
		ConnectionID:        "r1234567890a",
		GlobalReservationID: "urn:ogf:network:nsa:agg:resv:1",
		RequesterIdentity:   "alice",
		ReserveTime:         time.Now().Truncate(time.Second),
		ReservationState:    statemachine.ReservationInitial,
		ProvisionState:      statemachine.ProvisionScheduled,
		ActivationState:     statemachine.ActivationInactive,
		LifecycleState:      statemachine.LifecycleInitial,
		Source:              topology.STP{Network: "netA", Port: "p1", Labels: []string{"100"}},
		Dest:                topology.STP{Network: "netB", Port: "p2", Labels: []string{"100"}},
		Bandwidth:           5000,
	}

	if err := s.CreateConnection(ctx, conn); err != nil {
		t.Fatalf("CreateConnection() error = %v", err)
	}

	got, err := s.GetConnection(ctx, conn.ConnectionID)
	if err != nil {
		t.Fatalf("GetConnection() error = %v", err)
	}
	if got.RequesterIdentity != "alice" {
		t.Errorf("RequesterIdentity = %q, want alice", got.RequesterIdentity)
	}
	if got.Bandwidth != 5000 {
		t.Errorf("Bandwidth = %d, want 5000", got.Bandwidth)
	}
	if len(got.Source.Labels) != 1 || got.Source.Labels[0] != "100" {
		t.Errorf("Source.Labels = %v, want [100]", got.Source.Labels)
	}
	if !got.ReserveTime.Equal(conn.ReserveTime) {
		t.Errorf("ReserveTime = %v, want %v", got.ReserveTime, conn.ReserveTime)
	}
}

func TestRedisStore_CreateConnection_IDCollision(t *testing.T) {
	s := newTestRedisStore(t)
	ctx := testutil.Context(t)

	conn := &ServiceConnection{ConnectionID: "collideme00aa"}
	if err := s.CreateConnection(ctx, conn); err != nil {
		t.Fatalf("first CreateConnection() error = %v", err)
	}

	err := s.CreateConnection(ctx, conn)
	if err == nil {
		t.Fatal("expected error on duplicate connection id")
	}
}

func TestRedisStore_GetConnection_NotFound(t *testing.T) {
	s := newTestRedisStore(t)
	ctx := testutil.Context(t)

	_, err := s.GetConnection(ctx, "nosuchconn00")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRedisStore_BumpRevision(t *testing.T) {
	s := newTestRedisStore(t)
	ctx := testutil.Context(t)

	conn := &ServiceConnection{ConnectionID: "revbump0000a"}
	s.CreateConnection(ctx, conn)

	rev, err := s.BumpRevision(ctx, conn.ConnectionID)
	if err != nil {
		t.Fatalf("BumpRevision() error = %v", err)
	}
	if rev != 1 {
		t.Errorf("revision = %d, want 1", rev)
	}

	got, _ := s.GetConnection(ctx, conn.ConnectionID)
	if got.Revision != 1 {
		t.Errorf("persisted revision = %d, want 1", got.Revision)
	}
}

func TestRedisStore_CASConnectionState(t *testing.T) {
	s := newTestRedisStore(t)
	ctx := testutil.Context(t)

	conn := &ServiceConnection{
		ConnectionID:     "casconn0000a",
		ReservationState: statemachine.ReservationInitial,
	}
	s.CreateConnection(ctx, conn)

	// Success.
	if err := s.CASConnectionState(ctx, conn.ConnectionID, statemachine.AxisReservation,
		statemachine.ReservationInitial, statemachine.ReservationChecking); err != nil {
		t.Fatalf("CASConnectionState() success case error = %v", err)
	}
	got, _ := s.GetConnection(ctx, conn.ConnectionID)
	if got.ReservationState != statemachine.ReservationChecking {
		t.Errorf("ReservationState = %q, want RESERVE_CHECKING", got.ReservationState)
	}

	// Stale "from" now produces a conflict.
	err := s.CASConnectionState(ctx, conn.ConnectionID, statemachine.AxisReservation,
		statemachine.ReservationInitial, statemachine.ReservationHeld)
	var casErr *CASConflictError
	if !errors.As(err, &casErr) {
		t.Fatalf("expected *CASConflictError, got %T (%v)", err, err)
	}
	if casErr.Actual != string(statemachine.ReservationChecking) {
		t.Errorf("Actual = %q, want RESERVE_CHECKING", casErr.Actual)
	}

	// Unknown connection.
	err = s.CASConnectionState(ctx, "ghost00000aa", statemachine.AxisReservation,
		statemachine.ReservationInitial, statemachine.ReservationChecking)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown connection, got %v", err)
	}
}

func TestRedisStore_CASConnectionState_ConcurrentRaceExactlyOneWins(t *testing.T) {
	s := newTestRedisStore(t)
	ctx := testutil.Context(t)

	conn := &ServiceConnection{
		ConnectionID:     "casrace0000a",
		ReservationState: statemachine.ReservationInitial,
	}
	s.CreateConnection(ctx, conn)

	const n = 10
	var wg sync.WaitGroup
	results := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = s.CASConnectionState(ctx, conn.ConnectionID, statemachine.AxisReservation,
				statemachine.ReservationInitial, statemachine.ReservationChecking)
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range results {
		if err == nil {
			successes++
		}
	}
	if successes != 1 {
		t.Errorf("expected exactly 1 success among %d concurrent CAS attempts via the Lua script, got %d", n, successes)
	}
}

func TestRedisStore_SubConnectionLifecycle(t *testing.T) {
	s := newTestRedisStore(t)
	ctx := testutil.Context(t)

	parentID := "subparent000"
	s.CreateConnection(ctx, &ServiceConnection{ConnectionID: parentID})

	leg1 := &SubConnection{
		ParentID: parentID, OrderID: 1, ProviderNSA: "urn:ogf:network:nsa:peerB",
		ReservationState: statemachine.ReservationInitial,
		Source:           topology.STP{Network: "netB", Port: "p1"},
		Dest:             topology.STP{Network: "netC", Port: "p2"},
	}
	leg0 := &SubConnection{
		ParentID: parentID, OrderID: 0, ProviderNSA: "urn:ogf:network:nsa:peerA",
		ReservationState: statemachine.ReservationInitial,
		Source:           topology.STP{Network: "netA", Port: "p1"},
		Dest:             topology.STP{Network: "netB", Port: "p2"},
	}
	// Insert out of order to verify the order list, not map iteration, governs ListSubConnections.
	if err := s.CreateSubConnection(ctx, leg1); err != nil {
		t.Fatalf("CreateSubConnection(leg1) error = %v", err)
	}
	if err := s.CreateSubConnection(ctx, leg0); err != nil {
		t.Fatalf("CreateSubConnection(leg0) error = %v", err)
	}

	legs, err := s.ListSubConnections(ctx, parentID)
	if err != nil {
		t.Fatalf("ListSubConnections() error = %v", err)
	}
	if len(legs) != 2 {
		t.Fatalf("len(legs) = %d, want 2", len(legs))
	}
	// RPush preserves insertion order (leg1, then leg0) regardless of OrderID value.
	if legs[0].OrderID != 1 || legs[1].OrderID != 0 {
		t.Errorf("legs in insertion order = %d, %d; want 1, 0", legs[0].OrderID, legs[1].OrderID)
	}

	got, err := s.GetSubConnection(ctx, parentID, 0)
	if err != nil {
		t.Fatalf("GetSubConnection() error = %v", err)
	}
	if got.ProviderNSA != "urn:ogf:network:nsa:peerA" {
		t.Errorf("ProviderNSA = %q", got.ProviderNSA)
	}

	if err := s.CASSubConnectionState(ctx, parentID, 0, statemachine.AxisReservation,
		statemachine.ReservationInitial, statemachine.ReservationHeld); err != nil {
		t.Fatalf("CASSubConnectionState() error = %v", err)
	}
	got, _ = s.GetSubConnection(ctx, parentID, 0)
	if got.ReservationState != statemachine.ReservationHeld {
		t.Errorf("ReservationState = %q, want RESERVE_HELD", got.ReservationState)
	}

	other, _ := s.GetSubConnection(ctx, parentID, 1)
	if other.ReservationState != statemachine.ReservationInitial {
		t.Errorf("leg 1 ReservationState = %q, want unchanged INITIAL", other.ReservationState)
	}
}

func TestRedisStore_GetSubConnection_NotFound(t *testing.T) {
	s := newTestRedisStore(t)
	ctx := testutil.Context(t)

	_, err := s.GetSubConnection(ctx, "nosuchparent", 0)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRedisStore_ConnectionIDExists(t *testing.T) {
	s := newTestRedisStore(t)
	ctx := testutil.Context(t)

	exists, err := s.ConnectionIDExists(ctx, "idxconn0000a")
	if err != nil {
		t.Fatalf("ConnectionIDExists() error = %v", err)
	}
	if exists {
		t.Error("should not exist before creation")
	}

	s.CreateConnection(ctx, &ServiceConnection{ConnectionID: "idxconn0000a"})

	exists, err = s.ConnectionIDExists(ctx, "idxconn0000a")
	if err != nil {
		t.Fatalf("ConnectionIDExists() error = %v", err)
	}
	if !exists {
		t.Error("should exist after creation")
	}
}
