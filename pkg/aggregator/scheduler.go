package aggregator

import (
	"context"
	"sync"
	"time"

	"github.com/aggnsa/aggnsa/pkg/statemachine"
	"github.com/aggnsa/aggnsa/pkg/store"
	"github.com/aggnsa/aggnsa/pkg/util"
)

// Scheduler fires a connection's activation-axis and lifecycle-axis
// transitions at its start_time and end_time (spec.md §4.4 "Scheduled
// transitions"). Each connection gets one timer pair; Cancel tears both
// down, CancelEnd tears down only the end-time one, since Release leaves a
// connection re-provisionable before its end_time still arrives.
type Scheduler struct {
	mu     sync.Mutex
	timers map[string]*timerPair

	onStart func(connectionID string)
	onEnd   func(connectionID string)
}

type timerPair struct {
	start *time.Timer
	end   *time.Timer
}

// newScheduler binds callbacks rather than an *Aggregator directly, so it
// can be constructed inside New before the Aggregator it fires back into has
// finished initializing; the method values passed in close over the
// receiver, not its current field values.
func newScheduler(onStart, onEnd func(connectionID string)) *Scheduler {
	return &Scheduler{
		timers:  make(map[string]*timerPair),
		onStart: onStart,
		onEnd:   onEnd,
	}
}

// Schedule arms both timers for conn, replacing any previously scheduled
// pair for the same connection id. A start_time or end_time already in the
// past fires on the next scheduler tick, matching time.AfterFunc's own
// behaviour for a non-positive duration. A zero time.Time arms no timer at
// all for that half (a connection with no end_time runs indefinitely).
func (s *Scheduler) Schedule(conn *store.ServiceConnection) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelLocked(conn.ConnectionID)
	pair := &timerPair{}
	connID := conn.ConnectionID

	if !conn.StartTime.IsZero() {
		pair.start = time.AfterFunc(time.Until(conn.StartTime), func() {
			s.onStart(connID)
		})
	}
	if !conn.EndTime.IsZero() {
		pair.end = time.AfterFunc(time.Until(conn.EndTime), func() {
			s.onEnd(connID)
		})
	}
	s.timers[connID] = pair
}

// CancelEnd stops the pending end-time transition without touching the
// start-time one, as Release requires.
func (s *Scheduler) CancelEnd(connectionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pair, ok := s.timers[connectionID]
	if !ok || pair.end == nil {
		return
	}
	pair.end.Stop()
	pair.end = nil
}

// Cancel stops both pending transitions for a connection. Terminate calls
// this so a connection torn down early never spuriously activates or
// re-terminates later.
func (s *Scheduler) Cancel(connectionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked(connectionID)
}

func (s *Scheduler) cancelLocked(connectionID string) {
	pair, ok := s.timers[connectionID]
	if !ok {
		return
	}
	if pair.start != nil {
		pair.start.Stop()
	}
	if pair.end != nil {
		pair.end.Stop()
	}
	delete(s.timers, connectionID)
}

// activateAtStartTime is the Scheduler's start_time callback: walk the
// activation axis INACTIVE->ACTIVATING->ACTIVE. There is no registry.Event
// for activation — spec.md §4.2 describes it as purely time-driven
// bookkeeping on the parent, not a leg dispatch, so this never touches
// pkg/registry.
func (a *Aggregator) activateAtStartTime(connectionID string) {
	ctx := context.Background()
	if err := a.store.CASConnectionState(ctx, connectionID, statemachine.AxisActivation,
		statemachine.ActivationInactive, statemachine.ActivationActivating); err != nil {
		util.WithConnection(connectionID).WithError(err).Warn("scheduler: could not advance to ACTIVATING")
		return
	}
	if err := a.store.CASConnectionState(ctx, connectionID, statemachine.AxisActivation,
		statemachine.ActivationActivating, statemachine.ActivationActive); err != nil {
		util.WithConnection(connectionID).WithError(err).Warn("scheduler: could not advance to ACTIVE")
		return
	}
	util.WithConnection(connectionID).Info("scheduler: connection activated at start_time")
}

// terminateAtEndTime is the Scheduler's end_time callback: deactivate (best
// effort) and run the full Terminate operation, fanning TERMINATE out to
// every leg exactly as an operator-initiated Terminate would. spec.md §4.4
// describes the lifecycle destination loosely as "TERMINATED_ENDTIME"; since
// pkg/statemachine's lifecycle axis has no state by that name (only
// TERMINATED/TERMINATED_FAILED), an end_time firing is implemented as an
// ordinary system-initiated Terminate call — the distinction spec.md is
// drawing is *why* termination happened, not a different state to land in.
func (a *Aggregator) terminateAtEndTime(connectionID string) {
	ctx := context.Background()
	_ = a.store.CASConnectionState(ctx, connectionID, statemachine.AxisActivation,
		statemachine.ActivationActive, statemachine.ActivationDeactivating)
	_ = a.store.CASConnectionState(ctx, connectionID, statemachine.AxisActivation,
		statemachine.ActivationDeactivating, statemachine.ActivationInactive)

	if _, err := a.Terminate(ctx, connectionID, "scheduler"); err != nil {
		util.WithConnection(connectionID).WithError(err).Error("scheduler: end_time terminate failed")
	} else {
		util.WithConnection(connectionID).Info("scheduler: connection terminated at end_time")
	}
}
