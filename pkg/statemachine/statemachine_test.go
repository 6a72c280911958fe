package statemachine

import (
	"errors"
	"testing"
)

func TestReservationMove_LegalPath(t *testing.T) {
	steps := []struct{ from, to State }{
		{ReservationInitial, ReservationChecking},
		{ReservationChecking, ReservationHeld},
		{ReservationHeld, ReservationCommitting},
		{ReservationCommitting, ReservationReserved},
	}
	for _, s := range steps {
		got, err := ReservationMove(s.from, s.to)
		if err != nil {
			t.Fatalf("ReservationMove(%s, %s): %v", s.from, s.to, err)
		}
		if got != s.to {
			t.Fatalf("ReservationMove(%s, %s) = %s, want %s", s.from, s.to, got, s.to)
		}
	}
}

func TestReservationMove_AnyNonTerminalCanFail(t *testing.T) {
	for _, from := range []State{ReservationInitial, ReservationChecking, ReservationHeld, ReservationCommitting} {
		if _, err := ReservationMove(from, ReservationFailed); err != nil {
			t.Fatalf("ReservationMove(%s, RESERVE_FAILED): %v", from, err)
		}
	}
}

func TestReservationMove_TerminalStatesAreAbsorbing(t *testing.T) {
	for _, from := range []State{ReservationReserved, ReservationFailed} {
		if _, err := ReservationMove(from, ReservationChecking); err == nil {
			t.Fatalf("expected error moving out of terminal state %s", from)
		}
	}
}

func TestReservationMove_IllegalSkipRejected(t *testing.T) {
	_, err := ReservationMove(ReservationInitial, ReservationReserved)
	if err == nil {
		t.Fatal("expected error skipping straight to RESERVED")
	}
	var terr *StateTransitionError
	if !errors.As(err, &terr) {
		t.Fatalf("expected *StateTransitionError, got %T", err)
	}
	if terr.Axis != AxisReservation {
		t.Fatalf("expected reservation axis in error, got %s", terr.Axis)
	}
	if !errors.Is(err, ErrStateTransition) {
		t.Fatal("expected errors.Is to match ErrStateTransition")
	}
}

func TestProvisionMove_CycleAndRevert(t *testing.T) {
	if _, err := ProvisionMove(ProvisionScheduled, ProvisionProvisioning); err != nil {
		t.Fatalf("Scheduled->Provisioning: %v", err)
	}
	if _, err := ProvisionMove(ProvisionProvisioning, ProvisionScheduled); err != nil {
		t.Fatalf("Provisioning->Scheduled (revert): %v", err)
	}
	if _, err := ProvisionMove(ProvisionProvisioning, ProvisionProvisioned); err != nil {
		t.Fatalf("Provisioning->Provisioned: %v", err)
	}
	if _, err := ProvisionMove(ProvisionProvisioned, ProvisionReleasing); err != nil {
		t.Fatalf("Provisioned->Releasing: %v", err)
	}
	if _, err := ProvisionMove(ProvisionReleasing, ProvisionScheduled); err != nil {
		t.Fatalf("Releasing->Scheduled: %v", err)
	}
}

func TestProvisionMove_CannotSkipProvisioning(t *testing.T) {
	if _, err := ProvisionMove(ProvisionScheduled, ProvisionProvisioned); err == nil {
		t.Fatal("expected error skipping PROVISIONING")
	}
}

func TestActivationMove_CycleAndRevert(t *testing.T) {
	if _, err := ActivationMove(ActivationInactive, ActivationActivating); err != nil {
		t.Fatalf("Inactive->Activating: %v", err)
	}
	if _, err := ActivationMove(ActivationActivating, ActivationInactive); err != nil {
		t.Fatalf("Activating->Inactive (revert): %v", err)
	}
	if _, err := ActivationMove(ActivationActivating, ActivationActive); err != nil {
		t.Fatalf("Activating->Active: %v", err)
	}
	if _, err := ActivationMove(ActivationActive, ActivationDeactivating); err != nil {
		t.Fatalf("Active->Deactivating: %v", err)
	}
	if _, err := ActivationMove(ActivationDeactivating, ActivationInactive); err != nil {
		t.Fatalf("Deactivating->Inactive: %v", err)
	}
}

func TestActivationMove_CannotJumpDirectly(t *testing.T) {
	if _, err := ActivationMove(ActivationInactive, ActivationActive); err == nil {
		t.Fatal("expected error jumping Inactive->Active directly")
	}
}

func TestLifecycleMove_LegalPath(t *testing.T) {
	if _, err := LifecycleMove(LifecycleInitial, LifecycleCreated); err != nil {
		t.Fatalf("Initial->Created: %v", err)
	}
	if _, err := LifecycleMove(LifecycleCreated, LifecycleTerminating); err != nil {
		t.Fatalf("Created->Terminating: %v", err)
	}
	if _, err := LifecycleMove(LifecycleTerminating, LifecycleTerminated); err != nil {
		t.Fatalf("Terminating->Terminated: %v", err)
	}
}

func TestLifecycleMove_AnyNonTerminalCanFail(t *testing.T) {
	for _, from := range []State{LifecycleInitial, LifecycleCreated, LifecycleTerminating} {
		if _, err := LifecycleMove(from, LifecycleTerminatedFailed); err != nil {
			t.Fatalf("LifecycleMove(%s, TERMINATED_FAILED): %v", from, err)
		}
	}
}

func TestLifecycleMove_TerminalStatesAbsorbing(t *testing.T) {
	for _, from := range []State{LifecycleTerminated, LifecycleTerminatedFailed} {
		if _, err := LifecycleMove(from, LifecycleCreated); err == nil {
			t.Fatalf("expected error moving out of terminal state %s", from)
		}
		if !IsTerminal(from) {
			t.Fatalf("expected IsTerminal(%s) to be true", from)
		}
	}
}

func TestIsTerminal_NonTerminalStates(t *testing.T) {
	for _, s := range []State{LifecycleInitial, LifecycleCreated, LifecycleTerminating} {
		if IsTerminal(s) {
			t.Fatalf("expected IsTerminal(%s) to be false", s)
		}
	}
}
