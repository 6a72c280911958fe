package auth

import (
	"errors"
	"testing"

	"github.com/aggnsa/aggnsa/pkg/util"
)

func TestContext_Chaining(t *testing.T) {
	ctx := NewContext().WithNetwork("urn:ogf:network:example.net").WithConnectionID("abc123def456")

	if ctx.Network != "urn:ogf:network:example.net" {
		t.Errorf("Network = %q", ctx.Network)
	}
	if ctx.ConnectionID != "abc123def456" {
		t.Errorf("ConnectionID = %q", ctx.ConnectionID)
	}
}

func testPolicy() *Policy {
	return &Policy{
		SuperUsers: []string{"admin", "root"},
		IdentityGroups: map[string][]string{
			"neteng": {"alice", "bob"},
			"netops": {"charlie", "diana"},
			"viewer": {"eve"},
		},
		Permissions: map[string][]string{
			"all":     {"neteng"},
			"reserve": {"neteng", "netops"},
			"query":   {"neteng", "netops", "viewer"},
		},
		NetworkPermissions: map[string]map[string][]string{
			"urn:ogf:network:customer.net": {
				"reserve": {"netops"}, // more restrictive than global
			},
			"urn:ogf:network:transit.net": {
				"all": {"neteng"}, // only neteng, via network-scoped 'all'
			},
		},
	}
}

func TestChecker_SuperUser(t *testing.T) {
	checker := NewChecker(testPolicy())
	checker.SetIdentity("admin")

	if err := checker.Check(PermReserve, nil); err != nil {
		t.Errorf("superuser should be allowed: %v", err)
	}
	if err := checker.Check(PermTerminate, nil); err != nil {
		t.Errorf("superuser should be allowed: %v", err)
	}
	if !checker.IsSuperUser() {
		t.Error("admin should be superuser")
	}
}

func TestChecker_GlobalPermissions(t *testing.T) {
	checker := NewChecker(testPolicy())

	t.Run("identity in allowed group", func(t *testing.T) {
		checker.SetIdentity("alice")
		if err := checker.Check(PermReserve, nil); err != nil {
			t.Errorf("alice (neteng) should have reserve: %v", err)
		}
	})

	t.Run("identity with 'all' permission", func(t *testing.T) {
		checker.SetIdentity("bob")
		if err := checker.Check(PermTerminate, nil); err != nil {
			t.Errorf("bob (neteng with 'all') should have terminate: %v", err)
		}
	})

	t.Run("identity without permission", func(t *testing.T) {
		checker.SetIdentity("eve")
		if err := checker.Check(PermReserve, nil); err == nil {
			t.Error("eve (viewer) should not have reserve")
		}
	})
}

func TestChecker_NetworkScopedPermissions(t *testing.T) {
	checker := NewChecker(testPolicy())

	t.Run("network override is more restrictive", func(t *testing.T) {
		checker.SetIdentity("alice") // neteng has global reserve, but customer.net restricts to netops
		ctx := NewContext().WithNetwork("urn:ogf:network:customer.net")
		if err := checker.Check(PermReserve, ctx); err == nil {
			t.Error("alice should not have reserve scoped to customer.net")
		}
	})

	t.Run("network override grants to the named group", func(t *testing.T) {
		checker.SetIdentity("charlie") // netops
		ctx := NewContext().WithNetwork("urn:ogf:network:customer.net")
		if err := checker.Check(PermReserve, ctx); err != nil {
			t.Errorf("charlie should have reserve scoped to customer.net: %v", err)
		}
	})

	t.Run("network with 'all' permission", func(t *testing.T) {
		checker.SetIdentity("alice") // neteng
		ctx := NewContext().WithNetwork("urn:ogf:network:transit.net")
		if err := checker.Check(PermTerminate, ctx); err != nil {
			t.Errorf("alice should have any permission via transit.net 'all': %v", err)
		}
	})

	t.Run("no network override falls back to global", func(t *testing.T) {
		checker.SetIdentity("diana") // netops, has global reserve
		ctx := NewContext().WithNetwork("urn:ogf:network:unlisted.net")
		if err := checker.Check(PermReserve, ctx); err != nil {
			t.Errorf("diana should have reserve via global fallback: %v", err)
		}
	})
}

func TestChecker_PermissionError(t *testing.T) {
	checker := NewChecker(testPolicy())
	checker.SetIdentity("eve")

	ctx := NewContext().WithNetwork("urn:ogf:network:customer.net")
	err := checker.Check(PermReserve, ctx)
	if err == nil {
		t.Fatal("expected error")
	}

	var permErr *util.PermissionError
	if !errors.As(err, &permErr) {
		t.Fatalf("expected *util.PermissionError, got %T", err)
	}
	if permErr.RequesterIdentity != "eve" {
		t.Errorf("RequesterIdentity = %q", permErr.RequesterIdentity)
	}
	if permErr.Resource != "urn:ogf:network:customer.net" {
		t.Errorf("Resource = %q", permErr.Resource)
	}
	if !errors.Is(err, util.ErrPermissionDenied) {
		t.Error("should unwrap to ErrPermissionDenied")
	}
}

func TestChecker_CurrentIdentity(t *testing.T) {
	checker := NewChecker(testPolicy())

	if checker.CurrentIdentity() == "" {
		t.Error("CurrentIdentity should not be empty after NewChecker")
	}

	checker.SetIdentity("test-identity")
	if checker.CurrentIdentity() != "test-identity" {
		t.Errorf("CurrentIdentity() = %q, want %q", checker.CurrentIdentity(), "test-identity")
	}
}

func TestChecker_NoPermissionsDefined(t *testing.T) {
	checker := NewChecker(&Policy{})
	checker.SetIdentity("anyone")

	if err := checker.Check(PermReserve, nil); err == nil {
		t.Error("should be denied when no permissions are defined")
	}
}

func TestChecker_DirectIdentityGrant(t *testing.T) {
	checker := NewChecker(&Policy{
		Permissions: map[string][]string{
			"reserve": {"direct-identity"}, // not a group, the identity itself
		},
	})
	checker.SetIdentity("direct-identity")

	if err := checker.Check(PermReserve, nil); err != nil {
		t.Errorf("direct identity grant should work: %v", err)
	}
}
