package auth

import (
	"os/user"

	"github.com/aggnsa/aggnsa/pkg/util"
)

// Checker validates requester-identity permissions against a Policy.
type Checker struct {
	policy          *Policy
	currentIdentity string
}

// NewChecker creates a permission checker bound to policy. The current
// identity defaults to the OS user running the process (meaningful for
// cmd/aggnsa's operator CLI); inbound RPC callers always use CheckIdentity
// with the requester identity carried on the wire.
func NewChecker(policy *Policy) *Checker {
	identity := "unknown"
	if u, err := user.Current(); err == nil {
		identity = u.Username
	}
	return &Checker{policy: policy, currentIdentity: identity}
}

// SetIdentity overrides the current identity (used by tests).
func (c *Checker) SetIdentity(identity string) {
	c.currentIdentity = identity
}

// CurrentIdentity returns the current identity.
func (c *Checker) CurrentIdentity() string {
	return c.currentIdentity
}

// Check verifies the current identity has permission.
func (c *Checker) Check(permission Permission, ctx *Context) error {
	return c.CheckIdentity(c.currentIdentity, permission, ctx)
}

// CheckIdentity verifies a specific requester identity has permission.
func (c *Checker) CheckIdentity(identity string, permission Permission, ctx *Context) error {
	if c.isSuperUser(identity) {
		return nil
	}

	if ctx != nil && ctx.Network != "" {
		if perms, ok := c.policy.NetworkPermissions[ctx.Network]; ok {
			if c.checkPermissionMap(identity, permission, perms) {
				return nil
			}
			_, named := perms[string(permission)]
			_, namedAll := perms[string(PermAll)]
			if named || namedAll {
				return util.NewPermissionError(identity, ctx.Network)
			}
		}
	}

	if c.checkPermissionMap(identity, permission, c.policy.Permissions) {
		return nil
	}

	resource := "the broker"
	if ctx != nil && ctx.Network != "" {
		resource = ctx.Network
	}
	return util.NewPermissionError(identity, resource)
}

// IsSuperUser returns true if the current identity is a superuser.
func (c *Checker) IsSuperUser() bool {
	return c.isSuperUser(c.currentIdentity)
}

func (c *Checker) isSuperUser(identity string) bool {
	for _, su := range c.policy.SuperUsers {
		if su == identity {
			return true
		}
	}
	return false
}

// checkPermissionMap checks whether identity holds the given permission in
// permMap, either directly or via an identity group. "all" is checked
// first as a wildcard grant.
func (c *Checker) checkPermissionMap(identity string, permission Permission, permMap map[string][]string) bool {
	if grantees, ok := permMap["all"]; ok {
		if c.identityGranted(identity, grantees) {
			return true
		}
	}
	grantees, ok := permMap[string(permission)]
	if !ok {
		return false
	}
	return c.identityGranted(identity, grantees)
}

func (c *Checker) identityGranted(identity string, grantees []string) bool {
	for _, g := range grantees {
		if g == identity {
			return true
		}
		for _, member := range c.policy.IdentityGroups[g] {
			if member == identity {
				return true
			}
		}
	}
	return false
}
