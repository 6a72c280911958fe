// Package auth provides requester-identity permission checks: which
// requester identities may invoke which operations against which networks.
package auth

// Permission names an action a requester identity may or may not be
// allowed to perform.
type Permission string

// Standard permissions, one per inbound operation plus a read-only query.
const (
	PermReserve       Permission = "reserve"
	PermReserveCommit Permission = "reserve_commit"
	PermProvision     Permission = "provision"
	PermRelease       Permission = "release"
	PermTerminate     Permission = "terminate"
	PermQuery         Permission = "query"

	PermAll Permission = "all" // superuser / network wildcard - allows everything
)

// IsReadOnly reports whether a permission only inspects state.
func (p Permission) IsReadOnly() bool {
	return p == PermQuery
}

// Context carries the resource a permission check is scoped to: the
// network the request targets, and optionally the connection already in
// play (for Provision/Release/Terminate against an existing reservation).
type Context struct {
	Network      string
	ConnectionID string
}

// NewContext creates an empty permission context.
func NewContext() *Context {
	return &Context{}
}

// WithNetwork sets the network context.
func (c *Context) WithNetwork(network string) *Context {
	c.Network = network
	return c
}

// WithConnectionID sets the connection context.
func (c *Context) WithConnectionID(connectionID string) *Context {
	c.ConnectionID = connectionID
	return c
}

// Policy is the permission configuration loaded from settings: superuser
// identities, named identity groups, and permission-to-group grants, both
// global and per-network (a network's grants override the global ones for
// requests scoped to that network; a permission the network does not name,
// directly or via "all", falls back to the global table).
type Policy struct {
	SuperUsers         []string
	IdentityGroups     map[string][]string
	Permissions        map[string][]string
	NetworkPermissions map[string]map[string][]string
}
