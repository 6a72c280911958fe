package peer

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/aggnsa/aggnsa/pkg/registry"
	"github.com/aggnsa/aggnsa/pkg/util"
)

// Client is a gRPC connection to one peer aggregator's inbound endpoint. One
// Client handles every Event for the peer it was dialed against; the
// distinguishing key on our side is the peer's ProviderNSA identity.
type Client struct {
	providerNSA string
	conn        *grpc.ClientConn
}

// NewClient dials addr, the peer's gRPC listen address. creds defaults to
// insecure.NewCredentials() when nil — real certificate management is out
// of scope (spec.md §1's "TLS context establishment"), but a caller with
// its own credentials.TransportCredentials can supply them here instead,
// the same seam the original's ctxfactory.py occupied.
func NewClient(ctx context.Context, providerNSA, addr string, creds credentials.TransportCredentials) (*Client, error) {
	if creds == nil {
		creds = insecure.NewCredentials()
	}
	conn, err := grpc.DialContext(ctx, addr, grpc.WithTransportCredentials(creds), grpc.WithBlock())
	if err != nil {
		return nil, fmt.Errorf("peer: dialing %s (%s): %w", providerNSA, addr, err)
	}
	return &Client{providerNSA: providerNSA, conn: conn}, nil
}

// Close tears down the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Call invokes event against this peer, marshaling req through the JSON
// codec and unmarshaling the peer's wireResponse back into a
// registry.Response. A non-nil error may be either a transport failure
// (from grpc itself) or a *RemoteError reporting the peer's own handler
// failure.
func (c *Client) Call(ctx context.Context, event registry.Event, req registry.Request) (registry.Response, error) {
	in := toWireRequest(req)
	out := new(wireResponse)

	if err := c.conn.Invoke(ctx, methodForEvent(event), in, out, grpc.CallContentSubtype(codecName)); err != nil {
		return registry.Response{}, fmt.Errorf("peer: calling %s on %s: %w", event, c.providerNSA, err)
	}
	return out.toResponse()
}

// Pool dispatches REMOTE-locality events to the right peer Client by
// provider identity, and is itself the Handler pkg/registry stores for
// registry.LocalityRemote — one Pool serves every peer, keyed internally.
type Pool struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewPool creates an empty Pool.
func NewPool() *Pool {
	return &Pool{clients: make(map[string]*Client)}
}

// Add registers a Client for its ProviderNSA, replacing any previous one.
// The replaced client, if any, is closed.
func (p *Pool) Add(c *Client) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if old, ok := p.clients[c.providerNSA]; ok {
		old.Close()
	}
	p.clients[c.providerNSA] = c
}

// RegisterOn installs the Pool as the Handler for every Event at
// registry.LocalityRemote, dispatching each call by req.ProviderIdentity.
func (p *Pool) RegisterOn(reg *registry.Registry) {
	for _, ev := range []registry.Event{
		registry.EventReserve,
		registry.EventReserveCommit,
		registry.EventProvision,
		registry.EventRelease,
		registry.EventTerminate,
	} {
		ev := ev
		reg.Register(ev, registry.LocalityRemote, func(ctx context.Context, req registry.Request) (registry.Response, error) {
			return p.dispatch(ctx, ev, req)
		})
	}
}

func (p *Pool) dispatch(ctx context.Context, event registry.Event, req registry.Request) (registry.Response, error) {
	p.mu.RLock()
	client, ok := p.clients[req.ProviderIdentity]
	p.mu.RUnlock()
	if !ok {
		return registry.Response{}, newNoPeerError(req.ProviderIdentity)
	}
	util.WithConnection(req.ConnectionID).WithField("peer", req.ProviderIdentity).
		WithField("event", string(event)).Debug("peer: dispatching leg")
	return client.Call(ctx, event, req)
}
