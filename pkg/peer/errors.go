package peer

import (
	"errors"
	"fmt"
)

// ErrRemote is the sentinel every RemoteError unwraps to: the peer's own
// handler returned a failure, successfully transported back to us.
var ErrRemote = errors.New("peer: remote handler returned an error")

// ErrNoPeer is the sentinel every NoPeerError unwraps to.
var ErrNoPeer = errors.New("peer: no client configured for provider")

// NoPeerError reports a REMOTE dispatch for a provider identity with no
// configured Client in the Pool — a topology/configuration mismatch rather
// than a transport failure.
type NoPeerError struct {
	ProviderNSA string
}

func (e *NoPeerError) Error() string {
	return fmt.Sprintf("peer: no client configured for provider %s", e.ProviderNSA)
}

func (e *NoPeerError) Unwrap() error { return ErrNoPeer }

func newNoPeerError(providerNSA string) *NoPeerError {
	return &NoPeerError{ProviderNSA: providerNSA}
}

// RemoteError wraps the error message a peer aggregator reported for one
// leg, distinct from a transport-level gRPC failure (connection refused,
// deadline exceeded), which Client.Call surfaces unwrapped from the grpc
// package instead.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string { return e.Message }

func (e *RemoteError) Unwrap() error { return ErrRemote }

func newRemoteError(message string) *RemoteError {
	return &RemoteError{Message: message}
}
