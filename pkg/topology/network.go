package topology

// Port is a named attachment point within a Network. A port may pair with a
// port on a neighbouring network, forming an inter-domain link; unpaired
// ports only ever appear as a path's outermost source/dest STP.
type Port struct {
	Name string

	// AvailableCapacity is nil when capacity is not tracked for this port.
	AvailableCapacity *int64

	// PeerNetwork/PeerPort name the remote end of this port's inter-domain
	// pairing. Both empty means the port is not paired (edge of the graph).
	PeerNetwork string
	PeerPort    string
}

// IsPaired reports whether this port has a remote pairing.
func (p Port) IsPaired() bool {
	return p.PeerNetwork != "" && p.PeerPort != ""
}

// Network is a named container of ports, with the per-network capabilities
// the path-finder and the aggregator need: whether it can rewrite VLAN tags
// across itself, and the identity of the NSA that manages it (the provider
// identity a REMOTE leg for this network is dispatched to).
type Network struct {
	Name          string
	ManagingNSA   string
	VLANRewrite   bool
	Ports         map[string]*Port
}

// NewNetwork creates an empty Network ready for AddPort.
func NewNetwork(name, managingNSA string, vlanRewrite bool) *Network {
	return &Network{
		Name:        name,
		ManagingNSA: managingNSA,
		VLANRewrite: vlanRewrite,
		Ports:       make(map[string]*Port),
	}
}

// AddPort registers a port on this network, keyed by name.
func (n *Network) AddPort(p *Port) {
	n.Ports[p.Name] = p
}

// GetPort returns the named port, or a *TopologyError if it does not exist.
func (n *Network) GetPort(name string) (*Port, error) {
	p, ok := n.Ports[name]
	if !ok {
		return nil, newTopologyError("no port named %s for network %s", name, n.Name)
	}
	return p, nil
}

// Link is an ordered pair of STPs within a single network: a source port and
// a destination port, carrying each endpoint's label set.
type Link struct {
	Source STP
	Dest   STP
}
