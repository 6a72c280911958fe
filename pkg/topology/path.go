package topology

// Path is an ordered, non-empty sequence of Links, one per traversed
// network, from the source STP's network to the destination STP's network.
type Path []Link

// HopCount is the number of networks traversed.
func (p Path) HopCount() int {
	return len(p)
}

// Source is the outermost source STP of the path.
func (p Path) Source() STP {
	return p[0].Source
}

// Dest is the outermost destination STP of the path.
func (p Path) Dest() STP {
	return p[len(p)-1].Dest
}

// Bandwidth carries the minimum-capacity requirement a path must satisfy.
// A nil *Bandwidth passed to FindPaths skips the capacity filter entirely.
type Bandwidth struct {
	Minimum int64
}

// VLANCompatFunc decides whether two STPs on the same intra-network link may
// be connected. The default implementation is a crude proxy for real label
// continuity (see vlan.go) and is isolated behind this type precisely so a
// richer label algebra can replace it without touching the search itself.
type VLANCompatFunc func(network Network, source, dest STP) bool

// Topology is the static, directed multigraph of networks. It is built once
// at startup and is read-only for the lifetime of the process — the
// Aggregator never mutates it.
type Topology struct {
	networks   map[string]*Network
	order      []string // insertion order, for deterministic iteration
	vlanCompat VLANCompatFunc
}

// New creates an empty Topology using the default VLAN compatibility predicate.
func New() *Topology {
	return &Topology{
		networks:   make(map[string]*Network),
		vlanCompat: DefaultVLANCompat,
	}
}

// SetVLANCompatFunc overrides the VLAN compatibility predicate used by FindPaths.
func (t *Topology) SetVLANCompatFunc(f VLANCompatFunc) {
	t.vlanCompat = f
}

// AddNetwork registers a network. Network names must be unique.
func (t *Topology) AddNetwork(n *Network) error {
	if _, exists := t.networks[n.Name]; exists {
		return newTopologyError("network name must be unique (name: %s)", n.Name)
	}
	t.networks[n.Name] = n
	t.order = append(t.order, n.Name)
	return nil
}

// GetNetwork returns the named network, or a *TopologyError if unknown.
func (t *Topology) GetNetwork(name string) (*Network, error) {
	n, ok := t.networks[name]
	if !ok {
		return nil, newTopologyError("no network named %s", name)
	}
	return n, nil
}

// GetPort resolves a (network, port) pair, or a *TopologyError if either is unknown.
func (t *Topology) GetPort(network, port string) (*Network, *Port, error) {
	n, err := t.GetNetwork(network)
	if err != nil {
		return nil, nil, err
	}
	p, err := n.GetPort(port)
	if err != nil {
		return nil, nil, err
	}
	return n, p, nil
}

// FindPaths enumerates every loop-free route between src and dst, filtered
// by bandwidth (if given) and VLAN compatibility, sorted ascending by hop
// count. bandwidth may be nil to skip the capacity filter.
func (t *Topology) FindPaths(src, dst STP, bandwidth *Bandwidth) ([]Path, error) {
	if _, _, err := t.GetPort(src.Network, src.Port); err != nil {
		return nil, err
	}
	if _, _, err := t.GetPort(dst.Network, dst.Port); err != nil {
		return nil, err
	}

	var raw []Path
	if src.Network == dst.Network {
		raw = []Path{{{Source: src, Dest: dst}}}
	} else {
		raw = t.findPathEndpoints(src, dst, []string{src.Network})
	}

	if bandwidth != nil {
		raw = t.filterBandwidth(raw, *bandwidth)
	}

	raw = t.pruneMismatchedLabels(raw)

	sortByHopCount(raw)

	if len(raw) == 0 {
		return nil, newTopologyError("no path")
	}
	return raw, nil
}

// findPathEndpoints performs the depth-first enumeration described in
// spec §4.1 step 3: from src.Network, consider every paired port; skip
// pairings whose peer network was already visited (loop avoidance); recurse
// toward dst.Network, closing the route with a final intra-network link once
// the peer network matches dst's.
func (t *Topology) findPathEndpoints(src, dst STP, visited []string) []Path {
	snw, ok := t.networks[src.Network]
	if !ok {
		return nil
	}

	var routes []Path

	// Iterate ports in name order for deterministic results.
	for _, name := range portNamesSorted(snw) {
		ep := snw.Ports[name]
		if !ep.IsPaired() {
			continue
		}
		if contains(visited, ep.PeerNetwork) {
			continue
		}

		firstHop := Link{Source: src, Dest: STP{Network: src.Network, Port: ep.Name}}

		if ep.PeerNetwork == dst.Network {
			lastHop := Link{
				Source: STP{Network: ep.PeerNetwork, Port: ep.PeerPort},
				Dest:   dst,
			}
			routes = append(routes, Path{firstHop, lastHop})
			continue
		}

		nextVisited := append(append([]string{}, visited...), ep.PeerNetwork)
		peerSTP := STP{Network: ep.PeerNetwork, Port: ep.PeerPort}
		subroutes := t.findPathEndpoints(peerSTP, dst, nextVisited)
		for _, sr := range subroutes {
			route := make(Path, 0, len(sr)+1)
			route = append(route, firstHop)
			route = append(route, sr...)
			routes = append(routes, route)
		}
	}

	return routes
}

func portNamesSorted(n *Network) []string {
	names := make([]string, 0, len(n.Ports))
	for name := range n.Ports {
		names = append(names, name)
	}
	sortStrings(names)
	return names
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

func contains(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

// filterBandwidth drops routes containing any link whose either endpoint's
// available capacity is defined and less than bw.Minimum.
func (t *Topology) filterBandwidth(paths []Path, bw Bandwidth) []Path {
	var out []Path
	for _, p := range paths {
		ok := true
		for _, link := range p {
			if !t.hasCapacity(link.Source, bw.Minimum) || !t.hasCapacity(link.Dest, bw.Minimum) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, p)
		}
	}
	return out
}

func (t *Topology) hasCapacity(stp STP, minimum int64) bool {
	n, ok := t.networks[stp.Network]
	if !ok {
		return true
	}
	p, ok := n.Ports[stp.Port]
	if !ok || p.AvailableCapacity == nil {
		return true
	}
	return *p.AvailableCapacity >= minimum
}

func sortByHopCount(paths []Path) {
	for i := 1; i < len(paths); i++ {
		for j := i; j > 0 && paths[j-1].HopCount() > paths[j].HopCount(); j-- {
			paths[j-1], paths[j] = paths[j], paths[j-1]
		}
	}
}

// pruneMismatchedLabels drops routes containing an intra-network link whose
// endpoints fail the topology's VLAN compatibility predicate.
func (t *Topology) pruneMismatchedLabels(paths []Path) []Path {
	var out []Path
	for _, p := range paths {
		valid := true
		for _, link := range p {
			n, ok := t.networks[link.Source.Network]
			if !ok {
				valid = false
				break
			}
			if !t.vlanCompat(*n, link.Source, link.Dest) {
				valid = false
				break
			}
		}
		if valid {
			out = append(out, p)
		}
	}
	return out
}

