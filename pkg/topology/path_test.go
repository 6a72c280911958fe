package topology

import (
	"testing"
)

func cap64(v int64) *int64 { return &v }

// buildS1 returns a single-network topology with two ports: N1 has p1, p2.
func buildS1(t *testing.T) *Topology {
	t.Helper()
	topo := New()
	n1 := NewNetwork("N1", "urn:ogf:network:nsa:n1", false)
	n1.AddPort(&Port{Name: "p1", AvailableCapacity: cap64(1000)})
	n1.AddPort(&Port{Name: "p2", AvailableCapacity: cap64(1000)})
	if err := topo.AddNetwork(n1); err != nil {
		t.Fatalf("AddNetwork: %v", err)
	}
	return topo
}

func TestFindPaths_SameNetwork(t *testing.T) {
	topo := buildS1(t)
	src := STP{Network: "N1", Port: "p1"}
	dst := STP{Network: "N1", Port: "p2"}

	paths, err := topo.FindPaths(src, dst, &Bandwidth{Minimum: 100})
	if err != nil {
		t.Fatalf("FindPaths: %v", err)
	}
	if len(paths) != 1 {
		t.Fatalf("expected 1 path, got %d", len(paths))
	}
	p := paths[0]
	if p.HopCount() != 1 {
		t.Fatalf("expected hop count 1, got %d", p.HopCount())
	}
	if p.Source() != src || p.Dest() != dst {
		t.Fatalf("unexpected source/dest: %v -> %v", p.Source(), p.Dest())
	}
}

// buildS2 returns A(a1,ax) <-> B(bx,b2).
func buildS2(t *testing.T) *Topology {
	t.Helper()
	topo := New()

	a := NewNetwork("A", "urn:ogf:network:nsa:a", false)
	a.AddPort(&Port{Name: "a1"})
	a.AddPort(&Port{Name: "ax", PeerNetwork: "B", PeerPort: "bx"})
	if err := topo.AddNetwork(a); err != nil {
		t.Fatalf("AddNetwork A: %v", err)
	}

	b := NewNetwork("B", "urn:ogf:network:nsa:b", false)
	b.AddPort(&Port{Name: "bx", PeerNetwork: "A", PeerPort: "ax"})
	b.AddPort(&Port{Name: "b2"})
	if err := topo.AddNetwork(b); err != nil {
		t.Fatalf("AddNetwork B: %v", err)
	}

	return topo
}

func TestFindPaths_TwoHop(t *testing.T) {
	topo := buildS2(t)
	src := STP{Network: "A", Port: "a1"}
	dst := STP{Network: "B", Port: "b2"}

	paths, err := topo.FindPaths(src, dst, nil)
	if err != nil {
		t.Fatalf("FindPaths: %v", err)
	}
	if len(paths) != 1 {
		t.Fatalf("expected 1 path, got %d", len(paths))
	}
	p := paths[0]
	if p.HopCount() != 2 {
		t.Fatalf("expected hop count 2, got %d", p.HopCount())
	}
	if p[0].Source.Port != "a1" || p[0].Dest.Port != "ax" {
		t.Fatalf("unexpected first link: %+v", p[0])
	}
	if p[1].Source.Port != "bx" || p[1].Dest.Port != "b2" {
		t.Fatalf("unexpected second link: %+v", p[1])
	}
}

// buildS3 returns A<->B<->C<->A, a ring, to verify loop avoidance.
func buildS3(t *testing.T) *Topology {
	t.Helper()
	topo := New()

	a := NewNetwork("A", "urn:ogf:network:nsa:a", false)
	a.AddPort(&Port{Name: "a1"})
	a.AddPort(&Port{Name: "ax", PeerNetwork: "B", PeerPort: "bx"})
	a.AddPort(&Port{Name: "az", PeerNetwork: "C", PeerPort: "cz"})
	if err := topo.AddNetwork(a); err != nil {
		t.Fatalf("AddNetwork A: %v", err)
	}

	b := NewNetwork("B", "urn:ogf:network:nsa:b", false)
	b.AddPort(&Port{Name: "bx", PeerNetwork: "A", PeerPort: "ax"})
	b.AddPort(&Port{Name: "by", PeerNetwork: "C", PeerPort: "cy"})
	if err := topo.AddNetwork(b); err != nil {
		t.Fatalf("AddNetwork B: %v", err)
	}

	c := NewNetwork("C", "urn:ogf:network:nsa:c", false)
	c.AddPort(&Port{Name: "cy", PeerNetwork: "B", PeerPort: "by"})
	c.AddPort(&Port{Name: "cz", PeerNetwork: "A", PeerPort: "az"})
	c.AddPort(&Port{Name: "c1"})
	if err := topo.AddNetwork(c); err != nil {
		t.Fatalf("AddNetwork C: %v", err)
	}

	return topo
}

func TestFindPaths_LoopAvoidance(t *testing.T) {
	topo := buildS3(t)
	src := STP{Network: "A", Port: "a1"}
	dst := STP{Network: "C", Port: "c1"}

	paths, err := topo.FindPaths(src, dst, nil)
	if err != nil {
		t.Fatalf("FindPaths: %v", err)
	}
	if len(paths) != 1 {
		t.Fatalf("expected exactly 1 route, got %d: %+v", len(paths), paths)
	}
	p := paths[0]
	seen := map[string]bool{}
	for _, link := range p {
		if seen[link.Source.Network] {
			t.Fatalf("route revisits network %s", link.Source.Network)
		}
		seen[link.Source.Network] = true
	}
	if p.HopCount() != 3 {
		t.Fatalf("expected 3-hop route A->B->C, got %d hops", p.HopCount())
	}
}

func TestFindPaths_UnknownNetwork(t *testing.T) {
	topo := buildS1(t)
	_, err := topo.FindPaths(STP{Network: "nope", Port: "p1"}, STP{Network: "N1", Port: "p2"}, nil)
	if err == nil {
		t.Fatal("expected TopologyError for unknown network")
	}
	var terr *TopologyError
	if !asTopologyError(err, &terr) {
		t.Fatalf("expected *TopologyError, got %T: %v", err, err)
	}
}

func TestFindPaths_BandwidthFilter(t *testing.T) {
	topo := New()
	n1 := NewNetwork("N1", "urn:ogf:network:nsa:n1", false)
	n1.AddPort(&Port{Name: "p1", AvailableCapacity: cap64(50)})
	n1.AddPort(&Port{Name: "p2", AvailableCapacity: cap64(1000)})
	if err := topo.AddNetwork(n1); err != nil {
		t.Fatalf("AddNetwork: %v", err)
	}

	_, err := topo.FindPaths(STP{Network: "N1", Port: "p1"}, STP{Network: "N1", Port: "p2"}, &Bandwidth{Minimum: 100})
	if err == nil {
		t.Fatal("expected no-path error when capacity is insufficient")
	}
}

func TestFindPaths_SortedByHopCount(t *testing.T) {
	topo := buildS2(t)

	// Add a network C bridging A and B, forcing two routes of different
	// length (A->B and A->C->B) so we can assert ordering. Port "ac" sorts
	// before "ax", so the search finds the longer route first.
	a, _ := topo.GetNetwork("A")
	a.AddPort(&Port{Name: "ac", PeerNetwork: "C", PeerPort: "ca"})
	b, _ := topo.GetNetwork("B")
	b.AddPort(&Port{Name: "bc", PeerNetwork: "C", PeerPort: "cb"})
	c := NewNetwork("C", "urn:ogf:network:nsa:c", false)
	c.AddPort(&Port{Name: "ca", PeerNetwork: "A", PeerPort: "ac"})
	c.AddPort(&Port{Name: "cb", PeerNetwork: "B", PeerPort: "bc"})
	if err := topo.AddNetwork(c); err != nil {
		t.Fatalf("AddNetwork C: %v", err)
	}

	paths, err := topo.FindPaths(STP{Network: "A", Port: "a1"}, STP{Network: "B", Port: "b2"}, nil)
	if err != nil {
		t.Fatalf("FindPaths: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected 2 routes, got %d: %+v", len(paths), paths)
	}
	for i := 1; i < len(paths); i++ {
		if paths[i-1].HopCount() > paths[i].HopCount() {
			t.Fatalf("paths not sorted ascending by hop count: %v", paths)
		}
	}
}

// asTopologyError is a small helper so tests don't need errors.As imported
// redundantly across every test in this file.
func asTopologyError(err error, target **TopologyError) bool {
	te, ok := err.(*TopologyError)
	if ok {
		*target = te
	}
	return ok
}
