package topology

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/aggnsa/aggnsa/pkg/util"
)

// FileSpec is the on-disk shape of a topology file: one entry per network,
// each carrying its managing NSA and ports, with inter-domain pairings
// expressed directly on the port rather than as a separate link list —
// Reserve only ever needs to know a port's peer, never the full edge set.
type FileSpec struct {
	Networks map[string]*NetworkSpec `yaml:"networks"`
}

// NetworkSpec is one network's on-disk description.
type NetworkSpec struct {
	ManagingNSA string                `yaml:"managing_nsa"`
	VLANRewrite bool                  `yaml:"vlan_rewrite,omitempty"`
	Ports       map[string]*PortSpec  `yaml:"ports"`
}

// PortSpec is one port's on-disk description. AvailableCapacity is a
// pointer so a port that doesn't track capacity (an uncapped egress,
// say) can simply omit the field rather than default to zero.
type PortSpec struct {
	AvailableCapacity *int64 `yaml:"available_capacity,omitempty"`
	PeerNetwork       string `yaml:"peer_network,omitempty"`
	PeerPort          string `yaml:"peer_port,omitempty"`
}

// Load reads a YAML topology file from path and builds a *Topology from it.
// The file format mirrors Network/Port field-for-field, so loader errors
// point straight at a malformed entry rather than the model underneath.
func Load(path string) (*Topology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse builds a *Topology from YAML already read into memory, exercised
// directly by tests that would rather not touch the filesystem.
func Parse(data []byte) (*Topology, error) {
	var spec FileSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, err
	}
	return build(&spec)
}

func build(spec *FileSpec) (*Topology, error) {
	v := &util.ValidationBuilder{}

	t := New()
	for name, netSpec := range spec.Networks {
		v.Add(netSpec.ManagingNSA != "", "network '"+name+"' has no managing_nsa")

		n := NewNetwork(name, netSpec.ManagingNSA, netSpec.VLANRewrite)
		for portName, portSpec := range netSpec.Ports {
			n.AddPort(&Port{
				Name:              portName,
				AvailableCapacity: portSpec.AvailableCapacity,
				PeerNetwork:       portSpec.PeerNetwork,
				PeerPort:          portSpec.PeerPort,
			})
		}
		if err := t.AddNetwork(n); err != nil {
			v.AddErrorf("%v", err)
		}
	}

	if err := v.Build(); err != nil {
		return nil, err
	}
	if err := validatePairings(t, spec); err != nil {
		return nil, err
	}
	return t, nil
}

// validatePairings checks that every port naming a peer actually has one —
// a one-sided pairing is a topology authoring mistake the path-finder would
// otherwise silently treat as an unpaired edge.
func validatePairings(t *Topology, spec *FileSpec) error {
	v := &util.ValidationBuilder{}
	for name, netSpec := range spec.Networks {
		for portName, portSpec := range netSpec.Ports {
			if portSpec.PeerNetwork == "" && portSpec.PeerPort == "" {
				continue
			}
			peerNet, err := t.GetNetwork(portSpec.PeerNetwork)
			if err != nil {
				v.AddErrorf("network '%s' port '%s': peer network '%s' does not exist", name, portName, portSpec.PeerNetwork)
				continue
			}
			peerPort, err := peerNet.GetPort(portSpec.PeerPort)
			if err != nil {
				v.AddErrorf("network '%s' port '%s': peer port '%s:%s' does not exist", name, portName, portSpec.PeerNetwork, portSpec.PeerPort)
				continue
			}
			if peerPort.PeerNetwork != name || peerPort.PeerPort != portName {
				v.AddErrorf("network '%s' port '%s': pairing with '%s:%s' is not reciprocated",
					name, portName, portSpec.PeerNetwork, portSpec.PeerPort)
			}
		}
	}
	return v.Build()
}
