package topology

import "strings"

// vlanCapableSuffix marks a network as VLAN-capable for the default
// compatibility predicate: only networks named with this suffix are
// subject to the tag-matching rule below at all.
const vlanCapableSuffix = ".ets"

// DefaultVLANCompat is the crude label-continuity proxy described in the
// design notes: for an intra-network link on a VLAN-capable network (name
// ends in ".ets") that is not in the network's own vlan-rewrite whitelist,
// the two endpoints' trailing VLAN tag must match. The tag is the last
// decimal digit found in the port name, or — if the port name has no digit —
// the last rune's code point modulo 4.
//
// This is not a real label algebra. It is preserved exactly because existing
// routes depend on its exact behaviour. New installs it as the default, and
// Topology.SetVLANCompatFunc replaces it without touching the path search.
func DefaultVLANCompat(network Network, source, dest STP) bool {
	if source.Network != dest.Network {
		// Not an intra-network link; nothing for this predicate to check.
		return true
	}
	if !hasVLANCapableSuffix(network.Name) {
		return true
	}
	if network.VLANRewrite {
		return true
	}
	return portVLANTag(source.Port) == portVLANTag(dest.Port)
}

func hasVLANCapableSuffix(network string) bool {
	return strings.HasSuffix(network, vlanCapableSuffix)
}

// portVLANTag extracts the heuristic VLAN tag from a port name: the last
// decimal digit in the name, or the last rune's code point mod 4 if the
// name has no digits.
func portVLANTag(port string) int {
	for i := len(port) - 1; i >= 0; i-- {
		c := port[i]
		if c >= '0' && c <= '9' {
			return int(c - '0')
		}
	}
	if port == "" {
		return 0
	}
	last := rune(port[len(port)-1])
	return int(last) % 4
}
