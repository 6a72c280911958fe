// Package topology models the static, directed multigraph of networks that
// the aggregator routes inter-domain reservations across, and implements the
// path-finding search used by Reserve.
package topology

import (
	"fmt"
	"sort"
	"strings"
)

// STP is a Service Termination Point: an immutable triple of network, port
// and label set. A single-valued Labels set fully specifies the STP; an
// empty or multi-valued set marks it as a candidate to be narrowed during
// path selection.
type STP struct {
	Network string
	Port    string
	Labels  []string
}

// String renders the STP in "network:port?vlan=labels" form.
func (s STP) String() string {
	if len(s.Labels) == 0 {
		return s.Network + ":" + s.Port
	}
	return fmt.Sprintf("%s:%s?vlan=%s", s.Network, s.Port, strings.Join(s.Labels, ","))
}

// IsSingleValued reports whether the STP's label set pins down exactly one label.
func (s STP) IsSingleValued() bool {
	return len(s.Labels) == 1
}

// Equal reports whether two STPs name the same network and port (labels
// are not compared — label compatibility is handled by the VLAN predicate).
func (s STP) Equal(other STP) bool {
	return s.Network == other.Network && s.Port == other.Port
}

// SortedLabels returns a copy of Labels in ascending order, for deterministic
// comparisons and output.
func (s STP) SortedLabels() []string {
	out := make([]string, len(s.Labels))
	copy(out, s.Labels)
	sort.Strings(out)
	return out
}

// ParseSTP parses the "network:port?vlan=labels" form String produces, the
// shape an operator types on the command line. A bare "network:port" parses
// to an STP with no labels.
func ParseSTP(s string) (STP, error) {
	netPort := s
	var labels []string
	if i := strings.Index(s, "?vlan="); i >= 0 {
		netPort = s[:i]
		labelStr := s[i+len("?vlan="):]
		if labelStr != "" {
			labels = strings.Split(labelStr, ",")
		}
	}
	parts := strings.SplitN(netPort, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return STP{}, fmt.Errorf("invalid STP %q (want network:port[?vlan=labels])", s)
	}
	return STP{Network: parts[0], Port: parts[1], Labels: labels}, nil
}
