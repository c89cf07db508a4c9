package domain

import "encoding/json"

// ClusterSet is an insertion-ordered set of addresses seeded with the origin.
type ClusterSet struct {
	origin  string
	order   []string
	members map[string]struct{}
}

// NewClusterSet creates a set containing only origin.
func NewClusterSet(origin string) *ClusterSet {
	s := &ClusterSet{
		origin:  origin,
		members: make(map[string]struct{}),
	}
	s.Add(origin)
	return s
}

// Add inserts addr. Empty addresses are ignored. Returns true if addr was new.
func (s *ClusterSet) Add(addr string) bool {
	if addr == "" {
		return false
	}
	if _, ok := s.members[addr]; ok {
		return false
	}
	s.members[addr] = struct{}{}
	s.order = append(s.order, addr)
	return true
}

// Contains reports whether addr is in the set.
func (s *ClusterSet) Contains(addr string) bool {
	_, ok := s.members[addr]
	return ok
}

// Origin returns the address the set was seeded with.
func (s *ClusterSet) Origin() string {
	return s.origin
}

// Len returns the number of addresses.
func (s *ClusterSet) Len() int {
	return len(s.order)
}

// Addresses returns a copy of the members in insertion order (origin first).
func (s *ClusterSet) Addresses() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// MarshalJSON encodes the set as a JSON array.
func (s *ClusterSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.order)
}

// Cluster graph groups.
const (
	GroupOrigin   = 0
	GroupWallet   = 1
	GroupOffCurve = 2
)

// ClusterNode is a graph vertex.
type ClusterNode struct {
	ID    string `json:"id"`
	Group int    `json:"group"`
}

// ClusterLink is an observed source -> target movement.
type ClusterLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// ClusterGraph is the node/link shape consumed by force-graph renderers.
type ClusterGraph struct {
	Nodes []ClusterNode `json:"nodes"`
	Links []ClusterLink `json:"links"`
}
