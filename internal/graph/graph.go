// Package graph models the dependency graph between components and the
// capabilities they offer or require, and computes the initialization
// order for the lifecycle manager.
package graph

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrCycle indicates the graph cannot be linearized.
var ErrCycle = errors.New("dependency graph has a cycle")

// Kind distinguishes the two node populations of the bipartite graph.
type Kind int

const (
	KindComponent Kind = iota
	KindCapability
)

// NodeID names one node. Component and capability namespaces are
// independent: a capability may share its name with a component.
type NodeID struct {
	Kind Kind
	Name string
}

func ComponentNode(name string) NodeID {
	return NodeID{Kind: KindComponent, Name: name}
}

func CapabilityNode(name string) NodeID {
	return NodeID{Kind: KindCapability, Name: name}
}

func (n NodeID) String() string {
	if n.Kind == KindCapability {
		return "capability:" + n.Name
	}
	return "component:" + n.Name
}

type node struct {
	id  NodeID
	seq int
}

// Graph is a directed graph where an edge from -> to means "from depends
// on to". Nodes and edges are only ever added; the lifecycle manager
// deliberately keeps nodes of removed components in place.
//
// Not safe for concurrent use; callers serialize access.
type Graph struct {
	nodes map[NodeID]*node
	deps  map[NodeID]map[NodeID]struct{}
	seq   int
}

func New() *Graph {
	return &Graph{
		nodes: make(map[NodeID]*node),
		deps:  make(map[NodeID]map[NodeID]struct{}),
	}
}

// Ensure adds the node if it is not already present.
func (g *Graph) Ensure(id NodeID) {
	if _, ok := g.nodes[id]; ok {
		return
	}
	g.seq++
	g.nodes[id] = &node{id: id, seq: g.seq}
	g.deps[id] = make(map[NodeID]struct{})
}

func (g *Graph) Has(id NodeID) bool {
	_, ok := g.nodes[id]
	return ok
}

func (g *Graph) Len() int {
	return len(g.nodes)
}

// AddDependency records that from depends on to, adding either node as
// needed. Self-dependencies are rejected as a configuration error.
func (g *Graph) AddDependency(from, to NodeID) error {
	if from == to {
		return fmt.Errorf("graph: node %s cannot depend on itself", from)
	}
	g.Ensure(from)
	g.Ensure(to)
	g.deps[from][to] = struct{}{}
	return nil
}

// TopoOrder returns every node ordered so dependencies come before their
// dependents. Ties break on insertion order, keeping the result stable
// across runs. Returns an error wrapping ErrCycle when the graph cannot
// be linearized, naming the nodes stuck on the cycle.
func (g *Graph) TopoOrder() ([]NodeID, error) {
	pending := make(map[NodeID]int, len(g.nodes))
	order := make([]*node, 0, len(g.nodes))
	for id, n := range g.nodes {
		pending[id] = len(g.deps[id])
		order = append(order, n)
	}
	sort.Slice(order, func(i, j int) bool { return order[i].seq < order[j].seq })

	// Reverse adjacency: who depends on each node.
	dependents := make(map[NodeID][]NodeID, len(g.nodes))
	for from, tos := range g.deps {
		for to := range tos {
			dependents[to] = append(dependents[to], from)
		}
	}

	out := make([]NodeID, 0, len(g.nodes))
	emitted := make(map[NodeID]bool, len(g.nodes))
	for len(out) < len(g.nodes) {
		progress := false
		for _, n := range order {
			if emitted[n.id] || pending[n.id] != 0 {
				continue
			}
			emitted[n.id] = true
			out = append(out, n.id)
			for _, d := range dependents[n.id] {
				pending[d]--
			}
			progress = true
		}
		if !progress {
			return nil, fmt.Errorf("graph: %w involving %s", ErrCycle, g.stuck(emitted))
		}
	}
	return out, nil
}

func (g *Graph) stuck(emitted map[NodeID]bool) string {
	var names []string
	for id := range g.nodes {
		if !emitted[id] {
			names = append(names, id.String())
		}
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
