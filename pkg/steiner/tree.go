package steiner

import (
	"errors"
	"fmt"
	"sort"

	"github.com/OpenTraceLab/feline/pkg/gcell"
)

// ErrNoInterconnect reports a terminal on a cell without general routing.
// It points at a device description defect and is never retried.
var ErrNoInterconnect = errors.New("steiner: terminal has no interconnect")

// Node is one vertex of a Steiner tree.
type Node struct {
	// Uphill is the parent cell, or gcell.Invalid for the source and for
	// nodes not yet connected.
	Uphill gcell.GCell
	// PortCount is the number of net terminals in this cell. Zero marks a
	// Steiner point.
	PortCount int
	// Criticality is the highest timing criticality of the node's ports.
	Criticality float32
}

// Edge joins a node to its uphill parent.
type Edge struct {
	From, To gcell.GCell // From is the parent
}

// Length returns the Manhattan length of the edge.
func (e Edge) Length() int {
	return e.From.MDist(e.To)
}

// Diagonal reports whether the edge changes both coordinates.
func (e Edge) Diagonal() bool {
	return !e.From.Aligned(e.To)
}

// Tree is a Steiner or spanning tree for one net.
type Tree struct {
	Source gcell.GCell
	Nodes  map[gcell.GCell]*Node
	Ports  *gcell.Set
	Box    gcell.GBox
}

// New returns a tree holding only its source.
func New(source gcell.GCell) *Tree {
	t := &Tree{
		Source: source,
		Nodes:  map[gcell.GCell]*Node{source: {Uphill: gcell.Invalid}},
		Ports:  &gcell.Set{},
		Box:    gcell.BoxAt(source),
	}
	return t
}

// AddPort adds a sink terminal at c.
func (t *Tree) AddPort(c gcell.GCell, criticality float32) {
	n, ok := t.Nodes[c]
	if !ok {
		n = &Node{Uphill: gcell.Invalid}
		t.Nodes[c] = n
	}
	n.PortCount++
	if criticality > n.Criticality {
		n.Criticality = criticality
	}
	t.Ports.Push(c)
	t.Box.Extend(c)
}

// Len returns the number of nodes.
func (t *Tree) Len() int {
	return len(t.Nodes)
}

// Node returns the node at c, or nil.
func (t *Tree) Node(c gcell.GCell) *Node {
	return t.Nodes[c]
}

// IsSteiner reports whether c is a pure Steiner point.
func (t *Tree) IsSteiner(c gcell.GCell) bool {
	n := t.Nodes[c]
	return n != nil && n.PortCount == 0 && c != t.Source
}

// Cells returns every node cell in sorted order.
func (t *Tree) Cells() []gcell.GCell {
	cells := make([]gcell.GCell, 0, len(t.Nodes))
	for c := range t.Nodes {
		cells = append(cells, c)
	}
	sort.Slice(cells, func(i, j int) bool { return cells[i].Less(cells[j]) })
	return cells
}

// Children returns the downhill neighbours of every node, each list sorted.
func (t *Tree) Children() map[gcell.GCell][]gcell.GCell {
	children := make(map[gcell.GCell][]gcell.GCell, len(t.Nodes))
	for _, c := range t.Cells() {
		if up := t.Nodes[c].Uphill; up.IsValid() {
			children[up] = append(children[up], c)
		}
	}
	return children
}

// Neighbours calls fn for the uphill node of c and then for each of its
// children.
func (t *Tree) Neighbours(c gcell.GCell, fn func(gcell.GCell)) {
	n := t.Nodes[c]
	if n == nil {
		return
	}
	if n.Uphill.IsValid() {
		fn(n.Uphill)
	}
	var children []gcell.GCell
	for cell, node := range t.Nodes {
		if node.Uphill == c {
			children = append(children, cell)
		}
	}
	sort.Slice(children, func(i, j int) bool { return children[i].Less(children[j]) })
	for _, child := range children {
		fn(child)
	}
}

// Edges returns every parent-child edge ordered by child cell.
func (t *Tree) Edges() []Edge {
	var edges []Edge
	for _, c := range t.Cells() {
		if up := t.Nodes[c].Uphill; up.IsValid() {
			edges = append(edges, Edge{From: up, To: c})
		}
	}
	return edges
}

// WireLength returns the total Manhattan length of all edges.
func (t *Tree) WireLength() int {
	total := 0
	for _, e := range t.Edges() {
		total += e.Length()
	}
	return total
}

// PathLength returns the tree distance from the source to c, or -1 when c is
// not connected.
func (t *Tree) PathLength(c gcell.GCell) int {
	total := 0
	for steps := 0; steps <= len(t.Nodes); steps++ {
		if c == t.Source {
			return total
		}
		n := t.Nodes[c]
		if n == nil || !n.Uphill.IsValid() {
			return -1
		}
		total += c.MDist(n.Uphill)
		c = n.Uphill
	}
	return -1
}

// isAncestor reports whether a lies on the uphill chain of c (c included).
func (t *Tree) isAncestor(a, c gcell.GCell) bool {
	for steps := 0; steps <= len(t.Nodes); steps++ {
		if c == a {
			return true
		}
		n := t.Nodes[c]
		if n == nil || !n.Uphill.IsValid() {
			return false
		}
		c = n.Uphill
	}
	return false
}

// prune drops Steiner points left without children.
func (t *Tree) prune() {
	for {
		children := t.Children()
		removed := false
		for _, c := range t.Cells() {
			if t.IsSteiner(c) && len(children[c]) == 0 {
				delete(t.Nodes, c)
				removed = true
			}
		}
		if !removed {
			return
		}
	}
}

// Validate checks the tree invariants: the source is the only root, every
// uphill chain reaches it without revisiting a node, and every port is a
// node.
func (t *Tree) Validate() error {
	src, ok := t.Nodes[t.Source]
	if !ok {
		return fmt.Errorf("steiner: source %v is not a node", t.Source)
	}
	if src.Uphill.IsValid() {
		return fmt.Errorf("steiner: source %v has uphill %v", t.Source, src.Uphill)
	}
	for c, n := range t.Nodes {
		if c == t.Source {
			continue
		}
		if !n.Uphill.IsValid() {
			return fmt.Errorf("steiner: node %v is not connected", c)
		}
		if _, ok := t.Nodes[n.Uphill]; !ok {
			return fmt.Errorf("steiner: node %v has unknown uphill %v", c, n.Uphill)
		}
		if t.PathLength(c) < 0 {
			return fmt.Errorf("steiner: node %v does not reach the source", c)
		}
	}
	for _, p := range t.Ports.Cells() {
		if _, ok := t.Nodes[p]; !ok {
			return fmt.Errorf("steiner: port %v missing from tree", p)
		}
	}
	return nil
}
