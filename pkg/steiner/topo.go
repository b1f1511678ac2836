package steiner

import (
	"sort"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/OpenTraceLab/feline/pkg/gcell"
)

// Altitudes assigns every node its height above the leaves: 0 for nodes
// without children, otherwise one more than the highest child. It returns
// the map and the maximum altitude.
func (t *Tree) Altitudes() (map[gcell.GCell]int, int) {
	children := t.Children()
	alt := make(map[gcell.GCell]int, len(t.Nodes))
	var visit func(c gcell.GCell, depth int) int
	visit = func(c gcell.GCell, depth int) int {
		if depth > len(t.Nodes) {
			return 0
		}
		h := 0
		for _, child := range children[c] {
			if a := visit(child, depth+1) + 1; a > h {
				h = a
			}
		}
		alt[c] = h
		return h
	}
	top := visit(t.Source, 0)
	return alt, top
}

// TopoSorted returns the connected nodes ordered leaf to root: every node
// comes after all of its children. Nodes of equal altitude are in cell order.
func (t *Tree) TopoSorted() []gcell.GCell {
	alt, _ := t.Altitudes()
	order := make([]gcell.GCell, 0, len(alt))
	for c := range alt {
		order = append(order, c)
	}
	sort.Slice(order, func(i, j int) bool {
		if alt[order[i]] != alt[order[j]] {
			return alt[order[i]] < alt[order[j]]
		}
		return order[i].Less(order[j])
	})
	return order
}

// Leaves returns, for every node, the ports below it that can be reached
// without passing through another port.
func (t *Tree) Leaves() map[gcell.GCell]sets.Set[gcell.GCell] {
	children := t.Children()
	leaves := make(map[gcell.GCell]sets.Set[gcell.GCell], len(t.Nodes))
	for _, c := range t.TopoSorted() {
		s := sets.New[gcell.GCell]()
		for _, child := range children[c] {
			if t.Nodes[child].PortCount > 0 {
				s.Insert(child)
			} else {
				s = s.Union(leaves[child])
			}
		}
		leaves[c] = s
	}
	return leaves
}

// SinkOrder returns the port cells nearest first along the tree. A port is
// never listed before a port above it.
func (t *Tree) SinkOrder() []gcell.GCell {
	ports := append([]gcell.GCell(nil), t.Ports.Cells()...)
	pl := make(map[gcell.GCell]int, len(ports))
	for _, p := range ports {
		pl[p] = t.PathLength(p)
	}
	sort.SliceStable(ports, func(i, j int) bool {
		if pl[ports[i]] != pl[ports[j]] {
			return pl[ports[i]] < pl[ports[j]]
		}
		return ports[i].Less(ports[j])
	})
	return ports
}

// GlobalPath returns the cells from the source down to c along the tree, or
// nil when c is not connected.
func (t *Tree) GlobalPath(c gcell.GCell) []gcell.GCell {
	var rev []gcell.GCell
	for steps := 0; steps <= len(t.Nodes); steps++ {
		rev = append(rev, c)
		if c == t.Source {
			path := make([]gcell.GCell, len(rev))
			for i := range rev {
				path[i] = rev[len(rev)-1-i]
			}
			return path
		}
		n := t.Nodes[c]
		if n == nil || !n.Uphill.IsValid() {
			return nil
		}
		c = n.Uphill
	}
	return nil
}
