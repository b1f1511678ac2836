package steiner

import (
	"github.com/OpenTraceLab/feline/pkg/gcell"
)

const flipEpsilon = 1e-6

// EdgeFlips re-parents subtrees while the weighted objective
// alpha*WL + (1-alpha)*sum(PL over ports) strictly decreases.
//
// Every step applies the single re-parenting with the largest decrease over
// all nodes, moving a node under any node outside its own subtree. Ties go to
// the smaller child cell, then the smaller new parent. It returns the number
// of flips applied.
func (t *Tree) EdgeFlips(alpha float32) int {
	a := float64(alpha)
	flips := 0
	for limit := 4 * len(t.Nodes); flips < limit; flips++ {
		v, w, ok := t.bestFlip(a)
		if !ok {
			break
		}
		t.Nodes[v].Uphill = w
	}
	t.prune()
	return flips
}

func (t *Tree) bestFlip(alpha float64) (gcell.GCell, gcell.GCell, bool) {
	cells := t.Cells()
	children := t.Children()
	pl := make(map[gcell.GCell]int, len(cells))
	for _, c := range cells {
		pl[c] = t.PathLength(c)
	}

	bestDelta := -flipEpsilon
	bestV, bestW := gcell.Invalid, gcell.Invalid
	for _, v := range cells {
		u := t.Nodes[v].Uphill
		if v == t.Source || !u.IsValid() {
			continue
		}

		inSubtree := map[gcell.GCell]bool{}
		ports := 0
		stack := []gcell.GCell{v}
		for len(stack) > 0 {
			c := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if inSubtree[c] {
				continue
			}
			inSubtree[c] = true
			ports += t.Nodes[c].PortCount
			stack = append(stack, children[c]...)
		}

		curEdge := u.MDist(v)
		for _, w := range cells {
			if w == u || inSubtree[w] {
				continue
			}
			edge := w.MDist(v)
			dWL := float64(edge - curEdge)
			dPL := float64((pl[w] + edge) - (pl[u] + curEdge))
			delta := alpha*dWL + (1-alpha)*float64(ports)*dPL
			if delta < bestDelta {
				bestDelta, bestV, bestW = delta, v, w
			}
		}
	}
	return bestV, bestW, bestV.IsValid()
}
