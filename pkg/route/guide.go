package route

import "github.com/OpenTraceLab/feline/pkg/gcell"

// Results of withinTolOfLine besides a non-negative distance.
const (
	offLine      = -1 // outside the tolerance band, or a diagonal line
	behindOrigin = -2 // before the line start by more than the tolerance
)

// SteinerProgress records how far along the global path a search has come.
type SteinerProgress struct {
	Index     int // segment path[Index] -> path[Index+1]
	Alongness int // cells travelled along that segment
}

// corridor is the global path of one sink widened by a tolerance.
type corridor struct {
	path       []gcell.GCell
	xtol, ytol int
}

func newCorridor(path []gcell.GCell, tol int) *corridor {
	return &corridor{path: path, xtol: tol, ytol: tol}
}

// withinTolOfCell returns the Manhattan distance from actual to target when
// actual lies inside the tolerance box around target, or -1.
func (c *corridor) withinTolOfCell(target, actual gcell.GCell) int {
	dx := absInt(int(actual.X) - int(target.X))
	dy := absInt(int(actual.Y) - int(target.Y))
	if dx > c.xtol || dy > c.ytol {
		return offLine
	}
	return dx + dy
}

// withinTolOfLine returns the perpendicular distance from actual to the
// axis-aligned line l0 -> l1 when actual lies inside the tolerance band, -2
// when it sits before l0 along the direction of travel by more than the
// tolerance, and -1 otherwise.
func (c *corridor) withinTolOfLine(l0, l1, actual gcell.GCell) int {
	switch {
	case l0.Y == l1.Y && l0.X != l1.X:
		return band(int(l0.X), int(l1.X), int(actual.X), c.xtol, int(actual.Y)-int(l0.Y), c.ytol)
	case l0.X == l1.X && l0.Y != l1.Y:
		return band(int(l0.Y), int(l1.Y), int(actual.Y), c.ytol, int(actual.X)-int(l0.X), c.xtol)
	case l0 == l1:
		return c.withinTolOfCell(l0, actual)
	default:
		return offLine
	}
}

// band tests one line along a moving axis from a to b. off is the
// perpendicular offset.
func band(a, b, v, tolAlong, off, tolAcross int) int {
	off = absInt(off)
	if off > tolAcross {
		return offLine
	}
	var before int
	if b > a {
		before = a - v
	} else {
		before = v - a
	}
	if before > tolAlong {
		return behindOrigin
	}
	lo, hi := min(a, b), max(a, b)
	if v < lo-tolAlong || v > hi+tolAlong {
		return offLine
	}
	return off
}

// nextGlobalIdx returns the segment at or after curr whose band holds loc
// nearest to its line, and that distance, or -1 -1. A tie goes to the later
// segment only once loc has reached the end of the earlier one. The scan
// stops at the first segment loc lies behind.
func (c *corridor) nextGlobalIdx(loc gcell.GCell, curr int) (int, int) {
	found, dist := -1, -1
	for i := max(curr, 0); i+1 < len(c.path); i++ {
		r := c.withinTolOfLine(c.path[i], c.path[i+1], loc)
		if r == behindOrigin {
			break
		}
		if r < 0 {
			continue
		}
		if found < 0 || r < dist || (r == dist && c.reachedEnd(found, loc)) {
			found, dist = i, r
		}
	}
	return found, dist
}

// reachedEnd reports whether loc is at or past the far node of segment i.
func (c *corridor) reachedEnd(i int, loc gcell.GCell) bool {
	return c.alongness(i, loc) == c.path[i].MDist(c.path[i+1])
}

// alongness returns how far loc has travelled along segment i, clamped to
// the segment.
func (c *corridor) alongness(i int, loc gcell.GCell) int {
	a, b := c.path[i], c.path[i+1]
	var d, n int
	if a.Y == b.Y {
		d, n = int(loc.X)-int(a.X), int(b.X)-int(a.X)
	} else {
		d, n = int(loc.Y)-int(a.Y), int(b.Y)-int(a.Y)
	}
	if n < 0 {
		d, n = -d, -n
	}
	return min(max(d, 0), n)
}

// target returns the next topology node ahead of p.
func (c *corridor) target(p SteinerProgress) gcell.GCell {
	if p.Index+1 < len(c.path) {
		return c.path[p.Index+1]
	}
	return c.path[len(c.path)-1]
}

// guideCosts holds the guidance weights of a search.
type guideCosts struct {
	weight, off, regress float64
}

// forward advances prev to loc and returns the new progress and the
// guidance cost of stepping onto loc.
func (c *corridor) forward(loc gcell.GCell, prev SteinerProgress, gc guideCosts) (SteinerProgress, float64) {
	if len(c.path) < 2 {
		if d := c.withinTolOfCell(c.path[0], loc); d >= 0 {
			return prev, gc.weight * float64(d)
		}
		return prev, gc.off
	}
	if i, d := c.nextGlobalIdx(loc, prev.Index); i >= 0 {
		next := SteinerProgress{Index: i, Alongness: c.alongness(i, loc)}
		cost := gc.weight * float64(d)
		if i == prev.Index && next.Alongness < prev.Alongness {
			cost += gc.regress
		}
		return next, cost
	}
	cost := gc.off
	if c.withinTolOfLine(c.path[prev.Index], c.path[prev.Index+1], loc) == behindOrigin {
		cost += gc.regress
	}
	return prev, cost
}

// backward returns the guidance cost of loc for a search growing from the
// sink, which has no notion of progress.
func (c *corridor) backward(loc gcell.GCell, gc guideCosts) float64 {
	best := -1
	if len(c.path) < 2 {
		best = c.withinTolOfCell(c.path[0], loc)
	}
	for i := 0; i+1 < len(c.path); i++ {
		if d := c.withinTolOfLine(c.path[i], c.path[i+1], loc); d >= 0 && (best < 0 || d < best) {
			best = d
		}
	}
	if best < 0 {
		return gc.off
	}
	return gc.weight * float64(best)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
