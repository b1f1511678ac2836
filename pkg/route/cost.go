package route

// CostModel prices the use of one wire during a search. Implementations
// must be monotone non-decreasing in base, curr and hist, and safe for
// concurrent use.
type CostModel interface {
	// WireCost returns the cost of adding one more user to a wire with
	// intrinsic cost base, curr current users and accumulated history hist,
	// under present congestion multiplier pres.
	WireCost(base float64, curr int32, hist float32, pres float64) float64
}

// PathFinderCost is the negotiated congestion cost
// (base + hist) * (1 + pres * overuse), where overuse is the number of users
// beyond the first once this net is added.
type PathFinderCost struct{}

func (PathFinderCost) WireCost(base float64, curr int32, hist float32, pres float64) float64 {
	overuse := float64(curr)
	if overuse < 0 {
		overuse = 0
	}
	return (base + float64(hist)) * (1 + pres*overuse)
}

// CostFunc adapts a function to CostModel.
type CostFunc func(base float64, curr int32, hist float32, pres float64) float64

func (f CostFunc) WireCost(base float64, curr int32, hist float32, pres float64) float64 {
	return f(base, curr, hist, pres)
}
