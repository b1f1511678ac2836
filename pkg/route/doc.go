// Package route implements the detail phase of the router: per-wire
// congestion state, a bidirectional wavefront search guided by each net's
// Steiner tree, and the negotiated congestion loop that rips up and
// reroutes nets until no wire is shared.
//
// # Overview
//
// A Router is created for a device, its capability interface and a placed
// design. Setup maps every wire to a dense flat index, reserves pin wires
// for their nets and builds one Steiner tree per net. When the architecture
// declares routing resources, a ChannelModel estimates boundary demand from
// a first set of trees and the trees are rebuilt to avoid the hot spots.
//
// Route then runs rounds. The first round routes every net; later rounds
// only nets that failed or touch an overused wire. Wire cost follows the
// CostModel, PathFinderCost by default, with present congestion growing by
// Config.PresentGrowth each round and history accumulating on overused
// wires. The best solution seen is kept and written back to the design.
//
// # Usage
//
//	r, err := route.NewRouter(dev, dev.API(), design, route.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	res, err := r.Route(ctx)
//	if errors.Is(err, route.ErrNotConverged) {
//		res.Print(os.Stdout)
//	}
package route
