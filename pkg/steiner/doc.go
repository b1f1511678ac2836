// Package steiner builds the per-net global routing topology: a rectilinear
// Steiner tree over the coarse grid cells holding the net's terminals.
//
// # Overview
//
// Tree construction runs in three steps:
//  1. Prim-Dijkstra growth from the source. Alpha blends the two classic
//     objectives: alpha=1 grows a minimum spanning tree (least wirelength),
//     alpha=0 a shortest path tree (least source-to-sink distance). A sink's
//     criticality pulls its own alpha towards zero.
//  2. Edge flips re-parent subtrees while the same weighted objective keeps
//     strictly decreasing.
//  3. HVW steinerisation replaces every diagonal edge by axis-aligned
//     segments through corner Steiner points (an L when a corner carries
//     interconnect, otherwise a W staircase through the middle column).
//
// The tree is an arena keyed by cell: every node records its uphill cell, so
// re-parenting never leaves dangling references.
//
// # Usage
//
//	tree, err := steiner.Build(src, []steiner.Terminal{{Cell: c1}, {Cell: c2, Criticality: 0.8}},
//		steiner.Options{Alpha: 0.5, Fabric: api})
//	for _, sink := range tree.SinkOrder() {
//		path := tree.GlobalPath(sink)
//		...
//	}
package steiner
