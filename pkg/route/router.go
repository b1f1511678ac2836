package route

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"k8s.io/klog/v2"
	"k8s.io/utils/clock"

	"github.com/OpenTraceLab/feline/pkg/arch"
	"github.com/OpenTraceLab/feline/pkg/gcell"
	"github.com/OpenTraceLab/feline/pkg/netlist"
	"github.com/OpenTraceLab/feline/pkg/steiner"
)

// Router routes a placed design onto a device by negotiated congestion.
type Router struct {
	dev    arch.Device
	api    arch.API
	design *netlist.Design
	cfg    *Config
	clock  clock.PassiveClock
	cost   CostModel

	state    *State
	wireOf   []arch.WireID
	channels *ChannelModel
	workers  []*DetailRouter
	pool     chan *DetailRouter
	pres     float64
}

// Option customises a Router.
type Option func(*Router)

// WithClock sets the clock used for the time budget.
func WithClock(c clock.PassiveClock) Option {
	return func(r *Router) { r.clock = c }
}

// WithCostModel replaces the PathFinder wire cost.
func WithCostModel(m CostModel) Option {
	return func(r *Router) { r.cost = m }
}

// NewRouter creates a router. A nil cfg uses DefaultConfig.
func NewRouter(dev arch.Device, api arch.API, design *netlist.Design, cfg *Config, opts ...Option) (*Router, error) {
	if dev == nil || api == nil || design == nil {
		return nil, fmt.Errorf("route: device, architecture and design are required")
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := &Router{
		dev:    dev,
		api:    api,
		design: design,
		cfg:    cfg,
		clock:  clock.RealClock{},
		cost:   PathFinderCost{},
		pres:   cfg.PresentFactor,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.workers = make([]*DetailRouter, cfg.Workers)
	r.pool = make(chan *DetailRouter, cfg.Workers)
	for i := range r.workers {
		r.workers[i] = newDetailRouter(r)
		r.pool <- r.workers[i]
	}
	return r, nil
}

// State returns the congestion state, nil before Setup.
func (r *Router) State() *State {
	return r.state
}

// Channels returns the channel model, nil when the architecture declares no
// routing resources or the model is disabled.
func (r *Router) Channels() *ChannelModel {
	return r.channels
}

// WireOf returns the wire at a flat index.
func (r *Router) WireOf(flat int32) arch.WireID {
	return r.wireOf[flat]
}

// Setup validates the device contract, resolves every terminal, reserves
// pin wires and builds the Steiner tree of every net.
func (r *Router) Setup() error {
	size := r.api.FlatWireSize()
	if size < 0 {
		return errors.Wrapf(ErrDeviceDefect, "negative flat wire size %d", size)
	}
	r.wireOf = make([]arch.WireID, size)
	for i := range r.wireOf {
		r.wireOf[i] = arch.NoWire
	}
	for _, w := range r.dev.Wires() {
		flat := r.api.FlatWireIndex(w)
		if flat < 0 || flat >= size {
			return errors.Wrapf(ErrDeviceDefect, "wire %s has flat index %d outside [0, %d)", r.dev.WireName(w), flat, size)
		}
		if prev := r.wireOf[flat]; prev != arch.NoWire {
			return errors.Wrapf(ErrDeviceDefect, "wires %s and %s share flat index %d", r.dev.WireName(prev), r.dev.WireName(w), flat)
		}
		r.wireOf[flat] = w
	}

	r.state = NewState(size)
	for _, n := range r.design.Nets {
		nd, err := r.setupNet(n)
		if err != nil {
			return err
		}
		r.state.Nets = append(r.state.Nets, nd)
	}

	if r.cfg.UseChannelModel {
		if cm := NewChannelModel(r.dev.Width(), r.dev.Height(), r.api.Channels()); cm.Enabled() {
			r.channels = cm
		}
	}
	if err := r.buildTrees(); err != nil {
		return err
	}
	for _, nd := range r.state.Nets {
		r.orderSinks(nd)
	}
	klog.V(2).InfoS("Router setup complete", "device", r.dev.Name(), "nets", len(r.state.Nets), "wires", size)
	return nil
}

func (r *Router) setupNet(n *netlist.Net) (*PerNetData, error) {
	idx := len(r.state.Nets)
	nd := &PerNetData{
		Net:          n,
		Index:        idx,
		BwdRouteTree: make(map[int32]arch.PipID),
		Wire2Sinks:   make(map[int32][]SinkIdx),
		Box:          gcell.EmptyBox(),
	}

	drv := n.Driver
	if drv.Cell == nil || drv.Cell.Bel == arch.NoBel {
		return nil, fmt.Errorf("route: net %s: driver %s is not placed", n.Name, drv)
	}
	pin := drv.Cell.BelPins(drv.Port)[0]
	wire, flat, err := r.pinWire(n, drv.Cell.Bel, pin)
	if err != nil {
		return nil, err
	}
	nd.SrcWire, nd.SrcFlat = wire, flat
	nd.SrcGCell = r.api.PinInterconLoc(drv.Cell.Bel, pin)
	nd.Box.Extend(nd.SrcGCell)
	if err := r.reserve(nd, flat); err != nil {
		return nil, err
	}

	nd.SinkData = make([][]PerSinkData, len(n.Users))
	for u, usr := range n.Users {
		if usr.Cell == nil || usr.Cell.Bel == arch.NoBel {
			return nil, fmt.Errorf("route: net %s: user %s is not placed", n.Name, usr)
		}
		skip := r.api.SteinerSkipPort(n.Name, usr.Info())
		for _, p := range usr.Cell.BelPins(usr.Port) {
			wire, flat, err := r.pinWire(n, usr.Cell.Bel, p)
			if err != nil {
				return nil, err
			}
			if err := r.reserve(nd, flat); err != nil {
				return nil, err
			}
			sd := PerSinkData{Wire: wire, Flat: flat, GCell: r.api.PinInterconLoc(usr.Cell.Bel, p), Skip: skip}
			nd.Box.Extend(sd.GCell)
			nd.SinkData[u] = append(nd.SinkData[u], sd)
		}
	}
	return nd, nil
}

func (r *Router) pinWire(n *netlist.Net, bel arch.BelID, pin string) (arch.WireID, int32, error) {
	wire := r.dev.BelPinWire(bel, pin)
	if wire == arch.NoWire {
		return arch.NoWire, -1, errors.Wrapf(ErrDeviceDefect, "net %s: bel %s has no wire on pin %s", n.Name, r.dev.BelName(bel), pin)
	}
	flat := r.api.FlatWireIndex(wire)
	if flat < 0 || flat >= int32(len(r.wireOf)) {
		return arch.NoWire, -1, errors.Wrapf(ErrDeviceDefect, "net %s: pin wire %s has flat index %d", n.Name, r.dev.WireName(wire), flat)
	}
	return wire, flat, nil
}

func (r *Router) reserve(nd *PerNetData, flat int32) error {
	w := &r.state.Wires[flat]
	if w.Reserved != NoNet && w.Reserved != int32(nd.Index) {
		return fmt.Errorf("route: wire %s is a pin of nets %s and %s",
			r.dev.WireName(r.wireOf[flat]), r.state.Nets[w.Reserved].Net.Name, nd.Net.Name)
	}
	w.Reserved = int32(nd.Index)
	w.Flags |= FlagPin
	return nil
}

// buildTrees constructs every Steiner tree. With a channel model the trees
// are built twice: the first pass estimates demand, the second steers each
// tree's corners away from the demand of the others.
func (r *Router) buildTrees() error {
	build := func(nd *PerNetData, coster steiner.EdgeCoster) (*steiner.Tree, error) {
		var sinks []steiner.Terminal
		for u, ports := range nd.SinkData {
			for _, sd := range ports {
				if !sd.Skip {
					sinks = append(sinks, steiner.Terminal{Cell: sd.GCell, Criticality: nd.Net.Users[u].Criticality})
				}
			}
		}
		if len(sinks) == 0 {
			return nil, nil
		}
		t, err := steiner.Build(nd.SrcGCell, sinks, steiner.Options{Alpha: r.cfg.Alpha, Fabric: r.api, Coster: coster})
		if errors.Is(err, steiner.ErrNoInterconnect) {
			return nil, errors.Wrapf(ErrDeviceDefect, "net %s: %v", nd.Net.Name, err)
		}
		if err != nil {
			return nil, fmt.Errorf("route: net %s: %w", nd.Net.Name, err)
		}
		return t, nil
	}

	for _, nd := range r.state.Nets {
		t, err := build(nd, nil)
		if err != nil {
			return err
		}
		nd.SteinerTree = t
	}
	if r.channels == nil {
		r.extendBoxes()
		return nil
	}

	trees := make([]*steiner.Tree, len(r.state.Nets))
	for i, nd := range r.state.Nets {
		trees[i] = nd.SteinerTree
	}
	r.channels.Estimate(trees)
	for _, nd := range r.state.Nets {
		if nd.SteinerTree == nil {
			continue
		}
		r.channels.AddTree(nd.SteinerTree, -1)
		t, err := build(nd, r.channels)
		if err != nil {
			return err
		}
		r.channels.AddTree(t, 1)
		nd.SteinerTree = t
	}
	r.extendBoxes()
	return nil
}

func (r *Router) extendBoxes() {
	for _, nd := range r.state.Nets {
		if t := nd.SteinerTree; t != nil && !t.Box.Empty() {
			nd.Box.Extend(gcell.GCell{X: t.Box.X0, Y: t.Box.Y0})
			nd.Box.Extend(gcell.GCell{X: t.Box.X1, Y: t.Box.Y1})
		}
	}
}

// orderSinks routes guided sinks nearest first along the tree, then skipped
// sinks by distance from the source.
func (r *Router) orderSinks(nd *PerNetData) {
	byCell := make(map[gcell.GCell][]SinkIdx)
	var rest []SinkIdx
	for u, ports := range nd.SinkData {
		for p, sd := range ports {
			s := SinkIdx{User: u, Port: p}
			if sd.Skip || nd.SteinerTree == nil {
				rest = append(rest, s)
				continue
			}
			byCell[sd.GCell] = append(byCell[sd.GCell], s)
		}
	}
	nd.SinkOrder = nd.SinkOrder[:0]
	if nd.SteinerTree != nil {
		for _, c := range nd.SteinerTree.SinkOrder() {
			nd.SinkOrder = append(nd.SinkOrder, byCell[c]...)
		}
	}
	sort.SliceStable(rest, func(i, j int) bool {
		di := nd.Sink(rest[i]).GCell.MDist(nd.SrcGCell)
		dj := nd.Sink(rest[j]).GCell.MDist(nd.SrcGCell)
		if di != dj {
			return di < dj
		}
		return rest[i].less(rest[j])
	})
	nd.SinkOrder = append(nd.SinkOrder, rest...)
}

// RoundStats summarises one round.
type RoundStats struct {
	Round         int
	Routed        int
	Failed        int
	Overused      int
	PresentFactor float64
	Expansions    int
	Duration      time.Duration
}

// Result summarises a routing run.
type Result struct {
	Rounds     int
	Converged  bool
	Overused   int
	FailedNets []string
	WireLength int
	Elapsed    time.Duration
	Stats      []RoundStats
}

// Route runs negotiated congestion rounds until the routing is legal or a
// budget runs out, then writes the best routing found back to the design.
// It returns ErrNotConverged when the result is still illegal, and the
// context error when cancelled.
func (r *Router) Route(ctx context.Context) (*Result, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "feline.route")
	defer span.Finish()

	if r.state == nil {
		if err := r.Setup(); err != nil {
			span.SetTag("error", true)
			return nil, err
		}
	}

	start := r.clock.Now()
	res := &Result{}
	var best *snapshot
	stall := 0
	r.pres = r.cfg.PresentFactor

	finish := func(cause error) (*Result, error) {
		if !res.Converged && best != nil && r.state.Overused()+r.failedCount() > best.score {
			r.state.restore(best)
		}
		r.writeBack()
		res.Overused = r.state.Overused()
		res.FailedNets = r.failedNets()
		res.WireLength = r.state.WireCount()
		res.Elapsed = r.clock.Since(start)
		span.SetTag("rounds", res.Rounds)
		span.SetTag("converged", res.Converged)
		return res, cause
	}

	for round := 0; round < r.cfg.MaxRounds; round++ {
		if err := ctx.Err(); err != nil {
			RouteResults.WithLabelValues(ResultCancelled).Inc()
			return finish(err)
		}
		if budget := r.cfg.Budget(); budget > 0 && r.clock.Since(start) >= budget {
			klog.InfoS("Routing time budget exhausted", "budget", budget, "rounds", round)
			break
		}

		nets := r.pickNets(round)
		stats, err := r.routeRound(ctx, round, nets)
		if err != nil {
			span.SetTag("error", true)
			return nil, err
		}
		res.Rounds++
		res.Stats = append(res.Stats, stats)

		if ctx.Err() != nil {
			RouteResults.WithLabelValues(ResultCancelled).Inc()
			return finish(ctx.Err())
		}
		if stats.Overused == 0 && stats.Failed == 0 {
			res.Converged = true
			RouteResults.WithLabelValues(ResultConverged).Inc()
			klog.InfoS("Routing converged", "rounds", res.Rounds, "wires", r.state.WireCount())
			return finish(nil)
		}

		if score := stats.Overused + stats.Failed; best == nil || score < best.score {
			best = r.state.snapshot(score)
			stall = 0
		} else {
			stall++
		}
		if r.cfg.StallRounds > 0 && stall >= r.cfg.StallRounds {
			klog.InfoS("Routing stalled", "rounds", res.Rounds, "best", best.score)
			break
		}
		r.state.UpdateHistory(r.cfg.HistoryFactor)
		r.pres *= r.cfg.PresentGrowth
	}

	RouteResults.WithLabelValues(ResultNotConverged).Inc()
	out, _ := finish(nil)
	return out, fmt.Errorf("%w after %d rounds: %d overused wires, %d failed nets",
		ErrNotConverged, out.Rounds, out.Overused, len(out.FailedNets))
}

// pickNets returns every net in the first round, afterwards only the nets
// that failed or use an overused wire.
func (r *Router) pickNets(round int) []*PerNetData {
	if round == 0 {
		return r.state.Nets
	}
	var nets []*PerNetData
	for _, nd := range r.state.Nets {
		if nd.Status != NetRouted || r.state.NetOverused(nd) {
			nets = append(nets, nd)
		}
	}
	return nets
}

func (r *Router) routeRound(ctx context.Context, round int, nets []*PerNetData) (RoundStats, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "feline.round")
	span.SetTag("round", round)
	span.SetTag("nets", len(nets))
	defer span.Finish()

	start := r.clock.Now()
	stats := RoundStats{Round: round, PresentFactor: r.pres}
	for _, dr := range r.workers {
		dr.Expansions = 0
	}

	var failures []error
	var err error
	if r.cfg.Workers > 1 {
		failures, err = r.routeParallel(ctx, nets)
	} else {
		failures, err = r.routeSequential(ctx, nets)
	}
	if err != nil {
		return stats, err
	}

	stats.Overused = r.state.RecomputeCongestion()
	stats.Failed = r.failedCount()
	stats.Routed = len(nets) - len(failures)
	for _, dr := range r.workers {
		stats.Expansions += dr.Expansions
	}
	stats.Duration = r.clock.Since(start)

	RoundsTotal.Inc()
	OverusedWires.Set(float64(stats.Overused))
	NetFailures.Add(float64(len(failures)))
	RoundDuration.Observe(stats.Duration.Seconds())
	SearchExpansions.Observe(float64(stats.Expansions))

	if agg := utilerrors.NewAggregate(failures); agg != nil {
		klog.V(2).ErrorS(agg, "Nets failed to route", "round", round, "count", len(failures))
	}
	klog.V(1).InfoS("Round complete", "round", round, "nets", len(nets), "overused", stats.Overused,
		"failed", stats.Failed, "presentFactor", stats.PresentFactor, "expansions", stats.Expansions)
	return stats, nil
}

func (r *Router) routeSequential(ctx context.Context, nets []*PerNetData) ([]error, error) {
	dr := r.workers[0]
	var failures []error
	for _, nd := range nets {
		if ctx.Err() != nil {
			break
		}
		if err := r.routeOne(dr, nd); err != nil {
			if errors.Is(err, ErrUnroutable) {
				failures = append(failures, err)
				continue
			}
			return nil, err
		}
	}
	return failures, nil
}

// routeParallel routes nets in batches whose boxes do not overlap, so
// concurrent searches rarely compete for the same wires.
func (r *Router) routeParallel(ctx context.Context, nets []*PerNetData) ([]error, error) {
	var failures []error
	for _, batch := range r.batches(nets) {
		if ctx.Err() != nil {
			break
		}
		errs := make([]error, len(batch))
		errCh := newErrorChannel()
		bctx, cancel := context.WithCancel(ctx)
		until(bctx, r.cfg.Workers, len(batch), func(i int) {
			dr := <-r.pool
			defer func() { r.pool <- dr }()
			err := r.routeOne(dr, batch[i])
			if err != nil && !errors.Is(err, ErrUnroutable) {
				errCh.sendErrorWithCancel(err, cancel)
				return
			}
			errs[i] = err
		})
		cancel()
		if err := errCh.receiveError(); err != nil {
			return nil, err
		}
		for _, err := range errs {
			if err != nil {
				failures = append(failures, err)
			}
		}
	}
	return failures, nil
}

func (r *Router) batches(nets []*PerNetData) [][]*PerNetData {
	var out [][]*PerNetData
	var boxes [][]gcell.GBox
	for _, nd := range nets {
		box := nd.Box.Expand(r.cfg.BBoxMargin)
		placed := false
		for i := range out {
			free := true
			for _, b := range boxes[i] {
				if b.Overlaps(box) {
					free = false
					break
				}
			}
			if free {
				out[i] = append(out[i], nd)
				boxes[i] = append(boxes[i], box)
				placed = true
				break
			}
		}
		if !placed {
			out = append(out, []*PerNetData{nd})
			boxes = append(boxes, []gcell.GBox{box})
		}
	}
	return out
}

// routeOne rips up and reroutes one net. It wraps ErrUnroutable on failure.
func (r *Router) routeOne(dr *DetailRouter, nd *PerNetData) error {
	r.state.RipUp(nd)
	before := dr.Expansions
	ok, err := dr.routeNet(nd, r.pres)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("net %s: %w", nd.Net.Name, ErrUnroutable)
	}
	if klog.V(3).Enabled() {
		klog.InfoS("Routed net", "net", nd.Net.Name, "wires", len(nd.BwdRouteTree), "expansions", dr.Expansions-before)
	}
	return nil
}

// RouteNet rips up and reroutes a single net against the current
// congestion, and writes its routing back to the design.
func (r *Router) RouteNet(ctx context.Context, idx int) error {
	span, _ := opentracing.StartSpanFromContext(ctx, "feline.route_net")
	defer span.Finish()
	if r.state == nil {
		if err := r.Setup(); err != nil {
			return err
		}
	}
	if idx < 0 || idx >= len(r.state.Nets) {
		return fmt.Errorf("route: net index %d out of range [0, %d)", idx, len(r.state.Nets))
	}
	nd := r.state.Nets[idx]
	span.SetTag("net", nd.Net.Name)
	err := r.routeOne(r.workers[0], nd)
	r.writeBackNet(nd)
	return err
}

func (r *Router) failedCount() int {
	n := 0
	for _, nd := range r.state.Nets {
		if nd.Status == NetFailed {
			n++
		}
	}
	return n
}

func (r *Router) failedNets() []string {
	var names []string
	for _, nd := range r.state.Nets {
		if nd.Status == NetFailed {
			names = append(names, nd.Net.Name)
		}
	}
	return names
}

func (r *Router) writeBack() {
	for _, nd := range r.state.Nets {
		r.writeBackNet(nd)
	}
}

func (r *Router) writeBackNet(nd *PerNetData) {
	nd.Net.UnbindAll()
	for flat, pip := range nd.BwdRouteTree {
		nd.Net.BindWire(r.wireOf[flat], pip)
	}
}

// Congestion returns the current cost of a wire for net-independent
// inspection: its users and accumulated history.
func (r *Router) Congestion(w arch.WireID) (curr int32, hist float32) {
	flat := r.api.FlatWireIndex(w)
	if r.state == nil || flat < 0 || flat >= int32(len(r.state.Wires)) {
		return 0, 0
	}
	pw := &r.state.Wires[flat]
	return pw.Curr(), pw.HistCong
}
