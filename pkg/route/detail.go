package route

import (
	"container/heap"
	"math"

	"github.com/pkg/errors"

	"github.com/OpenTraceLab/feline/pkg/arch"
	"github.com/OpenTraceLab/feline/pkg/gcell"
)

// VisitedWire is the best known way to reach a wire in one search
// direction. A cheaper path replaces the record rather than editing it.
type VisitedWire struct {
	// PrevPip is the pip entering the wire (forward) or leaving it toward
	// the sink (backward). NoPip marks a seed.
	PrevPip   arch.PipID
	TotalCost float64
	Progress  SteinerProgress
}

type queuedWire struct {
	flat     int32
	cost     float64
	tie      int
	progress SteinerProgress
}

type wireQueue []queuedWire

func (q wireQueue) Len() int { return len(q) }

func (q wireQueue) Less(i, j int) bool {
	if q[i].cost != q[j].cost {
		return q[i].cost < q[j].cost
	}
	if q[i].tie != q[j].tie {
		return q[i].tie < q[j].tie
	}
	return q[i].flat < q[j].flat
}

func (q wireQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *wireQueue) Push(x any) { *q = append(*q, x.(queuedWire)) }

func (q *wireQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

func (q wireQueue) top() float64 {
	if len(q) == 0 {
		return math.Inf(1)
	}
	return q[0].cost
}

// DetailRouter runs bidirectional wavefront searches for one net at a time.
// A Router keeps one per worker.
type DetailRouter struct {
	r *Router

	visitFwd, visitBwd map[int32]VisitedWire
	fwd, bwd           wireQueue

	// Expansions counts wavefront pops since the last reset of the counter.
	Expansions int
}

func newDetailRouter(r *Router) *DetailRouter {
	return &DetailRouter{
		r:        r,
		visitFwd: make(map[int32]VisitedWire),
		visitBwd: make(map[int32]VisitedWire),
	}
}

func (d *DetailRouter) reset() {
	clear(d.visitFwd)
	clear(d.visitBwd)
	d.fwd = d.fwd[:0]
	d.bwd = d.bwd[:0]
}

// search is the per-sink context.
type search struct {
	nd      *PerNetData
	guide   *corridor
	gc      guideCosts
	pres    float64
	target  gcell.GCell
	source  gcell.GCell
	best    float64
	meet    int32
	defects error
}

// routeNet routes every sink of nd, which must have been ripped up. It
// returns false when a sink cannot be reached; errors are fatal.
func (d *DetailRouter) routeNet(nd *PerNetData, pres float64) (bool, error) {
	r := d.r
	nd.Status = NetSearching
	nd.BwdRouteTree[nd.SrcFlat] = arch.NoPip
	r.state.Claim(nd.SrcFlat)

	for _, s := range nd.SinkOrder {
		sd := nd.Sink(s)
		guided := !sd.Skip && nd.SteinerTree != nil
		ok, err := d.routeSink(nd, s, sd, guided, pres)
		if err != nil {
			return false, err
		}
		if !ok && guided && r.cfg.UnguidedFallback {
			ok, err = d.routeSink(nd, s, sd, false, pres)
			if err != nil {
				return false, err
			}
		}
		if !ok {
			nd.Status = NetFailed
			return false, nil
		}
	}
	nd.Status = NetRouted
	return true, nil
}

func (d *DetailRouter) routeSink(nd *PerNetData, idx SinkIdx, sd *PerSinkData, guided bool, pres float64) (bool, error) {
	if _, ok := nd.BwdRouteTree[sd.Flat]; ok {
		nd.addSink(sd.Flat, idx)
		return true, nil
	}

	r := d.r
	s := &search{
		nd:     nd,
		pres:   pres,
		target: sd.GCell,
		source: nd.SrcGCell,
		best:   math.Inf(1),
		meet:   -1,
		gc: guideCosts{
			weight:  r.cfg.GuideWeight,
			off:     r.cfg.OffCorridorPenalty,
			regress: r.cfg.RegressPenalty,
		},
	}
	if guided {
		if path := nd.SteinerTree.GlobalPath(sd.GCell); len(path) > 0 {
			tol := r.cfg.Tolerance
			if r.channels != nil {
				tol = r.channels.Tolerance(path, tol)
			}
			s.guide = newCorridor(path, tol)
		}
	}

	d.reset()
	for _, flat := range sortedFlats(nd.BwdRouteTree) {
		loc := r.api.ApproxWireLoc(r.wireOf[flat])
		var prog SteinerProgress
		if s.guide != nil {
			if i, _ := s.guide.nextGlobalIdx(loc, 0); i >= 0 {
				prog = SteinerProgress{Index: i, Alongness: s.guide.alongness(i, loc)}
			}
		}
		d.visitFwd[flat] = VisitedWire{PrevPip: arch.NoPip, Progress: prog}
		heap.Push(&d.fwd, queuedWire{flat: flat, tie: d.tieFwd(s, loc, prog), progress: prog})
	}
	d.visitBwd[sd.Flat] = VisitedWire{PrevPip: arch.NoPip}
	heap.Push(&d.bwd, queuedWire{flat: sd.Flat, tie: r.api.ApproxWireLoc(r.wireOf[sd.Flat]).MDist(s.source)})

	budget := r.cfg.MaxExpansions
	for n := 0; d.fwd.Len() > 0 && d.bwd.Len() > 0; {
		if d.fwd.top()+d.bwd.top() >= s.best {
			break
		}
		if n >= budget {
			break
		}
		var expanded bool
		if d.fwd.Len() <= d.bwd.Len() {
			expanded = d.expandFwd(s)
		} else {
			expanded = d.expandBwd(s)
		}
		if s.defects != nil {
			return false, s.defects
		}
		if expanded {
			n++
			d.Expansions++
		}
	}
	if s.meet < 0 {
		return false, nil
	}
	d.commit(s, idx, sd)
	return true, nil
}

func (d *DetailRouter) tieFwd(s *search, loc gcell.GCell, p SteinerProgress) int {
	if s.guide != nil {
		return loc.MDist(s.guide.target(p))
	}
	return loc.MDist(s.target)
}

// flatOf maps a wire reached through the device graph to its flat index,
// recording a defect when the architecture breaks its own bound.
func (d *DetailRouter) flatOf(s *search, w arch.WireID) int32 {
	flat := d.r.api.FlatWireIndex(w)
	if flat < 0 || flat >= int32(len(d.r.wireOf)) {
		s.defects = errors.Wrapf(ErrDeviceDefect, "wire %s has flat index %d outside [0, %d)",
			d.r.dev.WireName(w), flat, len(d.r.wireOf))
		return -1
	}
	return flat
}

// wireCost is the congestion cost of using a wire, without guidance.
func (d *DetailRouter) wireCost(s *search, flat int32) float64 {
	r := d.r
	w := &r.state.Wires[flat]
	return r.cost.WireCost(r.dev.WireDelay(r.wireOf[flat]), w.Curr(), w.HistCong, s.pres)
}

func (d *DetailRouter) expandFwd(s *search) bool {
	item := heap.Pop(&d.fwd).(queuedWire)
	if v, ok := d.visitFwd[item.flat]; !ok || item.cost > v.TotalCost {
		return false
	}
	r := d.r
	for _, pip := range r.dev.PipsDownhill(r.wireOf[item.flat]) {
		dst := r.dev.PipDstWire(pip)
		flat := d.flatOf(s, dst)
		if flat < 0 {
			return true
		}
		if !r.state.Usable(flat, s.nd.Index) {
			continue
		}
		loc := r.api.ApproxWireLoc(dst)
		prog, guide := item.progress, 0.0
		if s.guide != nil {
			prog, guide = s.guide.forward(loc, item.progress, s.gc)
		}
		cost := item.cost + r.dev.PipDelay(pip) + d.wireCost(s, flat) + guide
		if v, ok := d.visitFwd[flat]; ok && v.TotalCost <= cost {
			continue
		}
		d.visitFwd[flat] = VisitedWire{PrevPip: pip, TotalCost: cost, Progress: prog}
		heap.Push(&d.fwd, queuedWire{flat: flat, cost: cost, tie: d.tieFwd(s, loc, prog), progress: prog})
		if b, ok := d.visitBwd[flat]; ok && cost+b.TotalCost < s.best {
			s.best, s.meet = cost+b.TotalCost, flat
		}
	}
	return true
}

func (d *DetailRouter) expandBwd(s *search) bool {
	item := heap.Pop(&d.bwd).(queuedWire)
	if v, ok := d.visitBwd[item.flat]; !ok || item.cost > v.TotalCost {
		return false
	}
	r := d.r
	// The popped wire's own cost is charged when stepping uphill of it.
	step := d.wireCost(s, item.flat)
	if s.guide != nil {
		step += s.guide.backward(r.api.ApproxWireLoc(r.wireOf[item.flat]), s.gc)
	}
	for _, pip := range r.dev.PipsUphill(r.wireOf[item.flat]) {
		src := r.dev.PipSrcWire(pip)
		flat := d.flatOf(s, src)
		if flat < 0 {
			return true
		}
		if !r.state.Usable(flat, s.nd.Index) {
			continue
		}
		cost := item.cost + r.dev.PipDelay(pip) + step
		if v, ok := d.visitBwd[flat]; ok && v.TotalCost <= cost {
			continue
		}
		d.visitBwd[flat] = VisitedWire{PrevPip: pip, TotalCost: cost}
		heap.Push(&d.bwd, queuedWire{flat: flat, cost: cost, tie: r.api.ApproxWireLoc(src).MDist(s.source)})
		if f, ok := d.visitFwd[flat]; ok && f.TotalCost+cost < s.best {
			s.best, s.meet = f.TotalCost+cost, flat
		}
	}
	return true
}

// commit adds the path through the meeting wire to the route tree. When the
// backward half rejoins wires already connected to the source, only the
// part after the last such wire is kept so the tree stays acyclic.
func (d *DetailRouter) commit(s *search, idx SinkIdx, sd *PerSinkData) {
	r := d.r
	nd := s.nd

	onFwd := make(map[int32]bool)
	for x := s.meet; ; {
		if _, ok := nd.BwdRouteTree[x]; ok {
			onFwd[x] = true
			break
		}
		onFwd[x] = true
		x = r.api.FlatWireIndex(r.dev.PipSrcWire(d.visitFwd[x].PrevPip))
	}

	chain := []int32{s.meet}
	var pips []arch.PipID
	for x := s.meet; len(chain) <= len(d.visitBwd); {
		v := d.visitBwd[x]
		if v.PrevPip == arch.NoPip {
			break
		}
		x = r.api.FlatWireIndex(r.dev.PipDstWire(v.PrevPip))
		chain = append(chain, x)
		pips = append(pips, v.PrevPip)
	}

	j := 0
	for k := len(chain) - 1; k >= 0; k-- {
		if onFwd[chain[k]] {
			j = k
			break
		}
	}
	for x := chain[j]; ; {
		if _, ok := nd.BwdRouteTree[x]; ok {
			break
		}
		pip := d.visitFwd[x].PrevPip
		nd.BwdRouteTree[x] = pip
		r.state.Claim(x)
		x = r.api.FlatWireIndex(r.dev.PipSrcWire(pip))
	}
	for k := j + 1; k < len(chain); k++ {
		nd.BwdRouteTree[chain[k]] = pips[k-1]
		r.state.Claim(chain[k])
	}
	nd.addSink(sd.Flat, idx)
}
