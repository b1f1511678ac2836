package route

import (
	"sort"
	"sync/atomic"

	"github.com/OpenTraceLab/feline/pkg/arch"
	"github.com/OpenTraceLab/feline/pkg/gcell"
	"github.com/OpenTraceLab/feline/pkg/netlist"
	"github.com/OpenTraceLab/feline/pkg/steiner"
)

// Wire flags.
const (
	FlagOverused uint16 = 1 << iota
	FlagPin
)

// NoNet marks a wire reserved by no net.
const NoNet int32 = -1

// PerWireData is the congestion record of one flat wire index.
type PerWireData struct {
	// CurrCong counts the nets currently using the wire. It is updated
	// atomically so concurrent searches can claim and release wires.
	CurrCong int32
	// HistCong accumulates past overuse. It never decreases.
	HistCong float32
	// Reserved is the index of the only net allowed to use the wire, or
	// NoNet.
	Reserved int32
	Flags    uint16
}

// Curr reads CurrCong atomically.
func (w *PerWireData) Curr() int32 {
	return atomic.LoadInt32(&w.CurrCong)
}

// SinkIdx addresses one physical sink port: a net user and the index into
// that user's bel pins.
type SinkIdx struct {
	User int
	Port int
}

func (s SinkIdx) less(o SinkIdx) bool {
	if s.User != o.User {
		return s.User < o.User
	}
	return s.Port < o.Port
}

// PerSinkData is the resolved location of one sink.
type PerSinkData struct {
	Wire  arch.WireID
	Flat  int32
	GCell gcell.GCell
	// Skip routes the sink without Steiner guidance.
	Skip bool
}

// NetStatus tracks a net through a round.
type NetStatus uint8

const (
	NetUnrouted NetStatus = iota
	NetSearching
	NetRouted
	NetFailed
)

func (s NetStatus) String() string {
	switch s {
	case NetSearching:
		return "searching"
	case NetRouted:
		return "routed"
	case NetFailed:
		return "failed"
	default:
		return "unrouted"
	}
}

// PerNetData is the routing state of one net. During a round it is owned by
// the goroutine routing the net.
type PerNetData struct {
	Net   *netlist.Net
	Index int

	SrcWire  arch.WireID
	SrcFlat  int32
	SrcGCell gcell.GCell

	// SinkData is indexed by user, then physical port.
	SinkData  [][]PerSinkData
	SinkOrder []SinkIdx

	// BwdRouteTree maps each flat wire of the route to the pip driving it.
	// The source maps to arch.NoPip.
	BwdRouteTree map[int32]arch.PipID
	// Wire2Sinks lists the sinks reached at a wire.
	Wire2Sinks map[int32][]SinkIdx

	SteinerTree *steiner.Tree
	Box         gcell.GBox
	Status      NetStatus
}

// Sink returns the data of sink s.
func (nd *PerNetData) Sink(s SinkIdx) *PerSinkData {
	return &nd.SinkData[s.User][s.Port]
}

// SinkCount returns the number of physical sinks.
func (nd *PerNetData) SinkCount() int {
	n := 0
	for _, ports := range nd.SinkData {
		n += len(ports)
	}
	return n
}

func (nd *PerNetData) addSink(flat int32, s SinkIdx) {
	nd.Wire2Sinks[flat] = append(nd.Wire2Sinks[flat], s)
}

// State holds the congestion of every wire and the routing of every net.
type State struct {
	Wires []PerWireData
	Nets  []*PerNetData
}

// NewState allocates congestion records for size flat wires.
func NewState(size int32) *State {
	s := &State{Wires: make([]PerWireData, size)}
	for i := range s.Wires {
		s.Wires[i].Reserved = NoNet
	}
	return s
}

// Claim adds one user to a wire.
func (s *State) Claim(flat int32) {
	atomic.AddInt32(&s.Wires[flat].CurrCong, 1)
}

// Release removes one user from a wire.
func (s *State) Release(flat int32) {
	atomic.AddInt32(&s.Wires[flat].CurrCong, -1)
}

// Usable reports whether net may use the wire.
func (s *State) Usable(flat int32, net int) bool {
	r := s.Wires[flat].Reserved
	return r == NoNet || r == int32(net)
}

// RipUp releases every wire of the net and clears its route.
func (s *State) RipUp(nd *PerNetData) {
	for flat := range nd.BwdRouteTree {
		s.Release(flat)
	}
	if nd.BwdRouteTree == nil {
		nd.BwdRouteTree = make(map[int32]arch.PipID)
	} else {
		clear(nd.BwdRouteTree)
	}
	if nd.Wire2Sinks == nil {
		nd.Wire2Sinks = make(map[int32][]SinkIdx)
	} else {
		clear(nd.Wire2Sinks)
	}
	nd.Status = NetUnrouted
}

// RecomputeCongestion rebuilds CurrCong from the route trees, refreshes the
// overuse flags and returns the number of overused wires.
func (s *State) RecomputeCongestion() int {
	for i := range s.Wires {
		s.Wires[i].CurrCong = 0
	}
	for _, nd := range s.Nets {
		for flat := range nd.BwdRouteTree {
			s.Wires[flat].CurrCong++
		}
	}
	overused := 0
	for i := range s.Wires {
		w := &s.Wires[i]
		if w.CurrCong > 1 {
			w.Flags |= FlagOverused
			overused++
		} else {
			w.Flags &^= FlagOverused
		}
	}
	return overused
}

// UpdateHistory adds factor per unit of overuse to every overused wire.
func (s *State) UpdateHistory(factor float64) {
	for i := range s.Wires {
		w := &s.Wires[i]
		if w.CurrCong > 1 {
			w.HistCong += float32(factor * float64(w.CurrCong-1))
		}
	}
}

// Overused counts wires used by more than one net.
func (s *State) Overused() int {
	n := 0
	for i := range s.Wires {
		if s.Wires[i].Curr() > 1 {
			n++
		}
	}
	return n
}

// NetOverused reports whether any wire of the net is overused.
func (s *State) NetOverused(nd *PerNetData) bool {
	for flat := range nd.BwdRouteTree {
		if s.Wires[flat].Curr() > 1 {
			return true
		}
	}
	return false
}

// OverusedWires returns the overused flat indices in increasing order.
func (s *State) OverusedWires() []int32 {
	var out []int32
	for i := range s.Wires {
		if s.Wires[i].Curr() > 1 {
			out = append(out, int32(i))
		}
	}
	return out
}

// WireCount returns the number of wires used over all nets.
func (s *State) WireCount() int {
	n := 0
	for _, nd := range s.Nets {
		n += len(nd.BwdRouteTree)
	}
	return n
}

type netSnapshot struct {
	tree   map[int32]arch.PipID
	sinks  map[int32][]SinkIdx
	status NetStatus
}

// snapshot is a copy of every route tree.
type snapshot struct {
	nets  []netSnapshot
	score int
}

func (s *State) snapshot(score int) *snapshot {
	snap := &snapshot{nets: make([]netSnapshot, len(s.Nets)), score: score}
	for i, nd := range s.Nets {
		ns := netSnapshot{
			tree:   make(map[int32]arch.PipID, len(nd.BwdRouteTree)),
			sinks:  make(map[int32][]SinkIdx, len(nd.Wire2Sinks)),
			status: nd.Status,
		}
		for k, v := range nd.BwdRouteTree {
			ns.tree[k] = v
		}
		for k, v := range nd.Wire2Sinks {
			ns.sinks[k] = append([]SinkIdx(nil), v...)
		}
		snap.nets[i] = ns
	}
	return snap
}

func (s *State) restore(snap *snapshot) {
	for i, nd := range s.Nets {
		nd.BwdRouteTree = snap.nets[i].tree
		nd.Wire2Sinks = snap.nets[i].sinks
		nd.Status = snap.nets[i].status
	}
	s.RecomputeCongestion()
}

// sortedFlats returns the keys of a route tree in increasing order.
func sortedFlats(tree map[int32]arch.PipID) []int32 {
	out := make([]int32, 0, len(tree))
	for k := range tree {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
