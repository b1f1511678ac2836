// Package arch describes the target device seen by the router: the detailed
// wire and pip graph, and the capability interface the router needs on top
// of it.
package arch

import (
	"fmt"

	"github.com/OpenTraceLab/feline/pkg/gcell"
)

// WireID identifies a routing wire. IDs are stable for the lifetime of a Device.
type WireID int32

// PipID identifies a programmable interconnect point joining two wires.
type PipID int32

// BelID identifies a placement site.
type BelID int32

const (
	NoWire WireID = -1
	NoPip  PipID  = -1
	NoBel  BelID  = -1
)

// Loc is a tile position plus a slot index within the tile.
type Loc struct {
	X, Y, Z int
}

func (l Loc) String() string {
	return fmt.Sprintf("X%dY%d/%d", l.X, l.Y, l.Z)
}

// Cell returns the grid cell of the tile holding l.
func (l Loc) Cell() gcell.GCell {
	return gcell.New(l.X, l.Y)
}

// Device is the detailed routing graph of a chip. Every method is a pure
// query; slices are returned in a deterministic order and must not be
// modified by the caller.
type Device interface {
	Name() string
	Width() int
	Height() int

	Wires() []WireID
	WireName(w WireID) string
	WireByName(name string) WireID
	// WireBox returns the tiles spanned by the wire.
	WireBox(w WireID) gcell.GBox
	WireDelay(w WireID) float64
	PipsDownhill(w WireID) []PipID
	PipsUphill(w WireID) []PipID

	Pips() []PipID
	PipSrcWire(p PipID) WireID
	PipDstWire(p PipID) WireID
	PipDelay(p PipID) float64
	PipName(p PipID) string

	Bels() []BelID
	BelByName(name string) BelID
	BelName(b BelID) string
	BelLocation(b BelID) Loc
	// BelPinWire returns the wire a bel pin is tied to, or NoWire.
	BelPinWire(b BelID, pin string) WireID
}
