package devicedb

// File is a parsed device description.
type File struct {
	Device *Device `parser:"@@"`
}

// Device is the top-level block.
// Example: device "demo" { grid 8 8; tracks 4; }
type Device struct {
	Name  string  `parser:"KwDevice @( String | Ident ) LBrace"`
	Stmts []*Stmt `parser:"@@* RBrace"`
}

// Stmt is one statement inside the device block.
type Stmt struct {
	Grid    *GridStmt    `parser:"  @@"`
	Tracks  *TracksStmt  `parser:"| @@"`
	Bels    *BelsStmt    `parser:"| @@"`
	Switch  *SwitchStmt  `parser:"| @@"`
	Channel *ChannelStmt `parser:"| @@"`
	Hole    *HoleStmt    `parser:"| @@"`
	Skip    *SkipStmt    `parser:"| @@"`
	Wire    *WireStmt    `parser:"| @@"`
	Pip     *PipStmt     `parser:"| @@"`
	Bel     *BelStmt     `parser:"| @@"`
}

// GridStmt sets the device size in tiles.
type GridStmt struct {
	Width  int `parser:"KwGrid @Integer"`
	Height int `parser:"@Integer Semicolon"`
}

// Delay is an optional delay annotation.
type Delay struct {
	Value float64 `parser:"KwDelay @( Real | Integer )"`
}

// TracksStmt requests a generated island fabric.
// Example: tracks 4 delay 1.0;
type TracksStmt struct {
	Count int    `parser:"KwTracks @Integer"`
	Delay *Delay `parser:"@@? Semicolon"`
}

// BelsStmt adds generated logic bels to every tile.
// Example: bels 2 inputs 4 outputs 1;
type BelsStmt struct {
	Count   int `parser:"KwBels @Integer"`
	Inputs  int `parser:"KwInputs @Integer"`
	Outputs int `parser:"( KwOutputs @Integer )? Semicolon"`
}

// SwitchStmt sets the switch box pip delay.
type SwitchStmt struct {
	Delay float64 `parser:"KwSwitch KwDelay @( Real | Integer ) Semicolon"`
}

// ChannelStmt declares a channel resource.
// Example: channel vertical width 4 hops -1 1;
type ChannelStmt struct {
	Dir   string `parser:"KwChannel @( KwHorizontal | KwVertical )"`
	Width int    `parser:"KwWidth @Integer"`
	Hops  []int  `parser:"KwHops @Integer+ Semicolon"`
}

// HoleStmt marks a tile without routing.
type HoleStmt struct {
	X int `parser:"KwHole @Integer"`
	Y int `parser:"@Integer Semicolon"`
}

// SkipStmt excludes a cell port from Steiner guidance.
// Example: skip GLOBAL_BUF I;
type SkipStmt struct {
	CellType string `parser:"KwSkip @( Ident | Asterisk )"`
	Port     string `parser:"@Ident Semicolon"`
}

// Point is a tile coordinate.
type Point struct {
	X int `parser:"@Integer"`
	Y int `parser:"@Integer"`
}

// WireStmt declares an explicit wire.
// Example: wire W0 at 0 0 to 1 0 delay 1.0;
type WireStmt struct {
	Name  string `parser:"KwWire @Ident KwAt"`
	From  *Point `parser:"@@"`
	To    *Point `parser:"( KwTo @@ )?"`
	Delay *Delay `parser:"@@? Semicolon"`
}

// PipStmt declares an explicit pip.
type PipStmt struct {
	Src   string `parser:"KwPip @Ident"`
	Dst   string `parser:"@Ident"`
	Delay *Delay `parser:"@@? Semicolon"`
}

// BelStmt declares an explicit bel with its pins.
// Example: bel B0 at 0 0 { pin O W0; }
type BelStmt struct {
	Name string     `parser:"KwBel @Ident KwAt"`
	At   *Point     `parser:"@@ LBrace"`
	Pins []*PinStmt `parser:"@@* RBrace"`
}

// PinStmt ties a bel pin to a wire.
type PinStmt struct {
	Name string `parser:"KwPin @Ident"`
	Wire string `parser:"@Ident Semicolon"`
}
