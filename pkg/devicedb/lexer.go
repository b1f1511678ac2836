package devicedb

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// DeviceLexer tokenises device description files.
var DeviceLexer = lexer.MustSimple([]lexer.SimpleRule{
	// Comments run from # to end of line
	{Name: "Comment", Pattern: `#[^\n]*`},
	{Name: "Whitespace", Pattern: `[\s\t\n\r]+`},

	// Structure
	{Name: "KwDevice", Pattern: `\bdevice\b`},
	{Name: "KwGrid", Pattern: `\bgrid\b`},
	{Name: "KwHole", Pattern: `\bhole\b`},
	{Name: "KwSkip", Pattern: `\bskip\b`},

	// Generated fabric
	{Name: "KwTracks", Pattern: `\btracks\b`},
	{Name: "KwBels", Pattern: `\bbels\b`},
	{Name: "KwInputs", Pattern: `\binputs\b`},
	{Name: "KwOutputs", Pattern: `\boutputs\b`},
	{Name: "KwSwitch", Pattern: `\bswitch\b`},
	{Name: "KwDelay", Pattern: `\bdelay\b`},

	// Channel model
	{Name: "KwChannel", Pattern: `\bchannel\b`},
	{Name: "KwHorizontal", Pattern: `\bhorizontal\b`},
	{Name: "KwVertical", Pattern: `\bvertical\b`},
	{Name: "KwWidth", Pattern: `\bwidth\b`},
	{Name: "KwHops", Pattern: `\bhops\b`},

	// Explicit graph
	{Name: "KwWire", Pattern: `\bwire\b`},
	{Name: "KwPip", Pattern: `\bpip\b`},
	{Name: "KwBel", Pattern: `\bbel\b`},
	{Name: "KwPin", Pattern: `\bpin\b`},
	{Name: "KwAt", Pattern: `\bat\b`},
	{Name: "KwTo", Pattern: `\bto\b`},

	{Name: "LBrace", Pattern: `\{`},
	{Name: "RBrace", Pattern: `\}`},
	{Name: "Semicolon", Pattern: `;`},

	{Name: "String", Pattern: `"(?:[^"\\]|\\.)*"`},
	{Name: "Real", Pattern: `[-+]?[0-9]+\.[0-9]+([eE][-+]?[0-9]+)?`},
	{Name: "Integer", Pattern: `[-+]?[0-9]+`},

	// Wire and bel names may carry hierarchy separators
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_./\[\]$]*`},
	{Name: "Asterisk", Pattern: `\*`},
})
