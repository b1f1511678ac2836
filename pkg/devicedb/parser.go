package devicedb

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/participle/v2"

	"github.com/OpenTraceLab/feline/pkg/arch"
)

// Parser reads device description files.
type Parser struct {
	parser *participle.Parser[File]
}

// NewParser creates a new device description parser.
func NewParser() (*Parser, error) {
	parser, err := participle.Build[File](
		participle.Lexer(DeviceLexer),
		participle.Elide("Comment", "Whitespace"),
		participle.Unquote("String"),
		participle.UseLookahead(2),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build parser: %w", err)
	}

	return &Parser{parser: parser}, nil
}

// Parse parses a description from a reader.
func (p *Parser) Parse(r io.Reader) (*File, error) {
	f, err := p.parser.Parse("", r)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return f, nil
}

// ParseString parses a description held in a string.
func (p *Parser) ParseString(input string) (*File, error) {
	f, err := p.parser.ParseString("", input)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return f, nil
}

// ParseFile parses a description from a file path.
func (p *Parser) ParseFile(filename string) (*File, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return p.Parse(file)
}

// LoadFile parses and compiles a description file in one step.
func LoadFile(filename string) (*arch.GridDevice, error) {
	p, err := NewParser()
	if err != nil {
		return nil, err
	}
	f, err := p.ParseFile(filename)
	if err != nil {
		return nil, err
	}
	return Compile(f)
}

// LoadString parses and compiles a description held in a string.
func LoadString(input string) (*arch.GridDevice, error) {
	p, err := NewParser()
	if err != nil {
		return nil, err
	}
	f, err := p.ParseString(input)
	if err != nil {
		return nil, err
	}
	return Compile(f)
}
