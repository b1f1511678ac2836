package netlist

import (
	"fmt"
	"io"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/chewxy/sexp"
)

// ReadSexp reads a placed design in s-expression form:
//
//	(design top
//	  (cell (name c0) (type LUT) (bel X0Y0/SLICE0) (pin I I0 I1))
//	  (net (name n0) (driver c0 O0) (user c1 I0 0.5) (user c2 I1)))
//
// The optional third element of a user is its criticality in [0, 1].
func ReadSexp(r io.Reader) (d *Design, err error) {
	defer func() {
		if p := recover(); p != nil {
			d, err = nil, fmt.Errorf("netlist: malformed design: %v", p)
		}
	}()

	exprs, err := sexp.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("netlist: parse error: %w", err)
	}
	for _, e := range exprs {
		items := listItems(e)
		if len(items) > 0 && atom(items[0]) == "design" {
			return readDesign(items)
		}
	}
	return nil, fmt.Errorf("netlist: no (design ...) form found")
}

// ReadFile reads a design from a file path.
func ReadFile(filename string) (*Design, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return ReadSexp(file)
}

func readDesign(items []sexp.Sexp) (*Design, error) {
	if len(items) < 2 || !isAtom(items[1]) {
		return nil, fmt.Errorf("netlist: design needs a name")
	}
	d := NewDesign(atom(items[1]))

	var nets [][]sexp.Sexp
	for _, item := range items[2:] {
		fields := listItems(item)
		if len(fields) == 0 {
			continue
		}
		switch atom(fields[0]) {
		case "cell":
			if err := readCell(d, fields[1:]); err != nil {
				return nil, err
			}
		case "net":
			nets = append(nets, fields[1:])
		default:
			return nil, fmt.Errorf("netlist: unexpected form %q in design", atom(fields[0]))
		}
	}
	// nets may reference cells declared after them
	for _, fields := range nets {
		if err := readNet(d, fields); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func readCell(d *Design, fields []sexp.Sexp) error {
	var name, typ, bel string
	pins := make(map[string][]string)
	for _, f := range fields {
		kv := atoms(f)
		if len(kv) < 2 {
			return fmt.Errorf("netlist: malformed cell field %s", f)
		}
		switch kv[0] {
		case "name":
			name = kv[1]
		case "type":
			typ = kv[1]
		case "bel":
			bel = kv[1]
		case "pin":
			if len(kv) < 3 {
				return fmt.Errorf("netlist: pin map of %q lists no bel pins", kv[1])
			}
			pins[kv[1]] = kv[2:]
		default:
			return fmt.Errorf("netlist: unknown cell field %q", kv[0])
		}
	}
	if name == "" {
		return fmt.Errorf("netlist: cell without a name")
	}
	c, err := d.AddCell(name, typ, bel)
	if err != nil {
		return err
	}
	if len(pins) > 0 {
		c.PinMap = pins
	}
	return nil
}

func readNet(d *Design, fields []sexp.Sexp) error {
	var name string
	var driver PortRef
	var users []PortRef
	for _, f := range fields {
		kv := atoms(f)
		if len(kv) < 2 {
			return fmt.Errorf("netlist: malformed net field %s", f)
		}
		switch kv[0] {
		case "name":
			name = kv[1]
		case "driver", "user":
			if len(kv) < 3 {
				return fmt.Errorf("netlist: net %s: %s needs a cell and a port", name, kv[0])
			}
			cell := d.Cell(kv[1])
			if cell == nil {
				return fmt.Errorf("netlist: net %s references unknown cell %q", name, kv[1])
			}
			ref := PortRef{Cell: cell, Port: kv[2]}
			if len(kv) > 3 {
				crit, err := strconv.ParseFloat(kv[3], 32)
				if err != nil || crit < 0 || crit > 1 {
					return fmt.Errorf("netlist: net %s: bad criticality %q", name, kv[3])
				}
				ref.Criticality = float32(crit)
			}
			if kv[0] == "driver" {
				driver = ref
			} else {
				users = append(users, ref)
			}
		default:
			return fmt.Errorf("netlist: unknown net field %q", kv[0])
		}
	}
	_, err := d.AddNet(name, driver, users...)
	return err
}

// listItems returns the elements of a list by walking Head and Tail. The walk
// stops at the first missing head, which is how an exhausted list presents.
func listItems(s sexp.Sexp) []sexp.Sexp {
	var items []sexp.Sexp
	for i := 0; i < 1<<20; i++ {
		if isNil(s) || s.IsLeaf() {
			break
		}
		head := safeHead(s)
		if isNil(head) {
			break
		}
		items = append(items, head)
		s = safeTail(s)
	}
	return items
}

func safeHead(s sexp.Sexp) (head sexp.Sexp) {
	defer func() {
		if recover() != nil {
			head = nil
		}
	}()
	return s.Head()
}

func safeTail(s sexp.Sexp) (tail sexp.Sexp) {
	defer func() {
		if recover() != nil {
			tail = nil
		}
	}()
	return s.Tail()
}

// atoms returns the leaf values of a flat list.
func atoms(s sexp.Sexp) []string {
	var out []string
	for _, item := range listItems(s) {
		if isAtom(item) {
			out = append(out, atom(item))
		}
	}
	return out
}

func isAtom(s sexp.Sexp) bool {
	return !isNil(s) && s.IsLeaf()
}

func atom(s sexp.Sexp) string {
	if !isAtom(s) {
		return ""
	}
	v := fmt.Sprint(s)
	if len(v) >= 2 && strings.HasPrefix(v, `"`) && strings.HasSuffix(v, `"`) {
		if unq, err := strconv.Unquote(v); err == nil {
			return unq
		}
		return v[1 : len(v)-1]
	}
	return v
}

func isNil(s sexp.Sexp) bool {
	if s == nil {
		return true
	}
	v := reflect.ValueOf(s)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface:
		return v.IsNil()
	}
	return false
}
