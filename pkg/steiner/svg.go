package steiner

import (
	"bufio"
	"fmt"
	"io"
)

const svgScale = 40

// WriteSVG draws the tree: edges as lines, the source in red, ports in blue
// and Steiner points as small grey squares. Y grows upwards.
func (t *Tree) WriteSVG(w io.Writer) error {
	box := t.Box
	for c := range t.Nodes {
		box.Extend(c)
	}
	width := (box.Width() + 1) * svgScale
	height := (box.Height() + 1) * svgScale
	px := func(x int16) int { return (int(x)-int(box.X0))*svgScale + svgScale }
	py := func(y int16) int { return height - ((int(y)-int(box.Y0))*svgScale + svgScale) }

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "<svg xmlns=\"http://www.w3.org/2000/svg\" width=\"%d\" height=\"%d\" viewBox=\"0 0 %d %d\">\n",
		width, height, width, height)
	fmt.Fprintf(bw, "<rect width=\"%d\" height=\"%d\" fill=\"white\"/>\n", width, height)
	for _, e := range t.Edges() {
		fmt.Fprintf(bw, "<line x1=\"%d\" y1=\"%d\" x2=\"%d\" y2=\"%d\" stroke=\"black\" stroke-width=\"2\"/>\n",
			px(e.From.X), py(e.From.Y), px(e.To.X), py(e.To.Y))
	}
	for _, c := range t.Cells() {
		n := t.Nodes[c]
		switch {
		case c == t.Source:
			fmt.Fprintf(bw, "<circle cx=\"%d\" cy=\"%d\" r=\"7\" fill=\"red\"><title>source %v</title></circle>\n",
				px(c.X), py(c.Y), c)
		case n.PortCount > 0:
			fmt.Fprintf(bw, "<circle cx=\"%d\" cy=\"%d\" r=\"5\" fill=\"blue\"><title>port %v crit=%.2f</title></circle>\n",
				px(c.X), py(c.Y), c, n.Criticality)
		default:
			fmt.Fprintf(bw, "<rect x=\"%d\" y=\"%d\" width=\"6\" height=\"6\" fill=\"grey\"/>\n",
				px(c.X)-3, py(c.Y)-3)
		}
	}
	fmt.Fprintln(bw, "</svg>")
	return bw.Flush()
}
