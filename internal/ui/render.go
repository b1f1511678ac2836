package ui

import (
	"image"
	"image/color"
	"math"

	"gioui.org/f32"
	"gioui.org/layout"
	"gioui.org/op/clip"
	"gioui.org/op/paint"

	"github.com/OpenTraceLab/feline/pkg/gcell"
)

var (
	colorTile     = color.NRGBA{R: 40, G: 44, B: 58, A: 255}
	colorHole     = color.NRGBA{R: 16, G: 18, B: 24, A: 255}
	colorTree     = color.NRGBA{R: 250, G: 250, B: 250, A: 160}
	colorOverused = color.NRGBA{R: 255, G: 60, B: 60, A: 255}
	colorSource   = color.NRGBA{R: 255, G: 255, B: 255, A: 255}

	netPalette = []color.NRGBA{
		{R: 80, G: 160, B: 255, A: 255},
		{R: 120, G: 220, B: 120, A: 255},
		{R: 255, G: 190, B: 70, A: 255},
		{R: 200, G: 120, B: 255, A: 255},
		{R: 70, G: 220, B: 210, A: 255},
		{R: 255, G: 130, B: 180, A: 255},
	}
)

// NetColor returns the colour of net i.
func NetColor(i int) color.NRGBA {
	return netPalette[i%len(netPalette)]
}

// HeatColor maps a utilisation to a translucent green to red ramp. Values
// at or above 1 are fully red.
func HeatColor(u float64) color.NRGBA {
	t := math.Max(0, math.Min(u, 1))
	alpha := uint8(60 + 140*t)
	return color.NRGBA{R: uint8(255 * t), G: uint8(200 * (1 - t)), B: 40, A: alpha}
}

func dim(c color.NRGBA) color.NRGBA {
	c.A = 70
	return c
}

func renderRouting(gtx layout.Context, cam *Camera, s StateSnapshot) {
	holes := make(map[gcell.GCell]bool, len(s.Holes))
	for _, h := range s.Holes {
		holes[h] = true
	}
	gap := float32(math.Max(1, cam.Zoom*0.04))
	for y := 0; y < s.Height; y++ {
		for x := 0; x < s.Width; x++ {
			c := gcell.New(x, y)
			col := colorTile
			if holes[c] {
				col = colorHole
			}
			fillCell(gtx, cam, c, gap, col)
			if u, ok := s.Heat[c]; ok && s.Layers[LayerHeat] {
				fillCell(gtx, cam, c, gap, HeatColor(u))
			}
		}
	}

	width := float32(math.Max(1, cam.Zoom*0.08))
	for i := range s.Nets {
		if s.Selected >= 0 && i == s.Selected {
			continue
		}
		col := NetColor(i)
		if s.Selected >= 0 {
			col = dim(col)
		}
		drawNet(gtx, cam, s, &s.Nets[i], col, width)
	}
	if s.Selected >= 0 && s.Selected < len(s.Nets) {
		drawNet(gtx, cam, s, &s.Nets[s.Selected], NetColor(s.Selected), width*2)
	}
}

func drawNet(gtx layout.Context, cam *Camera, s StateSnapshot, n *NetView, col color.NRGBA, width float32) {
	if s.Layers[LayerWires] {
		for _, w := range n.Wires {
			c := col
			if w.Overused {
				c = colorOverused
			}
			if w.X0 == w.X1 && w.Y0 == w.Y1 {
				dot(gtx, cam, w.X0, w.Y0, float64(width)*1.5/cam.Zoom, c)
				continue
			}
			line(gtx, cam, w.X0, w.Y0, w.X1, w.Y1, width, c)
		}
	}
	if s.Layers[LayerTrees] {
		for _, e := range n.Tree {
			line(gtx, cam, float64(e.From.X)+0.5, float64(e.From.Y)+0.5,
				float64(e.To.X)+0.5, float64(e.To.Y)+0.5, math32Max(1, width/2), colorTree)
		}
	}
	r := 0.12
	for _, p := range n.Ports {
		dot(gtx, cam, float64(p.X)+0.5, float64(p.Y)+0.5, r, col)
	}
	if n.Source.IsValid() {
		dot(gtx, cam, float64(n.Source.X)+0.5, float64(n.Source.Y)+0.5, r*1.5, colorSource)
	}
}

func math32Max(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func fillCell(gtx layout.Context, cam *Camera, c gcell.GCell, gap float32, col color.NRGBA) {
	x0, y1 := cam.WorldToScreen(float64(c.X), float64(c.Y))
	x1, y0 := cam.WorldToScreen(float64(c.X)+1, float64(c.Y)+1)
	r := image.Rect(int(float32(x0)+gap), int(float32(y0)+gap), int(float32(x1)-gap), int(float32(y1)-gap))
	if r.Empty() {
		return
	}
	paint.FillShape(gtx.Ops, col, clip.Rect(r).Op())
}

func line(gtx layout.Context, cam *Camera, x0, y0, x1, y1 float64, width float32, col color.NRGBA) {
	sx0, sy0 := cam.WorldToScreen(x0, y0)
	sx1, sy1 := cam.WorldToScreen(x1, y1)
	var p clip.Path
	p.Begin(gtx.Ops)
	p.MoveTo(f32.Pt(float32(sx0), float32(sy0)))
	p.LineTo(f32.Pt(float32(sx1), float32(sy1)))
	paint.FillShape(gtx.Ops, col, clip.Stroke{Path: p.End(), Width: width}.Op())
}

func dot(gtx layout.Context, cam *Camera, x, y, r float64, col color.NRGBA) {
	sx, sy := cam.WorldToScreen(x, y)
	sr := r * cam.Zoom
	if sr < 1.5 {
		sr = 1.5
	}
	rect := image.Rect(int(sx-sr), int(sy-sr), int(sx+sr), int(sy+sr))
	paint.FillShape(gtx.Ops, col, clip.Ellipse(rect).Op(gtx.Ops))
}
