package ui

import (
	"math"

	"github.com/OpenTraceLab/feline/pkg/gcell"
)

// Camera maps grid coordinates to screen pixels. One world unit is one
// GCell; world Y grows upwards, screen Y grows downwards.
type Camera struct {
	CenterX float64
	CenterY float64
	Zoom    float64 // pixels per cell

	ScreenWidth  int
	ScreenHeight int
}

const (
	minZoom = 0.1
	maxZoom = 1000
)

// NewCamera creates a camera centred on the origin.
func NewCamera(width, height int) *Camera {
	return &Camera{Zoom: 1, ScreenWidth: width, ScreenHeight: height}
}

// WorldToScreen converts grid coordinates to screen coordinates.
func (c *Camera) WorldToScreen(x, y float64) (float64, float64) {
	sx := (x-c.CenterX)*c.Zoom + float64(c.ScreenWidth)/2
	sy := -(y-c.CenterY)*c.Zoom + float64(c.ScreenHeight)/2
	return sx, sy
}

// ScreenToWorld converts screen coordinates to grid coordinates.
func (c *Camera) ScreenToWorld(sx, sy float64) (float64, float64) {
	x := (sx-float64(c.ScreenWidth)/2)/c.Zoom + c.CenterX
	y := -(sy-float64(c.ScreenHeight)/2)/c.Zoom + c.CenterY
	return x, y
}

// CellAt returns the cell under a screen position.
func (c *Camera) CellAt(sx, sy float64) gcell.GCell {
	x, y := c.ScreenToWorld(sx, sy)
	return gcell.New(int(math.Floor(x)), int(math.Floor(y)))
}

// Pan moves the camera by a screen space delta.
func (c *Camera) Pan(dx, dy float64) {
	c.CenterX -= dx / c.Zoom
	c.CenterY += dy / c.Zoom
}

// ZoomAt zooms by factor keeping the world point under (sx, sy) fixed.
func (c *Camera) ZoomAt(sx, sy, factor float64) {
	wx, wy := c.ScreenToWorld(sx, sy)
	c.Zoom *= factor
	if c.Zoom < minZoom {
		c.Zoom = minZoom
	}
	if c.Zoom > maxZoom {
		c.Zoom = maxZoom
	}
	nx, ny := c.ScreenToWorld(sx, sy)
	c.CenterX += wx - nx
	c.CenterY += wy - ny
}

// Fit centres box on screen with a small margin. The box is inclusive, so
// a cell (x, y) covers [x, x+1) in world space.
func (c *Camera) Fit(box gcell.GBox) {
	if box.Empty() || c.ScreenWidth <= 0 || c.ScreenHeight <= 0 {
		return
	}
	w := float64(box.X1-box.X0) + 1
	h := float64(box.Y1-box.Y0) + 1
	c.CenterX = float64(box.X0) + w/2
	c.CenterY = float64(box.Y0) + h/2

	zx := float64(c.ScreenWidth) * 0.9 / w
	zy := float64(c.ScreenHeight) * 0.9 / h
	c.Zoom = math.Min(zx, zy)
}

// UpdateScreenSize updates the camera when the viewport is resized.
func (c *Camera) UpdateScreenSize(width, height int) {
	c.ScreenWidth = width
	c.ScreenHeight = height
}
