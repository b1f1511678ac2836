package ui

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"gioui.org/app"
	"gioui.org/f32"
	"gioui.org/io/event"
	"gioui.org/io/key"
	"gioui.org/io/pointer"
	"gioui.org/io/system"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/unit"
	"gioui.org/widget"
	"gioui.org/widget/material"
	"github.com/oligo/gioview/theme"
	"golang.org/x/exp/shiny/materialdesign/icons"
	"k8s.io/klog/v2"
)

type navEntry struct {
	layer Layer
	icon  *widget.Icon
	click widget.Clickable
}

// App drives the Gio routing viewer.
type App struct {
	Window  *app.Window
	State   *AppState
	Camera  *Camera
	gvTheme *theme.Theme

	ops op.Ops

	navEntries []navEntry
	fitBtn     widget.Clickable
	prevBtn    widget.Clickable
	nextBtn    widget.Clickable
	fitIcon    *widget.Icon

	viewport int // event tag
	fitted   bool
	dragging bool
	lastDrag f32.Point
}

// New wires the window, theme and state together.
func New(window *app.Window, state *AppState) *App {
	if state == nil {
		state = NewState()
	}
	gv := theme.NewTheme("", nil, true)
	gv.WithPalette(theme.Palette{
		Bg:         color.NRGBA{R: 245, G: 247, B: 253, A: 255},
		Fg:         color.NRGBA{R: 34, G: 37, B: 49, A: 255},
		ContrastBg: color.NRGBA{R: 80, G: 120, B: 255, A: 255},
		ContrastFg: color.NRGBA{R: 255, G: 255, B: 255, A: 255},
		Bg2:        color.NRGBA{R: 225, G: 230, B: 244, A: 255},
	})
	a := &App{
		Window:  window,
		State:   state,
		Camera:  NewCamera(1024, 720),
		gvTheme: gv,
	}
	a.initNavigation()
	return a
}

// Run processes Gio events until the window is closed.
func (a *App) Run() error {
	for {
		switch ev := a.Window.Event().(type) {
		case app.DestroyEvent:
			return ev.Err
		case app.FrameEvent:
			gtx := app.NewContext(&a.ops, ev)
			a.layout(gtx)
			ev.Frame(gtx.Ops)
		}
	}
}

func (a *App) initNavigation() {
	makeIcon := func(data []byte, name string) *widget.Icon {
		icon, err := widget.NewIcon(data)
		if err != nil {
			klog.ErrorS(err, "Failed to load icon", "icon", name)
			return nil
		}
		return icon
	}
	a.navEntries = []navEntry{
		{layer: LayerWires, icon: makeIcon(icons.HardwareDeveloperBoard, "wires")},
		{layer: LayerTrees, icon: makeIcon(icons.ActionTimeline, "trees")},
		{layer: LayerHeat, icon: makeIcon(icons.SocialWhatsHot, "heat")},
	}
	a.fitIcon = makeIcon(icons.ActionAutorenew, "fit")
}

func (a *App) invalidate() {
	if a.Window != nil {
		a.Window.Invalidate()
	}
}

// handleKey applies a key press and reports whether the viewer should close.
func (a *App) handleKey(name key.Name) bool {
	switch name {
	case key.NameEscape:
		a.State.ClearSelection()
	case "Q":
		return true
	case key.NameSpace, "F":
		a.Camera.Fit(a.State.Bounds())
	case key.NameRightArrow, "N":
		a.State.StepSelection(1)
	case key.NameLeftArrow, "P":
		a.State.StepSelection(-1)
	case "+", "=":
		a.Camera.ZoomAt(float64(a.Camera.ScreenWidth)/2, float64(a.Camera.ScreenHeight)/2, 1.2)
	case "-":
		a.Camera.ZoomAt(float64(a.Camera.ScreenWidth)/2, float64(a.Camera.ScreenHeight)/2, 1/1.2)
	case "W":
		a.State.ToggleLayer(LayerWires)
	case "T":
		a.State.ToggleLayer(LayerTrees)
	case "H":
		a.State.ToggleLayer(LayerHeat)
	}
	return false
}

func (a *App) layout(gtx layout.Context) layout.Dimensions {
	for {
		ev, ok := gtx.Event(key.Filter{})
		if !ok {
			break
		}
		if ke, ok := ev.(key.Event); ok && ke.State == key.Press {
			if a.handleKey(ke.Name) {
				a.Window.Perform(system.ActionClose)
				klog.V(2).InfoS("Viewer closed by key", "key", ke.Name)
			}
			a.invalidate()
		}
	}

	state := a.State.Snapshot()
	paint.FillShape(gtx.Ops, a.gvTheme.Palette.Bg, clip.Rect{Max: gtx.Constraints.Max}.Op())

	return layout.Flex{Axis: layout.Horizontal}.Layout(gtx,
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return a.layoutNavigation(gtx, state)
		}),
		layout.Flexed(1, func(gtx layout.Context) layout.Dimensions {
			return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
				layout.Rigid(func(gtx layout.Context) layout.Dimensions {
					return a.layoutTopBar(gtx, state)
				}),
				layout.Flexed(1, func(gtx layout.Context) layout.Dimensions {
					return a.layoutViewport(gtx, state)
				}),
				layout.Rigid(func(gtx layout.Context) layout.Dimensions {
					return a.layoutStatus(gtx, state)
				}),
			)
		}),
	)
}

func (a *App) layoutNavigation(gtx layout.Context, state StateSnapshot) layout.Dimensions {
	width := gtx.Dp(unit.Dp(64))
	gtx.Constraints.Min.X = width
	gtx.Constraints.Max.X = width
	return layout.Stack{}.Layout(gtx,
		layout.Expanded(func(gtx layout.Context) layout.Dimensions {
			paint.FillShape(gtx.Ops, color.NRGBA{R: 45, G: 50, B: 68, A: 255}, clip.Rect{Max: gtx.Constraints.Max}.Op())
			return layout.Dimensions{Size: gtx.Constraints.Max}
		}),
		layout.Stacked(func(gtx layout.Context) layout.Dimensions {
			return layout.Inset{Top: unit.Dp(16), Left: unit.Dp(8), Right: unit.Dp(8)}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
				children := make([]layout.FlexChild, 0, len(a.navEntries)*2+1)
				for i := range a.navEntries {
					entry := &a.navEntries[i]
					for entry.click.Clicked(gtx) {
						a.State.ToggleLayer(entry.layer)
						a.invalidate()
					}
					on := state.Layers[entry.layer]
					children = append(children, layout.Rigid(func(gtx layout.Context) layout.Dimensions {
						return a.layoutNavButton(gtx, &entry.click, entry.icon, on)
					}))
					children = append(children, layout.Rigid(layout.Spacer{Height: unit.Dp(8)}.Layout))
				}
				for a.fitBtn.Clicked(gtx) {
					a.Camera.Fit(a.State.Bounds())
					a.invalidate()
				}
				children = append(children, layout.Rigid(func(gtx layout.Context) layout.Dimensions {
					return a.layoutNavButton(gtx, &a.fitBtn, a.fitIcon, false)
				}))
				return layout.Flex{Axis: layout.Vertical}.Layout(gtx, children...)
			})
		}),
	)
}

func (a *App) layoutNavButton(gtx layout.Context, click *widget.Clickable, icon *widget.Icon, on bool) layout.Dimensions {
	size := image.Pt(gtx.Constraints.Max.X, gtx.Dp(unit.Dp(44)))
	gtx.Constraints.Min = size
	gtx.Constraints.Max = size
	bg := color.NRGBA{R: 45, G: 50, B: 68, A: 255}
	if click.Hovered() {
		bg = color.NRGBA{R: 60, G: 66, B: 88, A: 255}
	}
	if on {
		bg = a.gvTheme.Palette.ContrastBg
	}
	return click.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		rr := gtx.Dp(unit.Dp(8))
		paint.FillShape(gtx.Ops, bg, clip.RRect{Rect: image.Rectangle{Max: size}, NW: rr, NE: rr, SW: rr, SE: rr}.Op(gtx.Ops))
		return layout.Center.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
			s := gtx.Dp(unit.Dp(26))
			gtx.Constraints.Min = image.Pt(s, s)
			gtx.Constraints.Max = gtx.Constraints.Min
			if icon == nil {
				return layout.Dimensions{Size: gtx.Constraints.Min}
			}
			return icon.Layout(gtx, color.NRGBA{R: 240, G: 244, B: 255, A: 255})
		})
	})
}

func (a *App) layoutTopBar(gtx layout.Context, state StateSnapshot) layout.Dimensions {
	for a.prevBtn.Clicked(gtx) {
		a.State.StepSelection(-1)
		a.invalidate()
	}
	for a.nextBtn.Clicked(gtx) {
		a.State.StepSelection(1)
		a.invalidate()
	}
	title := "All nets"
	if state.Selected >= 0 && state.Selected < len(state.Nets) {
		n := state.Nets[state.Selected]
		title = fmt.Sprintf("%s (%s, %d wires)", n.Name, n.Status, len(n.Wires))
	}
	th := a.gvTheme.Theme
	return layout.Inset{Top: unit.Dp(8), Bottom: unit.Dp(8), Left: unit.Dp(16), Right: unit.Dp(16)}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		return layout.Flex{Axis: layout.Horizontal, Alignment: layout.Middle}.Layout(gtx,
			layout.Rigid(material.H6(th, title).Layout),
			layout.Flexed(1, func(gtx layout.Context) layout.Dimensions { return layout.Dimensions{} }),
			layout.Rigid(func(gtx layout.Context) layout.Dimensions {
				btn := material.Button(th, &a.prevBtn, "Prev")
				btn.Inset = layout.UniformInset(unit.Dp(6))
				return btn.Layout(gtx)
			}),
			layout.Rigid(layout.Spacer{Width: unit.Dp(8)}.Layout),
			layout.Rigid(func(gtx layout.Context) layout.Dimensions {
				btn := material.Button(th, &a.nextBtn, "Next")
				btn.Inset = layout.UniformInset(unit.Dp(6))
				return btn.Layout(gtx)
			}),
		)
	})
}

func (a *App) layoutStatus(gtx layout.Context, state StateSnapshot) layout.Dimensions {
	text := state.Status
	if state.Hover.IsValid() {
		text += fmt.Sprintf("   %v", state.Hover)
		if names := a.State.NetsAt(state.Hover); len(names) > 0 {
			text += ": " + strings.Join(names, ", ")
		}
	}
	return layout.Stack{}.Layout(gtx,
		layout.Expanded(func(gtx layout.Context) layout.Dimensions {
			paint.FillShape(gtx.Ops, a.gvTheme.Bg2, clip.Rect{Max: gtx.Constraints.Min}.Op())
			return layout.Dimensions{Size: gtx.Constraints.Min}
		}),
		layout.Stacked(func(gtx layout.Context) layout.Dimensions {
			gtx.Constraints.Min.X = gtx.Constraints.Max.X
			return layout.UniformInset(unit.Dp(6)).Layout(gtx, material.Body2(a.gvTheme.Theme, text).Layout)
		}),
	)
}

func (a *App) layoutViewport(gtx layout.Context, state StateSnapshot) layout.Dimensions {
	size := gtx.Constraints.Max
	a.Camera.UpdateScreenSize(size.X, size.Y)
	if !a.fitted && state.Width > 0 {
		a.Camera.Fit(a.State.Bounds())
		a.fitted = true
	}

	for {
		ev, ok := gtx.Event(pointer.Filter{
			Target:  &a.viewport,
			Kinds:   pointer.Press | pointer.Release | pointer.Drag | pointer.Move | pointer.Scroll,
			ScrollY: pointer.ScrollRange{Min: -100, Max: 100},
		})
		if !ok {
			break
		}
		pe, ok := ev.(pointer.Event)
		if !ok {
			continue
		}
		switch pe.Kind {
		case pointer.Press:
			if pe.Buttons == pointer.ButtonPrimary {
				a.dragging = true
				a.lastDrag = pe.Position
			}
		case pointer.Release:
			a.dragging = false
		case pointer.Drag:
			if a.dragging {
				d := pe.Position.Sub(a.lastDrag)
				a.Camera.Pan(float64(d.X), float64(d.Y))
				a.lastDrag = pe.Position
			}
		case pointer.Move:
			a.State.SetHover(a.Camera.CellAt(float64(pe.Position.X), float64(pe.Position.Y)))
		case pointer.Scroll:
			factor := 1.0 - float64(pe.Scroll.Y)*0.01
			if factor < 0.5 {
				factor = 0.5
			}
			a.Camera.ZoomAt(float64(pe.Position.X), float64(pe.Position.Y), factor)
		}
		a.invalidate()
	}

	area := clip.Rect{Max: size}.Push(gtx.Ops)
	event.Op(gtx.Ops, &a.viewport)
	paint.Fill(gtx.Ops, color.NRGBA{R: 24, G: 27, B: 36, A: 255})
	renderRouting(gtx, a.Camera, state)
	area.Pop()
	return layout.Dimensions{Size: size}
}
