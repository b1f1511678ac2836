// Package ui is the Gio viewer for routed designs: the grid with its holes,
// the wires bound to every net, Steiner trees and a channel congestion heat
// map.
package ui

import (
	"os"

	"gioui.org/app"
	"gioui.org/unit"
	"k8s.io/klog/v2"
)

// Run launches the Gio UI and blocks until the window closes.
func Run(title string, state *AppState) error {
	if state == nil {
		state = NewState()
	}

	go func() {
		w := new(app.Window)
		w.Option(app.Title(title), app.Size(unit.Dp(1024), unit.Dp(720)))
		ui := New(w, state)
		if err := ui.Run(); err != nil {
			klog.ErrorS(err, "Viewer failed")
		}
		klog.Flush()
		os.Exit(0)
	}()

	app.Main()
	return nil
}
