package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/OpenTraceLab/feline/internal/ui"
	"github.com/OpenTraceLab/feline/pkg/route"
)

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Route a design and open the routing viewer",
	Long: `Route a design and show the result in a window: the tile grid, the wires of
every net, the Steiner trees and a channel congestion heat map.

Keys:
  Left/Right, P/N   select previous/next net
  Escape            clear selection
  W, T, H           toggle wires, trees and heat map
  Space, F          fit the grid to the window
  +, -              zoom
  Q                 quit

Examples:
  feline view --device testdata/demo.fdl --design testdata/counter.sexp
  feline view --device dev.fdl --design top.sexp --net n0`,
	Args: cobra.NoArgs,
	RunE: runView,
}

var viewNet string

func init() {
	rootCmd.AddCommand(viewCmd)
	addInputFlags(viewCmd)
	viewCmd.Flags().StringVar(&viewNet, "net", "", "select this net on startup")
}

func runView(cmd *cobra.Command, args []string) error {
	dev, design, r, res, err := routeDesign(cmd)
	if err != nil && !errors.Is(err, route.ErrNotConverged) {
		return err
	}
	if err != nil {
		klog.InfoS("Showing unconverged routing", "err", err)
	}

	state := ui.NewState()
	state.Load(dev, dev.API(), r, res)
	if viewNet != "" && !state.SelectNet(viewNet) {
		return fmt.Errorf("net %q not found", viewNet)
	}
	return ui.Run(fmt.Sprintf("Feline - %s on %s", design.Name, dev.Name()), state)
}
