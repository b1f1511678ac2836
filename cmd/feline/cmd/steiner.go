package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/feline/pkg/gcell"
	"github.com/OpenTraceLab/feline/pkg/route"
)

var (
	steinerNet  string
	steinerSVG  string
	steinerDump bool
)

var steinerCmd = &cobra.Command{
	Use:   "steiner",
	Short: "Show the Steiner trees planned for a design",
	Long: `Build the global routing plan of a design without detail routing and print
the Steiner tree of each net: its edges, wirelength, sink order and the ports
below every node.

Examples:
  feline steiner --device testdata/demo.fdl --design testdata/counter.sexp
  feline steiner --device dev.fdl --design top.sexp --net n0 --svg n0.svg
  feline steiner --device dev.fdl --design top.sexp --net n0 --alpha 0.2 --dump`,
	Args: cobra.NoArgs,
	RunE: runSteiner,
}

func init() {
	rootCmd.AddCommand(steinerCmd)
	addInputFlags(steinerCmd)

	steinerCmd.Flags().StringVar(&steinerNet, "net", "", "only show this net")
	steinerCmd.Flags().Float32Var(&routeAlpha, "alpha", 0, "Steiner tree tradeoff, 1 favours wirelength")
	steinerCmd.Flags().StringVar(&steinerSVG, "svg", "", "write the tree of --net as SVG")
	steinerCmd.Flags().BoolVar(&steinerDump, "dump", false, "dump the tree structure")
}

func runSteiner(cmd *cobra.Command, args []string) error {
	if steinerSVG != "" && steinerNet == "" {
		return fmt.Errorf("--svg requires --net")
	}
	dev, design, err := loadInputs()
	if err != nil {
		return err
	}
	cfg, err := routerConfig(cmd)
	if err != nil {
		return err
	}
	r, err := route.NewRouter(dev, dev.API(), design, cfg)
	if err != nil {
		return err
	}
	if err := r.Setup(); err != nil {
		return err
	}

	found := false
	for _, nd := range r.State().Nets {
		if steinerNet != "" && nd.Net.Name != steinerNet {
			continue
		}
		found = true
		printTree(nd)
		if nd.SteinerTree == nil {
			continue
		}
		if steinerDump {
			dumper := spew.ConfigState{Indent: "  ", DisableMethods: true, SortKeys: true}
			dumper.Fdump(os.Stdout, nd.SteinerTree)
		}
		if steinerSVG != "" {
			f, err := os.Create(steinerSVG)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", steinerSVG, err)
			}
			if err := nd.SteinerTree.WriteSVG(f); err != nil {
				f.Close()
				return fmt.Errorf("failed to write SVG: %w", err)
			}
			if err := f.Close(); err != nil {
				return err
			}
			if verbose {
				fmt.Printf("SVG written to %s\n", steinerSVG)
			}
		}
	}
	if !found {
		return fmt.Errorf("net %q not found", steinerNet)
	}
	return nil
}

func printTree(nd *route.PerNetData) {
	t := nd.SteinerTree
	fmt.Printf("Net %s (source %v, %d sinks)\n", nd.Net.Name, nd.SrcGCell, nd.SinkCount())
	if t == nil {
		fmt.Printf("  no tree: every sink is routed unguided\n\n")
		return
	}
	fmt.Printf("  Wirelength: %d, nodes: %d, box: (%d,%d)-(%d,%d)\n",
		t.WireLength(), t.Len(), t.Box.X0, t.Box.Y0, t.Box.X1, t.Box.Y1)

	fmt.Printf("  Edges:\n")
	for _, e := range t.Edges() {
		kind := ""
		if t.IsSteiner(e.To) {
			kind = " (steiner)"
		}
		fmt.Printf("    %v -> %v  len %d%s\n", e.From, e.To, e.Length(), kind)
	}

	fmt.Printf("  Sink order: %s\n", joinCells(t.SinkOrder()))

	leaves := t.Leaves()
	fmt.Printf("  Leaves:\n")
	for _, c := range t.TopoSorted() {
		below := leaves[c].UnsortedList()
		if len(below) == 0 {
			continue
		}
		sort.Slice(below, func(i, j int) bool { return below[i].Less(below[j]) })
		fmt.Printf("    %v: %s\n", c, joinCells(below))
	}
	fmt.Println()
}

func joinCells(cells []gcell.GCell) string {
	parts := make([]string, len(cells))
	for i, c := range cells {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}
