package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/markkurossi/tabulate"
	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/feline/pkg/arch"
	"github.com/OpenTraceLab/feline/pkg/netlist"
	"github.com/OpenTraceLab/feline/pkg/route"
)

var (
	routeAlpha     float32
	routeMaxRounds int
	routeWorkers   int
	routeOut       string
	routeJSON      string
	routeHotspots  int
	routeMetrics   bool
)

var routeCmd = &cobra.Command{
	Use:   "route",
	Short: "Route a placed design",
	Long: `Route every net of a placed design and report the negotiation rounds.

The routing is written as an s-expression with --out and as JSON with --json.
The command fails when congestion could not be resolved; the best routing
found is still written.

Examples:
  feline route --device testdata/demo.fdl --design testdata/counter.sexp
  feline route --device dev.fdl --design top.sexp --workers 4 --out top.routes
  feline route --device dev.fdl --design top.sexp --config router.yaml --hotspots 10`,
	Args: cobra.NoArgs,
	RunE: runRoute,
}

func init() {
	rootCmd.AddCommand(routeCmd)
	addInputFlags(routeCmd)

	routeCmd.Flags().Float32Var(&routeAlpha, "alpha", 0, "Steiner tree tradeoff, 1 favours wirelength")
	routeCmd.Flags().IntVar(&routeMaxRounds, "max-rounds", 0, "maximum negotiation rounds")
	routeCmd.Flags().IntVarP(&routeWorkers, "workers", "j", 0, "nets routed in parallel")
	routeCmd.Flags().StringVarP(&routeOut, "out", "o", "", "write routes as an s-expression")
	routeCmd.Flags().StringVar(&routeJSON, "json", "", "write routes as JSON")
	routeCmd.Flags().IntVar(&routeHotspots, "hotspots", 0, "show the N most congested channel boundaries")
	routeCmd.Flags().BoolVar(&routeMetrics, "metrics", false, "print router metrics")
}

// addInputFlags registers the flags shared by every command that routes.
func addInputFlags(c *cobra.Command) {
	c.Flags().StringVarP(&devicePath, "device", "d", "", "device description (.fdl)")
	c.Flags().StringVarP(&designPath, "design", "n", "", "placed design (.sexp)")
	c.Flags().StringVarP(&configPath, "config", "c", "", "router configuration (YAML)")
}

// routerConfig loads the configuration and applies command line overrides.
func routerConfig(cmd *cobra.Command) (*route.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("alpha") {
		cfg.Alpha = routeAlpha
	}
	if cmd.Flags().Changed("max-rounds") {
		cfg.MaxRounds = routeMaxRounds
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers = routeWorkers
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// routeDesign loads the inputs and runs the router. A non-converged routing
// is returned together with ErrNotConverged.
func routeDesign(cmd *cobra.Command) (*arch.GridDevice, *netlist.Design, *route.Router, *route.Result, error) {
	dev, design, err := loadInputs()
	if err != nil {
		return nil, nil, nil, nil, err
	}
	cfg, err := routerConfig(cmd)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	route.Register()
	r, err := route.NewRouter(dev, dev.API(), design, cfg)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	res, err := r.Route(cmd.Context())
	return dev, design, r, res, err
}

func runRoute(cmd *cobra.Command, args []string) error {
	dev, design, r, res, routeErr := routeDesign(cmd)
	if res == nil {
		return routeErr
	}

	fmt.Printf("Routing %s on %s\n\n", design.Name, dev.Name())
	res.Print(os.Stdout)

	if routeHotspots > 0 {
		if ch := r.Channels(); ch != nil {
			fmt.Println()
			route.PrintHotspots(os.Stdout, ch.Hotspots(routeHotspots))
		}
	}
	if routeMetrics {
		fmt.Println()
		if err := printMetrics(os.Stdout); err != nil {
			return err
		}
	}

	if routeOut != "" {
		text, err := design.ExportRoutes(dev)
		if err != nil {
			return fmt.Errorf("failed to export routes: %w", err)
		}
		if err := os.WriteFile(routeOut, []byte(text), 0o644); err != nil {
			return fmt.Errorf("failed to write routes: %w", err)
		}
		if verbose {
			fmt.Printf("\nRoutes written to %s\n", routeOut)
		}
	}
	if routeJSON != "" {
		data, err := design.ExportJSON(dev)
		if err != nil {
			return fmt.Errorf("failed to export routes: %w", err)
		}
		if err := os.WriteFile(routeJSON, data, 0o644); err != nil {
			return fmt.Errorf("failed to write routes: %w", err)
		}
		if verbose {
			fmt.Printf("\nJSON written to %s\n", routeJSON)
		}
	}

	if errors.Is(routeErr, route.ErrNotConverged) {
		return fmt.Errorf("routing failed: %w", routeErr)
	}
	return routeErr
}

// printMetrics writes the router's own counters, gauges and histogram
// sample counts.
func printMetrics(w io.Writer) error {
	families, err := route.GetGather().Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	tab := tabulate.New(tabulate.UnicodeLight)
	tab.Header("Metric").SetAlign(tabulate.ML)
	tab.Header("Labels").SetAlign(tabulate.ML)
	tab.Header("Value").SetAlign(tabulate.MR)
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), route.RouterSubsystem) {
			continue
		}
		for _, m := range mf.GetMetric() {
			var labels []string
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			var value string
			switch {
			case m.GetCounter() != nil:
				value = fmt.Sprintf("%g", m.GetCounter().GetValue())
			case m.GetGauge() != nil:
				value = fmt.Sprintf("%g", m.GetGauge().GetValue())
			case m.GetHistogram() != nil:
				value = fmt.Sprintf("%d samples", m.GetHistogram().GetSampleCount())
			default:
				continue
			}
			row := tab.Row()
			row.Column(mf.GetName())
			row.Column(strings.Join(labels, ","))
			row.Column(value)
		}
	}
	tab.Print(w)
	return nil
}
