package cmd

import (
	goflag "flag"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"k8s.io/klog/v2"
)

var (
	// Global flags
	verbose  bool
	logLevel int

	klogFlags = goflag.NewFlagSet("klog", goflag.ContinueOnError)
)

var rootCmd = &cobra.Command{
	Use:   "feline",
	Short: "Congestion-aware two-phase FPGA router",
	Long: `Feline routes a placed FPGA design onto a device fabric. Each net is first
planned as a Steiner tree over the tile grid, then routed wire by wire with a
guided bidirectional search while negotiated congestion resolves overuse.

Examples:
  feline device testdata/demo.fdl                                  # Summarise a device
  feline route --device testdata/demo.fdl --design top.sexp        # Route a design
  feline steiner --device testdata/demo.fdl --design top.sexp --net n0 --svg n0.svg
  feline view --device testdata/demo.fdl --design top.sexp         # Route and inspect`,
	Version:           "0.3.0",
	PersistentPreRunE: setupLogging,
}

// Execute runs the root command
func Execute() {
	defer klog.Flush()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	klog.InitFlags(klogFlags)
	klogFlags.VisitAll(func(f *goflag.Flag) {
		// -v belongs to --verbose; klog verbosity is --log-level.
		if f.Name == "v" {
			return
		}
		rootCmd.PersistentFlags().AddFlag(pflag.PFlagFromGoFlag(f))
	})

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().IntVar(&logLevel, "log-level", 0, "klog verbosity level")
}

func setupLogging(cmd *cobra.Command, args []string) error {
	level := logLevel
	if verbose && level < 2 {
		level = 2
	}
	return klogFlags.Set("v", strconv.Itoa(level))
}
