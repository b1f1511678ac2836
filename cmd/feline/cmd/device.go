package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/markkurossi/tabulate"
	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/feline/pkg/devicedb"
)

var deviceCmd = &cobra.Command{
	Use:   "device <fdl-file>",
	Short: "Summarise a device description",
	Long: `Load a device description and show its grid, routing graph size and the
channel resources used for congestion estimation.

Examples:
  feline device testdata/demo.fdl
  feline device -v testdata/demo.fdl`,
	Args: cobra.ExactArgs(1),
	RunE: runDevice,
}

func init() {
	rootCmd.AddCommand(deviceCmd)
}

func runDevice(cmd *cobra.Command, args []string) error {
	dev, err := devicedb.LoadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to load device: %w", err)
	}

	holes := 0
	for y := 0; y < dev.Height(); y++ {
		for x := 0; x < dev.Width(); x++ {
			if dev.IsHole(x, y) {
				holes++
			}
		}
	}

	tab := tabulate.New(tabulate.UnicodeLight)
	tab.Header("Property").SetAlign(tabulate.ML)
	tab.Header("Value").SetAlign(tabulate.MR)
	for _, kv := range []struct {
		k string
		v any
	}{
		{"Device", dev.Name()},
		{"Grid", fmt.Sprintf("%dx%d", dev.Width(), dev.Height())},
		{"Holes", holes},
		{"Wires", len(dev.Wires())},
		{"Pips", len(dev.Pips())},
		{"Bels", len(dev.Bels())},
	} {
		row := tab.Row()
		row.Column(kv.k).SetFormat(tabulate.FmtBold)
		row.Column(fmt.Sprint(kv.v))
	}
	tab.Print(os.Stdout)

	channels := dev.Channels()
	if len(channels) == 0 {
		fmt.Println("\nNo channel resources declared; congestion estimation is disabled.")
		return nil
	}
	fmt.Println()
	ch := tabulate.New(tabulate.UnicodeLight)
	ch.Header("Dir").SetAlign(tabulate.ML)
	ch.Header("Width").SetAlign(tabulate.MR)
	ch.Header("Hops").SetAlign(tabulate.ML)
	ch.Header("Capacity").SetAlign(tabulate.MR)
	for _, rr := range channels {
		hops := make([]string, len(rr.Hops))
		for i, h := range rr.Hops {
			hops[i] = fmt.Sprint(h)
		}
		row := ch.Row()
		row.Column(rr.Dir.String())
		row.Column(fmt.Sprint(rr.Width))
		row.Column(strings.Join(hops, " "))
		row.Column(fmt.Sprint(rr.Capacity()))
	}
	ch.Print(os.Stdout)

	if verbose {
		fmt.Println("\nBels:")
		for _, b := range dev.Bels() {
			fmt.Printf("  %-20s %v  pins %s\n", dev.BelName(b), dev.BelLocation(b), strings.Join(dev.BelPins(b), " "))
		}
	}
	return nil
}
