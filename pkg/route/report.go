package route

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/markkurossi/tabulate"
)

// Print writes the per-round statistics as a table followed by a summary.
func (res *Result) Print(w io.Writer) {
	tab := tabulate.New(tabulate.UnicodeLight)
	tab.Header("Round").SetAlign(tabulate.MR)
	tab.Header("Nets").SetAlign(tabulate.MR)
	tab.Header("Failed").SetAlign(tabulate.MR)
	tab.Header("Overused").SetAlign(tabulate.MR)
	tab.Header("Pres").SetAlign(tabulate.MR)
	tab.Header("Expansions").SetAlign(tabulate.MR)
	tab.Header("Time").SetAlign(tabulate.MR)

	var total time.Duration
	expansions := 0
	for _, st := range res.Stats {
		row := tab.Row()
		row.Column(fmt.Sprintf("%d", st.Round))
		row.Column(fmt.Sprintf("%d", st.Routed+st.Failed))
		row.Column(fmt.Sprintf("%d", st.Failed))
		row.Column(fmt.Sprintf("%d", st.Overused))
		row.Column(fmt.Sprintf("%.2f", st.PresentFactor))
		row.Column(fmt.Sprintf("%d", st.Expansions))
		row.Column(st.Duration.String())
		total += st.Duration
		expansions += st.Expansions
	}
	row := tab.Row()
	row.Column("Total").SetFormat(tabulate.FmtBold)
	row.Column("").SetFormat(tabulate.FmtBold)
	row.Column(fmt.Sprintf("%d", len(res.FailedNets))).SetFormat(tabulate.FmtBold)
	row.Column(fmt.Sprintf("%d", res.Overused)).SetFormat(tabulate.FmtBold)
	row.Column("").SetFormat(tabulate.FmtBold)
	row.Column(fmt.Sprintf("%d", expansions)).SetFormat(tabulate.FmtBold)
	row.Column(total.String()).SetFormat(tabulate.FmtBold)
	tab.Print(w)

	status := "converged"
	if !res.Converged {
		status = "NOT converged"
	}
	fmt.Fprintf(w, "%s after %d rounds, %d wires used\n", status, res.Rounds, res.WireLength)
	if len(res.FailedNets) > 0 {
		fmt.Fprintf(w, "failed nets: %s\n", strings.Join(res.FailedNets, ", "))
	}
}

// PrintHotspots writes the most utilised channel boundaries as a table.
func PrintHotspots(w io.Writer, hs []Hotspot) {
	tab := tabulate.New(tabulate.UnicodeLight)
	tab.Header("Cell").SetAlign(tabulate.ML)
	tab.Header("Dir").SetAlign(tabulate.ML)
	tab.Header("Utilisation").SetAlign(tabulate.MR)
	for _, h := range hs {
		row := tab.Row()
		row.Column(h.Cell.String())
		row.Column(h.Dir.String())
		col := row.Column(fmt.Sprintf("%.2f", h.Utilisation))
		if h.Utilisation > 1 {
			col.SetFormat(tabulate.FmtBold)
		}
	}
	tab.Print(w)
}
