// Package report renders scan results for the terminal.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
	"unicode/utf8"

	"github.com/olekukonko/tablewriter"

	"github.com/alanyoungcy/arbscanner/internal/domain"
)

const marketWidth = 48

// Printer writes scan results to out.
type Printer struct {
	out io.Writer
}

// NewPrinter creates a Printer writing to out.
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// JSON writes v as indented JSON.
func (p *Printer) JSON(v any) error {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Opportunities prints a ranked arbitrage or sports scan.
func (p *Printer) Opportunities(kind string, res domain.ScanResult) error {
	fmt.Fprintf(p.out, "\n[%s] %s: %d opportunities from %d markets in %dms\n",
		res.Metadata.Timestamp.Format(time.RFC3339), kind,
		res.Metadata.MatchesFound, res.Metadata.MarketsScanned, res.Metadata.ScanTimeMs)
	if len(res.Opportunities) == 0 {
		fmt.Fprintln(p.out, "  No opportunities found.")
		return nil
	}

	table := tablewriter.NewWriter(p.out)
	table.Header("ID", "Event", "Buy", "Sell", "Spread", "Profit", "Conf", "Match")
	for _, o := range res.Opportunities {
		if err := table.Append(
			o.ID,
			truncate(o.Event, marketWidth),
			fmt.Sprintf("%s %.1f¢", o.PlatformA, o.PlatformAPrice*100),
			fmt.Sprintf("%s %.1f¢", o.PlatformB, o.PlatformBPrice*100),
			fmt.Sprintf("%.2f%%", o.SpreadPercent),
			fmt.Sprintf("$%.2f", o.PotentialProfit),
			string(o.Confidence),
			fmt.Sprintf("%.0f%%", o.MatchScore*100),
		); err != nil {
			return fmt.Errorf("report: append row: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("report: render: %w", err)
	}
	fmt.Fprintln(p.out, "  Profit is per $100 staked on the cheaper side.")
	return nil
}

// Value prints a value-pick scan.
func (p *Printer) Value(res domain.ValueScan) error {
	fmt.Fprintf(p.out, "\n[%s] value: %d picks from %d markets in %dms\n",
		res.Metadata.Timestamp.Format(time.RFC3339),
		res.Metadata.PicksFound, res.Metadata.MarketsAnalyzed, res.Metadata.ScanTimeMs)
	if len(res.Picks) == 0 {
		fmt.Fprintln(p.out, "  No value picks found.")
		return nil
	}

	table := tablewriter.NewWriter(p.out)
	table.Header("ID", "Market", "Venue", "Price", "Fair", "EV", "Action", "Conf")
	for _, v := range res.Picks {
		if err := table.Append(
			v.ID,
			truncate(v.Market, marketWidth),
			v.Platform,
			fmt.Sprintf("%.1f¢", v.CurrentPrice*100),
			fmt.Sprintf("%.1f¢", v.EstimatedFairValue*100),
			fmt.Sprintf("%+.1f%%", v.EVPercent),
			string(v.Direction),
			string(v.Confidence),
		); err != nil {
			return fmt.Errorf("report: append row: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("report: render: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-3]) + "..."
}
