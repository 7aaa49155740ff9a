// Copyright 2021-2024
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/penny-vault/pv-analyzer/portfolio"
)

// Markdown formats the result as a markdown report
func Markdown(res *portfolio.Result, opts Options) string {
	var sb strings.Builder
	reps := reports(res)

	sb.WriteString("# Portfolio Analysis\n\n")
	fmt.Fprintf(&sb, "%s to %s, %d observations, risk free rate %s\n\n",
		res.Portfolio.Metrics.Begin.Format("2006-01-02"),
		res.Portfolio.Metrics.End.Format("2006-01-02"),
		res.Portfolio.Metrics.Observations,
		formatValue(res.RiskFreeRate, true))

	sb.WriteString("## Holdings\n\n| Ticker | Weight |\n|:--|--:|\n")
	for _, h := range res.Holdings.Holdings {
		fmt.Fprintf(&sb, "| %s | %s |\n", h.Ticker, formatValue(h.Weight, true))
	}

	sb.WriteString("\n## Performance\n\n| Metric |")
	for _, report := range reps {
		fmt.Fprintf(&sb, " %s |", report.Name)
	}
	sb.WriteString("\n|:--|")
	for range reps {
		sb.WriteString("--:|")
	}
	sb.WriteString("\n")
	for _, row := range metricRows {
		fmt.Fprintf(&sb, "| %s |", row.label)
		for _, report := range reps {
			fmt.Fprintf(&sb, " %s |", formatValue(row.value(report.Metrics), row.percent))
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "| Value of %s |", formatMoney(opts.InitialInvestment))
	for _, report := range reps {
		fmt.Fprintf(&sb, " %s |", formatMoney(finalValue(report, opts.InitialInvestment)))
	}
	sb.WriteString("\n")

	if res.Comparison != nil {
		fmt.Fprintf(&sb, "\n## Relative to %s\n\n| Metric | Value |\n|:--|--:|\n", res.Benchmark.Name)
		for _, row := range comparisonRows {
			fmt.Fprintf(&sb, "| %s | %s |\n", row.label, formatValue(row.value(res.Comparison), row.percent))
		}
	}

	if dd := res.Portfolio.Metrics.DrawDowns; len(dd) > 0 {
		sb.WriteString("\n## Largest Drawdowns\n\n| Peak | Trough | Recovery | Loss |\n|:--|:--|:--|--:|\n")
		for _, d := range dd {
			recovery := "not recovered"
			if !d.Recovery.IsZero() {
				recovery = d.Recovery.Format("2006-01-02")
			}
			fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n", d.Begin.Format("2006-01-02"), d.End.Format("2006-01-02"),
				recovery, formatValue(d.LossPercent, true))
		}
	}

	if opts.ShowCurve && res.Portfolio.Growth.Len() > 0 {
		sb.WriteString("\n## Growth\n\n| Date |")
		cols := make([][]string, 0, len(reps))
		for _, report := range reps {
			fmt.Fprintf(&sb, " %s |", report.Name)
			vals := report.Growth.Value(opts.InitialInvestment)
			col := make([]string, len(vals))
			for idx, v := range vals {
				col[idx] = formatMoney(v)
			}
			cols = append(cols, col)
		}
		sb.WriteString("\n|:--|")
		for range reps {
			sb.WriteString("--:|")
		}
		sb.WriteString("\n")
		for idx, dt := range res.Portfolio.Growth.Dates {
			fmt.Fprintf(&sb, "| %s |", dt.Format("2006-01-02"))
			for _, col := range cols {
				if idx < len(col) {
					fmt.Fprintf(&sb, " %s |", col[idx])
				} else {
					sb.WriteString("  |")
				}
			}
			sb.WriteString("\n")
		}
	}

	var notesBuf strings.Builder
	notes(&notesBuf, res, "- ")
	if notesBuf.Len() > 0 {
		sb.WriteString("\n## Notes\n")
		sb.WriteString(notesBuf.String())
	}

	return sb.String()
}

// Terminal renders markdown for display in a terminal using the named glamour
// style ("dark", "light", "notty" ...)
func Terminal(md, style string) (string, error) {
	if style == "" {
		style = "dark"
	}
	return glamour.Render(md, style)
}
