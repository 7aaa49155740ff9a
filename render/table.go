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
	"io"
	"sort"

	"github.com/olekukonko/tablewriter"
	"github.com/penny-vault/pv-analyzer/portfolio"
)

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetBorder(false)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	return table
}

// Table writes the result as plain text tables
func Table(w io.Writer, res *portfolio.Result, opts Options) error {
	reps := reports(res)

	fmt.Fprintf(w, "Period: %s to %s (%d observations)\n\n",
		res.Portfolio.Metrics.Begin.Format("2006-01-02"),
		res.Portfolio.Metrics.End.Format("2006-01-02"),
		res.Portfolio.Metrics.Observations)

	holdings := newTable(w, []string{"Ticker", "Weight"})
	for _, h := range res.Holdings.Holdings {
		holdings.Append([]string{h.Ticker, formatValue(h.Weight, true)})
	}
	holdings.Render()
	fmt.Fprintln(w)

	header := []string{"Metric"}
	for _, report := range reps {
		header = append(header, report.Name)
	}
	metrics := newTable(w, header)
	for _, row := range metricRows {
		line := []string{row.label}
		for _, report := range reps {
			line = append(line, formatValue(row.value(report.Metrics), row.percent))
		}
		metrics.Append(line)
	}

	final := []string{fmt.Sprintf("Value of %s", formatMoney(opts.InitialInvestment))}
	for _, report := range reps {
		final = append(final, formatMoney(finalValue(report, opts.InitialInvestment)))
	}
	metrics.Append(final)
	metrics.Render()

	if res.Comparison != nil {
		fmt.Fprintln(w)
		cmp := newTable(w, []string{"Relative to " + res.Benchmark.Name, ""})
		for _, row := range comparisonRows {
			cmp.Append([]string{row.label, formatValue(row.value(res.Comparison), row.percent)})
		}
		cmp.Render()
	}

	if opts.ShowCurve {
		fmt.Fprintln(w)
		if err := curveTable(w, res, opts); err != nil {
			return err
		}
	}

	notes(w, res, "")
	return nil
}

func curveTable(w io.Writer, res *portfolio.Result, opts Options) error {
	reps := reports(res)
	header := []string{"Date"}
	values := make([][]string, 0, len(reps))
	for _, report := range reps {
		header = append(header, report.Name)
		vals := report.Growth.Value(opts.InitialInvestment)
		col := make([]string, len(vals))
		for idx, v := range vals {
			col[idx] = formatMoney(v)
		}
		values = append(values, col)
	}

	curve := res.Portfolio.Growth
	if curve.Len() == 0 {
		return ErrNoCurve
	}

	table := newTable(w, header)
	for idx, dt := range curve.Dates {
		row := []string{dt.Format("2006-01-02")}
		for _, col := range values {
			if idx < len(col) {
				row = append(row, col[idx])
			} else {
				row = append(row, "")
			}
		}
		table.Append(row)
	}
	table.Render()
	return nil
}

// notes writes warnings and failed tickers, one per line, with prefix
func notes(w io.Writer, res *portfolio.Result, prefix string) {
	if len(res.Failed) > 0 {
		fmt.Fprintln(w)
		tickers := make([]string, 0, len(res.Failed))
		for ticker := range res.Failed {
			tickers = append(tickers, ticker)
		}
		sort.Strings(tickers)
		for _, ticker := range tickers {
			fmt.Fprintf(w, "%sfailed %s: %s\n", prefix, ticker, res.Failed[ticker])
		}
	}

	warnings := append([]string{}, res.Warnings...)
	for _, report := range reports(res) {
		for _, msg := range report.Metrics.Warnings {
			warnings = append(warnings, fmt.Sprintf("%s: %s", report.Name, msg))
		}
	}

	if len(warnings) > 0 {
		fmt.Fprintln(w)
		for _, msg := range warnings {
			fmt.Fprintf(w, "%swarning: %s\n", prefix, msg)
		}
	}
}
