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

// Package render formats analysis results for people: terminal tables,
// markdown reports, CSV curves and PNG charts.
package render

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/penny-vault/pv-analyzer/portfolio"
	"github.com/shopspring/decimal"
)

var (
	ErrUnknownFormat = errors.New("unknown output format")
	ErrNoCurve       = errors.New("result has no growth curve")
)

type Format string

const (
	FormatTable    Format = "table"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
)

// ParseFormat converts s into a Format; an empty string selects FormatTable
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatTable:
		return FormatTable, nil
	case FormatMarkdown, "md":
		return FormatMarkdown, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Options controls what is rendered besides the summary statistics
type Options struct {
	InitialInvestment decimal.Decimal
	ShowCurve         bool
}

func DefaultOptions() Options {
	return Options{
		InitialInvestment: decimal.NewFromInt(10000),
	}
}

type metricRow struct {
	label   string
	percent bool
	value   func(m *portfolio.Metrics) float64
}

var metricRows = []metricRow{
	{"Total Return", true, func(m *portfolio.Metrics) float64 { return m.TotalReturn }},
	{"Annualized Return", true, func(m *portfolio.Metrics) float64 { return m.AnnualizedReturn }},
	{"Annualized Volatility", true, func(m *portfolio.Metrics) float64 { return m.AnnualizedVolatility }},
	{"Sharpe Ratio", false, func(m *portfolio.Metrics) float64 { return m.SharpeRatio }},
	{"Sortino Ratio", false, func(m *portfolio.Metrics) float64 { return m.SortinoRatio }},
	{"Downside Deviation", true, func(m *portfolio.Metrics) float64 { return m.DownsideDeviation }},
	{"Max Drawdown", true, func(m *portfolio.Metrics) float64 { return m.MaxDrawDown }},
	{"Calmar Ratio", false, func(m *portfolio.Metrics) float64 { return m.CalmarRatio }},
	{"Best Day", true, func(m *portfolio.Metrics) float64 { return m.BestDay }},
	{"Worst Day", true, func(m *portfolio.Metrics) float64 { return m.WorstDay }},
	{"Positive Days", true, func(m *portfolio.Metrics) float64 { return m.PositivePeriods }},
}

var comparisonRows = []struct {
	label   string
	percent bool
	value   func(c *portfolio.Comparison) float64
}{
	{"Correlation", false, func(c *portfolio.Comparison) float64 { return c.Correlation }},
	{"Beta", false, func(c *portfolio.Comparison) float64 { return c.Beta }},
	{"Active Return", true, func(c *portfolio.Comparison) float64 { return c.ActiveReturn }},
	{"Tracking Error", true, func(c *portfolio.Comparison) float64 { return c.TrackingError }},
	{"Information Ratio", false, func(c *portfolio.Comparison) float64 { return c.InformationRatio }},
}

// formatValue renders NaN as "n/a" and percentages with two decimals
func formatValue(v float64, percent bool) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	if percent {
		return fmt.Sprintf("%.2f%%", v*100)
	}
	return fmt.Sprintf("%.2f", v)
}

func formatMoney(d decimal.Decimal) string {
	s := d.StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac, _ := strings.Cut(s, ".")
	var sb strings.Builder
	for idx, ch := range intPart {
		if idx > 0 && (len(intPart)-idx)%3 == 0 {
			sb.WriteByte(',')
		}
		sb.WriteRune(ch)
	}

	res := "$" + sb.String() + "." + frac
	if neg {
		res = "-" + res
	}
	return res
}

// reports returns the portfolio report followed by the benchmark report, if any
func reports(res *portfolio.Result) []*portfolio.Report {
	out := []*portfolio.Report{res.Portfolio}
	if res.Benchmark != nil {
		out = append(out, res.Benchmark)
	}
	return out
}

func finalValue(report *portfolio.Report, initial decimal.Decimal) decimal.Decimal {
	vals := report.Growth.Value(initial)
	if len(vals) == 0 {
		return initial
	}
	return vals[len(vals)-1]
}
