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
	"math"

	"github.com/penny-vault/pv-analyzer/portfolio"
	charts "github.com/vicanso/go-charts/v2"
)

const (
	chartWidth  = 1000
	chartHeight = 600
)

// Chart draws the growth of the initial investment for the portfolio and the
// benchmark as a PNG line chart
func Chart(res *portfolio.Result, opts Options) ([]byte, error) {
	curve := res.Portfolio.Growth
	if curve.Len() == 0 {
		return nil, ErrNoCurve
	}

	xLabels := make([]string, curve.Len())
	for idx, dt := range curve.Dates {
		xLabels[idx] = dt.Format("2006-01-02")
	}

	reps := reports(res)
	names := make([]string, 0, len(reps))
	values := make([][]float64, 0, len(reps))
	yMin := math.Inf(1)
	yMax := math.Inf(-1)
	for _, report := range reps {
		names = append(names, report.Name)
		vals := report.Growth.Value(opts.InitialInvestment)
		line := make([]float64, curve.Len())
		for idx := range line {
			switch {
			case idx < len(vals):
				line[idx] = vals[idx].InexactFloat64()
			case idx > 0:
				line[idx] = line[idx-1]
			default:
				line[idx] = opts.InitialInvestment.InexactFloat64()
			}
			yMin = math.Min(yMin, line[idx])
			yMax = math.Max(yMax, line[idx])
		}
		values = append(values, line)
	}

	padding := (yMax - yMin) * 0.05
	if padding == 0 {
		padding = yMax * 0.05
	}
	yMin -= padding
	yMax += padding

	splitNum := 6
	if len(xLabels) <= 30 {
		splitNum = len(xLabels) / 3
		if splitNum < 3 {
			splitNum = 3
		}
	}

	m := res.Portfolio.Metrics
	subtitle := fmt.Sprintf("Return: %s | Sharpe: %s | Vol: %s | MaxDD: %s",
		formatValue(m.TotalReturn, true), formatValue(m.SharpeRatio, false),
		formatValue(m.AnnualizedVolatility, true), formatValue(m.MaxDrawDown, true))

	p, err := charts.LineRender(
		values,
		charts.TitleTextOptionFunc(fmt.Sprintf("Growth of %s", formatMoney(opts.InitialInvestment)), subtitle),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        xLabels,
			SplitNumber: splitNum,
			BoundaryGap: charts.FalseFlag(),
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{
			Min:         &yMin,
			Max:         &yMax,
			DivideCount: 5,
		}),
		charts.LegendOptionFunc(charts.LegendOption{
			Data: names,
			Top:  charts.PositionTop,
		}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(chartWidth),
		charts.HeightOptionFunc(chartHeight),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}

	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to generate chart bytes: %w", err)
	}

	return buf, nil
}
