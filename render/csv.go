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
	"context"
	"io"

	"github.com/penny-vault/pv-analyzer/portfolio"
	df "github.com/rocketlaunchr/dataframe-go"
	"github.com/rocketlaunchr/dataframe-go/exports"
)

// CurveCSV writes the growth curves as CSV with one row per date. Each report
// contributes a growth column and a value column for the initial investment.
func CurveCSV(ctx context.Context, w io.Writer, res *portfolio.Result, opts Options) error {
	curve := res.Portfolio.Growth
	if curve.Len() == 0 {
		return ErrNoCurve
	}

	dates := make([]interface{}, len(curve.Dates))
	for idx, dt := range curve.Dates {
		dates[idx] = dt.Format("2006-01-02")
	}

	series := []df.Series{df.NewSeriesString("date", nil, dates...)}
	for _, report := range reports(res) {
		growth := make([]interface{}, curve.Len())
		value := make([]interface{}, curve.Len())
		vals := report.Growth.Value(opts.InitialInvestment)
		for idx := range growth {
			// nil is exported as an empty field
			if idx < report.Growth.Len() {
				growth[idx] = report.Growth.Values[idx]
				value[idx] = vals[idx].InexactFloat64()
			}
		}
		series = append(series,
			df.NewSeriesFloat64(report.Name+"_growth", nil, growth...),
			df.NewSeriesFloat64(report.Name+"_value", nil, value...),
		)
	}

	empty := ""
	return exports.ExportToCSV(ctx, w, df.NewDataFrame(series...), exports.CSVExportOptions{
		NullString: &empty,
		Separator:  ',',
	})
}
