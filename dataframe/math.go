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

package dataframe

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/floats"
)

// PctChange computes the simple period over period change of every column,
// v[i]/v[i-1] - 1. The first row has no predecessor and is omitted so the
// result has one less row than df.
func (df *DataFrame) PctChange() *DataFrame {
	res := &DataFrame{
		ColNames: make([]string, len(df.ColNames)),
		Vals:     make([][]float64, len(df.Vals)),
	}
	copy(res.ColNames, df.ColNames)

	if df.Len() < 2 {
		res.Dates = []time.Time{}
		for colIdx := range res.Vals {
			res.Vals[colIdx] = []float64{}
		}
		return res
	}

	res.Dates = make([]time.Time, df.Len()-1)
	copy(res.Dates, df.Dates[1:])

	for colIdx, col := range df.Vals {
		out := make([]float64, len(col)-1)
		for rowIdx := 1; rowIdx < len(col); rowIdx++ {
			out[rowIdx-1] = col[rowIdx]/col[rowIdx-1] - 1
		}
		res.Vals[colIdx] = out
	}

	return res
}

// WeightedSum collapses every column into a single column named `name` where each
// row is ∑ weights[col] * df[col][row]. Columns without a weight contribute nothing.
func (df *DataFrame) WeightedSum(name string, weights map[string]float64) (*DataFrame, error) {
	for colName := range weights {
		if df.ColIndex(colName) == -1 {
			return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, colName)
		}
	}

	// accumulate in column order so results are reproducible
	out := make([]float64, df.Len())
	for colIdx, colName := range df.ColNames {
		if weight, ok := weights[colName]; ok {
			floats.AddScaled(out, weight, df.Vals[colIdx])
		}
	}

	dates := make([]time.Time, len(df.Dates))
	copy(dates, df.Dates)

	return &DataFrame{
		Dates:    dates,
		ColNames: []string{name},
		Vals:     [][]float64{out},
	}, nil
}
