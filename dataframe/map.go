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
	"math"
	"sort"
	"time"
)

// Drop calls dataframe.Drop on each dataframe in the map
func (dfMap DataFrameMap) Drop(val float64) DataFrameMap {
	for _, v := range dfMap {
		v.Drop(val)
	}
	return dfMap
}

// Keys returns the map keys in sorted order
func (dfMap DataFrameMap) Keys() []string {
	keys := make([]string, 0, len(dfMap))
	for k := range dfMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Join performs an inner join of every dataframe in the map on their date index.
// Only dates present in every dataframe are kept. Columns are emitted in the
// order given by `order`; when order is empty the sorted map keys are used.
// Keys in order that are missing from the map are skipped.
func (dfMap DataFrameMap) Join(order ...string) *DataFrame {
	if len(order) == 0 {
		order = dfMap.Keys()
	}

	frames := make([]*DataFrame, 0, len(order))
	for _, k := range order {
		if df, ok := dfMap[k]; ok {
			frames = append(frames, df)
		}
	}

	res := &DataFrame{
		Dates:    []time.Time{},
		ColNames: []string{},
		Vals:     [][]float64{},
	}

	if len(frames) == 0 {
		return res
	}

	// count how many frames contain each date
	counts := make(map[time.Time]int)
	for _, df := range frames {
		seen := make(map[time.Time]bool, df.Len())
		for _, dt := range df.Dates {
			if !seen[dt] {
				counts[dt]++
				seen[dt] = true
			}
		}
	}

	for dt, cnt := range counts {
		if cnt == len(frames) {
			res.Dates = append(res.Dates, dt)
		}
	}
	sort.Slice(res.Dates, func(i, j int) bool { return res.Dates[i].Before(res.Dates[j]) })

	rowOf := make(map[time.Time]int, len(res.Dates))
	for idx, dt := range res.Dates {
		rowOf[dt] = idx
	}

	for _, df := range frames {
		for colIdx, colName := range df.ColNames {
			col := make([]float64, len(res.Dates))
			for idx := range col {
				col[idx] = math.NaN()
			}
			for rowIdx, dt := range df.Dates {
				if dst, ok := rowOf[dt]; ok {
					col[dst] = df.Vals[colIdx][rowIdx]
				}
			}
			res.ColNames = append(res.ColNames, colName)
			res.Vals = append(res.Vals, col)
		}
	}

	return res
}
