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
	"math"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
)

// New creates a single column dataframe; dates must be sorted ascending
func New(name string, dates []time.Time, vals []float64) (*DataFrame, error) {
	if len(dates) != len(vals) {
		return nil, ErrColumnLength
	}

	return &DataFrame{
		Dates:    dates,
		ColNames: []string{name},
		Vals:     [][]float64{vals},
	}, nil
}

// ColIndex returns the index of the specified column; returns -1 if column doesn't exist
func (df *DataFrame) ColIndex(colName string) int {
	for idx, val := range df.ColNames {
		if colName == val {
			return idx
		}
	}

	return -1
}

// ColCount returns the number of columns in the dataframe
func (df *DataFrame) ColCount() int {
	return len(df.ColNames)
}

// Column returns the values stored in colName
func (df *DataFrame) Column(colName string) ([]float64, error) {
	idx := df.ColIndex(colName)
	if idx == -1 {
		return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, colName)
	}
	return df.Vals[idx], nil
}

// Drop removes rows that contain the value `val` in any column. NaN matches NaN.
func (df *DataFrame) Drop(val float64) *DataFrame {
	isNA := math.IsNaN(val)
	newVals := make([][]float64, len(df.Vals))
	newDates := make([]time.Time, 0, len(df.Dates))

	for idx := range newVals {
		newVals[idx] = make([]float64, 0, len(df.Dates))
	}

	for rowIdx, dt := range df.Dates {
		keep := true
		for _, col := range df.Vals {
			rowVal := col[rowIdx]
			if rowVal == val || (isNA && math.IsNaN(rowVal)) {
				keep = false
				break
			}
		}

		if keep {
			newDates = append(newDates, dt)
			for colIdx, col := range df.Vals {
				newVals[colIdx] = append(newVals[colIdx], col[rowIdx])
			}
		}
	}

	df.Vals = newVals
	df.Dates = newDates
	return df
}

// Insert adds a new column to the dataframe
func (df *DataFrame) Insert(name string, col []float64) error {
	if len(col) != len(df.Dates) {
		return ErrColumnLength
	}
	df.ColNames = append(df.ColNames, name)
	df.Vals = append(df.Vals, col)
	return nil
}

// Len returns the number of rows in the dataframe
func (df *DataFrame) Len() int {
	return len(df.Dates)
}

// Start returns the first time in the DataFrame
func (df *DataFrame) Start() time.Time {
	if len(df.Dates) == 0 {
		return time.Time{}
	}
	return df.Dates[0]
}

// End returns the last time in the DataFrame
func (df *DataFrame) End() time.Time {
	if len(df.Dates) == 0 {
		return time.Time{}
	}
	return df.Dates[len(df.Dates)-1]
}

// Table prints an ASCII formatted table
func (df *DataFrame) Table() string {
	if len(df.Dates) == 0 {
		return "<NO DATA>"
	}

	tableCols := append([]string{"Date"}, df.ColNames...)

	s := &strings.Builder{}
	table := tablewriter.NewWriter(s)
	table.SetHeader(tableCols)
	footer := make([]string, len(tableCols))
	footer[0] = "Num Rows"
	if len(footer) > 1 {
		footer[1] = fmt.Sprintf("%d", df.Len())
	}
	table.SetFooter(footer)
	table.SetBorder(false)

	for rowIdx, dt := range df.Dates {
		row := make([]string, 0, len(df.Vals)+1)
		row = append(row, dt.Format("2006-01-02"))
		for _, col := range df.Vals {
			row = append(row, fmt.Sprintf("%.4f", col[rowIdx]))
		}
		table.Append(row)
	}

	table.Render()
	return s.String()
}

// Trim returns a new dataframe restricted to the date range [begin, end] (inclusive).
// The returned dataframe shares no memory with df.
func (df *DataFrame) Trim(begin, end time.Time) *DataFrame {
	df2 := &DataFrame{
		ColNames: make([]string, len(df.ColNames)),
		Dates:    []time.Time{},
		Vals:     make([][]float64, len(df.Vals)),
	}
	copy(df2.ColNames, df.ColNames)
	for idx := range df2.Vals {
		df2.Vals[idx] = []float64{}
	}

	if end.Before(begin) || df.Len() == 0 {
		return df2
	}

	for rowIdx, dt := range df.Dates {
		if dt.Before(begin) || dt.After(end) {
			continue
		}
		df2.Dates = append(df2.Dates, dt)
		for colIdx, col := range df.Vals {
			df2.Vals[colIdx] = append(df2.Vals[colIdx], col[rowIdx])
		}
	}

	return df2
}
