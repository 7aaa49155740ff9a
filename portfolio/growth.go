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

package portfolio

import (
	"time"

	"github.com/shopspring/decimal"
)

// GrowthCurve is the value of one unit invested on the base date
type GrowthCurve struct {
	Name   string      `json:"name"`
	Dates  []time.Time `json:"dates"`
	Values []float64   `json:"values"`
}

// cumulativeGrowth returns g where g[0] = 1 and g[t] = g[t-1] * (1 + r[t-1]).
// Both the growth curve and the drawdown calculation use it so they agree exactly.
func cumulativeGrowth(returns []float64) []float64 {
	g := make([]float64, len(returns)+1)
	g[0] = 1.0
	for idx, r := range returns {
		g[idx+1] = g[idx] * (1.0 + r)
	}
	return g
}

// NewGrowthCurve builds the growth of 1.0 invested at r.Base. The curve has
// one more point than r has returns.
func NewGrowthCurve(r *ReturnSeries) *GrowthCurve {
	curve := &GrowthCurve{
		Name:   r.Name,
		Dates:  []time.Time{},
		Values: []float64{},
	}

	if r.Base.IsZero() && r.Len() == 0 {
		return curve
	}

	curve.Dates = make([]time.Time, 0, r.Len()+1)
	curve.Dates = append(curve.Dates, r.Base)
	curve.Dates = append(curve.Dates, r.Dates...)
	curve.Values = cumulativeGrowth(r.Returns)
	return curve
}

// Len returns the number of points on the curve
func (g *GrowthCurve) Len() int {
	return len(g.Values)
}

// Final returns the last value of the curve, 1.0 for an empty curve
func (g *GrowthCurve) Final() float64 {
	if len(g.Values) == 0 {
		return 1.0
	}
	return g.Values[len(g.Values)-1]
}

// Value scales the curve by an initial investment, rounded to cents
func (g *GrowthCurve) Value(initial decimal.Decimal) []decimal.Decimal {
	vals := make([]decimal.Decimal, len(g.Values))
	for idx, v := range g.Values {
		vals[idx] = initial.Mul(decimal.NewFromFloat(v)).Round(2)
	}
	return vals
}
