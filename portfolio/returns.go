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
	"fmt"
	"math"
	"time"

	"github.com/penny-vault/pv-analyzer/data"
	"github.com/penny-vault/pv-analyzer/dataframe"
	"github.com/rs/zerolog/log"
)

// ReturnSeries holds simple period returns. Base is the date of the price the
// first return is measured from; Returns[i] is the change from the previous
// date to Dates[i].
type ReturnSeries struct {
	Name    string      `json:"name"`
	Base    time.Time   `json:"base"`
	Dates   []time.Time `json:"dates"`
	Returns []float64   `json:"returns"`
}

// Len returns the number of return observations
func (r *ReturnSeries) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Returns)
}

// End returns the date of the last return, or Base when there are no returns
func (r *ReturnSeries) End() time.Time {
	if r.Len() == 0 {
		return r.Base
	}
	return r.Dates[len(r.Dates)-1]
}

// NewReturnSeries computes r[i] = p[i]/p[i-1] - 1 for a single price series
func NewReturnSeries(ps *data.PriceSeries) (*ReturnSeries, error) {
	if ps.Len() < 2 {
		return nil, fmt.Errorf("%w: %s needs at least 2 prices, has %d", ErrInsufficientData, ps.Ticker, ps.Len())
	}

	pct := ps.DataFrame().PctChange()
	return &ReturnSeries{
		Name:    ps.Ticker,
		Base:    ps.Dates[0],
		Dates:   pct.Dates,
		Returns: pct.Vals[0],
	}, nil
}

// PortfolioReturns computes the weighted return of the holdings in spec. The
// price series are inner joined on date first so every return covers the same
// interval for every ticker. When the series share no dates the result is an
// empty return series rather than an error.
func PortfolioReturns(name string, series map[string]*data.PriceSeries, spec *Spec) (*ReturnSeries, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	dfMap := make(dataframe.DataFrameMap, len(spec.Holdings))
	for _, h := range spec.Holdings {
		ps, ok := series[h.Ticker]
		if !ok || ps.Len() < 2 {
			return nil, fmt.Errorf("%w: %s needs at least 2 prices, has %d", ErrInsufficientData, h.Ticker, ps.Len())
		}
		dfMap[h.Ticker] = ps.DataFrame()
	}

	// series built by hand may carry NaN gaps; they are dropped before the join
	joined := dfMap.Drop(math.NaN()).Join(spec.Tickers()...)
	if e := log.Trace(); e.Enabled() {
		e.Str("Name", name).Msg("joined prices\n" + joined.Table())
	}

	res := &ReturnSeries{
		Name:    name,
		Dates:   []time.Time{},
		Returns: []float64{},
	}

	if joined.Len() == 0 {
		return res, nil
	}

	res.Base = joined.Dates[0]
	if joined.Len() == 1 {
		return res, nil
	}

	weighted, err := joined.PctChange().WeightedSum(name, spec.Weights())
	if err != nil {
		return nil, err
	}

	res.Dates = weighted.Dates
	res.Returns = weighted.Vals[0]
	return res, nil
}

// Align restricts a and b to the dates they have in common. The returned
// series are copies; the inputs are not modified.
func Align(a, b *ReturnSeries) (*ReturnSeries, *ReturnSeries) {
	inB := make(map[time.Time]bool, b.Len())
	for _, dt := range b.Dates {
		inB[dt] = true
	}
	common := make(map[time.Time]bool, a.Len())
	for _, dt := range a.Dates {
		if inB[dt] {
			common[dt] = true
		}
	}

	filter := func(r *ReturnSeries) *ReturnSeries {
		res := &ReturnSeries{
			Name:    r.Name,
			Base:    r.Base,
			Dates:   make([]time.Time, 0, len(common)),
			Returns: make([]float64, 0, len(common)),
		}
		for idx, dt := range r.Dates {
			if common[dt] {
				res.Dates = append(res.Dates, dt)
				res.Returns = append(res.Returns, r.Returns[idx])
			}
		}
		return res
	}

	return filter(a), filter(b)
}
