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

package data

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/penny-vault/pv-analyzer/common"
	"github.com/penny-vault/pv-analyzer/dataframe"
)

// PriceSeries is the adjusted closing price history of a single ticker. Dates are
// strictly increasing calendar dates and every price is finite and positive.
type PriceSeries struct {
	Ticker string      `json:"ticker"`
	Dates  []time.Time `json:"dates"`
	Prices []float64   `json:"prices"`
}

type pricePoint struct {
	date  time.Time
	price float64
}

// NewPriceSeries builds a clean price series from raw observations: dates are
// truncated to calendar days, observations are sorted ascending, non-finite or
// non-positive prices are discarded, and when a date repeats the last
// observation wins.
func NewPriceSeries(ticker string, dates []time.Time, prices []float64) (*PriceSeries, error) {
	if len(dates) != len(prices) {
		return nil, ErrMismatchedLength
	}

	points := make([]pricePoint, 0, len(dates))
	for idx, dt := range dates {
		price := prices[idx]
		if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
			continue
		}
		points = append(points, pricePoint{date: common.Midnight(dt), price: price})
	}

	sort.SliceStable(points, func(i, j int) bool {
		return points[i].date.Before(points[j].date)
	})

	ps := &PriceSeries{
		Ticker: ticker,
		Dates:  make([]time.Time, 0, len(points)),
		Prices: make([]float64, 0, len(points)),
	}

	for _, pt := range points {
		last := len(ps.Dates) - 1
		if last >= 0 && ps.Dates[last].Equal(pt.date) {
			ps.Prices[last] = pt.price
			continue
		}
		ps.Dates = append(ps.Dates, pt.date)
		ps.Prices = append(ps.Prices, pt.price)
	}

	return ps, nil
}

// Len returns the number of observations in the series
func (ps *PriceSeries) Len() int {
	if ps == nil {
		return 0
	}
	return len(ps.Dates)
}

// Start returns the first date in the series
func (ps *PriceSeries) Start() time.Time {
	if ps.Len() == 0 {
		return time.Time{}
	}
	return ps.Dates[0]
}

// End returns the last date in the series
func (ps *PriceSeries) End() time.Time {
	if ps.Len() == 0 {
		return time.Time{}
	}
	return ps.Dates[len(ps.Dates)-1]
}

// Trim returns a copy of the series restricted to [begin, end] inclusive
func (ps *PriceSeries) Trim(begin, end time.Time) *PriceSeries {
	res := &PriceSeries{
		Ticker: ps.Ticker,
		Dates:  []time.Time{},
		Prices: []float64{},
	}
	for idx, dt := range ps.Dates {
		if dt.Before(begin) || dt.After(end) {
			continue
		}
		res.Dates = append(res.Dates, dt)
		res.Prices = append(res.Prices, ps.Prices[idx])
	}
	return res
}

// Validate checks that the series upholds its ordering and positivity invariants
func (ps *PriceSeries) Validate() error {
	if len(ps.Dates) != len(ps.Prices) {
		return ErrMismatchedLength
	}
	for idx, price := range ps.Prices {
		if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
			return fmt.Errorf("%s: invalid price %f on %s", ps.Ticker, price, ps.Dates[idx].Format("2006-01-02"))
		}
		if idx > 0 && !ps.Dates[idx].After(ps.Dates[idx-1]) {
			return fmt.Errorf("%s: dates not strictly increasing at %s", ps.Ticker, ps.Dates[idx].Format("2006-01-02"))
		}
	}
	return nil
}

// DataFrame converts the series into a single column dataframe named after the ticker
func (ps *PriceSeries) DataFrame() *dataframe.DataFrame {
	dates := make([]time.Time, len(ps.Dates))
	copy(dates, ps.Dates)
	prices := make([]float64, len(ps.Prices))
	copy(prices, ps.Prices)

	return &dataframe.DataFrame{
		Dates:    dates,
		ColNames: []string{ps.Ticker},
		Vals:     [][]float64{prices},
	}
}
