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
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	DefaultPeriodsPerYear = 252.0

	// MinStableObservations is the sample size below which statistics are
	// reported with a warning
	MinStableObservations = 20

	// volatilities at or below this are treated as zero
	zeroTolerance = 1e-12
)

// MetricsOptions configures CalculateMetrics. RiskFreeRate and TargetReturn
// are decimal fractions; RiskFreeRate is annual and TargetReturn is per period.
type MetricsOptions struct {
	PeriodsPerYear float64 `json:"periodsPerYear"`
	RiskFreeRate   float64 `json:"riskFreeRate"`
	TargetReturn   float64 `json:"targetReturn"`
}

// DefaultMetricsOptions returns options for daily data with a zero risk free rate
func DefaultMetricsOptions() MetricsOptions {
	return MetricsOptions{
		PeriodsPerYear: DefaultPeriodsPerYear,
	}
}

func (opts MetricsOptions) withDefaults() MetricsOptions {
	if opts.PeriodsPerYear <= 0 || math.IsNaN(opts.PeriodsPerYear) {
		opts.PeriodsPerYear = DefaultPeriodsPerYear
	}
	return opts
}

// DrawDown is a decline from a peak of the growth curve. Begin is the date of
// the peak, End the date of the trough and Recovery the first date the
// curve regained the peak; Recovery is zero when it never did.
type DrawDown struct {
	Begin       time.Time `json:"begin"`
	End         time.Time `json:"end"`
	Recovery    time.Time `json:"recovery"`
	LossPercent float64   `json:"lossPercent"`
}

// Metrics summarizes a return series. Statistics that cannot be computed are NaN.
type Metrics struct {
	TotalReturn          float64     `json:"totalReturn"`
	AnnualizedReturn     float64     `json:"annualizedReturn"`
	AnnualizedVolatility float64     `json:"annualizedVolatility"`
	SharpeRatio          float64     `json:"sharpeRatio"`
	SortinoRatio         float64     `json:"sortinoRatio"`
	DownsideDeviation    float64     `json:"downsideDeviation"`
	MaxDrawDown          float64     `json:"maxDrawDown"`
	CalmarRatio          float64     `json:"calmarRatio"`
	BestDay              float64     `json:"bestDay"`
	WorstDay             float64     `json:"worstDay"`
	PositivePeriods      float64     `json:"positivePeriods"`
	Observations         int         `json:"observations"`
	Begin                time.Time   `json:"begin"`
	End                  time.Time   `json:"end"`
	DrawDowns            []*DrawDown `json:"drawDowns"`
	Warnings             []string    `json:"warnings,omitempty"`
}

func undefinedMetrics(r *ReturnSeries) *Metrics {
	nan := math.NaN()
	return &Metrics{
		TotalReturn:          nan,
		AnnualizedReturn:     nan,
		AnnualizedVolatility: nan,
		SharpeRatio:          nan,
		SortinoRatio:         nan,
		DownsideDeviation:    nan,
		MaxDrawDown:          nan,
		CalmarRatio:          nan,
		BestDay:              nan,
		WorstDay:             nan,
		PositivePeriods:      nan,
		Observations:         r.Len(),
		Begin:                r.Base,
		End:                  r.End(),
		DrawDowns:            []*DrawDown{},
		Warnings:             []string{},
	}
}

func isZero(x float64) bool {
	return math.IsNaN(x) || math.Abs(x) <= zeroTolerance
}

// CalculateMetrics computes the performance statistics of r. An empty series
// yields NaN for every statistic along with ErrInsufficientData. Ratios whose
// denominator is zero are reported as NaN with a warning instead of an error.
func CalculateMetrics(r *ReturnSeries, opts MetricsOptions) (*Metrics, error) {
	opts = opts.withDefaults()
	m := undefinedMetrics(r)

	n := r.Len()
	if n == 0 {
		m.Warnings = append(m.Warnings, "no return observations; metrics are undefined")
		return m, fmt.Errorf("%w: %s has no return observations", ErrInsufficientData, r.Name)
	}

	rets := r.Returns
	growth := cumulativeGrowth(rets)

	m.TotalReturn = growth[n] - 1.0
	m.AnnualizedReturn = annualize(growth[n], n, opts.PeriodsPerYear)

	if n >= 2 {
		m.AnnualizedVolatility = stat.StdDev(rets, nil) * math.Sqrt(opts.PeriodsPerYear)
	} else {
		m.Warnings = append(m.Warnings, "volatility requires at least 2 observations")
	}

	m.DownsideDeviation = downsideDeviation(rets, opts.TargetReturn) * math.Sqrt(opts.PeriodsPerYear)

	excessReturn := m.AnnualizedReturn - opts.RiskFreeRate
	if isZero(m.AnnualizedVolatility) {
		if n >= 2 {
			m.Warnings = append(m.Warnings, "volatility is zero; Sharpe ratio is undefined")
		}
	} else {
		m.SharpeRatio = excessReturn / m.AnnualizedVolatility
	}

	if isZero(m.DownsideDeviation) {
		m.Warnings = append(m.Warnings, "no returns below target; Sortino ratio is undefined")
	} else {
		m.SortinoRatio = excessReturn / m.DownsideDeviation
	}

	m.MaxDrawDown = maxDrawDown(growth)
	if m.MaxDrawDown < 0 {
		m.CalmarRatio = m.AnnualizedReturn / (-1 * m.MaxDrawDown)
	}

	dates := make([]time.Time, 0, n+1)
	dates = append(dates, r.Base)
	dates = append(dates, r.Dates...)
	m.DrawDowns = topDrawDowns(allDrawDowns(growth, dates), 10)

	m.BestDay = floats.Max(rets)
	m.WorstDay = floats.Min(rets)

	positive := 0
	for _, x := range rets {
		if x > 0 {
			positive++
		}
	}
	m.PositivePeriods = float64(positive) / float64(n)

	if n < MinStableObservations {
		m.Warnings = append(m.Warnings, fmt.Sprintf("only %d observations; statistics are unstable", n))
	}

	return m, nil
}

// annualize converts the growth of 1.0 over n periods into a compound annual
// rate. A total loss (growth <= 0) is reported as -100%.
func annualize(growth float64, n int, periodsPerYear float64) float64 {
	if n == 0 {
		return math.NaN()
	}
	if growth <= 0 {
		return -1.0
	}
	return math.Pow(growth, periodsPerYear/float64(n)) - 1.0
}

// downsideDeviation is the root mean square of returns below target, counting
// every observation in the denominator.
//
// Calculation is based on this paper by Red Rock Capital
// http://www.redrockcapital.com/Sortino__A__Sharper__Ratio_Red_Rock_Capital.pdf
func downsideDeviation(rets []float64, target float64) float64 {
	if len(rets) == 0 {
		return math.NaN()
	}
	downside := 0.0
	for _, r := range rets {
		excess := r - target
		if excess < 0 {
			downside += excess * excess // much faster than math.Pow
		}
	}
	return math.Sqrt(downside / float64(len(rets)))
}

// maxDrawDown returns min_t(growth[t] / max(growth[0..t]) - 1), or 0 when the
// curve never falls below a previous peak
func maxDrawDown(growth []float64) float64 {
	if len(growth) == 0 {
		return math.NaN()
	}
	peak := growth[0]
	worst := 0.0
	for _, value := range growth {
		peak = math.Max(peak, value)
		if loss := value/peak - 1.0; loss < worst {
			worst = loss
		}
	}
	return worst
}

// allDrawDowns computes every draw down of the growth curve. A draw down that
// has not recovered by the last date is included with a zero Recovery.
func allDrawDowns(growth []float64, dates []time.Time) []*DrawDown {
	allDrawDowns := []*DrawDown{}
	if len(growth) == 0 {
		return allDrawDowns
	}

	peak := growth[0]
	peakDate := dates[0]

	var drawDown *DrawDown
	for idx, value := range growth {
		if value >= peak {
			if drawDown != nil {
				drawDown.Recovery = dates[idx]
				allDrawDowns = append(allDrawDowns, drawDown)
				drawDown = nil
			}
			peak = value
			peakDate = dates[idx]
			continue
		}

		loss := value/peak - 1.0
		if drawDown == nil {
			drawDown = &DrawDown{
				Begin:       peakDate,
				End:         dates[idx],
				LossPercent: loss,
			}
		} else if loss < drawDown.LossPercent {
			drawDown.End = dates[idx]
			drawDown.LossPercent = loss
		}
	}

	if drawDown != nil {
		allDrawDowns = append(allDrawDowns, drawDown)
	}

	return allDrawDowns
}

// topDrawDowns returns the n deepest draw downs, deepest first
func topDrawDowns(drawDowns []*DrawDown, n int) []*DrawDown {
	sort.SliceStable(drawDowns, func(i, j int) bool {
		return drawDowns[i].LossPercent < drawDowns[j].LossPercent
	})
	if len(drawDowns) > n {
		drawDowns = drawDowns[:n]
	}
	return drawDowns
}
