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

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Comparison measures a portfolio against its benchmark over their common dates
type Comparison struct {
	Correlation      float64 `json:"correlation"`
	Beta             float64 `json:"beta"`
	ActiveReturn     float64 `json:"activeReturn"`
	TrackingError    float64 `json:"trackingError"`
	InformationRatio float64 `json:"informationRatio"`
	Observations     int     `json:"observations"`
}

// Compare aligns portfolio and benchmark on common dates and computes relative
// statistics. Values that are undefined because a series has no variance are NaN.
func Compare(portfolio, benchmark *ReturnSeries, opts MetricsOptions) (*Comparison, error) {
	opts = opts.withDefaults()
	p, b := Align(portfolio, benchmark)

	n := p.Len()
	res := &Comparison{
		Correlation:      math.NaN(),
		Beta:             math.NaN(),
		ActiveReturn:     math.NaN(),
		TrackingError:    math.NaN(),
		InformationRatio: math.NaN(),
		Observations:     n,
	}

	if n < 2 {
		return res, fmt.Errorf("%w: %s and %s share %d return observations, need at least 2",
			ErrInsufficientData, portfolio.Name, benchmark.Name, n)
	}

	benchVariance := stat.Variance(b.Returns, nil)
	portVariance := stat.Variance(p.Returns, nil)

	if !isZero(benchVariance) {
		res.Beta = stat.Covariance(p.Returns, b.Returns, nil) / benchVariance
		if !isZero(portVariance) {
			res.Correlation = stat.Correlation(p.Returns, b.Returns, nil)
		}
	}

	res.ActiveReturn = annualize(cumulativeGrowth(p.Returns)[n], n, opts.PeriodsPerYear) -
		annualize(cumulativeGrowth(b.Returns)[n], n, opts.PeriodsPerYear)

	active := make([]float64, n)
	floats.SubTo(active, p.Returns, b.Returns)
	res.TrackingError = stat.StdDev(active, nil) * math.Sqrt(opts.PeriodsPerYear)

	if !isZero(res.TrackingError) {
		res.InformationRatio = res.ActiveReturn / res.TrackingError
	}

	return res, nil
}
