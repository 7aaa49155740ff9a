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
	"github.com/rs/zerolog"
)

func (o *DrawDown) MarshalZerologObject(e *zerolog.Event) {
	e.Time("Begin", o.Begin).Time("End", o.End).Time("RecoveryDate", o.Recovery).Float64("LossPercent", o.LossPercent)
}

func (metrics *Metrics) MarshalZerologObject(e *zerolog.Event) {
	e.Time("Begin", metrics.Begin)
	e.Time("End", metrics.End)
	e.Int("Observations", metrics.Observations)
	e.Float64("TotalReturn", metrics.TotalReturn)
	e.Float64("AnnualizedReturn", metrics.AnnualizedReturn)
	e.Float64("AnnualizedVolatility", metrics.AnnualizedVolatility)
	e.Float64("SharpeRatio", metrics.SharpeRatio)
	e.Float64("SortinoRatio", metrics.SortinoRatio)
	e.Float64("DownsideDeviation", metrics.DownsideDeviation)
	e.Float64("MaxDrawDown", metrics.MaxDrawDown)
	e.Float64("CalmarRatio", metrics.CalmarRatio)
	e.Float64("BestDay", metrics.BestDay)
	e.Float64("WorstDay", metrics.WorstDay)
	e.Float64("PositivePeriods", metrics.PositivePeriods)
	e.Strs("Warnings", metrics.Warnings)
}

func (c *Comparison) MarshalZerologObject(e *zerolog.Event) {
	e.Int("Observations", c.Observations).
		Float64("Correlation", c.Correlation).
		Float64("Beta", c.Beta).
		Float64("ActiveReturn", c.ActiveReturn).
		Float64("TrackingError", c.TrackingError).
		Float64("InformationRatio", c.InformationRatio)
}

func (h Holding) MarshalZerologObject(e *zerolog.Event) {
	e.Str("Ticker", h.Ticker).Float64("Weight", h.Weight)
}

func (s *Spec) MarshalZerologArray(a *zerolog.Array) {
	for _, h := range s.Holdings {
		a.Object(h)
	}
}
