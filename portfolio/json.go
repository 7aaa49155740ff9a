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
	"math"
	"time"

	"github.com/goccy/go-json"
)

// nullFloat marshals NaN and infinite values as null; encoding them as
// numbers is not valid JSON
type nullFloat float64

func (f nullFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

func (f *nullFloat) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = nullFloat(math.NaN())
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = nullFloat(v)
	return nil
}

type metricsJSON struct {
	TotalReturn          nullFloat   `json:"totalReturn"`
	AnnualizedReturn     nullFloat   `json:"annualizedReturn"`
	AnnualizedVolatility nullFloat   `json:"annualizedVolatility"`
	SharpeRatio          nullFloat   `json:"sharpeRatio"`
	SortinoRatio         nullFloat   `json:"sortinoRatio"`
	DownsideDeviation    nullFloat   `json:"downsideDeviation"`
	MaxDrawDown          nullFloat   `json:"maxDrawDown"`
	CalmarRatio          nullFloat   `json:"calmarRatio"`
	BestDay              nullFloat   `json:"bestDay"`
	WorstDay             nullFloat   `json:"worstDay"`
	PositivePeriods      nullFloat   `json:"positivePeriods"`
	Observations         int         `json:"observations"`
	Begin                time.Time   `json:"begin"`
	End                  time.Time   `json:"end"`
	DrawDowns            []*DrawDown `json:"drawDowns"`
	Warnings             []string    `json:"warnings,omitempty"`
}

func (metrics *Metrics) MarshalJSON() ([]byte, error) {
	return json.Marshal(&metricsJSON{
		TotalReturn:          nullFloat(metrics.TotalReturn),
		AnnualizedReturn:     nullFloat(metrics.AnnualizedReturn),
		AnnualizedVolatility: nullFloat(metrics.AnnualizedVolatility),
		SharpeRatio:          nullFloat(metrics.SharpeRatio),
		SortinoRatio:         nullFloat(metrics.SortinoRatio),
		DownsideDeviation:    nullFloat(metrics.DownsideDeviation),
		MaxDrawDown:          nullFloat(metrics.MaxDrawDown),
		CalmarRatio:          nullFloat(metrics.CalmarRatio),
		BestDay:              nullFloat(metrics.BestDay),
		WorstDay:             nullFloat(metrics.WorstDay),
		PositivePeriods:      nullFloat(metrics.PositivePeriods),
		Observations:         metrics.Observations,
		Begin:                metrics.Begin,
		End:                  metrics.End,
		DrawDowns:            metrics.DrawDowns,
		Warnings:             metrics.Warnings,
	})
}

func (metrics *Metrics) UnmarshalJSON(b []byte) error {
	var tmp metricsJSON
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*metrics = Metrics{
		TotalReturn:          float64(tmp.TotalReturn),
		AnnualizedReturn:     float64(tmp.AnnualizedReturn),
		AnnualizedVolatility: float64(tmp.AnnualizedVolatility),
		SharpeRatio:          float64(tmp.SharpeRatio),
		SortinoRatio:         float64(tmp.SortinoRatio),
		DownsideDeviation:    float64(tmp.DownsideDeviation),
		MaxDrawDown:          float64(tmp.MaxDrawDown),
		CalmarRatio:          float64(tmp.CalmarRatio),
		BestDay:              float64(tmp.BestDay),
		WorstDay:             float64(tmp.WorstDay),
		PositivePeriods:      float64(tmp.PositivePeriods),
		Observations:         tmp.Observations,
		Begin:                tmp.Begin,
		End:                  tmp.End,
		DrawDowns:            tmp.DrawDowns,
		Warnings:             tmp.Warnings,
	}
	return nil
}

type comparisonJSON struct {
	Correlation      nullFloat `json:"correlation"`
	Beta             nullFloat `json:"beta"`
	ActiveReturn     nullFloat `json:"activeReturn"`
	TrackingError    nullFloat `json:"trackingError"`
	InformationRatio nullFloat `json:"informationRatio"`
	Observations     int       `json:"observations"`
}

func (c *Comparison) MarshalJSON() ([]byte, error) {
	return json.Marshal(&comparisonJSON{
		Correlation:      nullFloat(c.Correlation),
		Beta:             nullFloat(c.Beta),
		ActiveReturn:     nullFloat(c.ActiveReturn),
		TrackingError:    nullFloat(c.TrackingError),
		InformationRatio: nullFloat(c.InformationRatio),
		Observations:     c.Observations,
	})
}

func (c *Comparison) UnmarshalJSON(b []byte) error {
	var tmp comparisonJSON
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*c = Comparison{
		Correlation:      float64(tmp.Correlation),
		Beta:             float64(tmp.Beta),
		ActiveReturn:     float64(tmp.ActiveReturn),
		TrackingError:    float64(tmp.TrackingError),
		InformationRatio: float64(tmp.InformationRatio),
		Observations:     tmp.Observations,
	}
	return nil
}
