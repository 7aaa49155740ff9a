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
	"strings"
)

// WeightPolicy decides how holding weights that do not sum to one are treated
type WeightPolicy string

const (
	// WeightNormalize divides every weight by the total so they sum to one.
	// Percentages (60/40) and fractions (0.6/0.4) are therefore equivalent.
	WeightNormalize WeightPolicy = "normalize"

	// WeightReject refuses weights that do not sum to one
	WeightReject WeightPolicy = "reject"

	// WeightAsIs keeps the weights untouched; a sum above one is leverage and
	// a sum below one is an uninvested cash position with zero return
	WeightAsIs WeightPolicy = "as-is"
)

const weightTolerance = 1e-6

// ParseWeightPolicy converts s into a WeightPolicy; an empty string selects WeightNormalize
func ParseWeightPolicy(s string) (WeightPolicy, error) {
	switch WeightPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", WeightNormalize:
		return WeightNormalize, nil
	case WeightReject:
		return WeightReject, nil
	case WeightAsIs, "asis":
		return WeightAsIs, nil
	default:
		return "", fmt.Errorf("%w: unknown weight policy %q", ErrInvalidOptions, s)
	}
}

// Holding is a single ticker and its share of the portfolio
type Holding struct {
	Ticker string  `json:"ticker" toml:"ticker" yaml:"ticker"`
	Weight float64 `json:"weight" toml:"weight" yaml:"weight"`
}

// Spec is an ordered list of holdings
type Spec struct {
	Holdings []Holding `json:"holdings" toml:"holdings" yaml:"holdings"`
}

// NewSpec pairs tickers with weights
func NewSpec(tickers []string, weights []float64) (*Spec, error) {
	if len(tickers) != len(weights) {
		return nil, fmt.Errorf("%w: %d tickers but %d weights", ErrInvalidWeights, len(tickers), len(weights))
	}
	spec := &Spec{Holdings: make([]Holding, len(tickers))}
	for idx, ticker := range tickers {
		spec.Holdings[idx] = Holding{Ticker: ticker, Weight: weights[idx]}
	}
	return spec, nil
}

// EqualWeight builds a spec that invests the same amount in every ticker
func EqualWeight(tickers []string) *Spec {
	spec := &Spec{Holdings: make([]Holding, len(tickers))}
	for idx, ticker := range tickers {
		spec.Holdings[idx] = Holding{Ticker: ticker, Weight: 1.0 / float64(len(tickers))}
	}
	return spec
}

// Clean upper-cases tickers and merges duplicate holdings, preserving the
// order of first appearance
func (s *Spec) Clean() *Spec {
	res := &Spec{Holdings: make([]Holding, 0, len(s.Holdings))}
	idx := make(map[string]int, len(s.Holdings))
	for _, h := range s.Holdings {
		ticker := strings.ToUpper(strings.TrimSpace(h.Ticker))
		if pos, ok := idx[ticker]; ok {
			res.Holdings[pos].Weight += h.Weight
			continue
		}
		idx[ticker] = len(res.Holdings)
		res.Holdings = append(res.Holdings, Holding{Ticker: ticker, Weight: h.Weight})
	}
	return res
}

// Validate checks the spec has at least one holding and that every weight is a
// finite, non-negative number
func (s *Spec) Validate() error {
	if s == nil || len(s.Holdings) == 0 {
		return ErrEmptyPortfolio
	}
	for _, h := range s.Holdings {
		if h.Ticker == "" {
			return fmt.Errorf("%w: holding without a ticker", ErrInvalidWeights)
		}
		if math.IsNaN(h.Weight) || math.IsInf(h.Weight, 0) || h.Weight < 0 {
			return fmt.Errorf("%w: %s has weight %v", ErrInvalidWeights, h.Ticker, h.Weight)
		}
	}
	return nil
}

// Sum returns the total of all weights
func (s *Spec) Sum() float64 {
	sum := 0.0
	for _, h := range s.Holdings {
		sum += h.Weight
	}
	return sum
}

// Tickers returns the tickers in holding order
func (s *Spec) Tickers() []string {
	tickers := make([]string, len(s.Holdings))
	for idx, h := range s.Holdings {
		tickers[idx] = h.Ticker
	}
	return tickers
}

// Weights returns the weights keyed by ticker
func (s *Spec) Weights() map[string]float64 {
	weights := make(map[string]float64, len(s.Holdings))
	for _, h := range s.Holdings {
		weights[h.Ticker] = h.Weight
	}
	return weights
}

// Contains reports whether ticker is one of the holdings
func (s *Spec) Contains(ticker string) bool {
	for _, h := range s.Holdings {
		if h.Ticker == ticker {
			return true
		}
	}
	return false
}

// Without returns a copy of the spec with the listed tickers removed. Weights
// are not adjusted.
func (s *Spec) Without(tickers ...string) *Spec {
	drop := make(map[string]bool, len(tickers))
	for _, ticker := range tickers {
		drop[ticker] = true
	}
	res := &Spec{Holdings: make([]Holding, 0, len(s.Holdings))}
	for _, h := range s.Holdings {
		if !drop[h.Ticker] {
			res.Holdings = append(res.Holdings, h)
		}
	}
	return res
}

// ApplyPolicy returns a copy of the spec with weights adjusted by policy. A
// zero total weight is rejected under every policy.
func (s *Spec) ApplyPolicy(policy WeightPolicy) (*Spec, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	sum := s.Sum()
	if sum <= 0 {
		return nil, fmt.Errorf("%w: weights sum to zero", ErrInvalidWeights)
	}

	res := &Spec{Holdings: make([]Holding, len(s.Holdings))}
	copy(res.Holdings, s.Holdings)

	switch policy {
	case WeightNormalize, "":
		for idx := range res.Holdings {
			res.Holdings[idx].Weight /= sum
		}
	case WeightReject:
		if math.Abs(sum-1) > weightTolerance {
			return nil, fmt.Errorf("%w: weights sum to %v, expected 1", ErrInvalidWeights, sum)
		}
	case WeightAsIs:
	default:
		return nil, fmt.Errorf("%w: unknown weight policy %q", ErrInvalidOptions, policy)
	}

	return res, nil
}
