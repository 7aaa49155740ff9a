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

package portfolio_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/penny-vault/pv-analyzer/data"
	"github.com/penny-vault/pv-analyzer/portfolio"
)

var _ = Describe("Returns", func() {
	Describe("for a single price series", func() {
		It("has one fewer return than prices", func() {
			for n := 2; n < 10; n++ {
				vals := make([]float64, n)
				for idx := range vals {
					vals[idx] = 100 + float64(idx*idx)
				}
				r, err := portfolio.NewReturnSeries(prices("VTI", vals...))
				Expect(err).To(BeNil())
				Expect(r.Len()).To(Equal(n - 1))
				Expect(r.Dates).To(HaveLen(n - 1))
			}
		})

		It("computes simple returns", func() {
			r, err := portfolio.NewReturnSeries(prices("VTI", 100, 110, 121))
			Expect(err).To(BeNil())
			Expect(r.Name).To(Equal("VTI"))
			Expect(r.Base).To(Equal(day(1)))
			Expect(r.Dates).To(Equal([]time.Time{day(2), day(3)}))
			Expect(r.Returns[0]).To(BeNumerically("~", 0.1, 1e-12))
			Expect(r.Returns[1]).To(BeNumerically("~", 0.1, 1e-12))
		})

		It("needs at least two prices", func() {
			_, err := portfolio.NewReturnSeries(prices("VTI", 100))
			Expect(err).To(MatchError(portfolio.ErrInsufficientData))
		})
	})

	Describe("for a weighted portfolio", func() {
		It("weights the returns of each ticker", func() {
			series := map[string]*data.PriceSeries{
				"A": prices("A", 100, 110, 104.5),
				"B": prices("B", 100, 100, 120),
			}
			spec := portfolio.EqualWeight([]string{"A", "B"})
			r, err := portfolio.PortfolioReturns("Portfolio", series, spec)
			Expect(err).To(BeNil())
			Expect(r.Len()).To(Equal(2))
			Expect(r.Returns[0]).To(BeNumerically("~", 0.05, 1e-12))
			Expect(r.Returns[1]).To(BeNumerically("~", 0.075, 1e-12))
		})

		It("drops dates missing from any ticker", func() {
			b, err := data.NewPriceSeries("B", []time.Time{day(1), day(3)}, []float64{50, 55})
			Expect(err).To(BeNil())
			series := map[string]*data.PriceSeries{
				"A": prices("A", 100, 200, 110),
				"B": b,
			}
			r, err := portfolio.PortfolioReturns("Portfolio", series, portfolio.EqualWeight([]string{"A", "B"}))
			Expect(err).To(BeNil())
			Expect(r.Base).To(Equal(day(1)))
			Expect(r.Dates).To(Equal([]time.Time{day(3)}))
			Expect(r.Returns[0]).To(BeNumerically("~", 0.1, 1e-12))
		})

		It("returns an empty series when tickers share no dates", func() {
			b, err := data.NewPriceSeries("B", []time.Time{day(10), day(11)}, []float64{50, 55})
			Expect(err).To(BeNil())
			series := map[string]*data.PriceSeries{
				"A": prices("A", 100, 110),
				"B": b,
			}
			r, err := portfolio.PortfolioReturns("Portfolio", series, portfolio.EqualWeight([]string{"A", "B"}))
			Expect(err).To(BeNil())
			Expect(r.Len()).To(Equal(0))
		})

		It("errors when a ticker has fewer than two prices", func() {
			series := map[string]*data.PriceSeries{
				"A": prices("A", 100, 110),
				"B": prices("B", 100),
			}
			_, err := portfolio.PortfolioReturns("Portfolio", series, portfolio.EqualWeight([]string{"A", "B"}))
			Expect(err).To(MatchError(portfolio.ErrInsufficientData))
		})

		It("errors when a ticker is missing", func() {
			series := map[string]*data.PriceSeries{
				"A": prices("A", 100, 110),
			}
			_, err := portfolio.PortfolioReturns("Portfolio", series, portfolio.EqualWeight([]string{"A", "B"}))
			Expect(err).To(MatchError(portfolio.ErrInsufficientData))
		})
	})

	It("aligns two series on common dates", func() {
		a := returnSeries("A", 0.1, 0.2, 0.3)
		b := &portfolio.ReturnSeries{
			Name:    "B",
			Base:    day(1),
			Dates:   []time.Time{day(3), day(4), day(5)},
			Returns: []float64{-0.1, -0.2, -0.3},
		}
		aa, bb := portfolio.Align(a, b)
		Expect(aa.Dates).To(Equal([]time.Time{day(3), day(4)}))
		Expect(aa.Returns).To(Equal([]float64{0.2, 0.3}))
		Expect(bb.Returns).To(Equal([]float64{-0.1, -0.2}))
		Expect(a.Len()).To(Equal(3))
	})
})
