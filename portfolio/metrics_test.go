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
	"math"
	"time"

	"github.com/goccy/go-json"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/penny-vault/pv-analyzer/portfolio"
)

var _ = Describe("Metrics", func() {
	var opts portfolio.MetricsOptions

	BeforeEach(func() {
		opts = portfolio.DefaultMetricsOptions()
	})

	Context("with steady gains", func() {
		It("computes total return without any draw down", func() {
			r, err := portfolio.NewReturnSeries(prices("VTI", 100, 110, 121))
			Expect(err).To(BeNil())
			metrics, err := portfolio.CalculateMetrics(r, opts)
			Expect(err).To(BeNil())
			Expect(metrics.Observations).To(Equal(2))
			Expect(metrics.TotalReturn).To(BeNumerically("~", 0.21, 1e-12))
			Expect(metrics.MaxDrawDown).To(Equal(0.0))
			Expect(metrics.DrawDowns).To(BeEmpty())
			Expect(metrics.Begin).To(Equal(day(1)))
			Expect(metrics.End).To(Equal(day(3)))
			Expect(metrics.AnnualizedReturn / (math.Pow(1.21, 126) - 1)).To(BeNumerically("~", 1.0, 1e-9))
			Expect(metrics.PositivePeriods).To(Equal(1.0))
		})
	})

	Context("with a loss and partial recovery", func() {
		It("reports the draw down from the peak", func() {
			r, err := portfolio.NewReturnSeries(prices("VTI", 100, 90, 99))
			Expect(err).To(BeNil())
			metrics, err := portfolio.CalculateMetrics(r, opts)
			Expect(err).To(BeNil())
			Expect(metrics.TotalReturn).To(BeNumerically("~", -0.01, 1e-12))
			Expect(metrics.MaxDrawDown).To(BeNumerically("~", -0.1, 1e-12))
			Expect(metrics.WorstDay).To(BeNumerically("~", -0.1, 1e-12))
			Expect(metrics.BestDay).To(BeNumerically("~", 0.1, 1e-12))

			Expect(metrics.DrawDowns).To(HaveLen(1))
			dd := metrics.DrawDowns[0]
			Expect(dd.Begin).To(Equal(day(1)))
			Expect(dd.End).To(Equal(day(2)))
			Expect(dd.Recovery).To(Equal(time.Time{}))
			Expect(dd.LossPercent).To(BeNumerically("~", -0.1, 1e-12))
			Expect(metrics.CalmarRatio).To(BeNumerically("~", metrics.AnnualizedReturn/0.1, 1e-9))
		})

		It("records the recovery date", func() {
			r := returnSeries("VTI", -0.5, 0.5, 0.5)
			metrics, err := portfolio.CalculateMetrics(r, opts)
			Expect(err).To(BeNil())
			Expect(metrics.DrawDowns).To(HaveLen(1))
			Expect(metrics.DrawDowns[0].Recovery).To(Equal(day(4)))
		})

		It("orders draw downs deepest first", func() {
			r := returnSeries("VTI", -0.1, 0.2, -0.3, 0.5)
			metrics, err := portfolio.CalculateMetrics(r, opts)
			Expect(err).To(BeNil())
			Expect(metrics.DrawDowns).To(HaveLen(2))
			Expect(metrics.DrawDowns[0].LossPercent).To(BeNumerically("~", -0.3, 1e-12))
			Expect(metrics.DrawDowns[1].LossPercent).To(BeNumerically("~", -0.1, 1e-12))
			Expect(metrics.MaxDrawDown).To(BeNumerically("~", -0.3, 1e-12))
		})
	})

	Context("with all zero returns", func() {
		It("reports zero return and volatility with undefined ratios", func() {
			r, err := portfolio.NewReturnSeries(prices("CASH", 100, 100, 100, 100, 100))
			Expect(err).To(BeNil())
			metrics, err := portfolio.CalculateMetrics(r, opts)
			Expect(err).To(BeNil())
			Expect(metrics.TotalReturn).To(Equal(0.0))
			Expect(metrics.AnnualizedReturn).To(Equal(0.0))
			Expect(metrics.AnnualizedVolatility).To(Equal(0.0))
			Expect(metrics.MaxDrawDown).To(Equal(0.0))
			Expect(math.IsNaN(metrics.SharpeRatio)).To(BeTrue())
			Expect(math.IsNaN(metrics.SortinoRatio)).To(BeTrue())
			Expect(math.IsNaN(metrics.CalmarRatio)).To(BeTrue())
			Expect(metrics.Warnings).To(ContainElement(ContainSubstring("Sharpe ratio is undefined")))
			Expect(metrics.Warnings).To(ContainElement(ContainSubstring("Sortino ratio is undefined")))
		})
	})

	Context("with an empty series", func() {
		It("returns NaN metrics and ErrInsufficientData", func() {
			metrics, err := portfolio.CalculateMetrics(&portfolio.ReturnSeries{Name: "EMPTY"}, opts)
			Expect(err).To(MatchError(portfolio.ErrInsufficientData))
			Expect(metrics).ToNot(BeNil())
			Expect(math.IsNaN(metrics.TotalReturn)).To(BeTrue())
			Expect(math.IsNaN(metrics.AnnualizedVolatility)).To(BeTrue())
			Expect(math.IsNaN(metrics.MaxDrawDown)).To(BeTrue())
			Expect(metrics.Observations).To(Equal(0))
		})
	})

	Context("with a single return", func() {
		It("computes the return but not the volatility", func() {
			metrics, err := portfolio.CalculateMetrics(returnSeries("VTI", 0.02), opts)
			Expect(err).To(BeNil())
			Expect(metrics.TotalReturn).To(BeNumerically("~", 0.02, 1e-12))
			Expect(math.IsNaN(metrics.AnnualizedVolatility)).To(BeTrue())
			Expect(math.IsNaN(metrics.SharpeRatio)).To(BeTrue())
			Expect(metrics.Warnings).To(ContainElement(ContainSubstring("at least 2 observations")))
		})
	})

	It("reports a total loss as -100% annualized", func() {
		metrics, err := portfolio.CalculateMetrics(returnSeries("BUST", 0.1, -1.0), opts)
		Expect(err).To(BeNil())
		Expect(metrics.TotalReturn).To(Equal(-1.0))
		Expect(metrics.AnnualizedReturn).To(Equal(-1.0))
		Expect(metrics.MaxDrawDown).To(Equal(-1.0))
	})

	It("warns when there are few observations", func() {
		metrics, err := portfolio.CalculateMetrics(returnSeries("VTI", 0.01, -0.01, 0.02), opts)
		Expect(err).To(BeNil())
		Expect(metrics.Warnings).To(ContainElement(ContainSubstring("statistics are unstable")))
	})

	Context("with a realistic series", func() {
		var r *portfolio.ReturnSeries

		BeforeEach(func() {
			rets := make([]float64, 60)
			for idx := range rets {
				rets[idx] = 0.01 * math.Sin(float64(idx)/3.0)
			}
			r = returnSeries("VTI", rets...)
		})

		It("annualizes volatility with the square root of the period", func() {
			daily, err := portfolio.CalculateMetrics(r, portfolio.MetricsOptions{PeriodsPerYear: 1})
			Expect(err).To(BeNil())
			annual, err := portfolio.CalculateMetrics(r, opts)
			Expect(err).To(BeNil())
			Expect(annual.AnnualizedVolatility).To(BeNumerically("~", daily.AnnualizedVolatility*math.Sqrt(252), 1e-12))
			Expect(annual.Warnings).To(BeEmpty())
		})

		It("subtracts the risk free rate in the Sharpe ratio", func() {
			base, err := portfolio.CalculateMetrics(r, opts)
			Expect(err).To(BeNil())
			opts.RiskFreeRate = 0.05
			withRf, err := portfolio.CalculateMetrics(r, opts)
			Expect(err).To(BeNil())
			Expect(withRf.SharpeRatio).To(BeNumerically("~", (base.AnnualizedReturn-0.05)/base.AnnualizedVolatility, 1e-9))
			Expect(withRf.SortinoRatio).To(BeNumerically("~", (base.AnnualizedReturn-0.05)/base.DownsideDeviation, 1e-9))
		})

		It("defaults periods per year when unset", func() {
			unset, err := portfolio.CalculateMetrics(r, portfolio.MetricsOptions{})
			Expect(err).To(BeNil())
			def, err := portfolio.CalculateMetrics(r, opts)
			Expect(err).To(BeNil())
			Expect(unset.AnnualizedReturn).To(Equal(def.AnnualizedReturn))
		})

		It("is deterministic", func() {
			first, err := portfolio.CalculateMetrics(r, opts)
			Expect(err).To(BeNil())
			second, err := portfolio.CalculateMetrics(r, opts)
			Expect(err).To(BeNil())
			Expect(second).To(Equal(first))
		})
	})

	It("marshals undefined values as null", func() {
		metrics, err := portfolio.CalculateMetrics(returnSeries("VTI", 0.02), opts)
		Expect(err).To(BeNil())
		buf, err := json.Marshal(metrics)
		Expect(err).To(BeNil())
		Expect(string(buf)).To(ContainSubstring(`"annualizedVolatility":null`))

		var decoded portfolio.Metrics
		Expect(json.Unmarshal(buf, &decoded)).To(Succeed())
		Expect(math.IsNaN(decoded.AnnualizedVolatility)).To(BeTrue())
		Expect(decoded.TotalReturn).To(BeNumerically("~", 0.02, 1e-12))
	})
})
