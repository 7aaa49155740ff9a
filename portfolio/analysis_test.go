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
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/penny-vault/pv-analyzer/data"
	"github.com/penny-vault/pv-analyzer/portfolio"
)

type fixedRate struct {
	rate  float64
	err   error
	calls int
}

func (f *fixedRate) Rate(ctx context.Context, begin, end time.Time) (float64, error) {
	f.calls++
	return f.rate, f.err
}

var _ = Describe("Analyzer", func() {
	var (
		provider *data.MemoryProvider
		analyzer *portfolio.Analyzer
		riskFree *fixedRate
		ctx      context.Context
	)

	request := func(tickers []string, weights []float64, benchmark string) *portfolio.Request {
		spec, err := portfolio.NewSpec(tickers, weights)
		Expect(err).To(BeNil())
		return &portfolio.Request{
			Holdings:  spec,
			Benchmark: benchmark,
			Begin:     day(1),
			End:       day(31),
		}
	}

	BeforeEach(func() {
		ctx = context.Background()
		provider = data.NewMemoryProvider()
		Expect(provider.AddPrices("A", day(1), 100, 110, 104.5)).To(Succeed())
		Expect(provider.AddPrices("B", day(1), 100, 100, 120)).To(Succeed())
		Expect(provider.AddPrices("SPY", day(1), 300, 303, 300)).To(Succeed())
		Expect(provider.AddPrices("VTI", day(1), 100, 110, 99, 105)).To(Succeed())
		Expect(provider.AddPrices("VOO", day(1), 200, 220, 198, 210)).To(Succeed())
		Expect(provider.AddPrices("LATE", day(10), 50, 51, 52)).To(Succeed())
		Expect(provider.AddPrices("ONE", day(1), 42)).To(Succeed())

		riskFree = &fixedRate{rate: 0.02}
		analyzer = portfolio.NewAnalyzer(data.NewLoader(provider), portfolio.WithRiskFreeSource(riskFree))
	})

	It("computes the weighted portfolio against a benchmark", func() {
		res, err := analyzer.Run(ctx, request([]string{"a", "b"}, []float64{50, 50}, "spy"))
		Expect(err).To(BeNil())
		Expect(res.ID.String()).ToNot(BeEmpty())
		Expect(res.Failed).To(BeEmpty())
		Expect(res.Holdings.Weights()).To(Equal(map[string]float64{"A": 0.5, "B": 0.5}))

		Expect(res.Portfolio.Returns.Returns).To(HaveLen(2))
		Expect(res.Portfolio.Returns.Returns[0]).To(BeNumerically("~", 0.05, 1e-12))
		Expect(res.Portfolio.Returns.Returns[1]).To(BeNumerically("~", 0.075, 1e-12))
		Expect(res.Portfolio.Growth.Values).To(HaveLen(3))
		Expect(res.Portfolio.Metrics.TotalReturn).To(BeNumerically("~", 1.05*1.075-1, 1e-12))

		Expect(res.Benchmark).ToNot(BeNil())
		Expect(res.Benchmark.Name).To(Equal("SPY"))
		Expect(res.Benchmark.Growth.Dates).To(Equal(res.Portfolio.Growth.Dates))
		Expect(res.Comparison).ToNot(BeNil())
		Expect(res.Comparison.Observations).To(Equal(2))

		Expect(res.RiskFreeRate).To(Equal(0.02))
		Expect(riskFree.calls).To(Equal(1))
	})

	It("prefers the risk free rate of the request", func() {
		req := request([]string{"A", "B"}, []float64{1, 1}, "SPY")
		rate := 0.01
		req.RiskFreeRate = &rate
		res, err := analyzer.Run(ctx, req)
		Expect(err).To(BeNil())
		Expect(res.RiskFreeRate).To(Equal(0.01))
		Expect(riskFree.calls).To(Equal(0))
	})

	It("falls back to a zero risk free rate when the source fails", func() {
		riskFree.err = data.ErrNoRiskFreeData
		res, err := analyzer.Run(ctx, request([]string{"A"}, []float64{1}, "SPY"))
		Expect(err).To(BeNil())
		Expect(res.RiskFreeRate).To(Equal(0.0))
		Expect(res.Warnings).To(ContainElement(ContainSubstring("risk free rate unavailable")))
	})

	It("excludes tickers without data and renormalizes", func() {
		res, err := analyzer.Run(ctx, request([]string{"A", "MISSING"}, []float64{60, 40}, "SPY"))
		Expect(err).To(BeNil())
		Expect(res.Failed).To(HaveKey("MISSING"))
		Expect(res.Holdings.Weights()).To(Equal(map[string]float64{"A": 1.0}))
		Expect(res.Portfolio.Returns.Returns[0]).To(BeNumerically("~", 0.1, 1e-12))
		Expect(res.Warnings).To(ContainElement(ContainSubstring("MISSING")))
	})

	It("keeps the remaining weights under as-is", func() {
		req := request([]string{"A", "MISSING"}, []float64{0.6, 0.4}, "SPY")
		req.WeightPolicy = portfolio.WeightAsIs
		res, err := analyzer.Run(ctx, req)
		Expect(err).To(BeNil())
		Expect(res.Holdings.Weights()).To(Equal(map[string]float64{"A": 0.6}))
		Expect(res.Portfolio.Returns.Returns[0]).To(BeNumerically("~", 0.06, 1e-12))
	})

	It("fails under reject when a ticker has no data", func() {
		req := request([]string{"A", "MISSING"}, []float64{0.5, 0.5}, "SPY")
		req.WeightPolicy = portfolio.WeightReject
		_, err := analyzer.Run(ctx, req)
		Expect(err).To(MatchError(data.ErrDataUnavailable))
	})

	It("fails when no ticker has data", func() {
		_, err := analyzer.Run(ctx, request([]string{"MISSING", "GONE"}, []float64{1, 1}, "SPY"))
		Expect(err).To(MatchError(data.ErrDataUnavailable))
	})

	It("treats a ticker with a single price as failed", func() {
		res, err := analyzer.Run(ctx, request([]string{"A", "ONE"}, []float64{1, 1}, "SPY"))
		Expect(err).To(BeNil())
		Expect(res.Failed).To(HaveKey("ONE"))
		Expect(res.Holdings.Tickers()).To(Equal([]string{"A"}))
	})

	It("removes the benchmark from the portfolio", func() {
		res, err := analyzer.Run(ctx, request([]string{"A", "SPY"}, []float64{1, 1}, "SPY"))
		Expect(err).To(BeNil())
		Expect(res.Holdings.Tickers()).To(Equal([]string{"A"}))
		Expect(res.Warnings).To(ContainElement(ContainSubstring("benchmark SPY removed")))
	})

	It("refuses a portfolio made only of the benchmark", func() {
		_, err := analyzer.Run(ctx, request([]string{"SPY"}, []float64{1}, "SPY"))
		Expect(err).To(MatchError(portfolio.ErrEmptyPortfolio))
	})

	It("continues without a benchmark that cannot be loaded", func() {
		res, err := analyzer.Run(ctx, request([]string{"A"}, []float64{1}, "NOPE"))
		Expect(err).To(BeNil())
		Expect(res.Benchmark).To(BeNil())
		Expect(res.Comparison).To(BeNil())
		Expect(res.Failed).To(HaveKey("NOPE"))
		Expect(res.Warnings).To(ContainElement(ContainSubstring("benchmark NOPE could not be loaded")))
	})

	It("runs without a benchmark", func() {
		res, err := analyzer.Run(ctx, request([]string{"A"}, []float64{1}, ""))
		Expect(err).To(BeNil())
		Expect(res.Benchmark).To(BeNil())
		Expect(res.Warnings).To(BeEmpty())
	})

	It("skips the comparison when the benchmark does not overlap", func() {
		res, err := analyzer.Run(ctx, request([]string{"A"}, []float64{1}, "LATE"))
		Expect(err).To(BeNil())
		Expect(res.Benchmark).To(BeNil())
		Expect(res.Warnings).To(ContainElement(ContainSubstring("comparison skipped")))
	})

	It("fails when the holdings share no dates", func() {
		_, err := analyzer.Run(ctx, request([]string{"A", "LATE"}, []float64{1, 1}, ""))
		Expect(err).To(MatchError(portfolio.ErrInsufficientData))
	})

	It("warns when the portfolio mirrors the benchmark", func() {
		res, err := analyzer.Run(ctx, request([]string{"VTI"}, []float64{1}, "VOO"))
		Expect(err).To(BeNil())
		Expect(res.Comparison.Correlation).To(BeNumerically("~", 1.0, 1e-9))
		Expect(res.Warnings).To(ContainElement(ContainSubstring("nearly identical to benchmark VOO")))
	})

	It("produces identical results on repeated runs", func() {
		first, err := analyzer.Run(ctx, request([]string{"VTI", "A"}, []float64{1, 3}, "SPY"))
		Expect(err).To(BeNil())
		second, err := analyzer.Run(ctx, request([]string{"VTI", "A"}, []float64{1, 3}, "SPY"))
		Expect(err).To(BeNil())
		Expect(second.Portfolio.Returns).To(Equal(first.Portfolio.Returns))
		Expect(second.Portfolio.Growth).To(Equal(first.Portfolio.Growth))
		Expect(second.Portfolio.Metrics.TotalReturn).To(Equal(first.Portfolio.Metrics.TotalReturn))
		Expect(second.Portfolio.Metrics.MaxDrawDown).To(Equal(first.Portfolio.Metrics.MaxDrawDown))
		Expect(second.ID).ToNot(Equal(first.ID))
	})

	DescribeTable("request validation",
		func(mutate func(*portfolio.Request), expected error) {
			req := request([]string{"A"}, []float64{1}, "SPY")
			mutate(req)
			_, err := analyzer.Run(ctx, req)
			Expect(errors.Is(err, expected)).To(BeTrue(), "got %v", err)
		},
		Entry("begin after end", func(req *portfolio.Request) { req.Begin = day(20); req.End = day(2) }, data.ErrInvalidRange),
		Entry("no holdings", func(req *portfolio.Request) { req.Holdings = &portfolio.Spec{} }, portfolio.ErrEmptyPortfolio),
		Entry("negative weight", func(req *portfolio.Request) { req.Holdings.Holdings[0].Weight = -1 }, portfolio.ErrInvalidWeights),
		Entry("negative periods", func(req *portfolio.Request) { req.PeriodsPerYear = -12 }, portfolio.ErrInvalidOptions),
	)
})
