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
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/penny-vault/pv-analyzer/portfolio"
)

var _ = Describe("File", func() {
	DescribeTable("loading portfolio definitions",
		func(fn string) {
			f, err := portfolio.LoadFile(fn)
			Expect(err).To(BeNil())
			Expect(f.Benchmark).To(Equal("SPY"))
			Expect(f.Holdings).To(HaveLen(2))

			req, err := f.Request(day(1), day(31))
			Expect(err).To(BeNil())
			Expect(req.Begin).To(Equal(day(4)))
			Expect(req.End).To(Equal(day(8)))
			Expect(req.WeightPolicy).To(Equal(portfolio.WeightNormalize))
			Expect(req.RiskFreeRate).ToNot(BeNil())
			Expect(*req.RiskFreeRate).To(BeNumerically("~", 0.015, 1e-12))

			spec, err := req.Holdings.Clean().ApplyPolicy(req.WeightPolicy)
			Expect(err).To(BeNil())
			Expect(spec.Tickers()).To(Equal([]string{"VTI", "BND"}))
			Expect(spec.Weights()["VTI"]).To(BeNumerically("~", 0.6, 1e-12))
		},
		Entry("toml", "testdata/sixty_forty.toml"),
		Entry("yaml", "testdata/sixty_forty.yaml"),
	)

	It("rejects unknown extensions", func() {
		_, err := portfolio.LoadFile("testdata/portfolio.json")
		Expect(err).To(MatchError(portfolio.ErrUnknownFormat))
	})

	It("errors when the file does not exist", func() {
		_, err := portfolio.LoadFile("testdata/missing.toml")
		Expect(err).ToNot(BeNil())
	})

	It("uses the default dates when the file has none", func() {
		f := &portfolio.File{Holdings: []portfolio.Holding{{Ticker: "VTI", Weight: 1}}}
		req, err := f.Request(day(1), day(31))
		Expect(err).To(BeNil())
		Expect(req.Begin).To(Equal(day(1)))
		Expect(req.End).To(Equal(day(31)))
		Expect(req.RiskFreeRate).To(BeNil())
	})

	It("rejects malformed dates", func() {
		f := &portfolio.File{Start: "01/04/2021", Holdings: []portfolio.Holding{{Ticker: "VTI", Weight: 1}}}
		_, err := f.Request(day(1), day(31))
		Expect(err).To(MatchError(portfolio.ErrInvalidOptions))
	})
})
