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

package data_test

import (
	"context"
	"os"
	"regexp"
	"time"

	"github.com/jarcoal/httpmock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/penny-vault/pv-analyzer/data"
)

var _ = Describe("Yahoo", func() {
	var (
		yahoo *data.Yahoo
		ctx   context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		yahoo = data.NewYahoo()
	})

	It("prefers the adjusted close and skips null quotes", func() {
		content, err := os.ReadFile("testdata/yahoo_spy.json")
		Expect(err).To(BeNil())
		httpmock.RegisterRegexpResponder("GET", regexp.MustCompile(`^https://query1\.finance\.yahoo\.com/v8/finance/chart/SPY`),
			httpmock.NewBytesResponder(200, content))

		ps, err := yahoo.GetDataForPeriod(ctx, "SPY", day(4), day(8))
		Expect(err).To(BeNil())
		Expect(ps.Dates).To(Equal([]time.Time{day(4), day(5), day(7), day(8)}))
		Expect(ps.Prices).To(Equal([]float64{359.33, 361.81, 369.38, 371.48}))
	})

	It("falls back to the close when no adjusted close is published", func() {
		content, err := os.ReadFile("testdata/yahoo_index.json")
		Expect(err).To(BeNil())
		httpmock.RegisterRegexpResponder("GET", regexp.MustCompile(`^https://query1\.finance\.yahoo\.com/v8/finance/chart/`),
			httpmock.NewBytesResponder(200, content))

		ps, err := yahoo.GetDataForPeriod(ctx, "^GSPC", day(4), day(6))
		Expect(err).To(BeNil())
		Expect(ps.Prices).To(Equal([]float64{3700.65, 3726.86, 3748.14}))
	})

	It("fails over to the second host when rate limited", func() {
		content, err := os.ReadFile("testdata/yahoo_spy.json")
		Expect(err).To(BeNil())
		httpmock.RegisterRegexpResponder("GET", regexp.MustCompile(`^https://query1\.finance\.yahoo\.com/`),
			httpmock.NewStringResponder(429, "Edge: Too Many Requests"))
		httpmock.RegisterRegexpResponder("GET", regexp.MustCompile(`^https://query2\.finance\.yahoo\.com/`),
			httpmock.NewBytesResponder(200, content))

		ps, err := yahoo.GetDataForPeriod(ctx, "SPY", day(4), day(8))
		Expect(err).To(BeNil())
		Expect(ps.Len()).To(Equal(4))
	})

	It("treats an unknown ticker as unavailable without retrying", func() {
		content, err := os.ReadFile("testdata/yahoo_notfound.json")
		Expect(err).To(BeNil())
		httpmock.RegisterRegexpResponder("GET", regexp.MustCompile(`^https://query1\.finance\.yahoo\.com/`),
			httpmock.NewBytesResponder(404, content))

		_, err = yahoo.GetDataForPeriod(ctx, "NOPE", day(4), day(8))
		Expect(err).To(MatchError(data.ErrDataUnavailable))
		Expect(httpmock.GetTotalCallCount()).To(Equal(1))
	})
})
