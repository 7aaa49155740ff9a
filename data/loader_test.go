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
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/penny-vault/pv-analyzer/data"
)

var _ = Describe("Loader", func() {
	var (
		provider *data.MemoryProvider
		loader   *data.Loader
		ctx      context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		provider = data.NewMemoryProvider()
		Expect(provider.AddPrices("SPY", day(4), 100, 101, 102, 103, 104)).To(Succeed())
		Expect(provider.AddPrices("AGG", day(4), 50, 50.5, 51)).To(Succeed())
		loader = data.NewLoader(provider, data.WithTimeout(time.Second), data.WithConcurrency(1))
	})

	Context("when loading a single symbol", func() {
		It("returns prices within the range", func() {
			ps, err := loader.Load(ctx, "spy", day(5), day(7))
			Expect(err).To(BeNil())
			Expect(ps.Ticker).To(Equal("SPY"))
			Expect(ps.Dates).To(Equal([]time.Time{day(5), day(6), day(7)}))
			Expect(ps.Prices).To(Equal([]float64{101, 102, 103}))
		})

		It("includes both endpoints when begin equals end", func() {
			ps, err := loader.Load(ctx, "SPY", day(6), day(6))
			Expect(err).To(BeNil())
			Expect(ps.Prices).To(Equal([]float64{102}))
		})

		It("ignores the time of day in the requested range", func() {
			ps, err := loader.Load(ctx, "SPY", day(5).Add(20*time.Hour), day(6).Add(time.Hour))
			Expect(err).To(BeNil())
			Expect(ps.Prices).To(Equal([]float64{101, 102}))
		})

		It("rejects an inverted range", func() {
			_, err := loader.Load(ctx, "SPY", day(7), day(5))
			Expect(err).To(MatchError(data.ErrInvalidRange))
		})

		It("reports unknown symbols as unavailable", func() {
			_, err := loader.Load(ctx, "NOPE", day(4), day(8))
			Expect(err).To(MatchError(data.ErrDataUnavailable))
		})

		It("reports ranges without prices as unavailable", func() {
			_, err := loader.Load(ctx, "SPY", day(20), day(25))
			Expect(err).To(MatchError(data.ErrDataUnavailable))
		})

		It("reports a timeout as unavailable", func() {
			provider.SetLatency(time.Second)
			loader = data.NewLoader(provider, data.WithTimeout(10*time.Millisecond))
			_, err := loader.Load(ctx, "SPY", day(4), day(8))
			Expect(err).To(MatchError(data.ErrDataUnavailable))
			Expect(err.Error()).To(ContainSubstring("timed out"))
		})
	})

	Context("when loading many symbols", func() {
		It("separates successes from failures", func() {
			series, errs := loader.LoadMany(ctx, []string{"SPY", "AGG", "NOPE"}, day(4), day(8))
			Expect(series).To(HaveLen(2))
			Expect(series["SPY"].Len()).To(Equal(5))
			Expect(series["AGG"].Len()).To(Equal(3))
			Expect(errs).To(HaveLen(1))
			Expect(errs["NOPE"]).To(MatchError(data.ErrDataUnavailable))
		})

		It("fetches duplicate symbols once", func() {
			series, errs := loader.LoadMany(ctx, []string{"SPY", "spy", " SPY "}, day(4), day(8))
			Expect(errs).To(BeEmpty())
			Expect(series).To(HaveLen(1))
			Expect(provider.Calls("SPY")).To(Equal(1))
		})

		It("returns empty maps for no symbols", func() {
			series, errs := loader.LoadMany(ctx, nil, day(4), day(8))
			Expect(series).To(BeEmpty())
			Expect(errs).To(BeEmpty())
		})
	})
})
