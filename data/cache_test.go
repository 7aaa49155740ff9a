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

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/penny-vault/pv-analyzer/common"
	"github.com/penny-vault/pv-analyzer/data"
	"github.com/spf13/viper"
)

var _ = Describe("CachedProvider", func() {
	var (
		provider *data.MemoryProvider
		cached   *data.CachedProvider
		ctx      context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		viper.Set("cache.redis", false)
		viper.Set("cache.local_size", 16)
		Expect(common.SetupCache()).To(Succeed())
		common.CachePurge()

		provider = data.NewMemoryProvider()
		Expect(provider.AddPrices("SPY", day(4), 100, 101, 102)).To(Succeed())
		cached = data.NewCachedProvider(provider)
	})

	It("serves repeated requests from the cache", func() {
		ps1, err := cached.GetDataForPeriod(ctx, "SPY", day(4), day(6))
		Expect(err).To(BeNil())
		ps2, err := cached.GetDataForPeriod(ctx, "SPY", day(4), day(6))
		Expect(err).To(BeNil())

		Expect(provider.Calls("SPY")).To(Equal(1))
		Expect(ps2.Prices).To(Equal(ps1.Prices))
		Expect(ps2.Dates).To(HaveLen(3))
		Expect(ps2.Dates[0].Equal(ps1.Dates[0])).To(BeTrue())
	})

	It("keys the cache by range", func() {
		_, err := cached.GetDataForPeriod(ctx, "SPY", day(4), day(6))
		Expect(err).To(BeNil())
		_, err = cached.GetDataForPeriod(ctx, "SPY", day(4), day(5))
		Expect(err).To(BeNil())
		Expect(provider.Calls("SPY")).To(Equal(2))
	})

	It("does not cache failures", func() {
		_, err := cached.GetDataForPeriod(ctx, "NOPE", day(4), day(6))
		Expect(err).To(MatchError(data.ErrDataUnavailable))
		_, err = cached.GetDataForPeriod(ctx, "NOPE", day(4), day(6))
		Expect(err).To(MatchError(data.ErrDataUnavailable))
		Expect(provider.Calls("NOPE")).To(Equal(2))
	})

	It("reports the wrapped provider name", func() {
		Expect(cached.Name()).To(Equal("memory"))
	})
})
