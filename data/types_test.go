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
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/penny-vault/pv-analyzer/data"
)

var _ = Describe("PriceSeries", func() {
	It("sorts observations and drops invalid prices", func() {
		ps, err := data.NewPriceSeries("SPY",
			[]time.Time{day(6), day(4), day(5), day(7), day(8)},
			[]float64{12, 10, math.NaN(), -1, math.Inf(1)})
		Expect(err).To(BeNil())
		Expect(ps.Dates).To(Equal([]time.Time{day(4), day(6)}))
		Expect(ps.Prices).To(Equal([]float64{10, 12}))
		Expect(ps.Validate()).To(BeNil())
	})

	It("keeps the last observation for a repeated date", func() {
		ps, err := data.NewPriceSeries("SPY",
			[]time.Time{day(4), day(5), day(5).Add(16 * time.Hour)},
			[]float64{10, 11, 12})
		Expect(err).To(BeNil())
		Expect(ps.Dates).To(Equal([]time.Time{day(4), day(5)}))
		Expect(ps.Prices).To(Equal([]float64{10, 12}))
	})

	It("rejects mismatched inputs", func() {
		_, err := data.NewPriceSeries("SPY", []time.Time{day(4)}, []float64{})
		Expect(err).To(MatchError(data.ErrMismatchedLength))
	})

	It("trims to an inclusive range", func() {
		ps, err := data.NewPriceSeries("SPY", []time.Time{day(4), day(5), day(6)}, []float64{1, 2, 3})
		Expect(err).To(BeNil())
		trimmed := ps.Trim(day(5), day(6))
		Expect(trimmed.Prices).To(Equal([]float64{2, 3}))
		Expect(trimmed.Start()).To(Equal(day(5)))
		Expect(trimmed.End()).To(Equal(day(6)))
		Expect(ps.Len()).To(Equal(3))
	})

	It("converts to a dataframe named after the ticker", func() {
		ps, err := data.NewPriceSeries("SPY", []time.Time{day(4), day(5)}, []float64{1, 2})
		Expect(err).To(BeNil())
		df := ps.DataFrame()
		Expect(df.ColNames).To(Equal([]string{"SPY"}))
		Expect(df.Vals[0]).To(Equal([]float64{1, 2}))
	})
})
