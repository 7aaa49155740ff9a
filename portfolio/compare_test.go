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

var _ = Describe("Compare", func() {
	opts := portfolio.DefaultMetricsOptions()

	It("reports a perfect match for identical series", func() {
		p := returnSeries("P", 0.01, -0.02, 0.03, 0.005)
		b := returnSeries("B", 0.01, -0.02, 0.03, 0.005)
		cmp, err := portfolio.Compare(p, b, opts)
		Expect(err).To(BeNil())
		Expect(cmp.Observations).To(Equal(4))
		Expect(cmp.Correlation).To(BeNumerically("~", 1.0, 1e-12))
		Expect(cmp.Beta).To(BeNumerically("~", 1.0, 1e-12))
		Expect(cmp.ActiveReturn).To(Equal(0.0))
		Expect(cmp.TrackingError).To(Equal(0.0))
		Expect(math.IsNaN(cmp.InformationRatio)).To(BeTrue())
	})

	It("measures a leveraged portfolio", func() {
		p := returnSeries("P", 0.02, -0.04, 0.06, 0.01)
		b := returnSeries("B", 0.01, -0.02, 0.03, 0.005)
		cmp, err := portfolio.Compare(p, b, opts)
		Expect(err).To(BeNil())
		Expect(cmp.Correlation).To(BeNumerically("~", 1.0, 1e-12))
		Expect(cmp.Beta).To(BeNumerically("~", 2.0, 1e-12))
		Expect(cmp.TrackingError).To(BeNumerically(">", 0))
		Expect(cmp.InformationRatio).To(BeNumerically("~", cmp.ActiveReturn/cmp.TrackingError, 1e-12))
	})

	It("is negatively correlated with an inverse series", func() {
		p := returnSeries("P", -0.01, 0.02, -0.03, -0.005)
		b := returnSeries("B", 0.01, -0.02, 0.03, 0.005)
		cmp, err := portfolio.Compare(p, b, opts)
		Expect(err).To(BeNil())
		Expect(cmp.Correlation).To(BeNumerically("~", -1.0, 1e-12))
		Expect(cmp.Beta).To(BeNumerically("~", -1.0, 1e-12))
	})

	It("leaves correlation undefined for a flat benchmark", func() {
		p := returnSeries("P", 0.01, -0.02, 0.03)
		b := returnSeries("B", 0, 0, 0)
		cmp, err := portfolio.Compare(p, b, opts)
		Expect(err).To(BeNil())
		Expect(math.IsNaN(cmp.Correlation)).To(BeTrue())
		Expect(math.IsNaN(cmp.Beta)).To(BeTrue())

		buf, err := json.Marshal(cmp)
		Expect(err).To(BeNil())
		Expect(string(buf)).To(ContainSubstring(`"correlation":null`))
	})

	It("only compares common dates", func() {
		p := returnSeries("P", 0.01, -0.02, 0.03)
		b := &portfolio.ReturnSeries{
			Name:    "B",
			Base:    day(1),
			Dates:   []time.Time{day(3), day(4), day(20)},
			Returns: []float64{-0.02, 0.03, 0.5},
		}
		cmp, err := portfolio.Compare(p, b, opts)
		Expect(err).To(BeNil())
		Expect(cmp.Observations).To(Equal(2))
		Expect(cmp.Correlation).To(BeNumerically("~", 1.0, 1e-12))
	})

	It("needs at least two common observations", func() {
		p := returnSeries("P", 0.01)
		b := returnSeries("B", 0.01)
		_, err := portfolio.Compare(p, b, opts)
		Expect(err).To(MatchError(portfolio.ErrInsufficientData))
	})
})
