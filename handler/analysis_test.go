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

package handler_test

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/penny-vault/pv-analyzer/data"
	"github.com/penny-vault/pv-analyzer/handler"
	"github.com/penny-vault/pv-analyzer/portfolio"
	"github.com/penny-vault/pv-analyzer/router"
)

var _ = Describe("Analysis", func() {
	var app *fiber.App

	post := func(path, body string) *http.Response {
		req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		resp, err := app.Test(req, -1)
		Expect(err).To(BeNil())
		return resp
	}

	decode := func(resp *http.Response) map[string]interface{} {
		body, err := io.ReadAll(resp.Body)
		Expect(err).To(BeNil())
		res := map[string]interface{}{}
		Expect(json.Unmarshal(body, &res)).To(Succeed())
		return res
	}

	BeforeEach(func() {
		provider := data.NewMemoryProvider()
		Expect(provider.AddPrices("VTI", day(4), 100, 104, 98, 102)).To(Succeed())
		Expect(provider.AddPrices("BND", day(4), 50, 50.5, 50.25, 50.75)).To(Succeed())
		Expect(provider.AddPrices("SPY", day(4), 300, 309, 297, 303)).To(Succeed())

		analyzer := portfolio.NewAnalyzer(data.NewLoader(provider))
		app = fiber.New(fiber.Config{
			JSONEncoder: json.Marshal,
			JSONDecoder: json.Unmarshal,
		})
		router.SetupRoutes(app, handler.NewAnalysis(analyzer, "SPY"))
	})

	It("reports health", func() {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
		Expect(err).To(BeNil())
		Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
		Expect(decode(resp)).To(HaveKeyWithValue("status", "success"))
	})

	It("analyzes a portfolio", func() {
		resp := post("/api/v1/analysis", `{
			"holdings": [{"ticker": "vti", "weight": 60}, {"ticker": "bnd", "weight": 40}],
			"start": "2021-01-01",
			"end": "2021-01-31",
			"riskFreeRate": 1.5,
			"initialInvestment": 1000
		}`)
		Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

		res := decode(resp)
		Expect(res).To(HaveKeyWithValue("riskFreeRate", BeNumerically("~", 0.015, 1e-12)))
		Expect(res).To(HaveKey("portfolio"))
		Expect(res).To(HaveKey("benchmark"))
		Expect(res).To(HaveKey("comparison"))
		Expect(res["portfolioValue"]).To(HaveLen(4))
		Expect(res["portfolioValue"].([]interface{})[0]).To(Equal("1000"))
	})

	It("skips the benchmark when it is empty", func() {
		resp := post("/api/v1/analysis", `{"holdings": [{"ticker": "VTI", "weight": 1}], "benchmark": "", "start": "2021-01-01", "end": "2021-01-31"}`)
		Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
		Expect(decode(resp)).ToNot(HaveKey("benchmark"))
	})

	DescribeTable("rejecting bad requests",
		func(body string, status int) {
			resp := post("/api/v1/analysis", body)
			Expect(resp.StatusCode).To(Equal(status))
			Expect(decode(resp)).To(HaveKey("error"))
		},
		Entry("malformed JSON", `{"holdings": [`, fiber.StatusBadRequest),
		Entry("no holdings", `{"holdings": [], "start": "2021-01-01", "end": "2021-01-31"}`, fiber.StatusBadRequest),
		Entry("negative weight", `{"holdings": [{"ticker": "VTI", "weight": -1}], "start": "2021-01-01", "end": "2021-01-31"}`, fiber.StatusBadRequest),
		Entry("inverted range", `{"holdings": [{"ticker": "VTI", "weight": 1}], "start": "2021-02-01", "end": "2021-01-01"}`, fiber.StatusBadRequest),
		Entry("bad date", `{"holdings": [{"ticker": "VTI", "weight": 1}], "start": "yesterday"}`, fiber.StatusBadRequest),
		Entry("bad policy", `{"holdings": [{"ticker": "VTI", "weight": 1}], "weightPolicy": "yolo"}`, fiber.StatusBadRequest),
		Entry("bad investment", `{"holdings": [{"ticker": "VTI", "weight": 1}], "initialInvestment": 0}`, fiber.StatusBadRequest),
		Entry("no data", `{"holdings": [{"ticker": "NOPE", "weight": 1}], "start": "2021-01-01", "end": "2021-01-31"}`, fiber.StatusUnprocessableEntity),
	)

	It("draws a chart", func() {
		resp := post("/api/v1/analysis/chart", `{"holdings": [{"ticker": "VTI", "weight": 1}], "start": "2021-01-01", "end": "2021-01-31"}`)
		Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
		Expect(resp.Header.Get(fiber.HeaderContentType)).To(Equal("image/png"))
		body, err := io.ReadAll(resp.Body)
		Expect(err).To(BeNil())
		Expect(body[:4]).To(Equal([]byte{0x89, 'P', 'N', 'G'}))
	})
})
