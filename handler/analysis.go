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

package handler

import (
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/penny-vault/pv-analyzer/common"
	"github.com/penny-vault/pv-analyzer/data"
	"github.com/penny-vault/pv-analyzer/observability/opentelemetry"
	"github.com/penny-vault/pv-analyzer/portfolio"
	"github.com/penny-vault/pv-analyzer/render"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var ErrBadRequest = errors.New("bad request")

// AnalysisRequest is the JSON body accepted by the analysis endpoints. Dates
// are YYYY-MM-DD; RiskFreeRate is in percent and, when omitted, the server's
// risk free source is used.
type AnalysisRequest struct {
	Holdings          []portfolio.Holding `json:"holdings"`
	Benchmark         *string             `json:"benchmark"`
	Start             string              `json:"start"`
	End               string              `json:"end"`
	RiskFreeRate      *float64            `json:"riskFreeRate"`
	PeriodsPerYear    float64             `json:"periodsPerYear"`
	TargetReturn      float64             `json:"targetReturn"`
	WeightPolicy      string              `json:"weightPolicy"`
	InitialInvestment *float64            `json:"initialInvestment"`
}

// AnalysisResponse is the result plus the dollar value of the initial investment
type AnalysisResponse struct {
	*portfolio.Result
	InitialInvestment decimal.Decimal   `json:"initialInvestment"`
	PortfolioValue    []decimal.Decimal `json:"portfolioValue"`
	BenchmarkValue    []decimal.Decimal `json:"benchmarkValue,omitempty"`
}

// Analysis serves portfolio analyses over HTTP
type Analysis struct {
	analyzer         *portfolio.Analyzer
	defaultBenchmark string
	defaultLookback  time.Duration
}

func NewAnalysis(analyzer *portfolio.Analyzer, defaultBenchmark string) *Analysis {
	return &Analysis{
		analyzer:         analyzer,
		defaultBenchmark: defaultBenchmark,
		defaultLookback:  365 * 24 * time.Hour,
	}
}

func (a *Analysis) parse(c *fiber.Ctx) (*portfolio.Request, render.Options, error) {
	opts := render.DefaultOptions()

	params := AnalysisRequest{}
	if err := json.Unmarshal(c.Body(), &params); err != nil {
		return nil, opts, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}

	policy, err := portfolio.ParseWeightPolicy(params.WeightPolicy)
	if err != nil {
		return nil, opts, err
	}

	end := common.Midnight(time.Now())
	if params.End != "" {
		if end, err = common.ParseDate(params.End); err != nil {
			return nil, opts, fmt.Errorf("%w: end %q: %w", ErrBadRequest, params.End, err)
		}
	}

	begin := end.Add(-a.defaultLookback)
	if params.Start != "" {
		if begin, err = common.ParseDate(params.Start); err != nil {
			return nil, opts, fmt.Errorf("%w: start %q: %w", ErrBadRequest, params.Start, err)
		}
	}

	benchmark := a.defaultBenchmark
	if params.Benchmark != nil {
		benchmark = *params.Benchmark
	}

	req := &portfolio.Request{
		Holdings:       &portfolio.Spec{Holdings: params.Holdings},
		Benchmark:      benchmark,
		Begin:          begin,
		End:            end,
		PeriodsPerYear: params.PeriodsPerYear,
		TargetReturn:   params.TargetReturn,
		WeightPolicy:   policy,
	}

	if params.RiskFreeRate != nil {
		rate := *params.RiskFreeRate / 100.0
		req.RiskFreeRate = &rate
	}

	if params.InitialInvestment != nil {
		if *params.InitialInvestment <= 0 {
			return nil, opts, fmt.Errorf("%w: initial investment must be positive", ErrBadRequest)
		}
		opts.InitialInvestment = decimal.NewFromFloat(*params.InitialInvestment)
	}

	return req, opts, nil
}

// statusCode maps analysis errors onto HTTP status codes
func statusCode(err error) int {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, data.ErrInvalidRange),
		errors.Is(err, portfolio.ErrInvalidWeights),
		errors.Is(err, portfolio.ErrEmptyPortfolio),
		errors.Is(err, portfolio.ErrInvalidOptions):
		return fiber.StatusBadRequest
	case errors.Is(err, data.ErrDataUnavailable),
		errors.Is(err, portfolio.ErrInsufficientData):
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}

func (a *Analysis) run(c *fiber.Ctx) (res *portfolio.Result, opts render.Options, resp error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(c.UserContext(), c.Route().Path)
	defer span.End()
	span.SetAttributes(opentelemetry.SpanAttributesFromFiber(c)...)

	defer func() {
		if err := recover(); err != nil {
			stackSlice := make([]byte, 1024)
			runtime.Stack(stackSlice, false)
			log.Error().Interface("Error", err).Str("StackTrace", string(stackSlice)).Str("Path", c.Path()).Msg("caught panic")
			span.SetStatus(codes.Error, "panic")
			res = nil
			resp = sendError(c, fiber.StatusInternalServerError, errors.New("internal server error"))
		}
	}()

	req, opts, err := a.parse(c)
	if err != nil {
		log.Warn().Err(err).Str("Path", c.Path()).Msg("invalid analysis request")
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		return nil, opts, sendError(c, statusCode(err), err)
	}

	res, err = a.analyzer.Run(ctx, req)
	if err != nil {
		status := statusCode(err)
		log.Warn().Err(err).Int("StatusCode", status).Str("Path", c.Path()).Msg("analysis failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, "analysis failed")
		return nil, opts, sendError(c, status, err)
	}

	return res, opts, nil
}

// Analyze runs an analysis and returns the result as JSON
func (a *Analysis) Analyze(c *fiber.Ctx) error {
	res, opts, err := a.run(c)
	if res == nil {
		return err
	}

	response := AnalysisResponse{
		Result:            res,
		InitialInvestment: opts.InitialInvestment,
		PortfolioValue:    res.Portfolio.Growth.Value(opts.InitialInvestment),
	}
	if res.Benchmark != nil {
		response.BenchmarkValue = res.Benchmark.Growth.Value(opts.InitialInvestment)
	}

	return c.JSON(response)
}

// Chart runs an analysis and returns the growth chart as a PNG
func (a *Analysis) Chart(c *fiber.Ctx) error {
	res, opts, err := a.run(c)
	if res == nil {
		return err
	}

	buf, err := render.Chart(res, opts)
	if err != nil {
		log.Error().Err(err).Msg("could not render chart")
		return sendError(c, fiber.StatusInternalServerError, err)
	}

	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(buf)
}
