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

package portfolio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/penny-vault/pv-analyzer/common"
	"github.com/penny-vault/pv-analyzer/data"
	"github.com/penny-vault/pv-analyzer/dataframe"
	"github.com/penny-vault/pv-analyzer/observability/opentelemetry"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// correlation above which the portfolio is considered a copy of its benchmark
const mirrorCorrelation = 0.999

// Request describes a single analysis. RiskFreeRate is an annual decimal
// fraction; when nil the analyzer's RiskFreeSource is consulted.
type Request struct {
	Holdings       *Spec        `json:"holdings"`
	Benchmark      string       `json:"benchmark"`
	Begin          time.Time    `json:"begin"`
	End            time.Time    `json:"end"`
	RiskFreeRate   *float64     `json:"riskFreeRate,omitempty"`
	PeriodsPerYear float64      `json:"periodsPerYear"`
	TargetReturn   float64      `json:"targetReturn"`
	WeightPolicy   WeightPolicy `json:"weightPolicy"`
}

// Report bundles the returns, statistics and growth curve of one series
type Report struct {
	Name    string        `json:"name"`
	Returns *ReturnSeries `json:"returns"`
	Metrics *Metrics      `json:"metrics"`
	Growth  *GrowthCurve  `json:"growth"`
}

// Result is the outcome of Analyzer.Run. Holdings are the weights actually
// used after policy and failed tickers were applied.
type Result struct {
	ID           uuid.UUID         `json:"id"`
	Request      *Request          `json:"request"`
	Holdings     *Spec             `json:"holdings"`
	Portfolio    *Report           `json:"portfolio"`
	Benchmark    *Report           `json:"benchmark,omitempty"`
	Comparison   *Comparison       `json:"comparison,omitempty"`
	RiskFreeRate float64           `json:"riskFreeRate"`
	Failed       map[string]string `json:"failed,omitempty"`
	Warnings     []string          `json:"warnings,omitempty"`
}

// PriceLoader fetches several price series at once
type PriceLoader interface {
	LoadMany(ctx context.Context, symbols []string, begin, end time.Time) (map[string]*data.PriceSeries, map[string]error)
}

// RiskFreeSource returns the average annual risk free rate over a period
type RiskFreeSource interface {
	Rate(ctx context.Context, begin, end time.Time) (float64, error)
}

type Analyzer struct {
	loader   PriceLoader
	riskFree RiskFreeSource
}

type AnalyzerOption func(*Analyzer)

// WithRiskFreeSource sets where the risk free rate comes from when a request
// does not specify one
func WithRiskFreeSource(src RiskFreeSource) AnalyzerOption {
	return func(a *Analyzer) {
		a.riskFree = src
	}
}

func NewAnalyzer(loader PriceLoader, opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		loader: loader,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (req *Request) validate() error {
	if req.Begin.After(req.End) {
		return fmt.Errorf("%w: %s > %s", data.ErrInvalidRange, req.Begin.Format("2006-01-02"), req.End.Format("2006-01-02"))
	}
	if req.PeriodsPerYear < 0 || math.IsNaN(req.PeriodsPerYear) || math.IsInf(req.PeriodsPerYear, 0) {
		return fmt.Errorf("%w: periods per year must be positive", ErrInvalidOptions)
	}
	if req.RiskFreeRate != nil && (math.IsNaN(*req.RiskFreeRate) || math.IsInf(*req.RiskFreeRate, 0)) {
		return fmt.Errorf("%w: risk free rate must be a finite number", ErrInvalidOptions)
	}
	if req.Holdings == nil {
		return ErrEmptyPortfolio
	}
	return req.Holdings.Validate()
}

// Run loads prices for the request and computes the portfolio and benchmark
// reports. Tickers that fail to load are listed in Result.Failed and removed
// from the portfolio; the request only fails when nothing usable remains.
func (a *Analyzer) Run(ctx context.Context, req *Request) (*Result, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "analyzer.Run")
	defer span.End()

	if a.loader == nil {
		return nil, data.ErrNoProvider
	}

	if req == nil {
		return nil, ErrEmptyPortfolio
	}

	if err := req.validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		return nil, err
	}

	begin := common.Midnight(req.Begin)
	end := common.Midnight(req.End)
	benchmark := strings.ToUpper(strings.TrimSpace(req.Benchmark))

	result := &Result{
		ID:       uuid.New(),
		Request:  req,
		Failed:   make(map[string]string),
		Warnings: []string{},
	}

	span.SetAttributes(
		attribute.String("ID", result.ID.String()),
		attribute.String("Benchmark", benchmark),
		attribute.String("Begin", begin.Format("2006-01-02")),
		attribute.String("End", end.Format("2006-01-02")),
	)

	spec := req.Holdings.Clean()
	subLog := log.With().Str("ID", result.ID.String()).Array("Holdings", spec).Str("Benchmark", benchmark).Logger()

	if benchmark != "" && spec.Contains(benchmark) {
		spec = spec.Without(benchmark)
		result.Warnings = append(result.Warnings, fmt.Sprintf("benchmark %s removed from portfolio", benchmark))
		if len(spec.Holdings) == 0 {
			return nil, fmt.Errorf("%w: the only holding is the benchmark %s", ErrEmptyPortfolio, benchmark)
		}
	}

	spec, err := spec.ApplyPolicy(req.WeightPolicy)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid weights")
		return nil, err
	}

	symbols := spec.Tickers()
	if benchmark != "" {
		symbols = append(symbols, benchmark)
	}

	series, errs := a.loader.LoadMany(ctx, symbols, begin, end)
	if errs == nil {
		errs = make(map[string]error)
	}

	// a ticker with a single price cannot produce a return
	for ticker, ps := range series {
		if ps.Len() < 2 {
			errs[ticker] = fmt.Errorf("%w: %s needs at least 2 prices, has %d", ErrInsufficientData, ticker, ps.Len())
			delete(series, ticker)
		}
	}

	failed := make([]string, 0, len(errs))
	for ticker, loadErr := range errs {
		result.Failed[ticker] = loadErr.Error()
		if ticker != benchmark {
			failed = append(failed, ticker)
		}
	}
	sort.Strings(failed)

	if len(failed) > 0 {
		if req.WeightPolicy == WeightReject {
			err := fmt.Errorf("%w: could not load %v", data.ErrDataUnavailable, failed)
			span.RecordError(err)
			span.SetStatus(codes.Error, "ticker failed under reject policy")
			return nil, err
		}

		spec = spec.Without(failed...)
		if len(spec.Holdings) == 0 {
			err := fmt.Errorf("%w: no portfolio ticker could be loaded", data.ErrDataUnavailable)
			span.RecordError(err)
			span.SetStatus(codes.Error, "no data")
			return nil, err
		}

		if req.WeightPolicy == WeightNormalize || req.WeightPolicy == "" {
			spec, err = spec.ApplyPolicy(WeightNormalize)
			if err != nil {
				return nil, err
			}
		}

		result.Warnings = append(result.Warnings, fmt.Sprintf("excluded tickers without data: %v", failed))
		subLog.Warn().Strs("Failed", failed).Msg("excluding tickers without data")
	}

	result.Holdings = spec

	benchSeries, haveBenchmark := series[benchmark]
	if benchmark != "" && !haveBenchmark {
		result.Warnings = append(result.Warnings, fmt.Sprintf("benchmark %s could not be loaded", benchmark))
	}

	// align portfolio and benchmark at the price level so both series share
	// the same base date
	if haveBenchmark {
		dfMap := make(dataframe.DataFrameMap, len(spec.Holdings)+1)
		for _, ticker := range spec.Tickers() {
			dfMap[ticker] = series[ticker].DataFrame()
		}
		dfMap[benchmark] = benchSeries.DataFrame()
		joined := dfMap.Join(append(spec.Tickers(), benchmark)...).Trim(begin, end)
		if joined.Len() < 2 {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("benchmark %s shares fewer than 2 dates with the portfolio; comparison skipped", benchmark))
			haveBenchmark = false
		} else {
			aligned := make(map[string]*data.PriceSeries, len(joined.ColNames))
			for idx, ticker := range joined.ColNames {
				ps, err := data.NewPriceSeries(ticker, joined.Dates, joined.Vals[idx])
				if err != nil {
					return nil, err
				}
				aligned[ticker] = ps
			}
			benchSeries = aligned[benchmark]
			series = aligned
		}
	}

	portfolioReturns, err := PortfolioReturns("Portfolio", series, spec)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "portfolio returns failed")
		return nil, err
	}

	if portfolioReturns.Len() == 0 {
		err := fmt.Errorf("%w: tickers do not share any dates", ErrInsufficientData)
		span.RecordError(err)
		span.SetStatus(codes.Error, "no common dates")
		return nil, err
	}

	result.RiskFreeRate = a.riskFreeRate(ctx, req, begin, end, result)

	opts := MetricsOptions{
		PeriodsPerYear: req.PeriodsPerYear,
		RiskFreeRate:   result.RiskFreeRate,
		TargetReturn:   req.TargetReturn,
	}

	result.Portfolio, err = buildReport(portfolioReturns, opts)
	if err != nil {
		return nil, err
	}

	if haveBenchmark {
		benchReturns, err := NewReturnSeries(benchSeries)
		if err != nil {
			return nil, err
		}
		benchReturns.Name = benchmark

		result.Benchmark, err = buildReport(benchReturns, opts)
		if err != nil {
			return nil, err
		}

		result.Comparison, err = Compare(portfolioReturns, benchReturns, opts)
		if err != nil {
			result.Warnings = append(result.Warnings, err.Error())
		} else if result.Comparison.Correlation > mirrorCorrelation {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("portfolio is nearly identical to benchmark %s (correlation %.4f)", benchmark, result.Comparison.Correlation))
		}
	}

	subLog.Info().Object("Metrics", result.Portfolio.Metrics).Int("NumWarnings", len(result.Warnings)).Msg("analysis complete")
	return result, nil
}

func (a *Analyzer) riskFreeRate(ctx context.Context, req *Request, begin, end time.Time, result *Result) float64 {
	if req.RiskFreeRate != nil {
		return *req.RiskFreeRate
	}

	if a.riskFree == nil {
		return 0
	}

	rate, err := a.riskFree.Rate(ctx, begin, end)
	if err != nil {
		log.Warn().Err(err).Msg("could not determine risk free rate; using 0")
		result.Warnings = append(result.Warnings, "risk free rate unavailable; using 0")
		return 0
	}
	return rate
}

func buildReport(r *ReturnSeries, opts MetricsOptions) (*Report, error) {
	metrics, err := CalculateMetrics(r, opts)
	if err != nil && !errors.Is(err, ErrInsufficientData) {
		return nil, err
	}
	return &Report{
		Name:    r.Name,
		Returns: r,
		Metrics: metrics,
		Growth:  NewGrowthCurve(r),
	}, nil
}
