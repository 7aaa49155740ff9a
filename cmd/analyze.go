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

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/penny-vault/pv-analyzer/common"
	"github.com/penny-vault/pv-analyzer/portfolio"
	"github.com/penny-vault/pv-analyzer/render"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var ErrNoHoldings = errors.New("specify --tickers or --portfolio-file")

var analyzeFlags struct {
	tickers           string
	weights           string
	portfolioFile     string
	benchmark         string
	start             string
	end               string
	riskFreeRate      string
	periodsPerYear    float64
	targetReturn      float64
	weightPolicy      string
	initialInvestment float64
	format            string
	chart             string
	showCurve         bool
	style             string
}

func init() {
	flags := analyzeCmd.Flags()
	flags.StringVarP(&analyzeFlags.tickers, "tickers", "t", "", "Comma separated list of tickers")
	flags.StringVarP(&analyzeFlags.weights, "weights", "w", "", "Comma separated weights in percent or fractions; equal weight when omitted")
	flags.StringVarP(&analyzeFlags.portfolioFile, "portfolio-file", "f", "", "TOML or YAML portfolio definition")
	flags.StringVarP(&analyzeFlags.benchmark, "benchmark", "b", "SPY", "Benchmark ticker; empty to skip the comparison")
	flags.StringVar(&analyzeFlags.start, "start", "", "First date (YYYY-MM-DD); defaults to one year before end")
	flags.StringVar(&analyzeFlags.end, "end", "", "Last date (YYYY-MM-DD); defaults to today")
	flags.StringVar(&analyzeFlags.riskFreeRate, "risk-free-rate", "auto", "Annual risk free rate in percent, or `auto` to use FRED")
	flags.Float64Var(&analyzeFlags.periodsPerYear, "periods-per-year", portfolio.DefaultPeriodsPerYear, "Periods used to annualize statistics")
	flags.Float64Var(&analyzeFlags.targetReturn, "target-return", 0, "Per period target return for the Sortino ratio")
	flags.StringVar(&analyzeFlags.weightPolicy, "weight-policy", string(portfolio.WeightNormalize), "How weights not summing to one are treated: normalize, reject or as-is")
	flags.Float64Var(&analyzeFlags.initialInvestment, "initial-investment", 10000, "Amount invested on the first date")
	flags.StringVar(&analyzeFlags.format, "format", string(render.FormatTable), "Output format: table, markdown, json or csv")
	flags.StringVar(&analyzeFlags.chart, "chart", "", "Write a PNG growth chart to this file")
	flags.BoolVar(&analyzeFlags.showCurve, "show-curve", false, "Include the growth curve in the output")
	flags.StringVar(&analyzeFlags.style, "style", "dark", "glamour style for markdown output, `raw` prints the markdown source")

	rootCmd.AddCommand(analyzeCmd)
}

// buildRequest assembles the analysis request from the portfolio file and the
// flags; explicitly set flags take precedence over the file
func buildRequest(cmd *cobra.Command) (*portfolio.Request, error) {
	end := common.Midnight(time.Now())
	var err error
	if analyzeFlags.end != "" {
		if end, err = common.ParseDate(analyzeFlags.end); err != nil {
			return nil, fmt.Errorf("%w: end %q", portfolio.ErrInvalidOptions, analyzeFlags.end)
		}
	}

	begin := end.AddDate(-1, 0, 0)
	if analyzeFlags.start != "" {
		if begin, err = common.ParseDate(analyzeFlags.start); err != nil {
			return nil, fmt.Errorf("%w: start %q", portfolio.ErrInvalidOptions, analyzeFlags.start)
		}
	}

	var req *portfolio.Request
	switch {
	case analyzeFlags.portfolioFile != "":
		f, err := portfolio.LoadFile(analyzeFlags.portfolioFile)
		if err != nil {
			return nil, err
		}
		if req, err = f.Request(begin, end); err != nil {
			return nil, err
		}
		if f.Benchmark == "" || cmd.Flags().Changed("benchmark") {
			req.Benchmark = analyzeFlags.benchmark
		}
		if cmd.Flags().Changed("start") {
			req.Begin = begin
		}
		if cmd.Flags().Changed("end") {
			req.End = end
		}
	case analyzeFlags.tickers != "":
		tickers := common.SplitList(analyzeFlags.tickers)
		common.ArrToUpper(tickers)
		var spec *portfolio.Spec
		if analyzeFlags.weights == "" {
			spec = portfolio.EqualWeight(tickers)
		} else {
			weights, err := parseWeights(analyzeFlags.weights)
			if err != nil {
				return nil, err
			}
			if spec, err = portfolio.NewSpec(tickers, weights); err != nil {
				return nil, err
			}
		}
		req = &portfolio.Request{
			Holdings:  spec,
			Benchmark: analyzeFlags.benchmark,
			Begin:     begin,
			End:       end,
		}
	default:
		return nil, ErrNoHoldings
	}

	if req.RiskFreeRate == nil || cmd.Flags().Changed("risk-free-rate") {
		if req.RiskFreeRate, err = parseRiskFreeRate(analyzeFlags.riskFreeRate); err != nil {
			return nil, err
		}
	}

	if analyzeFlags.portfolioFile == "" || cmd.Flags().Changed("weight-policy") {
		if req.WeightPolicy, err = portfolio.ParseWeightPolicy(analyzeFlags.weightPolicy); err != nil {
			return nil, err
		}
	}

	req.PeriodsPerYear = analyzeFlags.periodsPerYear
	req.TargetReturn = analyzeFlags.targetReturn
	return req, nil
}

func writeResult(ctx context.Context, format render.Format, res *portfolio.Result, opts render.Options) error {
	switch format {
	case render.FormatJSON:
		return render.JSON(os.Stdout, res)
	case render.FormatCSV:
		return render.CurveCSV(ctx, os.Stdout, res, opts)
	case render.FormatMarkdown:
		md := render.Markdown(res, opts)
		if analyzeFlags.style == "raw" {
			_, err := fmt.Fprint(os.Stdout, md)
			return err
		}
		out, err := render.Terminal(md, analyzeFlags.style)
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(os.Stdout, out)
		return err
	default:
		return render.Table(os.Stdout, res, opts)
	}
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze the performance of a portfolio",
	Long: `Download adjusted closing prices for every holding and the benchmark, then
report total and annualized return, volatility, Sharpe and Sortino ratios,
drawdowns and the growth of an initial investment.`,
	Example: `  pvanalyzer analyze --tickers VTI,BND --weights 60,40 --start 2015-01-01
  pvanalyzer analyze --portfolio-file portfolio.toml --format markdown --chart growth.png`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		format, err := render.ParseFormat(analyzeFlags.format)
		if err != nil {
			return err
		}

		if analyzeFlags.initialInvestment <= 0 {
			return fmt.Errorf("%w: initial investment must be positive", portfolio.ErrInvalidOptions)
		}

		opts := render.Options{
			InitialInvestment: decimal.NewFromFloat(analyzeFlags.initialInvestment),
			ShowCurve:         analyzeFlags.showCurve,
		}

		req, err := buildRequest(cmd)
		if err != nil {
			return err
		}

		analyzer, _, err := newAnalyzer(ctx)
		if err != nil {
			return err
		}

		res, err := analyzer.Run(ctx, req)
		if err != nil {
			log.Error().Err(err).Msg("analysis failed")
			return err
		}

		if err := writeResult(ctx, format, res, opts); err != nil {
			return err
		}

		if analyzeFlags.chart != "" {
			buf, err := render.Chart(res, opts)
			if err != nil {
				return err
			}
			if err := os.WriteFile(analyzeFlags.chart, buf, 0644); err != nil {
				return err
			}
			log.Info().Str("FileName", analyzeFlags.chart).Msg("wrote growth chart")
		}

		return nil
	},
}
