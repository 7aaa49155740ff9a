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
	"fmt"
	"strconv"
	"strings"

	"github.com/penny-vault/pv-analyzer/common"
	"github.com/penny-vault/pv-analyzer/data"
	"github.com/penny-vault/pv-analyzer/data/database"
	"github.com/penny-vault/pv-analyzer/portfolio"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// newProvider builds the configured price provider, wrapped by the cache when
// caching is enabled
func newProvider(ctx context.Context) (data.Provider, error) {
	name := viper.GetString("data.provider")
	if strings.EqualFold(name, "pvdb") && !database.Connected() {
		if err := database.Connect(ctx); err != nil {
			log.Error().Err(err).Msg("could not connect to database")
			return nil, err
		}
	}

	provider, err := data.NewProvider(name)
	if err != nil {
		log.Error().Err(err).Str("Provider", name).Msg("could not create data provider")
		return nil, err
	}

	if common.CacheEnabled() {
		provider = data.NewCachedProvider(provider)
	}

	log.Debug().Str("Provider", provider.Name()).Msg("initialized data provider")
	return provider, nil
}

// newAnalyzer creates an analyzer using the configured provider. The FRED risk
// free source is returned separately so the server can refresh it.
func newAnalyzer(ctx context.Context) (*portfolio.Analyzer, *data.Fred, error) {
	provider, err := newProvider(ctx)
	if err != nil {
		return nil, nil, err
	}

	loader := data.NewLoader(provider,
		data.WithTimeout(viper.GetDuration("data.timeout")),
		data.WithConcurrency(viper.GetInt("data.concurrency")),
	)

	series := viper.GetString("risk_free.series")
	if strings.EqualFold(series, "none") {
		return portfolio.NewAnalyzer(loader), nil, nil
	}

	fred := data.NewFred(series)
	return portfolio.NewAnalyzer(loader, portfolio.WithRiskFreeSource(fred)), fred, nil
}

// parseWeights parses a comma separated list of weights; a trailing % is allowed
func parseWeights(s string) ([]float64, error) {
	parts := common.SplitList(s)
	weights := make([]float64, len(parts))
	for idx, part := range parts {
		w, err := strconv.ParseFloat(strings.TrimSuffix(part, "%"), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", portfolio.ErrInvalidWeights, part)
		}
		weights[idx] = w
	}
	return weights, nil
}

// parseRiskFreeRate interprets a percentage; `auto` or an empty string returns
// nil so the analyzer looks the rate up
func parseRiskFreeRate(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "auto") {
		return nil, nil
	}
	rate, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
	if err != nil {
		return nil, fmt.Errorf("%w: risk free rate %q", portfolio.ErrInvalidOptions, s)
	}
	rate /= 100.0
	return &rate, nil
}
