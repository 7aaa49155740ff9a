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

package data

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/penny-vault/pv-analyzer/data/database"
	"github.com/spf13/viper"
)

// Provider retrieves daily adjusted closing prices for a symbol
type Provider interface {
	// Name is a short identifier used in logs and cache keys
	Name() string

	// GetDataForPeriod returns the prices for symbol between begin and end
	// (inclusive). Providers return an error wrapping ErrDataUnavailable when the
	// symbol is unknown or no prices exist in the range.
	GetDataForPeriod(ctx context.Context, symbol string, begin, end time.Time) (*PriceSeries, error)
}

// NewProvider constructs the provider registered under name. Tiingo reads its
// API token from `tiingo.token`; pvdb requires database.Connect to have been
// called first.
func NewProvider(name string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "tiingo":
		token := viper.GetString("tiingo.token")
		if token == "" {
			return nil, fmt.Errorf("%w: tiingo requires tiingo.token", ErrNoProvider)
		}
		return NewTiingo(token), nil
	case "yahoo", "":
		return NewYahoo(), nil
	case "pvdb":
		if !database.Connected() {
			return nil, fmt.Errorf("%w: pvdb requires database.url", ErrNoProvider)
		}
		return NewPvDb(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
}
