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
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/penny-vault/pv-analyzer/common"
	"github.com/penny-vault/pv-analyzer/observability/opentelemetry"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	DefaultTimeout     = 30 * time.Second
	DefaultConcurrency = 10
)

// Loader fetches price series from a provider, enforcing a per-fetch timeout
// and limiting how many symbols are downloaded at once
type Loader struct {
	provider    Provider
	timeout     time.Duration
	concurrency int
}

type LoaderOption func(*Loader)

// WithTimeout bounds each individual provider request; zero disables the bound
func WithTimeout(d time.Duration) LoaderOption {
	return func(l *Loader) {
		l.timeout = d
	}
}

// WithConcurrency limits the number of simultaneous provider requests in LoadMany
func WithConcurrency(n int) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.concurrency = n
		}
	}
}

// NewLoader creates a loader for provider
func NewLoader(provider Provider, opts ...LoaderOption) *Loader {
	l := &Loader{
		provider:    provider,
		timeout:     DefaultTimeout,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load returns the adjusted close prices of symbol for every trading day in
// [begin, end]. Dates are compared at calendar day granularity.
func (l *Loader) Load(ctx context.Context, symbol string, begin, end time.Time) (*PriceSeries, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "loader.Load")
	defer span.End()

	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	begin = common.Midnight(begin)
	end = common.Midnight(end)

	span.SetAttributes(
		attribute.String("Symbol", symbol),
		attribute.String("Begin", begin.Format("2006-01-02")),
		attribute.String("End", end.Format("2006-01-02")),
	)

	subLog := log.With().Str("Symbol", symbol).Time("Begin", begin).Time("End", end).Logger()

	if l.provider == nil {
		return nil, ErrNoProvider
	}

	if begin.After(end) {
		span.SetStatus(codes.Error, "begin after end")
		subLog.Warn().Msg("refusing to load prices for an inverted range")
		return nil, ErrInvalidRange
	}

	if symbol == "" {
		return nil, fmt.Errorf("%w: empty symbol", ErrDataUnavailable)
	}

	fetchCtx := ctx
	if l.timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	ps, err := l.provider.GetDataForPeriod(fetchCtx, symbol, begin, end)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "provider request failed")
		switch {
		case errors.Is(err, ErrDataUnavailable), errors.Is(err, ErrInvalidRange):
			subLog.Debug().Err(err).Msg("no data available")
			return nil, err
		case errors.Is(fetchCtx.Err(), context.DeadlineExceeded):
			subLog.Warn().Err(err).Dur("Timeout", l.timeout).Msg("provider request timed out")
			return nil, fmt.Errorf("%w: %s: request timed out after %s", ErrDataUnavailable, symbol, l.timeout)
		default:
			subLog.Warn().Err(err).Str("Provider", l.provider.Name()).Msg("provider request failed")
			return nil, fmt.Errorf("%w: %s: %w", ErrDataUnavailable, symbol, err)
		}
	}

	ps = ps.Trim(begin, end)
	ps.Ticker = symbol
	if ps.Len() == 0 {
		span.SetStatus(codes.Error, "no prices in range")
		return nil, fmt.Errorf("%w: %s has no prices between %s and %s", ErrDataUnavailable, symbol,
			begin.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	subLog.Debug().Int("NumPrices", ps.Len()).Str("Provider", l.provider.Name()).Msg("loaded prices")
	return ps, nil
}

// LoadMany loads every symbol concurrently. Successful series and per-symbol
// errors are returned separately so callers can decide how to handle partial
// failures. Duplicate symbols are fetched once.
func (l *Loader) LoadMany(ctx context.Context, symbols []string, begin, end time.Time) (map[string]*PriceSeries, map[string]error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "loader.LoadMany")
	defer span.End()

	seen := make(map[string]bool, len(symbols))
	unique := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		if !seen[symbol] {
			seen[symbol] = true
			unique = append(unique, symbol)
		}
	}

	span.SetAttributes(attribute.StringSlice("Symbols", unique))
	subLog := log.With().Strs("Symbols", unique).Time("Begin", begin).Time("End", end).Logger()

	res := make(map[string]*PriceSeries, len(unique))
	errs := make(map[string]error)
	ch := make(chan quoteResult)

	chunks := partitionArray(unique, l.concurrency)
	for idx, chunk := range chunks {
		subLog.Debug().Int("Chunk", idx).Int("TotalChunks", len(chunks)).Msg("load chunk")
		for ii := range chunk {
			go func(symbol string) {
				ps, err := l.Load(ctx, symbol, begin, end)
				ch <- quoteResult{
					Ticker: symbol,
					Data:   ps,
					Err:    err,
				}
			}(chunk[ii])
		}

		for range chunk {
			v := <-ch
			if v.Err == nil {
				res[v.Ticker] = v.Data
			} else {
				subLog.Warn().Err(v.Err).Str("Ticker", v.Ticker).Msg("cannot download ticker data")
				errs[v.Ticker] = v.Err
			}
		}
	}

	if len(errs) > 0 {
		span.SetAttributes(attribute.Int("NumFailed", len(errs)))
	}

	return res, errs
}
