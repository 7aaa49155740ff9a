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
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/penny-vault/pv-analyzer/observability/opentelemetry"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var yahooHosts = []string{"https://query1.finance.yahoo.com", "https://query2.finance.yahoo.com"}

// yahooChartResponse mirrors the Yahoo v8 chart response (trimmed to needed fields).
// Prices are pointers because Yahoo emits null for days without a quote.
type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol    string `json:"symbol"`
				Currency  string `json:"currency"`
				GmtOffset int64  `json:"gmtoffset"`
				Timezone  string `json:"timezone"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Yahoo downloads daily prices from the Yahoo finance chart API. Requests fail
// over between hosts and are retried with backoff when rate limited.
type Yahoo struct {
	client   *http.Client
	hosts    []string
	backoffs []time.Duration
}

func NewYahoo() *Yahoo {
	return &Yahoo{
		client:   &http.Client{},
		hosts:    yahooHosts,
		backoffs: []time.Duration{200 * time.Millisecond, 500 * time.Millisecond, 1 * time.Second},
	}
}

func (y *Yahoo) Name() string {
	return "yahoo"
}

func (y *Yahoo) GetDataForPeriod(ctx context.Context, symbol string, begin, end time.Time) (*PriceSeries, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "yahoo.GetDataForPeriod")
	defer span.End()

	span.SetAttributes(attribute.String("Symbol", symbol))
	subLog := log.With().Str("Symbol", symbol).Time("Begin", begin).Time("End", end).Logger()

	// period2 is exclusive so extend it by a day to include end
	query := fmt.Sprintf("/v8/finance/chart/%s?period1=%d&period2=%d&interval=1d&events=div%%2Csplits&includeAdjustedClose=true",
		symbol, begin.Unix(), end.AddDate(0, 0, 1).Unix())

	var lastErr error
	for attempt := 0; attempt < len(y.backoffs)+1; attempt++ {
		for _, host := range y.hosts {
			body, err := y.fetch(ctx, host+query, symbol)
			if err == nil {
				return parseYahooChart(symbol, body)
			}
			if errors.Is(err, ErrDataUnavailable) || ctx.Err() != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "yahoo request failed")
				return nil, err
			}
			subLog.Debug().Err(err).Str("Host", host).Int("Attempt", attempt).Msg("yahoo request failed")
			lastErr = err
		}

		if attempt < len(y.backoffs) {
			timer := time.NewTimer(y.backoffs[attempt])
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}
	}

	span.RecordError(lastErr)
	span.SetStatus(codes.Error, "yahoo retries exhausted")
	subLog.Warn().Err(lastErr).Msg("yahoo retries exhausted")
	return nil, lastErr
}

func (y *Yahoo) fetch(ctx context.Context, url, symbol string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15")
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := y.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read yahoo response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: yahoo does not know %s", ErrDataUnavailable, symbol)
	case resp.StatusCode == http.StatusTooManyRequests || strings.HasPrefix(string(body), "Edge: Too Many Requests"):
		return nil, fmt.Errorf("yahoo returned 429: Edge: Too Many Requests")
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("yahoo returned %d: %s", resp.StatusCode, preview(body))
	case strings.HasPrefix(string(body), "<"):
		return nil, fmt.Errorf("yahoo returned non-json body: %s", preview(body))
	}

	return body, nil
}

func preview(body []byte) string {
	s := string(body)
	if len(s) > 120 {
		s = s[:120]
	}
	return s
}

func parseYahooChart(symbol string, body []byte) (*PriceSeries, error) {
	var yc yahooChartResponse
	if err := json.Unmarshal(body, &yc); err != nil {
		return nil, fmt.Errorf("failed to parse yahoo json: %w; body: %s", err, preview(body))
	}

	if yc.Chart.Error != nil {
		return nil, fmt.Errorf("%w: yahoo: %s", ErrDataUnavailable, yc.Chart.Error.Description)
	}

	if len(yc.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: yahoo returned no results for %s", ErrDataUnavailable, symbol)
	}

	result := yc.Chart.Result[0]

	// prefer the adjusted close; fall back to the raw close for instruments
	// (indices, some funds) where yahoo does not publish one
	var closes []*float64
	if len(result.Indicators.AdjClose) > 0 && len(result.Indicators.AdjClose[0].AdjClose) == len(result.Timestamp) {
		closes = result.Indicators.AdjClose[0].AdjClose
	} else if len(result.Indicators.Quote) > 0 && len(result.Indicators.Quote[0].Close) == len(result.Timestamp) {
		closes = result.Indicators.Quote[0].Close
	} else {
		return nil, fmt.Errorf("%w: yahoo returned no prices for %s", ErrDataUnavailable, symbol)
	}

	dates := make([]time.Time, 0, len(result.Timestamp))
	prices := make([]float64, 0, len(result.Timestamp))
	for idx, ts := range result.Timestamp {
		if closes[idx] == nil {
			continue
		}
		dates = append(dates, time.Unix(ts+result.Meta.GmtOffset, 0).UTC())
		prices = append(prices, *closes[idx])
	}

	ps, err := NewPriceSeries(symbol, dates, prices)
	if err != nil {
		return nil, err
	}

	if ps.Len() == 0 {
		return nil, fmt.Errorf("%w: yahoo returned no usable prices for %s", ErrDataUnavailable, symbol)
	}

	return ps, nil
}
