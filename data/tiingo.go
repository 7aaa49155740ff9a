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
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/penny-vault/pv-analyzer/observability/opentelemetry"
	imports "github.com/rocketlaunchr/dataframe-go/imports"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tiingoAPI = "https://api.tiingo.com"

// Tiingo downloads end-of-day prices from the tiingo REST API in CSV format
type Tiingo struct {
	apikey string
	client *http.Client
}

// NewTiingo Create a new Tiingo data provider
func NewTiingo(key string) *Tiingo {
	return &Tiingo{
		apikey: key,
		client: &http.Client{},
	}
}

func (t *Tiingo) Name() string {
	return "tiingo"
}

func (t *Tiingo) GetDataForPeriod(ctx context.Context, symbol string, begin, end time.Time) (*PriceSeries, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "tiingo.GetDataForPeriod")
	defer span.End()

	subLog := log.With().Str("Symbol", symbol).Time("Begin", begin).Time("End", end).Logger()

	path := fmt.Sprintf("%s/tiingo/daily/%s/prices?startDate=%s&endDate=%s&format=csv&resampleFreq=daily", tiingoAPI, symbol,
		begin.Format("2006-01-02"), end.Format("2006-01-02"))
	span.SetAttributes(
		attribute.String("Url", path),
		attribute.String("Symbol", symbol),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s&token=%s", path, t.apikey), nil)
	if err != nil {
		return nil, err
	}

	resp, err := t.client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "tiingo http request failed")
		subLog.Warn().Err(err).Msg("failed to load eod prices")
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		subLog.Warn().Err(err).Int("HTTPResponseStatusCode", resp.StatusCode).Msg("read eod price body failed")
		return nil, err
	}

	span.SetAttributes(attribute.Int("StatusCode", resp.StatusCode))

	if resp.StatusCode == http.StatusNotFound {
		span.SetStatus(codes.Error, "ticker not found")
		return nil, fmt.Errorf("%w: tiingo does not know %s", ErrDataUnavailable, symbol)
	}

	if resp.StatusCode >= 400 {
		span.SetStatus(codes.Error, "tiingo returned invalid response code")
		subLog.Warn().Int("HTTPResponseStatusCode", resp.StatusCode).Bytes("Body", body).Msg("tiingo request failed")
		return nil, fmt.Errorf("HTTP request returned invalid status code: %d", resp.StatusCode)
	}

	// header only (or nothing) means there are no trading days in the range
	if bytes.Count(bytes.TrimSpace(body), []byte("\n")) == 0 {
		return nil, fmt.Errorf("%w: tiingo returned no prices for %s", ErrDataUnavailable, symbol)
	}

	return parseTiingoCSV(ctx, symbol, body)
}

func parseTiingoCSV(ctx context.Context, symbol string, body []byte) (*PriceSeries, error) {
	floatConverter := imports.Converter{
		ConcreteType:  float64(0),
		ConverterFunc: parseFloatOrNaN,
	}

	res, err := imports.LoadFromCSV(ctx, bytes.NewReader(body), imports.CSVLoadOptions{
		DictateDataType: map[string]interface{}{
			"date": imports.Converter{
				ConcreteType: time.Time{},
				ConverterFunc: func(in interface{}) (interface{}, error) {
					return time.Parse("2006-01-02", in.(string))
				},
			},
			"close":    floatConverter,
			"adjClose": floatConverter,
		},
	})
	if err != nil {
		log.Warn().Err(err).Str("Symbol", symbol).Msg("could not parse tiingo csv")
		return nil, err
	}

	dateIdx, err := res.NameToColumn("date")
	if err != nil {
		return nil, fmt.Errorf("cannot find date column: %w", err)
	}

	priceIdx, err := res.NameToColumn("adjClose")
	if err != nil {
		return nil, fmt.Errorf("cannot find adjusted close column: %w", err)
	}

	nrows := res.NRows()
	dates := make([]time.Time, 0, nrows)
	prices := make([]float64, 0, nrows)
	for row := 0; row < nrows; row++ {
		dt, ok := res.Series[dateIdx].Value(row).(time.Time)
		if !ok {
			continue
		}
		price, ok := res.Series[priceIdx].Value(row).(float64)
		if !ok {
			continue
		}
		dates = append(dates, dt)
		prices = append(prices, price)
	}

	ps, err := NewPriceSeries(symbol, dates, prices)
	if err != nil {
		return nil, err
	}

	if ps.Len() == 0 {
		return nil, fmt.Errorf("%w: tiingo returned no usable prices for %s", ErrDataUnavailable, symbol)
	}

	return ps, nil
}
