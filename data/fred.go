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
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/penny-vault/pv-analyzer/common"
	"github.com/penny-vault/pv-analyzer/observability/opentelemetry"
	imports "github.com/rocketlaunchr/dataframe-go/imports"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var fredURL = "https://fred.stlouisfed.org"

var (
	ErrNoRiskFreeData = errors.New("no risk free rate observations in range")
)

// Fred provides the annual risk free rate from a FRED series quoted in
// percent (DTB3, the 3-month treasury bill, by default). Observations are
// downloaded once and kept in memory until Refresh is called again.
type Fred struct {
	series string
	begin  time.Time
	client *http.Client

	mu     sync.RWMutex
	dates  []time.Time
	rates  []float64
	loaded time.Time
}

// NewFred Create a new FRED risk free rate source for series
func NewFred(series string) *Fred {
	if series == "" {
		series = "DTB3"
	}
	return &Fred{
		series: series,
		begin:  time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC),
		client: &http.Client{},
	}
}

// Series returns the FRED series identifier
func (f *Fred) Series() string {
	return f.series
}

// Refresh downloads the full history of the series
func (f *Fred) Refresh(ctx context.Context) error {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "fred.Refresh")
	defer span.End()

	subLog := log.With().Str("Series", f.series).Logger()

	end := common.Midnight(time.Now())
	url := fmt.Sprintf("%s/graph/fredgraph.csv?mode=fred&id=%s&cosd=%s&coed=%s&fq=Daily&fam=avg", fredURL, f.series,
		f.begin.Format("2006-01-02"), end.Format("2006-01-02"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fred request failed")
		subLog.Warn().Err(err).Msg("could not download risk free rate")
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		span.SetStatus(codes.Error, "fred returned invalid response code")
		return fmt.Errorf("HTTP request returned invalid status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	dates, rates, err := f.parse(ctx, body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "could not parse fred csv")
		subLog.Warn().Err(err).Msg("could not parse risk free rate")
		return err
	}

	f.mu.Lock()
	f.dates = dates
	f.rates = rates
	f.loaded = time.Now()
	f.mu.Unlock()

	subLog.Info().Int("NumObservations", len(dates)).Msg("refreshed risk free rate")
	return nil
}

// parse reads the FRED graph CSV. Older exports label the date column DATE and
// newer ones observation_date; missing observations are recorded as "."
func (f *Fred) parse(ctx context.Context, body []byte) ([]time.Time, []float64, error) {
	dateConverter := imports.Converter{
		ConcreteType: time.Time{},
		ConverterFunc: func(in interface{}) (interface{}, error) {
			return time.Parse("2006-01-02", in.(string))
		},
	}

	df, err := imports.LoadFromCSV(ctx, bytes.NewReader(body), imports.CSVLoadOptions{
		DictateDataType: map[string]interface{}{
			common.DateIdx:     dateConverter,
			"observation_date": dateConverter,
			f.series: imports.Converter{
				ConcreteType:  float64(0),
				ConverterFunc: parseFloatOrNaN,
			},
		},
	})
	if err != nil {
		return nil, nil, err
	}

	dateIdx, err := df.NameToColumn(common.DateIdx)
	if err != nil {
		if dateIdx, err = df.NameToColumn("observation_date"); err != nil {
			return nil, nil, fmt.Errorf("cannot find date column: %w", err)
		}
	}

	rateIdx, err := df.NameToColumn(f.series)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot find %s column: %w", f.series, err)
	}

	nrows := df.NRows()
	dates := make([]time.Time, 0, nrows)
	rates := make([]float64, 0, nrows)
	for row := 0; row < nrows; row++ {
		dt, ok := df.Series[dateIdx].Value(row).(time.Time)
		if !ok {
			continue
		}
		rate, ok := df.Series[rateIdx].Value(row).(float64)
		if !ok || math.IsNaN(rate) {
			continue
		}
		dates = append(dates, dt)
		rates = append(rates, rate)
	}

	return dates, rates, nil
}

// Rate returns the mean annual risk free rate, as a decimal fraction, over
// [begin, end]. The series is downloaded on first use.
func (f *Fred) Rate(ctx context.Context, begin, end time.Time) (float64, error) {
	f.mu.RLock()
	loaded := !f.loaded.IsZero()
	f.mu.RUnlock()

	if !loaded {
		if err := f.Refresh(ctx); err != nil {
			return 0, err
		}
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	sum := 0.0
	cnt := 0
	for idx, dt := range f.dates {
		if dt.Before(begin) || dt.After(end) {
			continue
		}
		sum += f.rates[idx]
		cnt++
	}

	if cnt == 0 {
		return 0, ErrNoRiskFreeData
	}

	return sum / float64(cnt) / 100.0, nil
}
