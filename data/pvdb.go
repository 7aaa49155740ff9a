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
	"time"

	"github.com/penny-vault/pv-analyzer/data/database"
	"github.com/penny-vault/pv-analyzer/observability/opentelemetry"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// PvDb reads adjusted closing prices from the `eod` table of a penny vault database
type PvDb struct {
}

// NewPvDb Create a new PVDB data provider
func NewPvDb() *PvDb {
	return &PvDb{}
}

func (p *PvDb) Name() string {
	return "pvdb"
}

func (p *PvDb) GetDataForPeriod(ctx context.Context, symbol string, begin, end time.Time) (*PriceSeries, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "pvdb.GetDataForPeriod")
	defer span.End()

	span.SetAttributes(attribute.String("Symbol", symbol))
	subLog := log.With().Str("Symbol", symbol).Time("Begin", begin).Time("End", end).Logger()

	if end.Before(begin) {
		return nil, ErrInvalidRange
	}

	trx, err := database.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "could not begin transaction")
		subLog.Error().Stack().Err(err).Msg("could not get transaction when querying eod prices")
		return nil, err
	}

	rows, err := trx.Query(ctx, "SELECT event_date, adj_close FROM eod WHERE ticker=$1 AND event_date BETWEEN $2 AND $3 ORDER BY event_date", symbol, begin, end)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "database query failed")
		subLog.Error().Stack().Err(err).Msg("could not query eod prices")
		if err := trx.Rollback(ctx); err != nil {
			subLog.Error().Stack().Err(err).Msg("could not rollback transaction")
		}
		return nil, err
	}

	dates := make([]time.Time, 0, 252)
	prices := make([]float64, 0, 252)
	for rows.Next() {
		var (
			dt    time.Time
			price float64
		)
		if err = rows.Scan(&dt, &price); err != nil {
			rows.Close()
			subLog.Error().Stack().Err(err).Msg("could not SCAN DB result")
			if err := trx.Rollback(ctx); err != nil {
				subLog.Error().Stack().Err(err).Msg("could not rollback transaction")
			}
			return nil, err
		}
		dates = append(dates, dt)
		prices = append(prices, price)
	}
	rows.Close()

	if err := trx.Commit(ctx); err != nil {
		subLog.Error().Stack().Err(err).Msg("could not commit transaction")
		return nil, err
	}

	ps, err := NewPriceSeries(symbol, dates, prices)
	if err != nil {
		return nil, err
	}

	if ps.Len() == 0 {
		return nil, fmt.Errorf("%w: no eod prices for %s", ErrDataUnavailable, symbol)
	}

	return ps, nil
}
