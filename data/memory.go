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
	"sync"
	"time"
)

// MemoryProvider serves price series held in memory. It backs tests and the
// offline analysis of prices loaded from files.
type MemoryProvider struct {
	mu      sync.RWMutex
	series  map[string]*PriceSeries
	calls   map[string]int
	latency time.Duration
}

func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		series: make(map[string]*PriceSeries),
		calls:  make(map[string]int),
	}
}

func (m *MemoryProvider) Name() string {
	return "memory"
}

// Add registers ps under its ticker, replacing any previous series
func (m *MemoryProvider) Add(ps *PriceSeries) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.series[strings.ToUpper(ps.Ticker)] = ps
}

// AddPrices registers a series with one price per consecutive calendar day
// starting at begin
func (m *MemoryProvider) AddPrices(ticker string, begin time.Time, prices ...float64) error {
	dates := make([]time.Time, len(prices))
	for idx := range prices {
		dates[idx] = begin.AddDate(0, 0, idx)
	}
	ps, err := NewPriceSeries(strings.ToUpper(ticker), dates, prices)
	if err != nil {
		return err
	}
	m.Add(ps)
	return nil
}

// SetLatency delays every request by d, honoring context cancellation
func (m *MemoryProvider) SetLatency(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latency = d
}

// Calls returns how many times symbol has been requested
func (m *MemoryProvider) Calls(symbol string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[strings.ToUpper(symbol)]
}

func (m *MemoryProvider) GetDataForPeriod(ctx context.Context, symbol string, begin, end time.Time) (*PriceSeries, error) {
	symbol = strings.ToUpper(symbol)

	m.mu.Lock()
	m.calls[symbol]++
	latency := m.latency
	ps, ok := m.series[symbol]
	m.mu.Unlock()

	if latency > 0 {
		timer := time.NewTimer(latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if !ok {
		return nil, fmt.Errorf("%w: unknown symbol %s", ErrDataUnavailable, symbol)
	}

	res := ps.Trim(begin, end)
	if res.Len() == 0 {
		return nil, fmt.Errorf("%w: %s has no prices in range", ErrDataUnavailable, symbol)
	}
	return res, nil
}
