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
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/penny-vault/pv-analyzer/common"
	"github.com/rs/zerolog/log"
	"github.com/zeebo/blake3"
)

// CachedProvider memoizes another provider's responses in the shared cache
// (local LRU plus optional redis). Only successful responses are cached.
type CachedProvider struct {
	provider Provider
}

func NewCachedProvider(provider Provider) *CachedProvider {
	return &CachedProvider{
		provider: provider,
	}
}

func (c *CachedProvider) Name() string {
	return c.provider.Name()
}

func cacheKey(provider, symbol string, begin, end time.Time) string {
	raw := fmt.Sprintf("%s:%s:%s:%s", provider, symbol, begin.Format("2006-01-02"), end.Format("2006-01-02"))
	sum := blake3.Sum256([]byte(raw))
	return "prices:" + hex.EncodeToString(sum[:])
}

func (c *CachedProvider) GetDataForPeriod(ctx context.Context, symbol string, begin, end time.Time) (*PriceSeries, error) {
	key := cacheKey(c.provider.Name(), symbol, begin, end)
	subLog := log.With().Str("Symbol", symbol).Str("Key", key).Logger()

	cached, err := common.CacheGet(ctx, key)
	switch {
	case err == nil:
		ps := &PriceSeries{}
		if err := json.Unmarshal(cached, ps); err == nil && ps.Validate() == nil {
			subLog.Debug().Msg("price cache hit")
			return ps, nil
		}
		subLog.Warn().Msg("discarding corrupt cache entry")
	case !errors.Is(err, common.ErrCacheMiss):
		subLog.Warn().Err(err).Msg("cache lookup failed")
	}

	ps, err := c.provider.GetDataForPeriod(ctx, symbol, begin, end)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(ps); err == nil {
		if err := common.CacheSet(ctx, key, encoded); err != nil {
			subLog.Warn().Err(err).Msg("could not save prices to cache")
		}
	}

	return ps, nil
}
