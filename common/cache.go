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

package common

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

var (
	ErrCacheMiss = errors.New("key not found in cache")
)

type cacheEntry struct {
	data    []byte
	expires time.Time
}

var (
	rdb      *redis.Client
	cache    *lru.Cache
	cacheTTL time.Duration
	cacheMu  sync.RWMutex
)

// SetupCache configures the local LRU cache and, when `cache.redis` is set, a shared
// redis cache. Values are lz4 compressed before they are stored.
func SetupCache() error {
	cacheMu.Lock()
	defer cacheMu.Unlock()

	cacheTTL = time.Duration(viper.GetInt("cache.ttl")) * time.Second
	if cacheTTL <= 0 {
		cacheTTL = time.Hour
	}

	rdb = nil
	if viper.GetBool("cache.redis") {
		opt, err := redis.ParseURL(viper.GetString("cache.redis_url"))
		if err != nil {
			log.Error().Err(err).Msg("could not parse redis URL")
			return err
		}

		rdb = redis.NewClient(opt)
	}

	size := viper.GetInt("cache.local_size")
	if size <= 0 {
		size = 128
	}

	var err error
	cache, err = lru.New(size)
	if err != nil {
		log.Error().Err(err).Int("Size", size).Msg("could not create LRU cache")
		return err
	}

	log.Debug().Int("LocalSize", size).Bool("Redis", rdb != nil).Dur("TTL", cacheTTL).Msg("cache configured")
	return nil
}

// CacheEnabled reports whether SetupCache has been called successfully
func CacheEnabled() bool {
	cacheMu.RLock()
	defer cacheMu.RUnlock()
	return cache != nil
}

func CacheSet(ctx context.Context, key string, bytes []byte) error {
	cacheMu.RLock()
	defer cacheMu.RUnlock()

	if cache == nil {
		return nil
	}

	b2, err := Compress(bytes)
	if err != nil {
		return err
	}
	cache.Add(key, &cacheEntry{data: b2, expires: time.Now().Add(cacheTTL)})

	if rdb != nil {
		return rdb.Set(ctx, key, b2, cacheTTL).Err()
	}
	return nil
}

func CacheGet(ctx context.Context, key string) ([]byte, error) {
	cacheMu.RLock()
	defer cacheMu.RUnlock()

	if cache == nil {
		return nil, ErrCacheMiss
	}

	if v, ok := cache.Get(key); ok {
		entry := v.(*cacheEntry)
		if time.Now().Before(entry.expires) {
			return Decompress(entry.data)
		}
		cache.Remove(key)
	}

	if rdb != nil {
		val, err := rdb.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		if err != nil {
			return nil, err
		}
		cache.Add(key, &cacheEntry{data: val, expires: time.Now().Add(cacheTTL)})
		return Decompress(val)
	}

	return nil, ErrCacheMiss
}

// CachePurge drops every entry from the local cache
func CachePurge() {
	cacheMu.RLock()
	defer cacheMu.RUnlock()

	if cache != nil {
		cache.Purge()
	}
}
