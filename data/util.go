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
	"math"
	"strconv"
	"strings"
)

func partitionArray(xs []string, chunkSize int) [][]string {
	if len(xs) == 0 {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = len(xs)
	}
	divided := make([][]string, (len(xs)+chunkSize-1)/chunkSize)
	prev := 0
	i := 0
	till := len(xs) - chunkSize
	for prev < till {
		next := prev + chunkSize
		divided[i] = xs[prev:next]
		prev = next
		i++
	}
	divided[i] = xs[prev:]
	return divided
}

// parseFloatOrNaN converts CSV cells to float64; missing markers such as "." or
// "" become NaN and are filtered out later
func parseFloatOrNaN(in interface{}) (interface{}, error) {
	s, ok := in.(string)
	if !ok {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return math.NaN(), nil
	}
	return v, nil
}

type quoteResult struct {
	Ticker string
	Data   *PriceSeries
	Err    error
}
