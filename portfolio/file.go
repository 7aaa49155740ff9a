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

package portfolio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/penny-vault/pv-analyzer/common"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v2"
)

// File is a portfolio definition stored on disk. RiskFreeRate is in percent;
// dates are YYYY-MM-DD and may be empty.
type File struct {
	Benchmark    string    `toml:"benchmark" yaml:"benchmark"`
	Start        string    `toml:"start" yaml:"start"`
	End          string    `toml:"end" yaml:"end"`
	RiskFreeRate *float64  `toml:"risk_free_rate" yaml:"risk_free_rate"`
	WeightPolicy string    `toml:"weight_policy" yaml:"weight_policy"`
	Holdings     []Holding `toml:"holdings" yaml:"holdings"`
}

// LoadFile reads a TOML (.toml) or YAML (.yaml, .yml) portfolio definition
func LoadFile(fn string) (*File, error) {
	subLog := log.With().Str("FileName", fn).Logger()

	contents, err := os.ReadFile(fn)
	if err != nil {
		subLog.Error().Err(err).Msg("could not read portfolio file")
		return nil, err
	}

	f := &File{}
	switch strings.ToLower(filepath.Ext(fn)) {
	case ".toml":
		err = toml.Unmarshal(contents, f)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(contents, f)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, filepath.Ext(fn))
	}

	if err != nil {
		subLog.Error().Err(err).Msg("could not parse portfolio file")
		return nil, err
	}

	subLog.Debug().Int("NumHoldings", len(f.Holdings)).Msg("loaded portfolio file")
	return f, nil
}

// Spec returns the holdings of the file
func (f *File) Spec() *Spec {
	spec := &Spec{Holdings: make([]Holding, len(f.Holdings))}
	copy(spec.Holdings, f.Holdings)
	return spec
}

// Request converts the file into an analysis request. Missing dates default
// to the supplied begin and end.
func (f *File) Request(defaultBegin, defaultEnd time.Time) (*Request, error) {
	req := &Request{
		Holdings:  f.Spec(),
		Benchmark: f.Benchmark,
		Begin:     defaultBegin,
		End:       defaultEnd,
	}

	var err error
	if f.Start != "" {
		if req.Begin, err = common.ParseDate(f.Start); err != nil {
			return nil, fmt.Errorf("%w: start %q: %w", ErrInvalidOptions, f.Start, err)
		}
	}
	if f.End != "" {
		if req.End, err = common.ParseDate(f.End); err != nil {
			return nil, fmt.Errorf("%w: end %q: %w", ErrInvalidOptions, f.End, err)
		}
	}

	if f.RiskFreeRate != nil {
		rate := *f.RiskFreeRate / 100.0
		req.RiskFreeRate = &rate
	}

	if req.WeightPolicy, err = ParseWeightPolicy(f.WeightPolicy); err != nil {
		return nil, err
	}

	return req, nil
}
