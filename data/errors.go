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

import "errors"

var (
	// ErrDataUnavailable is returned when a provider has no usable prices for a symbol
	ErrDataUnavailable = errors.New("data unavailable")

	// ErrInvalidRange is returned when the requested begin date is after the end date
	ErrInvalidRange = errors.New("invalid interval; begin after end date")

	ErrMismatchedLength = errors.New("dates and prices must be the same length")
	ErrNoProvider       = errors.New("no data provider configured")
	ErrUnknownProvider  = errors.New("unknown data provider")
)
