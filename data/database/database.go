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

package database

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// types

type PgxIface interface {
	Begin(context.Context) (pgx.Tx, error)
}

var (
	ErrNotConnected = errors.New("database not connected")
)

// Private

var (
	pool             PgxIface
	openTransactions map[string]string
	trxMu            sync.Mutex
)

// Public

func SetPool(myPool PgxIface) {
	trxMu.Lock()
	defer trxMu.Unlock()
	openTransactions = make(map[string]string)
	pool = myPool
}

// Connect opens a connection pool to the database at `database.url`
func Connect(ctx context.Context) error {
	myPool, err := pgxpool.Connect(ctx, viper.GetString("database.url"))
	if err != nil {
		log.Error().Stack().Err(err).Msg("could not connect to pool")
		return err
	}
	if err = myPool.Ping(ctx); err != nil {
		log.Error().Stack().Err(err).Msg("could not ping database server")
		return err
	}
	SetPool(myPool)
	return nil
}

// Connected reports whether a pool has been configured
func Connected() bool {
	trxMu.Lock()
	defer trxMu.Unlock()
	return pool != nil
}

// LogOpenTransactions writes an INFO log for each open transaction
func LogOpenTransactions() {
	trxMu.Lock()
	defer trxMu.Unlock()
	for k, v := range openTransactions {
		log.Info().Str("TrxId", k).Str("Caller", v).Msg("open transaction")
	}
}

// NumOpenTransactions returns the number of transactions that have not been committed or rolled back
func NumOpenTransactions() int {
	trxMu.Lock()
	defer trxMu.Unlock()
	return len(openTransactions)
}

// Begin starts a new transaction; the caller is recorded so leaked transactions can be tracked down
func Begin(ctx context.Context) (pgx.Tx, error) {
	trxMu.Lock()
	myPool := pool
	trxMu.Unlock()

	if myPool == nil {
		return nil, ErrNotConnected
	}

	trx, err := myPool.Begin(ctx)
	if err != nil {
		return nil, err
	}

	_, file, lineno, ok := runtime.Caller(1)
	caller := fmt.Sprintf("[%v] %s:%d", ok, file, lineno)
	trxID := uuid.New().String()

	trxMu.Lock()
	openTransactions[trxID] = caller
	trxMu.Unlock()

	return &PvDbTx{
		id: trxID,
		tx: trx,
	}, nil
}

func untrack(id string) {
	trxMu.Lock()
	defer trxMu.Unlock()
	delete(openTransactions, id)
}
