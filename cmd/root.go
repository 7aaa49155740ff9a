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

package cmd

import (
	"context"
	"fmt"
	"os"
	"runtime/pprof"
	"runtime/trace"

	"github.com/penny-vault/pv-analyzer/common"
	"github.com/penny-vault/pv-analyzer/data"
	"github.com/penny-vault/pv-analyzer/observability/opentelemetry"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var Profile bool
var Trace bool

var (
	otelShutdown func(context.Context) error
	stopProfile  func()
)

// bindFlag ties a persistent flag to a viper key and an environment variable
func bindFlag(key, env, flag string) {
	if err := viper.BindEnv(key, env); err != nil {
		log.Panic().Err(err).Str("Key", key).Msg("could not bind environment variable")
	}
	if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
		log.Panic().Err(err).Str("Key", key).Msg("could not bind flag")
	}
}

func init() {
	// Data provider
	rootCmd.PersistentFlags().String("provider", "yahoo", "Price source; one of: yahoo, tiingo, pvdb")
	bindFlag("data.provider", "PV_PROVIDER", "provider")

	rootCmd.PersistentFlags().String("tiingo-token", "", "Tiingo API token")
	bindFlag("tiingo.token", "TIINGO_TOKEN", "tiingo-token")

	rootCmd.PersistentFlags().Duration("timeout", data.DefaultTimeout, "Timeout for each price request")
	bindFlag("data.timeout", "PV_TIMEOUT", "timeout")

	rootCmd.PersistentFlags().Int("concurrency", data.DefaultConcurrency, "Number of tickers downloaded at once")
	bindFlag("data.concurrency", "PV_CONCURRENCY", "concurrency")

	rootCmd.PersistentFlags().String("risk-free-series", "DTB3", "FRED series used for the risk free rate; `none` disables the lookup")
	bindFlag("risk_free.series", "PV_RISK_FREE_SERIES", "risk-free-series")

	// Database
	rootCmd.PersistentFlags().String("database-url", "", "PostgreSQL connection string for the pvdb provider")
	bindFlag("database.url", "DATABASE_URL", "database-url")

	// Cache
	rootCmd.PersistentFlags().Bool("cache", false, "Cache downloaded prices")
	bindFlag("cache.enabled", "PV_CACHE", "cache")

	rootCmd.PersistentFlags().Int("cache-ttl", 3600, "Seconds a cached price series stays valid")
	bindFlag("cache.ttl", "PV_CACHE_TTL", "cache-ttl")

	rootCmd.PersistentFlags().Int("cache-local-size", 128, "Number of price series kept in memory")
	bindFlag("cache.local_size", "PV_CACHE_LOCAL_SIZE", "cache-local-size")

	rootCmd.PersistentFlags().Bool("cache-redis", false, "Share cached prices through redis")
	bindFlag("cache.redis", "PV_CACHE_REDIS", "cache-redis")

	rootCmd.PersistentFlags().String("redis-url", "redis://localhost:6379/0", "Redis connection string")
	bindFlag("cache.redis_url", "REDIS_URL", "redis-url")

	// Tracing
	rootCmd.PersistentFlags().String("otlp-endpoint", "", "OpenTelemetry collector endpoint, if blank tracing is disabled")
	bindFlag("otlp.endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT", "otlp-endpoint")

	rootCmd.PersistentFlags().Bool("otlp-http", false, "Export traces over HTTP instead of gRPC")
	bindFlag("otlp.http", "PV_OTLP_HTTP", "otlp-http")

	// Logging configuration
	rootCmd.PersistentFlags().String("log-level", "warning", "Logging level")
	bindFlag("log.level", "PV_LOG_LEVEL", "log-level")

	rootCmd.PersistentFlags().Bool("log-report-caller", false, "Log function name that called log statement")
	bindFlag("log.report_caller", "PV_LOG_REPORT_CALLER", "log-report-caller")

	rootCmd.PersistentFlags().String("log-output", "stderr", "Write logs to specified output one of: file path, `stdout`, or `stderr`")
	bindFlag("log.output", "PV_LOG_OUTPUT", "log-output")

	rootCmd.PersistentFlags().Bool("log-pretty", true, "Write human readable logs instead of JSON")
	bindFlag("log.pretty", "PV_LOG_PRETTY", "log-pretty")

	rootCmd.PersistentFlags().BoolVar(&Profile, "cpu-profile", false, "Run pprof and save in profile.out")
	rootCmd.PersistentFlags().BoolVar(&Trace, "trace", false, "Trace program execution and save in trace.out")
}

var rootCmd = &cobra.Command{
	Use:     "pvanalyzer",
	Version: common.CurrentVersion.String(),
	Short:   "Analyze the historical performance of a portfolio",
	Long: `Compute the returns, risk statistics and growth of a weighted portfolio of
tickers over a date range and compare them with a benchmark.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		common.SetupLogging()

		if err := startProfiling(); err != nil {
			return err
		}

		if viper.GetBool("cache.enabled") {
			if err := common.SetupCache(); err != nil {
				return err
			}
		}

		var err error
		otelShutdown, err = opentelemetry.Setup(cmd.Context())
		if err != nil {
			log.Error().Err(err).Msg("could not setup tracing")
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if otelShutdown != nil {
			if err := otelShutdown(context.Background()); err != nil {
				log.Error().Err(err).Msg("could not flush traces")
			}
		}
		if stopProfile != nil {
			stopProfile()
		}
	},
}

func startProfiling() error {
	var stops []func()

	if Profile {
		f, err := os.Create("profile.out")
		if err != nil {
			return fmt.Errorf("failed to create profile output file: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			return err
		}
		stops = append(stops, func() {
			pprof.StopCPUProfile()
			f.Close()
		})
	}

	if Trace {
		f, err := os.Create("trace.out")
		if err != nil {
			return fmt.Errorf("failed to create trace output file: %w", err)
		}
		if err := trace.Start(f); err != nil {
			return fmt.Errorf("failed to start trace: %w", err)
		}
		stops = append(stops, func() {
			trace.Stop()
			if err := f.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close trace file")
			}
		})
	}

	stopProfile = func() {
		for _, stop := range stops {
			stop()
		}
	}
	return nil
}

func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
