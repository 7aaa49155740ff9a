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
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/penny-vault/pv-analyzer/common"
	"github.com/penny-vault/pv-analyzer/data"
	"github.com/penny-vault/pv-analyzer/data/database"
	"github.com/penny-vault/pv-analyzer/handler"
	"github.com/penny-vault/pv-analyzer/router"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	serveCmd.Flags().IntP("port", "p", 3000, "Port to run application server on")
	if err := viper.BindEnv("server.port", "PORT"); err != nil {
		log.Panic().Err(err).Msg("could not bind environment variable")
	}
	if err := viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port")); err != nil {
		log.Panic().Err(err).Msg("could not bind flag")
	}

	serveCmd.Flags().String("allow-origins", "*", "Comma separated list of origins allowed by CORS")
	if err := viper.BindPFlag("server.allow_origins", serveCmd.Flags().Lookup("allow-origins")); err != nil {
		log.Panic().Err(err).Msg("could not bind flag")
	}

	serveCmd.Flags().String("default-benchmark", "SPY", "Benchmark used when a request does not name one")
	if err := viper.BindPFlag("server.default_benchmark", serveCmd.Flags().Lookup("default-benchmark")); err != nil {
		log.Panic().Err(err).Msg("could not bind flag")
	}

	rootCmd.AddCommand(serveCmd)
}

// refreshRiskFree downloads the latest risk free rate observations
func refreshRiskFree(fred *data.Fred) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := fred.Refresh(ctx); err != nil {
		log.Error().Err(err).Str("Series", fred.Series()).Msg("could not refresh risk free rate")
		return
	}
	log.Info().Str("Series", fred.Series()).Msg("refreshed risk free rate")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the pvanalyzer server",
	Long:  `Run HTTP server that analyzes portfolios on request`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		analyzer, fred, err := newAnalyzer(ctx)
		if err != nil {
			return err
		}
		log.Info().Msg("initialized data framework")

		// Create new Fiber instance
		app := fiber.New(fiber.Config{
			AppName:               "pvanalyzer " + common.CurrentVersion.String(),
			DisableStartupMessage: true,
			JSONEncoder:           json.Marshal,
			JSONDecoder:           json.Unmarshal,
		})

		// shutdown cleanly on interrupt
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		go func() {
			sig := <-c // block until signal is read
			fmt.Printf("Received signal: '%s'; shutting down...\n", sig.String())
			if err := app.Shutdown(); err != nil {
				log.Error().Err(err).Msg("error shutting down server")
			}
		}()

		// Configure CORS
		app.Use(cors.New(cors.Config{
			AllowOrigins: viper.GetString("server.allow_origins"),
			AllowHeaders: "*",
			AllowMethods: "GET,POST,HEAD",
		}))

		// Setup routes
		router.SetupRoutes(app, handler.NewAnalysis(analyzer, viper.GetString("server.default_benchmark")))

		// Keep the risk free rate current and report leaked transactions
		scheduler := gocron.NewScheduler(common.GetTimezone())
		if fred != nil {
			if _, err := scheduler.Every(24).Hours().Do(refreshRiskFree, fred); err != nil {
				log.Error().Err(err).Msg("could not schedule risk free rate refresh")
				return err
			}
		}
		if database.Connected() {
			if _, err := scheduler.Every(5).Minutes().Do(database.LogOpenTransactions); err != nil {
				log.Error().Err(err).Msg("could not schedule transaction report")
				return err
			}
		}
		scheduler.StartAsync()
		defer scheduler.Stop()

		port := viper.GetString("server.port")
		log.Info().Str("Port", port).Msg("starting server")

		// Start server on http://${heroku-url}:${port}
		if err := app.Listen(":" + port); err != nil {
			log.Error().Err(err).Msg("server exited")
			return err
		}
		return nil
	},
}
