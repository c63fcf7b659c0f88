// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/imprint-io/imprint/database"
	"github.com/imprint-io/imprint/event"
	"github.com/imprint-io/imprint/internal/config"
	"github.com/imprint-io/imprint/internal/version"
	"github.com/imprint-io/imprint/provenance"
	"github.com/imprint-io/imprint/registry"
	"github.com/imprint-io/imprint/verifier"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"
)

const programName = "imprint"

func slogPrintf(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...),
		"component", programName,
	)
}

var globalFlags = struct {
	configFile string
	authority  string
	debug      bool
}{}

func commonRun() *slog.Logger {
	// Configure logger
	logLevel := slog.LevelInfo
	addSource := false
	if globalFlags.debug {
		logLevel = slog.LevelDebug
		addSource = true
	}
	logger := slog.New(
		slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			AddSource: addSource,
			Level:     logLevel,
		}),
	)
	slog.SetDefault(logger)
	// Configure max processes with our logger wrapper, toss undo func
	_, err := maxprocs.Set(maxprocs.Logger(slogPrintf))
	if err != nil {
		// If we hit this, something really wrong happened
		slog.Error(err.Error())
		os.Exit(1)
	}
	return logger
}

// runtime bundles the wired-up components behind a CLI command
type runtime struct {
	cfg           *config.Config
	db            *database.Database
	store         *registry.Store
	verifier      *verifier.Verifier
	walker        *provenance.Walker
	promRegistry  *prometheus.Registry
	eventBus      *event.EventBus
	shutdownFuncs []func(context.Context) error
}

func (r *runtime) Close() {
	if err := r.db.Close(); err != nil {
		slog.Warn("database close failed", "error", err)
	}
	for _, shutdown := range r.shutdownFuncs {
		if err := shutdown(context.Background()); err != nil {
			slog.Warn("shutdown failed", "error", err)
		}
	}
}

func openRuntime(logger *slog.Logger) (*runtime, error) {
	cfg, err := config.LoadConfig(globalFlags.configFile)
	if err != nil {
		return nil, err
	}
	if globalFlags.authority != "" {
		cfg.Authority = globalFlags.authority
	}
	ret := &runtime{cfg: cfg}
	if cfg.Tracing {
		if err := ret.setupTracing(cfg.TracingStdout); err != nil {
			return nil, err
		}
	}
	promRegistry := prometheus.NewRegistry()
	db, err := database.New(&database.Config{
		Logger:       logger,
		PromRegistry: promRegistry,
		DataDir:      cfg.DataDir,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}
	eventBus := event.NewEventBus(promRegistry, logger)
	store, err := registry.NewStore(&registry.Config{
		Logger:           logger,
		PromRegistry:     promRegistry,
		EventBus:         eventBus,
		Database:         db,
		Authority:        cfg.Authority,
		MinRegisterStake: cfg.MinRegisterStake,
		MinFlagStake:     cfg.MinFlagStake,
		Retry: registry.RetryPolicy{
			MaxAttempts: cfg.RetryMaxAttempts,
			Backoff: time.Duration(cfg.RetryBackoffMs) *
				time.Millisecond,
		},
	})
	if err != nil {
		dbErr := db.Close()
		if dbErr != nil {
			logger.Warn("database close failed", "error", dbErr)
		}
		return nil, err
	}
	walker := provenance.NewWalker(logger, store, cfg.MaxChainDepth)
	v, err := verifier.New(&verifier.Config{
		Logger:              logger,
		Store:               store,
		Walker:              walker,
		Database:            db,
		SimilarityThreshold: cfg.SimilarityThreshold,
		NearDuplicate: verifier.NearDuplicatePolicy(
			cfg.NearDuplicatePolicy,
		),
	})
	if err != nil {
		dbErr := db.Close()
		if dbErr != nil {
			logger.Warn("database close failed", "error", dbErr)
		}
		return nil, err
	}
	ret.db = db
	ret.store = store
	ret.verifier = v
	ret.walker = walker
	ret.promRegistry = promRegistry
	ret.eventBus = eventBus
	return ret, nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:          programName,
		Short:        "perceptual-hash provenance ledger",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().BoolVarP(
		&globalFlags.debug,
		"debug", "D", false, "enable debug logging",
	)
	rootCmd.PersistentFlags().StringVarP(
		&globalFlags.configFile,
		"config", "c", "", "path to config file",
	)
	rootCmd.PersistentFlags().StringVar(
		&globalFlags.authority,
		"authority", "", "credential authority identity",
	)
	rootCmd.AddCommand(
		versionCommand(),
		fingerprintCommand(),
		registerCommand(),
		verifyCommand(),
		flagCommand(),
		getFlagCommand(),
		chainCommand(),
		morphCommand(),
		serveCommand(),
	)
	if err := rootCmd.Execute(); err != nil {
		// NOTE: we purposely don't display the error, since cobra will have already displayed it
		os.Exit(1)
	}
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Displays the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s %s\n", programName, version.GetVersionString())
		},
	}
}
