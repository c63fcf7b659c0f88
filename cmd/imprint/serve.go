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
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/imprint-io/imprint/event"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the ledger with a metrics listener until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := commonRun()
			rt, err := openRuntime(logger)
			if err != nil {
				return err
			}
			defer rt.Close()

			// Log committed registrations and flags as they happen
			rt.eventBus.SubscribeFunc(
				event.RegistrationEventType,
				func(evt event.Event) {
					data, ok := evt.Data.(event.RegistrationEvent)
					if !ok {
						return
					}
					logger.Info(
						"registration committed",
						"component", "serve",
						"fingerprint", data.Fingerprint,
						"creator", data.CreatorName,
						"credential_id", data.CredentialId,
					)
				},
			)
			rt.eventBus.SubscribeFunc(
				event.FlagEventType,
				func(evt event.Event) {
					data, ok := evt.Data.(event.FlagEvent)
					if !ok {
						return
					}
					logger.Info(
						"misuse flag filed",
						"component", "serve",
						"fingerprint", data.Fingerprint,
						"index", data.Index,
					)
				},
			)

			// Metrics listener
			mux := http.NewServeMux()
			mux.Handle(
				"/metrics",
				promhttp.HandlerFor(rt.promRegistry, promhttp.HandlerOpts{}),
			)
			metricsServer := &http.Server{
				Addr: fmt.Sprintf(
					"%s:%d",
					rt.cfg.MetricsBindAddr,
					rt.cfg.MetricsPort,
				),
				Handler:           mux,
				ReadHeaderTimeout: 60 * time.Second,
				WriteTimeout:      30 * time.Second,
				IdleTimeout:       120 * time.Second,
			}
			logger.Info(
				"serving prometheus metrics on "+metricsServer.Addr,
				"component", "serve",
			)
			errChan := make(chan error, 1)
			go func() {
				if err := metricsServer.ListenAndServe(); err != nil &&
					err != http.ErrServerClosed {
					errChan <- err
				}
			}()

			// Wait for interrupt/termination signal
			signalCtx, signalCtxStop := signal.NotifyContext(
				context.Background(),
				syscall.SIGINT,
				syscall.SIGTERM,
			)
			defer signalCtxStop()

			select {
			case <-signalCtx.Done():
				logger.Info("signal received, initiating graceful shutdown")
				shutdownCtx, cancel := context.WithTimeout(
					context.Background(),
					shutdownTimeout,
				)
				defer cancel()
				if err := metricsServer.Shutdown(shutdownCtx); err != nil {
					logger.Error(
						"metrics server shutdown error",
						"error", err,
					)
				}
				rt.eventBus.Stop()
				logger.Info("shutdown complete")
				return nil
			case err := <-errChan:
				return fmt.Errorf("failed to start metrics listener: %w", err)
			}
		},
	}
}
