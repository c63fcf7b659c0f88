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

package registry

import "github.com/prometheus/client_golang/prometheus"

const registryMetricNamePrefix = "registry_"

type storeMetrics struct {
	registrationsTotal prometheus.Counter
	flagsTotal         prometheus.Counter
	verifiesTotal      prometheus.Counter
	failuresTotal      *prometheus.CounterVec
}

func (s *Store) initMetrics(promRegistry prometheus.Registerer) {
	s.metrics = &storeMetrics{
		registrationsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: registryMetricNamePrefix + "registrations_total",
				Help: "Total number of committed content registrations",
			},
		),
		flagsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: registryMetricNamePrefix + "flags_total",
				Help: "Total number of committed misuse flags",
			},
		),
		verifiesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: registryMetricNamePrefix + "verifies_total",
				Help: "Total number of verification lookups",
			},
		),
		failuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: registryMetricNamePrefix + "failures_total",
				Help: "Total number of failed ledger operations by reason",
			},
			[]string{"op", "reason"},
		),
	}
	promRegistry.MustRegister(
		s.metrics.registrationsTotal,
		s.metrics.flagsTotal,
		s.metrics.verifiesTotal,
		s.metrics.failuresTotal,
	)
}

func (s *Store) countFailure(op, reason string) {
	if s.metrics != nil {
		s.metrics.failuresTotal.WithLabelValues(op, reason).Inc()
	}
}
