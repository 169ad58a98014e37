/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/event"
)

// MetricsMonitor records command counts, command latency, and pool activity.
// Register it with a prometheus.Registerer; it is a Collector itself.
type MetricsMonitor struct {
	commands    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	poolEvents  *prometheus.CounterVec
	connections prometheus.Gauge
	inUse       prometheus.Gauge
}

var (
	_ CommandHook          = (*MetricsMonitor)(nil)
	_ prometheus.Collector = (*MetricsMonitor)(nil)
)

func NewMetricsMonitor(namespace string) *MetricsMonitor {
	return &MetricsMonitor{
		commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "commands_total", Help: "Number of MongoDB commands by name and outcome."},
			[]string{"command", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Namespace: namespace, Name: "command_duration_seconds", Help: "MongoDB command latency.", Buckets: prometheus.DefBuckets},
			[]string{"command"},
		),
		poolEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "pool_events_total", Help: "Connection pool events by type."},
			[]string{"event"},
		),
		connections: prometheus.NewGauge(
			prometheus.GaugeOpts{Namespace: namespace, Name: "pool_connections", Help: "Open pooled connections."},
		),
		inUse: prometheus.NewGauge(
			prometheus.GaugeOpts{Namespace: namespace, Name: "pool_connections_in_use", Help: "Connections checked out of the pool."},
		),
	}
}

func (m *MetricsMonitor) Describe(ch chan<- *prometheus.Desc) {
	m.commands.Describe(ch)
	m.duration.Describe(ch)
	m.poolEvents.Describe(ch)
	m.connections.Describe(ch)
	m.inUse.Describe(ch)
}

func (m *MetricsMonitor) Collect(ch chan<- prometheus.Metric) {
	m.commands.Collect(ch)
	m.duration.Collect(ch)
	m.poolEvents.Collect(ch)
	m.connections.Collect(ch)
	m.inUse.Collect(ch)
}

func (m *MetricsMonitor) Started(context.Context, *event.CommandStartedEvent) {}

func (m *MetricsMonitor) Succeeded(_ context.Context, evt *event.CommandSucceededEvent) {
	m.commands.WithLabelValues(evt.CommandName, "success").Inc()
	m.duration.WithLabelValues(evt.CommandName).Observe(evt.Duration.Seconds())
}

func (m *MetricsMonitor) Failed(_ context.Context, evt *event.CommandFailedEvent) {
	m.commands.WithLabelValues(evt.CommandName, "failure").Inc()
	m.duration.WithLabelValues(evt.CommandName).Observe(evt.Duration.Seconds())
}

func (m *MetricsMonitor) PoolEvent(evt *event.PoolEvent) {
	m.poolEvents.WithLabelValues(evt.Type).Inc()
	switch evt.Type {
	case event.ConnectionCreated:
		m.connections.Inc()
	case event.ConnectionClosed:
		m.connections.Dec()
	case event.GetSucceeded:
		m.inUse.Inc()
	case event.ConnectionReturned:
		m.inUse.Dec()
	}
}
