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
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/event"
)

func TestMetricsMonitorCommands(t *testing.T) {
	m := NewMetricsMonitor("test")
	ctx := context.Background()

	m.Succeeded(ctx, succeededEvent(1, "find", 2*time.Millisecond))
	m.Succeeded(ctx, succeededEvent(2, "find", 4*time.Millisecond))
	m.Failed(ctx, failedEvent(3, "insert", "boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.commands.WithLabelValues("find", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.commands.WithLabelValues("insert", "failure")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.commands.WithLabelValues("insert", "success")))
}

func TestMetricsMonitorPoolEvents(t *testing.T) {
	m := NewMetricsMonitor("test")
	for _, typ := range []string{
		event.ConnectionCreated, event.ConnectionCreated, event.GetSucceeded,
		event.GetSucceeded, event.ConnectionReturned, event.ConnectionClosed,
	} {
		m.PoolEvent(&event.PoolEvent{Type: typ})
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(m.connections))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.inUse))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.poolEvents.WithLabelValues(event.ConnectionCreated)))
}

func TestMetricsMonitorRegisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsMonitor("mongeasy")
	require.NoError(t, reg.Register(m))

	m.Succeeded(context.Background(), succeededEvent(1, "ping", time.Millisecond))
	n, err := testutil.GatherAndCount(reg, "mongeasy_commands_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPoolStatsSnapshot(t *testing.T) {
	s := &poolStats{}
	mon := newPoolMonitor(s.PoolEvent)
	for _, typ := range []string{
		event.ConnectionCreated, event.ConnectionCreated, event.ConnectionCreated,
		event.GetSucceeded, event.GetSucceeded, event.ConnectionReturned,
		event.ConnectionClosed, event.GetFailed, event.PoolCleared,
	} {
		mon.Event(&event.PoolEvent{Type: typ})
	}

	stats := s.snapshot(50)
	assert.Equal(t, uint64(50), stats.MaxPoolSize)
	assert.Equal(t, int64(2), stats.OpenConns)
	assert.Equal(t, int64(1), stats.InUse)
	assert.Equal(t, int64(1), stats.Idle)
	assert.Equal(t, int64(3), stats.ConnectionsCreated)
	assert.Equal(t, int64(1), stats.ConnectionsClosed)
	assert.Equal(t, int64(1), stats.CheckOutFailed)
	assert.Equal(t, int64(1), stats.PoolCleared)
}
