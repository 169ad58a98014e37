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
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/event"
)

func startedEvent(t *testing.T, id int64, name, coll string) *event.CommandStartedEvent {
	t.Helper()
	raw, err := bson.Marshal(bson.D{{Key: name, Value: coll}, {Key: "filter", Value: bson.D{{Key: "age", Value: 30}}}})
	require.NoError(t, err)
	return &event.CommandStartedEvent{Command: raw, DatabaseName: "app", CommandName: name, RequestID: id}
}

func succeededEvent(id int64, name string, d time.Duration) *event.CommandSucceededEvent {
	return &event.CommandSucceededEvent{
		CommandFinishedEvent: event.CommandFinishedEvent{CommandName: name, DatabaseName: "app", RequestID: id, Duration: d},
	}
}

func failedEvent(id int64, name, failure string) *event.CommandFailedEvent {
	return &event.CommandFailedEvent{
		CommandFinishedEvent: event.CommandFinishedEvent{CommandName: name, DatabaseName: "app", RequestID: id, Duration: time.Millisecond},
		Failure:              failure,
	}
}

func TestCommandLogHookModes(t *testing.T) {
	tests := []struct {
		env           string
		wantSucceeded bool
		wantFailed    bool
	}{
		{"0", false, false},
		{"1", false, true},
		{"2", true, true},
	}
	for _, tt := range tests {
		t.Run("MONGEASY_DEBUG="+tt.env, func(t *testing.T) {
			t.Setenv("MONGEASY_DEBUG", tt.env)
			var buf bytes.Buffer
			h := NewCommandLogHook(false, false, &buf)
			ctx := context.Background()

			h.Started(ctx, startedEvent(t, 1, "find", "users"))
			h.Succeeded(ctx, succeededEvent(1, "find", 3*time.Millisecond))
			assert.Equal(t, tt.wantSucceeded, bytes.Contains(buf.Bytes(), []byte("app.users find")))

			buf.Reset()
			h.Started(ctx, startedEvent(t, 2, "insert", "users"))
			h.Failed(ctx, failedEvent(2, "insert", "E11000 duplicate key"))
			assert.Equal(t, tt.wantFailed, bytes.Contains(buf.Bytes(), []byte("E11000 duplicate key")))
		})
	}
}

func TestCommandLogHookLogsCommandBody(t *testing.T) {
	t.Setenv("MONGEASY_DEBUG", "2")
	var buf bytes.Buffer
	h := NewCommandLogHook(true, true, &buf)

	h.Started(context.Background(), startedEvent(t, 7, "find", "orders"))
	h.Succeeded(context.Background(), succeededEvent(7, "find", time.Millisecond))

	out := buf.String()
	assert.Contains(t, out, "[MONGO]")
	assert.Contains(t, out, "app.orders find")
	assert.Contains(t, out, `"age"`)
}

func TestCommandLogHookSilent(t *testing.T) {
	t.Setenv("MONGEASY_DEBUG", "2")
	EnableCommandLogSilent(true)
	t.Cleanup(func() { EnableCommandLogSilent(false) })

	var buf bytes.Buffer
	h := NewCommandLogHook(true, true, &buf)
	h.Started(context.Background(), startedEvent(t, 1, "find", "users"))
	h.Succeeded(context.Background(), succeededEvent(1, "find", time.Millisecond))
	assert.Empty(t, buf.String())
}

func TestSlowCommandHook(t *testing.T) {
	t.Setenv("MONGEASY_SLOW_LOG", "1")
	var buf bytes.Buffer
	h := NewSlowCommandHook(false, 10*time.Millisecond, &buf)
	ctx := context.Background()

	h.Started(ctx, startedEvent(t, 1, "find", "users"))
	h.Succeeded(ctx, succeededEvent(1, "find", 5*time.Millisecond))
	assert.Empty(t, buf.String())

	h.Started(ctx, startedEvent(t, 2, "aggregate", "users"))
	h.Succeeded(ctx, succeededEvent(2, "aggregate", 20*time.Millisecond))
	assert.Contains(t, buf.String(), "[MONGO_SLOW]")
	assert.Contains(t, buf.String(), "app.users aggregate")
}

func TestSlowCommandHookDisabledByEnv(t *testing.T) {
	t.Setenv("MONGEASY_SLOW_LOG", "0")
	var buf bytes.Buffer
	h := NewSlowCommandHook(true, time.Millisecond, &buf)
	h.Started(context.Background(), startedEvent(t, 1, "find", "users"))
	h.Succeeded(context.Background(), succeededEvent(1, "find", time.Second))
	assert.Empty(t, buf.String())
}

type recordingHook struct {
	started, succeeded, failed int
}

func (h *recordingHook) Started(context.Context, *event.CommandStartedEvent)     { h.started++ }
func (h *recordingHook) Succeeded(context.Context, *event.CommandSucceededEvent) { h.succeeded++ }
func (h *recordingHook) Failed(context.Context, *event.CommandFailedEvent)       { h.failed++ }

func TestNewCommandMonitorFansOut(t *testing.T) {
	a, b := &recordingHook{}, &recordingHook{}
	m := NewCommandMonitor(a, nil, b)
	ctx := context.Background()

	m.Started(ctx, startedEvent(t, 1, "find", "users"))
	m.Succeeded(ctx, succeededEvent(1, "find", time.Millisecond))
	m.Failed(ctx, failedEvent(2, "insert", "boom"))

	for _, h := range []*recordingHook{a, b} {
		assert.Equal(t, 1, h.started)
		assert.Equal(t, 1, h.succeeded)
		assert.Equal(t, 1, h.failed)
	}
}

func TestCommandColor(t *testing.T) {
	assert.Equal(t, readColor, commandColor("find"))
	assert.Equal(t, insertColor, commandColor("insert"))
	assert.Equal(t, updateColor, commandColor("update"))
	assert.Equal(t, deleteColor, commandColor("delete"))
	assert.Equal(t, otherColor, commandColor("ping"))
}
